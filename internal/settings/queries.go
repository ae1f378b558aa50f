package settings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the settings SQL against a pool or a transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type BackupCode struct {
	ID       uuid.UUID
	CodeHash string
}

const getSettings = `
SELECT s.customer_id, s.two_factor_enabled, s.two_factor_method, s.two_factor_updated_at,
       s.notify_order_updates, s.notify_promotions, s.notify_email, s.notify_sms, s.updated_at,
       (SELECT count(*) FROM backup_codes b WHERE b.customer_id = s.customer_id AND b.used_at IS NULL)
FROM account_settings s
WHERE s.customer_id = $1`

func (q *Queries) GetSettings(ctx context.Context, customerID uuid.UUID) (Settings, error) {
	var s Settings
	var tfUpdated *time.Time
	var left int64
	err := q.db.QueryRow(ctx, getSettings, customerID).Scan(
		&s.CustomerID,
		&s.TwoFactor.Enabled,
		&s.TwoFactor.Method,
		&tfUpdated,
		&s.Notifications.OrderUpdates,
		&s.Notifications.Promotions,
		&s.Notifications.Email,
		&s.Notifications.SMS,
		&s.UpdatedAt,
		&left,
	)
	s.TwoFactor.UpdatedAt = tfUpdated
	s.BackupCodesLeft = int(left)
	return s, err
}

const upsertNotifications = `
INSERT INTO account_settings (customer_id, notify_order_updates, notify_promotions, notify_email, notify_sms)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (customer_id) DO UPDATE SET
    notify_order_updates = EXCLUDED.notify_order_updates,
    notify_promotions    = EXCLUDED.notify_promotions,
    notify_email         = EXCLUDED.notify_email,
    notify_sms           = EXCLUDED.notify_sms,
    updated_at           = now()`

func (q *Queries) UpsertNotifications(ctx context.Context, customerID uuid.UUID, n Notifications) error {
	_, err := q.db.Exec(ctx, upsertNotifications, customerID, n.OrderUpdates, n.Promotions, n.Email, n.SMS)
	return err
}

const setTwoFactor = `
INSERT INTO account_settings (customer_id, two_factor_enabled, two_factor_method, two_factor_updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (customer_id) DO UPDATE SET
    two_factor_enabled    = EXCLUDED.two_factor_enabled,
    two_factor_method     = EXCLUDED.two_factor_method,
    two_factor_updated_at = now(),
    updated_at            = now()`

func (q *Queries) SetTwoFactor(ctx context.Context, customerID uuid.UUID, enabled bool, method string) error {
	_, err := q.db.Exec(ctx, setTwoFactor, customerID, enabled, method)
	return err
}

const deleteBackupCodes = `DELETE FROM backup_codes WHERE customer_id = $1`

func (q *Queries) DeleteBackupCodes(ctx context.Context, customerID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteBackupCodes, customerID)
	return err
}

const insertBackupCode = `INSERT INTO backup_codes (customer_id, code_hash) VALUES ($1, $2)`

func (q *Queries) InsertBackupCode(ctx context.Context, customerID uuid.UUID, hash string) error {
	_, err := q.db.Exec(ctx, insertBackupCode, customerID, hash)
	return err
}

const listUnusedBackupCodes = `
SELECT id, code_hash FROM backup_codes
WHERE customer_id = $1 AND used_at IS NULL
ORDER BY created_at`

func (q *Queries) ListUnusedBackupCodes(ctx context.Context, customerID uuid.UUID) ([]BackupCode, error) {
	rows, err := q.db.Query(ctx, listUnusedBackupCodes, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []BackupCode
	for rows.Next() {
		var c BackupCode
		if err := rows.Scan(&c.ID, &c.CodeHash); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

const markBackupCodeUsed = `UPDATE backup_codes SET used_at = now() WHERE id = $1 AND used_at IS NULL`

// MarkBackupCodeUsed reports false if the code was consumed concurrently.
func (q *Queries) MarkBackupCodeUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx, markBackupCodeUsed, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
