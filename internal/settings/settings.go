package settings

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// BackupCodeCount is how many one-time codes enabling 2FA issues.
const BackupCodeCount = 8

// Two-factor delivery methods.
const (
	MethodSMS   = "SMS"
	MethodEmail = "EMAIL"
	MethodApp   = "APP"
)

// Errors returned by the settings service.
var (
	ErrInvalidMethod     = errors.New("invalid two-factor method")
	ErrTwoFactorDisabled = errors.New("two-factor authentication is not enabled")
	ErrInvalidBackupCode = errors.New("invalid backup code")
)

type TwoFactor struct {
	Enabled   bool       `json:"enabled"`
	Method    string     `json:"method"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type Notifications struct {
	OrderUpdates bool `json:"order_updates"`
	Promotions   bool `json:"promotions"`
	Email        bool `json:"email"`
	SMS          bool `json:"sms"`
}

// Settings is a customer's account security and notification preferences.
type Settings struct {
	CustomerID      uuid.UUID     `json:"customer_id"`
	TwoFactor       TwoFactor     `json:"two_factor"`
	Notifications   Notifications `json:"notifications"`
	BackupCodesLeft int           `json:"backup_codes_left"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Defaults is what a customer without a stored row sees.
func Defaults(customerID uuid.UUID) Settings {
	return Settings{
		CustomerID: customerID,
		TwoFactor:  TwoFactor{Method: MethodSMS},
		Notifications: Notifications{
			OrderUpdates: true,
			Promotions:   true,
			Email:        true,
		},
	}
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store defines the DB methods the service needs. Satisfied by *Queries.
type Store interface {
	GetSettings(ctx context.Context, customerID uuid.UUID) (Settings, error)
	UpsertNotifications(ctx context.Context, customerID uuid.UUID, n Notifications) error
	SetTwoFactor(ctx context.Context, customerID uuid.UUID, enabled bool, method string) error
	DeleteBackupCodes(ctx context.Context, customerID uuid.UUID) error
	InsertBackupCode(ctx context.Context, customerID uuid.UUID, hash string) error
	ListUnusedBackupCodes(ctx context.Context, customerID uuid.UUID) ([]BackupCode, error)
	MarkBackupCodeUsed(ctx context.Context, id uuid.UUID) (bool, error)
}

// NewStore creates a Store from a DBTX (pool or tx).
type NewStore func(db DBTX) Store

// Service manages account settings.
type Service struct {
	pool     TxBeginner
	store    Store
	newStore NewStore
	log      zerolog.Logger
	cost     int
}

func NewService(pool TxBeginner, store Store, newStore NewStore, log zerolog.Logger) *Service {
	return &Service{
		pool:     pool,
		store:    store,
		newStore: newStore,
		log:      log.With().Str("component", "settings").Logger(),
		cost:     bcrypt.DefaultCost,
	}
}

func (s *Service) Get(ctx context.Context, customerID uuid.UUID) (Settings, error) {
	st, err := s.store.GetSettings(ctx, customerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Defaults(customerID), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return st, nil
}

func (s *Service) UpdateNotifications(ctx context.Context, customerID uuid.UUID, n Notifications) (Settings, error) {
	if err := s.store.UpsertNotifications(ctx, customerID, n); err != nil {
		return Settings{}, fmt.Errorf("update notifications: %w", err)
	}
	return s.Get(ctx, customerID)
}

// EnableTwoFactor turns 2FA on with method and issues a fresh set of backup
// codes. The plaintext codes are returned once and only their hashes stored.
func (s *Service) EnableTwoFactor(ctx context.Context, customerID uuid.UUID, method string) (Settings, []string, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method != MethodSMS && method != MethodEmail && method != MethodApp {
		return Settings{}, nil, ErrInvalidMethod
	}

	codes := make([]string, BackupCodeCount)
	hashes := make([]string, BackupCodeCount)
	for i := range codes {
		code, err := newBackupCode()
		if err != nil {
			return Settings{}, nil, fmt.Errorf("generate backup code: %w", err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(normalizeCode(code)), s.cost)
		if err != nil {
			return Settings{}, nil, fmt.Errorf("hash backup code: %w", err)
		}
		codes[i], hashes[i] = code, string(hash)
	}

	err := s.inTx(ctx, func(store Store) error {
		if err := store.SetTwoFactor(ctx, customerID, true, method); err != nil {
			return fmt.Errorf("enable two-factor: %w", err)
		}
		if err := store.DeleteBackupCodes(ctx, customerID); err != nil {
			return fmt.Errorf("delete backup codes: %w", err)
		}
		for _, h := range hashes {
			if err := store.InsertBackupCode(ctx, customerID, h); err != nil {
				return fmt.Errorf("insert backup code: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Settings{}, nil, err
	}

	st, err := s.Get(ctx, customerID)
	if err != nil {
		return Settings{}, nil, err
	}
	s.log.Info().Str("customer_id", customerID.String()).Str("method", method).Msg("two-factor enabled")
	return st, codes, nil
}

func (s *Service) DisableTwoFactor(ctx context.Context, customerID uuid.UUID) (Settings, error) {
	current, err := s.Get(ctx, customerID)
	if err != nil {
		return Settings{}, err
	}
	err = s.inTx(ctx, func(store Store) error {
		if err := store.SetTwoFactor(ctx, customerID, false, current.TwoFactor.Method); err != nil {
			return fmt.Errorf("disable two-factor: %w", err)
		}
		if err := store.DeleteBackupCodes(ctx, customerID); err != nil {
			return fmt.Errorf("delete backup codes: %w", err)
		}
		return nil
	})
	if err != nil {
		return Settings{}, err
	}
	return s.Get(ctx, customerID)
}

// UseBackupCode consumes one unused backup code matching code.
func (s *Service) UseBackupCode(ctx context.Context, customerID uuid.UUID, code string) (int, error) {
	st, err := s.Get(ctx, customerID)
	if err != nil {
		return 0, err
	}
	if !st.TwoFactor.Enabled {
		return 0, ErrTwoFactorDisabled
	}

	stored, err := s.store.ListUnusedBackupCodes(ctx, customerID)
	if err != nil {
		return 0, fmt.Errorf("list backup codes: %w", err)
	}
	plain := []byte(normalizeCode(code))
	for _, c := range stored {
		if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), plain) != nil {
			continue
		}
		ok, err := s.store.MarkBackupCodeUsed(ctx, c.ID)
		if err != nil {
			return 0, fmt.Errorf("mark backup code used: %w", err)
		}
		if !ok {
			return 0, ErrInvalidBackupCode
		}
		s.log.Info().Str("customer_id", customerID.String()).Msg("backup code used")
		return len(stored) - 1, nil
	}
	return 0, ErrInvalidBackupCode
}

func (s *Service) inTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(s.newStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// codeAlphabet leaves out 0/O and 1/I/L.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// codeByteLimit is the largest multiple of len(codeAlphabet) below 256.
// Random bytes at or above it are redrawn so every symbol is equally likely.
const codeByteLimit = 256 - 256%len(codeAlphabet)

// newBackupCode returns a code formatted XXXX-XXXX.
func newBackupCode() (string, error) {
	return backupCodeFrom(rand.Reader)
}

func backupCodeFrom(r io.Reader) (string, error) {
	out := make([]byte, 0, 9)
	buf := make([]byte, 16)
	for n := 0; n < 8; {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, v := range buf {
			if int(v) >= codeByteLimit {
				continue
			}
			if n == 4 {
				out = append(out, '-')
			}
			out = append(out, codeAlphabet[int(v)%len(codeAlphabet)])
			if n++; n == 8 {
				break
			}
		}
	}
	return string(out), nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(code))
}

// IsValidationError reports errors caused by the request itself.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidMethod) ||
		errors.Is(err, ErrTwoFactorDisabled) ||
		errors.Is(err, ErrInvalidBackupCode)
}
