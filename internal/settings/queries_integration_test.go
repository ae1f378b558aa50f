//go:build integration

package settings_test

import (
	"context"
	"testing"
	"time"

	"github.com/foodly/storefront/internal/settings"
	"github.com/foodly/storefront/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestSettingsAgainstPostgres runs the settings service on a real database.
func TestSettingsAgainstPostgres(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("storefront_test"),
		tcpostgres.WithUsername("storefront"),
		tcpostgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migrations.Up(connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	svc := settings.NewService(pool, settings.New(pool), func(db settings.DBTX) settings.Store {
		return settings.New(db)
	}, zerolog.Nop())
	id := uuid.New()

	s, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, s.Notifications.OrderUpdates)

	s, err = svc.UpdateNotifications(ctx, id, settings.Notifications{Email: true})
	require.NoError(t, err)
	assert.Equal(t, settings.Notifications{Email: true}, s.Notifications)

	s, codes, err := svc.EnableTwoFactor(ctx, id, settings.MethodEmail)
	require.NoError(t, err)
	assert.True(t, s.TwoFactor.Enabled)
	assert.NotNil(t, s.TwoFactor.UpdatedAt)
	assert.Equal(t, settings.BackupCodeCount, s.BackupCodesLeft)

	left, err := svc.UseBackupCode(ctx, id, codes[0])
	require.NoError(t, err)
	assert.Equal(t, settings.BackupCodeCount-1, left)

	_, err = svc.UseBackupCode(ctx, id, codes[0])
	assert.ErrorIs(t, err, settings.ErrInvalidBackupCode)

	s, err = svc.DisableTwoFactor(ctx, id)
	require.NoError(t, err)
	assert.False(t, s.TwoFactor.Enabled)
	assert.Equal(t, 0, s.BackupCodesLeft)
}
