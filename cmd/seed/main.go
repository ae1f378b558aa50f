package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/foodly/storefront/internal/auth"
	"github.com/foodly/storefront/internal/config"
	"github.com/foodly/storefront/internal/enum"
	"github.com/foodly/storefront/internal/logger"
	"github.com/foodly/storefront/internal/settings"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// seed creates a settings row for a development account and prints a bearer
// token for it, so the storefront can be exercised without the platform's
// login flow.
func main() {
	customer := flag.String("customer", "", "customer UUID (random when empty)")
	role := flag.String("role", enum.RoleCustomer, "token role: CUSTOMER, SHIPPER or ADMIN")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	log := logger.New("info", true)

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	switch *role {
	case enum.RoleCustomer, enum.RoleShipper, enum.RoleAdmin:
	default:
		log.Fatal().Str("role", *role).Msg("unknown role")
	}

	id := uuid.New()
	if *customer != "" {
		if id, err = uuid.Parse(*customer); err != nil {
			log.Fatal().Err(err).Msg("invalid customer id")
		}
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping postgres")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("begin transaction")
	}
	defer tx.Rollback(ctx)

	created, err := seedSettings(ctx, tx, id)
	if err != nil {
		log.Fatal().Err(err).Msg("seed settings")
	}
	if err := tx.Commit(ctx); err != nil {
		log.Fatal().Err(err).Msg("commit")
	}

	token, err := auth.GenerateToken(cfg.JWTSecret, id, *role, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("generate token")
	}

	log.Info().Str("customer_id", id.String()).Bool("created", created).Str("role", *role).Msg("seed completed")
	fmt.Fprintln(os.Stdout, token)
}

// seedSettings writes the default settings row unless one already exists.
func seedSettings(ctx context.Context, tx pgx.Tx, customerID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT true FROM account_settings WHERE customer_id = $1`, customerID).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("check settings: %w", err)
	}

	defaults := settings.Defaults(customerID)
	if err := settings.New(tx).UpsertNotifications(ctx, customerID, defaults.Notifications); err != nil {
		return false, fmt.Errorf("insert settings: %w", err)
	}
	return true, nil
}
