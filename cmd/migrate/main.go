package main

import (
	"errors"
	"flag"

	"github.com/foodly/storefront/internal/config"
	"github.com/foodly/storefront/internal/logger"
	"github.com/foodly/storefront/migrations"
	"github.com/golang-migrate/migrate/v4"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration")
	flag.Parse()

	log := logger.New("info", true)

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	if !*down {
		if err := migrations.Up(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("migrate up")
		}
		log.Info().Msg("migrations applied")
		return
	}

	m, err := migrations.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("create migrator")
	}
	defer m.Close()

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Msg("migrate down")
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatal().Err(err).Msg("read version")
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("rolled back one migration")
}
