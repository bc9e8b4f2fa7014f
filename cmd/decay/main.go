// Command decay applies today's nightly prestige decay once and prints the
// number of accounts decayed. It is meant to be run by an external scheduler
// shortly after midnight in SERVER_TZ; repeated runs on the same day print 0.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	_ "time/tzdata"

	"github.com/tbourn/go-pvp-backend/internal/config"
	"github.com/tbourn/go-pvp-backend/internal/repo"
	"github.com/tbourn/go-pvp-backend/internal/services"
	"github.com/tbourn/go-pvp-backend/internal/sysutil"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	logger := sysutil.SetupLogging(os.Stderr, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	db, err := repo.Open(repo.Options{
		Driver: cfg.DB.Driver,
		Path:   cfg.DB.Path,
		DSN:    cfg.DB.DSN,
		Silent: true,
	})
	if err != nil {
		log.Error().Err(err).Msg("open database")
		return 1
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Error().Err(err).Msg("migrate database")
		return 1
	}

	svc := services.NewDecayService(db, cfg.Game.Location(), cfg.Game.DecayBatchSize)
	n, err := svc.Run(ctx)
	if err != nil {
		log.Error().Err(err).Int("decayed", n).Msg("decay failed")
		return 1
	}
	fmt.Println(n)
	return 0
}
