package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hg192/tankGPT/internal/config"
	"github.com/hg192/tankGPT/internal/game"
	"github.com/hg192/tankGPT/internal/logging"
	"github.com/hg192/tankGPT/internal/server"
	"github.com/hg192/tankGPT/internal/store"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log := logging.New(os.Stderr, "info", "console")
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := server.NewTokenIssuer(cfg.TokenSecret, server.DefaultTokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("token issuer")
	}

	sessionCfg := server.SessionConfig{
		Mode:     game.Mode(cfg.GameMode),
		TeamSize: cfg.TeamSize,
		Tokens:   tokens,
		Logger:   log,
	}
	opts := server.Options{
		Addr:      cfg.Addr(),
		StaticDir: cfg.StaticDir,
		Logger:    log,
	}

	if cfg.DBPath != "" {
		db, err := store.Open(cfg.DBPath, log)
		if err != nil {
			log.Fatal().Err(err).Msg("open result store")
		}
		defer db.Close()
		sessionCfg.Results = db
		opts.Results = db
	}

	opts.Session = server.NewSession(sessionCfg)
	srv := server.New(opts)

	log.Info().
		Str("mode", cfg.GameMode).
		Int("team_size", cfg.TeamSize).
		Msg("starting tank arena")
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server exited")
		stop()
		os.Exit(1)
	}
}
