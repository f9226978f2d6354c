package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/rosebud/internal/config"
	"github.com/robalobadob/rosebud/internal/hints"
	"github.com/robalobadob/rosebud/internal/httpserver"
	"github.com/robalobadob/rosebud/internal/puzzle"
	"github.com/robalobadob/rosebud/internal/session"
	"github.com/robalobadob/rosebud/internal/store"
)

func main() {
	_ = godotenv.Load()

	loader := config.NewLoader(getEnv("CONFIG_FILE", ""))
	cfg, err := loader.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg)

	loader.OnChange(func(c *config.Config) {
		zerolog.SetGlobalLevel(c.ZerologLevel())
		log.Info().Str("level", c.Log.Level).Msg("config reloaded")
	})
	if err := loader.Watch(); err != nil {
		log.Warn().Err(err).Msg("config hot reload disabled")
	}
	defer loader.Close()
	go func() {
		for err := range loader.Errors() {
			log.Warn().Err(err).Msg("config reload rejected")
		}
	}()

	cat, err := puzzle.Load(cfg.Puzzle.RowsFile, cfg.Puzzle.HintsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load puzzle")
	}
	rows, hintCount := cat.Stats()
	log.Info().Int("rows", rows).Int("hints", hintCount).Msg("puzzle loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	defer backend.Close()

	queue := hints.NewQueue(backend, cat.Hints)
	if err := queue.EnsureSeeded(ctx); err != nil {
		log.Warn().Err(err).Msg("seed hints")
	}

	srv := httpserver.New(httpserver.Options{
		Sessions:          session.NewManager(cat.Rows, session.Deps{Progress: backend, Attempts: backend}, cfg.Puzzle.MaxSessions),
		Hints:             queue,
		Attempts:          backend,
		DefaultSession:    cfg.Puzzle.SessionID,
		ClientOrigin:      cfg.Server.ClientOrigin,
		RequestTimeout:    time.Duration(cfg.Server.RequestTimeout) * time.Second,
		JWTSecret:         cfg.Auth.JWTSecret,
		JWTExpiresDays:    cfg.Auth.JWTExpiresDays,
		CookieName:        cfg.Auth.CookieName,
		Production:        cfg.Server.Production,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
	})

	hs := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	log.Info().Str("port", cfg.Server.Port).Str("store", cfg.Store.Driver).Msg("starting rosebud")
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

// setupLogging applies the configured level and output format to the global logger.
func setupLogging(cfg *config.Config) {
	zerolog.SetGlobalLevel(cfg.ZerologLevel())
	if cfg.Log.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
