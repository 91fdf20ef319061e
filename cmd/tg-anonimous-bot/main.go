// Copyright 2024-2026 Aiku AI

// Command tg-anonimous-bot relays messages from anonymous Telegram users to
// a fixed set of operators and routes operator replies back to the exact
// originating user. Routing state lives in a durable correlation store, so
// reply correlation survives process restarts.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/muhammadtakdir/tg-anonimous-bot/pkg/relay"
	"github.com/muhammadtakdir/tg-anonimous-bot/pkg/store"
	"github.com/muhammadtakdir/tg-anonimous-bot/pkg/telegram"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "c", "./config.yaml", "config file path")
	flag.Parse()

	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Info().
		Str("tag", Tag).
		Str("commit", Commit).
		Str("build_time", BuildTime).
		Msg("Starting relay bot")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := relay.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if cfg.Token == "" {
		log.Fatal().Msg("No bot token configured (set TELEGRAM_BOT_TOKEN or token in config)")
	}
	if len(cfg.Operators) == 0 {
		log.Warn().Msg("No operators configured; inbound messages cannot be delivered")
	}

	relay.RegisterMetrics()

	// A migration failure aborts startup and leaves the old schema usable.
	st, err := store.Open(ctx, cfg.DatabasePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open correlation store")
	}
	defer st.Close()

	client, err := telegram.NewClient(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Telegram")
	}

	engine := relay.New(cfg, st, client, log)
	client.AttachRelay(engine)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	server := &http.Server{
		Addr:         cfg.AdminAPIAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.AdminAPIAddr).Msg("Starting admin API")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Admin API error")
		}
	}()

	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Update loop terminated")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	log.Info().Msg("Shutdown complete")
}
