package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bnpl-gateway/internal/config"
	"bnpl-gateway/internal/env"
	"bnpl-gateway/internal/infrastructure/events"
	"bnpl-gateway/internal/infrastructure/repo"
	"bnpl-gateway/internal/infrastructure/vida"
	"bnpl-gateway/internal/metrics"
	"bnpl-gateway/internal/server"
	"bnpl-gateway/internal/usecase"
)

func main() {
	env.Load(".env", ".env.local")
	envDefaults := config.EnvDefaults()

	environment := flag.String("env", envDefaults.Env, "")
	port := flag.Int("port", envDefaults.Port, "")
	dsn := flag.String("postgres-dsn", envDefaults.PostgresDSN, "")
	brokers := flag.String("kafka-brokers", envDefaults.KafkaBrokers, "")
	logJSON := flag.Bool("log-json", envDefaults.LogJSON, "")

	flag.Parse()

	cfg := envDefaults
	cfg.Env = *environment
	cfg.Port = *port
	cfg.PostgresDSN = *dsn
	cfg.KafkaBrokers = *brokers
	cfg.LogJSON = *logJSON

	log := newLogger(cfg.LogJSON)

	var store usecase.OrderStore
	if cfg.PostgresDSN != "" {
		pg, err := repo.NewPostgresOrderStore(cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres order store", "err", err)
			os.Exit(1)
		}
		store = pg
	} else {
		store = repo.NewMemoryOrderStore()
		log.Warn("no postgres dsn configured, using in-memory order store")
	}

	settings := usecase.BuilderSettings{
		Test:   usecase.Credentials{ClientID: cfg.TestClientID, ClientSecret: cfg.TestClientSecret},
		Live:   usecase.Credentials{ClientID: cfg.LiveClientID, ClientSecret: cfg.LiveClientSecret},
		GoLive: cfg.GoLive,
	}
	creds, _ := settings.Active()

	verifier := vida.New(cfg.VidaBaseURL, cfg.MaxVerifyAttempts, time.Duration(cfg.RetryBackoffSeconds*float64(time.Second)))

	m := metrics.New(prometheus.DefaultRegisterer)
	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	reconciler := usecase.NewReconciler(store, verifier, usecase.Settings{
		Secret:            creds.ClientSecret,
		AmountEpsilon:     cfg.AmountEpsilon,
		AutocompleteOrder: cfg.AutocompleteOrder,
	})
	reconciler.Events = publisher
	reconciler.Metrics = m
	reconciler.Log = log

	srv := server.New(cfg, server.Deps{
		Store:      store,
		Reconciler: reconciler,
		Builder:    usecase.NewRequestBuilder(store, settings),
		Nonces:     usecase.NewNonceService(cfg.NonceSecret, time.Duration(cfg.NonceTTLSeconds)*time.Second),
		Metrics:    m,
		Log:        log,
	})

	log.Info("bnpl gateway listening", "port", cfg.Port, "env", cfg.Env, "live", cfg.GoLive, "events", publisher.Enabled())
	if err := srv.Run(); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func newLogger(jsonOut bool) *slog.Logger {
	var h slog.Handler
	if jsonOut {
		h = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		h = slog.NewTextHandler(os.Stdout, nil)
	}
	log := slog.New(h)
	slog.SetDefault(log)
	return log
}
