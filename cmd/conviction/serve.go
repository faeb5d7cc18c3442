package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tradeforge/conviction/internal/data"
	"github.com/tradeforge/conviction/internal/engine"
	httpiface "github.com/tradeforge/conviction/internal/interfaces/http"
	"github.com/tradeforge/conviction/internal/metrics"
	"github.com/tradeforge/conviction/internal/persistence"
	"github.com/tradeforge/conviction/internal/persistence/postgres"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis engine as an HTTP service",
		Long:  "Serves POST /analyze plus /healthz and /metrics. Bars come from a websocket stream feed or a fixture file, optionally cached in Redis and guarded by a circuit breaker.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", ":8087", "HTTP listen address")
	cmd.Flags().String("data", "", "Bar fixture file (fallback data source)")
	cmd.Flags().String("ws-url", "", "Websocket bar feed URL (preferred data source)")
	cmd.Flags().String("redis", "", "Redis address for the series cache (disabled when empty)")
	cmd.Flags().Duration("cache-ttl", 5*time.Minute, "Series cache TTL")
	cmd.Flags().String("postgres-dsn", "", "PostgreSQL DSN for the analysis audit store (disabled when empty)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	listen, _ := cmd.Flags().GetString("listen")
	dataPath, _ := cmd.Flags().GetString("data")
	wsURL, _ := cmd.Flags().GetString("ws-url")
	redisAddr, _ := cmd.Flags().GetString("redis")
	cacheTTL, _ := cmd.Flags().GetDuration("cache-ttl")
	pgDSN, _ := cmd.Flags().GetString("postgres-dsn")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	promRegistry := prometheus.NewRegistry()
	engineMetrics := metrics.NewRegistry()
	if err := engineMetrics.Register(promRegistry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var fetcher data.Fetcher
	switch {
	case wsURL != "":
		feed := data.NewStreamFeed(wsURL, 2*cfg.Lookback)
		go feed.Run(ctx)
		fetcher = feed
		log.Info().Str("url", wsURL).Msg("using websocket stream feed")
	case dataPath != "":
		fetcher, err = data.LoadFixture(dataPath)
		if err != nil {
			return err
		}
		log.Info().Str("path", dataPath).Msg("using fixture data source")
	default:
		return errors.New("serve: one of --ws-url or --data is required")
	}

	fetcher = data.NewGuardedFetcher(fetcher, data.GuardConfig{Name: "bars"})

	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:         redisAddr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", redisAddr, err)
		}
		fetcher = data.NewCachedFetcher(fetcher, client, cacheTTL, engineMetrics)
		log.Info().Str("addr", redisAddr).Dur("ttl", cacheTTL).Msg("series cache enabled")
	}

	var repo persistence.AnalysisRepo
	if pgDSN != "" {
		db, err := postgres.Connect(pgDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = postgres.NewAnalysisRepo(db, 5*time.Second)
		log.Info().Msg("analysis audit store enabled")
	}

	analyzer := engine.New(cfg, fetcher, engineMetrics)
	server := httpiface.NewServer(analyzer, repo, promRegistry)

	log.Info().Str("methodology", cfg.Name).Str("listen", listen).Msg("conviction serving")
	return server.ListenAndServe(ctx, listen)
}
