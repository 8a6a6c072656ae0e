package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/parleyhq/parley"
	"github.com/parleyhq/parley/pkg/adapters/httpapi"
	"github.com/parleyhq/parley/pkg/adapters/memory"
	redisadapter "github.com/parleyhq/parley/pkg/adapters/redis"
	"github.com/parleyhq/parley/pkg/observability"
	"github.com/parleyhq/parley/pkg/ports"
	"github.com/parleyhq/parley/pkg/session"
)

var (
	flagAddr     string
	flagRedis    string
	flagRedisTTL time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serves the turn API over HTTP. With --redis, snapshots live in Redis and
turns are locked per conversation across instances; without it, state is
in-process and a single instance owns all traffic.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&flagRedis, "redis", "", "Redis address for shared state (host:port)")
	serveCmd.Flags().DurationVar(&flagRedisTTL, "redis-ttl", 0, "expire idle conversations after this duration")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	flows, err := loadFlows()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	engine, err := parley.New(flows,
		parley.WithLogger(logger),
		parley.WithHooks(metrics.Hooks()),
		parley.WithActionExecutor(demoActions(logger)),
	)
	if err != nil {
		return err
	}

	var store ports.SnapshotStore = memory.NewStore()
	sessionOpts := []session.Option{session.WithLogger(logger)}
	if flagRedis != "" {
		client := goredis.NewClient(&goredis.Options{Addr: flagRedis})
		defer client.Close()
		if err := client.Ping(cmd.Context()).Err(); err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", flagRedis, err)
		}
		var storeOpts []redisadapter.StoreOption
		if flagRedisTTL > 0 {
			storeOpts = append(storeOpts, redisadapter.WithTTL(flagRedisTTL))
		}
		store = redisadapter.NewStore(client, storeOpts...)
		sessionOpts = append(sessionOpts, session.WithLocker(redisadapter.NewLocker(client)))
		logger.Info("using redis state", "addr", flagRedis)
	}
	sessions := session.NewManager(engine, store, sessionOpts...)

	mux := http.NewServeMux()
	mux.Handle("/", httpapi.NewRouter(engine, sessions, logger))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              flagAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", "addr", flagAddr, "flows", len(flows))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
