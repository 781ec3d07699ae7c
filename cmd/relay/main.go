package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"cyphertext/internal/app"
	"cyphertext/internal/domain"
	"cyphertext/internal/logging"
	"cyphertext/internal/relay"
	"cyphertext/internal/transport/memory"
	"cyphertext/internal/transport/redisrelay"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configFile string
		listen     string
		backend    string
		redisAddr  string
	)
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Serve the key directory and envelope log",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("listen") {
				cfg.Relay.Listen = listen
			}
			if flags.Changed("backend") {
				cfg.Relay.Backend = backend
			}
			if flags.Changed("redis") {
				cfg.Relay.RedisAddr = redisAddr
			}
			if err := cfg.Relay.Validate(); err != nil {
				return err
			}
			logging.Configure(os.Stderr, cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg.Relay, logging.Logger)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "relay.yaml", "configuration file path")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&backend, "backend", "", "memory or redis")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address for the redis backend")
	return cmd
}

func serve(ctx context.Context, cfg app.RelayConfig, logger log.Logger) error {
	var backend domain.Relay
	switch cfg.Backend {
	case app.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer client.Close()
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pctx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		backend = redisrelay.New(client, cfg.RedisPrefix, log.With(logger, "component", "redis"))
	default:
		backend = memory.New()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	relay.NewServer(backend, logger).ConfigRoutes(router, relay.RouteOptions{
		Metrics:     cfg.Metrics,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		level.Info(logger).Log("msg", "relay listening", "addr", cfg.Listen, "backend", cfg.Backend)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	level.Info(logger).Log("msg", "shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
