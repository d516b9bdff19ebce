package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"habittracker/internal/calendar"
	"habittracker/internal/handler"
	"habittracker/internal/httpserver"
	"habittracker/internal/idempotency"
	"habittracker/internal/service"
	"habittracker/pkg/config"
	"habittracker/pkg/mq"
	"habittracker/pkg/outbox"
	"habittracker/pkg/redis"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the habit tracker HTTP API.

With the postgres store and mq.url set, habit and completion events are
relayed from the outbox to RabbitMQ. With redis.addr set, toggles honour the
Idempotency-Key header.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := rootOpts.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting habitd...",
		zap.String("store", cfg.Store.Driver),
		zap.String("timezone", cfg.Habits.Timezone),
		zap.String("port", cfg.Server.Port),
	)

	clock, err := calendar.NewClock(cfg.Habits.Timezone)
	if err != nil {
		return err
	}

	store, pool, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	checks := []httpserver.ReadinessCheck{{Name: "store", Check: store.Ping}}

	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.Connect(ctx, cfg.Redis)
		if err != nil {
			// The guard fails open anyway; start without it rather than not at all.
			log.Warn("Redis unavailable, idempotency keys disabled", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
			checks = append(checks, httpserver.ReadinessCheck{
				Name:  "redis",
				Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			})
		}
	}

	if pool != nil && cfg.MQ.URL != "" {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			return err
		}
		defer publisher.Close()

		dispatcher := outbox.NewDispatcher(outbox.NewRepository(pool), publisher, log).
			WithInterval(cfg.MQ.DispatchInterval).
			WithBatchSize(cfg.MQ.DispatchBatch)
		go dispatcher.Start(ctx)
	} else if cfg.MQ.URL != "" {
		log.Warn("mq.url ignored: event relay needs the postgres store")
	}

	habitHandler := handler.NewHabitHandler(
		service.NewHabitService(store, log),
		service.NewToggleService(store, log),
		service.NewStatsService(store, log),
		idempotency.NewGuard(rdb, cfg.Redis.IdempotencyTTL, log),
		clock,
		log,
	)
	router := httpserver.NewRouter(habitHandler, cfg.JWT.Secret, log, checks...)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down habitd gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}
	log.Info("habitd shutdown complete")
	return nil
}
