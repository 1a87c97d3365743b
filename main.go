package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quotebot/internal/config"
	"quotebot/internal/fulfillment"
	"quotebot/internal/logger"
	"quotebot/internal/pricing"
	"quotebot/internal/server"
	"quotebot/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zl, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewZapAdapter(zl)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("webhook stopped", nil)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	loc, err := cfg.Quote.Location()
	if err != nil {
		return err
	}

	quotes, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	generator := pricing.NewGenerator(pricing.NewTimeSeededRandom(), time.Now)
	handler := fulfillment.NewHandler(quotes, generator, fulfillment.DefaultFollowUps(loc), log)
	app := server.New(handler, log)

	log.Info("starting webhook", map[string]interface{}{
		"port":     cfg.Server.Port,
		"store":    cfg.Store.Driver,
		"timezone": loc.String(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-sigCh:
		log.Info("shutdown signal received", map[string]interface{}{"signal": sig.String()})
	}

	return app.ShutdownWithTimeout(10 * time.Second)
}

func openStore(cfg *config.Config, log logger.Logger) (store.Store, func(), error) {
	if cfg.Store.Driver != config.StoreDriverRedis {
		return store.NewMemoryStore(), func() {}, nil
	}

	rs := store.NewRedisStore(store.NewRedisClient(cfg.Redis), cfg.Redis.TTL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		rs.Close()
		return nil, nil, err
	}

	log.Info("redis session store connected", map[string]interface{}{"address": cfg.Redis.Address})
	return rs, func() {
		if err := rs.Close(); err != nil {
			log.WithError(err).Warn("redis close failed", nil)
		}
	}, nil
}
