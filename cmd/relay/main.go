package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/godiscuss/godiscuss/internal/logging"
	"github.com/godiscuss/godiscuss/internal/relay"
	"github.com/godiscuss/godiscuss/internal/relay/config"
	"github.com/godiscuss/godiscuss/internal/relay/session"
)

func main() {
	cfg := config.LoadConfig()
	if cfg.CookieSecret == "" {
		log.Fatal("cookie secret is required (-secret or cookie_secret in the config file)")
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigs
		cancel()
	}()

	var store session.Store
	switch cfg.StoreBackend {
	case config.StoreBackendRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis unavailable: %v", err)
		}
		defer client.Close()
		store = session.NewRedisStore(client)
	default:
		mem := session.NewMemoryStore()
		go mem.StartJanitor(ctx, time.Minute)
		store = mem
	}

	r := relay.New(cfg, store, logger)
	if err := r.Serve(ctx); err != nil {
		logger.Error(ctx, "relay stopped", "error", err)
		os.Exit(1)
	}
}
