package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/godiscuss/godiscuss/internal/client/cli"
	"github.com/godiscuss/godiscuss/internal/client/config"
	"github.com/godiscuss/godiscuss/internal/logging"
)

func main() {
	cfg := config.LoadConfig()

	// Structured logs go to a file so they do not interleave with the REPL.
	logOut := io.Discard
	if f, err := os.OpenFile("discuss.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err == nil {
		defer f.Close()
		logOut = f
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(logOut, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
