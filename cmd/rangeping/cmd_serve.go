package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/rangeping/internal/server"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	g := addGlobalFlags(fs)
	listen := fs.String("listen", "", "listen address (default from server.host and server.port)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a, err := newApp(context.Background(), g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rangeping: %v\n", err)
		return 1
	}
	defer a.Close()

	addr := *listen
	if addr == "" {
		addr = a.settings.Addr()
	}
	srv := server.New(addr, a.engine, a.logger.Named("server"),
		server.WithSites(a.sites),
		server.WithGatherer(a.registry),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	a.logger.Info("rangeping server ready", zap.String("addr", addr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		a.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			a.logger.Error("server error", zap.Error(err))
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	if err := a.store.Checkpoint(shutdownCtx); err != nil {
		a.logger.Warn("WAL checkpoint failed", zap.Error(err))
	}
	a.logger.Info("rangeping server stopped")
	return 0
}
