package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/renzo-dev/accounts/internal/router"
	"github.com/renzo-dev/accounts/internal/setup"
	"github.com/renzo-dev/accounts/shared/config"
	"github.com/renzo-dev/accounts/shared/logger"
)

func main() {
	var configFolder string
	flag.StringVar(&configFolder, "config_folder", "config", "path to folder with configs")
	flag.Parse()

	cfg := config.MustLoad(configFolder)
	logger.Initialize(cfg.Public.LogLevel, cfg.Public.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setup.SetupDependencies(ctx, cfg)
	if err != nil {
		logger.Log.Error("failed to set up dependencies", "error", err)
		os.Exit(1)
	}
	defer deps.Storage.Cleanup()

	deps.Dispatcher.Start()
	defer deps.Dispatcher.Stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = strconv.Itoa(cfg.Public.ListenPort)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router.New(deps.Handler, &cfg.Public),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Log.Info("server started", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Log.Info("server stopped")
}
