package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/charmbracelet/log"

	"github.com/abensaid/lendify/infra/initializer"
	"github.com/abensaid/lendify/pkg/app"
	"github.com/abensaid/lendify/pkg/config"
	"github.com/abensaid/lendify/webapi"
)

// @title Lendify Transfer API
// @version 1.0.0
// @description Outbound transfer validation workflow API
// @host localhost:3000
// @BasePath /
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description "Enter your Bearer token in the format: `Bearer {token}`"
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	logger := deps.Logger

	a := app.New(deps, cfg)
	fiberApp := webapi.SetupApp(a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The deferred-completion worker shares the process with the API.
	go func() {
		if err := a.Worker.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("worker stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = fiberApp.Shutdown()
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting server",
		"env", cfg.Env,
		"address", addr,
		"scheme", cfg.Server.Scheme,
	)
	return fiberApp.Listen(addr)
}
