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
	"golang.org/x/sync/errgroup"

	"stashsmart/internal/config"
	"stashsmart/internal/database"
	_ "stashsmart/internal/docs" // Import swagger docs
	"stashsmart/internal/logger"
	"stashsmart/internal/server"
	"stashsmart/internal/services"
	"stashsmart/internal/validator"
)

//go:generate swag init --dir ../.. --generalInfo cmd/api/main.go --output ../../internal/docs --outputTypes go

const shutdownTimeout = 15 * time.Second

// @title           StashSmart API
// @version         1.0
// @description     StashSmart keeps accounts, budgets, goals and the activity log consistent with every transaction.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	appConfig, err := bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(appConfig); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

// bootstrap loads configuration, .env included, and only then builds the
// logger so ENV from .env picks the encoder.
func bootstrap() (*config.Config, error) {
	appConfig, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(appConfig.Env)
	return appConfig, nil
}

func run(appConfig *config.Config) error {
	log := logger.Get()

	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	dbConfig, err := database.NewConfig(appConfig)
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	sqlDB, err := dbManager.DB().DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB: %w", err)
	}

	svc := server.NewServices(dbManager.DB(), sqlDB, services.WorkflowOptions{
		ReverseTrackingOnMutation: appConfig.ReverseTrackingOnMutation,
	})
	router := server.NewRouter(svc, server.Options{
		CORSAllowedOrigins: appConfig.CORSAllowedOrigins,
		AdminAPIKey:        appConfig.AdminAPIKey,
		EnableSwagger:      appConfig.Env != "production",
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	sweeper := server.NewRetentionSweeper(svc.Activity, appConfig.ActivityRetentionDays, appConfig.ActivitySweepInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("Starting StashSmart server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server stopped gracefully")
	return nil
}
