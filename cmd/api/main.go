package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/todoapp/todo-backend/internal/auth"
	"github.com/todoapp/todo-backend/internal/config"
	"github.com/todoapp/todo-backend/internal/database"
	"github.com/todoapp/todo-backend/internal/logging"
	"github.com/todoapp/todo-backend/internal/repository"
	"github.com/todoapp/todo-backend/internal/server"
	"github.com/todoapp/todo-backend/internal/service"
)

func gracefulShutdown(apiServer *http.Server, dbService database.Service, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logrus.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// In-flight requests get 5 seconds to finish.
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Closing database connection pool...")
	if err := dbService.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection pool")
	}

	logrus.Info("Server exiting")
	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	logging.Setup(os.Stdout, cfg.LogLevel, cfg.IsProduction())

	dbService, err := database.New(cfg.DB.DSN(), database.DefaultOptions())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	if cfg.AutoMigrate {
		logrus.Info("Running database auto-migration...")
		if err := dbService.Migrate(); err != nil {
			logrus.WithError(err).Fatal("Failed to auto-migrate database")
		}
	}

	gormDB := dbService.GetDB()
	userRepo := repository.NewGormUserRepository(gormDB)
	todoRepo := repository.NewGormTodoRepository(gormDB)

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure token signing")
	}

	authService := service.NewAuthService(userRepo, tokens)
	todoService := service.NewTodoService(todoRepo)

	apiServer := server.NewServer(cfg, authService, todoService, dbService)

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, dbService, done)

	logrus.WithFields(logrus.Fields{
		"addr": apiServer.Addr,
		"env":  cfg.AppEnv,
	}).Info("Starting server")
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("HTTP server ListenAndServe error")
	}

	<-done
	logrus.Info("Graceful shutdown complete.")
}
