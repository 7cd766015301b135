package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/todoapp/todo-backend/internal/domain"
)

// Service exposes the GORM handle plus pool health and shutdown.
type Service interface {
	Health() map[string]string
	Migrate() error
	Close() error
	GetDB() *gorm.DB
}

type service struct {
	db      *gorm.DB
	maxOpen int
}

// Options tunes the connection pool and SQL logging.
type Options struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// DefaultOptions mirrors the pool settings used in production.
func DefaultOptions() Options {
	return Options{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		LogLevel:        logger.Warn,
	}
}

// New opens a pooled Postgres connection described by dsn.
func New(dsn string, opts Options) (Service, error) {
	gormLogger := logger.New(
		logrus.StandardLogger(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	return &service{db: db, maxOpen: opts.MaxOpenConns}, nil
}

func (s *service) GetDB() *gorm.DB {
	return s.db
}

// Migrate creates or updates the users and todos tables, including the
// (author_id, title) unique index.
func (s *service) Migrate() error {
	if err := s.db.AutoMigrate(&domain.User{}, &domain.Todo{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Health pings the database and reports how busy the pool is.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		logrus.WithError(err).Error("Database health check failed")
		return map[string]string{"status": "down", "error": err.Error()}
	}
	return poolHealth(sqlDB.Stats(), s.maxOpen)
}

// poolHealth summarizes pool usage. The pool counts as busy once 80% of
// maxOpen connections are in use; maxOpen <= 0 means unlimited.
func poolHealth(st sql.DBStats, maxOpen int) map[string]string {
	stats := map[string]string{
		"status":           "up",
		"open_connections": strconv.Itoa(st.OpenConnections),
		"in_use":           strconv.Itoa(st.InUse),
		"idle":             strconv.Itoa(st.Idle),
		"max_open":         strconv.Itoa(maxOpen),
		"wait_count":       strconv.FormatInt(st.WaitCount, 10),
		"load":             "normal",
	}
	if maxOpen > 0 && st.InUse*5 >= maxOpen*4 {
		stats["load"] = "high"
	}
	return stats
}

func (s *service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	logrus.Info("Closing database connection pool")
	return sqlDB.Close()
}
