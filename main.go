package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Afefmejri25/crm/repository"
	"github.com/Afefmejri25/crm/services"
	"github.com/Afefmejri25/crm/storage"
	"github.com/Afefmejri25/crm/telemetry"
	ws "github.com/Afefmejri25/crm/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// Setup structured logging with JSON format
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	config := services.LoadConfig()
	if config.JWT.Secret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	if config.Database.URL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	shutdownTracing := telemetry.Setup("crm-server")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Error("Failed to flush traces", "error", err)
		}
	}()

	// Initialize database connection
	db, err := openGORM(config.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	repo := repository.NewGORMRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		slog.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to database")

	// Reporting queries go straight through pgx
	pool, err := pgxpool.New(context.Background(), config.Database.URL)
	if err != nil {
		slog.Error("Failed to create analytics pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if config.Database.Seed {
		if err := services.NewDatabaseSeeder(repo).SeedDatabase(context.Background()); err != nil {
			slog.Error("Failed to seed database", "error", err)
		}
	}

	objects, err := storage.NewFileStorage(config.Storage.Dir, config.Server.PublicURL)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	hub := ws.NewHub()
	go hub.Run()

	server := services.NewServer(config, services.Deps{
		Repo:      repo,
		Analytics: repository.NewAnalyticsStore(pool),
		Objects:   objects,
		Hub:       hub,
	})
	server.Start()
}

func openGORM(cfg services.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}
