package db

import (
	"fmt"
	"time"

	"github.com/faunawatch/backend/internal/config"
	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/utils"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM handle together with migration and hypertable
// management for the welfare store.
type Database struct {
	*gorm.DB
	logger *utils.Logger
	config *config.DatabaseConfig
}

// NewDatabase opens the Postgres connection, tunes the pool and verifies the
// server is reachable before returning.
func NewDatabase(cfg *config.DatabaseConfig, log *utils.Logger) (*Database, error) {
	dbLogger := log.Named("database")

	gormLogger := logger.New(
		&logAdapter{logger: dbLogger},
		logger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dbLogger.Info("Connecting to database",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("dbname", cfg.DBName),
		zap.String("user", cfg.User),
	)

	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger:                 gormLogger,
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		// Duplicate key violations must surface as gorm.ErrDuplicatedKey so
		// the repositories can report ErrConflict.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	database := &Database{
		DB:     db,
		logger: dbLogger,
		config: cfg,
	}
	if err := database.VerifyConnection(); err != nil {
		return nil, err
	}

	return database, nil
}

// VerifyConnection pings the server through the pooled connection.
func (db *Database) VerifyConnection() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB instance: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	db.logger.Info("Successfully connected to database")
	return nil
}

// AutoMigrate creates or updates the welfare tables. TimescaleDB is optional:
// when the extension cannot be enabled the event table stays a plain table
// and only a warning is logged.
func (db *Database) AutoMigrate() error {
	db.logger.Info("Running auto migrations")

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;").Error; err != nil {
		db.logger.Warn("Failed to create TimescaleDB extension, time-series optimization disabled", zap.Error(err))
	}

	if err := db.DB.AutoMigrate(
		&models.Animal{},
		&models.BehaviorEvent{},
		&models.Alert{},
		&models.WelfareReport{},
	); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}

	if err := db.CreateHypertables(); err != nil {
		db.logger.Warn("Failed to create hypertables", zap.Error(err))
	}

	return nil
}

// CreateHypertables converts behavior_events into a hypertable partitioned on
// the observation timestamp. The conversion is skipped if it already happened.
func (db *Database) CreateHypertables() error {
	var extensionExists bool
	if err := db.DB.Raw("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'timescaledb');").Scan(&extensionExists).Error; err != nil {
		return fmt.Errorf("failed to check TimescaleDB extension: %w", err)
	}
	if !extensionExists {
		return fmt.Errorf("TimescaleDB extension not installed")
	}

	var hypertableExists bool
	if err := db.DB.Raw("SELECT EXISTS(SELECT 1 FROM timescaledb_information.hypertables WHERE hypertable_name = ?);", "behavior_events").Scan(&hypertableExists).Error; err != nil {
		return fmt.Errorf("failed to check if hypertable exists for behavior_events: %w", err)
	}

	if !hypertableExists {
		if err := db.DB.Exec("SELECT create_hypertable('behavior_events', 'ts');").Error; err != nil {
			return fmt.Errorf("failed to create hypertable for behavior_events: %w", err)
		}
		db.logger.Info("Created hypertable for behavior_events")
	}

	return nil
}

// Close releases the underlying connection pool.
func (db *Database) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	db.logger.Info("Database connection closed")
	return nil
}

// logAdapter routes GORM's printf-style output through zap.
type logAdapter struct {
	logger *utils.Logger
}

func (l *logAdapter) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}
