// Package testutil provides shared helpers for package tests: an in-memory
// database, a development logger and a pre-wired gin router.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/faunawatch/backend/internal/config"
	"github.com/faunawatch/backend/internal/db"
	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestSetup bundles the pieces most tests need.
type TestSetup struct {
	Router   *gin.Engine
	DB       *db.Database
	Logger   *utils.Logger
	Config   *config.Config
	Cleanup  func()
	Requires *require.Assertions
}

// NewTestSetup creates a test environment backed by an in-memory SQLite
// database. Each setup gets its own database so tests cannot leak rows into
// each other.
func NewTestSetup(t require.TestingT) *TestSetup {
	gin.SetMode(gin.TestMode)

	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.OutputPaths = []string{"stdout"}
	zapLogger, err := zapConfig.Build()
	if err != nil {
		require.FailNow(t, "Failed to create zap logger", err)
	}

	log := &utils.Logger{Logger: zapLogger}

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "UTC",
		},
		Welfare: config.DefaultWelfareConfig(),
		Log: config.LogConfig{
			Level:  "info",
			Format: "json",
		},
	}

	// A named in-memory database with a shared cache keeps the schema
	// visible across pooled connections without sharing it between tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		require.FailNow(t, "Failed to create in-memory database", err)
	}

	database := &db.Database{DB: gormDB}

	router := gin.New()
	router.Use(gin.Recovery())

	cleanup := func() {
		zapLogger.Sync()
		sqlDB, _ := gormDB.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}

	return &TestSetup{
		Router:   router,
		DB:       database,
		Logger:   log,
		Config:   cfg,
		Cleanup:  cleanup,
		Requires: require.New(t),
	}
}

// MigrateModels creates the tables for the given models.
func (ts *TestSetup) MigrateModels(models ...interface{}) {
	err := ts.DB.DB.AutoMigrate(models...)
	ts.Requires.NoError(err, "Failed to migrate database")
}

// MigrateAll creates every table the application uses.
func (ts *TestSetup) MigrateAll() {
	ts.MigrateModels(
		&models.Animal{},
		&models.BehaviorEvent{},
		&models.Alert{},
		&models.WelfareReport{},
	)
}

// SeedAnimal inserts an active animal and returns it.
func (ts *TestSetup) SeedAnimal(animalID, name, species string) *models.Animal {
	animal := &models.Animal{
		AnimalID: animalID,
		Name:     name,
		Species:  species,
		Active:   true,
	}
	err := ts.DB.DB.Create(animal).Error
	ts.Requires.NoError(err, "Failed to seed animal %s", animalID)
	return animal
}

// ExecuteRequest runs a request against the test router and returns the
// recorded response.
func (ts *TestSetup) ExecuteRequest(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	var err error

	if body != nil {
		reqBody, err = json.Marshal(body)
		ts.Requires.NoError(err, "Failed to marshal request body")
	}

	req, err := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	ts.Requires.NoError(err, "Failed to create request")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp := httptest.NewRecorder()
	ts.Router.ServeHTTP(resp, req)
	return resp
}

// ParseResponse unmarshals the JSON response body into target.
func (ts *TestSetup) ParseResponse(response *httptest.ResponseRecorder, target interface{}) {
	err := json.Unmarshal(response.Body.Bytes(), target)
	ts.Requires.NoError(err, "Failed to parse response body: %s", response.Body.String())
}
