package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Welfare  WelfareConfig  `mapstructure:"welfare"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
	Environment  string `mapstructure:"environment"`
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers        string `mapstructure:"brokers"`
	ConsumerGroup  string `mapstructure:"consumer_group"`
	SecurityEnable bool   `mapstructure:"security_enable"`
	SecurityUser   string `mapstructure:"security_user"`
	SecurityPass   string `mapstructure:"security_pass"`
}

// WelfareConfig holds the behavior engine tunables. Defaults match the
// facility's camera setup (30fps) and the vision pipeline's 5-minute cadence.
type WelfareConfig struct {
	// Timezone is the facility-local zone all day boundaries are computed in.
	Timezone string `mapstructure:"timezone"`
	// SamplingPeriodSeconds is the expected cadence of the upstream pipeline.
	// Occurrence percentages are computed against this, so pipeline gaps drag
	// the ratio down instead of being excluded.
	SamplingPeriodSeconds int `mapstructure:"sampling_period_seconds"`
	// MinAnalysisWindowSeconds is the minimum elapsed time since local
	// midnight before deviation ratios are considered meaningful.
	MinAnalysisWindowSeconds int `mapstructure:"min_analysis_window_seconds"`
	// TolerancePct is the default deviation tolerance in percentage points.
	TolerancePct float64 `mapstructure:"tolerance_pct"`
	// SampleRate is the expected position samples per second per camera.
	SampleRate int `mapstructure:"sample_rate"`
	// InactivityThreshold is the max per-frame displacement (camera units)
	// still considered "not moving". Tune to the camera's pixel scale.
	InactivityThreshold float64 `mapstructure:"inactivity_threshold"`
	// MinCycleSeconds/MaxCycleSeconds bound the expected pacing cycle length.
	MinCycleSeconds float64 `mapstructure:"min_cycle_seconds"`
	MaxCycleSeconds float64 `mapstructure:"max_cycle_seconds"`
	// ACFThreshold is the minimum autocorrelation peak accepted as periodic.
	ACFThreshold float64 `mapstructure:"acf_threshold"`
	// MaxMissingFraction is the max fraction of sentinel samples tolerated by
	// the periodicity detector.
	MaxMissingFraction float64 `mapstructure:"max_missing_fraction"`
	// RegistryEvictionMinutes is how long an (animal, camera) classifier may
	// go unobserved before its window is discarded.
	RegistryEvictionMinutes int `mapstructure:"registry_eviction_minutes"`
	// SchedulerIntervalMinutes is the cadence of the "recompute today" sweep.
	SchedulerIntervalMinutes int `mapstructure:"scheduler_interval_minutes"`
	// BackfillDays is how many past days of reports the scheduler regenerates
	// on startup.
	BackfillDays int `mapstructure:"backfill_days"`

	Baselines BaselineSet `mapstructure:"baselines"`
}

// DefaultWelfareConfig returns the welfare engine defaults, matching the
// values setDefaults seeds into viper. Used by tests and the simulator.
func DefaultWelfareConfig() WelfareConfig {
	return WelfareConfig{
		Timezone:                 "America/Santiago",
		SamplingPeriodSeconds:    300,
		MinAnalysisWindowSeconds: 3600,
		TolerancePct:             5.0,
		SampleRate:               30,
		InactivityThreshold:      1.5,
		MinCycleSeconds:          3.0,
		MaxCycleSeconds:          7.0,
		ACFThreshold:             0.15,
		MaxMissingFraction:       0.5,
		RegistryEvictionMinutes:  10,
		SchedulerIntervalMinutes: 60,
		BackfillDays:             0,
		Baselines: BaselineSet{
			Default: map[string]float64{
				"Foraging":   20.0,
				"Resting":    40.0,
				"Locomotion": 25.0,
				"Social":     8.0,
				"Play":       5.0,
				"Stereotypy": 2.0,
			},
		},
	}
}

// BaselineSet maps behaviors to their expected share of a day, as percentages
// 0-100. Per-animal overrides win over the shared default.
type BaselineSet struct {
	Default map[string]float64            `mapstructure:"default"`
	Animals map[string]map[string]float64 `mapstructure:"animals"`
}

// For returns the baseline map for an animal, falling back to the default.
func (b *BaselineSet) For(animalID string) map[string]float64 {
	if m, ok := b.Animals[animalID]; ok {
		return m
	}
	return b.Default
}

// Lookup returns the expected percentage for (animal, behavior). The second
// return reports whether a baseline entry actually exists; callers treat a
// missing entry as a configuration problem, not a silent zero.
func (b *BaselineSet) Lookup(animalID, behavior string) (float64, bool) {
	v, ok := b.For(animalID)[behavior]
	return v, ok
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
	Production bool   `mapstructure:"production"`
}

// LoadConfig loads the application configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	// Set default configuration file path if not provided
	if configPath == "" {
		configPath = "./config"
	}

	// Initialize Viper
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	// Set environment variable prefix for overrides
	v.SetEnvPrefix("FAUNAWATCH")

	// Set environment variable separator for nested structs
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read configuration from file
	if err := v.ReadInConfig(); err != nil {
		// If the configuration file is not found, that's fine, we'll use defaults and env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	// Set up environment variable binding
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Unmarshal configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 15)  // seconds
	v.SetDefault("server.write_timeout", 15) // seconds
	v.SetDefault("server.idle_timeout", 60)  // seconds
	v.SetDefault("server.environment", "development")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "faunawatch")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")

	// Kafka defaults
	v.SetDefault("kafka.brokers", "kafka:9092")
	v.SetDefault("kafka.consumer_group", "faunawatch")
	v.SetDefault("kafka.security_enable", false)

	// Welfare engine defaults
	v.SetDefault("welfare.timezone", "America/Santiago")
	v.SetDefault("welfare.sampling_period_seconds", 300)
	v.SetDefault("welfare.min_analysis_window_seconds", 3600)
	v.SetDefault("welfare.tolerance_pct", 5.0)
	v.SetDefault("welfare.sample_rate", 30)
	v.SetDefault("welfare.inactivity_threshold", 1.5)
	v.SetDefault("welfare.min_cycle_seconds", 3.0)
	v.SetDefault("welfare.max_cycle_seconds", 7.0)
	v.SetDefault("welfare.acf_threshold", 0.15)
	v.SetDefault("welfare.max_missing_fraction", 0.5)
	v.SetDefault("welfare.registry_eviction_minutes", 10)
	v.SetDefault("welfare.scheduler_interval_minutes", 60)
	v.SetDefault("welfare.backfill_days", 0)
	v.SetDefault("welfare.baselines.default", map[string]float64{
		"Foraging":   20.0,
		"Resting":    40.0,
		"Locomotion": 25.0,
		"Social":     8.0,
		"Play":       5.0,
		"Stereotypy": 2.0,
	})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")
	v.SetDefault("log.production", false)
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	// Every day boundary the engine computes depends on the facility timezone.
	if _, err := time.LoadLocation(config.Welfare.Timezone); err != nil {
		return fmt.Errorf("invalid welfare timezone %q: %w", config.Welfare.Timezone, err)
	}

	if config.Welfare.SamplingPeriodSeconds <= 0 {
		return fmt.Errorf("welfare sampling period must be positive, got %d", config.Welfare.SamplingPeriodSeconds)
	}

	if config.Welfare.SampleRate <= 0 {
		return fmt.Errorf("welfare sample rate must be positive, got %d", config.Welfare.SampleRate)
	}

	if config.Welfare.MinCycleSeconds >= config.Welfare.MaxCycleSeconds {
		return fmt.Errorf("welfare cycle window is empty: min %.1fs >= max %.1fs",
			config.Welfare.MinCycleSeconds, config.Welfare.MaxCycleSeconds)
	}

	// Validate database password is set
	if config.Database.Password == "" {
		// Check if it's available in environment variable
		dbPassword := os.Getenv("FAUNAWATCH_DATABASE_PASSWORD")
		if dbPassword == "" {
			if config.Server.Environment != "development" {
				return fmt.Errorf("database password is required in non-development environments")
			}
		} else {
			config.Database.Password = dbPassword
		}
	}

	return nil
}

// Location resolves the facility-local timezone.
func (c *WelfareConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.TimeZone)
}

// IsProduction returns true if the environment is production
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if the environment is development
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsTest returns true if the environment is test
func (c *ServerConfig) IsTest() bool {
	return c.Environment == "test"
}
