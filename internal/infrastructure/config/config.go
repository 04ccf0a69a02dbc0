// internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"train-schedule-service/pkg/utils"
)

const (
	defaultWriteTimeout = 120 * time.Second
	writeTimeoutMargin  = 30 * time.Second // room for the database write after the last fetch
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion       string
	LogLevel         string
	MetricsNamespace string

	// Server
	Port               string `validate:"required,numeric"`
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CORSAllowedOrigins []string

	// Database
	DBConnectionString string `validate:"required"`
	DBInsertBatchSize  int    `validate:"gte=1"`

	// Stations and schedule
	TrainStations    []string `validate:"min=1,dive,required"`
	TimerCron        string   `validate:"required"`
	RunOnStartup     bool
	FetchConcurrency int    `validate:"gte=1,lte=32"`
	Timezone         string `validate:"required"`

	// iRail
	IRailBaseURL   string `validate:"required,url"`
	IRailLang      string `validate:"oneof=en fr nl de"`
	IRailTimeout   time.Duration
	IRailUserAgent string

	// MongoDB run log, disabled when MongoURI is empty
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string
}

// fileConfig is the optional YAML overlay read from CONFIG_FILE
type fileConfig struct {
	Stations []string `yaml:"stations" validate:"omitempty,dive,required"`
	Timer    struct {
		Cron         string `yaml:"cron"`
		RunOnStartup *bool  `yaml:"run_on_startup"`
	} `yaml:"timer"`
	IRail struct {
		BaseURL string `yaml:"base_url" validate:"omitempty,url"`
		Lang    string `yaml:"lang" validate:"omitempty,oneof=en fr nl de"`
		Timeout string `yaml:"timeout"`
	} `yaml:"irail"`
	FetchConcurrency int `yaml:"fetch_concurrency" validate:"omitempty,gte=1,lte=32"`
}

// LoadConfig loads configuration from environment variables.
// A YAML file named by CONFIG_FILE, if any, provides values that the environment may still override.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	// Set defaults and override with env vars
	config := &Config{
		AppVersion:         getEnv("APP_VERSION", "1.0.0"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MetricsNamespace:   getEnv("METRICS_NAMESPACE", "train_schedules"),
		Port:               getEnv("PORT", "8080"),
		ReadTimeout:        time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		DBConnectionString: getEnv("DB_CONNECTION_STRING", ""),
		DBInsertBatchSize:  getEnvAsInt("DB_INSERT_BATCH_SIZE", 100),

		TrainStations:    []string{"Brussels-Central"},
		TimerCron:        "0 0 * * * *",
		FetchConcurrency: 4,
		Timezone:         getEnv("TIMEZONE", "Europe/Brussels"),

		IRailBaseURL:   "https://api.irail.be",
		IRailLang:      "en",
		IRailTimeout:   30 * time.Second,
		IRailUserAgent: getEnv("IRAIL_USER_AGENT", "train-schedule-service/1.0"),

		MongoURI:      getEnv("MONGODB_DSN", ""),
		MongoDB:       getEnv("MONGO_DB", "train_schedules"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, err
		}
	}

	config.TrainStations = getEnvAsList("TRAIN_STATIONS", config.TrainStations)
	config.TimerCron = getEnv("UPDATE_SCHEDULES_TIMER_CRON", config.TimerCron)
	config.RunOnStartup = getEnvAsBool("RUN_ON_STARTUP", config.RunOnStartup)
	config.FetchConcurrency = getEnvAsInt("FETCH_CONCURRENCY", config.FetchConcurrency)
	config.IRailBaseURL = strings.TrimRight(getEnv("IRAIL_BASE_URL", config.IRailBaseURL), "/")
	config.IRailLang = getEnv("IRAIL_LANG", config.IRailLang)
	config.IRailTimeout = getEnvAsDuration("IRAIL_TIMEOUT", config.IRailTimeout)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(config.Timezone); err != nil {
		return nil, fmt.Errorf("invalid configuration: unknown timezone %q: %w", config.Timezone, err)
	}

	// The on-demand response is written only after the run, so the default
	// must outlast a run over the default stations where every fetch times out.
	config.WriteTimeout = defaultWriteTimeout
	if budget := config.RunBudget(len(config.TrainStations)) + writeTimeoutMargin; budget > config.WriteTimeout {
		config.WriteTimeout = budget
	}
	if seconds := getEnvAsInt("WRITE_TIMEOUT", 0); seconds > 0 {
		config.WriteTimeout = time.Duration(seconds) * time.Second
	}

	return config, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := validator.New().Struct(fc); err != nil {
		return fmt.Errorf("invalid config file: %w", err)
	}

	if stations := utils.CleanStations(fc.Stations); len(stations) > 0 {
		c.TrainStations = stations
	}
	if fc.Timer.Cron != "" {
		c.TimerCron = fc.Timer.Cron
	}
	if fc.Timer.RunOnStartup != nil {
		c.RunOnStartup = *fc.Timer.RunOnStartup
	}
	if fc.IRail.BaseURL != "" {
		c.IRailBaseURL = fc.IRail.BaseURL
	}
	if fc.IRail.Lang != "" {
		c.IRailLang = fc.IRail.Lang
	}
	if fc.IRail.Timeout != "" {
		timeout, err := time.ParseDuration(fc.IRail.Timeout)
		if err != nil {
			return fmt.Errorf("invalid irail.timeout: %w", err)
		}
		c.IRailTimeout = timeout
	}
	if fc.FetchConcurrency > 0 {
		c.FetchConcurrency = fc.FetchConcurrency
	}
	return nil
}

// RunBudget is the longest a refresh of n stations can spend fetching:
// both directions of a station are fetched in turn, and stations run
// FetchConcurrency at a time.
func (c *Config) RunBudget(n int) time.Duration {
	concurrency := c.FetchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	waves := (n + concurrency - 1) / concurrency
	return time.Duration(waves) * 2 * c.IRailTimeout
}

// Location resolves the configured timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("45s") or plain seconds ("45")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	list := utils.ParseStationList(getEnv(key, ""))
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
