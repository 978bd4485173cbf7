package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Criteria policies for the structured ARDS rule. "joint" requires the
// PEEP in effect at the S/F sample's timestamp to qualify; "window" lets
// each criterion qualify anywhere inside the diagnosis window.
const (
	PolicyJoint  = "joint"
	PolicyWindow = "window"
)

type Config struct {
	// Dashboard server
	ServerPort   string
	ServerHost   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Relational ICU database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Multi-center columnar query service
	BigQueryProject string
	BigQueryDataset string

	// Redis (dashboard trajectory cache)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TrajectoryTTL time.Duration

	// Kafka (optional pipeline audit events; disabled when no brokers set)
	KafkaBrokers []string
	KafkaTopic   string

	// Pipeline
	SourceName     string // "icu_db" (postgres) or "multicenter" (bigquery)
	WindowHours    int    // diagnosis window from ICU admission
	CriteriaPolicy string // PolicyJoint or PolicyWindow
	RulesPath      string // YAML radiology rule file; empty = built-in rules
	OutputDir      string // delimited summary artifacts
}

func Load() *Config {
	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ServerHost:   getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "ards"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "ards"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", ""),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		TrajectoryTTL: getDuration("TRAJECTORY_CACHE_TTL", 10*time.Minute),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "ards-pipeline-events"),

		SourceName:     getEnv("SOURCE_NAME", "icu_db"),
		WindowHours:    getIntEnv("ARDS_WINDOW_HOURS", 48),
		CriteriaPolicy: getEnv("ARDS_CRITERIA_POLICY", PolicyJoint),
		RulesPath:      getEnv("ARDS_RULES_PATH", ""),
		OutputDir:      getEnv("OUTPUT_DIR", "out"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
