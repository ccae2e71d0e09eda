package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// MongoDB Configuration
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration

	// Disloc Configuration
	DislocBinary   string
	OutputRoot     string
	URLBase        string
	ServiceTimeout time.Duration
	BatchTimeout   time.Duration
	ExposeStderr   bool
	ExclusiveDirs  bool

	// Line-of-sight defaults
	DefaultElevation      float64
	DefaultAzimuth        float64
	DefaultRadarFrequency float64

	// Worker Pool Configuration
	WorkerPoolSize int
	JobQueueSize   int

	// Logging Configuration
	LogLevel  string
	LogFormat string

	// Feed Configuration
	FeedSummaryURL   string
	FeedMinMagnitude float64
	FeedTimeout      time.Duration
	FeedConcurrency  int
	MomentTensorJobs bool

	// Scheduler Configuration
	SchedulerEnabled  bool
	SchedulerSchedule string
	SchedulerLockTTL  time.Duration
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		// MongoDB
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017/disloc?authSource=admin"),
		MongoDatabase: getEnv("MONGO_DATABASE", "disloc"),
		MongoTimeout:  getDurationEnv("MONGO_TIMEOUT_SEC", 10) * time.Second,

		// Disloc
		DislocBinary:   getEnv("DISLOC_BINARY", "./disloc"),
		OutputRoot:     getEnv("OUTPUT_ROOT", "./static"),
		URLBase:        getEnv("URL_BASE", "http://localhost:8000/static"),
		ServiceTimeout: getDurationEnv("SERVICE_TIMEOUT_SEC", 15) * time.Second,
		BatchTimeout:   getDurationEnv("BATCH_TIMEOUT_SEC", 30) * time.Second,
		ExposeStderr:   getBoolEnv("EXPOSE_STDERR", false),
		ExclusiveDirs:  getBoolEnv("EXCLUSIVE_WORKSPACES", false),

		// Line-of-sight
		DefaultElevation:      getFloatEnv("DEFAULT_ELEVATION", 60),
		DefaultAzimuth:        getFloatEnv("DEFAULT_AZIMUTH", 0),
		DefaultRadarFrequency: getFloatEnv("DEFAULT_RADAR_FREQUENCY", 1.26),

		// Worker Pool
		WorkerPoolSize: getIntEnv("WORKER_POOL_SIZE", 4),
		JobQueueSize:   getIntEnv("JOB_QUEUE_SIZE", 100),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Feed
		FeedSummaryURL:   getEnv("FEED_SUMMARY_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/significant_week.geojson"),
		FeedMinMagnitude: getFloatEnv("FEED_MIN_MAGNITUDE", 5.0),
		FeedTimeout:      getDurationEnv("FEED_TIMEOUT_SEC", 30) * time.Second,
		FeedConcurrency:  getIntEnv("FEED_CONCURRENCY", 4),
		MomentTensorJobs: getBoolEnv("MOMENT_TENSOR_JOBS", true),

		// Scheduler
		SchedulerEnabled:  getBoolEnv("SCHEDULER_ENABLED", true),
		SchedulerSchedule: getEnv("FEED_SCHEDULE", "*/15 * * * *"),
		SchedulerLockTTL:  getDurationEnv("SCHEDULER_LOCK_TTL_SEC", 300) * time.Second,
	}
}

// Validate checks the values that cannot be defaulted at use sites
func (c *Config) Validate() error {
	if c.DislocBinary == "" {
		return errors.New("DISLOC_BINARY is required")
	}
	if c.OutputRoot == "" {
		return errors.New("OUTPUT_ROOT is required")
	}
	if c.ServiceTimeout <= 0 || c.BatchTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive (service=%s, batch=%s)", c.ServiceTimeout, c.BatchTimeout)
	}
	if c.DefaultRadarFrequency <= 0 {
		return fmt.Errorf("radar frequency must be positive, got %v", c.DefaultRadarFrequency)
	}
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1, got %d", c.WorkerPoolSize)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
		log.Printf("Warning: Invalid float value for %s, using default %v", key, defaultValue)
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal)
		}
		log.Printf("Warning: Invalid duration value for %s, using default %d", key, defaultValue)
	}
	return time.Duration(defaultValue)
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
	}
	return defaultValue
}
