// backend-go/internal/config/config.go
package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Engine    EngineConfig
	Scheduler SchedulerConfig
	Archive   ArchiveConfig
	Metrics   MetricsConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	SummaryTTLSeconds int
}

// EngineConfig tunes the KPI engine run.
type EngineConfig struct {
	PageSize          int
	WriteBatchSize    int
	UnitCostEstimate  string
	StyleCosts        map[string]string
	JobTimeoutSeconds int
	LockTTLSeconds    int
	Timezone          string
	WorkerCount       int
}

type SchedulerConfig struct {
	Enabled bool
	Cron    string
	Tenants []string
}

type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type MetricsConfig struct {
	Enabled bool
}

type LogConfig struct {
	Level  string
	Format string
}

var (
	once     sync.Once
	instance *Config
)

// Load reads the process configuration once from .env and the environment.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()
		instance = New(viper.GetViper())
	})

	return instance
}

// New builds a Config from the given viper instance without caching it.
func New(v *viper.Viper) *Config {
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:           v.GetBool("CACHE_ENABLED"),
			RedisURL:          v.GetString("REDIS_URL"),
			RedisHost:         v.GetString("REDIS_HOST"),
			RedisPort:         v.GetString("REDIS_PORT"),
			RedisPassword:     v.GetString("REDIS_PASSWORD"),
			RedisDB:           v.GetInt("REDIS_DB"),
			SummaryTTLSeconds: v.GetInt("CACHE_SUMMARY_TTL_SECONDS"),
		},
		Engine: EngineConfig{
			PageSize:          v.GetInt("ENGINE_PAGE_SIZE"),
			WriteBatchSize:    v.GetInt("ENGINE_WRITE_BATCH_SIZE"),
			UnitCostEstimate:  v.GetString("ENGINE_UNIT_COST_ESTIMATE"),
			StyleCosts:        v.GetStringMapString("ENGINE_STYLE_COSTS"),
			JobTimeoutSeconds: v.GetInt("ENGINE_JOB_TIMEOUT_SECONDS"),
			LockTTLSeconds:    v.GetInt("ENGINE_LOCK_TTL_SECONDS"),
			Timezone:          v.GetString("ENGINE_TIMEZONE"),
			WorkerCount:       v.GetInt("ENGINE_WORKER_COUNT"),
		},
		Scheduler: SchedulerConfig{
			Enabled: v.GetBool("SCHEDULER_ENABLED"),
			Cron:    v.GetString("SCHEDULER_CRON"),
			Tenants: v.GetStringSlice("SCHEDULER_TENANTS"),
		},
		Archive: ArchiveConfig{
			Enabled:   v.GetBool("ARCHIVE_ENABLED"),
			Endpoint:  v.GetString("ARCHIVE_ENDPOINT"),
			AccessKey: v.GetString("ARCHIVE_ACCESS_KEY"),
			SecretKey: v.GetString("ARCHIVE_SECRET_KEY"),
			Bucket:    v.GetString("ARCHIVE_BUCKET"),
			Region:    v.GetString("ARCHIVE_REGION"),
			UseSSL:    v.GetBool("ARCHIVE_USE_SSL"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 330)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "controltower")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_SUMMARY_TTL_SECONDS", 86400)
	v.SetDefault("ENGINE_PAGE_SIZE", 1000)
	v.SetDefault("ENGINE_WRITE_BATCH_SIZE", 500)
	v.SetDefault("ENGINE_UNIT_COST_ESTIMATE", "100")
	v.SetDefault("ENGINE_JOB_TIMEOUT_SECONDS", 300)
	v.SetDefault("ENGINE_LOCK_TTL_SECONDS", 600)
	v.SetDefault("ENGINE_TIMEZONE", "UTC")
	v.SetDefault("ENGINE_WORKER_COUNT", 4)
	v.SetDefault("SCHEDULER_ENABLED", false)
	v.SetDefault("SCHEDULER_CRON", "0 2 * * *")
	v.SetDefault("SCHEDULER_TENANTS", []string{})
	v.SetDefault("ARCHIVE_ENABLED", false)
	v.SetDefault("ARCHIVE_ENDPOINT", "")
	v.SetDefault("ARCHIVE_ACCESS_KEY", "")
	v.SetDefault("ARCHIVE_SECRET_KEY", "")
	v.SetDefault("ARCHIVE_BUCKET", "kpi-snapshots")
	v.SetDefault("ARCHIVE_REGION", "us-east-1")
	v.SetDefault("ARCHIVE_USE_SSL", true)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

// JobTimeout returns the overall per-run deadline.
func (e EngineConfig) JobTimeout() time.Duration {
	if e.JobTimeoutSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(e.JobTimeoutSeconds) * time.Second
}

// LockTTL returns how long a run lock is held before it expires on its own.
func (e EngineConfig) LockTTL() time.Duration {
	if e.LockTTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(e.LockTTLSeconds) * time.Second
}

// Location resolves the engine timezone, falling back to UTC.
func (e EngineConfig) Location() *time.Location {
	if e.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
