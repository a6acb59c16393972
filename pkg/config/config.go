package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Solver   SolverConfig
	Queue    QueueConfig
	Engine   EngineConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// SolverConfig governs the external solver binary and its fallback.
type SolverConfig struct {
	BinaryPath        string
	WorkDir           string
	MaxSolvingTime    time.Duration
	OptimizationLevel string
	FallbackEnabled   bool
}

// QueueConfig tunes the scheduling job queue and its retention.
type QueueConfig struct {
	Workers       int
	BufferSize    int
	MaxAttempts   int
	BackoffBase   time.Duration
	PruneAge      time.Duration
	PruneInterval time.Duration
}

// EngineConfig carries constraint engine tuning parameters.
type EngineConfig struct {
	DefaultAvailabilityStart string
	DefaultAvailabilityEnd   string
	MaxSessionsPerTeacherDay int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Solver = SolverConfig{
		BinaryPath:        v.GetString("SOLVER_BINARY_PATH"),
		WorkDir:           v.GetString("SOLVER_WORK_DIR"),
		MaxSolvingTime:    parseDuration(v.GetString("SOLVER_MAX_SOLVING_TIME"), 5*time.Minute),
		OptimizationLevel: v.GetString("SOLVER_OPTIMIZATION_LEVEL"),
		FallbackEnabled:   v.GetBool("SOLVER_FALLBACK_ENABLED"),
	}

	cfg.Queue = QueueConfig{
		Workers:       v.GetInt("QUEUE_WORKERS"),
		BufferSize:    v.GetInt("QUEUE_BUFFER_SIZE"),
		MaxAttempts:   v.GetInt("QUEUE_MAX_ATTEMPTS"),
		BackoffBase:   parseDuration(v.GetString("QUEUE_BACKOFF_BASE"), 5*time.Second),
		PruneAge:      parseDuration(v.GetString("QUEUE_PRUNE_AGE"), 24*time.Hour),
		PruneInterval: parseDuration(v.GetString("QUEUE_PRUNE_INTERVAL"), time.Hour),
	}

	cfg.Engine = EngineConfig{
		DefaultAvailabilityStart: v.GetString("ENGINE_DEFAULT_AVAILABILITY_START"),
		DefaultAvailabilityEnd:   v.GetString("ENGINE_DEFAULT_AVAILABILITY_END"),
		MaxSessionsPerTeacherDay: v.GetInt("ENGINE_MAX_SESSIONS_PER_TEACHER_DAY"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable_engine")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SOLVER_BINARY_PATH", "")
	v.SetDefault("SOLVER_WORK_DIR", "")
	v.SetDefault("SOLVER_MAX_SOLVING_TIME", "5m")
	v.SetDefault("SOLVER_OPTIMIZATION_LEVEL", "balanced")
	v.SetDefault("SOLVER_FALLBACK_ENABLED", true)

	v.SetDefault("QUEUE_WORKERS", 2)
	v.SetDefault("QUEUE_BUFFER_SIZE", 16)
	v.SetDefault("QUEUE_MAX_ATTEMPTS", 3)
	v.SetDefault("QUEUE_BACKOFF_BASE", "5s")
	v.SetDefault("QUEUE_PRUNE_AGE", "24h")
	v.SetDefault("QUEUE_PRUNE_INTERVAL", "1h")

	v.SetDefault("ENGINE_DEFAULT_AVAILABILITY_START", "08:00")
	v.SetDefault("ENGINE_DEFAULT_AVAILABILITY_END", "18:00")
	v.SetDefault("ENGINE_MAX_SESSIONS_PER_TEACHER_DAY", 8)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
