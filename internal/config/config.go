package config

import (
	"time"

	"github.com/soaringjerry/hireflow/internal/utils"
)

// Config is read once at startup. Empty RedisAddr or AMQPURL disables the
// corresponding integration.
type Config struct {
	Addr               string
	SQLitePath         string
	MigrationsDir      string
	LegacySnapshotPath string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	DraftTTL           time.Duration
	AMQPURL            string
	ResumeTokenSecret  string
	ResumeTokenTTL     time.Duration
	LogLevel           string
	Commit             string
	BuildTime          string
	StaticDir          string
}

// DefaultResumeSecret signs resume tokens when HIREFLOW_RESUME_SECRET is unset.
// Anyone who knows it can mint tokens, so it is only fit for local runs.
const DefaultResumeSecret = "dev-resume-secret-change-me"

// InsecureResumeSecret reports whether resume tokens are signed with the
// built-in secret.
func (c *Config) InsecureResumeSecret() bool {
	return c.ResumeTokenSecret == DefaultResumeSecret
}

func Load() *Config {
	return &Config{
		Addr:               utils.SafeEnv("HIREFLOW_ADDR", ":8080"),
		SQLitePath:         utils.SafeEnv("HIREFLOW_SQLITE_PATH", "./data/hireflow.db"),
		MigrationsDir:      utils.SafeEnv("HIREFLOW_MIGRATIONS_DIR", ""),
		LegacySnapshotPath: utils.SafeEnv("HIREFLOW_LEGACY_SNAPSHOT", ""),
		RedisAddr:          utils.SafeEnv("REDIS_ADDR", ""),
		RedisPassword:      utils.SafeEnv("REDIS_PASSWORD", ""),
		RedisDB:            utils.EnvInt("REDIS_DB", 0),
		DraftTTL:           utils.EnvDuration("HIREFLOW_DRAFT_TTL", 7*24*time.Hour),
		AMQPURL:            utils.SafeEnv("AMQP_URL", ""),
		ResumeTokenSecret:  utils.SafeEnv("HIREFLOW_RESUME_SECRET", DefaultResumeSecret),
		ResumeTokenTTL:     utils.EnvDuration("HIREFLOW_RESUME_TTL", 72*time.Hour),
		LogLevel:           utils.SafeEnv("LOG_LEVEL", "info"),
		Commit:             utils.SafeEnv("HIREFLOW_COMMIT", ""),
		BuildTime:          utils.SafeEnv("HIREFLOW_BUILD_TIME", ""),
		StaticDir:          utils.SafeEnv("HIREFLOW_STATIC_DIR", ""),
	}
}
