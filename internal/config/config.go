// Package config reads process settings from the environment. A .env file,
// when present, fills in variables that are not already set.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterhellberg/duration"
	"github.com/pkg/errors"
)

const (
	defaultAddr            = ":8080"
	defaultDBPath          = "course-quiz.db"
	defaultIssuer          = "course-quiz"
	defaultShutdownTimeout = 10 * time.Second
	defaultTokenTTL        = 24 * time.Hour
	defaultServerURL       = "http://127.0.0.1:8080"
	defaultPlayerTimeout   = 5 * time.Second
)

type Server struct {
	Addr   string
	DBPath string
	// ProgressDatabaseURL moves progress records to Postgres when set.
	ProgressDatabaseURL string
	JWTSecret           string
	JWTIssuer           string
	TokenTTL            time.Duration
	LessonsDir          string
	ShutdownTimeout     time.Duration
}

type Player struct {
	ServerURL string
	Learner   string
	Token     string
	Timeout   time.Duration
	// CachePath is the file that keeps last known progress; empty keeps it in memory.
	CachePath string
}

// LoadDotEnv loads path into the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return errors.Wrapf(err, "load %s", path)
}

func LoadServer() (Server, error) {
	cfg := Server{
		Addr:                getEnv("ADDR", defaultAddr),
		DBPath:              getEnv("DB_PATH", defaultDBPath),
		ProgressDatabaseURL: getEnv("PROGRESS_DATABASE_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTIssuer:           getEnv("JWT_ISSUER", defaultIssuer),
		LessonsDir:          getEnv("LESSONS_DIR", ""),
	}

	var err error
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return Server{}, err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", defaultTokenTTL); err != nil {
		return Server{}, err
	}
	if cfg.JWTSecret == "" {
		return Server{}, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

func LoadPlayer() (Player, error) {
	cfg := Player{
		ServerURL: getEnv("QUIZ_SERVER_URL", defaultServerURL),
		Learner:   getEnv("QUIZ_LEARNER", ""),
		Token:     getEnv("QUIZ_TOKEN", ""),
		CachePath: getEnv("QUIZ_CACHE_PATH", ""),
	}

	var err error
	if cfg.Timeout, err = getDuration("QUIZ_HTTP_TIMEOUT", defaultPlayerTimeout); err != nil {
		return Player{}, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return value, nil
}

// ParseDuration accepts Go durations ("90s") and ISO 8601 durations
// ("PT1M30S").
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if value, err := time.ParseDuration(raw); err == nil {
		if value <= 0 {
			return 0, errors.Errorf("duration %q must be positive", raw)
		}
		return value, nil
	}
	value, err := duration.Parse(raw)
	if err != nil {
		return 0, errors.Errorf("duration %q is neither a Go nor an ISO 8601 duration", raw)
	}
	if value <= 0 {
		return 0, errors.Errorf("duration %q must be positive", raw)
	}
	return value, nil
}
