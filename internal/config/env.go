// Package config provides centralized configuration management.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// Env holds all Tutoroo environment variables.
type Env struct {
	// APIBaseURL is the study service base URL (TUTOROO_API_URL)
	APIBaseURL string

	// Token is the bearer token for the study service (TUTOROO_TOKEN)
	Token string

	// PlanID is the default plan to operate on (TUTOROO_PLAN_ID)
	PlanID int64

	// Persona is the default tutor persona (TUTOROO_PERSONA)
	Persona string

	// SpeakerOn requests TTS audio on AI replies (TUTOROO_TTS)
	SpeakerOn bool

	// Debug enables debug logging (TUTOROO_DEBUG)
	Debug bool
}

var (
	env     *Env
	envOnce sync.Once
)

// Load returns the singleton environment configuration.
// Thread-safe, loads once on first call. A ~/.tutoroo/.env file is read
// first so the shell environment can still override it.
func Load() *Env {
	envOnce.Do(func() {
		godotenv.Load(GetPaths().EnvFile)

		planID, _ := strconv.ParseInt(os.Getenv("TUTOROO_PLAN_ID"), 10, 64)
		env = &Env{
			APIBaseURL: getEnvDefault("TUTOROO_API_URL", "http://localhost:8080"),
			Token:      os.Getenv("TUTOROO_TOKEN"),
			PlanID:     planID,
			Persona:    getEnvDefault("TUTOROO_PERSONA", "kangaroo"),
			SpeakerOn:  os.Getenv("TUTOROO_TTS") == "1",
			Debug:      os.Getenv("TUTOROO_DEBUG") == "1",
		}
	})
	return env
}

// Reset resets the cached environment (for testing).
func Reset() {
	envOnce = sync.Once{}
	env = nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Paths holds standard Tutoroo directory paths.
type Paths struct {
	// Home is the client home directory (~/.tutoroo)
	Home string

	// Data is the data directory (~/.tutoroo/data)
	Data string

	// Downloads is where review PDFs land (~/.tutoroo/downloads)
	Downloads string

	// EnvFile is the .env file path (~/.tutoroo/.env)
	EnvFile string

	// LogFile is the session log path (~/.tutoroo/session.log)
	LogFile string
}

var (
	paths     *Paths
	pathsOnce sync.Once
)

// GetPaths returns the singleton paths configuration.
func GetPaths() *Paths {
	pathsOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		root := filepath.Join(home, ".tutoroo")

		paths = &Paths{
			Home:      root,
			Data:      filepath.Join(root, "data"),
			Downloads: filepath.Join(root, "downloads"),
			EnvFile:   filepath.Join(root, ".env"),
			LogFile:   filepath.Join(root, "session.log"),
		}
	})
	return paths
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
