package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds exactly the environment variables the core reads at
// startup (spec §6). Unknown environment variables are ignored.
type Settings struct {
	DatabaseURL       string
	CacheURL          string
	LLMAPIKey         string
	LLMModel          string
	LLMTemperature    float64
	LLMMaxTokens      int
	LLMTimeoutSeconds time.Duration
	ServicePort       int
}

// LoadSettings loads a .env file if present (missing is not an error, mirrors
// the teacher's godotenv usage) and reads Settings from the process
// environment, applying defaults for anything unset.
func LoadSettings() (*Settings, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	s := &Settings{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		CacheURL:          os.Getenv("CACHE_URL"),
		LLMAPIKey:         os.Getenv("LLM_API_KEY"),
		LLMModel:          envOr("LLM_MODEL", "gpt-4"),
		LLMTemperature:    0.7,
		LLMMaxTokens:      4096,
		LLMTimeoutSeconds: 30 * time.Second,
		ServicePort:       8080,
	}

	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: LLM_TEMPERATURE: %v", ErrInvalidValue, err)
		}
		s.LLMTemperature = f
	}
	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: LLM_MAX_TOKENS: %v", ErrInvalidValue, err)
		}
		s.LLMMaxTokens = n
	}
	if v := os.Getenv("LLM_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: LLM_TIMEOUT_SECONDS: %v", ErrInvalidValue, err)
		}
		s.LLMTimeoutSeconds = time.Duration(n) * time.Second
	}
	if v := os.Getenv("SERVICE_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: SERVICE_PORT: %v", ErrInvalidValue, err)
		}
		s.ServicePort = n
	}

	return s, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
