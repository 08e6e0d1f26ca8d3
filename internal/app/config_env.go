package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.PrimaryBaseURL == "" {
		cfg.PrimaryBaseURL = os.Getenv("PRIMARY_LLM_BASE_URL")
	}
	if cfg.PrimaryModel == "" {
		cfg.PrimaryModel = os.Getenv("PRIMARY_LLM_MODEL")
	}
	if cfg.PrimaryAPIKey == "" {
		cfg.PrimaryAPIKey = os.Getenv("PRIMARY_LLM_API_KEY")
	}

	if cfg.SecondaryBaseURL == "" {
		cfg.SecondaryBaseURL = os.Getenv("SECONDARY_LLM_BASE_URL")
	}
	if cfg.SecondaryModel == "" {
		cfg.SecondaryModel = os.Getenv("SECONDARY_LLM_MODEL")
	}
	if cfg.SecondaryAPIKey == "" {
		cfg.SecondaryAPIKey = os.Getenv("SECONDARY_LLM_API_KEY")
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = os.Getenv("CACHE_DIR")
	}
	if cfg.VocabPath == "" {
		cfg.VocabPath = os.Getenv("VOCAB_FILE")
	}
	if cfg.ChromePath == "" {
		cfg.ChromePath = os.Getenv("CHROME_PATH")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = os.Getenv("SCRAPER_USER_AGENT")
	}

	if len(cfg.SlowRenderHosts) == 0 {
		if v := strings.TrimSpace(os.Getenv("SLOW_RENDER_HOSTS")); v != "" {
			for _, h := range strings.Split(v, ",") {
				if h = strings.TrimSpace(h); h != "" {
					cfg.SlowRenderHosts = append(cfg.SlowRenderHosts, h)
				}
			}
		}
	}

	if cfg.MaxAttempts == 0 {
		if n, err := strconv.Atoi(os.Getenv("FETCH_MAX_ATTEMPTS")); err == nil && n > 0 {
			cfg.MaxAttempts = n
		}
	}
	if cfg.MinContentChars == 0 {
		if n, err := strconv.Atoi(os.Getenv("FETCH_MIN_CONTENT_CHARS")); err == nil && n > 0 {
			cfg.MinContentChars = n
		}
	}
	if cfg.Concurrency == 0 {
		if n, err := strconv.Atoi(os.Getenv("CONCURRENCY")); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}
	if cfg.FetchBackoff == 0 {
		if d, err := time.ParseDuration(os.Getenv("FETCH_BACKOFF")); err == nil && d > 0 {
			cfg.FetchBackoff = d
		}
	}
	if cfg.PrimaryTimeout == 0 {
		if d, err := time.ParseDuration(os.Getenv("PRIMARY_LLM_TIMEOUT")); err == nil && d > 0 {
			cfg.PrimaryTimeout = d
		}
	}
	if cfg.SecondaryTimeout == 0 {
		if d, err := time.ParseDuration(os.Getenv("SECONDARY_LLM_TIMEOUT")); err == nil && d > 0 {
			cfg.SecondaryTimeout = d
		}
	}

	if !cfg.Verbose {
		switch strings.ToLower(strings.TrimSpace(os.Getenv("VERBOSE"))) {
		case "1", "true", "yes", "on":
			cfg.Verbose = true
		}
	}
}
