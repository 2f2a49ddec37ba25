// Package config loads the process-level settings microtrader needs to
// start: where to listen, where the order sink lives, and how to
// authenticate callers. Values come from built-in defaults, then a YAML
// file, then environment variables, each layer overriding the one before,
// matching the teacher's layered config/main.go split.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds everything main needs to wire the process together.
type Config struct {
	ListenAddr   string `yaml:"listen_addr"`
	PostgresDSN  string `yaml:"postgres_dsn"`
	JWTSecret    string `yaml:"jwt_secret"`
	CacheLimit   int    `yaml:"cache_limit"`
	RateLimitRPS int    `yaml:"rate_limit_rps"`
	RateBurst    int    `yaml:"rate_limit_burst"`
}

// Default returns the settings microtrader falls back to when neither a
// config file nor an environment variable supplies a value.
func Default() Config {
	return Config{
		ListenAddr:   ":8080",
		PostgresDSN:  "",
		JWTSecret:    "",
		CacheLimit:   64,
		RateLimitRPS: 10,
		RateBurst:    20,
	}
}

// Load reads a YAML config file at path, overlays it onto Default, then
// overlays any matching MICROTRADER_* environment variable on top. An empty
// path skips the file step, for callers that only rely on environment
// variables; a non-empty path that can't be read is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("MICROTRADER_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("MICROTRADER_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("MICROTRADER_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("MICROTRADER_CACHE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CacheLimit = n
		}
	}
	if v := os.Getenv("MICROTRADER_RATE_LIMIT_RPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitRPS = n
		}
	}
	if v := os.Getenv("MICROTRADER_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateBurst = n
		}
	}

	return &cfg, nil
}
