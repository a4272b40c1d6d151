// Package config reads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Artiu/league-voice-backend/ratelimit"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Release struct {
	Version   string
	URL       string
	Notes     string
	Signature string
	Dir       string
}

type Config struct {
	Port           string
	LogLevel       string
	RiotAPIKey     string
	RiotBaseURL    string
	AllowedOrigins []string
	TrustProxy     bool

	AuthLimit     ratelimit.Config
	MatchLimit    ratelimit.Config
	MessageRate   float64
	MessageBurst  int
	LimitBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	IdentityCacheSize int
	IdentityCacheTTL  time.Duration

	Release Release
}

// Load builds a Config from the environment, applying defaults for unset
// variables. Malformed values are reported together.
func Load() (*Config, error) {
	var errs []error
	p := parser{errs: &errs}

	cfg := &Config{
		Port:           env("PORT", "3001"),
		LogLevel:       env("LOG_LEVEL", "info"),
		RiotAPIKey:     os.Getenv("RIOT_API_KEY"),
		RiotBaseURL:    strings.TrimRight(env("RIOT_BASE_URL", "https://eun1.api.riotgames.com"), "/"),
		AllowedOrigins: list(env("ALLOWED_ORIGINS", "http://localhost:1420,https://tauri.localhost")),
		TrustProxy:     p.boolVar("TRUST_PROXY_HEADERS", false),

		AuthLimit: ratelimit.Config{
			Points: p.intVar("AUTH_RATE_POINTS", 5),
			Window: p.durationVar("AUTH_RATE_WINDOW", 60*time.Second),
		},
		MatchLimit: ratelimit.Config{
			Points: p.intVar("MATCH_RATE_POINTS", 1),
			Window: p.durationVar("MATCH_RATE_WINDOW", time.Second),
		},
		MessageRate:   p.floatVar("MESSAGE_RATE", 20),
		MessageBurst:  p.intVar("MESSAGE_BURST", 40),
		LimitBackend:  env("RATE_LIMIT_BACKEND", BackendMemory),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       p.intVar("REDIS_DB", 0),

		IdentityCacheSize: p.intVar("IDENTITY_CACHE_SIZE", 1024),
		IdentityCacheTTL:  p.durationVar("IDENTITY_CACHE_TTL", 5*time.Minute),

		Release: Release{
			Version:   env("RELEASE_VERSION", "0.0.1"),
			URL:       os.Getenv("RELEASE_URL"),
			Notes:     os.Getenv("RELEASE_NOTES"),
			Signature: os.Getenv("RELEASE_SIGNATURE"),
			Dir:       env("RELEASES_DIR", "releases"),
		},
	}

	if cfg.LimitBackend != BackendMemory && cfg.LimitBackend != BackendRedis {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND: unknown backend %q", cfg.LimitBackend))
	}
	if cfg.AuthLimit.Points <= 0 || cfg.MatchLimit.Points <= 0 {
		errs = append(errs, errors.New("rate limit points must be positive"))
	}
	if cfg.AuthLimit.Window <= 0 || cfg.MatchLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit windows must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func list(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

type parser struct {
	errs *[]error
}

func (p parser) fail(key string, err error) {
	*p.errs = append(*p.errs, fmt.Errorf("%s: %w", key, err))
}

func (p parser) intVar(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p parser) floatVar(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return f
}

func (p parser) boolVar(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return b
}

func (p parser) durationVar(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}
