// Package config loads 12-factor environment configuration shared by the CLI
// and the wasm host.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	minRateLimit   = 0
	maxRateLimit   = 100
	minBatchSize   = 1
	maxBatchSize   = 100
	minDebounce    = 10 * time.Millisecond
	maxDebounce    = 5 * time.Second
	minHTTPTimeout = 500 * time.Millisecond
	maxHTTPTimeout = 2 * time.Minute
	minVaultTTL    = time.Minute
	maxVaultTTL    = 24 * time.Hour
	maxHTTPRetries = 5
)

// Config holds environment configuration used across binaries.
type Config struct {
	ScoreAPI      string
	EthRPC        string
	BaseRPC       string
	SecurityAPI   string
	BlacklistAPI  string
	RateLimit     int
	HTTPTimeout   time.Duration
	HTTPRetries   int
	HTTPBackoff   time.Duration
	Debounce      time.Duration
	BatchSize     int
	MutationDelay time.Duration
	Linger        time.Duration
	VaultTTL      time.Duration
	DataDir       string
	LogLevel      string
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

func parseDurEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampDuration(v, min, max time.Duration) time.Duration {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "aura")
	}
	return ".aura"
}

// RedactURL hides credentials and API keys embedded in RPC URLs so they can be logged.
func RedactURL(s string) string {
	if s == "" {
		return s
	}
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	if u.User != nil {
		if name := u.User.Username(); name != "" {
			u.User = url.UserPassword(name, "***")
		} else {
			u.User = url.User("***")
		}
	}
	// Hosted RPC providers put the key in the last path segment.
	if segs := strings.Split(strings.TrimRight(u.Path, "/"), "/"); len(segs) > 1 {
		last := segs[len(segs)-1]
		if len(last) >= 20 {
			segs[len(segs)-1] = "***"
			u.Path = strings.Join(segs, "/")
		}
	}
	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "key") || strings.Contains(lk, "token") {
			q.Set(k, "***")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Load reads environment variables and returns a Config with defaults applied.
func Load() Config {
	return Config{
		ScoreAPI:      strings.TrimRight(env("AURA_SCORE_API", "https://api.ethos.network"), "/"),
		EthRPC:        env("AURA_ETH_RPC", "https://cloudflare-eth.com"),
		BaseRPC:       env("AURA_BASE_RPC", "https://mainnet.base.org"),
		SecurityAPI:   strings.TrimRight(env("AURA_SECURITY_API", "https://api.gopluslabs.io"), "/"),
		BlacklistAPI:  env("AURA_BLACKLIST_API", ""),
		RateLimit:     clampInt(parseIntEnv("AURA_RATE_LIMIT", 10), minRateLimit, maxRateLimit),
		HTTPTimeout:   clampDuration(parseDurEnv("AURA_HTTP_TIMEOUT", 10*time.Second), minHTTPTimeout, maxHTTPTimeout),
		HTTPRetries:   clampInt(parseIntEnv("AURA_HTTP_RETRIES", 2), 0, maxHTTPRetries),
		HTTPBackoff:   parseDurEnv("AURA_HTTP_BACKOFF", 200*time.Millisecond),
		Debounce:      clampDuration(parseDurEnv("AURA_DEBOUNCE", 150*time.Millisecond), minDebounce, maxDebounce),
		BatchSize:     clampInt(parseIntEnv("AURA_BATCH_SIZE", 30), minBatchSize, maxBatchSize),
		MutationDelay: clampDuration(parseDurEnv("AURA_MUTATION_DELAY", 250*time.Millisecond), minDebounce, maxDebounce),
		Linger:        clampDuration(parseDurEnv("AURA_LINGER", 300*time.Millisecond), minDebounce, maxDebounce),
		VaultTTL:      clampDuration(parseDurEnv("AURA_VAULT_TTL", 30*time.Minute), minVaultTTL, maxVaultTTL),
		DataDir:       env("AURA_DATA_DIR", defaultDataDir()),
		LogLevel:      env("AURA_LOG_LEVEL", "info"),
	}
}
