package config

import (
    "os"
    "strconv"
    "time"
)

// RateLimitConfig drives the Redis token bucket in front of the /api group.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
    return rateLimitFrom(os.Getenv)
}

func rateLimitFrom(getenv func(string) string) RateLimitConfig {
    def := RateLimitConfig{
        Enabled:        envBool(getenv, "RATE_LIMIT_ENABLED", true),
        Capacity:       envInt(getenv, "RATE_LIMIT_CAPACITY", 60),
        RefillTokens:   envInt(getenv, "RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur(getenv, "RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur(getenv, "RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr(getenv, "RATE_LIMIT_KEY_STRATEGY", "ip_route"),
        Prefix:         envStr(getenv, "RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool(getenv, "RATE_LIMIT_DEBUG", false),
    }
    if b := envInt(getenv, "RATE_LIMIT_BURST", -1); b > 0 { def.Capacity = b }
    if every := envDur(getenv, "RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        def.RefillTokens = 1
        def.RefillInterval = every
    }
    if def.Capacity < 1 { def.Capacity = 1 }
    if def.RefillTokens < 1 { def.RefillTokens = 1 }
    if def.RefillInterval <= 0 { def.RefillInterval = time.Second }
    minTTL := 5 * def.RefillInterval
    if def.TTL < minTTL { def.TTL = minTTL }
    return def
}

func envStr(getenv func(string) string, k, d string) string { if v := getenv(k); v != "" { return v }; return d }
func envBool(getenv func(string) string, k string, d bool) bool {
    v := getenv(k)
    if v == "" { return d }
    if b, ok := parseBool(v); ok { return b }
    return d
}
func envInt(getenv func(string) string, k string, d int) int {
    v := getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(getenv func(string) string, k string, d time.Duration) time.Duration {
    v := getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
