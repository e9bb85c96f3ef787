package config

import (
    "os"
    "strings"
    "time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Methods lists the HTTP methods to cache (e.g. GET, HEAD).  TTL defines the
// lifetime of cache entries.  KeyStrategy determines which parts of the request
// contribute to the cache key.  Prefix and MaxBodyBytes allow control over
// namespacing and the maximum size of responses to cache.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.  Defaults
// are used when variables are not set.  All methods are upper-cased.
func LoadCacheConfig() CacheConfig {
    return cacheFrom(os.Getenv)
}

func cacheFrom(getenv func(string) string) CacheConfig {
    return CacheConfig{
        Enabled:      envBool(getenv, "CACHE_ENABLED", true),
        Methods:      parseMethods(envStr(getenv, "CACHE_METHODS", "GET")),
        TTL:          envDur(getenv, "CACHE_TTL", 5*time.Minute),
        KeyStrategy:  envStr(getenv, "CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr(getenv, "CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt(getenv, "CACHE_MAX_BODY_BYTES", 1048576),
    }
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}
