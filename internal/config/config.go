package config // package config loads application configuration from environment variables

import (
    "fmt"
    "log"
    "os"
    "strings"
    "time"
)

// DBConfig holds the MySQL connection settings.
type DBConfig struct {
    User string // database username
    Pass string // database password (optional)
    Host string // database host address
    Port string // database port number
    Name string // database name
}

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Debug is handed to the handlers explicitly; no
// package reads it from the environment on its own.
type Config struct {
    Env           string        // application environment (e.g. "dev", "prod")
    Port          string        // HTTP port to listen on
    Debug         bool          // non-production diagnostic mode
    DB            DBConfig      // database connection settings
    HealthTimeout time.Duration // upper bound on one database probe
    CORSOrigins   []string      // origins allowed to call the API from a browser
}

// Load reads configuration values from the process environment.  Missing or
// malformed required values cause the program to exit with a fatal log
// message.
func Load() Config {
    cfg, err := Parse(os.LookupEnv)
    if err != nil {
        log.Fatalf("config: %v", err)
    }
    return cfg
}

// Parse builds a Config from lookup, which has the signature of
// os.LookupEnv.
func Parse(lookup func(string) (string, bool)) (Config, error) {
    e := env{lookup: lookup}
    cfg := Config{
        Env:   e.str("APP_ENV", "dev"),
        Port:  e.str("APP_PORT", "8000"),
        Debug: e.boolean("DEBUG", false),
        DB: DBConfig{
            User: e.must("DB_USER"),
            Pass: e.str("DB_PASS", ""),
            Host: e.must("DB_HOST"),
            Port: e.str("DB_PORT", "3306"),
            Name: e.must("DB_NAME"),
        },
        HealthTimeout: e.duration("HEALTH_TIMEOUT", 3*time.Second),
        CORSOrigins:   splitList(e.str("CORS_ALLOWED_ORIGINS", "*")),
    }
    if e.err != nil {
        return Config{}, e.err
    }
    if cfg.HealthTimeout <= 0 {
        return Config{}, fmt.Errorf("HEALTH_TIMEOUT must be positive, got %s", cfg.HealthTimeout)
    }
    return cfg, nil
}

// env wraps a lookup function and remembers the first error it hits so
// Parse can read every field before reporting.
type env struct {
    lookup func(string) (string, bool)
    err    error
}

func (e *env) get(key string) string {
    v, ok := e.lookup(key)
    if !ok {
        return ""
    }
    return strings.TrimSpace(v)
}

func (e *env) fail(err error) {
    if e.err == nil {
        e.err = err
    }
}

// must retrieves the value of a required environment variable.
func (e *env) must(key string) string {
    v := e.get(key)
    if v == "" {
        e.fail(fmt.Errorf("missing required env var: %s", key))
    }
    return v
}

func (e *env) str(key, def string) string {
    if v := e.get(key); v != "" {
        return v
    }
    return def
}

func (e *env) boolean(key string, def bool) bool {
    v := e.get(key)
    if v == "" {
        return def
    }
    b, ok := parseBool(v)
    if !ok {
        e.fail(fmt.Errorf("invalid bool for %s: %q", key, v))
        return def
    }
    return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
    v := e.get(key)
    if v == "" {
        return def
    }
    d, err := time.ParseDuration(v)
    if err != nil {
        e.fail(fmt.Errorf("invalid duration for %s: %q", key, v))
        return def
    }
    return d
}

// parseBool accepts the spellings envBool does in ratelimit.go.
func parseBool(v string) (bool, bool) {
    switch strings.ToLower(v) {
    case "1", "true", "yes", "on":
        return true, true
    case "0", "false", "no", "off":
        return false, true
    }
    return false, false
}

func splitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}
