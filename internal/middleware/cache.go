package middleware

import (
    "bytes"
    "context"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/facts-api/internal/config"
)

// cachedResponse is one cache entry.  Header holds representation headers
// only; anything that depends on the individual request is rebuilt by the
// middleware in front of the cache on every call.
type cachedResponse struct {
    Status int         `json:"status"`
    Header http.Header `json:"header"`
    Body   []byte      `json:"body"`
}

// perRequestHeaders are never written to the cache.  Prefixes end in "-".
var perRequestHeaders = []string{
    "Access-Control-",
    "X-Ratelimit-",
    "Vary",
    "X-Cache",
    "Retry-After",
    "Content-Length",
    "Date",
    "Set-Cookie",
}

func isPerRequest(key string) bool {
    key = http.CanonicalHeaderKey(key)
    for _, p := range perRequestHeaders {
        if key == p || (strings.HasSuffix(p, "-") && strings.HasPrefix(key, p)) {
            return true
        }
    }
    return false
}

// storableHeader copies h without its per-request headers.
func storableHeader(h http.Header) http.Header {
    out := make(http.Header, len(h))
    for k, vals := range h {
        if isPerRequest(k) {
            continue
        }
        out[k] = append([]string(nil), vals...)
    }
    return out
}

// bodyRecorder tees up to limit bytes of the body while forwarding
// everything to the client.
type bodyRecorder struct {
    http.ResponseWriter
    status  int
    body    bytes.Buffer
    written int64
    limit   int64
}

func (r *bodyRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
    if r.limit <= 0 || r.written+int64(len(b)) <= r.limit {
        r.body.Write(b)
    }
    r.written += int64(len(b))
    return r.ResponseWriter.Write(b)
}

// fits reports whether the whole body was recorded.
func (r *bodyRecorder) fits() bool { return r.limit <= 0 || r.written <= r.limit }

// cacheKey hashes method, route and, for the default strategy, the raw query.
// Origin is not part of the key: CORS headers are never cached.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    material := r.Method + " " + c.Path()
    if !strings.EqualFold(cfg.KeyStrategy, "route") {
        material += "?" + r.URL.RawQuery
    }
    sum := sha256.Sum256([]byte(material))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:16])
}

// replay writes entry, keeping any header the current request already set.
func replay(c echo.Context, entry cachedResponse) error {
    h := c.Response().Header()
    for k, vals := range entry.Header {
        if _, set := h[k]; set {
            continue
        }
        h[k] = append([]string(nil), vals...)
    }
    h.Set("X-Cache", "HIT")
    c.Response().WriteHeader(entry.Status)
    _, err := c.Response().Write(entry.Body)
    return err
}

// NewRedisCache serves repeated requests from Redis.  A hit replays the
// stored status, headers and body, so the body is byte-identical to the one
// that populated it.  Only complete 200 responses are stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, logger *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    ttl := cfg.TTL
    if ttl <= 0 { ttl = 5 * time.Minute }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }

            key := cacheKey(cfg, c)
            raw, err := rdb.Get(c.Request().Context(), key).Bytes()
            switch {
            case err == nil:
                var entry cachedResponse
                if jerr := json.Unmarshal(raw, &entry); jerr == nil && entry.Status != 0 {
                    return replay(c, entry)
                }
                logger.Debug("cache: dropping unreadable entry", zap.String("key", key))
            case err != redis.Nil:
                logger.Debug("cache: redis get failed", zap.String("key", key), zap.Error(err))
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || !rec.fits() {
                return nil
            }

            payload, err := json.Marshal(cachedResponse{
                Status: rec.status,
                Header: storableHeader(c.Response().Header()),
                Body:   rec.body.Bytes(),
            })
            if err != nil {
                return nil
            }
            if err := rdb.Set(context.Background(), key, payload, ttl).Err(); err != nil {
                logger.Debug("cache: redis set failed", zap.String("key", key), zap.Error(err))
            }
            return nil
        }
    }
}
