package middleware

import (
    "net/http"
    "net/http/httptest"
    "strconv"
    "strings"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
    "go.uber.org/zap/zaptest/observer"

    "github.com/iliyamo/facts-api/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return mr, rdb
}

func rateCfg(capacity int) config.RateLimitConfig {
    return config.RateLimitConfig{
        Enabled:        true,
        Capacity:       capacity,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            5 * time.Hour,
        KeyStrategy:    "ip_route",
        Prefix:         "rl",
    }
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, target, nil)
    req.RemoteAddr = "203.0.113.7:5555"
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestTokenBucket(t *testing.T) {
    _, rdb := newRedis(t)

    e := echo.New()
    e.Use(NewTokenBucket(rateCfg(2), rdb, zap.NewNop()))
    e.GET("/api/facts/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

    for i := 0; i < 2; i++ {
        rec := serve(e, http.MethodGet, "/api/facts/")
        require.Equal(t, http.StatusOK, rec.Code)
        assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
        assert.Equal(t, strconv.Itoa(1-i), rec.Header().Get("X-RateLimit-Remaining"))
    }

    rec := serve(e, http.MethodGet, "/api/facts/")
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.NotEmpty(t, rec.Header().Get("Retry-After"))
    assert.JSONEq(t, `{"error":"too_many_requests","message":"rate limit exceeded","retry_after":3600}`, rec.Body.String())
}

func TestTokenBucketFailsOpen(t *testing.T) {
    mr, rdb := newRedis(t)
    mr.Close()

    e := echo.New()
    e.Use(NewTokenBucket(rateCfg(1), rdb, zap.NewNop()))
    e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

    for i := 0; i < 3; i++ {
        assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/").Code)
    }
}

func TestTokenBucketDisabled(t *testing.T) {
    cfg := rateCfg(1)
    cfg.Enabled = false

    e := echo.New()
    e.Use(NewTokenBucket(cfg, nil, zap.NewNop()))
    e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

    for i := 0; i < 3; i++ {
        rec := serve(e, http.MethodGet, "/")
        assert.Equal(t, http.StatusNoContent, rec.Code)
        assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
    }
}

func TestRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/api/facts/", nil)
    req.RemoteAddr = "198.51.100.2:1234"
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/api/facts/")

    cfg := rateCfg(1)
    assert.Equal(t, "rl:ip:198.51.100.2:route:GET /api/facts/", rateKey(cfg, c))
    cfg.KeyStrategy = "ip"
    assert.Equal(t, "rl:ip:198.51.100.2", rateKey(cfg, c))
    cfg.KeyStrategy = "route"
    assert.Equal(t, "rl:route:GET /api/facts/", rateKey(cfg, c))
}

func cacheCfg() config.CacheConfig {
    return config.CacheConfig{
        Enabled:      true,
        Methods:      map[string]bool{"GET": true},
        TTL:          time.Minute,
        KeyStrategy:  "route_query",
        Prefix:       "cache",
        MaxBodyBytes: 1 << 20,
    }
}

func TestRedisCacheReplaysIdenticalBytes(t *testing.T) {
    _, rdb := newRedis(t)

    calls := 0
    e := echo.New()
    e.GET("/api/facts/", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, map[string]any{"success": true, "count": 1})
    }, NewRedisCache(cacheCfg(), rdb, zap.NewNop()))

    miss := serve(e, http.MethodGet, "/api/facts/")
    require.Equal(t, http.StatusOK, miss.Code)
    assert.Equal(t, "MISS", miss.Header().Get("X-Cache"))

    hit := serve(e, http.MethodGet, "/api/facts/")
    require.Equal(t, http.StatusOK, hit.Code)
    assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
    assert.Equal(t, miss.Body.Bytes(), hit.Body.Bytes())
    assert.Equal(t, miss.Header().Get(echo.HeaderContentType), hit.Header().Get(echo.HeaderContentType))
    assert.Equal(t, 1, calls)
}

func TestRedisCacheSkipsNonOK(t *testing.T) {
    _, rdb := newRedis(t)

    calls := 0
    e := echo.New()
    e.GET("/flaky", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
    }, NewRedisCache(cacheCfg(), rdb, zap.NewNop()))

    serve(e, http.MethodGet, "/flaky")
    rec := serve(e, http.MethodGet, "/flaky")
    assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
    assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
    assert.Equal(t, 2, calls)
}

func TestRedisCacheSkipsOversizedBody(t *testing.T) {
    _, rdb := newRedis(t)
    cfg := cacheCfg()
    cfg.MaxBodyBytes = 4

    calls := 0
    e := echo.New()
    e.GET("/big", func(c echo.Context) error {
        calls++
        return c.String(http.StatusOK, "much longer than four bytes")
    }, NewRedisCache(cfg, rdb, zap.NewNop()))

    first := serve(e, http.MethodGet, "/big")
    second := serve(e, http.MethodGet, "/big")
    assert.Equal(t, "much longer than four bytes", first.Body.String())
    assert.Equal(t, first.Body.String(), second.Body.String())
    assert.Equal(t, 2, calls)
}

func TestRedisCacheDoesNotReplayPerRequestHeaders(t *testing.T) {
    _, rdb := newRedis(t)

    origin := "https://a.example"
    e := echo.New()
    e.GET("/api/facts/", func(c echo.Context) error {
        return c.JSON(http.StatusOK, map[string]bool{"success": true})
    }, func(next echo.HandlerFunc) echo.HandlerFunc {
        // Stands in for CORS and rate limiting, which run before the cache.
        return func(c echo.Context) error {
            h := c.Response().Header()
            h.Set(echo.HeaderAccessControlAllowOrigin, origin)
            h.Add(echo.HeaderVary, echo.HeaderOrigin)
            h.Set("X-RateLimit-Remaining", origin)
            return next(c)
        }
    }, NewRedisCache(cacheCfg(), rdb, zap.NewNop()))

    serve(e, http.MethodGet, "/api/facts/")
    origin = "https://b.example"
    hit := serve(e, http.MethodGet, "/api/facts/")

    require.Equal(t, "HIT", hit.Header().Get("X-Cache"))
    assert.Equal(t, []string{"https://b.example"}, hit.Header().Values(echo.HeaderAccessControlAllowOrigin))
    assert.Equal(t, []string{echo.HeaderOrigin}, hit.Header().Values(echo.HeaderVary))
    assert.Equal(t, []string{"https://b.example"}, hit.Header().Values("X-RateLimit-Remaining"))
    assert.Len(t, hit.Header().Values(echo.HeaderContentType), 1)
}

func TestStorableHeader(t *testing.T) {
    h := http.Header{}
    h.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    h.Set(echo.HeaderAccessControlAllowOrigin, "*")
    h.Set(echo.HeaderAccessControlExposeHeaders, "X-Cache")
    h.Set(echo.HeaderVary, echo.HeaderOrigin)
    h.Set("X-RateLimit-Limit", "60")
    h.Set("X-Cache", "MISS")
    h.Set(echo.HeaderContentLength, "12")

    assert.Equal(t, http.Header{echo.HeaderContentType: {echo.MIMEApplicationJSON}}, storableHeader(h))
}

func TestCacheKey(t *testing.T) {
    e := echo.New()
    keyFor := func(cfg config.CacheConfig, target string) string {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
        c.SetPath("/api/facts/")
        return cacheKey(cfg, c)
    }

    cfg := cacheCfg()
    assert.True(t, strings.HasPrefix(keyFor(cfg, "/api/facts/"), "cache:"))
    assert.NotEqual(t, keyFor(cfg, "/api/facts/"), keyFor(cfg, "/api/facts/?pretty"))

    cfg.KeyStrategy = "route"
    assert.Equal(t, keyFor(cfg, "/api/facts/"), keyFor(cfg, "/api/facts/?pretty"))
}

func TestParseBucketReply(t *testing.T) {
    reply, ok := parseBucketReply([]interface{}{int64(0), int64(0), int64(1500)})
    require.True(t, ok)
    assert.False(t, reply.Allowed)
    assert.Equal(t, 1500*time.Millisecond, reply.Wait)
    assert.Equal(t, 2, reply.RetryAfter())

    reply, ok = parseBucketReply([]interface{}{int64(1), int64(7), int64(0)})
    require.True(t, ok)
    assert.True(t, reply.Allowed)
    assert.Equal(t, int64(7), reply.Remaining)
    assert.Equal(t, 0, reply.RetryAfter())

    _, ok = parseBucketReply([]interface{}{int64(1)})
    assert.False(t, ok)
    _, ok = parseBucketReply("OK")
    assert.False(t, ok)
}

func TestRequestLoggerLevels(t *testing.T) {
    core, logs := observer.New(zap.InfoLevel)

    e := echo.New()
    e.Use(RequestLogger(zap.New(core)))
    e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
    e.GET("/fail", func(c echo.Context) error { return echo.ErrInternalServerError })

    serve(e, http.MethodGet, "/ok")
    serve(e, http.MethodGet, "/missing")
    serve(e, http.MethodGet, "/fail")

    entries := logs.All()
    require.Len(t, entries, 3)
    assert.Equal(t, zap.InfoLevel, entries[0].Level)
    assert.Equal(t, zap.WarnLevel, entries[1].Level)
    assert.Equal(t, zap.ErrorLevel, entries[2].Level)
    assert.Equal(t, int64(http.StatusNotFound), entries[1].ContextMap()["status"])
}
