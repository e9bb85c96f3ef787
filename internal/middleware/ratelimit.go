package middleware

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/facts-api/internal/config"
)

// takeToken credits whole elapsed refill intervals, then spends one token.
// It returns {allowed (0|1), tokens left, ms until the next refill}.
//
// KEYS[1] bucket hash
// ARGV    now_ms, capacity, refill_tokens, interval_ms, ttl_ms
var takeToken = redis.NewScript(`
local now, cap, refill, every, ttl =
    tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local stamp = tonumber(redis.call('HGET', KEYS[1], 'stamp'))
if tokens == nil or stamp == nil then
    tokens, stamp = cap, now
end

local steps = math.floor(math.max(0, now - stamp) / every)
if steps > 0 then
    tokens = math.min(cap, tokens + steps * refill)
    stamp = stamp + steps * every
end

local allowed, wait = 0, 0
if tokens > 0 then
    allowed, tokens = 1, tokens - 1
else
    wait = math.max(0, every - (now - stamp))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('PEXPIRE', KEYS[1], ttl)
return { allowed, tokens, wait }
`)

// bucketReply is the decoded result of takeToken.
type bucketReply struct {
    Allowed   bool
    Remaining int64
    Wait      time.Duration
}

// RetryAfter rounds Wait up to whole seconds for the Retry-After header.
func (b bucketReply) RetryAfter() int {
    return int((b.Wait + time.Second - 1) / time.Second)
}

func parseBucketReply(v interface{}) (bucketReply, bool) {
    arr, ok := v.([]interface{})
    if !ok || len(arr) != 3 {
        return bucketReply{}, false
    }
    nums := make([]int64, 3)
    for i, x := range arr {
        n, ok := x.(int64)
        if !ok {
            return bucketReply{}, false
        }
        nums[i] = n
    }
    return bucketReply{
        Allowed:   nums[0] == 1,
        Remaining: nums[1],
        Wait:      time.Duration(nums[2]) * time.Millisecond,
    }, true
}

// NewTokenBucket limits requests per key with a token bucket kept in Redis.
// It fails open: when Redis errors the request goes through unmetered.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    limit := strconv.Itoa(cfg.Capacity)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg, c)
            raw, err := takeToken.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                cfg.TTL.Milliseconds(),
            ).Result()
            if err != nil {
                if cfg.Debug {
                    logger.Warn("ratelimit: redis error", zap.String("key", key), zap.Error(err))
                }
                return next(c)
            }
            reply, ok := parseBucketReply(raw)
            if !ok {
                if cfg.Debug {
                    logger.Warn("ratelimit: unexpected script result", zap.String("key", key), zap.Any("result", raw))
                }
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", limit)
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(reply.Remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }

            if !reply.Allowed {
                secs := reply.RetryAfter()
                h.Set("Retry-After", strconv.Itoa(secs))
                if cfg.Debug {
                    logger.Info("ratelimit: blocked", zap.String("key", key), zap.Duration("wait", reply.Wait))
                }
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":       "too_many_requests",
                    "message":     "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// rateKey keys the bucket by client IP, route, or both (the default).  The
// API is anonymous, so there is no per-user strategy.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" { ip = "unknown" }
    route := c.Request().Method + " " + c.Path()

    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        return cfg.Prefix + ":ip:" + ip
    case "route":
        return cfg.Prefix + ":route:" + route
    default: // "ip_route"
        return cfg.Prefix + ":ip:" + ip + ":route:" + route
    }
}
