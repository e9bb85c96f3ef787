package config

// Redis backs the rate limiter and the facts response cache.  Both degrade
// to pass-through when NewRedisClient returns nil, so the API keeps serving
// without Redis.

import (
    "context"
    "crypto/tls"
    "os"
    "strconv"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from getenv.  Supported variables are:
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand (host/port win when both are set)
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
//   REDIS_TLS_INSECURE – with REDIS_TLS, skip server certificate verification
func RedisOptions(getenv func(string) string) *redis.Options {
    host := getenv("REDIS_HOST")
    port := getenv("REDIS_PORT")
    addr := getenv("REDIS_ADDR")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    dbNum := 0
    if dbStr := getenv("REDIS_DB"); dbStr != "" {
        if n, err := strconv.Atoi(dbStr); err == nil {
            dbNum = n
        }
    }
    var tlsConf *tls.Config
    if envBool(getenv, "REDIS_TLS", false) {
        tlsConf = &tls.Config{
            MinVersion:         tls.VersionTLS12,
            InsecureSkipVerify: envBool(getenv, "REDIS_TLS_INSECURE", false),
        }
    }
    return &redis.Options{
        Addr:      addr,
        Password:  getenv("REDIS_PASSWORD"),
        DB:        dbNum,
        TLSConfig: tlsConf,
    }
}

// NewRedisClient connects using RedisOptions(os.Getenv).  It returns nil if
// the server does not answer a ping within two seconds.
func NewRedisClient() *redis.Client {
    client := redis.NewClient(RedisOptions(os.Getenv))
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
