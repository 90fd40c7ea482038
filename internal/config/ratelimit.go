package config

import "time"

// RateLimitConfig drives the Redis token bucket.  Every client key
// starts with Capacity tokens and regains RefillTokens every
// RefillInterval.  ExemptPaths (route patterns such as /healthz) are
// never limited.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    ExemptPaths    map[string]bool
    Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
    rl := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        ExemptPaths:    map[string]bool{},
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    for _, p := range envList("RATE_LIMIT_EXEMPT", "/healthz") {
        rl.ExemptPaths[p] = true
    }
    return rl.normalize()
}

// normalize clamps values that would make the bucket useless.
func (rl RateLimitConfig) normalize() RateLimitConfig {
    if rl.Capacity < 1 {
        rl.Capacity = 1
    }
    if rl.RefillTokens < 1 {
        rl.RefillTokens = 1
    }
    if rl.RefillInterval <= 0 {
        rl.RefillInterval = time.Second
    }
    // keys must outlive a full refill or idle clients get a fresh bucket early
    if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
        rl.TTL = minTTL
    }
    return rl
}
