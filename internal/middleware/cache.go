package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/config"
)

// recorder forwards the response to the client and keeps a copy of
// the first limit bytes of the body.
type recorder struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	switch room := r.limit - int64(r.buf.Len()); {
	case r.limit <= 0 || int64(len(b)) <= room:
		r.buf.Write(b)
	default:
		if room > 0 {
			r.buf.Write(b[:room])
		}
		r.truncated = true
	}
	return r.ResponseWriter.Write(b)
}

func generationKey(cfg config.CacheConfig) string { return cfg.Prefix + ":gen" }

// cacheKey builds the entry key for the current request.  gen is the
// current write generation, so bumping it orphans every older entry.
func cacheKey(cfg config.CacheConfig, c echo.Context, gen string) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "path":
		parts = []string{"path", r.URL.Path}
	case "method_path_query":
		parts = []string{"method", r.Method, "path", r.URL.Path, "q", r.URL.RawQuery}
	default: // route_query; path params are part of the request path
		parts = []string{"path", r.URL.Path, "q", r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:g%s:%x", cfg.Prefix, gen, sum[:])
}

// Entries are laid out as [status uint32][header length uint32][header JSON][body].
func encodeEntry(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	out = append(out, hdr...)
	return append(out, body...), nil
}

func decodeEntry(bs []byte) (int, http.Header, []byte, bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	n := int(binary.BigEndian.Uint32(bs[4:8]))
	if n < 0 || 8+n > len(bs) {
		return 0, nil, nil, false
	}
	hdr := make(http.Header)
	if n > 0 {
		if err := json.Unmarshal(bs[8:8+n], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, bs[8+n:], true
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

const bumpAttempts = 3

// bumpBeforeResponse advances the write generation once the status of a
// successful write is known but before any of the response reaches the
// client, so a client that saw the write never reads a pre-write entry.
func bumpBeforeResponse(c echo.Context, bump func(ctx context.Context) error, log logrus.FieldLogger) {
	c.Response().Before(func() {
		if c.Response().Status >= http.StatusBadRequest {
			return
		}
		ctx := context.WithoutCancel(c.Request().Context())
		var err error
		for i := 0; i < bumpAttempts; i++ {
			if err = bump(ctx); err == nil {
				return
			}
		}
		log.WithError(err).Warn("cache generation bump failed, cached reads may be stale until their TTL")
	})
}

// NewRedisCache serves repeated reads from Redis.  Successful requests
// with a method that is not cached (POST, PUT, DELETE) bump the write
// generation, which makes every cached read stale at once, so a
// listing never outlives the reservation that changed it.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	genKey := generationKey(cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				bumpBeforeResponse(c, func(ctx context.Context) error {
					return rdb.Incr(ctx, genKey).Err()
				}, log)
				return next(c)
			}

			gen, err := rdb.Get(ctx, genKey).Result()
			if errors.Is(err, redis.Nil) {
				gen = "0"
			} else if err != nil {
				log.WithError(err).Debug("cache unavailable")
				return next(c)
			}
			key := cacheKey(cfg, c, gen)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodeEntry(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) || strings.EqualFold(k, echo.HeaderXRequestID) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, err := c.Response().Write(body)
					return err
				}
			}

			rec := &recorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.truncated {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			if entry, err := encodeEntry(rec.status, hdr, rec.buf.Bytes()); err == nil {
				if err := rdb.SetEx(context.Background(), key, entry, ttl).Err(); err != nil {
					log.WithError(err).Debug("cache store failed")
				}
			}
			return nil
		}
	}
}
