package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/config"
)

func newCtx(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCacheKey(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	c1, _ := newCtx(http.MethodGet, "/events/1?x=1")
	c2, _ := newCtx(http.MethodGet, "/events/2?x=1")
	c3, _ := newCtx(http.MethodGet, "/events/1?x=1")

	k1 := cacheKey(cfg, c1, "0")
	assert.NotEqual(t, k1, cacheKey(cfg, c2, "0"), "different ids must not share an entry")
	assert.Equal(t, k1, cacheKey(cfg, c3, "0"))
	assert.NotEqual(t, k1, cacheKey(cfg, c3, "1"), "a new generation must orphan old entries")
	assert.Contains(t, k1, "cache:g0:")
}

func TestEntryRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodeEntry(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodeEntry(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodeEntry([]byte{0, 1})
	assert.False(t, ok)
	_, _, _, ok = decodeEntry([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok)
}

func TestRecorderTruncates(t *testing.T) {
	rec := &recorder{ResponseWriter: httptest.NewRecorder(), limit: 4}
	_, err := rec.Write([]byte("abc"))
	require.NoError(t, err)
	assert.False(t, rec.truncated)
	_, err = rec.Write([]byte("defg"))
	require.NoError(t, err)
	assert.True(t, rec.truncated)
	assert.Equal(t, "abcd", rec.buf.String())
}

func TestBumpBeforeResponse(t *testing.T) {
	t.Run("bumps before the status reaches the client", func(t *testing.T) {
		c, rec := newCtx(http.MethodDelete, "/reservations/1")
		var committed []bool
		bumpBeforeResponse(c, func(context.Context) error {
			committed = append(committed, c.Response().Committed)
			return nil
		}, logrus.New())

		require.NoError(t, c.NoContent(http.StatusNoContent))
		assert.Equal(t, []bool{false}, committed)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("failed writes leave the generation alone", func(t *testing.T) {
		c, _ := newCtx(http.MethodPost, "/reservations/")
		calls := 0
		bumpBeforeResponse(c, func(context.Context) error { calls++; return nil }, logrus.New())

		require.NoError(t, c.JSON(http.StatusBadRequest, map[string]string{"error": "InvalidQuantity"}))
		assert.Zero(t, calls)
	})

	t.Run("retries a failing bump", func(t *testing.T) {
		c, _ := newCtx(http.MethodPut, "/reservations/1")
		calls := 0
		bumpBeforeResponse(c, func(context.Context) error {
			calls++
			if calls == 1 {
				return errors.New("connection reset")
			}
			return nil
		}, logrus.New())

		require.NoError(t, c.NoContent(http.StatusOK))
		assert.Equal(t, 2, calls)
	})

	t.Run("warns when every attempt fails", func(t *testing.T) {
		log, hook := logtest.NewNullLogger()
		c, _ := newCtx(http.MethodPost, "/events/")
		calls := 0
		bumpBeforeResponse(c, func(context.Context) error { calls++; return errors.New("down") }, log)

		require.NoError(t, c.NoContent(http.StatusCreated))
		assert.Equal(t, bumpAttempts, calls)
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	})
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	called := 0
	h := func(c echo.Context) error { called++; return c.NoContent(http.StatusOK) }

	c, _ := newCtx(http.MethodGet, "/events/")
	require.NoError(t, NewRedisCache(config.CacheConfig{Enabled: false}, nil, logrus.New())(h)(c))
	c, _ = newCtx(http.MethodGet, "/events/")
	require.NoError(t, NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, logrus.New())(h)(c))
	assert.Equal(t, 2, called)
}

func TestRateKey(t *testing.T) {
	c, _ := newCtx(http.MethodPost, "/reservations/")
	c.SetPath("/reservations/")
	c.Request().Header.Set(echo.HeaderXRealIP, "10.0.0.7")

	tests := map[string]string{
		"ip":       "rl:ip:10.0.0.7",
		"route":    "rl:route:POST /reservations/",
		"global":   "rl:global",
		"ip_route": "rl:ip:10.0.0.7:route:POST /reservations/",
		"":         "rl:ip:10.0.0.7:route:POST /reservations/",
	}
	for strategy, want := range tests {
		got := rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
		assert.Equal(t, want, got, "strategy %q", strategy)
	}
}

func TestRequestID(t *testing.T) {
	h := RequestID()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	c, rec := newCtx(http.MethodGet, "/")
	require.NoError(t, h(c))
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)

	c, rec = newCtx(http.MethodGet, "/")
	c.Request().Header.Set(echo.HeaderXRequestID, "abc-123")
	require.NoError(t, h(c))
	assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))
}

func TestRequestLogger(t *testing.T) {
	log, hook := logtest.NewNullLogger()

	ok := RequestLogger(log)(func(c echo.Context) error { return c.NoContent(http.StatusCreated) })
	c, _ := newCtx(http.MethodPost, "/users/")
	require.NoError(t, ok(c))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, http.StatusCreated, hook.LastEntry().Data["status"])

	broken := RequestLogger(log)(func(c echo.Context) error {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage_failure"})
	})
	c, _ = newCtx(http.MethodGet, "/events/")
	require.NoError(t, broken(c))
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}
