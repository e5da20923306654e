package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		target      string
		contentType string
		body        string
		want        int
	}{
		{"json post", http.MethodPost, "/mensaje", "application/json", `{}`, http.StatusOK},
		{"json with charset", http.MethodPost, "/mensaje", "application/json; charset=utf-8", `{}`, http.StatusOK},
		{"form post", http.MethodPost, "/mensaje", "application/x-www-form-urlencoded", "text=hola", http.StatusOK},
		{"multipart post", http.MethodPost, "/mensaje", "multipart/form-data; boundary=x", "--x--", http.StatusOK},
		{"empty post", http.MethodPost, "/mensaje", "", "", http.StatusOK},
		{"plain text post", http.MethodPost, "/mensaje", "text/plain", "hola", http.StatusUnsupportedMediaType},
		{"path traversal", http.MethodGet, "/estado/../etc", "", "", http.StatusBadRequest},
		{"script in query", http.MethodGet, "/estado?device=<script>", "", "", http.StatusBadRequest},
		{"plain get", http.MethodGet, "/estado?device=ella", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://buzon.test"+tt.target, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			ValidateRequest(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/estado", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'none'", rec.Header().Get("Content-Security-Policy"))

	rec = httptest.NewRecorder()
	SecurityHeaders(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "script-src 'self' 'unsafe-inline'")
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/estado", normalizePath("/estado"))
	assert.Equal(t, "/mensaje_visto", normalizePath("/mensaje_visto"))
	assert.Equal(t, "other", normalizePath("/wp-login.php"))
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", RealIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", RealIP(req))

	req.Header.Set("Fly-Client-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", RealIP(req))
}

func TestDeviceKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/estado?device=Ella", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "ratelimit:device:ella:10.1.2.3", deviceKey(req))

	req = httptest.NewRequest(http.MethodGet, "/estado", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "ratelimit:ip:10.1.2.3", deviceKey(req))
}

func newLimiter(t *testing.T, cfg RateLimiterConfig) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client, zerolog.Nop(), cfg), mr
}

func hit(h http.Handler, method, target, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_LimitsPerKey(t *testing.T) {
	rl, _ := newLimiter(t, RateLimiterConfig{})
	rl.limits["GET /estado"] = RateLimit{3, time.Minute, deviceKey}
	h := rl.Middleware(ok)

	for i := 0; i < 3; i++ {
		rec := hit(h, http.MethodGet, "/estado?device=ella", "10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := hit(h, http.MethodGet, "/estado?device=ella", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// The other device keeps its own budget.
	rec = hit(h, http.MethodGet, "/estado?device=marti", "10.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unlisted endpoints are not limited.
	rec = hit(h, http.MethodGet, "/health", "10.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimiter_Whitelist(t *testing.T) {
	rl, _ := newLimiter(t, RateLimiterConfig{Whitelist: []string{"10.0.0.9", "192.168.0.0/16", "bad/cidr"}})
	rl.limits["POST /mensaje"] = RateLimit{1, time.Minute, ipKey}
	h := rl.Middleware(ok)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, "/mensaje", "10.0.0.9").Code)
		assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, "/mensaje", "192.168.4.20").Code)
	}
	assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, "/mensaje", "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, http.MethodPost, "/mensaje", "10.0.0.1").Code)
}

func TestRateLimiter_AutoBlock(t *testing.T) {
	rl, mr := newLimiter(t, RateLimiterConfig{AutoBlockEnabled: true})
	rl.limits["POST /mensaje"] = RateLimit{1, time.Minute, ipKey}
	h := rl.Middleware(ok)

	for i := 0; i < 11; i++ {
		hit(h, http.MethodPost, "/mensaje", "10.0.0.1")
	}
	assert.True(t, mr.Exists("blocked:ip:10.0.0.1"))
	assert.Equal(t, http.StatusForbidden, hit(h, http.MethodGet, "/estado?device=ella", "10.0.0.1").Code)

	rl.blocker.Unblock(context.Background(), "10.0.0.1")
	assert.Equal(t, http.StatusOK, hit(h, http.MethodGet, "/estado?device=ella", "10.0.0.1").Code)
}

func TestRateLimiter_FailsOpenWithoutRedis(t *testing.T) {
	rl, mr := newLimiter(t, RateLimiterConfig{})
	rl.limits["POST /mensaje"] = RateLimit{1, time.Minute, ipKey}
	mr.Close()

	h := rl.Middleware(ok)
	assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, "/mensaje", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, "/mensaje", "10.0.0.1").Code)
}

func TestMaxBodySize(t *testing.T) {
	h := MaxBodySize(4)(ok)
	req := httptest.NewRequest(http.MethodPost, "/mensaje", strings.NewReader("too long"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
