package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/buzon/internal/api/middleware"
	"github.com/eldtechnologies/buzon/internal/handlers"
	"github.com/eldtechnologies/buzon/internal/mailbox"
	"github.com/eldtechnologies/buzon/internal/models"
	"github.com/eldtechnologies/buzon/internal/presence"
	"github.com/eldtechnologies/buzon/internal/store"
)

func newTestServer(t *testing.T, limiter *middleware.RateLimiter) *httptest.Server {
	t.Helper()
	pair, err := models.NewPair("marti", "ella")
	require.NoError(t, err)

	mem := store.NewMemoryStore()
	mb, err := mailbox.New(context.Background(), pair, mem)
	require.NoError(t, err)

	h := handlers.NewHandler(mb, presence.New(pair, mb), map[string]handlers.Pinger{"store": mem}, zerolog.Nop(), "test")
	srv := httptest.NewServer(NewRouter(zerolog.Nop(), h, limiter))
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestRouter_MessageRoundTrip(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/mensaje", "application/json", strings.NewReader(`{"text":"hola","from":"marti"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ella", decode(t, resp)["to"])

	resp, err = http.Get(srv.URL + "/estado?device=ella")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "default-src 'none'", resp.Header.Get("Content-Security-Policy"))
	assert.Equal(t, true, decode(t, resp)["has_unread"])

	resp, err = http.Post(srv.URL+"/mensaje_visto", "application/json", strings.NewReader(`{"device":"ella","message_id":1}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decode(t, resp)["last_seen_message_id"])

	resp, err = http.Get(srv.URL + "/estado?device=ella")
	require.NoError(t, err)
	assert.Equal(t, false, decode(t, resp)["has_unread"])

	// marti's slot is untouched.
	resp, err = http.Get(srv.URL + "/estado?device=marti")
	require.NoError(t, err)
	body := decode(t, resp)
	assert.Nil(t, body["message"])
	assert.Equal(t, true, body["other_online"])
}

func TestRouter_FormPost(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/mensaje", "application/x-www-form-urlencoded", strings.NewReader("text=hola&from=ella"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "marti", decode(t, resp)["to"])
}

func TestRouter_RejectsUnsupportedContentType(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/mensaje", "text/plain", strings.NewReader("hola"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestRouter_RejectsOversizedBody(t *testing.T) {
	srv := newTestServer(t, nil)

	body := `{"text":"` + strings.Repeat("a", 9*1024) + `","from":"marti"}`
	resp, err := http.Post(srv.URL+"/mensaje", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRouter_InfoEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api")
	require.NoError(t, err)
	body := decode(t, resp)
	assert.Equal(t, "buzon", body["name"])
	assert.Equal(t, []interface{}{"marti", "ella"}, body["participants"])

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", decode(t, resp)["status"])

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "'unsafe-inline'")

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_UnknownMethod(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/mensaje")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRouter_RateLimitsSends(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	srv := newTestServer(t, middleware.NewRateLimiter(client, zerolog.Nop(), middleware.RateLimiterConfig{}))

	var last int
	for i := 0; i < 31; i++ {
		resp, err := http.Post(srv.URL+"/mensaje", "application/json", strings.NewReader(`{"text":"hola","from":"marti"}`))
		require.NoError(t, err)
		resp.Body.Close()
		last = resp.StatusCode
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	// Polling has its own budget.
	resp, err := http.Get(srv.URL + "/estado?device=ella")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
