package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func limitedRequest(remote string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stores/s1/products", nil)
	req.RemoteAddr = remote
	return req
}

func TestRateLimiter_WithinBurstPasses(t *testing.T) {
	h := NewRateLimiter(10, 10, time.Minute).Handler(discardLogger())(http.HandlerFunc(okHandler))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, limitedRequest("192.168.1.1:12345"))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
}

func TestRateLimiter_OverBurstReturns429(t *testing.T) {
	h := NewRateLimiter(0.001, 3, time.Minute).Handler(discardLogger())(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 4)
	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = httptest.NewRecorder()
		h.ServeHTTP(last, limitedRequest("10.0.0.1:12345"))
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{200, 200, 200, 429}, codes)
	assert.Contains(t, last.Body.String(), "RATE_LIMITED")
	assert.Equal(t, "1", last.Header().Get("Retry-After"))
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	h := NewRateLimiter(0.001, 1, time.Minute).Handler(discardLogger())(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, limitedRequest("10.0.0.1:1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, limitedRequest("10.0.0.1:2"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, limitedRequest("10.0.0.2:1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.limiterFor("10.0.0.1")
	now = now.Add(30 * time.Second)
	rl.limiterFor("10.0.0.2")
	require.Equal(t, 2, rl.Len())

	now = now.Add(45 * time.Second)
	rl.evictIdle()
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiter_RunStopsWithContext(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- rl.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.1.1.1:5555", "10.1.1.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "junk, 203.0.113.7, 10.0.0.1"}, "10.1.1.1:5555", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.2 "}, "10.1.1.1:5555", "198.51.100.2"},
		{"unparseable remote", nil, "pipe", "pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := limitedRequest(tt.remote)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
