package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"atelier-be/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFrom(r.Context())
	}))

	t.Run("Generates ID when missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("Preserves existing ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "test-id-123")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "test-id-123", seen)
		assert.Equal(t, "test-id-123", w.Header().Get(RequestIDHeader))
	})
}

func TestLogging(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	restore := logger.Replace(zap.New(core))
	defer restore()

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("nope"))
	}), RequestID, Logging)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	logs := observed.TakeAll()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)

	fields := logs[0].ContextMap()
	assert.Equal(t, "rid-1", fields["request_id"])
	assert.Equal(t, int64(http.StatusUnprocessableEntity), fields["status"])
	assert.Equal(t, int64(4), fields["bytes"])
	assert.Equal(t, "/api/orders", fields["path"])
}

func TestRecovery(t *testing.T) {
	restore := logger.Replace(zap.NewNop())
	defer restore()

	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	t.Run("Wildcard", func(t *testing.T) {
		handler := CORS([]string{"*"})(okHandler)

		req := httptest.NewRequest(http.MethodOptions, "/test", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Listed origin", func(t *testing.T) {
		handler := CORS([]string{"http://localhost:3000"})(okHandler)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Unlisted origin", func(t *testing.T) {
		handler := CORS([]string{"http://localhost:3000"})(okHandler)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("Strict tier for order creation", func(t *testing.T) {
		l := NewRateLimiter(1000, 1000, "")
		handler := l.Middleware(okHandler)

		codes := make([]int, 0, TierStrict.Burst+1)
		for i := 0; i <= TierStrict.Burst; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}

		assert.Equal(t, http.StatusOK, codes[0])
		assert.Equal(t, http.StatusTooManyRequests, codes[len(codes)-1])
	})

	t.Run("Separate buckets per device", func(t *testing.T) {
		l := NewRateLimiter(0.001, 1, "")
		handler := l.Middleware(okHandler)

		for _, device := range []string{"a", "b"} {
			req := httptest.NewRequest(http.MethodGet, "/api/orders/1", nil)
			req.Header.Set("X-Device-ID", device)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code, device)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/orders/1", nil)
		req.Header.Set("X-Device-ID", "a")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("Tier resolution", func(t *testing.T) {
		l := NewRateLimiter(10, 20, "s3cret")

		internal := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
		internal.Header.Set("X-Service-Auth", "s3cret")
		assert.Equal(t, TierInternal, l.resolveTier(internal))

		assert.Equal(t, TierStrict, l.resolveTier(httptest.NewRequest(http.MethodPost, "/api/admin/orders/", nil)))
		assert.Equal(t, "general", l.resolveTier(httptest.NewRequest(http.MethodGet, "/api/orders", nil)).Name)
	})

	t.Run("Idle visitors are evicted", func(t *testing.T) {
		now := time.Now()
		l := NewRateLimiter(10, 20, "")
		l.now = func() time.Time { return now }

		l.limiter("ip:1:general", l.general)
		l.limiter("ip:2:general", l.general)

		now = now.Add(visitorTTL + time.Second)
		l.limiter("ip:2:general", l.general)

		assert.Equal(t, 1, l.evictIdle())
		assert.Len(t, l.visitors, 1)
	})

	t.Run("Cleanup stops with context", func(t *testing.T) {
		l := NewRateLimiter(10, 20, "")
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		go func() {
			l.Cleanup(ctx, time.Millisecond)
			close(done)
		}()
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("cleanup did not stop")
		}
	})
}
