package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestCORS(t *testing.T) {
	router := setupTestRouter()
	router.Use(CORS(nil))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantHeader bool
	}{
		{
			name:       "simple GET request with origin",
			method:     "GET",
			origin:     "http://localhost:3000",
			wantStatus: http.StatusOK,
			wantHeader: true,
		},
		{
			name:       "preflight OPTIONS request",
			method:     "OPTIONS",
			origin:     "http://localhost:3000",
			wantStatus: http.StatusNoContent,
			wantHeader: true,
		},
		{
			name:       "no origin header",
			method:     "GET",
			origin:     "",
			wantStatus: http.StatusOK,
			wantHeader: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			allowOrigin := w.Header().Get("Access-Control-Allow-Origin")
			if tt.wantHeader {
				assert.NotEmpty(t, allowOrigin)
			} else {
				assert.Empty(t, allowOrigin)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 3}))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	var allowed, limited int
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		switch w.Code {
		case http.StatusOK:
			allowed++
		case http.StatusTooManyRequests:
			limited++
		}
	}
	assert.Equal(t, 3, allowed, "burst capacity should admit exactly 3")
	assert.Equal(t, 7, limited)
}

func TestRateLimitPerIP(t *testing.T) {
	router := setupTestRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Exhaust the first client's bucket.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	// A different client still gets through.
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID(t *testing.T) {
	router := setupTestRouter()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	header := w.Header().Get(RequestIDHeader)
	assert.True(t, strings.HasPrefix(header, "req_"), "got %q", header)
	assert.Equal(t, header, w.Body.String(), "context and header must agree")
}

func TestRequestIDPassthrough(t *testing.T) {
	router := setupTestRouter()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// A well-formed inbound ID is kept; garbage is replaced.
	valid := "req_01J2X5K9ABCDEFGHJKMNPQRSTV"
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, valid)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, valid, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, "not-an-id")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEqual(t, "not-an-id", w.Header().Get(RequestIDHeader))
}

func TestRateLimiterStop(t *testing.T) {
	router := setupTestRouter()
	rl := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 10, Burst: 10})
	router.Use(rl.Middleware())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Stop is idempotent and must not break the middleware.
	rl.Stop()
	rl.Stop()

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
