// middleware_test.go covers bearer verification and rate limiting.
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-for-middleware"

func init() {
	gin.SetMode(gin.TestMode)
}

// newEngine mounts mw in front of a handler that echoes the caller.
func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, GetCaller(c))
	})
	return r
}

func TestParseJWT(t *testing.T) {
	token, err := GenerateJWT("user-42", "a@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)

	_, err = ParseJWT(token, "another-secret-entirely")
	assert.Error(t, err)

	expired, err := GenerateJWT("user-42", "", testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, testSecret)
	assert.Error(t, err)
}

func TestParseJWT_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseJWT(signed, testSecret)
	assert.Error(t, err)
}

func TestJWTAuth(t *testing.T) {
	valid, err := GenerateJWT("user-7", "", testSecret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, "user-7"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Token " + valid, http.StatusUnauthorized, ""},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, ""},
	}

	r := newEngine(JWTAuth(testSecret))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestNoAuth(t *testing.T) {
	r := newEngine(NoAuth())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, AnonymousCaller, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(2)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	r := newEngine(NoAuth(), rl.RateLimit())
	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		return w
	}

	first := do()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, do().Code)
	assert.Equal(t, http.StatusTooManyRequests, do().Code)

	// Two tokens per hour: one refills in just over 30 minutes.
	clock = clock.Add(31 * time.Minute)
	assert.Equal(t, http.StatusOK, do().Code)
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(10)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return start }
	rl.allow("a", 10)
	rl.allow("b", 10)

	assert.Zero(t, rl.sweep(start.Add(30*time.Minute)))
	assert.Equal(t, 2, rl.sweep(start.Add(2*time.Hour)))
}
