package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"menu-gen-assistant/internal/core/ratelimit"
	"menu-gen-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) common.ErrorBody {
	t.Helper()
	var body common.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func identityRouter(secret string) *gin.Engine {
	r := gin.New()
	r.Use(CallerIdentity(secret))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"caller": c.GetString(CallerIDKey),
			"user":   c.GetString(UserIDKey),
		})
	})
	return r
}

func TestCallerIdentity(t *testing.T) {
	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	legacy := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"user_id": "user-7",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "user-42"})

	tests := []struct {
		name       string
		secret     string
		header     string
		wantStatus int
		wantCaller string
		wantUser   string
	}{
		{"anonymous", testSecret, "", http.StatusOK, "ip:192.0.2.1", ""},
		{"valid subject", testSecret, "Bearer " + valid, http.StatusOK, "user:user-42", "user-42"},
		{"user_id claim", testSecret, "Bearer " + legacy, http.StatusOK, "user:user-7", "user-7"},
		{"expired", testSecret, "Bearer " + expired, http.StatusUnauthorized, "", ""},
		{"wrong key", testSecret, "Bearer " + wrongKey, http.StatusUnauthorized, "", ""},
		{"not bearer", testSecret, "Basic abc", http.StatusUnauthorized, "", ""},
		{"auth disabled ignores header", "", "Bearer " + valid, http.StatusOK, "ip:192.0.2.1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.RemoteAddr = "192.0.2.1:1234"
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			identityRouter(tt.secret).ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, "Unauthorized", decodeBody(t, w).Error)
				return
			}
			var got map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.wantCaller, got["caller"])
			assert.Equal(t, tt.wantUser, got["user"])
		})
	}
}

func TestParseSubjectRejectsNoneAlgorithm(t *testing.T) {
	token := signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"sub": "user-1"})
	_, err := ParseSubject(token, testSecret)
	assert.Error(t, err)
}

func TestRateLimitPerCaller(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(10*time.Second, 100)
	r := gin.New()
	r.Use(CallerIdentity(""), RateLimit(limiter))
	r.POST("/generate", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/generate", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.1:1000").Code)

	denied := send("192.0.2.1:1001")
	require.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.Equal(t, "10", denied.Header().Get("Retry-After"))
	body := decodeBody(t, denied)
	assert.True(t, body.UserError)
	assert.Equal(t, "Too many requests", body.Error)

	assert.Equal(t, http.StatusOK, send("192.0.2.2:1000").Code)
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodySizeLimit(8))
	r.POST("/echo", func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, string(data))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("short")))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "short", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("far too long for the limit")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "Request body too large", decodeBody(t, w).Error)
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeBody(t, w).Error)
}
