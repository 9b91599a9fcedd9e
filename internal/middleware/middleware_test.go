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

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(testSecret))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": GetUserRole(c), "locale": Locale(c)})
	})
	r.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAuth(t *testing.T) {
	r := newAuthRouter()
	valid := signToken(t, jwt.MapClaims{
		"user_id": 10, "email": "carlos@roimob.com.br", "role": "broker", "locale": "en",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, jwt.MapClaims{"user_id": 10, "role": "broker", "exp": time.Now().Add(-time.Hour).Unix()})

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{name: "missing header", path: "/me", status: http.StatusUnauthorized, body: "obrigatório"},
		{name: "bad scheme", path: "/me", header: "Basic abc", status: http.StatusUnauthorized, body: "inválido"},
		{name: "expired", path: "/me", header: "Bearer " + expired, status: http.StatusUnauthorized, body: "token expirado"},
		{name: "valid", path: "/me", header: "Bearer " + valid, status: http.StatusOK, body: `"locale":"en"`},
		{name: "token in query", path: "/me?token=" + valid, status: http.StatusOK, body: `"user_id":10`},
		{name: "broker on admin route", path: "/admin", header: "Bearer " + valid, status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Contains(t, w.Body.String(), tt.body)
			}
		})
	}
}

func TestLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		url      string
		header   string
		tokenLoc string
		want     string
	}{
		{name: "default", url: "/", want: "pt"},
		{name: "accept-language", url: "/", header: "en-US,en;q=0.9", want: "en"},
		{name: "query wins", url: "/?lang=pt-BR", header: "en-US", want: "pt"},
		{name: "unsupported header falls back to token", url: "/", header: "es-ES", tokenLoc: "en", want: "en"},
		{name: "unsupported everywhere", url: "/", header: "fr", want: "pt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request, _ = http.NewRequest("GET", tt.url, nil)
			if tt.header != "" {
				c.Request.Header.Set("Accept-Language", tt.header)
			}
			if tt.tokenLoc != "" {
				c.Set("userLocale", tt.tokenLoc)
			}
			assert.Equal(t, tt.want, Locale(c))
		})
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://app.roimob.com.br"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	req.Header.Set("Origin", "https://app.roimob.com.br")
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.roimob.com.br", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
