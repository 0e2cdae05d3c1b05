package connector

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magewoo/internal/config"
	"magewoo/internal/logger"
)

func authTestRouter(apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	s := &Server{
		config: &config.Config{ConnectorAPIKey: apiKey},
		logger: logger.New("error"),
	}
	r := gin.New()
	r.GET("/info", s.requireAPIKey(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return r
}

func TestRequireAPIKey(t *testing.T) {
	r := authTestRouter("secret")

	tests := []struct {
		name   string
		header string
		query  string
		code   int
	}{
		{"valid header key", "secret", "", http.StatusOK},
		{"valid query key", "", "secret", http.StatusOK},
		{"missing key", "", "", http.StatusUnauthorized},
		{"wrong key", "nope", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/info"
			if tt.query != "" {
				path += "?api_key=" + tt.query
			}
			req := httptest.NewRequest("GET", path, nil)
			if tt.header != "" {
				req.Header.Set("X-Api-Key", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestRequireAPIKeyRejectsUnconfiguredKey(t *testing.T) {
	// An empty configured key must never match an empty client key.
	r := authTestRouter("")

	req := httptest.NewRequest("GET", "/info", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{"defaults", "", 1, defaultPageLimit},
		{"explicit", "page=4&limit=50", 4, 50},
		{"page floor", "page=0&limit=50", 1, 50},
		{"negative page", "page=-2", 1, defaultPageLimit},
		{"limit cap", "limit=5000", 1, maxPageLimit},
		{"garbage values", "page=abc&limit=xyz", 1, defaultPageLimit},
	}

	gin.SetMode(gin.TestMode)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			req, err := http.NewRequest("GET", "/products?"+tt.query, nil)
			require.NoError(t, err)
			c.Request = req

			page, limit := pageParams(c)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}
