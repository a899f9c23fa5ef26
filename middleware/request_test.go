package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kendall-kelly/home-services-api/middleware/requestid"
	"github.com/kendall-kelly/home-services-api/repository"
)

func TestLanguage(t *testing.T) {
	r := gin.New()
	r.Use(Language())
	r.GET("/lang", func(c *gin.Context) {
		c.String(http.StatusOK, GetLanguage(c))
	})

	tests := []struct {
		name   string
		query  string
		header string
		want   string
	}{
		{"default", "", "", "en"},
		{"query override", "?lang=hi", "en-US", "hi"},
		{"unknown override falls back to header", "?lang=fr", "hi-IN,hi;q=0.9", "hi"},
		{"accept-language", "", "hi-IN,en;q=0.5", "hi"},
		{"unsupported header", "", "de-DE", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/lang"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Accept-Language", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestGetLanguageDefaultsToEnglish(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "en", GetLanguage(c))
}

func TestPagination(t *testing.T) {
	var got repository.Page
	r := gin.New()
	r.GET("/items", Pagination(), func(c *gin.Context) {
		got = GetPage(c)
		c.Status(http.StatusOK)
	})

	tests := []struct {
		query      string
		wantStatus int
		wantPage   repository.Page
	}{
		{"", http.StatusOK, repository.Page{Limit: 50}},
		{"?limit=10&offset=20", http.StatusOK, repository.Page{Limit: 10, Offset: 20}},
		{"?limit=100", http.StatusOK, repository.Page{Limit: 100}},
		{"?limit=0", http.StatusBadRequest, repository.Page{}},
		{"?limit=101", http.StatusBadRequest, repository.Page{}},
		{"?limit=ten", http.StatusBadRequest, repository.Page{}},
		{"?offset=-1", http.StatusBadRequest, repository.Page{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got = repository.Page{}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantPage, got)
			if tt.wantStatus == http.StatusBadRequest {
				errBody := decode(t, w)["error"].(map[string]interface{})
				assert.Equal(t, "INVALID_PAGINATION", errBody["code"])
			}
		})
	}
}

func TestGetPageWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, repository.Page{Limit: repository.DefaultLimit}, GetPage(c))
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	r := gin.New()
	r.Use(requestid.Middleware(), Language(), Recovery(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom?lang=hi", nil)
	req.Header.Set(requestid.HeaderKey, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "INTERNAL_ERROR", errBody["code"])
	assert.Equal(t, "आंतरिक सर्वर त्रुटि", errBody["message"])

	entries := logs.FilterMessage("panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "/boom", entries[0].ContextMap()["path"])
}
