package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/storefront/merchandising/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createCategoryBody struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

// newLimitedCategoryRouter mounts a category-create style endpoint behind
// BodyLimit the way the merchandising API groups do
func newLimitedCategoryRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	group := router.Group("/api/v1/merchandising/categories", BodyLimit(limit))
	group.POST("", func(c *gin.Context) {
		var req createCategoryBody
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(req))
	})
	group.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse([]string{}))
	})
	return router
}

func categoryPayload(nameLen int) string {
	return `{"name":"` + strings.Repeat("n", nameLen) + `","slug":"shoes"}`
}

func TestBodyLimit(t *testing.T) {
	const limit = 128
	router := newLimitedCategoryRouter(limit)

	send := func(method, body string, contentLength int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/v1/merchandising/categories", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(RequestIDHeader, "req-limit")
		if contentLength != 0 {
			req.ContentLength = contentLength
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decode := func(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
		t.Helper()
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	tests := []struct {
		name          string
		method        string
		body          string
		contentLength int64
		wantStatus    int
	}{
		{"category that fits", http.MethodPost, categoryPayload(20), 0, http.StatusCreated},
		{"body exactly at the limit", http.MethodPost, categoryPayload(limit - len(categoryPayload(0))), 0, http.StatusCreated},
		{"declared length over the limit", http.MethodPost, categoryPayload(limit), 0, http.StatusRequestEntityTooLarge},
		{"streamed body over the limit", http.MethodPost, categoryPayload(limit), -1, http.StatusRequestEntityTooLarge},
		{"list without a body", http.MethodGet, "", 0, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := send(tt.method, tt.body, tt.contentLength)
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusRequestEntityTooLarge {
				resp := decode(t, w)
				require.NotNil(t, resp.Error)
				assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
				assert.Equal(t, "req-limit", resp.Error.RequestID)
			}
		})
	}

	t.Run("malformed json within the limit stays a bad request", func(t *testing.T) {
		w := send(http.MethodPost, `{"name":`, 0)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decode(t, w).Error.Code)
	})
}
