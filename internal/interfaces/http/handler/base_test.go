package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
	"github.com/storefront/merchandising/internal/interfaces/http/dto"
	"github.com/storefront/merchandising/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*gin.Context)
		expectedID string
	}{
		{
			name: "from context",
			setup: func(c *gin.Context) {
				c.Set(middleware.RequestIDKey, "ctx-request-id")
			},
			expectedID: "ctx-request-id",
		},
		{
			name: "from header when context empty",
			setup: func(c *gin.Context) {
				c.Request.Header.Set(middleware.RequestIDHeader, "header-request-id")
			},
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(c *gin.Context) {},
			expectedID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(c)

			assert.Equal(t, tt.expectedID, getRequestID(c))
		})
	}
}

func TestBaseHandlerSuccessAndCreated(t *testing.T) {
	h := &BaseHandler{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	h.Success(c, map[string]string{"key": "value"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	h.Created(c, map[string]string{"id": "123"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{"validation", catalog.NewValidationError("Slug %q is already in use", "shoes"), http.StatusBadRequest, dto.ErrCodeValidation},
		{"not found", catalog.NewNotFoundError("Category", uuid.New()), http.StatusNotFound, dto.ErrCodeNotFound},
		{"depth exceeded", catalog.NewDepthExceededError(3), http.StatusUnprocessableEntity, dto.ErrCodeDepthExceeded},
		{"unknown parent", catalog.NewReferentialIntegrityError(uuid.New()), http.StatusUnprocessableEntity, dto.ErrCodeReferentialIntegrity},
		{"deletion blocked", catalog.NewDeletionBlockedError("Category has children"), http.StatusConflict, dto.ErrCodeDeletionBlocked},
		{"capacity", catalog.NewCapacityExceededError(catalog.PositionHomepage, 7), http.StatusConflict, dto.ErrCodeCapacityExceeded},
		{"duplicate", catalog.NewDuplicatePlacementError(catalog.PositionSidebar, uuid.New()), http.StatusConflict, dto.ErrCodeDuplicatePlacement},
		{"conflict", catalog.NewConcurrencyConflictError("stale", nil), http.StatusConflict, dto.ErrCodeConcurrencyConflict},
		{"upload", catalog.NewUploadError(assert.AnError), http.StatusBadGateway, dto.ErrCodeUploadFailed},
		{"wrapped domain error", fmt.Errorf("service: %w", catalog.NewNotFoundError("Category", uuid.New())), http.StatusNotFound, dto.ErrCodeNotFound},
		{"infrastructure error", assert.AnError, http.StatusInternalServerError, dto.ErrCodeInternal},
		{"canceled", context.Canceled, http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Set(middleware.RequestIDKey, "req-9")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
			assert.Equal(t, "req-9", resp.Error.RequestID)
		})
	}
}

func TestBaseHandlerHandleErrorHidesInfrastructureMessage(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.HandleError(c, fmt.Errorf("dial tcp 10.0.0.5:5432: connection refused"))

	resp := decodeResponse(t, w)
	assert.Equal(t, "An unexpected error occurred", resp.Error.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestBaseHandlerHandleErrorNil(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.HandleError(c, nil)
	assert.Empty(t, w.Body.Bytes())
}

func TestBaseHandlerMerchantID(t *testing.T) {
	h := &BaseHandler{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := h.merchantID(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeMerchantRequired, decodeResponse(t, w).Error.Code)

	id := uuid.New()
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Set(middleware.MerchantIDKey, id.String())
	got, ok := h.merchantID(c)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
