package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/infrastructure/logger"
	"github.com/storefront/merchandising/internal/interfaces/http/dto"
)

// Merchant context keys
const (
	MerchantIDKey     = "merchant_id"
	MerchantHeaderKey = "X-Merchant-ID"
)

// MerchantConfig holds configuration for the merchant middleware
type MerchantConfig struct {
	// SkipPaths don't require a merchant (health checks)
	SkipPaths []string
}

// DefaultMerchantConfig returns default merchant middleware configuration
func DefaultMerchantConfig() MerchantConfig {
	return MerchantConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready", "/api/v1/health"},
	}
}

// Merchant scopes every request to the merchant named by X-Merchant-ID.
// Requests without a valid merchant UUID are rejected with 400.
func Merchant(cfg MerchantConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip || strings.HasPrefix(path, skip+"/") {
				c.Next()
				return
			}
		}

		raw := strings.TrimSpace(c.GetHeader(MerchantHeaderKey))
		if raw == "" {
			abortMerchant(c, "Merchant identification required")
			return
		}
		merchantID, err := uuid.Parse(raw)
		if err != nil || merchantID == uuid.Nil {
			abortMerchant(c, "Invalid merchant ID format")
			return
		}

		c.Set(MerchantIDKey, merchantID.String())
		c.Request = c.Request.WithContext(logger.WithMerchantID(c.Request.Context(), merchantID.String()))
		c.Next()
	}
}

// GetMerchantID returns the merchant resolved by Merchant
func GetMerchantID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString(MerchantIDKey)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func abortMerchant(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeMerchantRequired, message, c.GetString(RequestIDKey)))
}
