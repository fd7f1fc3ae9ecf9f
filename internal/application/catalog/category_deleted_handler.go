package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
	"github.com/storefront/merchandising/internal/domain/shared"
	"go.uber.org/zap"
)

// PlacementReferenceFinder finds the placement lists that still reference a category
type PlacementReferenceFinder interface {
	PositionsReferencing(ctx context.Context, merchantID, categoryID uuid.UUID) ([]catalog.Position, error)
}

// DanglingPlacementNotifier is told about placements left pointing at a
// deleted category. Deleting a category never removes its placements.
type DanglingPlacementNotifier interface {
	NotifyDanglingPlacement(ctx context.Context, notification DanglingPlacementNotification) error
}

// DanglingPlacementNotification describes one deleted category that is still placed
type DanglingPlacementNotification struct {
	MerchantID string   `json:"merchant_id"`
	CategoryID string   `json:"category_id"`
	Positions  []string `json:"positions"`
}

// CategoryDeletedHandler handles CategoryDeletedEvent and reports
// placement lists that still reference the deleted category
type CategoryDeletedHandler struct {
	logger   *zap.Logger
	finder   PlacementReferenceFinder
	notifier DanglingPlacementNotifier
}

// NewCategoryDeletedHandler creates a new handler for category deleted events
func NewCategoryDeletedHandler(finder PlacementReferenceFinder, logger *zap.Logger) *CategoryDeletedHandler {
	return &CategoryDeletedHandler{
		logger: logger,
		finder: finder,
	}
}

// WithNotifier sets the notifier for dangling placements
func (h *CategoryDeletedHandler) WithNotifier(notifier DanglingPlacementNotifier) *CategoryDeletedHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *CategoryDeletedHandler) EventTypes() []string {
	return []string{catalog.EventTypeCategoryDeleted}
}

// Handle processes a CategoryDeletedEvent
func (h *CategoryDeletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	deleted, ok := event.(*catalog.CategoryDeletedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", catalog.EventTypeCategoryDeleted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			catalog.EventTypeCategoryDeleted, event.EventType())
	}

	positions, err := h.finder.PositionsReferencing(ctx, event.MerchantID(), deleted.CategoryID)
	if err != nil {
		return fmt.Errorf("find placements of deleted category: %w", err)
	}
	if len(positions) == 0 {
		return nil
	}

	names := make([]string, len(positions))
	for i, p := range positions {
		names[i] = string(p)
	}
	h.logger.Warn("deleted category is still placed",
		zap.String("merchant_id", event.MerchantID().String()),
		zap.String("category_id", deleted.CategoryID.String()),
		zap.Strings("positions", names),
	)

	if h.notifier != nil {
		notification := DanglingPlacementNotification{
			MerchantID: event.MerchantID().String(),
			CategoryID: deleted.CategoryID.String(),
			Positions:  names,
		}
		if err := h.notifier.NotifyDanglingPlacement(ctx, notification); err != nil {
			h.logger.Error("failed to send dangling placement notification",
				zap.String("category_id", notification.CategoryID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Ensure CategoryDeletedHandler implements shared.EventHandler
var _ shared.EventHandler = (*CategoryDeletedHandler)(nil)
