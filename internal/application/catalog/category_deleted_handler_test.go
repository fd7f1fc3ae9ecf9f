package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type MockDanglingPlacementNotifier struct {
	mock.Mock
}

func (m *MockDanglingPlacementNotifier) NotifyDanglingPlacement(ctx context.Context, n DanglingPlacementNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func deletedEvent(t *testing.T, id uuid.UUID) *catalog.CategoryDeletedEvent {
	t.Helper()
	c := testCategory(id, nil, 0, "Sale", "sale")
	return catalog.NewCategoryDeletedEvent(&c)
}

func TestCategoryDeletedHandler(t *testing.T) {
	ctx := context.Background()
	merchantID := newTestMerchantID()
	deletedID := uuid.New()

	t.Run("notifies about lists still placing the category", func(t *testing.T) {
		placements := new(MockPlacementRepository)
		placements.On("FindAllForMerchant", ctx, merchantID).Return([]catalog.PlacementSlot{
			{ID: "p1", CategoryID: deletedID, Position: catalog.PositionHomepage, Order: 1},
			{ID: "s1", CategoryID: uuid.New(), Position: catalog.PositionSidebar, Order: 1},
			{ID: "s2", CategoryID: deletedID, Position: catalog.PositionSidebar, Order: 2},
		}, nil)
		svc := NewPlacementService(placements, nil, nil, &recordingLocker{}, catalog.DefaultPlacementCapacity(), nil)

		notifier := new(MockDanglingPlacementNotifier)
		notifier.On("NotifyDanglingPlacement", ctx, DanglingPlacementNotification{
			MerchantID: merchantID.String(),
			CategoryID: deletedID.String(),
			Positions:  []string{"HOMEPAGE", "SIDEBAR"},
		}).Return(nil)

		h := NewCategoryDeletedHandler(svc, zaptest.NewLogger(t)).WithNotifier(notifier)
		require.NoError(t, h.Handle(ctx, deletedEvent(t, deletedID)))
		notifier.AssertExpectations(t)
	})

	t.Run("no notification when nothing references it", func(t *testing.T) {
		placements := new(MockPlacementRepository)
		placements.On("FindAllForMerchant", ctx, merchantID).Return([]catalog.PlacementSlot{}, nil)
		svc := NewPlacementService(placements, nil, nil, &recordingLocker{}, catalog.DefaultPlacementCapacity(), nil)
		notifier := new(MockDanglingPlacementNotifier)

		h := NewCategoryDeletedHandler(svc, zaptest.NewLogger(t)).WithNotifier(notifier)
		require.NoError(t, h.Handle(ctx, deletedEvent(t, deletedID)))
		notifier.AssertNotCalled(t, "NotifyDanglingPlacement", mock.Anything, mock.Anything)
	})

	t.Run("notifier failure does not fail handling", func(t *testing.T) {
		placements := new(MockPlacementRepository)
		placements.On("FindAllForMerchant", ctx, merchantID).Return([]catalog.PlacementSlot{
			{ID: "p1", CategoryID: deletedID, Position: catalog.PositionHomepage, Order: 1},
		}, nil)
		svc := NewPlacementService(placements, nil, nil, &recordingLocker{}, catalog.DefaultPlacementCapacity(), nil)
		notifier := new(MockDanglingPlacementNotifier)
		notifier.On("NotifyDanglingPlacement", ctx, mock.Anything).Return(errors.New("smtp down"))

		h := NewCategoryDeletedHandler(svc, zaptest.NewLogger(t)).WithNotifier(notifier)
		assert.NoError(t, h.Handle(ctx, deletedEvent(t, deletedID)))
	})

	t.Run("rejects other event types", func(t *testing.T) {
		h := NewCategoryDeletedHandler(nil, zaptest.NewLogger(t))
		c := testCategory(deletedID, nil, 0, "Sale", "sale")
		err := h.Handle(ctx, catalog.NewCategoryUpdatedEvent(&c))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected event type")
	})

	assert.Equal(t, []string{catalog.EventTypeCategoryDeleted}, NewCategoryDeletedHandler(nil, nil).EventTypes())
}
