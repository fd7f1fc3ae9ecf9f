package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
	"github.com/storefront/merchandising/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockCategoryRepository is a mock implementation of CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) FindAllForMerchant(ctx context.Context, merchantID uuid.UUID) ([]catalog.Category, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindByIDForMerchant(ctx context.Context, merchantID, id uuid.UUID) (*catalog.Category, error) {
	args := m.Called(ctx, merchantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *catalog.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) SaveAll(ctx context.Context, categories []*catalog.Category) error {
	args := m.Called(ctx, categories)
	return args.Error(0)
}

func (m *MockCategoryRepository) DeleteAll(ctx context.Context, categories []*catalog.Category) error {
	args := m.Called(ctx, categories)
	return args.Error(0)
}

// MockProductCatalog is a mock implementation of ProductCatalog
type MockProductCatalog struct {
	mock.Mock
}

func (m *MockProductCatalog) CountProducts(ctx context.Context, merchantID, categoryID uuid.UUID) (int64, error) {
	args := m.Called(ctx, merchantID, categoryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductCatalog) CountProductsByCategory(ctx context.Context, merchantID uuid.UUID) (map[uuid.UUID]int64, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]int64), args.Error(1)
}

// MockPlacementRepository is a mock implementation of PlacementRepository
type MockPlacementRepository struct {
	mock.Mock
}

func (m *MockPlacementRepository) FindByPosition(ctx context.Context, merchantID uuid.UUID, position catalog.Position) ([]catalog.PlacementSlot, error) {
	args := m.Called(ctx, merchantID, position)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.PlacementSlot), args.Error(1)
}

func (m *MockPlacementRepository) FindAllForMerchant(ctx context.Context, merchantID uuid.UUID) ([]catalog.PlacementSlot, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.PlacementSlot), args.Error(1)
}

func (m *MockPlacementRepository) ApplySaveSet(ctx context.Context, merchantID uuid.UUID, position catalog.Position, set catalog.SaveSet) ([]catalog.PlacementSlot, error) {
	args := m.Called(ctx, merchantID, position, set)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.PlacementSlot), args.Error(1)
}

// MockMediaUploader is a mock implementation of MediaUploader
type MockMediaUploader struct {
	mock.Mock
}

func (m *MockMediaUploader) Upload(ctx context.Context, file catalog.MediaFile, kind catalog.MediaType) (string, error) {
	args := m.Called(ctx, file, kind)
	return args.String(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// recordingLocker grants every lock immediately and remembers the keys
type recordingLocker struct {
	mu   sync.Mutex
	keys []string
}

func (l *recordingLocker) Lock(ctx context.Context, key string) (shared.UnlockFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()
	return func() {}, nil
}

func (l *recordingLocker) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.keys...)
}

var (
	_ catalog.CategoryRepository  = (*MockCategoryRepository)(nil)
	_ catalog.ProductCatalog      = (*MockProductCatalog)(nil)
	_ catalog.PlacementRepository = (*MockPlacementRepository)(nil)
	_ catalog.MediaUploader       = (*MockMediaUploader)(nil)
	_ shared.EventPublisher       = (*MockEventPublisher)(nil)
	_ shared.KeyedLocker          = (*recordingLocker)(nil)
)
