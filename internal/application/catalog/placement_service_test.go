package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
	"github.com/storefront/merchandising/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type placementServiceFixture struct {
	svc        *PlacementService
	placements *MockPlacementRepository
	categories *MockCategoryRepository
	uploader   *MockMediaUploader
	locker     *recordingLocker
}

func newPlacementServiceFixture(t *testing.T) *placementServiceFixture {
	f := &placementServiceFixture{
		placements: new(MockPlacementRepository),
		categories: new(MockCategoryRepository),
		uploader:   new(MockMediaUploader),
		locker:     &recordingLocker{},
	}
	f.svc = NewPlacementService(f.placements, f.categories, f.uploader, f.locker,
		catalog.DefaultPlacementCapacity(), zaptest.NewLogger(t))
	return f
}

func storedSlot(id string, categoryID uuid.UUID, order int) catalog.PlacementSlot {
	return catalog.PlacementSlot{
		ID:           id,
		MerchantID:   newTestMerchantID(),
		CategoryID:   categoryID,
		CategoryName: "Category " + id,
		Position:     catalog.PositionHomepage,
		Order:        order,
	}
}

func fullHomepageSlots() []catalog.PlacementSlot {
	slots := make([]catalog.PlacementSlot, 0, catalog.DefaultHomepageCapacity)
	for i := 1; i <= catalog.DefaultHomepageCapacity; i++ {
		slots = append(slots, storedSlot(fmt.Sprintf("p%d", i), uuid.New(), i))
	}
	return slots
}

func categoryRef(id uuid.UUID, name string) *catalog.Category {
	c := testCategory(id, nil, 0, name, strings.ToLower(name))
	return &c
}

func TestPlacementService_ListLoadsOnce(t *testing.T) {
	ctx := context.Background()
	merchantID := newTestMerchantID()
	f := newPlacementServiceFixture(t)
	slots := []catalog.PlacementSlot{storedSlot("p1", uuid.New(), 1)}
	f.placements.On("FindByPosition", ctx, merchantID, catalog.PositionHomepage).Return(slots, nil).Once()

	first, err := f.svc.List(ctx, merchantID, "homepage")
	require.NoError(t, err)
	second, err := f.svc.List(ctx, merchantID, "HOMEPAGE")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 7, first.Capacity)
	assert.False(t, first.Dirty)
	require.Len(t, first.Slots, 1)
	assert.True(t, first.Slots[0].Persisted)
	f.placements.AssertNumberOfCalls(t, "FindByPosition", 1)
}

func TestPlacementService_UnknownPosition(t *testing.T) {
	f := newPlacementServiceFixture(t)
	_, err := f.svc.List(context.Background(), newTestMerchantID(), "FOOTER")
	assert.True(t, shared.HasCode(err, catalog.CodeValidation))
}

func TestPlacementService_Add(t *testing.T) {
	ctx := context.Background()
	merchantID := newTestMerchantID()

	t.Run("eighth homepage item is rejected and the list is unchanged", func(t *testing.T) {
		f := newPlacementServiceFixture(t)
		slots := fullHomepageSlots()
		f.placements.On("FindByPosition", ctx, merchantID, catalog.PositionHomepage).Return(slots, nil)
		eighth := uuid.New()
		f.categories.On("FindByIDForMerchant", ctx, merchantID, eighth).Return(categoryRef(eighth, "Eighth"), nil)

		before, err := f.svc.List(ctx, merchantID, "HOMEPAGE")
		require.NoError(t, err)

		_, err = f.svc.Add(ctx, merchantID, "HOMEPAGE", AddPlacementRequest{CategoryID: eighth})
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, catalog.CodeCapacityExceeded))

		after, err := f.svc.List(ctx, merchantID, "HOMEPAGE")
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assert.Len(t, after.Slots, 7)
	})

	t.Run("duplicate category", func(t *testing.T) {
		f := newPlacementServiceFixture(t)
		cat := uuid.New()
		f.placements.On("FindByPosition", ctx, merchantID, catalog.PositionSidebar).Return([]catalog.PlacementSlot{}, nil)
		f.categories.On("FindByIDForMerchant", ctx, merchantID, cat).Return(categoryRef(cat, "Shoes"), nil)

		resp, err := f.svc.Add(ctx, merchantID, "SIDEBAR", AddPlacementRequest{CategoryID: cat})
		require.NoError(t, err)
		assert.True(t, resp.Dirty)
		require.Len(t, resp.Slots, 1)
		assert.Equal(t, "Shoes", resp.Slots[0].CategoryName)
		assert.False(t, resp.Slots[0].Persisted)

		_, err = f.svc.Add(ctx, merchantID, "SIDEBAR", AddPlacementRequest{CategoryID: cat})
		assert.True(t, shared.HasCode(err, catalog.CodeDuplicatePlacement))
	})

	t.Run("unknown category", func(t *testing.T) {
		f := newPlacementServiceFixture(t)
		cat := uuid.New()
		f.categories.On("FindByIDForMerchant", ctx, merchantID, cat).Return(nil, catalog.NewNotFoundError("Category", cat))

		_, err := f.svc.Add(ctx, merchantID, "SIDEBAR", AddPlacementRequest{CategoryID: cat})
		assert.True(t, shared.HasCode(err, catalog.CodeNotFound))
		f.placements.AssertNotCalled(t, "FindByPosition", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPlacementService_RemoveAndSave(t *testing.T) {
	ctx := context.Background()
	merchantID := newTestMerchantID()
	f := newPlacementServiceFixture(t)
	x, y := uuid.New(), uuid.New()
	f.placements.On("FindByPosition", ctx, merchantID, catalog.PositionHomepage).
		Return([]catalog.PlacementSlot{storedSlot("p1", x, 1), storedSlot("p2", y, 2)}, nil)

	resp, err := f.svc.Remove(ctx, merchantID, "HOMEPAGE", x)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, resp.PendingRemovals)
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, 1, resp.Slots[0].Order)

	expected := catalog.SaveSet{
		RemovedIDs: []string{"p1"},
		Upserts:    []catalog.PlacementSlot{storedSlot("p2", y, 1)},
		Baseline:   []string{"p1", "p2"},
		Capacity:   catalog.DefaultHomepageCapacity,
	}
	f.placements.On("ApplySaveSet", ctx, merchantID, catalog.PositionHomepage, expected).
		Return([]catalog.PlacementSlot{storedSlot("p2", y, 1)}, nil).Once()

	result, err := f.svc.Save(ctx, merchantID, "HOMEPAGE")
	require.NoError(t, err)
	assert.True(t, result.Saved)
	assert.Equal(t, 1, result.RemovedCount)
	assert.Equal(t, 1, result.UpsertedCount)
	assert.False(t, result.List.Dirty)
	assert.Empty(t, result.List.PendingRemovals)

	again, err := f.svc.Save(ctx, merchantID, "HOMEPAGE")
	require.NoError(t, err)
	assert.False(t, again.Saved, "clean list sends nothing")
	f.placements.AssertNumberOfCalls(t, "ApplySaveSet", 1)
}

func TestPlacementService_FailedSaveStaysDirty(t *testing.T) {
	ctx := context.Background()
	merchantID := newTestMerchantID()
	f := newPlacementServiceFixture(t)
	x, y := uuid.New(), uuid.New()
	f.placements.On("FindByPosition", ctx, merchantID, catalog.PositionHomepage).
		Return([]catalog.PlacementSlot{storedSlot("p1", x, 1)}, nil)
	f.categories.On("FindByIDForMerchant", ctx, merchantID, y).Return(categoryRef(y, "Bags"), nil)

	_, err := f.svc.Add(ctx, merchantID, "HOMEPAGE", AddPlacementRequest{CategoryID: y})
	require.NoError(t, err)

	cctx, cancel := context.WithCancel(ctx)
	f.placements.On("ApplySaveSet", cctx, merchantID, catalog.PositionHomepage, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled).Once()

	_, err = f.svc.Save(cctx, merchantID, "HOMEPAGE")
	require.ErrorIs(t, err, context.Canceled)

	list, err := f.svc.List(ctx, merchantID, "HOMEPAGE")
	require.NoError(t, err)
	assert.True(t, list.Dirty, "cancelled save keeps the edits")
	require.Len(t, list.Slots, 2)

	_, err = f.svc.Remove(ctx, merchantID, "HOMEPAGE", x)
	require.NoError(t, err)

	retry := catalog.SaveSet{
		RemovedIDs: []string{"p1"},
		Upserts: []catalog.PlacementSlot{{
			MerchantID:   merchantID,
			CategoryID:   y,
			CategoryName: "Bags",
			Position:     catalog.PositionHomepage,
			Order:        1,
		}},
		Baseline: []string{"p1"},
		Capacity: catalog.DefaultHomepageCapacity,
	}
	f.placements.On("ApplySaveSet", ctx, merchantID, catalog.PositionHomepage, retry).
		Return([]catalog.PlacementSlot{storedSlot("p7", y, 1)}, nil).Once()

	result, err := f.svc.Save(ctx, merchantID, "HOMEPAGE")
	require.NoError(t, err)
	assert.True(t, result.Saved)
	assert.Equal(t, "p7", result.List.Slots[0].ID)
}

func TestPlacementService_ReorderAndMove(t *testing.T) {
	ctx := context.Background()
	merchantID := newTestMerchantID()
	f := newPlacementServiceFixture(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	f.placements.On("FindByPosition", ctx, merchantID, catalog.PositionHomepage).
		Return([]catalog.PlacementSlot{storedSlot("p1", a, 1), storedSlot("p2", b, 2), storedSlot("p3", c, 3)}, nil)

	resp, err := f.svc.Reorder(ctx, merchantID, "HOMEPAGE", ReorderPlacementsRequest{CategoryIDs: []uuid.UUID{c, a, b}})
	require.NoError(t, err)
	assert.Equal(t, c, resp.Slots[0].CategoryID)
	assert.Equal(t, 3, resp.Slots[2].Order)

	resp, err = f.svc.Move(ctx, merchantID, "HOMEPAGE", b, MovePlacementRequest{Delta: -2})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b, c, a}, []uuid.UUID{resp.Slots[0].CategoryID, resp.Slots[1].CategoryID, resp.Slots[2].CategoryID})

	_, err = f.svc.Reorder(ctx, merchantID, "HOMEPAGE", ReorderPlacementsRequest{CategoryIDs: []uuid.UUID{a}})
	assert.True(t, shared.HasCode(err, catalog.CodeValidation))

	_, err = f.svc.Move(ctx, merchantID, "HOMEPAGE", b, MovePlacementRequest{})
	assert.True(t, shared.HasCode(err, catalog.CodeValidation))
}

func TestPlacementService_Media(t *testing.T) {
	ctx := context.Background()
	merchantID := newTestMerchantID()
	x := uuid.New()
	file := catalog.MediaFile{Name: "banner.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}

	t.Run("upload then attach", func(t *testing.T) {
		f := newPlacementServiceFixture(t)
		f.placements.On("FindByPosition", ctx, merchantID, catalog.PositionHomepage).
			Return([]catalog.PlacementSlot{storedSlot("p1", x, 1)}, nil)
		f.uploader.On("Upload", ctx, file, catalog.MediaTypeImage).Return("https://cdn.example.com/banner.png", nil)

		resp, err := f.svc.UploadMedia(ctx, merchantID, "HOMEPAGE", x, file, "image")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/banner.png", resp.Slots[0].ThumbnailURL)
		assert.Equal(t, "IMAGE", resp.Slots[0].MediaType)
		assert.True(t, resp.Dirty)
	})

	t.Run("upload failure passes through as upload error", func(t *testing.T) {
		f := newPlacementServiceFixture(t)
		f.placements.On("FindByPosition", ctx, merchantID, catalog.PositionHomepage).
			Return([]catalog.PlacementSlot{storedSlot("p1", x, 1)}, nil)
		cause := errors.New("bucket unavailable")
		f.uploader.On("Upload", ctx, file, catalog.MediaTypeVideo).Return("", cause)

		_, err := f.svc.UploadMedia(ctx, merchantID, "HOMEPAGE", x, file, "VIDEO")
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, catalog.CodeUploadFailed))
		assert.ErrorIs(t, err, cause)

		list, err := f.svc.List(ctx, merchantID, "HOMEPAGE")
		require.NoError(t, err)
		assert.False(t, list.Dirty)
	})

	t.Run("slot must exist before uploading", func(t *testing.T) {
		f := newPlacementServiceFixture(t)
		f.placements.On("FindByPosition", ctx, merchantID, catalog.PositionHomepage).Return([]catalog.PlacementSlot{}, nil)

		_, err := f.svc.UploadMedia(ctx, merchantID, "HOMEPAGE", x, file, "IMAGE")
		assert.True(t, shared.HasCode(err, catalog.CodeNotFound))
		f.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("set media by url", func(t *testing.T) {
		f := newPlacementServiceFixture(t)
		f.placements.On("FindByPosition", ctx, merchantID, catalog.PositionHomepage).
			Return([]catalog.PlacementSlot{storedSlot("p1", x, 1)}, nil)

		resp, err := f.svc.SetMedia(ctx, merchantID, "HOMEPAGE", x, SetMediaRequest{URL: "https://cdn.example.com/v.mp4", MediaType: "VIDEO"})
		require.NoError(t, err)
		assert.Equal(t, "VIDEO", resp.Slots[0].MediaType)

		_, err = f.svc.SetMedia(ctx, merchantID, "HOMEPAGE", x, SetMediaRequest{URL: "not a url", MediaType: "VIDEO"})
		assert.True(t, shared.HasCode(err, catalog.CodeValidation))
	})
}

func TestPlacementService_Discard(t *testing.T) {
	ctx := context.Background()
	merchantID := newTestMerchantID()
	f := newPlacementServiceFixture(t)
	x := uuid.New()
	f.placements.On("FindByPosition", ctx, merchantID, catalog.PositionHomepage).
		Return([]catalog.PlacementSlot{storedSlot("p1", x, 1)}, nil)

	_, err := f.svc.Remove(ctx, merchantID, "HOMEPAGE", x)
	require.NoError(t, err)

	resp, err := f.svc.Discard(ctx, merchantID, "HOMEPAGE")
	require.NoError(t, err)
	assert.False(t, resp.Dirty)
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, "p1", resp.Slots[0].ID)
}

func TestPlacementService_EvictsIdleCleanSessions(t *testing.T) {
	ctx := context.Background()
	merchantID := newTestMerchantID()
	other := uuid.New()
	x := uuid.New()

	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	placements := new(MockPlacementRepository)
	categories := new(MockCategoryRepository)
	svc := NewPlacementService(placements, categories, nil, &recordingLocker{},
		catalog.DefaultPlacementCapacity(), zaptest.NewLogger(t),
		WithSessionIdleTTL(time.Minute),
		withClock(func() time.Time { return now }),
	)
	placements.On("FindByPosition", ctx, mock.Anything, mock.Anything).Return([]catalog.PlacementSlot{}, nil)
	categories.On("FindByIDForMerchant", ctx, merchantID, x).Return(categoryRef(x, "Bags"), nil)

	_, err := svc.List(ctx, merchantID, "HOMEPAGE")
	require.NoError(t, err)
	_, err = svc.Add(ctx, merchantID, "SIDEBAR", AddPlacementRequest{CategoryID: x})
	require.NoError(t, err)
	assert.Equal(t, 2, svc.sessionCount())

	now = now.Add(2 * time.Minute)
	_, err = svc.List(ctx, other, "HOMEPAGE")
	require.NoError(t, err)
	assert.Equal(t, 2, svc.sessionCount(), "clean idle list dropped, dirty one kept")

	sidebar, err := svc.List(ctx, merchantID, "SIDEBAR")
	require.NoError(t, err)
	assert.True(t, sidebar.Dirty, "unsaved edits survive eviction")
	require.Len(t, sidebar.Slots, 1)

	_, err = svc.List(ctx, merchantID, "HOMEPAGE")
	require.NoError(t, err)
	placements.AssertNumberOfCalls(t, "FindByPosition", 4)
}

func TestPlacementService_LockKeysPerPosition(t *testing.T) {
	ctx := context.Background()
	merchantID := newTestMerchantID()
	f := newPlacementServiceFixture(t)
	x := uuid.New()
	f.placements.On("FindByPosition", ctx, merchantID, mock.Anything).Return([]catalog.PlacementSlot{}, nil)
	f.categories.On("FindByIDForMerchant", ctx, merchantID, x).Return(categoryRef(x, "Bags"), nil)

	_, err := f.svc.Add(ctx, merchantID, "HOMEPAGE", AddPlacementRequest{CategoryID: x})
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, merchantID, "SIDEBAR", AddPlacementRequest{CategoryID: x})
	require.NoError(t, err)

	assert.Equal(t, []string{
		PlacementLockKey(merchantID, catalog.PositionHomepage),
		PlacementLockKey(merchantID, catalog.PositionSidebar),
	}, f.locker.Keys())
}

// mutexLocker is a per-key mutex locker for concurrency tests
type mutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *mutexLocker) Lock(ctx context.Context, key string) (shared.UnlockFunc, error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}

// staticCategories serves category lookups from a map
type staticCategories struct {
	MockCategoryRepository
	byID map[uuid.UUID]*catalog.Category
}

func (s *staticCategories) FindByIDForMerchant(_ context.Context, _ uuid.UUID, id uuid.UUID) (*catalog.Category, error) {
	if c, ok := s.byID[id]; ok {
		return c, nil
	}
	return nil, catalog.NewNotFoundError("Category", id)
}

func TestPlacementService_ConcurrentAddsRespectCapacity(t *testing.T) {
	ctx := context.Background()
	merchantID := newTestMerchantID()
	placements := new(MockPlacementRepository)
	placements.On("FindByPosition", mock.Anything, merchantID, catalog.PositionSidebar).Return([]catalog.PlacementSlot{}, nil)

	categories := &staticCategories{byID: make(map[uuid.UUID]*catalog.Category)}
	ids := make([]uuid.UUID, 25)
	for i := range ids {
		ids[i] = uuid.New()
		categories.byID[ids[i]] = categoryRef(ids[i], fmt.Sprintf("C%d", i))
	}

	svc := NewPlacementService(placements, categories, nil, &mutexLocker{},
		catalog.DefaultPlacementCapacity(), zaptest.NewLogger(t))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var added, rejected int
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := svc.Add(ctx, merchantID, "SIDEBAR", AddPlacementRequest{CategoryID: id})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				added++
			} else if shared.HasCode(err, catalog.CodeCapacityExceeded) {
				rejected++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, catalog.DefaultSidebarCapacity, added)
	assert.Equal(t, len(ids)-catalog.DefaultSidebarCapacity, rejected)

	list, err := svc.List(ctx, merchantID, "SIDEBAR")
	require.NoError(t, err)
	for i, slot := range list.Slots {
		assert.Equal(t, i+1, slot.Order)
	}
}
