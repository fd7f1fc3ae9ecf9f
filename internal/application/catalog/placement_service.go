package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
	"github.com/storefront/merchandising/internal/domain/shared"
	"go.uber.org/zap"
)

type sessionKey struct {
	merchantID uuid.UUID
	position   catalog.Position
}

// DefaultSessionIdleTTL is how long a clean working copy stays cached
const DefaultSessionIdleTTL = 30 * time.Minute

// placementSession holds the working copy of one placement list. Readers
// load the published snapshot without locking; writers hold the list's
// keyed lock, edit a clone and publish it only when the edit succeeded.
type placementSession struct {
	list     atomic.Pointer[catalog.PlacementList]
	lastUsed time.Time // guarded by PlacementService.mu
}

// idle reports whether the session can be dropped without losing edits
func (p *placementSession) idle(cutoff time.Time) bool {
	if !p.lastUsed.Before(cutoff) {
		return false
	}
	l := p.list.Load()
	return l == nil || !l.IsDirty()
}

// PlacementServiceOption configures a PlacementService
type PlacementServiceOption func(*PlacementService)

// WithSessionIdleTTL sets how long a clean working copy is kept after its
// last use. Lists with unsaved edits are never dropped.
func WithSessionIdleTTL(ttl time.Duration) PlacementServiceOption {
	return func(s *PlacementService) {
		if ttl > 0 {
			s.idleTTL = ttl
		}
	}
}

// withClock replaces the session clock in tests
func withClock(now func() time.Time) PlacementServiceOption {
	return func(s *PlacementService) { s.now = now }
}

// PlacementService edits the curated HOMEPAGE and SIDEBAR lists. Edits are
// kept per merchant and position until Save sends the computed save set to
// persistence. Working copies without unsaved edits are dropped once idle
// for the session TTL and reloaded on next use, so the cache holds the
// recently used lists plus every list with pending edits.
type PlacementService struct {
	placementRepo catalog.PlacementRepository
	categoryRepo  catalog.CategoryRepository
	uploader      catalog.MediaUploader
	locker        shared.KeyedLocker
	capacity      catalog.PlacementCapacity
	logger        *zap.Logger

	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	sessions  map[sessionKey]*placementSession
	lastSweep time.Time
}

// NewPlacementService creates a new PlacementService
func NewPlacementService(
	placementRepo catalog.PlacementRepository,
	categoryRepo catalog.CategoryRepository,
	uploader catalog.MediaUploader,
	locker shared.KeyedLocker,
	capacity catalog.PlacementCapacity,
	logger *zap.Logger,
	opts ...PlacementServiceOption,
) *PlacementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PlacementService{
		placementRepo: placementRepo,
		categoryRepo:  categoryRepo,
		uploader:      uploader,
		locker:        locker,
		capacity:      capacity,
		logger:        logger,
		idleTTL:       DefaultSessionIdleTTL,
		now:           time.Now,
		sessions:      make(map[sessionKey]*placementSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the current working state of a list, including unsaved edits
func (s *PlacementService) List(ctx context.Context, merchantID uuid.UUID, position string) (*PlacementListResponse, error) {
	pos, err := catalog.ParsePosition(position)
	if err != nil {
		return nil, err
	}
	list, err := s.snapshot(ctx, merchantID, pos)
	if err != nil {
		return nil, err
	}
	resp := ToPlacementListResponse(list)
	return &resp, nil
}

// Add places a category at the end of a list
func (s *PlacementService) Add(ctx context.Context, merchantID uuid.UUID, position string, req AddPlacementRequest) (*PlacementListResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	category, err := s.categoryRepo.FindByIDForMerchant(ctx, merchantID, req.CategoryID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, merchantID, position, func(l *catalog.PlacementList) error {
		_, err := l.Add(category.ID, category.Name)
		return err
	})
}

// Remove drops a category from a list
func (s *PlacementService) Remove(ctx context.Context, merchantID uuid.UUID, position string, categoryID uuid.UUID) (*PlacementListResponse, error) {
	return s.mutate(ctx, merchantID, position, func(l *catalog.PlacementList) error {
		return l.Remove(categoryID)
	})
}

// Reorder applies a full new order to a list
func (s *PlacementService) Reorder(ctx context.Context, merchantID uuid.UUID, position string, req ReorderPlacementsRequest) (*PlacementListResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, merchantID, position, func(l *catalog.PlacementList) error {
		return l.Reorder(req.CategoryIDs)
	})
}

// Move shifts one category up or down the list
func (s *PlacementService) Move(ctx context.Context, merchantID uuid.UUID, position string, categoryID uuid.UUID, req MovePlacementRequest) (*PlacementListResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, merchantID, position, func(l *catalog.PlacementList) error {
		return l.Move(categoryID, req.Delta)
	})
}

// SetMedia attaches an already uploaded media URL to a slot
func (s *PlacementService) SetMedia(ctx context.Context, merchantID uuid.UUID, position string, categoryID uuid.UUID, req SetMediaRequest) (*PlacementListResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	mediaType, err := catalog.ParseMediaType(req.MediaType)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, merchantID, position, func(l *catalog.PlacementList) error {
		return l.SetMedia(categoryID, req.URL, mediaType)
	})
}

// UploadMedia uploads a file through the media collaborator and attaches
// the resulting URL to the slot. The upload runs outside the list lock.
func (s *PlacementService) UploadMedia(ctx context.Context, merchantID uuid.UUID, position string, categoryID uuid.UUID, file catalog.MediaFile, kind string) (*PlacementListResponse, error) {
	pos, err := catalog.ParsePosition(position)
	if err != nil {
		return nil, err
	}
	mediaType, err := catalog.ParseMediaType(kind)
	if err != nil {
		return nil, err
	}
	current, err := s.snapshot(ctx, merchantID, pos)
	if err != nil {
		return nil, err
	}
	if !current.Contains(categoryID) {
		return nil, catalog.NewNotFoundError("Placement for category", categoryID)
	}

	url, err := s.uploader.Upload(ctx, file, mediaType)
	if err != nil {
		s.logger.Warn("media upload failed",
			zap.String("merchant_id", merchantID.String()),
			zap.String("category_id", categoryID.String()),
			zap.Error(err),
		)
		if shared.ErrorCode(err) != "" {
			return nil, err
		}
		return nil, catalog.NewUploadError(err)
	}

	return s.mutate(ctx, merchantID, position, func(l *catalog.PlacementList) error {
		return l.SetMedia(categoryID, url, mediaType)
	})
}

// Save persists the list's pending edits as one delete-then-upsert. On any
// failure, cancellation included, the list keeps its unsaved edits and the
// next Save recomputes the save set from them.
func (s *PlacementService) Save(ctx context.Context, merchantID uuid.UUID, position string) (*SaveResult, error) {
	pos, err := catalog.ParsePosition(position)
	if err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, PlacementLockKey(merchantID, pos))
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.loadLocked(ctx, merchantID, pos)
	if err != nil {
		return nil, err
	}
	current := sess.list.Load()
	if !current.IsDirty() {
		return &SaveResult{List: ToPlacementListResponse(current)}, nil
	}

	set := current.ComputeSaveSet()
	persisted, err := s.placementRepo.ApplySaveSet(ctx, merchantID, pos, set)
	if err != nil {
		s.logger.Warn("placement save failed",
			zap.String("merchant_id", merchantID.String()),
			zap.String("position", string(pos)),
			zap.Error(err),
		)
		return nil, err
	}

	saved := current.Clone()
	saved.MarkSaved(persisted)
	sess.list.Store(saved)

	s.logger.Info("placements saved",
		zap.String("merchant_id", merchantID.String()),
		zap.String("position", string(pos)),
		zap.Int("removed", len(set.RemovedIDs)),
		zap.Int("upserted", len(set.Upserts)),
	)
	return &SaveResult{
		Saved:         true,
		RemovedCount:  len(set.RemovedIDs),
		UpsertedCount: len(set.Upserts),
		List:          ToPlacementListResponse(saved),
	}, nil
}

// Discard drops unsaved edits and reloads the list from persistence
func (s *PlacementService) Discard(ctx context.Context, merchantID uuid.UUID, position string) (*PlacementListResponse, error) {
	pos, err := catalog.ParsePosition(position)
	if err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, PlacementLockKey(merchantID, pos))
	if err != nil {
		return nil, err
	}
	defer unlock()

	fresh, err := s.fetch(ctx, merchantID, pos)
	if err != nil {
		return nil, err
	}
	s.session(merchantID, pos).list.Store(fresh)

	resp := ToPlacementListResponse(fresh)
	return &resp, nil
}

func (s *PlacementService) mutate(ctx context.Context, merchantID uuid.UUID, position string, edit func(*catalog.PlacementList) error) (*PlacementListResponse, error) {
	pos, err := catalog.ParsePosition(position)
	if err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, PlacementLockKey(merchantID, pos))
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.loadLocked(ctx, merchantID, pos)
	if err != nil {
		return nil, err
	}
	working := sess.list.Load().Clone()
	if err := edit(working); err != nil {
		return nil, err
	}
	sess.list.Store(working)

	resp := ToPlacementListResponse(working)
	return &resp, nil
}

// snapshot returns the published list, loading it on first use
func (s *PlacementService) snapshot(ctx context.Context, merchantID uuid.UUID, pos catalog.Position) (*catalog.PlacementList, error) {
	if l := s.session(merchantID, pos).list.Load(); l != nil {
		return l, nil
	}
	unlock, err := s.locker.Lock(ctx, PlacementLockKey(merchantID, pos))
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.loadLocked(ctx, merchantID, pos)
	if err != nil {
		return nil, err
	}
	return sess.list.Load(), nil
}

// loadLocked returns the session with a published list. The caller must
// hold the list's keyed lock.
func (s *PlacementService) loadLocked(ctx context.Context, merchantID uuid.UUID, pos catalog.Position) (*placementSession, error) {
	sess := s.session(merchantID, pos)
	if sess.list.Load() != nil {
		return sess, nil
	}
	fresh, err := s.fetch(ctx, merchantID, pos)
	if err != nil {
		return nil, err
	}
	sess.list.Store(fresh)
	return sess, nil
}

func (s *PlacementService) fetch(ctx context.Context, merchantID uuid.UUID, pos catalog.Position) (*catalog.PlacementList, error) {
	slots, err := s.placementRepo.FindByPosition(ctx, merchantID, pos)
	if err != nil {
		return nil, err
	}
	return catalog.NewPlacementList(merchantID, pos, s.capacity.For(pos), slots), nil
}

func (s *PlacementService) session(merchantID uuid.UUID, pos catalog.Position) *placementSession {
	key := sessionKey{merchantID: merchantID, position: pos}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idleTTL/2 {
		s.evictIdleLocked(now)
		s.lastSweep = now
	}
	sess, ok := s.sessions[key]
	if !ok {
		sess = &placementSession{}
		s.sessions[key] = sess
	}
	sess.lastUsed = now
	return sess
}

// evictIdleLocked drops clean sessions unused for the idle TTL. The caller
// must hold s.mu.
func (s *PlacementService) evictIdleLocked(now time.Time) {
	cutoff := now.Add(-s.idleTTL)
	evicted := 0
	for key, sess := range s.sessions {
		if sess.idle(cutoff) {
			delete(s.sessions, key)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("evicted idle placement sessions",
			zap.Int("evicted", evicted),
			zap.Int("remaining", len(s.sessions)),
		)
	}
}

// sessionCount returns the number of cached working copies
func (s *PlacementService) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// PositionsReferencing returns the positions whose stored lists still
// place categoryID
func (s *PlacementService) PositionsReferencing(ctx context.Context, merchantID, categoryID uuid.UUID) ([]catalog.Position, error) {
	slots, err := s.placementRepo.FindAllForMerchant(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	var positions []catalog.Position
	seen := make(map[catalog.Position]bool)
	for _, slot := range slots {
		if slot.CategoryID == categoryID && !seen[slot.Position] {
			seen[slot.Position] = true
			positions = append(positions, slot.Position)
		}
	}
	return positions, nil
}
