package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
	"github.com/storefront/merchandising/internal/domain/shared"
	"go.uber.org/zap"
)

// maxLockAttempts bounds how often a subtree lock is retaken when the tree
// is re-rooted between reading it and locking it.
const maxLockAttempts = 3

// CategoryService handles category-related business operations.
// Writes that touch a subtree run under the lock of its root category and
// commit in a single transaction, so reads never see a partial cascade.
type CategoryService struct {
	categoryRepo   catalog.CategoryRepository
	products       catalog.ProductCatalog
	locker         shared.KeyedLocker
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(
	categoryRepo catalog.CategoryRepository,
	products catalog.ProductCatalog,
	locker shared.KeyedLocker,
	logger *zap.Logger,
) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{
		categoryRepo: categoryRepo,
		products:     products,
		locker:       locker,
		logger:       logger,
	}
}

// SetEventPublisher sets the publisher for category domain events
func (s *CategoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new category, as a root when ParentID is nil
func (s *CategoryService) Create(ctx context.Context, merchantID uuid.UUID, req CreateCategoryRequest) (*CategoryResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	var (
		nodes  []catalog.Category
		unlock shared.UnlockFunc
		err    error
	)
	if req.ParentID != nil {
		nodes, unlock, err = s.lockSubtrees(ctx, merchantID, *req.ParentID)
	} else {
		nodes, err = s.categoryRepo.FindAllForMerchant(ctx, merchantID)
		unlock = func() {}
	}
	if err != nil {
		return nil, err
	}
	defer unlock()

	idx := catalog.NewCategoryIndex(nodes)
	if _, err := idx.LevelFor(req.ParentID); err != nil {
		return nil, err
	}
	if err := ensureSlugAvailable(nodes, req.Slug, uuid.Nil); err != nil {
		return nil, err
	}

	var category *catalog.Category
	if req.ParentID != nil {
		parent, _ := idx.Get(*req.ParentID)
		category, err = catalog.NewChildCategory(merchantID, req.Name, req.Slug, req.Description, &parent)
	} else {
		category, err = catalog.NewCategory(merchantID, req.Name, req.Slug, req.Description)
	}
	if err != nil {
		return nil, err
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, category)

	after := catalog.NewCategoryIndex(append(nodes, *category))
	resp := ToCategoryResponse(*category, after)
	return &resp, nil
}

// GetByID retrieves a category with its derived annotations
func (s *CategoryService) GetByID(ctx context.Context, merchantID, id uuid.UUID) (*CategoryResponse, error) {
	nodes, err := s.categoryRepo.FindAllForMerchant(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	idx := catalog.NewCategoryIndex(nodes)
	category, ok := idx.Get(id)
	if !ok {
		return nil, catalog.NewNotFoundError("Category", id)
	}
	count, err := s.products.CountProducts(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	category.ProductCount = count

	resp := ToCategoryResponse(category, idx)
	return &resp, nil
}

// List returns the merchant's categories as a flat list with HasChildren,
// ProductCount and the ancestor path filled in
func (s *CategoryService) List(ctx context.Context, merchantID uuid.UUID) ([]CategoryResponse, error) {
	nodes, idx, err := s.loadAnnotated(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	responses := make([]CategoryResponse, len(nodes))
	for i := range nodes {
		responses[i] = ToCategoryResponse(nodes[i], idx)
	}
	return responses, nil
}

// GetTree returns the merchant's categories as a forest
func (s *CategoryService) GetTree(ctx context.Context, merchantID uuid.UUID) ([]CategoryTreeNode, error) {
	_, idx, err := s.loadAnnotated(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	return toTreeNodes(idx.BuildTree(), idx), nil
}

// Update replaces name, slug and description of a category
func (s *CategoryService) Update(ctx context.Context, merchantID, id uuid.UUID, req UpdateCategoryRequest) (*CategoryResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	nodes, unlock, err := s.lockSubtrees(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	idx := catalog.NewCategoryIndex(nodes)
	current, ok := idx.Get(id)
	if !ok {
		return nil, catalog.NewNotFoundError("Category", id)
	}
	if err := ensureSlugAvailable(nodes, req.Slug, id); err != nil {
		return nil, err
	}

	count, err := s.products.CountProducts(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}

	updated := current.Clone()
	if err := updated.Update(req.Name, req.Slug, req.Description); err != nil {
		return nil, err
	}
	updated.ProductCount = count
	if err := s.categoryRepo.SaveAll(ctx, []*catalog.Category{updated}); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, updated)

	resp := ToCategoryResponse(*updated, catalog.NewCategoryIndex(replaceNodes(nodes, updated)))
	return &resp, nil
}

// Move re-parents a category together with its subtree
func (s *CategoryService) Move(ctx context.Context, merchantID, id uuid.UUID, req MoveCategoryRequest) (*CategoryResponse, error) {
	anchors := []uuid.UUID{id}
	if req.ParentID != nil {
		anchors = append(anchors, *req.ParentID)
	}
	nodes, unlock, err := s.lockSubtrees(ctx, merchantID, anchors...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	plan, err := catalog.PlanMove(nodes, id, req.ParentID)
	if err != nil {
		return nil, err
	}
	count, err := s.products.CountProducts(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	if !plan.IsNoop() {
		if err := s.categoryRepo.SaveAll(ctx, plan.Changes); err != nil {
			return nil, err
		}
		s.publishEvents(ctx, plan.Changes...)
		nodes = replaceNodes(nodes, plan.Changes...)
		s.logger.Info("category moved",
			zap.String("merchant_id", merchantID.String()),
			zap.String("category_id", id.String()),
			zap.Int("subtree_size", len(plan.Changes)),
		)
	}

	idx := catalog.NewCategoryIndex(nodes)
	moved, _ := idx.Get(id)
	moved.ProductCount = count
	resp := ToCategoryResponse(moved, idx)
	return &resp, nil
}

// SetVisibility sets the visibility of a category and, when
// includeDescendants is set, of its whole subtree as one atomic write
func (s *CategoryService) SetVisibility(ctx context.Context, merchantID, id uuid.UUID, req SetVisibilityRequest) (*VisibilityResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	nodes, unlock, err := s.lockSubtrees(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	plan, err := catalog.PlanVisibility(nodes, id, *req.Visible, req.IncludeDescendants)
	if err != nil {
		return nil, err
	}

	result := &VisibilityResult{
		TargetID:    id,
		Visible:     *req.Visible,
		AffectedIDs: []uuid.UUID{id},
		ChangedIDs:  make([]uuid.UUID, 0, len(plan.Changes)),
	}
	if req.IncludeDescendants {
		result.AffectedIDs = append(result.AffectedIDs, catalog.DescendantsOf(id, nodes)...)
	}
	if plan.IsNoop() {
		return result, nil
	}

	if err := s.categoryRepo.SaveAll(ctx, plan.Changes); err != nil {
		if shared.HasCode(err, catalog.CodeConcurrencyConflict) {
			s.logger.Warn("visibility cascade lost a race",
				zap.String("merchant_id", merchantID.String()),
				zap.String("category_id", id.String()),
			)
		}
		return nil, err
	}
	for _, c := range plan.Changes {
		result.ChangedIDs = append(result.ChangedIDs, c.ID)
	}
	s.publishEvents(ctx, plan.Changes...)

	s.logger.Info("category visibility changed",
		zap.String("merchant_id", merchantID.String()),
		zap.String("category_id", id.String()),
		zap.Bool("visible", *req.Visible),
		zap.Int("changed", len(plan.Changes)),
	)
	return result, nil
}

// Delete deletes a category. No category that owns products is ever
// deleted, descendants included; a parent is deleted only together with
// its whole subtree.
func (s *CategoryService) Delete(ctx context.Context, merchantID, id uuid.UUID, includeDescendants bool) (*DeleteResult, error) {
	nodes, unlock, err := s.lockSubtrees(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, ok := catalog.NewCategoryIndex(nodes).Get(id); !ok {
		return nil, catalog.NewNotFoundError("Category", id)
	}
	counts, err := s.products.CountProductsByCategory(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	plan, err := catalog.PlanDeletion(nodes, id, includeDescendants, counts)
	if err != nil {
		return nil, err
	}
	if err := s.categoryRepo.DeleteAll(ctx, plan.Doomed); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, plan.Doomed...)

	result := &DeleteResult{TargetID: id, DeletedIDs: make([]uuid.UUID, 0, len(plan.Doomed))}
	for _, c := range plan.Doomed {
		result.DeletedIDs = append(result.DeletedIDs, c.ID)
	}
	s.logger.Info("category deleted",
		zap.String("merchant_id", merchantID.String()),
		zap.String("category_id", id.String()),
		zap.Int("deleted", len(result.DeletedIDs)),
	)
	return result, nil
}

func (s *CategoryService) loadAnnotated(ctx context.Context, merchantID uuid.UUID) ([]catalog.Category, *catalog.CategoryIndex, error) {
	nodes, err := s.categoryRepo.FindAllForMerchant(ctx, merchantID)
	if err != nil {
		return nil, nil, err
	}
	counts, err := s.products.CountProductsByCategory(ctx, merchantID)
	if err != nil {
		return nil, nil, err
	}
	nodes = catalog.AnnotateHasChildren(nodes)
	for i := range nodes {
		nodes[i].ProductCount = counts[nodes[i].ID]
	}
	return nodes, catalog.NewCategoryIndex(nodes), nil
}

// lockSubtrees locks the root subtrees containing every anchor and returns
// the category set read under those locks. Keys are taken in sorted order
// so two callers never wait on each other in a cycle.
func (s *CategoryService) lockSubtrees(ctx context.Context, merchantID uuid.UUID, anchors ...uuid.UUID) ([]catalog.Category, shared.UnlockFunc, error) {
	nodes, err := s.categoryRepo.FindAllForMerchant(ctx, merchantID)
	if err != nil {
		return nil, nil, err
	}
	keys := subtreeKeys(merchantID, nodes, anchors)

	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		unlock, err := s.lockAll(ctx, keys)
		if err != nil {
			return nil, nil, err
		}
		nodes, err = s.categoryRepo.FindAllForMerchant(ctx, merchantID)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		current := subtreeKeys(merchantID, nodes, anchors)
		if equalKeys(keys, current) {
			return nodes, unlock, nil
		}
		unlock()
		keys = current
	}
	return nil, nil, catalog.NewConcurrencyConflictError("Category tree changed while acquiring its lock", nil)
}

func (s *CategoryService) lockAll(ctx context.Context, keys []string) (shared.UnlockFunc, error) {
	unlocks := make([]shared.UnlockFunc, 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, key := range keys {
		unlock, err := s.locker.Lock(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

func (s *CategoryService) publishEvents(ctx context.Context, categories ...*catalog.Category) {
	var events []shared.DomainEvent
	for _, c := range categories {
		events = append(events, c.GetDomainEvents()...)
		c.ClearDomainEvents()
	}
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish category events", zap.Int("count", len(events)), zap.Error(err))
	}
}

func subtreeKeys(merchantID uuid.UUID, nodes []catalog.Category, anchors []uuid.UUID) []string {
	idx := catalog.NewCategoryIndex(nodes)
	seen := make(map[string]bool, len(anchors))
	keys := make([]string, 0, len(anchors))
	for _, a := range anchors {
		key := SubtreeLockKey(merchantID, idx.RootOf(a))
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func ensureSlugAvailable(nodes []catalog.Category, slug string, self uuid.UUID) error {
	slug = strings.TrimSpace(slug)
	for i := range nodes {
		if nodes[i].ID != self && nodes[i].Slug == slug {
			return catalog.NewValidationError("Slug %q is already used by category %q", slug, nodes[i].Name)
		}
	}
	return nil
}

func replaceNodes(nodes []catalog.Category, changed ...*catalog.Category) []catalog.Category {
	byID := make(map[uuid.UUID]*catalog.Category, len(changed))
	for _, c := range changed {
		byID[c.ID] = c
	}
	out := make([]catalog.Category, len(nodes))
	for i := range nodes {
		if c, ok := byID[nodes[i].ID]; ok {
			out[i] = *c
			continue
		}
		out[i] = nodes[i]
	}
	return out
}
