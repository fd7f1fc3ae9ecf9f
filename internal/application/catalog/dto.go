package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
)

// CreateCategoryRequest represents a request to create a new category
type CreateCategoryRequest struct {
	Name        string     `json:"name" binding:"required,min=1,max=100"`
	Slug        string     `json:"slug" binding:"required,min=1,max=120"`
	Description string     `json:"description" binding:"max=2000"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

// UpdateCategoryRequest replaces the editable attributes of a category
type UpdateCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Slug        string `json:"slug" binding:"required,min=1,max=120"`
	Description string `json:"description" binding:"max=2000"`
}

// MoveCategoryRequest moves a category under a new parent (nil moves it to the root)
type MoveCategoryRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

// SetVisibilityRequest toggles visibility of a category and optionally its subtree
type SetVisibilityRequest struct {
	Visible            *bool `json:"visible" binding:"required"`
	IncludeDescendants bool  `json:"include_descendants"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID           uuid.UUID  `json:"id"`
	MerchantID   uuid.UUID  `json:"merchant_id"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Description  string     `json:"description"`
	ParentID     *uuid.UUID `json:"parent_id"`
	Level        int        `json:"level"`
	Visible      bool       `json:"visible"`
	HasChildren  bool       `json:"has_children"`
	ProductCount int64      `json:"product_count"`
	Path         []string   `json:"path"`
	Version      int        `json:"version"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CategoryTreeNode represents a category with its nested children
type CategoryTreeNode struct {
	CategoryResponse
	Children []CategoryTreeNode `json:"children"`
}

// VisibilityResult reports the outcome of a visibility cascade.
// ChangedIDs is empty when every category already had the requested visibility.
type VisibilityResult struct {
	TargetID    uuid.UUID   `json:"target_id"`
	Visible     bool        `json:"visible"`
	AffectedIDs []uuid.UUID `json:"affected_ids"`
	ChangedIDs  []uuid.UUID `json:"changed_ids"`
}

// DeleteResult lists every category removed by a delete
type DeleteResult struct {
	TargetID   uuid.UUID   `json:"target_id"`
	DeletedIDs []uuid.UUID `json:"deleted_ids"`
}

// AddPlacementRequest places a category at the end of a list
type AddPlacementRequest struct {
	CategoryID uuid.UUID `json:"category_id" binding:"required"`
}

// ReorderPlacementsRequest carries the full new order of a list
type ReorderPlacementsRequest struct {
	CategoryIDs []uuid.UUID `json:"category_ids" binding:"required"`
}

// MovePlacementRequest shifts one slot up (negative) or down (positive)
type MovePlacementRequest struct {
	Delta int `json:"delta" binding:"required,min=-10,max=10"`
}

// SetMediaRequest attaches an already uploaded media URL to a slot
type SetMediaRequest struct {
	URL       string `json:"url" binding:"required,url,max=2048"`
	MediaType string `json:"media_type" binding:"required,oneof=IMAGE VIDEO image video"`
}

// PlacementSlotResponse represents one slot of a placement list
type PlacementSlotResponse struct {
	ID           string    `json:"id"`
	CategoryID   uuid.UUID `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Position     string    `json:"position"`
	Order        int       `json:"order"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	MediaType    string    `json:"media_type,omitempty"`
	Persisted    bool      `json:"persisted"`
}

// PlacementListResponse represents one placement list and its edit state
type PlacementListResponse struct {
	MerchantID      uuid.UUID               `json:"merchant_id"`
	Position        string                  `json:"position"`
	Capacity        int                     `json:"capacity"`
	Dirty           bool                    `json:"dirty"`
	Slots           []PlacementSlotResponse `json:"slots"`
	PendingRemovals []string                `json:"pending_removals"`
}

// SaveResult reports what a save sent to persistence.
// Saved is false when the list had no unsaved edits.
type SaveResult struct {
	Saved         bool                  `json:"saved"`
	RemovedCount  int                   `json:"removed_count"`
	UpsertedCount int                   `json:"upserted_count"`
	List          PlacementListResponse `json:"list"`
}

// ToCategoryResponse converts a category into its response, annotated
// against the index it was read from
func ToCategoryResponse(c catalog.Category, idx *catalog.CategoryIndex) CategoryResponse {
	return CategoryResponse{
		ID:           c.ID,
		MerchantID:   c.MerchantID,
		Name:         c.Name,
		Slug:         c.Slug,
		Description:  c.Description,
		ParentID:     c.ParentID,
		Level:        c.Level,
		Visible:      c.Visible,
		HasChildren:  idx.HasChildren(c.ID),
		ProductCount: c.ProductCount,
		Path:         idx.PathNames(c.ID),
		Version:      c.Version,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toTreeNodes(nodes []*catalog.CategoryTreeNode, idx *catalog.CategoryIndex) []CategoryTreeNode {
	out := make([]CategoryTreeNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, CategoryTreeNode{
			CategoryResponse: ToCategoryResponse(n.Category, idx),
			Children:         toTreeNodes(n.Children, idx),
		})
	}
	return out
}

// ToPlacementListResponse converts a placement list into its response
func ToPlacementListResponse(l *catalog.PlacementList) PlacementListResponse {
	slots := l.Slots()
	resp := PlacementListResponse{
		MerchantID:      l.MerchantID(),
		Position:        string(l.Position()),
		Capacity:        l.Capacity(),
		Dirty:           l.IsDirty(),
		Slots:           make([]PlacementSlotResponse, len(slots)),
		PendingRemovals: l.RemovedIDs(),
	}
	if resp.PendingRemovals == nil {
		resp.PendingRemovals = []string{}
	}
	for i, s := range slots {
		resp.Slots[i] = PlacementSlotResponse{
			ID:           s.ID,
			CategoryID:   s.CategoryID,
			CategoryName: s.CategoryName,
			Position:     string(s.Position),
			Order:        s.Order,
			ThumbnailURL: s.ThumbnailURL,
			MediaType:    string(s.MediaType),
			Persisted:    s.IsPersisted(),
		}
	}
	return resp
}
