package catalog

import (
	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeCategory = "Category"

// Event type constants
const (
	EventTypeCategoryCreated           = "CategoryCreated"
	EventTypeCategoryUpdated           = "CategoryUpdated"
	EventTypeCategoryMoved             = "CategoryMoved"
	EventTypeCategoryVisibilityChanged = "CategoryVisibilityChanged"
	EventTypeCategoryDeleted           = "CategoryDeleted"
)

// CategoryCreatedEvent is published when a new category is created
type CategoryCreatedEvent struct {
	shared.BaseDomainEvent
	CategoryID uuid.UUID  `json:"category_id"`
	Name       string     `json:"name"`
	Slug       string     `json:"slug"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Level      int        `json:"level"`
}

// NewCategoryCreatedEvent creates a new CategoryCreatedEvent
func NewCategoryCreatedEvent(c *Category) *CategoryCreatedEvent {
	return &CategoryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryCreated, AggregateTypeCategory, c.ID, c.MerchantID),
		CategoryID:      c.ID,
		Name:            c.Name,
		Slug:            c.Slug,
		ParentID:        cloneID(c.ParentID),
		Level:           c.Level,
	}
}

// CategoryUpdatedEvent is published when name, slug or description change
type CategoryUpdatedEvent struct {
	shared.BaseDomainEvent
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
}

// NewCategoryUpdatedEvent creates a new CategoryUpdatedEvent
func NewCategoryUpdatedEvent(c *Category) *CategoryUpdatedEvent {
	return &CategoryUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryUpdated, AggregateTypeCategory, c.ID, c.MerchantID),
		CategoryID:      c.ID,
		Name:            c.Name,
		Slug:            c.Slug,
	}
}

// CategoryMovedEvent is published when a category gets a new parent
type CategoryMovedEvent struct {
	shared.BaseDomainEvent
	CategoryID  uuid.UUID  `json:"category_id"`
	OldParentID *uuid.UUID `json:"old_parent_id,omitempty"`
	NewParentID *uuid.UUID `json:"new_parent_id,omitempty"`
	Level       int        `json:"level"`
}

// NewCategoryMovedEvent creates a new CategoryMovedEvent
func NewCategoryMovedEvent(c *Category, oldParentID *uuid.UUID) *CategoryMovedEvent {
	return &CategoryMovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryMoved, AggregateTypeCategory, c.ID, c.MerchantID),
		CategoryID:      c.ID,
		OldParentID:     cloneID(oldParentID),
		NewParentID:     cloneID(c.ParentID),
		Level:           c.Level,
	}
}

// CategoryVisibilityChangedEvent is published for every category whose
// visibility flag flips, including each descendant of a cascade.
type CategoryVisibilityChangedEvent struct {
	shared.BaseDomainEvent
	CategoryID uuid.UUID `json:"category_id"`
	Visible    bool      `json:"visible"`
}

// NewCategoryVisibilityChangedEvent creates a new CategoryVisibilityChangedEvent
func NewCategoryVisibilityChangedEvent(c *Category) *CategoryVisibilityChangedEvent {
	return &CategoryVisibilityChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryVisibilityChanged, AggregateTypeCategory, c.ID, c.MerchantID),
		CategoryID:      c.ID,
		Visible:         c.Visible,
	}
}

// CategoryDeletedEvent is published when a category is deleted
type CategoryDeletedEvent struct {
	shared.BaseDomainEvent
	CategoryID uuid.UUID  `json:"category_id"`
	Slug       string     `json:"slug"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
}

// NewCategoryDeletedEvent creates a new CategoryDeletedEvent
func NewCategoryDeletedEvent(c *Category) *CategoryDeletedEvent {
	return &CategoryDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryDeleted, AggregateTypeCategory, c.ID, c.MerchantID),
		CategoryID:      c.ID,
		Slug:            c.Slug,
		ParentID:        cloneID(c.ParentID),
	}
}
