package catalog

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/storefront/merchandising/internal/domain/shared"
)

// MaxCategoryLevel is the deepest level a category may sit at.
// Levels are 0 (root), 1 (child) and 2 (grandchild).
const MaxCategoryLevel = 2

const (
	maxNameLength        = 100
	maxSlugLength        = 120
	maxDescriptionLength = 2000
)

// Category is one node of a merchant's category taxonomy.
// HasChildren and ProductCount are read-side annotations and are never persisted
// through this aggregate.
type Category struct {
	shared.MerchantAggregateRoot
	Name        string
	Slug        string
	Description string
	ParentID    *uuid.UUID
	Level       int
	Visible     bool

	HasChildren  bool
	ProductCount int64
}

// NewCategory creates a new visible root category
func NewCategory(merchantID uuid.UUID, name, categorySlug, description string) (*Category, error) {
	c := &Category{
		MerchantAggregateRoot: shared.NewMerchantAggregateRoot(merchantID),
		Visible:               true,
	}
	if err := c.setDetails(name, categorySlug, description); err != nil {
		return nil, err
	}

	c.AddDomainEvent(NewCategoryCreatedEvent(c))
	return c, nil
}

// NewChildCategory creates a new visible category under parent
func NewChildCategory(merchantID uuid.UUID, name, categorySlug, description string, parent *Category) (*Category, error) {
	if parent == nil {
		return nil, NewValidationError("Parent category is required")
	}
	if parent.MerchantID != merchantID {
		return nil, NewReferentialIntegrityError(parent.ID)
	}
	if parent.Level+1 > MaxCategoryLevel {
		return nil, NewDepthExceededError(parent.Level + 1)
	}

	c := &Category{
		MerchantAggregateRoot: shared.NewMerchantAggregateRoot(merchantID),
		ParentID:              &parent.ID,
		Level:                 parent.Level + 1,
		Visible:               true,
	}
	if err := c.setDetails(name, categorySlug, description); err != nil {
		return nil, err
	}

	c.AddDomainEvent(NewCategoryCreatedEvent(c))
	return c, nil
}

// Update replaces the editable attributes of the category
func (c *Category) Update(name, categorySlug, description string) error {
	if err := c.setDetails(name, categorySlug, description); err != nil {
		return err
	}
	c.Touch()
	c.IncrementVersion()
	c.AddDomainEvent(NewCategoryUpdatedEvent(c))
	return nil
}

// SetVisible sets the visibility flag. It reports whether anything changed;
// an unchanged flag leaves version and events untouched.
func (c *Category) SetVisible(visible bool) bool {
	if c.Visible == visible {
		return false
	}
	c.Visible = visible
	c.Touch()
	c.IncrementVersion()
	c.AddDomainEvent(NewCategoryVisibilityChangedEvent(c))
	return true
}

// MarkDeleted records the deletion event for the category
func (c *Category) MarkDeleted() {
	c.AddDomainEvent(NewCategoryDeletedEvent(c))
}

func (c *Category) reparent(parentID *uuid.UUID, level int) {
	oldParent := c.ParentID
	c.ParentID = cloneID(parentID)
	c.Level = level
	c.Touch()
	c.IncrementVersion()
	c.AddDomainEvent(NewCategoryMovedEvent(c, oldParent))
}

func (c *Category) shiftLevel(delta int) {
	c.Level += delta
	c.Touch()
	c.IncrementVersion()
}

// IsRoot returns true if the category has no parent
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// HasParent reports whether parentID is the category's parent
func (c *Category) HasParent(parentID uuid.UUID) bool {
	return c.ParentID != nil && *c.ParentID == parentID
}

// Clone returns a copy without pending domain events
func (c *Category) Clone() *Category {
	cp := *c
	cp.ParentID = cloneID(c.ParentID)
	cp.ClearDomainEvents()
	return &cp
}

func (c *Category) setDetails(name, categorySlug, description string) error {
	name = strings.TrimSpace(name)
	categorySlug = strings.TrimSpace(categorySlug)
	if err := validateCategoryName(name); err != nil {
		return err
	}
	if err := ValidateSlug(categorySlug); err != nil {
		return err
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return NewValidationError("Category description cannot exceed %d characters", maxDescriptionLength)
	}
	c.Name = name
	c.Slug = categorySlug
	c.Description = description
	return nil
}

// ValidateSlug checks that s is a non-empty URL slug
func ValidateSlug(s string) error {
	if s == "" {
		return NewValidationError("Category slug is required")
	}
	if len(s) > maxSlugLength {
		return NewValidationError("Category slug cannot exceed %d characters", maxSlugLength)
	}
	if !slug.IsSlug(s) {
		return NewValidationError("Category slug %q must be lower-case letters, digits and hyphens", s)
	}
	return nil
}

// SuggestSlug derives a slug candidate from a display name
func SuggestSlug(name string) string {
	return slug.Make(name)
}

func validateCategoryName(name string) error {
	if name == "" {
		return NewValidationError("Category name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return NewValidationError("Category name cannot exceed %d characters", maxNameLength)
	}
	return nil
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
