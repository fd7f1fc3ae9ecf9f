package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
)

// PlacementSlotModel is one stored row of a curated placement list.
// A category appears at most once per merchant and position.
type PlacementSlotModel struct {
	ID           string    `gorm:"type:varchar(64);primaryKey"`
	MerchantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_placement_slots_unique,priority:1"`
	Position     string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_placement_slots_unique,priority:2"`
	CategoryID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_placement_slots_unique,priority:3"`
	CategoryName string    `gorm:"type:varchar(100);not null"`
	SortOrder    int       `gorm:"column:sort_order;not null"`
	ThumbnailURL string    `gorm:"type:varchar(2048);not null;default:''"`
	MediaType    string    `gorm:"type:varchar(10);not null;default:''"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PlacementSlotModel) TableName() string {
	return "placement_slots"
}

// ToDomain converts the persistence model to a domain PlacementSlot
func (m *PlacementSlotModel) ToDomain() catalog.PlacementSlot {
	return catalog.PlacementSlot{
		ID:           m.ID,
		MerchantID:   m.MerchantID,
		CategoryID:   m.CategoryID,
		CategoryName: m.CategoryName,
		Position:     catalog.Position(m.Position),
		Order:        m.SortOrder,
		ThumbnailURL: m.ThumbnailURL,
		MediaType:    catalog.MediaType(m.MediaType),
	}
}

// PlacementSlotModelFromDomain creates a persistence model from a domain slot
func PlacementSlotModelFromDomain(s catalog.PlacementSlot) *PlacementSlotModel {
	return &PlacementSlotModel{
		ID:           s.ID,
		MerchantID:   s.MerchantID,
		Position:     string(s.Position),
		CategoryID:   s.CategoryID,
		CategoryName: s.CategoryName,
		SortOrder:    s.Order,
		ThumbnailURL: s.ThumbnailURL,
		MediaType:    string(s.MediaType),
	}
}
