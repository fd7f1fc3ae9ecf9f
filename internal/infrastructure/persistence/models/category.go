package models

import (
	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
)

// CategoryModel is the persistence model for the Category aggregate
type CategoryModel struct {
	AggregateModel
	MerchantID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_categories_merchant_slug,priority:1"`
	Name        string     `gorm:"type:varchar(100);not null"`
	Slug        string     `gorm:"type:varchar(120);not null;uniqueIndex:idx_categories_merchant_slug,priority:2"`
	Description string     `gorm:"type:text;not null;default:''"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index"`
	Level       int        `gorm:"not null;default:0"`
	Visible     bool       `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the persistence model to a domain Category
func (m *CategoryModel) ToDomain() *catalog.Category {
	c := &catalog.Category{
		MerchantAggregateRoot: m.AggregateModel.MerchantAggregateRoot(m.MerchantID),
		Name:                  m.Name,
		Slug:                  m.Slug,
		Description:           m.Description,
		Level:                 m.Level,
		Visible:               m.Visible,
	}
	if m.ParentID != nil {
		id := *m.ParentID
		c.ParentID = &id
	}
	return c
}

// CategoryModelFromDomain creates a persistence model from a domain Category
func CategoryModelFromDomain(c *catalog.Category) *CategoryModel {
	m := &CategoryModel{
		MerchantID:  c.MerchantID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ParentID:    c.ParentID,
		Level:       c.Level,
		Visible:     c.Visible,
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	return m
}
