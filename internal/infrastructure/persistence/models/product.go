package models

import (
	"github.com/google/uuid"
)

// ProductModel is the read-only projection of the product catalog used to
// count category assignments. The table is owned by the catalog service.
type ProductModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	MerchantID uuid.UUID  `gorm:"type:uuid;not null;index"`
	CategoryID *uuid.UUID `gorm:"type:uuid;index"`
	Name       string     `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}
