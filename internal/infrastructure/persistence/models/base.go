package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/shared"
)

// AggregateModel provides the persistence fields shared by aggregate roots:
// identity, timestamps and the optimistic lock version.
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// FromDomainAggregateRoot populates the model from a domain aggregate root
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.ID = a.ID
	m.Version = a.Version
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
}

// MerchantAggregateRoot rebuilds a merchant-scoped aggregate root. Pending
// events start empty.
func (m *AggregateModel) MerchantAggregateRoot(merchantID uuid.UUID) shared.MerchantAggregateRoot {
	return shared.MerchantAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		MerchantID: merchantID,
	}
}
