package persistence

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
	"github.com/storefront/merchandising/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPlacementRepository implements catalog.PlacementRepository using GORM
type GormPlacementRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormPlacementRepository creates a new GormPlacementRepository
func NewGormPlacementRepository(db *gorm.DB) *GormPlacementRepository {
	return &GormPlacementRepository{db: db, now: time.Now}
}

// FindByPosition returns the stored slots of one list ordered by sort order
func (r *GormPlacementRepository) FindByPosition(ctx context.Context, merchantID uuid.UUID, position catalog.Position) ([]catalog.PlacementSlot, error) {
	return r.findByPosition(r.db.WithContext(ctx), merchantID, position)
}

// FindAllForMerchant returns the stored slots of every list
func (r *GormPlacementRepository) FindAllForMerchant(ctx context.Context, merchantID uuid.UUID) ([]catalog.PlacementSlot, error) {
	var rows []models.PlacementSlotModel
	if err := r.db.WithContext(ctx).
		Scopes(ForMerchant(merchantID)).
		Order("position ASC, sort_order ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load placements: %w", err)
	}
	return toSlots(rows), nil
}

// ApplySaveSet deletes the removed slots, then inserts new slots and updates
// persisted ones, all in one transaction. New slots get their storage ID here.
// The stored list must still match set.Baseline, otherwise another writer
// saved first and the save fails with CONCURRENCY_CONFLICT. The list is
// re-read inside the transaction, checked against the list invariants and
// returned as stored.
func (r *GormPlacementRepository) ApplySaveSet(ctx context.Context, merchantID uuid.UUID, position catalog.Position, set catalog.SaveSet) ([]catalog.PlacementSlot, error) {
	var persisted []catalog.PlacementSlot

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkBaseline(tx, merchantID, position, set.Baseline); err != nil {
			return err
		}

		if len(set.RemovedIDs) > 0 {
			if err := tx.Scopes(ForMerchant(merchantID)).
				Where("position = ? AND id IN ?", string(position), set.RemovedIDs).
				Delete(&models.PlacementSlotModel{}).Error; err != nil {
				return fmt.Errorf("delete placements: %w", err)
			}
		}

		ts := r.now()
		for _, slot := range set.Upserts {
			if err := r.upsert(tx, merchantID, position, slot, ts); err != nil {
				return err
			}
		}

		var err error
		persisted, err = r.findByPosition(tx, merchantID, position)
		if err != nil {
			return err
		}
		return catalog.ValidateStored(position, set.Capacity, persisted)
	})
	if err != nil {
		return nil, err
	}
	return persisted, nil
}

// checkBaseline compares the stored slot ids of the list with baseline.
// On Postgres the rows are locked until the transaction ends.
func (r *GormPlacementRepository) checkBaseline(tx *gorm.DB, merchantID uuid.UUID, position catalog.Position, baseline []string) error {
	query := tx.Model(&models.PlacementSlotModel{}).
		Scopes(ForMerchant(merchantID)).
		Where("position = ?", string(position))
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var stored []string
	if err := query.Pluck("id", &stored).Error; err != nil {
		return fmt.Errorf("load placement baseline: %w", err)
	}
	sort.Strings(stored)

	expected := append([]string(nil), baseline...)
	sort.Strings(expected)
	if !slices.Equal(stored, expected) {
		return catalog.NewConcurrencyConflictError(
			fmt.Sprintf("%s list was saved by another editor, discard and retry", position), nil)
	}
	return nil
}

func (r *GormPlacementRepository) upsert(tx *gorm.DB, merchantID uuid.UUID, position catalog.Position, slot catalog.PlacementSlot, ts time.Time) error {
	if !slot.IsPersisted() {
		model := models.PlacementSlotModelFromDomain(slot)
		model.ID = uuid.NewString()
		model.MerchantID = merchantID
		model.Position = string(position)
		model.CreatedAt = ts
		model.UpdatedAt = ts
		if err := tx.Create(model).Error; err != nil {
			if isDuplicateKey(err) {
				return catalog.NewDuplicatePlacementError(position, slot.CategoryID)
			}
			return fmt.Errorf("insert placement: %w", err)
		}
		return nil
	}

	result := tx.Model(&models.PlacementSlotModel{}).
		Scopes(ForMerchant(merchantID)).
		Where("position = ? AND id = ?", string(position), slot.ID).
		Updates(map[string]any{
			"category_name": slot.CategoryName,
			"sort_order":    slot.Order,
			"thumbnail_url": slot.ThumbnailURL,
			"media_type":    string(slot.MediaType),
			"updated_at":    ts,
		})
	if result.Error != nil {
		return fmt.Errorf("update placement %s: %w", slot.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return catalog.NewConcurrencyConflictError(
			fmt.Sprintf("Placement %s no longer exists", slot.ID), nil)
	}
	return nil
}

func (r *GormPlacementRepository) findByPosition(db *gorm.DB, merchantID uuid.UUID, position catalog.Position) ([]catalog.PlacementSlot, error) {
	var rows []models.PlacementSlotModel
	if err := db.Scopes(ForMerchant(merchantID)).
		Where("position = ?", string(position)).
		Order("sort_order ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load placements: %w", err)
	}
	return toSlots(rows), nil
}

func toSlots(rows []models.PlacementSlotModel) []catalog.PlacementSlot {
	slots := make([]catalog.PlacementSlot, len(rows))
	for i := range rows {
		slots[i] = rows[i].ToDomain()
	}
	return slots
}

var _ catalog.PlacementRepository = (*GormPlacementRepository)(nil)
