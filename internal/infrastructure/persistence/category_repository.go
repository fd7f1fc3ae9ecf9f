package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
	"github.com/storefront/merchandising/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCategoryRepository implements catalog.CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindAllForMerchant loads the merchant's whole category set in one query
func (r *GormCategoryRepository) FindAllForMerchant(ctx context.Context, merchantID uuid.UUID) ([]catalog.Category, error) {
	var rows []models.CategoryModel
	if err := r.db.WithContext(ctx).
		Scopes(ForMerchant(merchantID)).
		Order("level ASC, name ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	categories := make([]catalog.Category, len(rows))
	for i := range rows {
		categories[i] = *rows[i].ToDomain()
	}
	return categories, nil
}

// FindByIDForMerchant finds a category by ID within a merchant
func (r *GormCategoryRepository) FindByIDForMerchant(ctx context.Context, merchantID, id uuid.UUID) (*catalog.Category, error) {
	var row models.CategoryModel
	if err := r.db.WithContext(ctx).
		Scopes(ForMerchant(merchantID)).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.NewNotFoundError("Category", id)
		}
		return nil, fmt.Errorf("load category: %w", err)
	}
	return row.ToDomain(), nil
}

// Create inserts a new category
func (r *GormCategoryRepository) Create(ctx context.Context, category *catalog.Category) error {
	model := models.CategoryModelFromDomain(category)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return catalog.NewValidationError("Slug %q is already in use", category.Slug)
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// SaveAll updates every category in one transaction. Rows are matched on
// their previous version, so a concurrent writer rolls the batch back.
func (r *GormCategoryRepository) SaveAll(ctx context.Context, categories []*catalog.Category) error {
	if len(categories) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range categories {
			// A map keeps false and NULL values that struct Updates would skip.
			result := tx.Model(&models.CategoryModel{}).
				Where("id = ? AND merchant_id = ? AND version = ?", c.ID, c.MerchantID, c.Version-1).
				Updates(map[string]any{
					"name":        c.Name,
					"slug":        c.Slug,
					"description": c.Description,
					"parent_id":   c.ParentID,
					"level":       c.Level,
					"visible":     c.Visible,
					"version":     c.Version,
					"updated_at":  c.UpdatedAt,
				})
			if result.Error != nil {
				if isDuplicateKey(result.Error) {
					return catalog.NewValidationError("Slug %q is already in use", c.Slug)
				}
				return fmt.Errorf("update category %s: %w", c.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				return catalog.NewConcurrencyConflictError(
					fmt.Sprintf("Category %s was modified by another process", c.ID), nil)
			}
		}
		return nil
	})
}

// DeleteAll deletes every category in one transaction. Deepest levels go
// first so a parent never disappears before its children.
func (r *GormCategoryRepository) DeleteAll(ctx context.Context, categories []*catalog.Category) error {
	if len(categories) == 0 {
		return nil
	}

	ordered := make([]*catalog.Category, len(categories))
	copy(ordered, categories)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Level > ordered[j].Level
	})

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range ordered {
			result := tx.Where("id = ? AND merchant_id = ? AND version = ?", c.ID, c.MerchantID, c.Version).
				Delete(&models.CategoryModel{})
			if result.Error != nil {
				return fmt.Errorf("delete category %s: %w", c.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				return catalog.NewConcurrencyConflictError(
					fmt.Sprintf("Category %s was modified by another process", c.ID), nil)
			}
		}
		return nil
	})
}

// GormProductCatalog implements catalog.ProductCatalog over the products table
type GormProductCatalog struct {
	db *gorm.DB
}

// NewGormProductCatalog creates a new GormProductCatalog
func NewGormProductCatalog(db *gorm.DB) *GormProductCatalog {
	return &GormProductCatalog{db: db}
}

// CountProducts returns how many products are assigned to a category
func (p *GormProductCatalog) CountProducts(ctx context.Context, merchantID, categoryID uuid.UUID) (int64, error) {
	var count int64
	if err := p.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Scopes(ForMerchant(merchantID)).
		Where("category_id = ?", categoryID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

// CountProductsByCategory returns product counts keyed by category
func (p *GormProductCatalog) CountProductsByCategory(ctx context.Context, merchantID uuid.UUID) (map[uuid.UUID]int64, error) {
	var rows []struct {
		CategoryID uuid.UUID
		Total      int64
	}
	if err := p.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Select("category_id, COUNT(*) AS total").
		Scopes(ForMerchant(merchantID)).
		Where("category_id IS NOT NULL").
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count products by category: %w", err)
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.CategoryID] = row.Total
	}
	return counts, nil
}

var (
	_ catalog.CategoryRepository = (*GormCategoryRepository)(nil)
	_ catalog.ProductCatalog     = (*GormProductCatalog)(nil)
)
