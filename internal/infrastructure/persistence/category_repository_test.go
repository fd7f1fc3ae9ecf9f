package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
	"github.com/storefront/merchandising/internal/domain/shared"
	"github.com/storefront/merchandising/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTree(t *testing.T, repo *GormCategoryRepository, merchantID uuid.UUID) (root, child, grandchild *catalog.Category) {
	t.Helper()
	ctx := context.Background()

	root, err := catalog.NewCategory(merchantID, "Apparel", "apparel", "")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, root))

	child, err = catalog.NewChildCategory(merchantID, "Shirts", "shirts", "", root)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, child))

	grandchild, err = catalog.NewChildCategory(merchantID, "Polos", "polos", "", child)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, grandchild))
	return root, child, grandchild
}

func TestGormCategoryRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCategoryRepository(db)
	ctx := context.Background()
	merchantID := uuid.New()

	root, child, _ := createTree(t, repo, merchantID)

	t.Run("finds by id within merchant", func(t *testing.T) {
		found, err := repo.FindByIDForMerchant(ctx, merchantID, child.ID)
		require.NoError(t, err)
		assert.Equal(t, "Shirts", found.Name)
		assert.Equal(t, 1, found.Level)
		require.NotNil(t, found.ParentID)
		assert.Equal(t, root.ID, *found.ParentID)
	})

	t.Run("other merchant sees nothing", func(t *testing.T) {
		_, err := repo.FindByIDForMerchant(ctx, uuid.New(), child.ID)
		assert.True(t, shared.HasCode(err, catalog.CodeNotFound))
	})

	t.Run("loads whole set ordered by level", func(t *testing.T) {
		all, err := repo.FindAllForMerchant(ctx, merchantID)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, 0, all[0].Level)
		assert.Equal(t, 2, all[2].Level)
	})

	t.Run("duplicate slug is a validation error", func(t *testing.T) {
		dup, err := catalog.NewCategory(merchantID, "Apparel 2", "apparel", "")
		require.NoError(t, err)
		err = repo.Create(ctx, dup)
		assert.True(t, shared.HasCode(err, catalog.CodeValidation))
	})

	t.Run("same slug is fine for another merchant", func(t *testing.T) {
		other, err := catalog.NewCategory(uuid.New(), "Apparel", "apparel", "")
		require.NoError(t, err)
		assert.NoError(t, repo.Create(ctx, other))
	})
}

func TestGormCategoryRepository_SaveAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCategoryRepository(db)
	ctx := context.Background()
	merchantID := uuid.New()

	root, child, grandchild := createTree(t, repo, merchantID)

	t.Run("persists visibility cascade", func(t *testing.T) {
		all, err := repo.FindAllForMerchant(ctx, merchantID)
		require.NoError(t, err)
		plan, err := catalog.PlanVisibility(all, root.ID, false, true)
		require.NoError(t, err)
		require.Len(t, plan.Changes, 3)

		require.NoError(t, repo.SaveAll(ctx, plan.Changes))

		all, err = repo.FindAllForMerchant(ctx, merchantID)
		require.NoError(t, err)
		for _, c := range all {
			assert.False(t, c.Visible, c.Name)
			assert.Equal(t, 2, c.Version, c.Name)
		}
	})

	t.Run("stale version rolls back the whole batch", func(t *testing.T) {
		fresh, err := repo.FindByIDForMerchant(ctx, merchantID, child.ID)
		require.NoError(t, err)
		stale := grandchild.Clone() // visible at version 1, stored row is hidden at version 2

		fresh.SetVisible(true)
		stale.SetVisible(false)

		err = repo.SaveAll(ctx, []*catalog.Category{fresh, stale})
		require.Error(t, err)
		assert.True(t, shared.HasCode(err, catalog.CodeConcurrencyConflict))

		reloaded, err := repo.FindByIDForMerchant(ctx, merchantID, child.ID)
		require.NoError(t, err)
		assert.False(t, reloaded.Visible, "first update must be rolled back")
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.SaveAll(ctx, nil))
	})
}

func TestGormCategoryRepository_DeleteAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCategoryRepository(db)
	ctx := context.Background()
	merchantID := uuid.New()

	root, _, _ := createTree(t, repo, merchantID)

	t.Run("stale version aborts", func(t *testing.T) {
		stale := root.Clone()
		stale.Version = 7
		err := repo.DeleteAll(ctx, []*catalog.Category{stale})
		assert.True(t, shared.HasCode(err, catalog.CodeConcurrencyConflict))
	})

	t.Run("deletes subtree", func(t *testing.T) {
		all, err := repo.FindAllForMerchant(ctx, merchantID)
		require.NoError(t, err)
		plan, err := catalog.PlanDeletion(all, root.ID, true, 0)
		require.NoError(t, err)

		require.NoError(t, repo.DeleteAll(ctx, plan.Doomed))

		all, err = repo.FindAllForMerchant(ctx, merchantID)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestGormCategoryRepository_SaveAll_SQL(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormCategoryRepository(gormDB)

	c, err := catalog.NewCategory(uuid.New(), "Shoes", "shoes", "")
	require.NoError(t, err)
	c.SetVisible(false)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "categories" SET .* WHERE \(?id = \$\d+ AND merchant_id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = repo.SaveAll(context.Background(), []*catalog.Category{c})
	assert.True(t, shared.HasCode(err, catalog.CodeConcurrencyConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductCatalog(t *testing.T) {
	db := setupTestDB(t)
	products := NewGormProductCatalog(db)
	ctx := context.Background()
	merchantID := uuid.New()
	shoes, bags := uuid.New(), uuid.New()

	rows := []models.ProductModel{
		{ID: uuid.New(), MerchantID: merchantID, CategoryID: &shoes, Name: "Runner"},
		{ID: uuid.New(), MerchantID: merchantID, CategoryID: &shoes, Name: "Loafer"},
		{ID: uuid.New(), MerchantID: merchantID, CategoryID: &bags, Name: "Tote"},
		{ID: uuid.New(), MerchantID: merchantID, Name: "Unsorted"},
		{ID: uuid.New(), MerchantID: uuid.New(), CategoryID: &shoes, Name: "Foreign"},
	}
	require.NoError(t, db.Create(&rows).Error)

	count, err := products.CountProducts(ctx, merchantID, shoes)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	counts, err := products.CountProductsByCategory(ctx, merchantID)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int64{shoes: 2, bags: 1}, counts)
}
