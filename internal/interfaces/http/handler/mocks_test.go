package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/storefront/merchandising/internal/application/catalog"
	"github.com/storefront/merchandising/internal/domain/catalog"
	"github.com/storefront/merchandising/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
)

type mockCategoryFacade struct {
	mock.Mock
}

func (m *mockCategoryFacade) Create(ctx context.Context, merchantID uuid.UUID, req catalogapp.CreateCategoryRequest) (*catalogapp.CategoryResponse, error) {
	args := m.Called(ctx, merchantID, req)
	resp, _ := args.Get(0).(*catalogapp.CategoryResponse)
	return resp, args.Error(1)
}

func (m *mockCategoryFacade) GetByID(ctx context.Context, merchantID, id uuid.UUID) (*catalogapp.CategoryResponse, error) {
	args := m.Called(ctx, merchantID, id)
	resp, _ := args.Get(0).(*catalogapp.CategoryResponse)
	return resp, args.Error(1)
}

func (m *mockCategoryFacade) List(ctx context.Context, merchantID uuid.UUID) ([]catalogapp.CategoryResponse, error) {
	args := m.Called(ctx, merchantID)
	resp, _ := args.Get(0).([]catalogapp.CategoryResponse)
	return resp, args.Error(1)
}

func (m *mockCategoryFacade) GetTree(ctx context.Context, merchantID uuid.UUID) ([]catalogapp.CategoryTreeNode, error) {
	args := m.Called(ctx, merchantID)
	resp, _ := args.Get(0).([]catalogapp.CategoryTreeNode)
	return resp, args.Error(1)
}

func (m *mockCategoryFacade) Update(ctx context.Context, merchantID, id uuid.UUID, req catalogapp.UpdateCategoryRequest) (*catalogapp.CategoryResponse, error) {
	args := m.Called(ctx, merchantID, id, req)
	resp, _ := args.Get(0).(*catalogapp.CategoryResponse)
	return resp, args.Error(1)
}

func (m *mockCategoryFacade) Move(ctx context.Context, merchantID, id uuid.UUID, req catalogapp.MoveCategoryRequest) (*catalogapp.CategoryResponse, error) {
	args := m.Called(ctx, merchantID, id, req)
	resp, _ := args.Get(0).(*catalogapp.CategoryResponse)
	return resp, args.Error(1)
}

func (m *mockCategoryFacade) SetVisibility(ctx context.Context, merchantID, id uuid.UUID, req catalogapp.SetVisibilityRequest) (*catalogapp.VisibilityResult, error) {
	args := m.Called(ctx, merchantID, id, req)
	resp, _ := args.Get(0).(*catalogapp.VisibilityResult)
	return resp, args.Error(1)
}

func (m *mockCategoryFacade) Delete(ctx context.Context, merchantID, id uuid.UUID, includeDescendants bool) (*catalogapp.DeleteResult, error) {
	args := m.Called(ctx, merchantID, id, includeDescendants)
	resp, _ := args.Get(0).(*catalogapp.DeleteResult)
	return resp, args.Error(1)
}

type mockPlacementFacade struct {
	mock.Mock
}

func (m *mockPlacementFacade) listResult(args mock.Arguments) (*catalogapp.PlacementListResponse, error) {
	resp, _ := args.Get(0).(*catalogapp.PlacementListResponse)
	return resp, args.Error(1)
}

func (m *mockPlacementFacade) List(ctx context.Context, merchantID uuid.UUID, position string) (*catalogapp.PlacementListResponse, error) {
	return m.listResult(m.Called(ctx, merchantID, position))
}

func (m *mockPlacementFacade) Add(ctx context.Context, merchantID uuid.UUID, position string, req catalogapp.AddPlacementRequest) (*catalogapp.PlacementListResponse, error) {
	return m.listResult(m.Called(ctx, merchantID, position, req))
}

func (m *mockPlacementFacade) Remove(ctx context.Context, merchantID uuid.UUID, position string, categoryID uuid.UUID) (*catalogapp.PlacementListResponse, error) {
	return m.listResult(m.Called(ctx, merchantID, position, categoryID))
}

func (m *mockPlacementFacade) Reorder(ctx context.Context, merchantID uuid.UUID, position string, req catalogapp.ReorderPlacementsRequest) (*catalogapp.PlacementListResponse, error) {
	return m.listResult(m.Called(ctx, merchantID, position, req))
}

func (m *mockPlacementFacade) Move(ctx context.Context, merchantID uuid.UUID, position string, categoryID uuid.UUID, req catalogapp.MovePlacementRequest) (*catalogapp.PlacementListResponse, error) {
	return m.listResult(m.Called(ctx, merchantID, position, categoryID, req))
}

func (m *mockPlacementFacade) SetMedia(ctx context.Context, merchantID uuid.UUID, position string, categoryID uuid.UUID, req catalogapp.SetMediaRequest) (*catalogapp.PlacementListResponse, error) {
	return m.listResult(m.Called(ctx, merchantID, position, categoryID, req))
}

func (m *mockPlacementFacade) UploadMedia(ctx context.Context, merchantID uuid.UUID, position string, categoryID uuid.UUID, file catalog.MediaFile, kind string) (*catalogapp.PlacementListResponse, error) {
	body, _ := io.ReadAll(file.Body)
	return m.listResult(m.Called(ctx, merchantID, position, categoryID, file.Name, file.ContentType, string(body), kind))
}

func (m *mockPlacementFacade) Save(ctx context.Context, merchantID uuid.UUID, position string) (*catalogapp.SaveResult, error) {
	args := m.Called(ctx, merchantID, position)
	resp, _ := args.Get(0).(*catalogapp.SaveResult)
	return resp, args.Error(1)
}

func (m *mockPlacementFacade) Discard(ctx context.Context, merchantID uuid.UUID, position string) (*catalogapp.PlacementListResponse, error) {
	return m.listResult(m.Called(ctx, merchantID, position))
}

// withMerchant stands in for the merchant middleware
func withMerchant(merchantID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.MerchantIDKey, merchantID.String())
		c.Next()
	}
}

func serve(r *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

