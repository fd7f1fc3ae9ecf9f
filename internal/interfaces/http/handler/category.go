package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/storefront/merchandising/internal/application/catalog"
	"github.com/storefront/merchandising/internal/domain/catalog"
	"github.com/storefront/merchandising/internal/interfaces/http/dto"
)

// CategoryFacade is the category service surface the HTTP layer needs
type CategoryFacade interface {
	Create(ctx context.Context, merchantID uuid.UUID, req catalogapp.CreateCategoryRequest) (*catalogapp.CategoryResponse, error)
	GetByID(ctx context.Context, merchantID, id uuid.UUID) (*catalogapp.CategoryResponse, error)
	List(ctx context.Context, merchantID uuid.UUID) ([]catalogapp.CategoryResponse, error)
	GetTree(ctx context.Context, merchantID uuid.UUID) ([]catalogapp.CategoryTreeNode, error)
	Update(ctx context.Context, merchantID, id uuid.UUID, req catalogapp.UpdateCategoryRequest) (*catalogapp.CategoryResponse, error)
	Move(ctx context.Context, merchantID, id uuid.UUID, req catalogapp.MoveCategoryRequest) (*catalogapp.CategoryResponse, error)
	SetVisibility(ctx context.Context, merchantID, id uuid.UUID, req catalogapp.SetVisibilityRequest) (*catalogapp.VisibilityResult, error)
	Delete(ctx context.Context, merchantID, id uuid.UUID, includeDescendants bool) (*catalogapp.DeleteResult, error)
}

var _ CategoryFacade = (*catalogapp.CategoryService)(nil)

// CategoryHandler handles category-related API endpoints
type CategoryHandler struct {
	BaseHandler
	categoryService CategoryFacade
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService CategoryFacade) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
	}
}

// Create handles POST /categories
func (h *CategoryHandler) Create(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}

	var req catalogapp.CreateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), merchantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, category)
}

// GetByID handles GET /categories/:id
func (h *CategoryHandler) GetByID(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	category, err := h.categoryService.GetByID(c.Request.Context(), merchantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, category)
}

// List handles GET /categories. Categories come back ordered by level, then name.
func (h *CategoryHandler) List(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}

	categories, err := h.categoryService.List(c.Request.Context(), merchantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, categories)
}

// GetTree handles GET /categories/tree
func (h *CategoryHandler) GetTree(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}

	tree, err := h.categoryService.GetTree(c.Request.Context(), merchantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tree)
}

// SuggestSlug handles GET /categories/slug-suggestion?name=
func (h *CategoryHandler) SuggestSlug(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		h.BadRequest(c, "Query parameter name is required")
		return
	}

	h.Success(c, dto.SlugSuggestion{Name: name, Slug: catalog.SuggestSlug(name)})
}

// Update handles PUT /categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req catalogapp.UpdateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.Update(c.Request.Context(), merchantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, category)
}

// Move handles POST /categories/:id/move. A null parent_id moves the
// category to the root.
func (h *CategoryHandler) Move(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req catalogapp.MoveCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.Move(c.Request.Context(), merchantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, category)
}

// SetVisibility handles POST /categories/:id/visibility
func (h *CategoryHandler) SetVisibility(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req catalogapp.SetVisibilityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.categoryService.SetVisibility(c.Request.Context(), merchantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Delete handles DELETE /categories/:id?include_descendants=
func (h *CategoryHandler) Delete(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	includeDescendants := false
	if raw := c.Query("include_descendants"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "include_descendants must be true or false")
			return
		}
		includeDescendants = v
	}

	result, err := h.categoryService.Delete(c.Request.Context(), merchantID, id, includeDescendants)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
