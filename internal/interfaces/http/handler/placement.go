package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/storefront/merchandising/internal/application/catalog"
	"github.com/storefront/merchandising/internal/domain/catalog"
	"github.com/storefront/merchandising/internal/interfaces/http/dto"
)

// PlacementFacade is the placement service surface the HTTP layer needs
type PlacementFacade interface {
	List(ctx context.Context, merchantID uuid.UUID, position string) (*catalogapp.PlacementListResponse, error)
	Add(ctx context.Context, merchantID uuid.UUID, position string, req catalogapp.AddPlacementRequest) (*catalogapp.PlacementListResponse, error)
	Remove(ctx context.Context, merchantID uuid.UUID, position string, categoryID uuid.UUID) (*catalogapp.PlacementListResponse, error)
	Reorder(ctx context.Context, merchantID uuid.UUID, position string, req catalogapp.ReorderPlacementsRequest) (*catalogapp.PlacementListResponse, error)
	Move(ctx context.Context, merchantID uuid.UUID, position string, categoryID uuid.UUID, req catalogapp.MovePlacementRequest) (*catalogapp.PlacementListResponse, error)
	SetMedia(ctx context.Context, merchantID uuid.UUID, position string, categoryID uuid.UUID, req catalogapp.SetMediaRequest) (*catalogapp.PlacementListResponse, error)
	UploadMedia(ctx context.Context, merchantID uuid.UUID, position string, categoryID uuid.UUID, file catalog.MediaFile, kind string) (*catalogapp.PlacementListResponse, error)
	Save(ctx context.Context, merchantID uuid.UUID, position string) (*catalogapp.SaveResult, error)
	Discard(ctx context.Context, merchantID uuid.UUID, position string) (*catalogapp.PlacementListResponse, error)
}

var _ PlacementFacade = (*catalogapp.PlacementService)(nil)

// PlacementHandler handles the curated HOMEPAGE and SIDEBAR list endpoints
type PlacementHandler struct {
	BaseHandler
	placementService PlacementFacade
	maxUploadSize    int64
}

// NewPlacementHandler creates a new PlacementHandler. maxUploadSize bounds
// the multipart body of media uploads.
func NewPlacementHandler(placementService PlacementFacade, maxUploadSize int64) *PlacementHandler {
	return &PlacementHandler{
		placementService: placementService,
		maxUploadSize:    maxUploadSize,
	}
}

// position reads the :position path parameter. Case is normalized here;
// the service rejects unknown positions.
func position(c *gin.Context) string {
	return strings.ToUpper(c.Param("position"))
}

// List handles GET /placements/:position
func (h *PlacementHandler) List(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}

	list, err := h.placementService.List(c.Request.Context(), merchantID, position(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// Add handles POST /placements/:position/items
func (h *PlacementHandler) Add(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}

	var req catalogapp.AddPlacementRequest
	if !h.bindJSON(c, &req) {
		return
	}

	list, err := h.placementService.Add(c.Request.Context(), merchantID, position(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// Remove handles DELETE /placements/:position/items/:category_id
func (h *PlacementHandler) Remove(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	categoryID, ok := h.uuidParam(c, "category_id")
	if !ok {
		return
	}

	list, err := h.placementService.Remove(c.Request.Context(), merchantID, position(c), categoryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// Reorder handles PUT /placements/:position/order
func (h *PlacementHandler) Reorder(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}

	var req catalogapp.ReorderPlacementsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	list, err := h.placementService.Reorder(c.Request.Context(), merchantID, position(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// Move handles POST /placements/:position/items/:category_id/move
func (h *PlacementHandler) Move(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	categoryID, ok := h.uuidParam(c, "category_id")
	if !ok {
		return
	}

	var req catalogapp.MovePlacementRequest
	if !h.bindJSON(c, &req) {
		return
	}

	list, err := h.placementService.Move(c.Request.Context(), merchantID, position(c), categoryID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// SetMedia handles PUT /placements/:position/items/:category_id/media
func (h *PlacementHandler) SetMedia(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	categoryID, ok := h.uuidParam(c, "category_id")
	if !ok {
		return
	}

	var req catalogapp.SetMediaRequest
	if !h.bindJSON(c, &req) {
		return
	}

	list, err := h.placementService.SetMedia(c.Request.Context(), merchantID, position(c), categoryID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// UploadMedia handles POST /placements/:position/items/:category_id/media/upload.
// The multipart form carries the binary in "file" and IMAGE or VIDEO in "media_type".
func (h *PlacementHandler) UploadMedia(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}
	categoryID, ok := h.uuidParam(c, "category_id")
	if !ok {
		return
	}

	if h.maxUploadSize > 0 {
		if c.Request.ContentLength > h.maxUploadSize {
			h.uploadTooLarge(c)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.uploadTooLarge(c)
			return
		}
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "A media file is required in form field \"file\"")
		return
	}
	kind := c.PostForm("media_type")
	if kind == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "media_type is required")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Uploaded file could not be read")
		return
	}
	defer f.Close()

	file := catalog.MediaFile{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        f,
	}

	list, err := h.placementService.UploadMedia(c.Request.Context(), merchantID, position(c), categoryID, file, kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

func (h *PlacementHandler) uploadTooLarge(c *gin.Context) {
	h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge,
		fmt.Sprintf("Upload exceeds the maximum size of %d bytes", h.maxUploadSize))
}

// Save handles POST /placements/:position/save
func (h *PlacementHandler) Save(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}

	result, err := h.placementService.Save(c.Request.Context(), merchantID, position(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Discard handles POST /placements/:position/discard
func (h *PlacementHandler) Discard(c *gin.Context) {
	merchantID, ok := h.merchantID(c)
	if !ok {
		return
	}

	list, err := h.placementService.Discard(c.Request.Context(), merchantID, position(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}
