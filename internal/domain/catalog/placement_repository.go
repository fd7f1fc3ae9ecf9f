package catalog

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// PlacementRepository defines the interface for placement persistence
type PlacementRepository interface {
	// FindByPosition returns the stored slots of one list ordered by Order
	FindByPosition(ctx context.Context, merchantID uuid.UUID, position Position) ([]PlacementSlot, error)

	// FindAllForMerchant returns the stored slots of every list
	FindAllForMerchant(ctx context.Context, merchantID uuid.UUID) ([]PlacementSlot, error)

	// ApplySaveSet deletes set.RemovedIDs then upserts set.Upserts in one
	// transaction and returns the list as stored afterwards.
	ApplySaveSet(ctx context.Context, merchantID uuid.UUID, position Position, set SaveSet) ([]PlacementSlot, error)
}

// MediaFile is a raw upload handed to a MediaUploader
type MediaFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MediaUploader stores media and returns a stable public URL
type MediaUploader interface {
	Upload(ctx context.Context, file MediaFile, kind MediaType) (string, error)
}
