package catalog

import (
	"strings"

	"github.com/google/uuid"
)

// Position names a curated placement list
type Position string

const (
	PositionHomepage Position = "HOMEPAGE"
	PositionSidebar  Position = "SIDEBAR"
)

// Default list capacities
const (
	DefaultHomepageCapacity = 7
	DefaultSidebarCapacity  = 10
)

// Positions returns every known position
func Positions() []Position {
	return []Position{PositionHomepage, PositionSidebar}
}

// ParsePosition parses a position name case-insensitively
func ParsePosition(s string) (Position, error) {
	switch p := Position(strings.ToUpper(strings.TrimSpace(s))); p {
	case PositionHomepage, PositionSidebar:
		return p, nil
	default:
		return "", NewValidationError("Unknown placement position %q", s)
	}
}

// MediaType is the kind of media attached to a slot
type MediaType string

const (
	MediaTypeNone  MediaType = ""
	MediaTypeImage MediaType = "IMAGE"
	MediaTypeVideo MediaType = "VIDEO"
)

// ParseMediaType parses IMAGE or VIDEO case-insensitively
func ParseMediaType(s string) (MediaType, error) {
	switch m := MediaType(strings.ToUpper(strings.TrimSpace(s))); m {
	case MediaTypeImage, MediaTypeVideo:
		return m, nil
	default:
		return MediaTypeNone, NewValidationError("Unknown media type %q", s)
	}
}

// PlacementCapacity holds the configured size of each list
type PlacementCapacity struct {
	Homepage int
	Sidebar  int
}

// DefaultPlacementCapacity returns HOMEPAGE 7 and SIDEBAR 10
func DefaultPlacementCapacity() PlacementCapacity {
	return PlacementCapacity{Homepage: DefaultHomepageCapacity, Sidebar: DefaultSidebarCapacity}
}

// For returns the capacity of position
func (c PlacementCapacity) For(position Position) int {
	switch position {
	case PositionHomepage:
		return c.Homepage
	case PositionSidebar:
		return c.Sidebar
	default:
		return 0
	}
}

// PlacementSlot associates a category with a position and a 1-based order.
// An empty ID marks a slot that has not been persisted yet.
type PlacementSlot struct {
	ID           string
	MerchantID   uuid.UUID
	CategoryID   uuid.UUID
	CategoryName string
	Position     Position
	Order        int
	ThumbnailURL string
	MediaType    MediaType
}

// IsPersisted reports whether the slot exists in storage
func (s PlacementSlot) IsPersisted() bool {
	return s.ID != ""
}

// SaveSet is the minimal persistence instruction for one list: delete
// RemovedIDs, then upsert Upserts with their final orders. Baseline holds
// the stored slot ids the edits were made against; persistence refuses the
// save when the stored list no longer matches it. Capacity bounds the
// stored result.
type SaveSet struct {
	RemovedIDs []string
	Upserts    []PlacementSlot
	Baseline   []string
	Capacity   int
}

// IsEmpty reports whether there is nothing to delete or upsert
func (s SaveSet) IsEmpty() bool {
	return len(s.RemovedIDs) == 0 && len(s.Upserts) == 0
}
