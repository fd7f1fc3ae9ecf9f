package catalog

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ListState is the edit state of a PlacementList
type ListState int

const (
	ListStateClean ListState = iota
	ListStateDirty
)

func (s ListState) String() string {
	if s == ListStateDirty {
		return "dirty"
	}
	return "clean"
}

// PlacementList keeps one capacity-bounded list of slots for a position.
// Orders are always 1..N. Edits stay local until ComputeSaveSet is
// persisted and MarkSaved is called.
type PlacementList struct {
	merchantID uuid.UUID
	position   Position
	capacity   int
	slots      []PlacementSlot
	removedIDs []string
	baseline   []string
	state      ListState
}

// NewPlacementList builds a clean list from stored slots. Slots of other
// positions are ignored and orders are normalised to 1..N.
func NewPlacementList(merchantID uuid.UUID, position Position, capacity int, slots []PlacementSlot) *PlacementList {
	own := make([]PlacementSlot, 0, len(slots))
	for _, s := range slots {
		if s.Position == position {
			own = append(own, s)
		}
	}
	sort.SliceStable(own, func(i, j int) bool { return own[i].Order < own[j].Order })

	l := &PlacementList{
		merchantID: merchantID,
		position:   position,
		capacity:   capacity,
		slots:      own,
		baseline:   storedIDs(own),
	}
	l.renumber()
	return l
}

// Add appends category to the end of the list
func (l *PlacementList) Add(categoryID uuid.UUID, categoryName string) (PlacementSlot, error) {
	if len(l.slots) >= l.capacity {
		return PlacementSlot{}, NewCapacityExceededError(l.position, l.capacity)
	}
	if l.indexOf(categoryID) >= 0 {
		return PlacementSlot{}, NewDuplicatePlacementError(l.position, categoryID)
	}

	slot := PlacementSlot{
		MerchantID:   l.merchantID,
		CategoryID:   categoryID,
		CategoryName: categoryName,
		Position:     l.position,
		Order:        len(l.slots) + 1,
	}
	l.slots = append(l.slots, slot)
	l.state = ListStateDirty
	return slot, nil
}

// Remove drops the slot of categoryID and renumbers the rest. Only a
// persisted slot leaves a delete instruction behind.
func (l *PlacementList) Remove(categoryID uuid.UUID) error {
	i := l.indexOf(categoryID)
	if i < 0 {
		return NewNotFoundError("Placement for category", categoryID)
	}
	if id := l.slots[i].ID; id != "" {
		l.removedIDs = append(l.removedIDs, id)
	}
	l.slots = append(l.slots[:i:i], l.slots[i+1:]...)
	l.renumber()
	l.state = ListStateDirty
	return nil
}

// Reorder applies a full new ordering. orderedCategoryIDs must be a
// permutation of the categories currently in the list.
func (l *PlacementList) Reorder(orderedCategoryIDs []uuid.UUID) error {
	if len(orderedCategoryIDs) != len(l.slots) {
		return NewValidationError("Reorder expects %d categories, got %d", len(l.slots), len(orderedCategoryIDs))
	}
	reordered := make([]PlacementSlot, 0, len(l.slots))
	seen := make(map[uuid.UUID]bool, len(orderedCategoryIDs))
	for _, id := range orderedCategoryIDs {
		if seen[id] {
			return NewValidationError("Category %s appears more than once in the new order", id)
		}
		seen[id] = true
		i := l.indexOf(id)
		if i < 0 {
			return NewValidationError("Category %s is not part of the %s list", id, l.position)
		}
		reordered = append(reordered, l.slots[i])
	}
	l.slots = reordered
	l.renumber()
	l.state = ListStateDirty
	return nil
}

// Move shifts categoryID by delta places (negative is up)
func (l *PlacementList) Move(categoryID uuid.UUID, delta int) error {
	i := l.indexOf(categoryID)
	if i < 0 {
		return NewNotFoundError("Placement for category", categoryID)
	}
	j := i + delta
	if delta == 0 || j < 0 || j >= len(l.slots) {
		return NewValidationError("Cannot move %s from position %d by %d", categoryID, i+1, delta)
	}

	order := l.CategoryIDs()
	moved := order[i]
	order = append(order[:i], order[i+1:]...)
	order = append(order[:j], append([]uuid.UUID{moved}, order[j:]...)...)
	return l.Reorder(order)
}

// SetMedia attaches media to the slot of categoryID
func (l *PlacementList) SetMedia(categoryID uuid.UUID, url string, mediaType MediaType) error {
	i := l.indexOf(categoryID)
	if i < 0 {
		return NewNotFoundError("Placement for category", categoryID)
	}
	if url == "" {
		return NewValidationError("Media URL is required")
	}
	if mediaType != MediaTypeImage && mediaType != MediaTypeVideo {
		return NewValidationError("Unknown media type %q", mediaType)
	}
	l.slots[i].ThumbnailURL = url
	l.slots[i].MediaType = mediaType
	l.state = ListStateDirty
	return nil
}

// ComputeSaveSet returns the delete and upsert instructions for the
// current local state. It does not change the list.
func (l *PlacementList) ComputeSaveSet() SaveSet {
	set := SaveSet{
		RemovedIDs: append([]string(nil), l.removedIDs...),
		Upserts:    l.Slots(),
		Baseline:   append([]string(nil), l.baseline...),
		Capacity:   l.capacity,
	}
	if set.RemovedIDs == nil {
		set.RemovedIDs = []string{}
	}
	return set
}

// MarkSaved replaces the slots with their persisted form and marks the list clean
func (l *PlacementList) MarkSaved(persisted []PlacementSlot) {
	fresh := NewPlacementList(l.merchantID, l.position, l.capacity, persisted)
	l.slots = fresh.slots
	l.baseline = fresh.baseline
	l.removedIDs = nil
	l.state = ListStateClean
}

// Clone returns a deep copy of the list
func (l *PlacementList) Clone() *PlacementList {
	cp := *l
	cp.slots = append([]PlacementSlot(nil), l.slots...)
	cp.removedIDs = append([]string(nil), l.removedIDs...)
	cp.baseline = append([]string(nil), l.baseline...)
	return &cp
}

// Slots returns a copy of the slots in order
func (l *PlacementList) Slots() []PlacementSlot {
	out := make([]PlacementSlot, len(l.slots))
	copy(out, l.slots)
	return out
}

// CategoryIDs returns the placed category ids in order
func (l *PlacementList) CategoryIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(l.slots))
	for i, s := range l.slots {
		ids[i] = s.CategoryID
	}
	return ids
}

// RemovedIDs returns the ids pending deletion
func (l *PlacementList) RemovedIDs() []string {
	return append([]string(nil), l.removedIDs...)
}

// Baseline returns the sorted ids of the stored slots the list was loaded
// from or last saved as
func (l *PlacementList) Baseline() []string {
	return append([]string(nil), l.baseline...)
}

// Contains reports whether categoryID is placed in the list
func (l *PlacementList) Contains(categoryID uuid.UUID) bool {
	return l.indexOf(categoryID) >= 0
}

// MerchantID returns the owning merchant
func (l *PlacementList) MerchantID() uuid.UUID { return l.merchantID }

// Position returns the list position
func (l *PlacementList) Position() Position { return l.position }

// Capacity returns the maximum number of slots
func (l *PlacementList) Capacity() int { return l.capacity }

// Len returns the number of slots
func (l *PlacementList) Len() int { return len(l.slots) }

// State returns the edit state
func (l *PlacementList) State() ListState { return l.state }

// IsDirty reports whether there are unsaved edits
func (l *PlacementList) IsDirty() bool { return l.state == ListStateDirty }

func (l *PlacementList) indexOf(categoryID uuid.UUID) int {
	for i := range l.slots {
		if l.slots[i].CategoryID == categoryID {
			return i
		}
	}
	return -1
}

func (l *PlacementList) renumber() {
	for i := range l.slots {
		l.slots[i].Order = i + 1
	}
}

func storedIDs(slots []PlacementSlot) []string {
	ids := make([]string, 0, len(slots))
	for _, s := range slots {
		if s.IsPersisted() {
			ids = append(ids, s.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// ValidateStored checks a stored list against the list invariants: at most
// capacity slots, each category once, and orders 1..N.
func ValidateStored(position Position, capacity int, stored []PlacementSlot) error {
	if capacity > 0 && len(stored) > capacity {
		return NewConcurrencyConflictError(
			fmt.Sprintf("%s list would hold %d slots, capacity is %d", position, len(stored), capacity), nil)
	}
	orders := make([]int, 0, len(stored))
	seen := make(map[uuid.UUID]bool, len(stored))
	for _, s := range stored {
		if seen[s.CategoryID] {
			return NewConcurrencyConflictError(
				fmt.Sprintf("Category %s is stored twice in %s", s.CategoryID, position), nil)
		}
		seen[s.CategoryID] = true
		orders = append(orders, s.Order)
	}
	sort.Ints(orders)
	for i, o := range orders {
		if o != i+1 {
			return NewConcurrencyConflictError(
				fmt.Sprintf("%s list orders are not contiguous", position), nil)
		}
	}
	return nil
}
