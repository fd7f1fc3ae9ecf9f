package catalog

import (
	"fmt"

	"github.com/google/uuid"
)

// VisibilityPlan is the set of categories a visibility cascade changes.
// Changes holds modified clones; categories already at the requested
// visibility are left out, so an empty plan is a successful no-op.
type VisibilityPlan struct {
	TargetID uuid.UUID
	Visible  bool
	Changes  []*Category
}

// IsNoop reports whether nothing needs to be written
func (p *VisibilityPlan) IsNoop() bool {
	return len(p.Changes) == 0
}

// PlanVisibility computes the effect of setting visible on targetID and,
// when includeDescendants is set, on its whole subtree.
func PlanVisibility(nodes []Category, targetID uuid.UUID, visible, includeDescendants bool) (*VisibilityPlan, error) {
	idx := NewCategoryIndex(nodes)
	target, ok := idx.Get(targetID)
	if !ok {
		return nil, NewNotFoundError("Category", targetID)
	}

	ids := []uuid.UUID{target.ID}
	if includeDescendants {
		ids = append(ids, idx.DescendantsOf(targetID)...)
	}

	plan := &VisibilityPlan{TargetID: targetID, Visible: visible}
	for _, id := range ids {
		c, _ := idx.Get(id)
		clone := c.Clone()
		if clone.SetVisible(visible) {
			plan.Changes = append(plan.Changes, clone)
		}
	}
	return plan, nil
}

// DeletionPlan lists the categories removed by a delete, target first
type DeletionPlan struct {
	TargetID uuid.UUID
	Doomed   []*Category
}

// PlanDeletion validates the delete preconditions before anything is
// touched. A category that owns products is never deletable, whether it is
// the target or a descendant taken along by includeDescendants, and a
// parent needs includeDescendants to take its subtree with it.
// productCounts maps category ids to the number of products they own.
func PlanDeletion(nodes []Category, targetID uuid.UUID, includeDescendants bool, productCounts map[uuid.UUID]int64) (*DeletionPlan, error) {
	idx := NewCategoryIndex(nodes)
	target, ok := idx.Get(targetID)
	if !ok {
		return nil, NewNotFoundError("Category", targetID)
	}
	if n := productCounts[targetID]; n > 0 {
		return nil, NewDeletionBlockedError(
			fmt.Sprintf("Category %q owns %d products and cannot be deleted", target.Name, n))
	}

	descendants := idx.DescendantsOf(targetID)
	if len(descendants) > 0 && !includeDescendants {
		return nil, NewDeletionBlockedError(
			fmt.Sprintf("Category %q has %d subcategories; delete them too or move them first", target.Name, len(descendants)))
	}
	for _, id := range descendants {
		if n := productCounts[id]; n > 0 {
			c, _ := idx.Get(id)
			return nil, NewDeletionBlockedError(
				fmt.Sprintf("Subcategory %q of %q owns %d products and cannot be deleted", c.Name, target.Name, n))
		}
	}

	plan := &DeletionPlan{TargetID: targetID}
	for _, id := range append([]uuid.UUID{targetID}, descendants...) {
		c, _ := idx.Get(id)
		clone := c.Clone()
		clone.MarkDeleted()
		plan.Doomed = append(plan.Doomed, clone)
	}
	return plan, nil
}

// MovePlan re-parents a category and shifts the level of its subtree
type MovePlan struct {
	TargetID uuid.UUID
	Changes  []*Category
}

// IsNoop reports whether the category already sits under the requested parent
func (p *MovePlan) IsNoop() bool {
	return len(p.Changes) == 0
}

// PlanMove computes the move of targetID under newParentID (nil for root).
// Moving a category into its own subtree is rejected, as is any move that
// would push a descendant past MaxCategoryLevel.
func PlanMove(nodes []Category, targetID uuid.UUID, newParentID *uuid.UUID) (*MovePlan, error) {
	idx := NewCategoryIndex(nodes)
	target, ok := idx.Get(targetID)
	if !ok {
		return nil, NewNotFoundError("Category", targetID)
	}

	plan := &MovePlan{TargetID: targetID}
	if newParentID == nil && target.ParentID == nil {
		return plan, nil
	}
	if newParentID != nil && target.HasParent(*newParentID) {
		return plan, nil
	}

	descendants := idx.DescendantsOf(targetID)
	if newParentID != nil {
		if *newParentID == targetID {
			return nil, NewValidationError("Category cannot be its own parent")
		}
		for _, d := range descendants {
			if d == *newParentID {
				return nil, NewValidationError("Category cannot be moved under its own descendant")
			}
		}
	}

	newLevel, err := idx.LevelFor(newParentID)
	if err != nil {
		return nil, err
	}
	if deepest := newLevel + idx.SubtreeHeight(targetID); deepest > MaxCategoryLevel {
		return nil, NewDepthExceededError(deepest)
	}

	delta := newLevel - target.Level
	moved := target.Clone()
	moved.reparent(newParentID, newLevel)
	plan.Changes = append(plan.Changes, moved)
	if delta != 0 {
		for _, id := range descendants {
			c, _ := idx.Get(id)
			clone := c.Clone()
			clone.shiftLevel(delta)
			plan.Changes = append(plan.Changes, clone)
		}
	}
	return plan, nil
}
