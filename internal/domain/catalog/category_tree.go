package catalog

import (
	"github.com/google/uuid"
)

// MaxTraversalDepth bounds every walk over parent edges so malformed
// (cyclic) data cannot loop forever.
const MaxTraversalDepth = 8

// CategoryTreeNode is one node of a forest built from a flat category set
type CategoryTreeNode struct {
	Category Category
	Children []*CategoryTreeNode
}

// CategoryIndex is a read-only arena over a flat category set with a
// parent index. Positions in the arena follow the input order.
type CategoryIndex struct {
	nodes    []Category
	byID     map[uuid.UUID]int
	children map[uuid.UUID][]int
	roots    []int
}

// NewCategoryIndex indexes nodes. A node whose parent does not resolve
// inside nodes, or that names itself as parent, is indexed as a root.
func NewCategoryIndex(nodes []Category) *CategoryIndex {
	idx := &CategoryIndex{
		nodes:    nodes,
		byID:     make(map[uuid.UUID]int, len(nodes)),
		children: make(map[uuid.UUID][]int),
	}
	for i := range nodes {
		if _, dup := idx.byID[nodes[i].ID]; !dup {
			idx.byID[nodes[i].ID] = i
		}
	}
	for i := range nodes {
		if idx.byID[nodes[i].ID] != i {
			continue
		}
		parent, ok := idx.resolvedParent(i)
		if !ok {
			idx.roots = append(idx.roots, i)
			continue
		}
		idx.children[parent] = append(idx.children[parent], i)
	}
	return idx
}

func (idx *CategoryIndex) resolvedParent(i int) (uuid.UUID, bool) {
	pid := idx.nodes[i].ParentID
	if pid == nil || *pid == idx.nodes[i].ID {
		return uuid.Nil, false
	}
	if _, ok := idx.byID[*pid]; !ok {
		return uuid.Nil, false
	}
	return *pid, true
}

// Get returns a copy of the category with the given id
func (idx *CategoryIndex) Get(id uuid.UUID) (Category, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return Category{}, false
	}
	return idx.nodes[i], true
}

// Contains reports whether id is part of the set
func (idx *CategoryIndex) Contains(id uuid.UUID) bool {
	_, ok := idx.byID[id]
	return ok
}

// Len returns the number of distinct categories
func (idx *CategoryIndex) Len() int {
	return len(idx.byID)
}

// HasChildren reports whether any category names id as its parent
func (idx *CategoryIndex) HasChildren(id uuid.UUID) bool {
	return len(idx.children[id]) > 0
}

// ChildIDs returns the direct children of id in input order
func (idx *CategoryIndex) ChildIDs(id uuid.UUID) []uuid.UUID {
	kids := idx.children[id]
	ids := make([]uuid.UUID, 0, len(kids))
	for _, k := range kids {
		ids = append(ids, idx.nodes[k].ID)
	}
	return ids
}

// DescendantsOf returns every transitive descendant of id in breadth-first
// order, excluding id itself.
func (idx *CategoryIndex) DescendantsOf(id uuid.UUID) []uuid.UUID {
	if !idx.Contains(id) {
		return nil
	}
	visited := map[uuid.UUID]bool{id: true}
	var out []uuid.UUID
	frontier := []uuid.UUID{id}
	for depth := 0; depth < MaxTraversalDepth && len(frontier) > 0; depth++ {
		var next []uuid.UUID
		for _, cur := range frontier {
			for _, k := range idx.children[cur] {
				childID := idx.nodes[k].ID
				if visited[childID] {
					continue
				}
				visited[childID] = true
				out = append(out, childID)
				next = append(next, childID)
			}
		}
		frontier = next
	}
	return out
}

// AncestorPathOf returns the ids from the root down to id, id included.
// A parent that does not resolve ends the walk, so orphans start their own path.
func (idx *CategoryIndex) AncestorPathOf(id uuid.UUID) []uuid.UUID {
	i, ok := idx.byID[id]
	if !ok {
		return nil
	}
	path := []uuid.UUID{id}
	seen := map[uuid.UUID]bool{id: true}
	for steps := 0; steps < MaxTraversalDepth; steps++ {
		parent, ok := idx.resolvedParent(i)
		if !ok || seen[parent] {
			break
		}
		seen[parent] = true
		path = append(path, parent)
		i = idx.byID[parent]
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// RootOf returns the level-0 ancestor of id, or id itself when unknown
func (idx *CategoryIndex) RootOf(id uuid.UUID) uuid.UUID {
	path := idx.AncestorPathOf(id)
	if len(path) == 0 {
		return id
	}
	return path[0]
}

// SubtreeHeight returns how many levels lie below id (0 for a leaf)
func (idx *CategoryIndex) SubtreeHeight(id uuid.UUID) int {
	height := 0
	frontier := []uuid.UUID{id}
	visited := map[uuid.UUID]bool{id: true}
	for depth := 0; depth < MaxTraversalDepth; depth++ {
		var next []uuid.UUID
		for _, cur := range frontier {
			for _, k := range idx.children[cur] {
				childID := idx.nodes[k].ID
				if !visited[childID] {
					visited[childID] = true
					next = append(next, childID)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		height++
		frontier = next
	}
	return height
}

// LevelFor returns the level a new child of parentID would get
func (idx *CategoryIndex) LevelFor(parentID *uuid.UUID) (int, error) {
	if parentID == nil {
		return 0, nil
	}
	parent, ok := idx.Get(*parentID)
	if !ok {
		return 0, NewReferentialIntegrityError(*parentID)
	}
	level := parent.Level + 1
	if level > MaxCategoryLevel {
		return 0, NewDepthExceededError(level)
	}
	return level, nil
}

// PathNames renders the ancestor path of id as display names
func (idx *CategoryIndex) PathNames(id uuid.UUID) []string {
	path := idx.AncestorPathOf(id)
	names := make([]string, 0, len(path))
	for _, p := range path {
		c, _ := idx.Get(p)
		names = append(names, c.Name)
	}
	return names
}

// BuildTree groups the flat set into a forest. Roots and children keep their
// input order. Nodes caught in a parent cycle are promoted to roots so that
// nothing disappears from view. The input is never mutated.
func (idx *CategoryIndex) BuildTree() []*CategoryTreeNode {
	visited := make([]bool, len(idx.nodes))
	var build func(i, depth int) *CategoryTreeNode
	build = func(i, depth int) *CategoryTreeNode {
		visited[i] = true
		node := &CategoryTreeNode{Category: idx.copyOf(i)}
		if depth >= MaxTraversalDepth {
			return node
		}
		for _, k := range idx.children[idx.nodes[i].ID] {
			if visited[k] {
				continue
			}
			node.Children = append(node.Children, build(k, depth+1))
		}
		return node
	}

	forest := make([]*CategoryTreeNode, 0, len(idx.roots))
	for _, r := range idx.roots {
		forest = append(forest, build(r, 0))
	}
	for i := range idx.nodes {
		if !visited[i] && idx.byID[idx.nodes[i].ID] == i {
			forest = append(forest, build(i, 0))
		}
	}
	return forest
}

func (idx *CategoryIndex) copyOf(i int) Category {
	c := *idx.nodes[i].Clone()
	c.HasChildren = idx.HasChildren(c.ID)
	return c
}

// BuildTree groups nodes into a forest, see CategoryIndex.BuildTree
func BuildTree(nodes []Category) []*CategoryTreeNode {
	return NewCategoryIndex(nodes).BuildTree()
}

// Flatten walks a forest in pre-order and returns the categories
func Flatten(forest []*CategoryTreeNode) []Category {
	var out []Category
	var walk func(n *CategoryTreeNode)
	walk = func(n *CategoryTreeNode) {
		out = append(out, n.Category)
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, root := range forest {
		walk(root)
	}
	return out
}

// DescendantsOf returns every transitive descendant of id
func DescendantsOf(id uuid.UUID, nodes []Category) []uuid.UUID {
	return NewCategoryIndex(nodes).DescendantsOf(id)
}

// AncestorPathOf returns the root-first path ending with id
func AncestorPathOf(id uuid.UUID, nodes []Category) []uuid.UUID {
	return NewCategoryIndex(nodes).AncestorPathOf(id)
}

// LevelFor returns the level of a new child of parentID within nodes
func LevelFor(parentID *uuid.UUID, nodes []Category) (int, error) {
	return NewCategoryIndex(nodes).LevelFor(parentID)
}

// AnnotateHasChildren returns copies of nodes with HasChildren derived from the set
func AnnotateHasChildren(nodes []Category) []Category {
	idx := NewCategoryIndex(nodes)
	out := make([]Category, len(nodes))
	for i := range nodes {
		out[i] = idx.copyOf(i)
	}
	return out
}
