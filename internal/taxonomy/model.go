package taxonomy

import "time"

// Node is a single addressable tag in the taxonomy forest.
type Node struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	ParentID    string   `json:"parentId,omitempty"`
	Description string   `json:"description,omitempty"`
	Children    []string `json:"children,omitempty"`
	Sheet       string   `json:"sheet"`
	Depth       int      `json:"depth"`
}

// Model is the full tag forest built for one session. It is immutable after
// Build returns; replacing a taxonomy swaps in a whole new Model.
type Model struct {
	Sheets    []string         `json:"sheets"`
	Nodes     map[string]*Node `json:"nodes"`
	Roots     []string         `json:"roots"`
	NodeCount int              `json:"nodeCount"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Lookup returns the node for the given id.
func (m *Model) Lookup(id string) (*Node, bool) {
	if m == nil {
		return nil, false
	}
	node, ok := m.Nodes[id]
	return node, ok
}

// Contains reports whether the model has a node with the given id.
func (m *Model) Contains(id string) bool {
	_, ok := m.Lookup(id)
	return ok
}

// Path returns the ancestor labels of the node, root-first, ending with the
// node's own label.
func (m *Model) Path(id string) []string {
	node, ok := m.Lookup(id)
	if !ok {
		return nil
	}
	labels := []string{node.Label}
	for node.ParentID != "" {
		parent, ok := m.Lookup(node.ParentID)
		if !ok {
			break
		}
		labels = append([]string{parent.Label}, labels...)
		node = parent
	}
	return labels
}

// Walk visits every node in deterministic order: sheets in source order,
// then depth-first in row order within each sheet.
func (m *Model) Walk(visit func(*Node)) {
	if m == nil {
		return
	}
	var walk func(id string)
	walk = func(id string) {
		node, ok := m.Lookup(id)
		if !ok {
			return
		}
		visit(node)
		for _, child := range node.Children {
			walk(child)
		}
	}
	for _, root := range m.Roots {
		walk(root)
	}
}

// IsLeaf reports whether the node has no children.
func (m *Model) IsLeaf(id string) bool {
	node, ok := m.Lookup(id)
	if !ok {
		return false
	}
	return len(node.Children) == 0
}
