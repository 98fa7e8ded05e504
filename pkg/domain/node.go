package domain

// NodeID identifies a node inside one tree.
// IDs start at 1 and are contiguous in build-traversal order; 0 means unassigned.
type NodeID uint32

// Index returns the zero-based slot index addressed by the id.
func (id NodeID) Index() int {
	return int(id) - 1
}

// NodeKind classifies a node for introspection and rendering.
type NodeKind string

const (
	KindRoot      NodeKind = "root"
	KindAction    NodeKind = "action"
	KindCondition NodeKind = "condition"
	KindComposite NodeKind = "composite"
	KindDecorator NodeKind = "decorator"
	KindSubtree   NodeKind = "subtree"
)

// NodeState is a read-only view of one node's per-entity blob.
type NodeState struct {
	ID         NodeID   `json:"id"`
	Name       string   `json:"name"`
	Kind       NodeKind `json:"kind"`
	Depth      int      `json:"depth"`
	Running    bool     `json:"running"`
	LastStatus Status   `json:"last_status"`
	LastSeq    uint64   `json:"last_seq"`
}
