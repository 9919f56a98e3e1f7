// Package graphval holds the identifier and value types shared by every
// other package in this module: node and edge ids, interned label and edge
// type ids, and the tagged-union property value.
package graphval

import "fmt"

// NodeId identifies a node for the lifetime of the graph. Ids are never
// reused once assigned, even after the node is deleted.
type NodeId uint64

func (id NodeId) String() string {
	return fmt.Sprintf("n%d", uint64(id))
}

// EdgeId identifies an edge for the lifetime of the graph.
type EdgeId uint64

func (id EdgeId) String() string {
	return fmt.Sprintf("e%d", uint64(id))
}

// LabelId is an interned node label.
type LabelId uint32

// EdgeTypeId is an interned edge type.
type EdgeTypeId uint32

// Version is an MVCC store version, monotonically increasing with every
// committed mutation.
type Version uint64

// TenantId identifies the owner of a node, edge, index, or quota.
type TenantId string
