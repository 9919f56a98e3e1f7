package persistence

import (
	"encoding/json"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
)

// storedNode is the keyed store's serialized node form. Labels are written
// by name, not interned id: interner ids are assigned in first-use order
// within one process lifetime, so an id recorded by a previous process
// would not resolve after a cold start.
type storedNode struct {
	Id         graphval.NodeId                   `json:"id"`
	Tenant     graphval.TenantId                 `json:"tenant"`
	Labels     []string                          `json:"labels"`
	Properties map[string]graphval.PropertyValue `json:"properties"`
	CreatedAt  graphval.Version                  `json:"created_at"`
	DeletedAt  graphval.Version                  `json:"deleted_at,omitempty"`
}

type storedEdge struct {
	Id         graphval.EdgeId                   `json:"id"`
	Tenant     graphval.TenantId                 `json:"tenant"`
	Type       string                            `json:"type"`
	Source     graphval.NodeId                   `json:"source"`
	Target     graphval.NodeId                   `json:"target"`
	Properties map[string]graphval.PropertyValue `json:"properties"`
	CreatedAt  graphval.Version                  `json:"created_at"`
	DeletedAt  graphval.Version                  `json:"deleted_at,omitempty"`
}

func (e *Engine) encodeNode(n *graphval.Node) ([]byte, error) {
	labels := make([]string, len(n.Labels))
	for i, l := range n.Labels {
		labels[i] = e.interner.Name(uint32(l))
	}
	data, err := json.Marshal(storedNode{
		Id:         n.Id,
		Tenant:     n.Tenant,
		Labels:     labels,
		Properties: n.Properties,
		CreatedAt:  n.CreatedAt,
		DeletedAt:  n.DeletedAt,
	})
	if err != nil {
		return nil, samerr.Wrap(samerr.CodeStorageError, err, "encoding node %s", n.Id)
	}
	return data, nil
}

func (e *Engine) decodeNode(data []byte) (*graphval.Node, error) {
	var sn storedNode
	if err := json.Unmarshal(data, &sn); err != nil {
		return nil, samerr.Wrap(samerr.CodeStorageError, err, "decoding node record")
	}
	labels := make([]graphval.LabelId, len(sn.Labels))
	for i, name := range sn.Labels {
		labels[i] = graphval.LabelId(e.interner.Intern(name))
	}
	return &graphval.Node{
		Id:         sn.Id,
		Tenant:     sn.Tenant,
		Labels:     labels,
		Properties: sn.Properties,
		CreatedAt:  sn.CreatedAt,
		DeletedAt:  sn.DeletedAt,
	}, nil
}

func (e *Engine) encodeEdge(ed *graphval.Edge) ([]byte, error) {
	data, err := json.Marshal(storedEdge{
		Id:         ed.Id,
		Tenant:     ed.Tenant,
		Type:       e.interner.Name(uint32(ed.Type)),
		Source:     ed.Source,
		Target:     ed.Target,
		Properties: ed.Properties,
		CreatedAt:  ed.CreatedAt,
		DeletedAt:  ed.DeletedAt,
	})
	if err != nil {
		return nil, samerr.Wrap(samerr.CodeStorageError, err, "encoding edge %s", ed.Id)
	}
	return data, nil
}

func (e *Engine) decodeEdge(data []byte) (*graphval.Edge, error) {
	var se storedEdge
	if err := json.Unmarshal(data, &se); err != nil {
		return nil, samerr.Wrap(samerr.CodeStorageError, err, "decoding edge record")
	}
	return &graphval.Edge{
		Id:         se.Id,
		Tenant:     se.Tenant,
		Type:       graphval.EdgeTypeId(e.interner.Intern(se.Type)),
		Source:     se.Source,
		Target:     se.Target,
		Properties: se.Properties,
		CreatedAt:  se.CreatedAt,
		DeletedAt:  se.DeletedAt,
	}, nil
}
