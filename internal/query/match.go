package query

import (
	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/obs/log"
	"github.com/samyama-ai/samyama-graph-sub001/internal/store"
)

// matchPath expands rows against one pattern path, producing one output row
// per distinct match. A row that already binds a pattern variable (from an
// earlier clause or an earlier pattern in the same MATCH) is checked for
// consistency rather than rebound.
func (e *Executor) matchPath(rows []Row, path *PatternPath, optional bool) ([]Row, error) {
	var out []Row
	for _, row := range rows {
		matches, err := e.matchPathFromRow(row, path)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 && optional {
			clone := row.clone()
			for _, np := range path.Nodes {
				if np.Var != "" {
					if _, ok := clone[np.Var]; !ok {
						clone[np.Var] = nil
					}
				}
			}
			for _, rp := range path.Rels {
				if rp.Var != "" {
					if _, ok := clone[rp.Var]; !ok {
						clone[rp.Var] = nil
					}
				}
			}
			out = append(out, clone)
			continue
		}
		out = append(out, matches...)
	}
	return out, nil
}

func (e *Executor) matchPathFromRow(row Row, path *PatternPath) ([]Row, error) {
	firstCandidates, err := e.candidateNodes(row, path.Nodes[0])
	if err != nil {
		return nil, err
	}
	frontier := make([]Row, 0, len(firstCandidates))
	for _, id := range firstCandidates {
		r := row.clone()
		if path.Nodes[0].Var != "" {
			r[path.Nodes[0].Var] = id
		}
		frontier = append(frontier, r)
	}

	for i, rel := range path.Rels {
		fromPattern := path.Nodes[i]
		toPattern := path.Nodes[i+1]
		var next []Row
		for _, r := range frontier {
			fromId, _ := r[fromPattern.Var].(graphval.NodeId)
			refs, err := e.candidateNeighbors(r, fromId, rel)
			if err != nil {
				return nil, err
			}
			for _, ref := range refs {
				otherEnd := ref.Target
				if rel.Direction == DirIn || (rel.Direction == DirEither && ref.Target == fromId) {
					otherEnd = ref.Source
				}
				if !e.nodeMatchesPattern(row, toPattern, otherEnd) {
					continue
				}
				r2 := r.clone()
				if rel.Var != "" {
					r2[rel.Var] = ref.Edge
				}
				if toPattern.Var != "" {
					r2[toPattern.Var] = otherEnd
				}
				next = append(next, r2)
			}
		}
		frontier = next
	}
	return frontier, nil
}

// candidateNodes returns the node ids eligible to bind a node pattern,
// honoring a variable already bound earlier in the row. A labeled pattern
// with an inline equality predicate on a declared (label, key) index seeks
// the property index; a labeled pattern without one scans the label index;
// a label-less pattern falls back to a full node scan, logged at warning
// level since it touches every live node.
func (e *Executor) candidateNodes(row Row, np *NodePattern) ([]graphval.NodeId, error) {
	if np.Var != "" {
		if bound, ok := row[np.Var]; ok {
			if id, ok := bound.(graphval.NodeId); ok {
				if e.nodeMatchesPattern(row, np, id) {
					return []graphval.NodeId{id}, nil
				}
				return nil, nil
			}
		}
	}

	var base []graphval.NodeId
	if len(np.Labels) > 0 {
		labelId, ok := e.env.Interner.Lookup(np.Labels[0])
		if !ok {
			return nil, nil
		}
		base, ok = e.indexSeek(row, np)
		if !ok {
			base = e.env.Store.NodesByLabel(graphval.LabelId(labelId), e.env.AsOf)
		}
	} else {
		log.Logger.Warn().Str("tenant", string(e.env.Tenant)).Msg("match pattern has no label; falling back to a full node scan")
		base = e.env.Store.AllNodeIds(e.env.AsOf)
	}

	out := make([]graphval.NodeId, 0, len(base))
	for _, id := range base {
		if e.nodeMatchesPattern(row, np, id) {
			out = append(out, id)
		}
	}
	return out, nil
}

// indexSeek serves a node pattern from the property index when one of its
// inline equality predicates is on a declared (label, key) index. The
// seek result is a superset candidate set (the index reflects the current
// state, not the read snapshot); candidateNodes re-verifies every id
// against the pattern at the statement's read version.
func (e *Executor) indexSeek(row Row, np *NodePattern) ([]graphval.NodeId, bool) {
	for key, expr := range np.Props {
		if !e.env.Store.HasPropertyIndex(np.Labels[0], key) {
			continue
		}
		v, err := e.eval(row, expr)
		if err != nil {
			continue
		}
		return e.env.Store.PropertyIndex().Seek(key, fromAny(v)), true
	}
	return nil, false
}

func (e *Executor) nodeMatchesPattern(row Row, np *NodePattern, id graphval.NodeId) bool {
	n, err := e.env.Store.GetNodeAt(id, e.env.AsOf)
	if err != nil {
		return false
	}
	for _, l := range np.Labels {
		labelId, ok := e.env.Interner.Lookup(l)
		if !ok || !n.HasLabel(graphval.LabelId(labelId)) {
			return false
		}
	}
	for key, expr := range np.Props {
		want, err := e.eval(row, expr)
		if err != nil {
			return false
		}
		got, ok := n.Properties[key]
		if !ok || !valuesEqual(toAny(got), want) {
			return false
		}
	}
	return true
}

// candidateNeighbors expands one relationship pattern from a bound node
// using the store's lightweight adjacency triples: direction and edge type
// filter on scalars without touching any edge's property map; only a
// pattern carrying inline relationship predicates fetches the full edge
// records, and only for the already type-filtered candidates.
func (e *Executor) candidateNeighbors(row Row, id graphval.NodeId, rel *RelPattern) ([]store.NeighborRef, error) {
	var dir store.Direction
	switch rel.Direction {
	case DirOut:
		dir = store.DirOut
	case DirIn:
		dir = store.DirIn
	default:
		dir = store.DirBoth
	}

	var types []graphval.EdgeTypeId
	for _, t := range rel.Types {
		if tid, ok := e.env.Interner.Lookup(t); ok {
			types = append(types, graphval.EdgeTypeId(tid))
		}
	}
	if len(rel.Types) > 0 && len(types) == 0 {
		// every named type is unknown to the interner: nothing can match
		return nil, nil
	}

	refs := e.env.Store.Neighbors(id, dir, e.env.AsOf, types...)
	if len(rel.Props) == 0 {
		return refs, nil
	}

	out := refs[:0:0]
	for _, ref := range refs {
		ed, err := e.env.Store.GetEdgeAt(ref.Edge, e.env.AsOf)
		if err != nil {
			continue
		}
		if e.edgeMatchesProps(row, rel, ed) {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (e *Executor) edgeMatchesProps(row Row, rel *RelPattern, ed *graphval.Edge) bool {
	for key, expr := range rel.Props {
		want, err := e.eval(row, expr)
		if err != nil {
			return false
		}
		got, ok := ed.Properties[key]
		if !ok || !valuesEqual(toAny(got), want) {
			return false
		}
	}
	return true
}
