package query

import (
	"sort"
	"time"

	"github.com/samyama-ai/samyama-graph-sub001/internal/algo"
	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
	"github.com/samyama-ai/samyama-graph-sub001/internal/store"
)

// ProcResult is the tabular output of one CALL: named columns plus the
// rows a procedure yields, fully materialized before the calling
// statement's downstream operators see them.
type ProcResult struct {
	Columns []string
	Rows    [][]any
}

// ProcFunc is the uniform contract every built-in procedure implements: a
// function over positional arguments and the executing Env, so solvers and
// analytics live as values in one registry rather than a type hierarchy.
type ProcFunc func(env *Env, args []any) (*ProcResult, error)

// ProcedureRegistry maps dotted procedure names to their implementation.
type ProcedureRegistry struct {
	procs map[string]ProcFunc
}

// NewProcedureRegistry returns a registry with every built-in procedure
// registered.
func NewProcedureRegistry() *ProcedureRegistry {
	r := &ProcedureRegistry{procs: make(map[string]ProcFunc)}
	r.Register("algo.pageRank", procPageRank)
	r.Register("algo.shortestPath", procShortestPath)
	r.Register("algo.bfs", procBFS)
	r.Register("algo.wcc", procWCC)
	r.Register("algo.scc", procSCC)
	r.Register("algo.maxFlow", procMaxFlow)
	r.Register("algo.mst", procMST)
	r.Register("algo.triangles", procTriangles)
	r.Register("db.index.vector.queryNodes", procVectorQueryNodes)
	r.Register("algo.or.solve", procOrSolve)
	return r
}

// Register installs or replaces a procedure implementation. Exposed so a
// host embedding this engine can add further procedures (the metaheuristic
// engine's richer algorithms, custom analytics) without modifying this
// package.
func (r *ProcedureRegistry) Register(name string, fn ProcFunc) {
	r.procs[name] = fn
}

func (r *ProcedureRegistry) lookup(name string) (ProcFunc, bool) {
	fn, ok := r.procs[name]
	return fn, ok
}

// execCall evaluates a CALL clause: resolve its arguments against the
// first input row, invoke the named procedure exactly once per input row set
// (procedures are blocking and argument-independent of downstream row
// identity, so they run once against the statement's shared bindings),
// and bind the yielded columns into the row stream feeding the rest of
// the statement.
func (e *Executor) execCall(rows []Row, c *CallClause) ([]Row, error) {
	if e.env.Procs == nil {
		return nil, samerr.New(samerr.CodeSemanticError, "no procedure registry configured")
	}
	fn, ok := e.env.Procs.lookup(c.Procedure)
	if !ok {
		return nil, samerr.New(samerr.CodeSemanticError, "unknown procedure %q", c.Procedure)
	}

	var argRow Row
	if len(rows) > 0 {
		argRow = rows[0]
	}
	args := make([]any, len(c.Args))
	for i, a := range c.Args {
		v, err := e.eval(argRow, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if err := checkDeadline(e.env); err != nil {
		return nil, err
	}

	result, err := fn(e.env, args)
	if err != nil {
		return nil, samerr.Wrap(samerr.CodeOf(err), err, "procedure %q failed", c.Procedure)
	}

	yield := c.Yield
	if len(yield) == 0 {
		yield = result.Columns
	}
	colIndex := make(map[string]int, len(result.Columns))
	for i, name := range result.Columns {
		colIndex[name] = i
	}
	for _, y := range yield {
		if _, ok := colIndex[y]; !ok {
			return nil, samerr.New(samerr.CodeSemanticError, "procedure %q does not yield column %q", c.Procedure, y)
		}
	}

	base := rows
	if len(base) == 0 {
		base = []Row{{}}
	}
	var out []Row
	for _, prior := range base {
		for _, procRow := range result.Rows {
			r := prior.clone()
			for _, y := range yield {
				r[y] = procRow[colIndex[y]]
			}
			out = append(out, r)
		}
	}
	return out, nil
}

func checkDeadline(env *Env) error {
	if env.Deadline.IsZero() {
		return nil
	}
	if time.Now().After(env.Deadline) {
		return samerr.New(samerr.CodeTimeout, "query deadline exceeded")
	}
	return nil
}

// --- argument helpers ---

func argString(args []any, i int, def string) string {
	if i >= len(args) || args[i] == nil {
		return def
	}
	s, ok := args[i].(string)
	if !ok {
		return def
	}
	return s
}

func argFloat(args []any, i int, def float64) float64 {
	if i >= len(args) || args[i] == nil {
		return def
	}
	f, ok := asFloat(args[i])
	if !ok {
		return def
	}
	return f
}

func argInt(args []any, i int, def int) int {
	if i >= len(args) || args[i] == nil {
		return def
	}
	f, ok := asFloat(args[i])
	if !ok {
		return def
	}
	return int(f)
}

func argNodeId(args []any, i int) (graphval.NodeId, bool) {
	if i >= len(args) || args[i] == nil {
		return 0, false
	}
	switch v := args[i].(type) {
	case graphval.NodeId:
		return v, true
	case int64:
		return graphval.NodeId(v), true
	case float64:
		return graphval.NodeId(v), true
	}
	return 0, false
}

func argVector(args []any, i int) ([]float32, bool) {
	if i >= len(args) || args[i] == nil {
		return nil, false
	}
	list, ok := args[i].([]any)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(list))
	for j, v := range list {
		f, ok := asFloat(v)
		if !ok {
			return nil, false
		}
		out[j] = float32(f)
	}
	return out, true
}

func argMap(args []any, i int) (map[string]any, bool) {
	if i >= len(args) || args[i] == nil {
		return nil, false
	}
	m, ok := args[i].(map[string]any)
	return m, ok
}

// buildGraphSource constructs the narrow algo.Source view over a store for
// an optional label/edge-type filter, so algorithms read the same MVCC
// snapshot a MATCH in the same statement would.
func buildGraphSource(env *Env, label, edgeType, weightProp string) *storeGraphSource {
	return &storeGraphSource{env: env, label: label, edgeType: edgeType, weightProp: weightProp}
}

type storeGraphSource struct {
	env                         *Env
	label, edgeType, weightProp string
}

func (s *storeGraphSource) NodeIds() []graphval.NodeId {
	if s.label == "" {
		return s.env.Store.AllNodeIds(s.env.AsOf)
	}
	lid, ok := s.env.Interner.Lookup(s.label)
	if !ok {
		return nil
	}
	return s.env.Store.NodesByLabel(graphval.LabelId(lid), s.env.AsOf)
}

func (s *storeGraphSource) Successors(id graphval.NodeId) []algo.Edge {
	var types []graphval.EdgeTypeId
	if s.edgeType != "" {
		tid, ok := s.env.Interner.Lookup(s.edgeType)
		if !ok {
			return nil
		}
		types = append(types, graphval.EdgeTypeId(tid))
	}
	refs := s.env.Store.Neighbors(id, store.DirOut, s.env.AsOf, types...)
	out := make([]algo.Edge, 0, len(refs))
	for _, ref := range refs {
		w := 1.0
		// only a weighted projection needs the full edge record
		if s.weightProp != "" {
			if e, err := s.env.Store.GetEdgeAt(ref.Edge, s.env.AsOf); err == nil {
				if pv, ok := e.Properties[s.weightProp]; ok {
					switch pv.Kind {
					case graphval.KindFloat:
						w = pv.Float
					case graphval.KindInt:
						w = float64(pv.Int)
					}
				}
			}
		}
		out = append(out, algo.Edge{Target: ref.Target, Weight: w})
	}
	return out
}

// --- built-in procedures ---

func procPageRank(env *Env, args []any) (*ProcResult, error) {
	label := argString(args, 0, "")
	edgeType := argString(args, 1, "")
	damping := argFloat(args, 2, 0.85)
	iterations := argInt(args, 3, 20)

	src := buildGraphSource(env, label, edgeType, "")
	view := algo.BuildView(src, false)
	scores := algo.PageRank(view, algo.PageRankConfig{DampingFactor: damping, Iterations: iterations, Tolerance: 1e-6})

	rows := make([][]any, 0, len(scores))
	for id, score := range scores {
		rows = append(rows, []any{id, score})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][1].(float64) > rows[j][1].(float64) })
	return &ProcResult{Columns: []string{"node", "score"}, Rows: rows}, nil
}

func procShortestPath(env *Env, args []any) (*ProcResult, error) {
	return pathProcedure(env, args, true)
}

func procBFS(env *Env, args []any) (*ProcResult, error) {
	return pathProcedure(env, args, false)
}

func pathProcedure(env *Env, args []any, weighted bool) (*ProcResult, error) {
	source, ok := argNodeId(args, 0)
	if !ok {
		return nil, samerr.New(samerr.CodeSemanticError, "source_id argument required")
	}
	target, ok := argNodeId(args, 1)
	if !ok {
		return nil, samerr.New(samerr.CodeSemanticError, "target_id argument required")
	}
	weightProp := argString(args, 2, "")

	src := buildGraphSource(env, "", "", weightProp)
	view := algo.BuildView(src, weighted && weightProp != "")

	var result *algo.PathResult
	var found bool
	if weighted && weightProp != "" {
		result, found = algo.Dijkstra(view, source, target)
	} else {
		result, found = algo.BFS(view, source, target)
	}
	if !found {
		return &ProcResult{Columns: []string{"path", "cost"}}, nil
	}
	path := make([]any, len(result.Path))
	for i, id := range result.Path {
		path[i] = id
	}
	return &ProcResult{Columns: []string{"path", "cost"}, Rows: [][]any{{path, result.Cost}}}, nil
}

func procWCC(env *Env, args []any) (*ProcResult, error) {
	return communityProcedure(env, args, false)
}

func procSCC(env *Env, args []any) (*ProcResult, error) {
	return communityProcedure(env, args, true)
}

func communityProcedure(env *Env, args []any, strong bool) (*ProcResult, error) {
	label := argString(args, 0, "")
	edgeType := argString(args, 1, "")
	src := buildGraphSource(env, label, edgeType, "")
	view := algo.BuildView(src, false)

	var result algo.ComponentResult
	if strong {
		result = algo.StronglyConnectedComponents(view)
	} else {
		result = algo.WeaklyConnectedComponents(view)
	}

	rows := make([][]any, 0, len(result.NodeComponent))
	for id, comp := range result.NodeComponent {
		rows = append(rows, []any{id, int64(comp)})
	}
	return &ProcResult{Columns: []string{"node", "component_id"}, Rows: rows}, nil
}

func procMaxFlow(env *Env, args []any) (*ProcResult, error) {
	source, ok := argNodeId(args, 0)
	if !ok {
		return nil, samerr.New(samerr.CodeSemanticError, "source_id argument required")
	}
	sink, ok := argNodeId(args, 1)
	if !ok {
		return nil, samerr.New(samerr.CodeSemanticError, "sink_id argument required")
	}
	capacityProp := argString(args, 2, "")

	src := buildGraphSource(env, "", "", capacityProp)
	view := algo.BuildView(src, capacityProp != "")
	result, ok := algo.EdmondsKarp(view, source, sink)
	if !ok {
		return &ProcResult{Columns: []string{"max_flow"}, Rows: [][]any{{0.0}}}, nil
	}
	return &ProcResult{Columns: []string{"max_flow"}, Rows: [][]any{{result.MaxFlow}}}, nil
}

func procMST(env *Env, args []any) (*ProcResult, error) {
	weightProp := argString(args, 0, "")
	src := buildGraphSource(env, "", "", weightProp)
	view := algo.BuildView(src, weightProp != "")
	result := algo.PrimMST(view)

	rows := make([][]any, 0, len(result.Edges))
	for _, e := range result.Edges {
		rows = append(rows, []any{e.Source, e.Target, e.Weight, result.TotalWeight})
	}
	return &ProcResult{Columns: []string{"source", "target", "weight", "total_weight"}, Rows: rows}, nil
}

func procTriangles(env *Env, args []any) (*ProcResult, error) {
	label := argString(args, 0, "")
	src := buildGraphSource(env, label, "", "")
	view := algo.BuildView(src, false)
	count := algo.CountTriangles(view)
	return &ProcResult{Columns: []string{"count"}, Rows: [][]any{{int64(count)}}}, nil
}

func procVectorQueryNodes(env *Env, args []any) (*ProcResult, error) {
	label := argString(args, 0, "")
	key := argString(args, 1, "")
	query, ok := argVector(args, 2)
	if !ok {
		return nil, samerr.New(samerr.CodeSemanticError, "query_vec argument required")
	}
	k := argInt(args, 3, 10)

	idx, ok := env.Store.VectorIndex(label, key)
	if !ok {
		return nil, samerr.New(samerr.CodeNotFound, "no vector index on (%s,%s)", label, key)
	}
	neighbors, err := idx.Search(query, k)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(neighbors))
	for _, n := range neighbors {
		rows = append(rows, []any{n.Id, n.Distance})
	}
	return &ProcResult{Columns: []string{"node", "score"}, Rows: rows}, nil
}
