package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
	"github.com/samyama-ai/samyama-graph-sub001/internal/store"
	"github.com/samyama-ai/samyama-graph-sub001/internal/tenant"
	"github.com/samyama-ai/samyama-graph-sub001/internal/vectorindex"
)

// Row binds pattern/projection variables to values for one in-flight
// result: a graphval.NodeId or graphval.EdgeId for pattern variables, or a
// native Go value (bool/int64/float64/string/nil/[]any/map[string]any) for
// everything produced by WITH/UNWIND/RETURN expressions.
type Row map[string]any

func (r Row) clone() Row {
	out := make(Row, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// WriteRecorder durably records a mutation the executor has already
// applied to the tenant's in-memory store, so a statement's writes hit the
// WAL before the caller sees success. internal/session
// wires this to internal/persistence.Engine; tests that only exercise the
// in-memory semantics may leave it nil, in which case writes are visible
// only in memory for the lifetime of the process.
type WriteRecorder interface {
	RecordCreateNode(id graphval.NodeId, labels []string, props map[string]graphval.PropertyValue) error
	RecordCreateEdge(id graphval.EdgeId, edgeType string, source, target graphval.NodeId, props map[string]graphval.PropertyValue) error
	RecordSetNodeProperty(id graphval.NodeId, key string, value graphval.PropertyValue) error
	RecordSetEdgeProperty(id graphval.EdgeId, key string, value graphval.PropertyValue) error
	RecordDeleteNode(id graphval.NodeId) error
	RecordDeleteEdge(id graphval.EdgeId) error
	RecordAddLabel(id graphval.NodeId, label string) error
	RecordRemoveLabel(id graphval.NodeId, label string) error
	RecordCreateIndex(label, key string, vector bool, dim int, metric string) error
}

// Env is the execution context a Statement runs against: the tenant's
// store, its label/type interner, the snapshot version reads are pinned
// to, bound query parameters, tenant quota admission, and the procedure
// registry CALL dispatches into.
type Env struct {
	Store    *store.Store
	Interner *graphval.Interner
	AsOf     graphval.Version
	Tenant   graphval.TenantId
	Quotas   *tenant.Registry
	Params   map[string]graphval.PropertyValue
	Procs    *ProcedureRegistry
	Recorder WriteRecorder
	// Deadline, if non-zero, aborts long-running clauses (CALL in
	// particular) with a CodeTimeout error once passed.
	Deadline time.Time
}

// record is a nil-safe convenience wrapper so mutation call sites don't
// each need an env.Recorder != nil guard.
func (e *Executor) record(fn func(WriteRecorder) error) error {
	if e.env.Recorder == nil {
		return nil
	}
	return fn(e.env.Recorder)
}

func (env *Env) param(name string) any {
	v, ok := env.Params[name]
	if !ok {
		return nil
	}
	return toAny(v)
}

// Result is the tabular output of a RETURN (or terminal WITH) clause.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Executor runs a compiled Statement against an Env.
type Executor struct {
	env *Env
	// admitted records every quota delta this statement committed, so an
	// aborted statement can hand the resources back.
	admitted []admitDelta
}

type admitDelta struct {
	resource tenant.Resource
	delta    int64
}

// NewExecutor returns an Executor bound to env.
func NewExecutor(env *Env) *Executor {
	return &Executor{env: env}
}

// Run executes every clause of stmt in order and returns the final
// projection. A statement with no terminal RETURN/WITH produces an empty
// column result after running its side effects.
//
// A mutating statement runs as one store statement: the write lock is
// held for its whole mutation side, every mutation commits at a single
// version published once at the end, and a failure aborts the statement —
// the store rolls back, quota admissions are returned, and nothing was
// durably recorded (the Recorder only collects the batch; internal/session
// persists it after Run succeeds). The statement's own reads run at the
// pending commit version, so CREATE-then-RETURN and SET-then-read inside
// one statement see the statement's writes.
func (e *Executor) Run(stmt *Statement) (*Result, error) {
	write := stmt.IsWrite()
	if write {
		e.env.AsOf = e.env.Store.BeginStatement()
	}

	rows := []Row{{}}
	var result *Result

	for _, cl := range stmt.Clauses {
		var err error
		switch c := cl.(type) {
		case *MatchClause:
			rows, err = e.execMatch(rows, c)
		case *UnwindClause:
			rows, err = e.execUnwind(rows, c)
		case *WithClause:
			rows, result, err = e.execProject(rows, c.Items, c.Distinct, c.Where, c.OrderBy, c.Skip, c.Limit, false)
		case *ReturnClause:
			rows, result, err = e.execProject(rows, c.Items, c.Distinct, nil, c.OrderBy, c.Skip, c.Limit, true)
		case *CreateClause:
			rows, err = e.execCreate(rows, c)
		case *DeleteClause:
			err = e.execDelete(rows, c)
		case *SetClause:
			rows, err = e.execSet(rows, c)
		case *RemoveClause:
			rows, err = e.execRemove(rows, c)
		case *MergeClause:
			rows, err = e.execMerge(rows, c)
		case *IndexClause:
			err = e.execIndex(c)
		case *CallClause:
			rows, err = e.execCall(rows, c)
		default:
			err = samerr.New(samerr.CodeSemanticError, "unsupported clause %T", cl)
		}
		if err != nil {
			if write {
				e.rollbackAdmissions()
				e.env.Store.AbortStatement()
			}
			return nil, err
		}
	}
	if write {
		e.env.Store.CommitStatement()
	}
	if result != nil {
		return result, nil
	}
	return &Result{}, nil
}

func (e *Executor) execMatch(rows []Row, c *MatchClause) ([]Row, error) {
	for _, path := range c.Patterns {
		var err error
		rows, err = e.matchPath(rows, path, c.Optional)
		if err != nil {
			return nil, err
		}
	}
	if c.Where != nil {
		rows = e.filter(rows, c.Where)
	}
	return rows, nil
}

func (e *Executor) filter(rows []Row, where Expr) []Row {
	out := rows[:0:0]
	for _, r := range rows {
		v, err := e.eval(r, where)
		if err != nil {
			continue
		}
		if truthy(v) {
			out = append(out, r)
		}
	}
	return out
}

func (e *Executor) execUnwind(rows []Row, c *UnwindClause) ([]Row, error) {
	var out []Row
	for _, r := range rows {
		v, err := e.eval(r, c.Expr)
		if err != nil {
			return nil, err
		}
		list, ok := v.([]any)
		if !ok {
			if v == nil {
				continue
			}
			list = []any{v}
		}
		for _, item := range list {
			r2 := r.clone()
			r2[c.Var] = item
			out = append(out, r2)
		}
	}
	return out, nil
}

// execProject evaluates a WITH or RETURN clause: it computes the projected
// columns (detecting and applying any aggregate functions among them),
// applies DISTINCT, Where (WITH only), ORDER BY, SKIP and LIMIT, and
// returns both the resulting Result and the Row set carried forward to the
// next clause (projected columns re-bound by alias or original name).
func (e *Executor) execProject(rows []Row, items []ProjectionItem, distinct bool, where Expr, order []OrderItem, skip, limit Expr, terminal bool) ([]Row, *Result, error) {
	expanded := expandStar(items, rows)

	projected, err := e.runAggregateOrPlain(rows, expanded)
	if err != nil {
		return nil, nil, err
	}

	if where != nil {
		projected = e.filterRows(projected, expanded, where)
	}
	if distinct {
		projected = dedupRows(projected)
	}
	if len(order) > 0 {
		sortRows(projected, func(a, b Row) int {
			for _, ord := range order {
				av := e.orderValue(a, ord.Expr)
				bv := e.orderValue(b, ord.Expr)
				c := compareAny(av, bv)
				if ord.Desc {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}
	if skip != nil {
		n := e.evalInt(rows, skip)
		if n > len(projected) {
			n = len(projected)
		}
		projected = projected[n:]
	}
	if limit != nil {
		n := e.evalInt(rows, limit)
		if n < len(projected) {
			projected = projected[:n]
		}
	}

	columns := make([]string, len(expanded))
	for i, it := range expanded {
		columns[i] = columnName(it)
	}

	result := &Result{Columns: columns}
	for _, r := range projected {
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = r[c]
		}
		result.Rows = append(result.Rows, row)
	}
	_ = terminal
	return projected, result, nil
}

// orderValue resolves an ORDER BY expression against a projected row.
// Projected rows are keyed by output column name ("n.dept", an alias, a
// function name), not by the pattern variables the expression was written
// over, so a sort key that names a projected column reads it directly;
// anything else falls back to ordinary evaluation.
func (e *Executor) orderValue(r Row, ex Expr) any {
	if v, ok := r[columnName(ProjectionItem{Expr: ex})]; ok {
		return v
	}
	v, _ := e.eval(r, ex)
	return v
}

func (e *Executor) filterRows(rows []Row, items []ProjectionItem, where Expr) []Row {
	out := rows[:0:0]
	for _, r := range rows {
		v, err := e.eval(r, where)
		if err == nil && truthy(v) {
			out = append(out, r)
		}
	}
	return out
}

func (e *Executor) evalInt(rows []Row, expr Expr) int {
	var r Row
	if len(rows) > 0 {
		r = rows[0]
	}
	v, err := e.eval(r, expr)
	if err != nil {
		return 0
	}
	f, _ := asFloat(v)
	return int(f)
}

func expandStar(items []ProjectionItem, rows []Row) []ProjectionItem {
	var seen map[string]bool
	var out []ProjectionItem
	for _, it := range items {
		if _, ok := it.Expr.(*StarExpr); ok {
			if seen == nil {
				seen = make(map[string]bool)
			}
			for _, r := range rows {
				for k := range r {
					if !seen[k] {
						seen[k] = true
						out = append(out, ProjectionItem{Expr: &VarExpr{Name: k}})
					}
				}
			}
			continue
		}
		out = append(out, it)
	}
	return out
}

func columnName(it ProjectionItem) string {
	if it.Alias != "" {
		return it.Alias
	}
	switch ex := it.Expr.(type) {
	case *VarExpr:
		return ex.Name
	case *PropertyExpr:
		if base, ok := ex.Base.(*VarExpr); ok {
			return base.Name + "." + ex.Key
		}
	case *FuncCallExpr:
		return ex.Name
	}
	return "expr"
}

func dedupRows(rows []Row) []Row {
	seen := make(map[string]bool, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		key := fmt.Sprintf("%v", r)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func sortRows(rows []Row, less func(a, b Row) int) {
	// simple insertion sort: result sets in this engine are modest, and a
	// stable sort keeps ORDER BY ties in prior (insertion) order.
	for i := 1; i < len(rows); i++ {
		j := i
		for j > 0 && less(rows[j-1], rows[j]) > 0 {
			rows[j-1], rows[j] = rows[j], rows[j-1]
			j--
		}
	}
}

func (e *Executor) execCreate(rows []Row, c *CreateClause) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		r2 := r.clone()
		for _, path := range c.Patterns {
			if err := e.createPath(r2, path); err != nil {
				return nil, err
			}
		}
		out = append(out, r2)
	}
	return out, nil
}

func (e *Executor) createPath(row Row, path *PatternPath) error {
	nodeIds := make([]graphval.NodeId, len(path.Nodes))
	for i, np := range path.Nodes {
		if np.Var != "" {
			if bound, ok := row[np.Var]; ok {
				if id, ok := bound.(graphval.NodeId); ok {
					nodeIds[i] = id
					continue
				}
			}
		}
		props, err := e.evalPropMap(row, np.Props)
		if err != nil {
			return err
		}
		if err := e.admit(tenant.ResourceNodes, 1); err != nil {
			return err
		}
		id := e.env.Store.CreateNode(np.Labels, props)
		if err := e.record(func(r WriteRecorder) error {
			return r.RecordCreateNode(id, np.Labels, props)
		}); err != nil {
			return err
		}
		nodeIds[i] = id
		if np.Var != "" {
			row[np.Var] = id
		}
	}
	for i, rel := range path.Rels {
		if len(rel.Types) == 0 {
			return samerr.New(samerr.CodeSemanticError, "CREATE relationship requires exactly one type")
		}
		props, err := e.evalPropMap(row, rel.Props)
		if err != nil {
			return err
		}
		src, dst := nodeIds[i], nodeIds[i+1]
		if rel.Direction == DirIn {
			src, dst = dst, src
		}
		if err := e.admit(tenant.ResourceEdges, 1); err != nil {
			return err
		}
		edgeId, err := e.env.Store.CreateEdge(rel.Types[0], src, dst, props)
		if err != nil {
			return err
		}
		if err := e.record(func(r WriteRecorder) error {
			return r.RecordCreateEdge(edgeId, rel.Types[0], src, dst, props)
		}); err != nil {
			return err
		}
		if rel.Var != "" {
			row[rel.Var] = edgeId
		}
	}
	return nil
}

func (e *Executor) admit(resource tenant.Resource, delta int64) error {
	if e.env.Quotas == nil {
		return nil
	}
	if err := e.env.Quotas.Admit(e.env.Tenant, resource, delta); err != nil {
		return err
	}
	e.admitted = append(e.admitted, admitDelta{resource: resource, delta: delta})
	return nil
}

// rollbackAdmissions reverses every quota delta the aborted statement
// committed, newest first.
func (e *Executor) rollbackAdmissions() {
	if e.env.Quotas == nil {
		return
	}
	for i := len(e.admitted) - 1; i >= 0; i-- {
		d := e.admitted[i]
		_ = e.env.Quotas.Admit(e.env.Tenant, d.resource, -d.delta)
	}
	e.admitted = nil
}

func (e *Executor) evalPropMap(row Row, props map[string]Expr) (map[string]graphval.PropertyValue, error) {
	out := make(map[string]graphval.PropertyValue, len(props))
	for k, expr := range props {
		v, err := e.eval(row, expr)
		if err != nil {
			return nil, err
		}
		out[k] = fromAny(v)
	}
	return out, nil
}

func (e *Executor) execDelete(rows []Row, c *DeleteClause) error {
	for _, r := range rows {
		for _, v := range c.Vars {
			bound, ok := r[v]
			if !ok {
				continue
			}
			switch id := bound.(type) {
			case graphval.NodeId:
				if err := e.env.Store.DeleteNode(id); err != nil && samerr.CodeOf(err) != samerr.CodeNotFound {
					return err
				}
				if err := e.record(func(r WriteRecorder) error { return r.RecordDeleteNode(id) }); err != nil {
					return err
				}
				e.admitRelease(tenant.ResourceNodes)
			case graphval.EdgeId:
				if err := e.env.Store.DeleteEdge(id); err != nil && samerr.CodeOf(err) != samerr.CodeNotFound {
					return err
				}
				if err := e.record(func(r WriteRecorder) error { return r.RecordDeleteEdge(id) }); err != nil {
					return err
				}
				e.admitRelease(tenant.ResourceEdges)
			}
		}
	}
	return nil
}

func (e *Executor) admitRelease(resource tenant.Resource) {
	_ = e.admit(resource, -1)
}

func (e *Executor) execSet(rows []Row, c *SetClause) ([]Row, error) {
	for _, r := range rows {
		for _, asn := range c.Assignments {
			bound, ok := r[asn.Var]
			if !ok {
				continue
			}
			id, ok := bound.(graphval.NodeId)
			if !ok {
				continue
			}
			switch asn.Kind {
			case SetAssignProperty:
				v, err := e.eval(r, asn.Value)
				if err != nil {
					return nil, err
				}
				pv := fromAny(v)
				if err := e.env.Store.SetProperty(id, asn.Property, pv); err != nil {
					return nil, err
				}
				if err := e.record(func(rec WriteRecorder) error {
					return rec.RecordSetNodeProperty(id, asn.Property, pv)
				}); err != nil {
					return nil, err
				}
			case SetAssignMergeMap:
				v, err := e.eval(r, asn.Value)
				if err != nil {
					return nil, err
				}
				m, ok := v.(map[string]any)
				if !ok {
					return nil, samerr.New(samerr.CodeSemanticError, "SET %s += requires a map expression", asn.Var)
				}
				for k, mv := range m {
					pv := fromAny(mv)
					if err := e.env.Store.SetProperty(id, k, pv); err != nil {
						return nil, err
					}
					if err := e.record(func(rec WriteRecorder) error {
						return rec.RecordSetNodeProperty(id, k, pv)
					}); err != nil {
						return nil, err
					}
				}
			case SetAssignLabel:
				if err := e.env.Store.AddLabel(id, asn.Label); err != nil {
					return nil, err
				}
				if err := e.record(func(rec WriteRecorder) error {
					return rec.RecordAddLabel(id, asn.Label)
				}); err != nil {
					return nil, err
				}
			}
		}
	}
	return rows, nil
}

// execRemove implements REMOVE var.key (property removal, via a Null
// write so it drops out of any property index) and REMOVE var:Label.
func (e *Executor) execRemove(rows []Row, c *RemoveClause) ([]Row, error) {
	for _, r := range rows {
		for _, item := range c.Items {
			bound, ok := r[item.Var]
			if !ok {
				continue
			}
			id, ok := bound.(graphval.NodeId)
			if !ok {
				continue
			}
			if item.Label != "" {
				if err := e.env.Store.RemoveLabel(id, item.Label); err != nil {
					return nil, err
				}
				if err := e.record(func(rec WriteRecorder) error {
					return rec.RecordRemoveLabel(id, item.Label)
				}); err != nil {
					return nil, err
				}
				continue
			}
			if err := e.env.Store.SetProperty(id, item.Property, graphval.Null()); err != nil {
				return nil, err
			}
			if err := e.record(func(rec WriteRecorder) error {
				return rec.RecordSetNodeProperty(id, item.Property, graphval.Null())
			}); err != nil {
				return nil, err
			}
		}
	}
	return rows, nil
}

// execMerge implements MERGE pattern: match it against the current row
// stream, and for every input row with no match, create it. Matching and
// creation both run against the same pattern path, so MERGE (n:Label
// {k:v}) behaves as "find-or-create" per row rather than a single
// statement-wide existence check.
func (e *Executor) execMerge(rows []Row, c *MergeClause) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		matches, err := e.matchPathFromRow(r, c.Pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			out = append(out, matches...)
			continue
		}
		r2 := r.clone()
		if err := e.createPath(r2, c.Pattern); err != nil {
			return nil, err
		}
		out = append(out, r2)
	}
	return out, nil
}

// execIndex implements CREATE INDEX / CREATE VECTOR INDEX; these are
// statement-level declarations, not pattern-bound, so they run once
// regardless of the current row stream.
func (e *Executor) execIndex(c *IndexClause) error {
	if c.Vector {
		metric := vectorindex.Metric(c.Metric)
		if metric == "" {
			metric = vectorindex.MetricCosine
		}
		if err := e.env.Store.CreateVectorIndex(c.Label, c.Key, c.Dim, metric); err != nil {
			return err
		}
		return e.record(func(rec WriteRecorder) error {
			return rec.RecordCreateIndex(c.Label, c.Key, true, c.Dim, string(metric))
		})
	}
	if err := e.env.Store.CreatePropertyIndex(c.Label, c.Key); err != nil {
		return err
	}
	return e.record(func(rec WriteRecorder) error {
		return rec.RecordCreateIndex(c.Label, c.Key, false, 0, "")
	})
}

// eval evaluates a scalar expression against one bound row.
func (e *Executor) eval(row Row, expr Expr) (any, error) {
	switch ex := expr.(type) {
	case *LiteralExpr:
		return ex.Value, nil
	case *ParamExpr:
		return e.env.param(ex.Name), nil
	case *VarExpr:
		return row[ex.Name], nil
	case *StarExpr:
		return nil, samerr.New(samerr.CodeSemanticError, "'*' is only valid as a projection item or count(*) argument")
	case *PropertyExpr:
		base, err := e.eval(row, ex.Base)
		if err != nil {
			return nil, err
		}
		return e.evalProperty(base, ex.Key)
	case *ListExpr:
		out := make([]any, len(ex.Items))
		for i, item := range ex.Items {
			v, err := e.eval(row, item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *MapExpr:
		out := make(map[string]any, len(ex.Keys))
		for i, k := range ex.Keys {
			v, err := e.eval(row, ex.Values[i])
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case *UnaryExpr:
		v, err := e.eval(row, ex.Expr)
		if err != nil {
			return nil, err
		}
		switch ex.Op {
		case "NOT":
			return !truthy(v), nil
		case "-":
			f, _ := asFloat(v)
			if iv, ok := v.(int64); ok {
				return -iv, nil
			}
			return -f, nil
		case "IS NULL":
			return v == nil, nil
		case "IS NOT NULL":
			return v != nil, nil
		}
		return nil, samerr.New(samerr.CodeSemanticError, "unknown unary operator %q", ex.Op)
	case *BinaryExpr:
		return e.evalBinary(row, ex)
	case *FuncCallExpr:
		return e.evalScalarFunc(row, ex)
	default:
		return nil, samerr.New(samerr.CodeSemanticError, "unsupported expression %T", expr)
	}
}

func (e *Executor) evalProperty(base any, key string) (any, error) {
	switch b := base.(type) {
	case graphval.NodeId:
		n, err := e.env.Store.GetNodeAt(b, e.env.AsOf)
		if err != nil {
			return nil, nil
		}
		return toAny(n.Properties[key]), nil
	case graphval.EdgeId:
		ed, err := e.env.Store.GetEdgeAt(b, e.env.AsOf)
		if err != nil {
			return nil, nil
		}
		return toAny(ed.Properties[key]), nil
	case map[string]any:
		return b[key], nil
	default:
		return nil, nil
	}
}

func (e *Executor) evalBinary(row Row, ex *BinaryExpr) (any, error) {
	if ex.Op == "AND" || ex.Op == "OR" || ex.Op == "XOR" {
		l, err := e.eval(row, ex.Left)
		if err != nil {
			return nil, err
		}
		if ex.Op == "AND" && !truthy(l) {
			return false, nil
		}
		if ex.Op == "OR" && truthy(l) {
			return true, nil
		}
		r, err := e.eval(row, ex.Right)
		if err != nil {
			return nil, err
		}
		switch ex.Op {
		case "AND":
			return truthy(l) && truthy(r), nil
		case "OR":
			return truthy(l) || truthy(r), nil
		default:
			return truthy(l) != truthy(r), nil
		}
	}

	l, err := e.eval(row, ex.Left)
	if err != nil {
		return nil, err
	}
	r, err := e.eval(row, ex.Right)
	if err != nil {
		return nil, err
	}

	switch ex.Op {
	case "=":
		return valuesEqual(l, r), nil
	case "<>":
		return !valuesEqual(l, r), nil
	case "<":
		return compareAny(l, r) < 0, nil
	case "<=":
		return compareAny(l, r) <= 0, nil
	case ">":
		return compareAny(l, r) > 0, nil
	case ">=":
		return compareAny(l, r) >= 0, nil
	case "IN":
		list, ok := r.([]any)
		if !ok {
			return false, nil
		}
		for _, item := range list {
			if valuesEqual(l, item) {
				return true, nil
			}
		}
		return false, nil
	case "STARTS WITH":
		ls, lok := l.(string)
		rs, rok := r.(string)
		return lok && rok && strings.HasPrefix(ls, rs), nil
	case "ENDS WITH":
		ls, lok := l.(string)
		rs, rok := r.(string)
		return lok && rok && strings.HasSuffix(ls, rs), nil
	case "CONTAINS":
		ls, lok := l.(string)
		rs, rok := r.(string)
		return lok && rok && strings.Contains(ls, rs), nil
	case "+":
		if ls, ok := l.(string); ok {
			return ls + fmt.Sprintf("%v", r), nil
		}
		lf, lok := asFloat(l)
		rf, rok := asFloat(r)
		if !lok || !rok {
			return nil, samerr.New(samerr.CodeSemanticError, "cannot apply '+' to non-numeric operands")
		}
		if li, ok := l.(int64); ok {
			if ri, ok := r.(int64); ok {
				return li + ri, nil
			}
		}
		return lf + rf, nil
	case "-", "*", "/", "%":
		lf, lok := asFloat(l)
		rf, rok := asFloat(r)
		if !lok || !rok {
			return nil, samerr.New(samerr.CodeSemanticError, "cannot apply %q to non-numeric operands", ex.Op)
		}
		li, liok := l.(int64)
		ri, riok := r.(int64)
		switch ex.Op {
		case "-":
			if liok && riok {
				return li - ri, nil
			}
			return lf - rf, nil
		case "*":
			if liok && riok {
				return li * ri, nil
			}
			return lf * rf, nil
		case "/":
			if rf == 0 {
				return nil, samerr.New(samerr.CodeSemanticError, "division by zero")
			}
			if liok && riok && li%ri == 0 {
				return li / ri, nil
			}
			return lf / rf, nil
		case "%":
			if ri == 0 {
				return nil, samerr.New(samerr.CodeSemanticError, "modulo by zero")
			}
			return li % ri, nil
		}
	}
	return nil, samerr.New(samerr.CodeSemanticError, "unknown binary operator %q", ex.Op)
}

func (e *Executor) evalScalarFunc(row Row, call *FuncCallExpr) (any, error) {
	args := make([]any, 0, len(call.Args))
	for _, a := range call.Args {
		if _, ok := a.(*StarExpr); ok {
			continue
		}
		v, err := e.eval(row, a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	switch call.Name {
	case "id", "labels", "type", "tointeger", "tofloat", "size", "coalesce":
		if len(args) == 0 {
			return nil, samerr.New(samerr.CodeSemanticError, "%s() requires an argument", call.Name)
		}
	}
	switch call.Name {
	case "id":
		switch v := args[0].(type) {
		case graphval.NodeId:
			return int64(v), nil
		case graphval.EdgeId:
			return int64(v), nil
		}
		return nil, nil
	case "labels":
		id, ok := args[0].(graphval.NodeId)
		if !ok {
			return nil, nil
		}
		n, err := e.env.Store.GetNodeAt(id, e.env.AsOf)
		if err != nil {
			return []any{}, nil
		}
		out := make([]any, len(n.Labels))
		for i, l := range n.Labels {
			out[i] = e.env.Interner.Name(uint32(l))
		}
		return out, nil
	case "type":
		id, ok := args[0].(graphval.EdgeId)
		if !ok {
			return nil, nil
		}
		ed, err := e.env.Store.GetEdgeAt(id, e.env.AsOf)
		if err != nil {
			return nil, nil
		}
		return e.env.Interner.Name(uint32(ed.Type)), nil
	case "coalesce":
		for _, a := range args {
			if a != nil {
				return a, nil
			}
		}
		return nil, nil
	case "tointeger":
		f, _ := asFloat(args[0])
		return int64(f), nil
	case "tofloat":
		f, _ := asFloat(args[0])
		return f, nil
	case "size":
		if l, ok := args[0].([]any); ok {
			return int64(len(l)), nil
		}
		if s, ok := args[0].(string); ok {
			return int64(len(s)), nil
		}
		return int64(0), nil
	default:
		return nil, samerr.New(samerr.CodeSemanticError, "unknown function %q", call.Name)
	}
}
