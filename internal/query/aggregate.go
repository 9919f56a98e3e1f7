package query

import "fmt"

var aggregateFuncs = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true, "collect": true,
}

// aggState accumulates one aggregate function's running value across the
// rows of one group.
type aggState struct {
	name string
	// countAll marks count(*): it counts every row, where count(x) only
	// counts rows where x is non-null.
	countAll bool
	count    int64
	sum      float64
	min      any
	max      any
	list     []any
	seen     map[string]bool
}

func newAggState(name string) *aggState {
	return &aggState{name: name}
}

func (s *aggState) add(v any, distinct bool) {
	if v == nil && !(s.name == "count" && s.countAll) {
		return
	}
	if distinct {
		key := fmt.Sprintf("%v", v)
		if s.seen == nil {
			s.seen = make(map[string]bool)
		}
		if s.seen[key] {
			return
		}
		s.seen[key] = true
	}
	switch s.name {
	case "count":
		s.count++
	case "sum", "avg":
		f, _ := asFloat(v)
		s.sum += f
		s.count++
	case "min":
		if s.min == nil || compareAny(v, s.min) < 0 {
			s.min = v
		}
	case "max":
		if s.max == nil || compareAny(v, s.max) > 0 {
			s.max = v
		}
	case "collect":
		if v != nil {
			s.list = append(s.list, v)
		}
	}
}

func (s *aggState) result() any {
	switch s.name {
	case "count":
		return s.count
	case "sum":
		return s.sum
	case "avg":
		if s.count == 0 {
			return nil
		}
		return s.sum / float64(s.count)
	case "min":
		return s.min
	case "max":
		return s.max
	case "collect":
		if s.list == nil {
			return []any{}
		}
		return s.list
	default:
		return nil
	}
}

// runAggregateOrPlain evaluates projection items over the input rows. If
// none of the items is an aggregate call, each input row produces exactly
// one output row. Otherwise rows are grouped by the distinct values of the
// non-aggregate items, in first-seen order (the first row of a new group
// key fixes that group's output position), and every aggregate item is
// folded incrementally within its group as rows are consumed.
func (e *Executor) runAggregateOrPlain(rows []Row, items []ProjectionItem) ([]Row, error) {
	hasAgg := false
	for _, it := range items {
		if fc, ok := it.Expr.(*FuncCallExpr); ok && aggregateFuncs[fc.Name] {
			hasAgg = true
			break
		}
	}
	if !hasAgg {
		out := make([]Row, len(rows))
		for i, r := range rows {
			nr := make(Row, len(items))
			for _, it := range items {
				v, err := e.eval(r, it.Expr)
				if err != nil {
					return nil, err
				}
				nr[columnName(it)] = v
			}
			out[i] = nr
		}
		return out, nil
	}

	type group struct {
		nonAggRow Row
		states    map[string]*aggState
	}
	groups := make(map[string]*group)
	var order []string

	for _, r := range rows {
		keyParts := make([]any, 0, len(items))
		nonAggRow := Row{}
		for _, it := range items {
			if fc, ok := it.Expr.(*FuncCallExpr); ok && aggregateFuncs[fc.Name] {
				continue
			}
			v, err := e.eval(r, it.Expr)
			if err != nil {
				return nil, err
			}
			keyParts = append(keyParts, v)
			nonAggRow[columnName(it)] = v
		}
		key := fmt.Sprintf("%v", keyParts)
		g, ok := groups[key]
		if !ok {
			g = &group{nonAggRow: nonAggRow, states: make(map[string]*aggState)}
			groups[key] = g
			order = append(order, key)
		}
		for _, it := range items {
			fc, ok := it.Expr.(*FuncCallExpr)
			if !ok || !aggregateFuncs[fc.Name] {
				continue
			}
			col := columnName(it)
			st, ok := g.states[col]
			if !ok {
				st = newAggState(fc.Name)
				if len(fc.Args) == 0 {
					st.countAll = true
				} else if _, isStar := fc.Args[0].(*StarExpr); isStar {
					st.countAll = true
				}
				g.states[col] = st
			}
			var arg any
			if len(fc.Args) > 0 {
				if _, isStar := fc.Args[0].(*StarExpr); !isStar {
					v, err := e.eval(r, fc.Args[0])
					if err != nil {
						return nil, err
					}
					arg = v
				}
			}
			st.add(arg, fc.Distinct)
		}
	}

	// With aggregates but no grouping keys, an empty input still produces
	// exactly one row: count=0, sum=0, min/max/avg=null, collect=[].
	hasGroupKeys := false
	for _, it := range items {
		if fc, ok := it.Expr.(*FuncCallExpr); !ok || !aggregateFuncs[fc.Name] {
			hasGroupKeys = true
			break
		}
	}
	if len(order) == 0 && !hasGroupKeys {
		g := &group{nonAggRow: Row{}, states: make(map[string]*aggState)}
		for _, it := range items {
			if fc, ok := it.Expr.(*FuncCallExpr); ok && aggregateFuncs[fc.Name] {
				g.states[columnName(it)] = newAggState(fc.Name)
			}
		}
		key := "[]"
		groups[key] = g
		order = append(order, key)
	}

	out := make([]Row, 0, len(order))
	for _, key := range order {
		g := groups[key]
		row := g.nonAggRow.clone()
		for _, it := range items {
			fc, ok := it.Expr.(*FuncCallExpr)
			if !ok || !aggregateFuncs[fc.Name] {
				continue
			}
			col := columnName(it)
			row[col] = g.states[col].result()
		}
		out = append(out, row)
	}
	return out, nil
}
