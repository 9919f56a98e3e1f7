package query

import (
	"strconv"
	"strings"

	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
)

// Parser is a recursive-descent parser over clauses with a Pratt
// expression parser for predicates and projections.
type Parser struct {
	lex  *Lexer
	cur  Token
	peek Token
}

// Parse compiles a query string into a Statement.
func Parse(input string) (*Statement, error) {
	p := &Parser{lex: NewLexer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseStatement()
}

func (p *Parser) advance() error {
	p.cur = p.peek
	t, err := p.lex.Next()
	if err != nil {
		return wrapParseErr(err)
	}
	p.peek = t
	return nil
}

func wrapParseErr(err error) error {
	return samerr.Wrap(samerr.CodeParseError, err, "query parse error")
}

func (p *Parser) errf(format string, args ...any) error {
	return samerr.New(samerr.CodeParseError, format, args...)
}

func (p *Parser) isKeyword(kw string) bool {
	return p.cur.Kind == TokKeyword && p.cur.Text == kw
}

func (p *Parser) isPunct(s string) bool {
	return p.cur.Kind == TokPunct && p.cur.Text == s
}

func (p *Parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errf("expected %q, got %q", s, p.cur.Text)
	}
	return p.advance()
}

func (p *Parser) parseStatement() (*Statement, error) {
	stmt := &Statement{}
	if p.isKeyword("EXPLAIN") {
		stmt.Explain = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	for p.cur.Kind != TokEOF {
		cl, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		stmt.Clauses = append(stmt.Clauses, cl)
	}
	if len(stmt.Clauses) == 0 {
		return nil, p.errf("empty query")
	}
	return stmt, nil
}

func (p *Parser) parseClause() (Clause, error) {
	switch {
	case p.isKeyword("OPTIONAL"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		if !p.isKeyword("MATCH") {
			return nil, p.errf("expected MATCH after OPTIONAL")
		}
		cl, err := p.parseMatch()
		if err != nil {
			return nil, err
		}
		cl.Optional = true
		return cl, nil
	case p.isKeyword("MATCH"):
		return p.parseMatch()
	case p.isKeyword("UNWIND"):
		return p.parseUnwind()
	case p.isKeyword("WITH"):
		return p.parseWith()
	case p.isKeyword("RETURN"):
		return p.parseReturn()
	case p.isKeyword("CREATE"):
		return p.parseCreateOrIndex()
	case p.isKeyword("DELETE"):
		return p.parseDelete(false)
	case p.isKeyword("DETACH"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		if !p.isKeyword("DELETE") {
			return nil, p.errf("expected DELETE after DETACH")
		}
		return p.parseDelete(true)
	case p.isKeyword("SET"):
		return p.parseSet()
	case p.isKeyword("REMOVE"):
		return p.parseRemove()
	case p.isKeyword("MERGE"):
		return p.parseMerge()
	case p.isKeyword("CALL"):
		return p.parseCall()
	default:
		return nil, p.errf("unexpected token %q", p.cur.Text)
	}
}

func (p *Parser) parseMatch() (*MatchClause, error) {
	if err := p.advance(); err != nil { // consume MATCH
		return nil, err
	}
	cl := &MatchClause{}
	for {
		path, err := p.parsePatternPath()
		if err != nil {
			return nil, err
		}
		cl.Patterns = append(cl.Patterns, path)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.isKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		w, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		cl.Where = w
	}
	return cl, nil
}

func (p *Parser) parsePatternPath() (*PatternPath, error) {
	path := &PatternPath{}
	n, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	path.Nodes = append(path.Nodes, n)

	for p.isPunct("-") || p.isPunct("<") {
		rel, err := p.parseRelPattern()
		if err != nil {
			return nil, err
		}
		path.Rels = append(path.Rels, rel)
		n, err := p.parseNodePattern()
		if err != nil {
			return nil, err
		}
		path.Nodes = append(path.Nodes, n)
	}
	return path, nil
}

func (p *Parser) parseNodePattern() (*NodePattern, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	n := &NodePattern{Props: map[string]Expr{}}
	if p.cur.Kind == TokIdent {
		n.Var = p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	for p.isPunct(":") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Kind != TokIdent {
			return nil, p.errf("expected label, got %q", p.cur.Text)
		}
		n.Labels = append(n.Labels, p.cur.Text)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.isPunct("{") {
		props, err := p.parseInlineProps()
		if err != nil {
			return nil, err
		}
		n.Props = props
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseInlineProps() (map[string]Expr, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	props := make(map[string]Expr)
	for !p.isPunct("}") {
		if p.cur.Kind != TokIdent {
			return nil, p.errf("expected property key, got %q", p.cur.Text)
		}
		key := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		v, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		props[key] = v
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return props, nil
}

func (p *Parser) parseRelPattern() (*RelPattern, error) {
	rel := &RelPattern{Direction: DirEither, Props: map[string]Expr{}}
	leftArrow := false
	if p.isPunct("<") {
		leftArrow = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expectPunct("-"); err != nil {
		return nil, err
	}
	if p.isPunct("[") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Kind == TokIdent {
			rel.Var = p.cur.Text
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		for p.isPunct(":") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.Kind != TokIdent && p.cur.Kind != TokKeyword {
				return nil, p.errf("expected edge type, got %q", p.cur.Text)
			}
			// Keywords are upper-cased by the lexer; keep the type as written.
			rel.Types = append(rel.Types, p.lex.input[p.cur.Pos:p.cur.Pos+len(p.cur.Text)])
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.isPunct("|") {
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
		}
		if p.isPunct("{") {
			props, err := p.parseInlineProps()
			if err != nil {
				return nil, err
			}
			rel.Props = props
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, err
		}
	}
	if err := p.expectPunct("-"); err != nil {
		return nil, err
	}
	rightArrow := false
	if p.isPunct(">") {
		rightArrow = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	switch {
	case leftArrow && !rightArrow:
		rel.Direction = DirIn
	case rightArrow && !leftArrow:
		rel.Direction = DirOut
	default:
		rel.Direction = DirEither
	}
	return rel, nil
}

func (p *Parser) parseUnwind() (*UnwindClause, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	e, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("AS") {
		return nil, p.errf("expected AS in UNWIND")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Kind != TokIdent {
		return nil, p.errf("expected variable after AS")
	}
	v := p.cur.Text
	return &UnwindClause{Expr: e, Var: v}, p.advance()
}

func (p *Parser) parseProjectionItems() ([]ProjectionItem, bool, error) {
	distinct := false
	if p.isKeyword("DISTINCT") {
		distinct = true
		if err := p.advance(); err != nil {
			return nil, false, err
		}
	}
	var items []ProjectionItem
	for {
		if p.isPunct("*") {
			if err := p.advance(); err != nil {
				return nil, false, err
			}
			items = append(items, ProjectionItem{Expr: &StarExpr{}})
		} else {
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, false, err
			}
			item := ProjectionItem{Expr: e}
			if p.isKeyword("AS") {
				if err := p.advance(); err != nil {
					return nil, false, err
				}
				if p.cur.Kind != TokIdent {
					return nil, false, p.errf("expected alias after AS")
				}
				item.Alias = p.cur.Text
				if err := p.advance(); err != nil {
					return nil, false, err
				}
			}
			items = append(items, item)
		}
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, false, err
			}
			continue
		}
		break
	}
	return items, distinct, nil
}

func (p *Parser) parseOrderSkipLimit() ([]OrderItem, Expr, Expr, error) {
	var order []OrderItem
	var skip, limit Expr

	if p.isKeyword("ORDER") {
		if err := p.advance(); err != nil {
			return nil, nil, nil, err
		}
		if !p.isKeyword("BY") {
			return nil, nil, nil, p.errf("expected BY after ORDER")
		}
		if err := p.advance(); err != nil {
			return nil, nil, nil, err
		}
		for {
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, nil, nil, err
			}
			desc := false
			if p.isKeyword("DESC") {
				desc = true
				if err := p.advance(); err != nil {
					return nil, nil, nil, err
				}
			} else if p.isKeyword("ASC") {
				if err := p.advance(); err != nil {
					return nil, nil, nil, err
				}
			}
			order = append(order, OrderItem{Expr: e, Desc: desc})
			if p.isPunct(",") {
				if err := p.advance(); err != nil {
					return nil, nil, nil, err
				}
				continue
			}
			break
		}
	}
	if p.isKeyword("SKIP") {
		if err := p.advance(); err != nil {
			return nil, nil, nil, err
		}
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, nil, nil, err
		}
		skip = e
	}
	if p.isKeyword("LIMIT") {
		if err := p.advance(); err != nil {
			return nil, nil, nil, err
		}
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, nil, nil, err
		}
		limit = e
	}
	return order, skip, limit, nil
}

func (p *Parser) parseWith() (*WithClause, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	items, distinct, err := p.parseProjectionItems()
	if err != nil {
		return nil, err
	}
	cl := &WithClause{Items: items, Distinct: distinct}
	if p.isKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		w, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		cl.Where = w
	}
	order, skip, limit, err := p.parseOrderSkipLimit()
	if err != nil {
		return nil, err
	}
	cl.OrderBy, cl.Skip, cl.Limit = order, skip, limit
	return cl, nil
}

func (p *Parser) parseReturn() (*ReturnClause, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	items, distinct, err := p.parseProjectionItems()
	if err != nil {
		return nil, err
	}
	cl := &ReturnClause{Items: items, Distinct: distinct}
	order, skip, limit, err := p.parseOrderSkipLimit()
	if err != nil {
		return nil, err
	}
	cl.OrderBy, cl.Skip, cl.Limit = order, skip, limit
	return cl, nil
}

// parseCreateOrIndex disambiguates CREATE's two statement-level forms:
// `CREATE (pattern)` (a CreateClause) versus `CREATE INDEX ...` / `CREATE
// VECTOR INDEX ...` (an IndexClause).
func (p *Parser) parseCreateOrIndex() (Clause, error) {
	if p.peekIsKeyword("INDEX") || p.peekIsKeyword("VECTOR") {
		return p.parseIndexClause()
	}
	return p.parseCreate()
}

// peekIsKeyword reports whether the token after the current one (the
// parser's one-token lookahead) is the keyword kw. Does not consume
// anything.
func (p *Parser) peekIsKeyword(kw string) bool {
	return p.peek.Kind == TokKeyword && p.peek.Text == kw
}

func (p *Parser) parseIndexClause() (*IndexClause, error) {
	if err := p.advance(); err != nil { // consume CREATE
		return nil, err
	}
	cl := &IndexClause{}
	if p.isKeyword("VECTOR") {
		cl.Vector = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if !p.isKeyword("INDEX") {
		return nil, p.errf("expected INDEX, got %q", p.cur.Text)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if cl.Vector {
		// CREATE VECTOR INDEX name FOR (n:Label) ON (n.key) OPTIONS {...}
		if p.cur.Kind != TokIdent {
			return nil, p.errf("expected vector index name, got %q", p.cur.Text)
		}
		cl.Name = p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if !p.isKeyword("FOR") {
			return nil, p.errf("expected FOR, got %q", p.cur.Text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		if p.cur.Kind != TokIdent { // bound variable, e.g. "n"; unused beyond the ON clause
			return nil, p.errf("expected variable in FOR (...)")
		}
		nvar := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		if p.cur.Kind != TokIdent {
			return nil, p.errf("expected label in FOR (...)")
		}
		cl.Label = p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		if !p.isKeyword("ON") {
			return nil, p.errf("expected ON, got %q", p.cur.Text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		if p.cur.Kind != TokIdent || p.cur.Text != nvar {
			return nil, p.errf("expected %s.<property> in ON (...)", nvar)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("."); err != nil {
			return nil, err
		}
		if p.cur.Kind != TokIdent {
			return nil, p.errf("expected property name in ON (...)")
		}
		cl.Key = p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		if !p.isKeyword("OPTIONS") {
			return nil, p.errf("expected OPTIONS, got %q", p.cur.Text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		opts, err := p.parseMapLiteral()
		if err != nil {
			return nil, err
		}
		m := opts.(*MapExpr)
		for i, k := range m.Keys {
			lit, ok := m.Values[i].(*LiteralExpr)
			if !ok {
				return nil, p.errf("OPTIONS values must be literals")
			}
			switch k {
			case "dimensions":
				n, ok := lit.Value.(int64)
				if !ok {
					return nil, p.errf("OPTIONS.dimensions must be an integer")
				}
				cl.Dim = int(n)
			case "similarity":
				s, ok := lit.Value.(string)
				if !ok {
					return nil, p.errf("OPTIONS.similarity must be a string")
				}
				cl.Metric = s
			}
		}
		return cl, nil
	}

	// CREATE INDEX ON :Label(key)
	if !p.isKeyword("ON") {
		return nil, p.errf("expected ON, got %q", p.cur.Text)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	if p.cur.Kind != TokIdent {
		return nil, p.errf("expected label after ':'")
	}
	cl.Label = p.cur.Text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	if p.cur.Kind != TokIdent {
		return nil, p.errf("expected property key")
	}
	cl.Key = p.cur.Text
	if err := p.advance(); err != nil {
		return nil, err
	}
	return cl, p.expectPunct(")")
}

func (p *Parser) parseCreate() (*CreateClause, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	cl := &CreateClause{}
	for {
		path, err := p.parsePatternPath()
		if err != nil {
			return nil, err
		}
		cl.Patterns = append(cl.Patterns, path)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return cl, nil
}

func (p *Parser) parseDelete(detach bool) (*DeleteClause, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	cl := &DeleteClause{}
	_ = detach // cascade to incident edges is unconditional regardless of DETACH
	for {
		if p.cur.Kind != TokIdent {
			return nil, p.errf("expected variable in DELETE, got %q", p.cur.Text)
		}
		cl.Vars = append(cl.Vars, p.cur.Text)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return cl, nil
}

func (p *Parser) parseSet() (*SetClause, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	cl := &SetClause{}
	for {
		if p.cur.Kind != TokIdent {
			return nil, p.errf("expected variable in SET, got %q", p.cur.Text)
		}
		v := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch {
		case p.isPunct("+="):
			if err := p.advance(); err != nil {
				return nil, err
			}
			val, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			cl.Assignments = append(cl.Assignments, SetAssignment{Var: v, Kind: SetAssignMergeMap, Value: val})
		case p.isPunct(":"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.Kind != TokIdent {
				return nil, p.errf("expected label after ':' in SET")
			}
			cl.Assignments = append(cl.Assignments, SetAssignment{Var: v, Kind: SetAssignLabel, Label: p.cur.Text})
			if err := p.advance(); err != nil {
				return nil, err
			}
		default:
			if err := p.expectPunct("."); err != nil {
				return nil, err
			}
			if p.cur.Kind != TokIdent {
				return nil, p.errf("expected property name in SET")
			}
			key := p.cur.Text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct("="); err != nil {
				return nil, err
			}
			val, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			cl.Assignments = append(cl.Assignments, SetAssignment{Var: v, Kind: SetAssignProperty, Property: key, Value: val})
		}
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return cl, nil
}

// parseRemove parses `REMOVE var.key (, var.key | var:Label)*`.
func (p *Parser) parseRemove() (*RemoveClause, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	cl := &RemoveClause{}
	for {
		if p.cur.Kind != TokIdent {
			return nil, p.errf("expected variable in REMOVE, got %q", p.cur.Text)
		}
		v := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch {
		case p.isPunct(":"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.Kind != TokIdent {
				return nil, p.errf("expected label after ':' in REMOVE")
			}
			cl.Items = append(cl.Items, RemoveItem{Var: v, Label: p.cur.Text})
			if err := p.advance(); err != nil {
				return nil, err
			}
		default:
			if err := p.expectPunct("."); err != nil {
				return nil, err
			}
			if p.cur.Kind != TokIdent {
				return nil, p.errf("expected property name in REMOVE")
			}
			cl.Items = append(cl.Items, RemoveItem{Var: v, Property: p.cur.Text})
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return cl, nil
}

// parseMerge parses `MERGE pattern`, the match-or-create clause.
func (p *Parser) parseMerge() (*MergeClause, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	path, err := p.parsePatternPath()
	if err != nil {
		return nil, err
	}
	return &MergeClause{Pattern: path}, nil
}

func (p *Parser) parseCall() (*CallClause, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Kind != TokIdent {
		return nil, p.errf("expected procedure name after CALL")
	}
	name := p.cur.Text
	if err := p.advance(); err != nil {
		return nil, err
	}
	for p.isPunct(".") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Kind != TokIdent && p.cur.Kind != TokKeyword {
			return nil, p.errf("expected identifier in procedure name")
		}
		name += "." + p.lex.input[p.cur.Pos:p.cur.Pos+len(p.cur.Text)]
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	cl := &CallClause{Procedure: name}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	for !p.isPunct(")") {
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		cl.Args = append(cl.Args, e)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if p.isKeyword("YIELD") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		for {
			if p.cur.Kind != TokIdent {
				return nil, p.errf("expected identifier in YIELD")
			}
			cl.Yield = append(cl.Yield, p.cur.Text)
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.isPunct(",") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	return cl, nil
}

// Pratt expression parsing.

var binaryPrecedence = map[string]int{
	"OR": 1, "XOR": 1,
	"AND": 2,
	"=": 3, "<>": 3, "<": 3, "<=": 3, ">": 3, ">=": 3, "=~": 3, "IN": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5, "%": 5,
	".": 8,
}

func (p *Parser) currentBinOp() (string, bool) {
	if p.cur.Kind == TokKeyword {
		switch p.cur.Text {
		case "AND", "OR", "XOR", "IN":
			return p.cur.Text, true
		}
	}
	if p.cur.Kind == TokPunct {
		switch p.cur.Text {
		case "=", "<>", "<", "<=", ">", ">=", "=~", "+", "-", "*", "/", "%":
			return p.cur.Text, true
		}
	}
	return "", false
}

func (p *Parser) parseExpr(minPrec int) (Expr, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for {
		if p.isPunct(".") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.Kind != TokIdent {
				return nil, p.errf("expected property name after '.'")
			}
			left = &PropertyExpr{Base: left, Key: p.cur.Text}
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.isKeyword("IS") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			neg := false
			if p.isKeyword("NOT") {
				neg = true
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
			if !p.isKeyword("NULL") {
				return nil, p.errf("expected NULL after IS, got %q", p.cur.Text)
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			op := "IS NULL"
			if neg {
				op = "IS NOT NULL"
			}
			left = &UnaryExpr{Op: op, Expr: left}
			continue
		}
		if p.isKeyword("STARTS") || p.isKeyword("ENDS") {
			head := p.cur.Text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if !p.isKeyword("WITH") {
				return nil, p.errf("expected WITH after %s", head)
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseExpr(binaryPrecedence["="] + 1)
			if err != nil {
				return nil, err
			}
			left = &BinaryExpr{Op: head + " WITH", Left: left, Right: right}
			continue
		}
		if p.isKeyword("CONTAINS") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseExpr(binaryPrecedence["="] + 1)
			if err != nil {
				return nil, err
			}
			left = &BinaryExpr{Op: "CONTAINS", Left: left, Right: right}
			continue
		}
		op, ok := p.currentBinOp()
		if !ok {
			break
		}
		prec := binaryPrecedence[op]
		if prec < minPrec {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePrefix() (Expr, error) {
	switch {
	case p.isKeyword("NOT"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr(6)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "NOT", Expr: e}, nil
	case p.isPunct("-"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr(6)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "-", Expr: e}, nil
	case p.isPunct("("):
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	case p.isPunct("["):
		return p.parseListLiteral()
	case p.isPunct("{"):
		return p.parseMapLiteral()
	case p.cur.Kind == TokParamName:
		name := p.cur.Text
		return &ParamExpr{Name: name}, p.advance()
	case p.cur.Kind == TokInt:
		n, err := strconv.ParseInt(p.cur.Text, 10, 64)
		if err != nil {
			return nil, wrapParseErr(err)
		}
		return &LiteralExpr{Value: n}, p.advance()
	case p.cur.Kind == TokFloat:
		f, err := strconv.ParseFloat(p.cur.Text, 64)
		if err != nil {
			return nil, wrapParseErr(err)
		}
		return &LiteralExpr{Value: f}, p.advance()
	case p.cur.Kind == TokString:
		return &LiteralExpr{Value: p.cur.Text}, p.advance()
	case p.isKeyword("TRUE"):
		return &LiteralExpr{Value: true}, p.advance()
	case p.isKeyword("FALSE"):
		return &LiteralExpr{Value: false}, p.advance()
	case p.isKeyword("NULL"):
		return &LiteralExpr{Value: nil}, p.advance()
	case p.cur.Kind == TokIdent:
		return p.parseIdentOrCall()
	default:
		return nil, p.errf("unexpected token %q in expression", p.cur.Text)
	}
}

func (p *Parser) parseListLiteral() (Expr, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	lst := &ListExpr{}
	for !p.isPunct("]") {
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		lst.Items = append(lst.Items, e)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return lst, p.expectPunct("]")
}

// parseMapLiteral parses a `{key: expr, ...}` map expression, the general
// form of the inline property maps CREATE/MATCH patterns also accept, used
// standalone as a procedure argument (e.g. algo.or.solve's config map).
func (p *Parser) parseMapLiteral() (Expr, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	m := &MapExpr{}
	for !p.isPunct("}") {
		if p.cur.Kind != TokIdent {
			return nil, p.errf("expected map key, got %q", p.cur.Text)
		}
		key := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		v, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		m.Keys = append(m.Keys, key)
		m.Values = append(m.Values, v)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return m, p.expectPunct("}")
}

func (p *Parser) parseIdentOrCall() (Expr, error) {
	name := p.cur.Text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.isPunct("(") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		call := &FuncCallExpr{Name: strings.ToLower(name)}
		if p.isKeyword("DISTINCT") {
			call.Distinct = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.isPunct("*") {
			call.Args = []Expr{&StarExpr{}}
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			for !p.isPunct(")") {
				e, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				call.Args = append(call.Args, e)
				if p.isPunct(",") {
					if err := p.advance(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return call, nil
	}
	return &VarExpr{Name: name}, nil
}
