package cql

import (
	"strconv"
	"strings"
	"time"

	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/honua-io/Honua.Server-sub000/geometry"
)

// Options carries catalog hints the grammar itself cannot know.
type Options struct {
	// DefaultSRID is assumed for geometry literals lacking an explicit CRS.
	// Zero defers SRID resolution to translation time.
	DefaultSRID int

	// Units restricts the distance units DWITHIN/BEYOND may carry. Empty
	// allows every supported unit.
	Units []string
}

// Parse parses a CQL2 text filter into the shared expression model.
// Only syntax and structural legality are validated here; property names
// resolve against the entity catalog at translation time.
func Parse(input string, opts *Options) (filter.Expression, error) {
	if opts == nil {
		opts = &Options{}
	}
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{input: input, tokens: tokens, opts: opts}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current().Type != tokenEOF {
		return nil, p.errorf("unexpected trailing input")
	}
	return expr, nil
}

type parser struct {
	input  string
	tokens []token
	pos    int
	opts   *Options
}

func (p *parser) current() token {
	if p.pos >= len(p.tokens) {
		return token{Type: tokenEOF, Pos: len(p.input)}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(msg string) error {
	tok := p.current()
	return &filter.SyntaxError{Offset: tok.Pos, Snippet: snippet(p.input, tok.Pos), Message: msg}
}

// keyword reports whether the current token is the given keyword,
// case-insensitively.
func (p *parser) keyword(kw string) bool {
	tok := p.current()
	return tok.Type == tokenIdent && strings.EqualFold(tok.Value, kw)
}

func (p *parser) expect(tt tokenType, what string) (token, error) {
	tok := p.current()
	if tok.Type != tt {
		return tok, p.errorf("expected " + what)
	}
	p.advance()
	return tok, nil
}

func (p *parser) parseOr() (filter.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	operands := []filter.Expression{left}
	for p.keyword("OR") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	if len(operands) == 1 {
		return left, nil
	}
	return &filter.Logical{Op: filter.OpOr, Operands: operands}, nil
}

func (p *parser) parseAnd() (filter.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	operands := []filter.Expression{left}
	for p.keyword("AND") {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	if len(operands) == 1 {
		return left, nil
	}
	return &filter.Logical{Op: filter.OpAnd, Operands: operands}, nil
}

func (p *parser) parseUnary() (filter.Expression, error) {
	if p.keyword("NOT") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &filter.Logical{Op: filter.OpNot, Operands: []filter.Expression{operand}}, nil
	}
	if p.current().Type == tokenLParen {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenRParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return p.parsePredicate()
}

var spatialNames = map[string]filter.SpatialPredicate{
	"BBOX":       filter.SpatialBBOX,
	"INTERSECTS": filter.SpatialIntersects,
	"CONTAINS":   filter.SpatialContains,
	"WITHIN":     filter.SpatialWithin,
	"TOUCHES":    filter.SpatialTouches,
	"CROSSES":    filter.SpatialCrosses,
	"OVERLAPS":   filter.SpatialOverlaps,
	"DISJOINT":   filter.SpatialDisjoint,
	"EQUALS":     filter.SpatialEquals,
	"DWITHIN":    filter.SpatialDWithin,
	"BEYOND":     filter.SpatialBeyond,

	// CQL2 spellings used by newer clients.
	"S_INTERSECTS": filter.SpatialIntersects,
	"S_CONTAINS":   filter.SpatialContains,
	"S_WITHIN":     filter.SpatialWithin,
	"S_TOUCHES":    filter.SpatialTouches,
	"S_CROSSES":    filter.SpatialCrosses,
	"S_OVERLAPS":   filter.SpatialOverlaps,
	"S_DISJOINT":   filter.SpatialDisjoint,
	"S_EQUALS":     filter.SpatialEquals,
}

func (p *parser) parsePredicate() (filter.Expression, error) {
	tok := p.current()
	if tok.Type == tokenIdent {
		upper := strings.ToUpper(tok.Value)
		if pred, ok := spatialNames[upper]; ok && p.peekIsLParen() {
			return p.parseSpatial(pred)
		}
	}

	caseInsensitive := false
	if p.keyword("CASEI") && p.peekIsLParen() {
		p.advance()
		p.advance() // '('
		caseInsensitive = true
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if caseInsensitive {
		if _, err := p.expect(tokenRParen, "')' closing CASEI"); err != nil {
			return nil, err
		}
	}

	tok = p.current()
	switch {
	case tok.Type == tokenOperator:
		p.advance()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &filter.Comparison{Op: compareOp(tok.Value), Left: left, Right: right}, nil

	case p.keyword("IS"):
		p.advance()
		negate := false
		if p.keyword("NOT") {
			p.advance()
			negate = true
		}
		if !p.keyword("NULL") {
			return nil, p.errorf("expected NULL after IS")
		}
		p.advance()
		return &filter.IsNull{Target: left, Negate: negate}, nil

	case p.keyword("LIKE"):
		p.advance()
		return p.parseLike(left, caseInsensitive)

	case p.keyword("ILIKE"):
		p.advance()
		return p.parseLike(left, true)

	case p.keyword("BETWEEN"):
		p.advance()
		return p.parseBetween(left)

	case p.keyword("IN"):
		p.advance()
		return p.parseIn(left, false)

	case p.keyword("NOT"):
		p.advance()
		switch {
		case p.keyword("LIKE"):
			p.advance()
			like, err := p.parseLike(left, caseInsensitive)
			if err != nil {
				return nil, err
			}
			return &filter.Logical{Op: filter.OpNot, Operands: []filter.Expression{like}}, nil
		case p.keyword("IN"):
			p.advance()
			return p.parseIn(left, true)
		case p.keyword("BETWEEN"):
			p.advance()
			between, err := p.parseBetween(left)
			if err != nil {
				return nil, err
			}
			return &filter.Logical{Op: filter.OpNot, Operands: []filter.Expression{between}}, nil
		}
		return nil, p.errorf("expected LIKE, IN or BETWEEN after NOT")
	}
	return nil, p.errorf("expected comparison operator")
}

func compareOp(symbol string) filter.CompareOp {
	switch symbol {
	case "=":
		return filter.OpEqual
	case "<>":
		return filter.OpNotEqual
	case "<":
		return filter.OpLessThan
	case "<=":
		return filter.OpLessOrEqual
	case ">":
		return filter.OpGreaterThan
	default:
		return filter.OpGreaterOrEqual
	}
}

func (p *parser) parseLike(target filter.Expression, caseInsensitive bool) (filter.Expression, error) {
	tok, err := p.expect(tokenString, "pattern string after LIKE")
	if err != nil {
		return nil, err
	}
	return &filter.Like{
		Target:          target,
		Pattern:         tok.Value,
		Wildcard:        '%',
		SingleChar:      '_',
		Escape:          '\\',
		CaseInsensitive: caseInsensitive,
	}, nil
}

func (p *parser) parseBetween(input filter.Expression) (filter.Expression, error) {
	lower, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if !p.keyword("AND") {
		return nil, p.errorf("expected AND in BETWEEN")
	}
	p.advance()
	upper, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &filter.Between{Input: input, Lower: lower, Upper: upper}, nil
}

func (p *parser) parseIn(target filter.Expression, negate bool) (filter.Expression, error) {
	if _, err := p.expect(tokenLParen, "'(' after IN"); err != nil {
		return nil, err
	}
	var values []filter.Expression
	for {
		v, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.current().Type == tokenComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(tokenRParen, "')' closing IN list"); err != nil {
		return nil, err
	}
	return &filter.In{Target: target, Values: values, Negate: negate}, nil
}

func (p *parser) peekIsLParen() bool {
	return p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Type == tokenLParen
}

var wktKeywords = map[string]bool{
	"POINT": true, "LINESTRING": true, "POLYGON": true,
	"MULTIPOINT": true, "MULTILINESTRING": true, "MULTIPOLYGON": true,
	"GEOMETRYCOLLECTION": true,
}

// parseOperand parses a primary expression: literal, property reference
// or registered function call.
func (p *parser) parseOperand() (filter.Expression, error) {
	tok := p.current()
	switch tok.Type {
	case tokenNumber:
		lit, err := numberLiteral(tok.Value)
		if err != nil {
			return nil, p.errorf("invalid number literal")
		}
		p.advance()
		return lit, nil

	case tokenString:
		p.advance()
		return &filter.Literal{Value: tok.Value}, nil

	case tokenIdent:
		upper := strings.ToUpper(tok.Value)
		switch {
		case upper == "TRUE":
			p.advance()
			return &filter.Literal{Value: true}, nil
		case upper == "FALSE":
			p.advance()
			return &filter.Literal{Value: false}, nil
		case upper == "NULL":
			p.advance()
			return &filter.Literal{Value: nil}, nil
		case (upper == "TIMESTAMP" || upper == "DATE") && p.peekIsLParen():
			return p.parseTemporal(upper)
		case wktKeywords[upper]:
			return p.parseWKTLiteral()
		case p.peekIsLParen():
			if _, ok := filter.LookupFunction(tok.Value); ok {
				return p.parseFunctionCall(tok.Value)
			}
			return nil, &filter.UnsupportedConstructError{Construct: "function " + tok.Value}
		default:
			p.advance()
			return &filter.Property{Name: tok.Value}, nil
		}
	}
	return nil, p.errorf("expected operand")
}

func numberLiteral(text string) (*filter.Literal, error) {
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &filter.Literal{Value: i}, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, err
	}
	return &filter.Literal{Value: f}, nil
}

func (p *parser) parseTemporal(kind string) (filter.Expression, error) {
	p.advance() // TIMESTAMP / DATE
	p.advance() // '('
	tok, err := p.expect(tokenString, "quoted "+kind+" value")
	if err != nil {
		return nil, err
	}
	layout := time.RFC3339
	if kind == "DATE" {
		layout = "2006-01-02"
	}
	t, err := time.Parse(layout, tok.Value)
	if err != nil {
		return nil, p.errorf("invalid " + kind + " literal")
	}
	if _, err := p.expect(tokenRParen, "')'"); err != nil {
		return nil, err
	}
	return filter.NewTimestamp(t), nil
}

func (p *parser) parseFunctionCall(name string) (filter.Expression, error) {
	spec, _ := filter.LookupFunction(name)
	p.advance() // name
	p.advance() // '('
	var args []filter.Expression
	if p.current().Type != tokenRParen {
		for {
			arg, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.current().Type == tokenComma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(tokenRParen, "')' closing "+name); err != nil {
		return nil, err
	}
	if len(args) != spec.Arity {
		return nil, &filter.MissingArgumentError{Construct: spec.Name, Argument: "argument " + strconv.Itoa(len(args)+1)}
	}
	return &filter.Function{Name: spec.Name, Args: args}, nil
}

// parseWKTLiteral captures a WKT geometry literal by scanning the raw
// input for the balanced parenthesis range, then resynchronizes the token
// stream past it.
func (p *parser) parseWKTLiteral() (filter.Expression, error) {
	start := p.current().Pos
	p.advance() // geometry type keyword
	if p.current().Type != tokenLParen {
		return nil, p.errorf("expected '(' in geometry literal")
	}
	depth := 0
	end := -1
	for i := p.current().Pos; i < len(p.input); i++ {
		switch p.input[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return nil, p.errorf("unterminated geometry literal")
	}
	geom, err := geometry.ParseWKT(p.input[start:end], p.opts.DefaultSRID)
	if err != nil {
		return nil, &filter.SyntaxError{Offset: start, Snippet: snippet(p.input, start), Message: err.Error()}
	}
	for p.current().Type != tokenEOF && p.current().Pos < end {
		p.advance()
	}
	return &filter.Literal{Value: geom}, nil
}

func (p *parser) parseSpatial(pred filter.SpatialPredicate) (filter.Expression, error) {
	p.advance() // predicate name
	p.advance() // '('

	geomOperand, err := p.parseGeometryOperand()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenComma, "',' after geometry operand"); err != nil {
		return nil, err
	}

	if pred == filter.SpatialBBOX {
		return p.parseBBOXTail(geomOperand)
	}

	test, err := p.parseGeometryLiteral()
	if err != nil {
		return nil, err
	}

	node := &filter.Spatial{Predicate: pred, Geometry: geomOperand, Test: test}
	if pred.RequiresDistance() {
		if _, err := p.expect(tokenComma, "',' before distance"); err != nil {
			return nil, &filter.MissingArgumentError{Construct: string(pred), Argument: "distance"}
		}
		distTok, err := p.expect(tokenNumber, "distance value")
		if err != nil {
			return nil, &filter.MissingArgumentError{Construct: string(pred), Argument: "distance"}
		}
		dist, err := strconv.ParseFloat(distTok.Value, 64)
		if err != nil {
			return nil, p.errorf("invalid distance value")
		}
		unit := ""
		if p.current().Type == tokenComma {
			p.advance()
			unitTok := p.current()
			if unitTok.Type != tokenString && unitTok.Type != tokenIdent {
				return nil, p.errorf("expected distance unit")
			}
			p.advance()
			unit = unitTok.Value
		}
		if !geometry.UnitAllowed(p.opts.Units, unit) {
			return nil, &filter.UnsupportedConstructError{Construct: "distance unit " + unit}
		}
		meters, err := geometry.ToMeters(dist, unit)
		if err != nil {
			return nil, &filter.UnsupportedConstructError{Construct: "distance unit " + unit}
		}
		node.Distance = meters
	}
	if _, err := p.expect(tokenRParen, "')' closing "+string(pred)); err != nil {
		return nil, err
	}
	return node, nil
}

// parseBBOXTail parses the four ordered bounds and optional CRS of a BBOX
// predicate, after the geometry operand and its comma.
func (p *parser) parseBBOXTail(geomOperand filter.Expression) (filter.Expression, error) {
	bounds := make([]float64, 4)
	for i := 0; i < 4; i++ {
		tok, err := p.expect(tokenNumber, "bbox bound")
		if err != nil {
			return nil, &filter.MissingArgumentError{Construct: "BBOX", Argument: "bound " + strconv.Itoa(i+1)}
		}
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorf("invalid bbox bound")
		}
		bounds[i] = v
		if i < 3 {
			if _, err := p.expect(tokenComma, "',' between bbox bounds"); err != nil {
				return nil, err
			}
		}
	}
	srid := p.opts.DefaultSRID
	if p.current().Type == tokenComma {
		p.advance()
		crsTok, err := p.expect(tokenString, "bbox crs")
		if err != nil {
			return nil, err
		}
		code, err := geometry.ParseSRID(crsTok.Value)
		if err != nil {
			return nil, p.errorf("invalid bbox crs")
		}
		srid = code
	}
	if _, err := p.expect(tokenRParen, "')' closing BBOX"); err != nil {
		return nil, err
	}
	box, err := geometry.NewBBox(bounds[0], bounds[1], bounds[2], bounds[3], srid)
	if err != nil {
		return nil, p.errorf(err.Error())
	}
	return &filter.Spatial{Predicate: filter.SpatialBBOX, Geometry: geomOperand, Test: box}, nil
}

// parseGeometryOperand parses the first spatial argument: a property
// reference or a geometry-returning function call.
func (p *parser) parseGeometryOperand() (filter.Expression, error) {
	operand, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	switch op := operand.(type) {
	case *filter.Property:
		return op, nil
	case *filter.Function:
		if spec, _ := filter.LookupFunction(op.Name); spec.ReturnsGeometry {
			return op, nil
		}
		return nil, &filter.UnsupportedConstructError{Construct: op.Name + " is not geometry-valued"}
	}
	return nil, p.errorf("expected geometry property or function")
}

// parseGeometryLiteral parses the test geometry of a spatial predicate:
// a WKT literal or the BBOX(minx,miny,maxx,maxy) shorthand.
func (p *parser) parseGeometryLiteral() (*geometry.Geometry, error) {
	tok := p.current()
	if tok.Type != tokenIdent {
		return nil, p.errorf("expected geometry literal")
	}
	upper := strings.ToUpper(tok.Value)
	if upper == "BBOX" && p.peekIsLParen() {
		p.advance()
		p.advance() // '('
		bounds := make([]float64, 4)
		for i := 0; i < 4; i++ {
			numTok, err := p.expect(tokenNumber, "bbox bound")
			if err != nil {
				return nil, err
			}
			v, err := strconv.ParseFloat(numTok.Value, 64)
			if err != nil {
				return nil, p.errorf("invalid bbox bound")
			}
			bounds[i] = v
			if i < 3 {
				if _, err := p.expect(tokenComma, "',' between bbox bounds"); err != nil {
					return nil, err
				}
			}
		}
		if _, err := p.expect(tokenRParen, "')' closing BBOX"); err != nil {
			return nil, err
		}
		return geometry.NewBBox(bounds[0], bounds[1], bounds[2], bounds[3], p.opts.DefaultSRID)
	}
	if !wktKeywords[upper] {
		return nil, p.errorf("expected geometry literal")
	}
	lit, err := p.parseWKTLiteral()
	if err != nil {
		return nil, err
	}
	return lit.(*filter.Literal).Value.(*geometry.Geometry), nil
}
