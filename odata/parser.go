package odata

import (
	"strconv"
	"strings"
	"time"

	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/honua-io/Honua.Server-sub000/geometry"
)

// Options carries catalog hints the grammar itself cannot know.
type Options struct {
	// DefaultSRID is assumed for geometry literals lacking an SRID prefix.
	// OData geography literals default to WGS84 when this is zero.
	DefaultSRID int
}

// Parse parses an OData $filter expression into the shared expression
// model. Spatial operators arrive as function-style predicates
// (geo.intersects, geo.distance comparisons) and are normalized to the
// same Spatial node shape the other grammars produce.
func Parse(input string, opts *Options) (filter.Expression, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.DefaultSRID == 0 {
		opts.DefaultSRID = 4326
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

// distanceCall is an internal marker for geo.distance(...) awaiting its
// comparison operator; it never escapes the parser.
type distanceCall struct {
	geom filter.Expression
	test *geometry.Geometry
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
	end := tok.Pos + 20
	if end > len(p.input) {
		end = len(p.input)
	}
	return &filter.SyntaxError{Offset: tok.Pos, Snippet: p.input[min(tok.Pos, len(p.input)):end], Message: msg}
}

func (p *parser) keyword(kw string) bool {
	tok := p.current()
	return tok.Type == tokenIdent && strings.EqualFold(tok.Value, kw)
}

func (p *parser) parseOr() (filter.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	operands := []filter.Expression{left}
	for p.keyword("or") {
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
	for p.keyword("and") {
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
	if p.keyword("not") {
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
		if p.current().Type != tokenRParen {
			return nil, p.errorf("expected ')'")
		}
		p.advance()
		return expr, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]filter.CompareOp{
	"eq": filter.OpEqual,
	"ne": filter.OpNotEqual,
	"lt": filter.OpLessThan,
	"le": filter.OpLessOrEqual,
	"gt": filter.OpGreaterThan,
	"ge": filter.OpGreaterOrEqual,
}

func (p *parser) parseComparison() (filter.Expression, error) {
	left, dist, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	tok := p.current()
	if tok.Type == tokenIdent {
		if strings.EqualFold(tok.Value, "in") {
			p.advance()
			if left == nil {
				return nil, p.errorf("in requires a property operand")
			}
			return p.parseInList(left)
		}
		if op, ok := comparisonOps[strings.ToLower(tok.Value)]; ok {
			p.advance()
			right, rightDist, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			if rightDist != nil {
				return nil, p.errorf("geo.distance must be the left operand")
			}
			if dist != nil {
				return normalizeDistance(dist, op, right)
			}
			// eq/ne null normalizes to IS [NOT] NULL.
			if lit, ok := right.(*filter.Literal); ok && lit.Value == nil {
				switch op {
				case filter.OpEqual:
					return &filter.IsNull{Target: left}, nil
				case filter.OpNotEqual:
					return &filter.IsNull{Target: left, Negate: true}, nil
				}
			}
			return &filter.Comparison{Op: op, Left: left, Right: right}, nil
		}
	}

	if dist != nil {
		return nil, &filter.MissingArgumentError{Construct: "geo.distance", Argument: "comparison operator and distance"}
	}
	if left == nil {
		return nil, p.errorf("expected expression")
	}
	// Bare boolean predicates (geo.intersects, startswith, ...) stand alone.
	switch left.(type) {
	case *filter.Spatial, *filter.Like:
		return left, nil
	}
	return nil, p.errorf("expected comparison operator")
}

// normalizeDistance turns "geo.distance(col, g) <op> d" into the shared
// DWithin/Beyond spatial node. OData geography distances are meters.
func normalizeDistance(dist *distanceCall, op filter.CompareOp, right filter.Expression) (filter.Expression, error) {
	lit, ok := right.(*filter.Literal)
	if !ok {
		return nil, &filter.SyntaxError{Message: "geo.distance must be compared to a numeric literal"}
	}
	var meters float64
	switch v := lit.Value.(type) {
	case int64:
		meters = float64(v)
	case float64:
		meters = v
	default:
		return nil, &filter.SyntaxError{Message: "geo.distance must be compared to a numeric literal"}
	}
	normalized, err := geometry.ToMeters(meters, "")
	if err != nil {
		return nil, &filter.SyntaxError{Message: err.Error()}
	}

	var pred filter.SpatialPredicate
	switch op {
	case filter.OpLessThan, filter.OpLessOrEqual:
		pred = filter.SpatialDWithin
	case filter.OpGreaterThan, filter.OpGreaterOrEqual:
		pred = filter.SpatialBeyond
	default:
		return nil, &filter.UnsupportedConstructError{Construct: "geo.distance with eq/ne"}
	}
	return &filter.Spatial{Predicate: pred, Geometry: dist.geom, Test: dist.test, Distance: normalized}, nil
}

func (p *parser) parseInList(target filter.Expression) (filter.Expression, error) {
	if p.current().Type != tokenLParen {
		return nil, p.errorf("expected '(' after in")
	}
	p.advance()
	var values []filter.Expression
	for {
		v, dist, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		if dist != nil {
			return nil, p.errorf("geo.distance is not a value")
		}
		values = append(values, v)
		if p.current().Type == tokenComma {
			p.advance()
			continue
		}
		break
	}
	if p.current().Type != tokenRParen {
		return nil, p.errorf("expected ')' closing in list")
	}
	p.advance()
	return &filter.In{Target: target, Values: values}, nil
}

// parsePrimary parses literals, property references and function-style
// predicates. The second return value is non-nil only for geo.distance,
// which must be consumed by a surrounding comparison.
func (p *parser) parsePrimary() (filter.Expression, *distanceCall, error) {
	tok := p.current()
	switch tok.Type {
	case tokenNumber:
		p.advance()
		if i, err := strconv.ParseInt(tok.Value, 10, 64); err == nil {
			return &filter.Literal{Value: i}, nil, nil
		}
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, nil, p.errorf("invalid number literal")
		}
		return &filter.Literal{Value: f}, nil, nil

	case tokenString:
		p.advance()
		return &filter.Literal{Value: tok.Value}, nil, nil

	case tokenDateTime:
		p.advance()
		layout := time.RFC3339
		if !strings.ContainsRune(tok.Value, 'T') {
			layout = "2006-01-02"
		}
		t, err := time.Parse(layout, tok.Value)
		if err != nil {
			return nil, nil, p.errorf("invalid datetime literal")
		}
		return filter.NewTimestamp(t), nil, nil

	case tokenIdent:
		lowerName := strings.ToLower(tok.Value)
		switch {
		case lowerName == "true":
			p.advance()
			return &filter.Literal{Value: true}, nil, nil
		case lowerName == "false":
			p.advance()
			return &filter.Literal{Value: false}, nil, nil
		case lowerName == "null":
			p.advance()
			return &filter.Literal{Value: nil}, nil, nil
		case (lowerName == "geography" || lowerName == "geometry") && p.peekIsString():
			// Only a literal when a quoted WKT follows; otherwise the
			// identifier is an ordinary property named geometry.
			p.advance()
			wktTok := p.advance()
			geom, err := geometry.ParseWKT(wktTok.Value, p.opts.DefaultSRID)
			if err != nil {
				return nil, nil, &filter.SyntaxError{Offset: wktTok.Pos, Message: err.Error()}
			}
			return &filter.Literal{Value: geom}, nil, nil
		case p.peekIsLParen():
			return p.parseCall(tok.Value)
		default:
			p.advance()
			return &filter.Property{Name: tok.Value}, nil, nil
		}
	}
	return nil, nil, p.errorf("expected expression")
}

func (p *parser) peekIsLParen() bool {
	return p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Type == tokenLParen
}

func (p *parser) peekIsString() bool {
	return p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Type == tokenString
}

var geoSpatialOps = map[string]filter.SpatialPredicate{
	"geo.intersects": filter.SpatialIntersects,
	"geo.contains":   filter.SpatialContains,
	"geo.within":     filter.SpatialWithin,
	"geo.touches":    filter.SpatialTouches,
	"geo.crosses":    filter.SpatialCrosses,
	"geo.overlaps":   filter.SpatialOverlaps,
	"geo.disjoint":   filter.SpatialDisjoint,
	"geo.equals":     filter.SpatialEquals,
}

func (p *parser) parseCall(name string) (filter.Expression, *distanceCall, error) {
	lowerName := strings.ToLower(name)
	p.advance() // name
	p.advance() // '('

	var args []filter.Expression
	if p.current().Type != tokenRParen {
		for {
			arg, dist, err := p.parsePrimary()
			if err != nil {
				return nil, nil, err
			}
			if dist != nil {
				return nil, nil, p.errorf("geo.distance cannot be nested here")
			}
			args = append(args, arg)
			if p.current().Type == tokenComma {
				p.advance()
				continue
			}
			break
		}
	}
	if p.current().Type != tokenRParen {
		return nil, nil, p.errorf("expected ')' closing " + name)
	}
	p.advance()

	if pred, ok := geoSpatialOps[lowerName]; ok {
		node, err := p.spatialFromArgs(pred, name, args)
		return node, nil, err
	}

	switch lowerName {
	case "geo.distance":
		geomOperand, test, err := p.spatialOperands(name, args)
		if err != nil {
			return nil, nil, err
		}
		return nil, &distanceCall{geom: geomOperand, test: test}, nil

	case "startswith", "endswith", "contains":
		if len(args) != 2 {
			return nil, nil, &filter.MissingArgumentError{Construct: name, Argument: "value"}
		}
		value, ok := args[1].(*filter.Literal)
		if !ok {
			return nil, nil, p.errorf(name + " requires a string literal")
		}
		text, ok := value.Value.(string)
		if !ok {
			return nil, nil, p.errorf(name + " requires a string literal")
		}
		return substringLike(lowerName, args[0], text), nil, nil
	}

	if spec, ok := filter.LookupFunction(lowerName); ok {
		if len(args) != spec.Arity {
			return nil, nil, &filter.MissingArgumentError{Construct: spec.Name, Argument: "argument"}
		}
		return &filter.Function{Name: spec.Name, Args: args}, nil, nil
	}
	return nil, nil, &filter.UnsupportedConstructError{Construct: "function " + name}
}

func (p *parser) spatialFromArgs(pred filter.SpatialPredicate, name string, args []filter.Expression) (filter.Expression, error) {
	geomOperand, test, err := p.spatialOperands(name, args)
	if err != nil {
		return nil, err
	}
	return &filter.Spatial{Predicate: pred, Geometry: geomOperand, Test: test}, nil
}

func (p *parser) spatialOperands(name string, args []filter.Expression) (filter.Expression, *geometry.Geometry, error) {
	if len(args) != 2 {
		return nil, nil, &filter.MissingArgumentError{Construct: name, Argument: "geometry"}
	}
	switch args[0].(type) {
	case *filter.Property, *filter.Function:
	default:
		return nil, nil, &filter.SyntaxError{Message: name + ": first argument must be a property or function"}
	}
	lit, ok := args[1].(*filter.Literal)
	if !ok {
		return nil, nil, &filter.SyntaxError{Message: name + ": second argument must be a geometry literal"}
	}
	geom, ok := lit.Value.(*geometry.Geometry)
	if !ok {
		return nil, nil, &filter.SyntaxError{Message: name + ": second argument must be a geometry literal"}
	}
	return args[0], geom, nil
}

// substringLike maps startswith/endswith/contains onto a LIKE pattern,
// escaping any pattern metacharacters in the user value.
func substringLike(fn string, target filter.Expression, value string) *filter.Like {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
	var pattern string
	switch fn {
	case "startswith":
		pattern = escaped + "%"
	case "endswith":
		pattern = "%" + escaped
	default:
		pattern = "%" + escaped + "%"
	}
	return &filter.Like{Target: target, Pattern: pattern, Wildcard: '%', SingleChar: '_', Escape: '\\'}
}
