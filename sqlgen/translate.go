package sqlgen

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/honua-io/Honua.Server-sub000/geometry"
)

// Translate renders a filter expression to a WHERE-clause body with
// parameter placeholders in the dialect's style. Every literal becomes a
// bound parameter in expression traversal order; only identifiers, SQL
// keywords and numeric envelope bounds appear in the SQL text.
func Translate(expr filter.Expression, catalog *Catalog, dialect Dialect) (string, []any, error) {
	if expr == nil {
		return "", nil, fmt.Errorf("nil expression")
	}
	if catalog == nil {
		return "", nil, fmt.Errorf("nil catalog")
	}
	if err := catalog.Validate(); err != nil {
		return "", nil, err
	}

	t := &translator{catalog: catalog, dialect: dialect}
	sql, err := t.render(expr)
	if err != nil {
		return "", nil, err
	}
	sql, err = dialect.Placeholder().ReplacePlaceholders(sql)
	if err != nil {
		return "", nil, err
	}
	return sql, t.args, nil
}

type translator struct {
	catalog *Catalog
	dialect Dialect
	args    []any
}

// bind appends a parameter and returns its placeholder.
func (t *translator) bind(v any) string {
	t.args = append(t.args, v)
	return "?"
}

func (t *translator) render(expr filter.Expression) (string, error) {
	switch e := expr.(type) {
	case *filter.Literal:
		return t.renderLiteral(e)
	case *filter.Property:
		return t.renderProperty(e)
	case *filter.Comparison:
		return t.renderComparison(e)
	case *filter.Like:
		return t.renderLike(e)
	case *filter.Between:
		return t.renderBetween(e)
	case *filter.In:
		return t.renderIn(e)
	case *filter.IsNull:
		return t.renderIsNull(e)
	case *filter.Logical:
		return t.renderLogical(e)
	case *filter.Spatial:
		return t.renderSpatial(e)
	case *filter.Function:
		return t.renderFunction(e)
	default:
		return "", &filter.UnsupportedConstructError{Construct: fmt.Sprintf("expression %T", expr)}
	}
}

func (t *translator) renderLiteral(l *filter.Literal) (string, error) {
	switch v := l.Value.(type) {
	case nil:
		return "NULL", nil
	case *geometry.Geometry:
		return "", &filter.UnsupportedConstructError{Construct: "geometry literal outside a spatial predicate"}
	case time.Time:
		return t.bind(v.UTC()), nil
	default:
		return t.bind(v), nil
	}
}

func (t *translator) renderProperty(p *filter.Property) (string, error) {
	field, err := t.catalog.Resolve(p.Name)
	if err != nil {
		return "", err
	}
	return t.dialect.Quote(field.ColumnName()), nil
}

var compareSQL = map[filter.CompareOp]string{
	filter.OpEqual:          "=",
	filter.OpNotEqual:       "<>",
	filter.OpLessThan:       "<",
	filter.OpLessOrEqual:    "<=",
	filter.OpGreaterThan:    ">",
	filter.OpGreaterOrEqual: ">=",
}

func (t *translator) renderComparison(c *filter.Comparison) (string, error) {
	op, ok := compareSQL[c.Op]
	if !ok {
		return "", &filter.UnsupportedConstructError{Construct: "comparison " + string(c.Op)}
	}
	left, err := t.render(c.Left)
	if err != nil {
		return "", err
	}
	right, err := t.render(c.Right)
	if err != nil {
		return "", err
	}
	return left + " " + op + " " + right, nil
}

func (t *translator) renderLike(l *filter.Like) (string, error) {
	target, err := t.render(l.Target)
	if err != nil {
		return "", err
	}
	pattern := rewritePattern(l.Pattern, l.Wildcard, l.SingleChar, l.Escape)
	ph := t.bind(pattern)
	if l.CaseInsensitive {
		return t.dialect.ILike(target, ph) + t.dialect.LikeEscape(), nil
	}
	return target + " LIKE " + ph + t.dialect.LikeEscape(), nil
}

func (t *translator) renderBetween(b *filter.Between) (string, error) {
	input, err := t.render(b.Input)
	if err != nil {
		return "", err
	}
	lower, err := t.render(b.Lower)
	if err != nil {
		return "", err
	}
	upper, err := t.render(b.Upper)
	if err != nil {
		return "", err
	}
	return input + " BETWEEN " + lower + " AND " + upper, nil
}

func (t *translator) renderIn(in *filter.In) (string, error) {
	target, err := t.render(in.Target)
	if err != nil {
		return "", err
	}
	if len(in.Values) == 0 {
		return "", &filter.MissingArgumentError{Construct: "IN", Argument: "value list"}
	}
	values := make([]string, 0, len(in.Values))
	for _, v := range in.Values {
		sql, err := t.render(v)
		if err != nil {
			return "", err
		}
		values = append(values, sql)
	}
	op := " IN "
	if in.Negate {
		op = " NOT IN "
	}
	return target + op + "(" + strings.Join(values, ", ") + ")", nil
}

func (t *translator) renderIsNull(n *filter.IsNull) (string, error) {
	target, err := t.render(n.Target)
	if err != nil {
		return "", err
	}
	if n.Negate {
		return target + " IS NOT NULL", nil
	}
	return target + " IS NULL", nil
}

func (t *translator) renderLogical(l *filter.Logical) (string, error) {
	if l.Op == filter.OpNot {
		if len(l.Operands) != 1 {
			return "", &filter.MissingArgumentError{Construct: "NOT", Argument: "operand"}
		}
		operand, err := t.render(l.Operands[0])
		if err != nil {
			return "", err
		}
		return "NOT (" + operand + ")", nil
	}

	if len(l.Operands) == 0 {
		return "", &filter.MissingArgumentError{Construct: string(l.Op), Argument: "operands"}
	}
	parts := make([]string, 0, len(l.Operands))
	for _, operand := range l.Operands {
		sql, err := t.render(operand)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	op := " AND "
	if l.Op == filter.OpOr {
		op = " OR "
	}
	return "(" + strings.Join(parts, op) + ")", nil
}

func (t *translator) renderSpatial(s *filter.Spatial) (string, error) {
	geomSQL, err := t.render(s.Geometry)
	if err != nil {
		return "", err
	}
	if err := t.checkGeometryTyped(s.Geometry, "spatial predicate"); err != nil {
		return "", err
	}
	if s.Test == nil {
		return "", &filter.MissingArgumentError{Construct: string(s.Predicate), Argument: "geometry literal"}
	}
	srid, err := t.sridOf(s.Geometry)
	if err != nil {
		return "", err
	}
	return t.dialect.Spatial(s.Predicate, geomSQL, srid, s.Test, s.Distance, t.bind)
}

func (t *translator) renderFunction(f *filter.Function) (string, error) {
	spec, ok := filter.LookupFunction(f.Name)
	if !ok {
		return "", &filter.UnsupportedConstructError{Construct: "function " + f.Name}
	}
	if len(f.Args) != spec.Arity {
		return "", &filter.MissingArgumentError{Construct: spec.Name, Argument: "argument"}
	}
	// area, length and buffer all take their geometry first; it must
	// resolve to a geometry column or a geometry-returning call.
	if err := t.checkGeometryTyped(f.Args[0], "function "+spec.Name); err != nil {
		return "", err
	}
	args := make([]string, 0, len(f.Args))
	for _, a := range f.Args {
		sql, err := t.render(a)
		if err != nil {
			return "", err
		}
		args = append(args, sql)
	}
	srid, err := t.sridOf(f.Args[0])
	if err != nil {
		return "", err
	}
	return t.dialect.Function(spec.Name, args, srid)
}

// sridOf resolves the stored SRID of a geometry-valued expression by
// following the property at the root of the call chain.
func (t *translator) sridOf(expr filter.Expression) (int, error) {
	switch e := expr.(type) {
	case *filter.Property:
		field, err := t.catalog.Resolve(e.Name)
		if err != nil {
			return 0, err
		}
		return field.SRID, nil
	case *filter.Function:
		if len(e.Args) == 0 {
			return 0, nil
		}
		return t.sridOf(e.Args[0])
	}
	return 0, nil
}

// checkGeometryTyped rejects geometry operands that do not resolve to a
// geometry column or a geometry-returning function call. construct names
// the enclosing predicate or function for the error.
func (t *translator) checkGeometryTyped(expr filter.Expression, construct string) error {
	switch e := expr.(type) {
	case *filter.Property:
		field, err := t.catalog.Resolve(e.Name)
		if err != nil {
			return err
		}
		if field.Type != TypeGeometry {
			return &filter.UnsupportedConstructError{
				Construct: fmt.Sprintf("%s on non-geometry field %s", construct, field.Name),
			}
		}
		return nil
	case *filter.Function:
		spec, ok := filter.LookupFunction(e.Name)
		if !ok || !spec.ReturnsGeometry {
			return &filter.UnsupportedConstructError{
				Construct: fmt.Sprintf("%s on non-geometry function %s", construct, e.Name),
			}
		}
		return nil
	}
	return &filter.UnsupportedConstructError{Construct: construct + " operand"}
}

type patternKey struct {
	pattern    string
	wildcard   rune
	singleChar rune
	escape     rune
}

// patternCache memoizes rewritten LIKE patterns. Pattern rewriting is
// pure, so concurrent duplicate computation is harmless.
var patternCache sync.Map

// rewritePattern converts a grammar pattern with declared metacharacters
// to SQL LIKE semantics with backslash escaping. Literal %, _ and \ in
// the source pattern are escaped so they cannot act as SQL wildcards.
func rewritePattern(pattern string, wildcard, singleChar, escape rune) string {
	key := patternKey{pattern, wildcard, singleChar, escape}
	if cached, ok := patternCache.Load(key); ok {
		return cached.(string)
	}

	var b strings.Builder
	b.Grow(len(pattern))
	escaped := false
	for _, r := range pattern {
		if escaped {
			writeLikeLiteral(&b, r)
			escaped = false
			continue
		}
		switch r {
		case escape:
			escaped = true
		case wildcard:
			b.WriteByte('%')
		case singleChar:
			b.WriteByte('_')
		default:
			writeLikeLiteral(&b, r)
		}
	}
	if escaped {
		// Trailing escape character matches itself.
		writeLikeLiteral(&b, escape)
	}

	out := b.String()
	patternCache.Store(key, out)
	return out
}

func writeLikeLiteral(b *strings.Builder, r rune) {
	if r == '%' || r == '_' || r == '\\' {
		b.WriteByte('\\')
	}
	b.WriteRune(r)
}
