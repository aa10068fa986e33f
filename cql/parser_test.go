package cql

import (
	"errors"
	"testing"
	"time"

	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/paulmach/orb"
)

func mustParse(t *testing.T, input string) filter.Expression {
	t.Helper()
	expr, err := Parse(input, &Options{DefaultSRID: 4326})
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", input, err)
	}
	return expr
}

func TestParseComparison(t *testing.T) {
	tests := []struct {
		input string
		op    filter.CompareOp
	}{
		{"temperature = 20", filter.OpEqual},
		{"temperature <> 20", filter.OpNotEqual},
		{"temperature != 20", filter.OpNotEqual},
		{"temperature < 20", filter.OpLessThan},
		{"temperature <= 20", filter.OpLessOrEqual},
		{"temperature > 20", filter.OpGreaterThan},
		{"temperature >= 20", filter.OpGreaterOrEqual},
	}
	for _, tt := range tests {
		expr := mustParse(t, tt.input)
		c, ok := expr.(*filter.Comparison)
		if !ok {
			t.Fatalf("%q: expected Comparison, got %T", tt.input, expr)
		}
		if c.Op != tt.op {
			t.Errorf("%q: expected op %s, got %s", tt.input, tt.op, c.Op)
		}
		if p, ok := c.Left.(*filter.Property); !ok || p.Name != "temperature" {
			t.Errorf("%q: unexpected left operand %#v", tt.input, c.Left)
		}
		if l, ok := c.Right.(*filter.Literal); !ok || l.Value != int64(20) {
			t.Errorf("%q: unexpected right operand %#v", tt.input, c.Right)
		}
	}
}

func TestParseNumberTypes(t *testing.T) {
	expr := mustParse(t, "a = 1.5")
	if v := expr.(*filter.Comparison).Right.(*filter.Literal).Value; v != 1.5 {
		t.Errorf("expected float64 1.5, got %#v", v)
	}
	expr = mustParse(t, "a = -3")
	if v := expr.(*filter.Comparison).Right.(*filter.Literal).Value; v != int64(-3) {
		t.Errorf("expected int64 -3, got %#v", v)
	}
}

func TestParseLogicalPrecedence(t *testing.T) {
	// AND binds tighter than OR.
	expr := mustParse(t, "a = 1 OR b = 2 AND c = 3")
	or, ok := expr.(*filter.Logical)
	if !ok || or.Op != filter.OpOr {
		t.Fatalf("expected top-level OR, got %#v", expr)
	}
	if len(or.Operands) != 2 {
		t.Fatalf("expected 2 OR operands, got %d", len(or.Operands))
	}
	and, ok := or.Operands[1].(*filter.Logical)
	if !ok || and.Op != filter.OpAnd {
		t.Fatalf("expected AND as second operand, got %#v", or.Operands[1])
	}
}

func TestParseNotAndParens(t *testing.T) {
	expr := mustParse(t, "NOT (a = 1 OR b = 2)")
	not, ok := expr.(*filter.Logical)
	if !ok || not.Op != filter.OpNot {
		t.Fatalf("expected NOT, got %#v", expr)
	}
	if _, ok := not.Operands[0].(*filter.Logical); !ok {
		t.Fatalf("expected nested logical, got %#v", not.Operands[0])
	}
}

func TestParseIsNull(t *testing.T) {
	expr := mustParse(t, "name IS NULL")
	n, ok := expr.(*filter.IsNull)
	if !ok || n.Negate {
		t.Fatalf("expected IsNull, got %#v", expr)
	}

	expr = mustParse(t, "name IS NOT NULL")
	n, ok = expr.(*filter.IsNull)
	if !ok || !n.Negate {
		t.Fatalf("expected negated IsNull, got %#v", expr)
	}
}

func TestParseLike(t *testing.T) {
	expr := mustParse(t, "name LIKE 'A%'")
	like, ok := expr.(*filter.Like)
	if !ok {
		t.Fatalf("expected Like, got %#v", expr)
	}
	if like.Pattern != "A%" || like.Wildcard != '%' || like.SingleChar != '_' {
		t.Errorf("unexpected like %#v", like)
	}
	if like.CaseInsensitive {
		t.Error("LIKE is case-sensitive")
	}
}

func TestParseCaseInsensitive(t *testing.T) {
	for _, input := range []string{
		"name ILIKE 'a%'",
		"CASEI(name) LIKE 'a%'",
	} {
		expr := mustParse(t, input)
		like, ok := expr.(*filter.Like)
		if !ok || !like.CaseInsensitive {
			t.Errorf("%q: expected case-insensitive Like, got %#v", input, expr)
		}
	}
}

func TestParseBetween(t *testing.T) {
	expr := mustParse(t, "depth BETWEEN 10 AND 100")
	b, ok := expr.(*filter.Between)
	if !ok {
		t.Fatalf("expected Between, got %#v", expr)
	}
	if b.Lower.(*filter.Literal).Value != int64(10) || b.Upper.(*filter.Literal).Value != int64(100) {
		t.Errorf("unexpected bounds %#v", b)
	}
}

func TestParseNotBetween(t *testing.T) {
	expr := mustParse(t, "depth NOT BETWEEN 10 AND 100")
	not, ok := expr.(*filter.Logical)
	if !ok || not.Op != filter.OpNot {
		t.Fatalf("expected NOT wrapper, got %#v", expr)
	}
	if _, ok := not.Operands[0].(*filter.Between); !ok {
		t.Fatalf("expected Between under NOT, got %#v", not.Operands[0])
	}
}

func TestParseIn(t *testing.T) {
	expr := mustParse(t, "status IN ('active', 'retired', 'unknown')")
	in, ok := expr.(*filter.In)
	if !ok || in.Negate {
		t.Fatalf("expected In, got %#v", expr)
	}
	if len(in.Values) != 3 {
		t.Errorf("expected 3 values, got %d", len(in.Values))
	}

	expr = mustParse(t, "status NOT IN (1, 2)")
	in, ok = expr.(*filter.In)
	if !ok || !in.Negate {
		t.Fatalf("expected negated In, got %#v", expr)
	}
}

func TestParseTimestamp(t *testing.T) {
	expr := mustParse(t, "datetime >= TIMESTAMP('2024-06-01T12:00:00Z')")
	c := expr.(*filter.Comparison)
	v, ok := c.Right.(*filter.Literal).Value.(time.Time)
	if !ok {
		t.Fatalf("expected time.Time, got %#v", c.Right)
	}
	if !v.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", v)
	}
	if v.Location() != time.UTC {
		t.Errorf("timestamp must be UTC, got %v", v.Location())
	}
}

func TestParseDate(t *testing.T) {
	expr := mustParse(t, "datetime < DATE('2024-06-01')")
	v := expr.(*filter.Comparison).Right.(*filter.Literal).Value.(time.Time)
	if v.Year() != 2024 || v.Month() != 6 || v.Day() != 1 {
		t.Errorf("unexpected date %v", v)
	}
}

func TestParseSpatialIntersectsBBOX(t *testing.T) {
	expr := mustParse(t, "INTERSECTS(geometry, BBOX(-10, 40, 5, 50))")
	s, ok := expr.(*filter.Spatial)
	if !ok {
		t.Fatalf("expected Spatial, got %#v", expr)
	}
	if s.Predicate != filter.SpatialIntersects {
		t.Errorf("expected INTERSECTS, got %s", s.Predicate)
	}
	b, ok := s.Test.Geom.(orb.Bound)
	if !ok {
		t.Fatalf("expected Bound test geometry, got %T", s.Test.Geom)
	}
	if b.Min[0] != -10 || b.Min[1] != 40 || b.Max[0] != 5 || b.Max[1] != 50 {
		t.Errorf("unexpected bound %v", b)
	}
	if s.Test.SRID != 4326 {
		t.Errorf("expected default SRID 4326, got %d", s.Test.SRID)
	}
}

func TestParseSpatialWKT(t *testing.T) {
	expr := mustParse(t, "S_INTERSECTS(geometry, POLYGON((-10 40, 5 40, 5 50, -10 50, -10 40)))")
	s := expr.(*filter.Spatial)
	if _, ok := s.Test.Geom.(orb.Polygon); !ok {
		t.Fatalf("expected Polygon, got %T", s.Test.Geom)
	}
}

func TestParseAllSpatialPredicates(t *testing.T) {
	names := map[string]filter.SpatialPredicate{
		"INTERSECTS": filter.SpatialIntersects,
		"CONTAINS":   filter.SpatialContains,
		"WITHIN":     filter.SpatialWithin,
		"TOUCHES":    filter.SpatialTouches,
		"CROSSES":    filter.SpatialCrosses,
		"OVERLAPS":   filter.SpatialOverlaps,
		"DISJOINT":   filter.SpatialDisjoint,
		"EQUALS":     filter.SpatialEquals,
	}
	for name, pred := range names {
		expr := mustParse(t, name+"(geometry, POINT(1 2))")
		s, ok := expr.(*filter.Spatial)
		if !ok || s.Predicate != pred {
			t.Errorf("%s: unexpected result %#v", name, expr)
		}
	}
}

func TestParseDWithinUnits(t *testing.T) {
	km := mustParse(t, "DWITHIN(geometry, POINT(1 2), 5, 'km')").(*filter.Spatial)
	m := mustParse(t, "DWITHIN(geometry, POINT(1 2), 5000, 'meters')").(*filter.Spatial)
	if km.Distance != m.Distance {
		t.Errorf("5 km (%g) must equal 5000 m (%g)", km.Distance, m.Distance)
	}
	if km.Distance != 5000 {
		t.Errorf("expected 5000 meters, got %g", km.Distance)
	}

	bare := mustParse(t, "DWITHIN(geometry, POINT(1 2), 250)").(*filter.Spatial)
	if bare.Distance != 250 {
		t.Errorf("bare distance is meters, got %g", bare.Distance)
	}
}

func TestParseDWithinMissingDistance(t *testing.T) {
	_, err := Parse("DWITHIN(geometry, POINT(1 2))", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var missing *filter.MissingArgumentError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingArgumentError, got %T: %v", err, err)
	}
}

func TestParseBeyond(t *testing.T) {
	s := mustParse(t, "BEYOND(geometry, POINT(1 2), 1, 'mi')").(*filter.Spatial)
	if s.Predicate != filter.SpatialBeyond {
		t.Errorf("expected BEYOND, got %s", s.Predicate)
	}
	if s.Distance != 1609.344 {
		t.Errorf("expected 1609.344 meters, got %g", s.Distance)
	}
}

func TestParseFunctionNesting(t *testing.T) {
	expr := mustParse(t, "area(buffer(geometry, 100)) > 500000")
	c := expr.(*filter.Comparison)
	area, ok := c.Left.(*filter.Function)
	if !ok || area.Name != "area" {
		t.Fatalf("expected area(), got %#v", c.Left)
	}
	buffer, ok := area.Args[0].(*filter.Function)
	if !ok || buffer.Name != "buffer" {
		t.Fatalf("expected nested buffer(), got %#v", area.Args[0])
	}
	if len(buffer.Args) != 2 {
		t.Errorf("buffer takes 2 args, got %d", len(buffer.Args))
	}
}

func TestParseFunctionArity(t *testing.T) {
	_, err := Parse("buffer(geometry) = 1", nil)
	var missing *filter.MissingArgumentError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingArgumentError, got %T: %v", err, err)
	}
}

func TestParseUnknownFunction(t *testing.T) {
	_, err := Parse("centroid(geometry) = 1", nil)
	var unsupported *filter.UnsupportedConstructError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedConstructError, got %T: %v", err, err)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	inputs := []string{
		"",
		"a =",
		"a = 'unterminated",
		"a = 1 AND",
		"(a = 1",
		"a BETWEEN 1",
		"a IN ()",
		"a = 1 b = 2",
		"a = 1.2.3",
		"INTERSECTS(geometry POINT(1 2))",
	}
	for _, input := range inputs {
		_, err := Parse(input, nil)
		if err == nil {
			t.Errorf("Parse(%q) should fail", input)
			continue
		}
		var syntax *filter.SyntaxError
		var missing *filter.MissingArgumentError
		if !errors.As(err, &syntax) && !errors.As(err, &missing) {
			t.Errorf("Parse(%q): expected typed error, got %T: %v", input, err, err)
		}
	}
}

func TestParseStringEscapes(t *testing.T) {
	expr := mustParse(t, "name = 'O''Brien'")
	v := expr.(*filter.Comparison).Right.(*filter.Literal).Value
	if v != "O'Brien" {
		t.Errorf("expected O'Brien, got %q", v)
	}
}

func TestParseGeometryFunctionOperand(t *testing.T) {
	expr := mustParse(t, "INTERSECTS(buffer(geometry, 50), POINT(1 2))")
	s := expr.(*filter.Spatial)
	if _, ok := s.Geometry.(*filter.Function); !ok {
		t.Fatalf("expected function geometry operand, got %#v", s.Geometry)
	}
}
