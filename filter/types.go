package filter

import (
	"time"

	"github.com/honua-io/Honua.Server-sub000/geometry"
)

// CompareOp identifies a binary comparison operator.
type CompareOp string

const (
	OpEqual          CompareOp = "COMPARE_EQUAL"
	OpNotEqual       CompareOp = "COMPARE_NOTEQUAL"
	OpLessThan       CompareOp = "COMPARE_LESSTHAN"
	OpLessOrEqual    CompareOp = "COMPARE_LESSTHANOREQUALTO"
	OpGreaterThan    CompareOp = "COMPARE_GREATERTHAN"
	OpGreaterOrEqual CompareOp = "COMPARE_GREATERTHANOREQUALTO"
)

// LogicalOp identifies a logical combinator.
type LogicalOp string

const (
	OpAnd LogicalOp = "CONJUNCTION_AND"
	OpOr  LogicalOp = "CONJUNCTION_OR"
	OpNot LogicalOp = "OPERATOR_NOT"
)

// SpatialPredicate identifies a spatial relation test.
type SpatialPredicate string

const (
	SpatialBBOX       SpatialPredicate = "BBOX"
	SpatialIntersects SpatialPredicate = "INTERSECTS"
	SpatialContains   SpatialPredicate = "CONTAINS"
	SpatialWithin     SpatialPredicate = "WITHIN"
	SpatialTouches    SpatialPredicate = "TOUCHES"
	SpatialCrosses    SpatialPredicate = "CROSSES"
	SpatialOverlaps   SpatialPredicate = "OVERLAPS"
	SpatialDisjoint   SpatialPredicate = "DISJOINT"
	SpatialEquals     SpatialPredicate = "EQUALS"
	SpatialDWithin    SpatialPredicate = "DWITHIN"
	SpatialBeyond     SpatialPredicate = "BEYOND"
)

// SpatialPredicates lists every supported predicate, in a stable order.
var SpatialPredicates = []SpatialPredicate{
	SpatialBBOX, SpatialIntersects, SpatialContains, SpatialWithin,
	SpatialTouches, SpatialCrosses, SpatialOverlaps, SpatialDisjoint,
	SpatialEquals, SpatialDWithin, SpatialBeyond,
}

// RequiresDistance reports whether the predicate takes a distance argument.
func (p SpatialPredicate) RequiresDistance() bool {
	return p == SpatialDWithin || p == SpatialBeyond
}

// Expression is the interface implemented by all filter expression nodes.
// Trees are built bottom-up by the grammar front-ends and are immutable
// once constructed. Use type switches to access specific node data.
type Expression interface {
	// expressionMarker is a marker method to prevent external implementation.
	expressionMarker()
}

// Literal is a scalar or geometry constant.
// Value holds one of: string, float64, int64, bool, time.Time,
// *geometry.Geometry, or nil for an explicit null.
type Literal struct {
	Value any
}

// Property references an external field name. Resolution against the
// entity catalog happens at translation time, not parse time.
type Property struct {
	Name string
}

// Comparison is a binary comparison between two child expressions.
type Comparison struct {
	Op    CompareOp
	Left  Expression
	Right Expression
}

// Like is a pattern match. Wildcard, SingleChar and Escape carry the
// grammar's declared pattern metacharacters; the translator rewrites the
// pattern to SQL % and _ semantics.
type Like struct {
	Target          Expression
	Pattern         string
	Wildcard        rune
	SingleChar      rune
	Escape          rune
	CaseInsensitive bool
}

// Between tests input against an inclusive range.
type Between struct {
	Input Expression
	Lower Expression
	Upper Expression
}

// In tests target membership in a value list.
type In struct {
	Target Expression
	Values []Expression
	Negate bool
}

// IsNull tests a value for SQL NULL.
type IsNull struct {
	Target Expression
	Negate bool
}

// Logical combines one or more operands with AND, OR or NOT.
// NOT carries exactly one operand.
type Logical struct {
	Op       LogicalOp
	Operands []Expression
}

// Spatial tests a geometry-valued expression against a literal geometry.
// Geometry is a Property or a geometry-returning Function. Distance is in
// meters and is set only for DWITHIN and BEYOND; unit conversion happens
// in the front-ends, never in the dialect adapters.
type Spatial struct {
	Predicate SpatialPredicate
	Geometry  Expression
	Test      *geometry.Geometry
	Distance  float64
}

// Function is a call to one of the registered geometry functions.
// Arguments are expressions, so calls nest: area(buffer(geom, 100)).
type Function struct {
	Name string
	Args []Expression
}

func (*Literal) expressionMarker()    {}
func (*Property) expressionMarker()   {}
func (*Comparison) expressionMarker() {}
func (*Like) expressionMarker()       {}
func (*Between) expressionMarker()    {}
func (*In) expressionMarker()         {}
func (*IsNull) expressionMarker()     {}
func (*Logical) expressionMarker()    {}
func (*Spatial) expressionMarker()    {}
func (*Function) expressionMarker()   {}

// FunctionSpec declares a registered function's shape.
type FunctionSpec struct {
	Name string
	// Arity is the exact argument count.
	Arity int
	// ReturnsGeometry reports whether the result is geometry-typed and can
	// itself feed a Spatial node or an outer geometry function.
	ReturnsGeometry bool
}

// Functions is the fixed registry of supported function calls. Keys are
// lower-case names as they appear in every grammar.
var Functions = map[string]FunctionSpec{
	"area":   {Name: "area", Arity: 1, ReturnsGeometry: false},
	"length": {Name: "length", Arity: 1, ReturnsGeometry: false},
	"buffer": {Name: "buffer", Arity: 2, ReturnsGeometry: true},
}

// LookupFunction resolves a function name case-insensitively.
func LookupFunction(name string) (FunctionSpec, bool) {
	spec, ok := Functions[lower(name)]
	return spec, ok
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

// NewTimestamp builds a timestamp literal normalized to UTC.
func NewTimestamp(t time.Time) *Literal {
	return &Literal{Value: t.UTC()}
}

// And combines expressions with AND, flattening the trivial cases.
func And(exprs ...Expression) Expression {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	}
	return &Logical{Op: OpAnd, Operands: exprs}
}

// Walk visits expr and all children depth-first, stopping when fn
// returns false.
func Walk(expr Expression, fn func(Expression) bool) {
	if expr == nil || !fn(expr) {
		return
	}
	switch e := expr.(type) {
	case *Comparison:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case *Like:
		Walk(e.Target, fn)
	case *Between:
		Walk(e.Input, fn)
		Walk(e.Lower, fn)
		Walk(e.Upper, fn)
	case *In:
		Walk(e.Target, fn)
		for _, v := range e.Values {
			Walk(v, fn)
		}
	case *IsNull:
		Walk(e.Target, fn)
	case *Logical:
		for _, op := range e.Operands {
			Walk(op, fn)
		}
	case *Spatial:
		Walk(e.Geometry, fn)
	case *Function:
		for _, a := range e.Args {
			Walk(a, fn)
		}
	}
}
