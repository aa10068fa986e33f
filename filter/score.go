package filter

// DefaultMaxCost is the default complexity ceiling. A legitimate filter of
// a few dozen clauses stays well under it; adversarial trees with hundreds
// of clauses or deep logical nesting do not.
const DefaultMaxCost = 120

const (
	comparisonCost   = 1
	functionCost     = 2
	inListFreeSize   = 10
	inListEntryCost  = 5
	nestingFreeDepth = 4
	nestingFactor    = 1.5
)

// Score computes the complexity cost of an expression tree.
// Cost accumulates +1 per comparison or spatial node, +2 per function
// node, +5 per IN-list entry beyond 10, and a 1.5x multiplier per level
// of logical nesting beyond depth 4.
func Score(expr Expression) int {
	return int(score(expr, 0, 1))
}

// CheckCost scores expr against ceiling and returns QueryTooComplexError
// when exceeded. A ceiling <= 0 uses DefaultMaxCost. This runs strictly
// before any SQL text is generated.
func CheckCost(expr Expression, ceiling int) error {
	if ceiling <= 0 {
		ceiling = DefaultMaxCost
	}
	cost := Score(expr)
	if cost > ceiling {
		return &QueryTooComplexError{Cost: cost, Ceiling: ceiling}
	}
	return nil
}

func score(expr Expression, logicalDepth int, mult float64) float64 {
	if expr == nil {
		return 0
	}
	switch e := expr.(type) {
	case *Comparison:
		return mult*comparisonCost + score(e.Left, logicalDepth, mult) + score(e.Right, logicalDepth, mult)
	case *Like:
		return mult*comparisonCost + score(e.Target, logicalDepth, mult)
	case *Between:
		return mult*comparisonCost + score(e.Input, logicalDepth, mult) +
			score(e.Lower, logicalDepth, mult) + score(e.Upper, logicalDepth, mult)
	case *IsNull:
		return mult*comparisonCost + score(e.Target, logicalDepth, mult)
	case *In:
		cost := mult * comparisonCost
		if extra := len(e.Values) - inListFreeSize; extra > 0 {
			cost += mult * float64(extra*inListEntryCost)
		}
		cost += score(e.Target, logicalDepth, mult)
		for _, v := range e.Values {
			cost += score(v, logicalDepth, mult)
		}
		return cost
	case *Spatial:
		return mult*comparisonCost + score(e.Geometry, logicalDepth, mult)
	case *Function:
		cost := mult * functionCost
		for _, a := range e.Args {
			cost += score(a, logicalDepth, mult)
		}
		return cost
	case *Logical:
		depth := logicalDepth + 1
		childMult := mult
		if depth > nestingFreeDepth {
			childMult *= nestingFactor
		}
		var cost float64
		for _, op := range e.Operands {
			cost += score(op, depth, childMult)
		}
		return cost
	default:
		return 0
	}
}
