package cursor

import (
	"fmt"
	"strings"

	"github.com/honua-io/Honua.Server-sub000/filter"
)

// Normalize appends the key field as an ascending tiebreaker when the
// sort specification does not already include it. With the tiebreaker in
// place the sort order is total and keyset boundaries are unambiguous.
func Normalize(sort []SortField, key string) []SortField {
	for _, s := range sort {
		if strings.EqualFold(s.Name, key) {
			return sort
		}
	}
	out := make([]SortField, len(sort)+1)
	copy(out, sort)
	out[len(sort)] = SortField{Name: key}
	return out
}

// Keyset builds the continuation predicate for a boundary: the
// lexicographic "after this row" test over the sort specification,
// expressed as a disjunction of progressively longer equality prefixes.
// For [(a desc), (b asc)] with boundary (v1, v2) it produces
//
//	(a < v1) OR (a = v1 AND b > v2)
//
// The result combines with the request filter by conjunction.
func Keyset(sort []SortField, values []any) (filter.Expression, error) {
	if len(sort) == 0 {
		return nil, fmt.Errorf("empty sort specification")
	}
	if len(values) != len(sort) {
		return nil, fmt.Errorf("sort has %d fields but %d values given", len(sort), len(values))
	}

	branches := make([]filter.Expression, 0, len(sort))
	for i, s := range sort {
		operands := make([]filter.Expression, 0, i+1)
		for j := 0; j < i; j++ {
			operands = append(operands, &filter.Comparison{
				Op:    filter.OpEqual,
				Left:  &filter.Property{Name: sort[j].Name},
				Right: &filter.Literal{Value: values[j]},
			})
		}
		op := filter.OpGreaterThan
		if s.Desc {
			op = filter.OpLessThan
		}
		operands = append(operands, &filter.Comparison{
			Op:    op,
			Left:  &filter.Property{Name: s.Name},
			Right: &filter.Literal{Value: values[i]},
		})
		branches = append(branches, filter.And(operands...))
	}

	if len(branches) == 1 {
		return branches[0], nil
	}
	return &filter.Logical{Op: filter.OpOr, Operands: branches}, nil
}
