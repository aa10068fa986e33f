package cql

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/honua-io/Honua.Server-sub000/geometry"
)

// ParseJSON parses a CQL2-JSON filter document into the shared expression
// model. The document is the usual {"op": ..., "args": [...]} tree with
// {"property": name} references, {"timestamp"|"date": ...} temporal
// literals and GeoJSON geometry or {"bbox": [...]} spatial literals.
func ParseJSON(data []byte, opts *Options) (filter.Expression, error) {
	if opts == nil {
		opts = &Options{}
	}
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &filter.SyntaxError{Message: "invalid JSON: " + err.Error()}
	}
	return parseJSONNode(raw, opts)
}

type rawOp struct {
	Op   string            `json:"op"`
	Args []json.RawMessage `json:"args"`
}

func parseJSONNode(data json.RawMessage, opts *Options) (filter.Expression, error) {
	var raw rawOp
	if err := json.Unmarshal(data, &raw); err != nil || raw.Op == "" {
		return nil, &filter.SyntaxError{Message: "expected filter object with \"op\""}
	}

	op := strings.ToLower(raw.Op)
	switch op {
	case "and", "or":
		if len(raw.Args) == 0 {
			return nil, &filter.MissingArgumentError{Construct: op, Argument: "operands"}
		}
		operands := make([]filter.Expression, 0, len(raw.Args))
		for i, arg := range raw.Args {
			child, err := parseJSONNode(arg, opts)
			if err != nil {
				return nil, fmt.Errorf("%s operand %d: %w", op, i, err)
			}
			operands = append(operands, child)
		}
		lop := filter.OpAnd
		if op == "or" {
			lop = filter.OpOr
		}
		return &filter.Logical{Op: lop, Operands: operands}, nil

	case "not":
		if len(raw.Args) != 1 {
			return nil, &filter.MissingArgumentError{Construct: "not", Argument: "operand"}
		}
		child, err := parseJSONNode(raw.Args[0], opts)
		if err != nil {
			return nil, err
		}
		return &filter.Logical{Op: filter.OpNot, Operands: []filter.Expression{child}}, nil

	case "=", "eq", "<>", "!=", "<", "<=", ">", ">=":
		if len(raw.Args) != 2 {
			return nil, &filter.MissingArgumentError{Construct: raw.Op, Argument: "operand"}
		}
		left, err := parseJSONOperand(raw.Args[0], opts)
		if err != nil {
			return nil, err
		}
		right, err := parseJSONOperand(raw.Args[1], opts)
		if err != nil {
			return nil, err
		}
		return &filter.Comparison{Op: jsonCompareOp(op), Left: left, Right: right}, nil

	case "like":
		if len(raw.Args) != 2 {
			return nil, &filter.MissingArgumentError{Construct: "like", Argument: "pattern"}
		}
		target, err := parseJSONOperand(raw.Args[0], opts)
		if err != nil {
			return nil, err
		}
		var pattern string
		if err := json.Unmarshal(raw.Args[1], &pattern); err != nil {
			return nil, &filter.SyntaxError{Message: "like pattern must be a string"}
		}
		return &filter.Like{Target: target, Pattern: pattern, Wildcard: '%', SingleChar: '_', Escape: '\\'}, nil

	case "between":
		if len(raw.Args) != 3 {
			return nil, &filter.MissingArgumentError{Construct: "between", Argument: "bounds"}
		}
		input, err := parseJSONOperand(raw.Args[0], opts)
		if err != nil {
			return nil, err
		}
		lower, err := parseJSONOperand(raw.Args[1], opts)
		if err != nil {
			return nil, err
		}
		upper, err := parseJSONOperand(raw.Args[2], opts)
		if err != nil {
			return nil, err
		}
		return &filter.Between{Input: input, Lower: lower, Upper: upper}, nil

	case "in":
		if len(raw.Args) != 2 {
			return nil, &filter.MissingArgumentError{Construct: "in", Argument: "value list"}
		}
		target, err := parseJSONOperand(raw.Args[0], opts)
		if err != nil {
			return nil, err
		}
		var list []json.RawMessage
		if err := json.Unmarshal(raw.Args[1], &list); err != nil {
			return nil, &filter.SyntaxError{Message: "in list must be an array"}
		}
		values := make([]filter.Expression, 0, len(list))
		for _, item := range list {
			v, err := parseJSONOperand(item, opts)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return &filter.In{Target: target, Values: values}, nil

	case "isnull", "is_null":
		if len(raw.Args) != 1 {
			return nil, &filter.MissingArgumentError{Construct: "isNull", Argument: "operand"}
		}
		target, err := parseJSONOperand(raw.Args[0], opts)
		if err != nil {
			return nil, err
		}
		return &filter.IsNull{Target: target}, nil
	}

	if pred, ok := jsonSpatialOps[op]; ok {
		return parseJSONSpatial(pred, raw, opts)
	}
	if spec, ok := filter.LookupFunction(op); ok {
		if len(raw.Args) != spec.Arity {
			return nil, &filter.MissingArgumentError{Construct: spec.Name, Argument: "argument"}
		}
		args := make([]filter.Expression, 0, len(raw.Args))
		for _, a := range raw.Args {
			arg, err := parseJSONOperand(a, opts)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return &filter.Function{Name: spec.Name, Args: args}, nil
	}
	return nil, &filter.UnsupportedConstructError{Construct: "operator " + raw.Op}
}

func jsonCompareOp(op string) filter.CompareOp {
	switch op {
	case "=", "eq":
		return filter.OpEqual
	case "<>", "!=":
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

var jsonSpatialOps = map[string]filter.SpatialPredicate{
	"s_intersects": filter.SpatialIntersects,
	"s_contains":   filter.SpatialContains,
	"s_within":     filter.SpatialWithin,
	"s_touches":    filter.SpatialTouches,
	"s_crosses":    filter.SpatialCrosses,
	"s_overlaps":   filter.SpatialOverlaps,
	"s_disjoint":   filter.SpatialDisjoint,
	"s_equals":     filter.SpatialEquals,
	"bbox":         filter.SpatialBBOX,
	"dwithin":      filter.SpatialDWithin,
	"s_dwithin":    filter.SpatialDWithin,
	"beyond":       filter.SpatialBeyond,
}

func parseJSONSpatial(pred filter.SpatialPredicate, raw rawOp, opts *Options) (filter.Expression, error) {
	if len(raw.Args) < 2 {
		return nil, &filter.MissingArgumentError{Construct: string(pred), Argument: "geometry"}
	}
	geomOperand, err := parseJSONOperand(raw.Args[0], opts)
	if err != nil {
		return nil, err
	}
	switch geomOperand.(type) {
	case *filter.Property, *filter.Function:
	default:
		return nil, &filter.SyntaxError{Message: "first spatial argument must be a property or function"}
	}

	test, err := parseJSONGeometry(raw.Args[1], opts)
	if err != nil {
		return nil, err
	}

	node := &filter.Spatial{Predicate: pred, Geometry: geomOperand, Test: test}
	if pred.RequiresDistance() {
		if len(raw.Args) < 3 {
			return nil, &filter.MissingArgumentError{Construct: string(pred), Argument: "distance"}
		}
		var dist float64
		if err := json.Unmarshal(raw.Args[2], &dist); err != nil {
			return nil, &filter.SyntaxError{Message: "distance must be a number"}
		}
		unit := ""
		if len(raw.Args) > 3 {
			if err := json.Unmarshal(raw.Args[3], &unit); err != nil {
				return nil, &filter.SyntaxError{Message: "distance unit must be a string"}
			}
		}
		if !geometry.UnitAllowed(opts.Units, unit) {
			return nil, &filter.UnsupportedConstructError{Construct: "distance unit " + unit}
		}
		meters, err := geometry.ToMeters(dist, unit)
		if err != nil {
			return nil, &filter.UnsupportedConstructError{Construct: "distance unit " + unit}
		}
		node.Distance = meters
	} else if len(raw.Args) > 2 {
		return nil, &filter.SyntaxError{Message: string(pred) + " takes exactly two arguments"}
	}
	return node, nil
}

// parseJSONOperand parses a scalar literal, property reference, temporal
// literal, nested function call or geometry literal.
func parseJSONOperand(data json.RawMessage, opts *Options) (filter.Expression, error) {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var ref struct {
			Property  *string `json:"property"`
			Timestamp *string `json:"timestamp"`
			Date      *string `json:"date"`
		}
		if err := json.Unmarshal(data, &ref); err == nil {
			switch {
			case ref.Property != nil:
				return &filter.Property{Name: *ref.Property}, nil
			case ref.Timestamp != nil:
				t, err := time.Parse(time.RFC3339, *ref.Timestamp)
				if err != nil {
					return nil, &filter.SyntaxError{Message: "invalid timestamp " + *ref.Timestamp}
				}
				return filter.NewTimestamp(t), nil
			case ref.Date != nil:
				t, err := time.Parse("2006-01-02", *ref.Date)
				if err != nil {
					return nil, &filter.SyntaxError{Message: "invalid date " + *ref.Date}
				}
				return filter.NewTimestamp(t), nil
			}
		}
		// Function call or geometry literal.
		var probe rawOp
		if err := json.Unmarshal(data, &probe); err == nil && probe.Op != "" {
			return parseJSONNode(data, opts)
		}
		geom, err := parseJSONGeometry(data, opts)
		if err != nil {
			return nil, err
		}
		return &filter.Literal{Value: geom}, nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &filter.SyntaxError{Message: "invalid literal: " + err.Error()}
	}
	switch val := v.(type) {
	case nil, bool, string:
		return &filter.Literal{Value: val}, nil
	case float64:
		if val == float64(int64(val)) {
			return &filter.Literal{Value: int64(val)}, nil
		}
		return &filter.Literal{Value: val}, nil
	}
	return nil, &filter.SyntaxError{Message: "unsupported literal shape"}
}

// parseJSONGeometry decodes a GeoJSON geometry object or a {"bbox": [...]}
// shorthand. GeoJSON is always longitude-first; SRID comes from the
// caller default (GeoJSON itself is WGS84 unless the catalog says
// otherwise).
func parseJSONGeometry(data json.RawMessage, opts *Options) (*geometry.Geometry, error) {
	var bboxProbe struct {
		BBox []float64 `json:"bbox"`
	}
	if err := json.Unmarshal(data, &bboxProbe); err == nil && len(bboxProbe.BBox) == 4 {
		return geometry.NewBBox(bboxProbe.BBox[0], bboxProbe.BBox[1], bboxProbe.BBox[2], bboxProbe.BBox[3], opts.DefaultSRID)
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, &filter.SyntaxError{Message: "invalid geometry literal: " + err.Error()}
	}
	geom := g.Geometry()
	if err := geometry.Validate(geom); err != nil {
		return nil, &filter.SyntaxError{Message: "invalid geometry literal: " + err.Error()}
	}
	return geometry.New(geom, opts.DefaultSRID), nil
}
