package fes

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/honua-io/Honua.Server-sub000/geometry"
)

const (
	// DefaultMaxDocumentSize bounds filter document size before any
	// parsing begins.
	DefaultMaxDocumentSize = 1 << 20 // 1 MiB

	// DefaultMaxDepth bounds element nesting depth.
	DefaultMaxDepth = 48
)

// Options carries parse limits and catalog hints.
type Options struct {
	// DefaultSRID is assumed for GML geometries lacking an srsName.
	DefaultSRID int

	// MaxDocumentSize overrides DefaultMaxDocumentSize when positive.
	MaxDocumentSize int

	// MaxDepth overrides DefaultMaxDepth when positive.
	MaxDepth int

	// Units restricts the uom values a Distance element may carry. Empty
	// allows every supported unit.
	Units []string
}

// Parse parses an OGC Filter Encoding 2.0 XML document into the shared
// expression model. The document is size- and depth-checked, and any
// DOCTYPE or internal subset is rejected, before expression parsing
// starts. Embedded GML geometries are delegated to the geometry package.
func Parse(data []byte, opts *Options) (filter.Expression, error) {
	if opts == nil {
		opts = &Options{}
	}
	if err := precheck(data, opts); err != nil {
		return nil, err
	}

	var root node
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, &filter.SyntaxError{Message: "invalid XML: " + err.Error()}
	}

	// A fes:Filter wrapper holds exactly one operator child; a bare
	// operator element is accepted too.
	target := root
	if root.XMLName.Local == "Filter" {
		if len(root.Nodes) != 1 {
			return nil, &filter.SyntaxError{Message: "Filter must contain exactly one operator"}
		}
		target = root.Nodes[0]
	}
	return parseOperator(target, opts)
}

// node is the generic parsed element shape: attributes, text content,
// parsed children and the raw inner XML (kept for GML delegation).
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   []byte     `xml:",innerxml"`
	Nodes   []node     `xml:",any"`
	Text    string     `xml:",chardata"`
}

func (n node) attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// precheck enforces document limits and rejects DOCTYPE declarations and
// internal subsets before any tree is built.
func precheck(data []byte, opts *Options) error {
	maxSize := opts.MaxDocumentSize
	if maxSize <= 0 {
		maxSize = DefaultMaxDocumentSize
	}
	if len(data) > maxSize {
		return &filter.SyntaxError{Message: fmt.Sprintf("filter document exceeds %d bytes", maxSize)}
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &filter.SyntaxError{Message: "invalid XML: " + err.Error()}
		}
		switch tok.(type) {
		case xml.Directive:
			return &filter.SyntaxError{Message: "DOCTYPE and entity declarations are not allowed"}
		case xml.StartElement:
			depth++
			if depth > maxDepth {
				return &filter.SyntaxError{Message: fmt.Sprintf("element nesting exceeds depth %d", maxDepth)}
			}
		case xml.EndElement:
			depth--
		}
	}
}

var comparisonElements = map[string]filter.CompareOp{
	"PropertyIsEqualTo":              filter.OpEqual,
	"PropertyIsNotEqualTo":           filter.OpNotEqual,
	"PropertyIsLessThan":             filter.OpLessThan,
	"PropertyIsLessThanOrEqualTo":    filter.OpLessOrEqual,
	"PropertyIsGreaterThan":          filter.OpGreaterThan,
	"PropertyIsGreaterThanOrEqualTo": filter.OpGreaterOrEqual,
}

var spatialElements = map[string]filter.SpatialPredicate{
	"BBOX":       filter.SpatialBBOX,
	"Intersects": filter.SpatialIntersects,
	"Contains":   filter.SpatialContains,
	"Within":     filter.SpatialWithin,
	"Touches":    filter.SpatialTouches,
	"Crosses":    filter.SpatialCrosses,
	"Overlaps":   filter.SpatialOverlaps,
	"Disjoint":   filter.SpatialDisjoint,
	"Equals":     filter.SpatialEquals,
	"DWithin":    filter.SpatialDWithin,
	"Beyond":     filter.SpatialBeyond,
}

func parseOperator(n node, opts *Options) (filter.Expression, error) {
	name := n.XMLName.Local

	if op, ok := comparisonElements[name]; ok {
		return parseComparison(n, op, opts)
	}
	if pred, ok := spatialElements[name]; ok {
		return parseSpatial(n, pred, opts)
	}

	switch name {
	case "And", "Or":
		if len(n.Nodes) < 2 {
			return nil, &filter.MissingArgumentError{Construct: name, Argument: "operands"}
		}
		operands := make([]filter.Expression, 0, len(n.Nodes))
		for i, child := range n.Nodes {
			expr, err := parseOperator(child, opts)
			if err != nil {
				return nil, fmt.Errorf("%s operand %d: %w", name, i, err)
			}
			operands = append(operands, expr)
		}
		op := filter.OpAnd
		if name == "Or" {
			op = filter.OpOr
		}
		return &filter.Logical{Op: op, Operands: operands}, nil

	case "Not":
		if len(n.Nodes) != 1 {
			return nil, &filter.MissingArgumentError{Construct: "Not", Argument: "operand"}
		}
		operand, err := parseOperator(n.Nodes[0], opts)
		if err != nil {
			return nil, err
		}
		return &filter.Logical{Op: filter.OpNot, Operands: []filter.Expression{operand}}, nil

	case "PropertyIsLike":
		return parseLike(n, opts)

	case "PropertyIsNull":
		if len(n.Nodes) != 1 {
			return nil, &filter.MissingArgumentError{Construct: "PropertyIsNull", Argument: "expression"}
		}
		target, err := parseOperand(n.Nodes[0], opts)
		if err != nil {
			return nil, err
		}
		return &filter.IsNull{Target: target}, nil

	case "PropertyIsBetween":
		return parseBetween(n, opts)
	}
	return nil, &filter.UnsupportedConstructError{Construct: "element " + name}
}

func parseComparison(n node, op filter.CompareOp, opts *Options) (filter.Expression, error) {
	if len(n.Nodes) != 2 {
		return nil, &filter.MissingArgumentError{Construct: n.XMLName.Local, Argument: "two operands"}
	}
	left, err := parseOperand(n.Nodes[0], opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.XMLName.Local, err)
	}
	right, err := parseOperand(n.Nodes[1], opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.XMLName.Local, err)
	}
	return &filter.Comparison{Op: op, Left: left, Right: right}, nil
}

func parseLike(n node, opts *Options) (filter.Expression, error) {
	if len(n.Nodes) != 2 {
		return nil, &filter.MissingArgumentError{Construct: "PropertyIsLike", Argument: "expression and pattern"}
	}
	target, err := parseOperand(n.Nodes[0], opts)
	if err != nil {
		return nil, err
	}
	if n.Nodes[1].XMLName.Local != "Literal" {
		return nil, &filter.SyntaxError{Message: "PropertyIsLike pattern must be a Literal"}
	}

	like := &filter.Like{
		Target:     target,
		Pattern:    n.Nodes[1].Text,
		Wildcard:   '*',
		SingleChar: '?',
		Escape:     '\\',
	}
	if w := n.attr("wildCard"); w != "" {
		like.Wildcard = []rune(w)[0]
	}
	if s := n.attr("singleChar"); s != "" {
		like.SingleChar = []rune(s)[0]
	}
	if e := n.attr("escapeChar"); e != "" {
		like.Escape = []rune(e)[0]
	}
	if mc := n.attr("matchCase"); mc == "false" {
		like.CaseInsensitive = true
	}
	return like, nil
}

func parseBetween(n node, opts *Options) (filter.Expression, error) {
	var input filter.Expression
	var lower, upper filter.Expression
	var err error
	for _, child := range n.Nodes {
		switch child.XMLName.Local {
		case "LowerBoundary":
			if len(child.Nodes) != 1 {
				return nil, &filter.SyntaxError{Message: "LowerBoundary must contain one expression"}
			}
			lower, err = parseOperand(child.Nodes[0], opts)
		case "UpperBoundary":
			if len(child.Nodes) != 1 {
				return nil, &filter.SyntaxError{Message: "UpperBoundary must contain one expression"}
			}
			upper, err = parseOperand(child.Nodes[0], opts)
		default:
			input, err = parseOperand(child, opts)
		}
		if err != nil {
			return nil, fmt.Errorf("PropertyIsBetween: %w", err)
		}
	}
	if input == nil {
		return nil, &filter.MissingArgumentError{Construct: "PropertyIsBetween", Argument: "expression"}
	}
	if lower == nil || upper == nil {
		return nil, &filter.MissingArgumentError{Construct: "PropertyIsBetween", Argument: "boundary"}
	}
	return &filter.Between{Input: input, Lower: lower, Upper: upper}, nil
}

func parseSpatial(n node, pred filter.SpatialPredicate, opts *Options) (filter.Expression, error) {
	var geomOperand filter.Expression
	var test *geometry.Geometry
	var distanceNode *node

	for i := range n.Nodes {
		child := &n.Nodes[i]
		switch child.XMLName.Local {
		case "ValueReference", "PropertyName":
			geomOperand = &filter.Property{Name: strings.TrimSpace(child.Text)}
		case "Function":
			fn, err := parseFunction(*child, opts)
			if err != nil {
				return nil, err
			}
			geomOperand = fn
		case "Distance":
			distanceNode = child
		default:
			g, err := geometry.ParseGML(rawElement(*child), opts.DefaultSRID)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", n.XMLName.Local, err)
			}
			test = g
		}
	}

	if geomOperand == nil {
		return nil, &filter.MissingArgumentError{Construct: string(pred), Argument: "geometry property"}
	}
	if test == nil {
		return nil, &filter.MissingArgumentError{Construct: string(pred), Argument: "geometry literal"}
	}

	spatial := &filter.Spatial{Predicate: pred, Geometry: geomOperand, Test: test}
	if pred.RequiresDistance() {
		if distanceNode == nil {
			return nil, &filter.MissingArgumentError{Construct: string(pred), Argument: "Distance"}
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(distanceNode.Text), 64)
		if err != nil {
			return nil, &filter.SyntaxError{Message: "invalid Distance value"}
		}
		uom := distanceNode.attr("uom")
		if !geometry.UnitAllowed(opts.Units, uom) {
			return nil, &filter.UnsupportedConstructError{Construct: "distance unit " + uom}
		}
		meters, err := geometry.ToMeters(value, uom)
		if err != nil {
			return nil, &filter.UnsupportedConstructError{Construct: "distance unit " + uom}
		}
		spatial.Distance = meters
	} else if distanceNode != nil {
		return nil, &filter.SyntaxError{Message: string(pred) + " does not take a Distance"}
	}
	return spatial, nil
}

func parseFunction(n node, opts *Options) (filter.Expression, error) {
	name := n.attr("name")
	spec, ok := filter.LookupFunction(name)
	if !ok {
		return nil, &filter.UnsupportedConstructError{Construct: "function " + name}
	}
	args := make([]filter.Expression, 0, len(n.Nodes))
	for _, child := range n.Nodes {
		arg, err := parseOperand(child, opts)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", name, err)
		}
		args = append(args, arg)
	}
	if len(args) != spec.Arity {
		return nil, &filter.MissingArgumentError{Construct: spec.Name, Argument: "argument"}
	}
	return &filter.Function{Name: spec.Name, Args: args}, nil
}

// parseOperand parses a comparison operand: property reference, literal
// or nested function.
func parseOperand(n node, opts *Options) (filter.Expression, error) {
	switch n.XMLName.Local {
	case "ValueReference", "PropertyName":
		name := strings.TrimSpace(n.Text)
		if name == "" {
			return nil, &filter.SyntaxError{Message: "empty property reference"}
		}
		return &filter.Property{Name: name}, nil
	case "Literal":
		return &filter.Literal{Value: inferLiteral(strings.TrimSpace(n.Text))}, nil
	case "Function":
		return parseFunction(n, opts)
	}
	return nil, &filter.UnsupportedConstructError{Construct: "operand element " + n.XMLName.Local}
}

// inferLiteral types an XML literal body: bool, integer, float, RFC 3339
// timestamp, then string.
func inferLiteral(text string) any {
	switch text {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t.UTC()
	}
	return text
}

// rawElement rebuilds the raw XML of a parsed element so the geometry
// package can decode it independently. Namespace prefixes inside the
// inner XML are preserved as-is; GML decoding matches on local names.
func rawElement(n node) []byte {
	var b bytes.Buffer
	b.WriteByte('<')
	b.WriteString(n.XMLName.Local)
	for _, a := range n.Attrs {
		fmt.Fprintf(&b, " %s=%q", a.Name.Local, a.Value)
	}
	b.WriteByte('>')
	b.Write(n.Inner)
	b.WriteString("</" + n.XMLName.Local + ">")
	return b.Bytes()
}
