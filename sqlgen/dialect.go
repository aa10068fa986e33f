package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/honua-io/Honua.Server-sub000/geometry"
)

// Dialect renders the backend-specific parts of a translated filter:
// identifier quoting, placeholder style, spatial predicates and geometry
// functions. Everything structural (boolean shape, parameter order,
// pattern rewriting) is dialect-independent and lives in the translator.
type Dialect interface {
	Name() string

	// Quote quotes a column identifier.
	Quote(ident string) string

	// Placeholder is the parameter placeholder format. The translator
	// renders "?" placeholders and rewrites them through this format as
	// the final step.
	Placeholder() sq.PlaceholderFormat

	// LikeEscape is the ESCAPE clause appended to LIKE predicates. The
	// translator always rewrites patterns to use backslash escaping.
	LikeEscape() string

	// ILike renders a case-insensitive pattern match. pattern is an
	// already-bound placeholder.
	ILike(target, pattern string) string

	// Spatial renders a spatial predicate. geomSQL is the rendered
	// geometry-valued operand with stored SRID srid; test is the literal
	// to compare against; distance is in meters and set only for the
	// distance predicates. bind appends a parameter and returns its
	// placeholder.
	Spatial(pred filter.SpatialPredicate, geomSQL string, srid int, test *geometry.Geometry, distance float64, bind func(any) string) (string, error)

	// Function renders a registered geometry function call over rendered
	// argument fragments. srid is the stored SRID of the geometry the
	// call ultimately operates on.
	Function(name string, args []string, srid int) (string, error)
}

var dialects = map[string]Dialect{
	"postgis":    PostGIS{},
	"sqlserver":  SQLServer{},
	"mysql":      MySQL{},
	"spatialite": SpatiaLite{},
}

// Lookup resolves a dialect by name, case-insensitively.
func Lookup(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
	return d, nil
}

// DialectNames lists the registered dialects in a stable order.
func DialectNames() []string {
	return []string{"postgis", "sqlserver", "mysql", "spatialite"}
}

// coarseFilterable lists the predicates that get a bounding-box
// pre-filter ahead of the exact relation test. Disjoint is excluded: its
// matches are exactly the rows a bbox test would discard.
var coarseFilterable = map[filter.SpatialPredicate]bool{
	filter.SpatialIntersects: true,
	filter.SpatialContains:   true,
	filter.SpatialWithin:     true,
	filter.SpatialTouches:    true,
	filter.SpatialCrosses:    true,
	filter.SpatialOverlaps:   true,
	filter.SpatialEquals:     true,
}

func f64(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// doubleQuote quotes an identifier with standard SQL double quotes.
func doubleQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
