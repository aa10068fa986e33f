package sqlgen

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/honua-io/Honua.Server-sub000/geometry"
	"github.com/paulmach/orb"
)

// SQLServer renders SQL for Microsoft SQL Server spatial types. Geometry
// predicates use the instance method syntax and compare against 1;
// geographic columns use the geography type for geodesic semantics.
type SQLServer struct{}

func (SQLServer) Name() string { return "sqlserver" }

func (SQLServer) Quote(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

func (SQLServer) Placeholder() sq.PlaceholderFormat { return sq.AtP }

func (SQLServer) LikeEscape() string { return ` ESCAPE '\'` }

func (SQLServer) ILike(target, pattern string) string {
	return "LOWER(" + target + ") LIKE LOWER(" + pattern + ")"
}

func (SQLServer) literal(test *geometry.Geometry, srid int, bind func(any) string) (string, error) {
	litSRID := test.SRID
	if litSRID == 0 {
		litSRID = srid
	}
	if srid != 0 && litSRID != srid {
		return "", &filter.UnsupportedOnDialectError{
			Dialect:   "sqlserver",
			Construct: "geometry reprojection",
			Reason:    fmt.Sprintf("no transform from SRID %d to %d", litSRID, srid),
		}
	}
	spatialType := "geometry"
	if geometry.IsGeographic(litSRID) {
		spatialType = "geography"
	}
	return fmt.Sprintf("%s::STGeomFromText(%s, %d)", spatialType, bind(test.WKT()), litSRID), nil
}

var sqlserverRelations = map[filter.SpatialPredicate]string{
	filter.SpatialIntersects: "STIntersects",
	filter.SpatialContains:   "STContains",
	filter.SpatialWithin:     "STWithin",
	filter.SpatialTouches:    "STTouches",
	filter.SpatialCrosses:    "STCrosses",
	filter.SpatialOverlaps:   "STOverlaps",
	filter.SpatialDisjoint:   "STDisjoint",
	filter.SpatialEquals:     "STEquals",
}

func (d SQLServer) Spatial(pred filter.SpatialPredicate, geomSQL string, srid int, test *geometry.Geometry, distance float64, bind func(any) string) (string, error) {
	switch pred {
	case filter.SpatialBBOX:
		env, err := d.envelope(test, srid)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s.Filter(%s) = 1", geomSQL, env), nil

	case filter.SpatialDWithin, filter.SpatialBeyond:
		lit, err := d.literal(test, srid, bind)
		if err != nil {
			return "", err
		}
		op := "<="
		if pred == filter.SpatialBeyond {
			op = ">"
		}
		return fmt.Sprintf("%s.STDistance(%s) %s %s", geomSQL, lit, op, bind(distance)), nil
	}

	method, ok := sqlserverRelations[pred]
	if !ok {
		return "", &filter.UnsupportedConstructError{Construct: "spatial predicate " + string(pred)}
	}
	lit, err := d.literal(test, srid, bind)
	if err != nil {
		return "", err
	}
	exact := fmt.Sprintf("%s.%s(%s) = 1", geomSQL, method, lit)
	if coarseFilterable[pred] && sameSRID(test, srid) {
		env, err := d.envelope(test, srid)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s.Filter(%s) = 1 AND %s)", geomSQL, env, exact), nil
	}
	return exact, nil
}

// envelope renders the literal's bounding box as an inline WKT polygon.
// The text is generated from parsed numeric bounds, never request text.
func (SQLServer) envelope(test *geometry.Geometry, srid int) (string, error) {
	litSRID := test.SRID
	if litSRID == 0 {
		litSRID = srid
	}
	if srid != 0 && litSRID != srid {
		return "", &filter.UnsupportedOnDialectError{
			Dialect:   "sqlserver",
			Construct: "geometry reprojection",
			Reason:    fmt.Sprintf("no transform from SRID %d to %d", litSRID, srid),
		}
	}
	spatialType := "geometry"
	if geometry.IsGeographic(litSRID) {
		spatialType = "geography"
	}
	wkt := boundWKT(test.Bound())
	return fmt.Sprintf("%s::STGeomFromText('%s', %d)", spatialType, wkt, litSRID), nil
}

func (SQLServer) Function(name string, args []string, srid int) (string, error) {
	switch name {
	case "area":
		return fmt.Sprintf("%s.STArea()", args[0]), nil
	case "length":
		return fmt.Sprintf("%s.STLength()", args[0]), nil
	case "buffer":
		return fmt.Sprintf("%s.STBuffer(%s)", args[0], args[1]), nil
	}
	return "", &filter.UnsupportedConstructError{Construct: "function " + name}
}

// boundWKT writes a bound as a closed counter-clockwise polygon.
func boundWKT(b orb.Bound) string {
	minx, miny := f64(b.Min[0]), f64(b.Min[1])
	maxx, maxy := f64(b.Max[0]), f64(b.Max[1])
	return fmt.Sprintf("POLYGON((%s %s, %s %s, %s %s, %s %s, %s %s))",
		minx, miny, maxx, miny, maxx, maxy, minx, maxy, minx, miny)
}
