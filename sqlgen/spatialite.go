package sqlgen

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/honua-io/Honua.Server-sub000/geometry"
)

// SpatiaLite renders SQL for SQLite with the SpatiaLite extension.
// Geodesic distance uses the three-argument ST_Distance with ellipsoidal
// measurement enabled.
type SpatiaLite struct{}

func (SpatiaLite) Name() string { return "spatialite" }

func (SpatiaLite) Quote(ident string) string { return doubleQuote(ident) }

func (SpatiaLite) Placeholder() sq.PlaceholderFormat { return sq.Question }

func (SpatiaLite) LikeEscape() string { return ` ESCAPE '\'` }

func (SpatiaLite) ILike(target, pattern string) string {
	// SQLite LIKE is case-insensitive for ASCII only, so fold both sides
	// explicitly.
	return "LOWER(" + target + ") LIKE LOWER(" + pattern + ")"
}

func (SpatiaLite) literal(test *geometry.Geometry, srid int, bind func(any) string) string {
	litSRID := test.SRID
	if litSRID == 0 {
		litSRID = srid
	}
	sql := fmt.Sprintf("GeomFromText(%s, %d)", bind(test.WKT()), litSRID)
	if srid != 0 && litSRID != srid {
		sql = fmt.Sprintf("ST_Transform(%s, %d)", sql, srid)
	}
	return sql
}

var spatialiteRelations = map[filter.SpatialPredicate]string{
	filter.SpatialIntersects: "ST_Intersects",
	filter.SpatialContains:   "ST_Contains",
	filter.SpatialWithin:     "ST_Within",
	filter.SpatialTouches:    "ST_Touches",
	filter.SpatialCrosses:    "ST_Crosses",
	filter.SpatialOverlaps:   "ST_Overlaps",
	filter.SpatialDisjoint:   "ST_Disjoint",
	filter.SpatialEquals:     "ST_Equals",
}

func (d SpatiaLite) Spatial(pred filter.SpatialPredicate, geomSQL string, srid int, test *geometry.Geometry, distance float64, bind func(any) string) (string, error) {
	switch pred {
	case filter.SpatialBBOX:
		return fmt.Sprintf("MbrIntersects(%s, %s)", geomSQL, d.envelope(test, srid)), nil

	case filter.SpatialDWithin, filter.SpatialBeyond:
		op := "<="
		if pred == filter.SpatialBeyond {
			op = ">"
		}
		lit := d.literal(test, srid, bind)
		if geometry.IsGeographic(srid) {
			return fmt.Sprintf("ST_Distance(%s, %s, 1) %s %s", geomSQL, lit, op, bind(distance)), nil
		}
		return fmt.Sprintf("ST_Distance(%s, %s) %s %s", geomSQL, lit, op, bind(distance)), nil
	}

	fn, ok := spatialiteRelations[pred]
	if !ok {
		return "", &filter.UnsupportedConstructError{Construct: "spatial predicate " + string(pred)}
	}
	exact := fmt.Sprintf("%s(%s, %s)", fn, geomSQL, d.literal(test, srid, bind))
	if coarseFilterable[pred] && sameSRID(test, srid) {
		return fmt.Sprintf("(MbrIntersects(%s, %s) AND %s)", geomSQL, d.envelope(test, srid), exact), nil
	}
	return exact, nil
}

func (SpatiaLite) envelope(test *geometry.Geometry, srid int) string {
	b := test.Bound()
	litSRID := test.SRID
	if litSRID == 0 {
		litSRID = srid
	}
	sql := fmt.Sprintf("BuildMbr(%s, %s, %s, %s, %d)",
		f64(b.Min[0]), f64(b.Min[1]), f64(b.Max[0]), f64(b.Max[1]), litSRID)
	if srid != 0 && litSRID != srid {
		sql = fmt.Sprintf("ST_Transform(%s, %d)", sql, srid)
	}
	return sql
}

func (SpatiaLite) Function(name string, args []string, srid int) (string, error) {
	geographic := geometry.IsGeographic(srid)
	switch name {
	case "area":
		if geographic {
			return fmt.Sprintf("ST_Area(%s, 1)", args[0]), nil
		}
		return fmt.Sprintf("ST_Area(%s)", args[0]), nil
	case "length":
		if geographic {
			return fmt.Sprintf("ST_Length(%s, 1)", args[0]), nil
		}
		return fmt.Sprintf("ST_Length(%s)", args[0]), nil
	case "buffer":
		return fmt.Sprintf("ST_Buffer(%s, %s)", args[0], args[1]), nil
	}
	return "", &filter.UnsupportedConstructError{Construct: "function " + name}
}
