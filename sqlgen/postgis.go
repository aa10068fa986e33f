package sqlgen

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/honua-io/Honua.Server-sub000/geometry"
)

// PostGIS renders SQL for PostgreSQL with the PostGIS extension.
type PostGIS struct{}

func (PostGIS) Name() string { return "postgis" }

func (PostGIS) Quote(ident string) string { return doubleQuote(ident) }

func (PostGIS) Placeholder() sq.PlaceholderFormat { return sq.Dollar }

func (PostGIS) LikeEscape() string { return ` ESCAPE '\'` }

func (PostGIS) ILike(target, pattern string) string {
	return target + " ILIKE " + pattern
}

// literal renders the parameterized test geometry, reprojecting into the
// stored SRID when the literal was declared in a different one.
func (PostGIS) literal(test *geometry.Geometry, srid int, bind func(any) string) string {
	litSRID := test.SRID
	if litSRID == 0 {
		litSRID = srid
	}
	sql := fmt.Sprintf("ST_GeomFromText(%s, %d)", bind(test.WKT()), litSRID)
	if srid != 0 && litSRID != srid {
		sql = fmt.Sprintf("ST_Transform(%s, %d)", sql, srid)
	}
	return sql
}

var postgisRelations = map[filter.SpatialPredicate]string{
	filter.SpatialIntersects: "ST_Intersects",
	filter.SpatialContains:   "ST_Contains",
	filter.SpatialWithin:     "ST_Within",
	filter.SpatialTouches:    "ST_Touches",
	filter.SpatialCrosses:    "ST_Crosses",
	filter.SpatialOverlaps:   "ST_Overlaps",
	filter.SpatialDisjoint:   "ST_Disjoint",
	filter.SpatialEquals:     "ST_Equals",
}

func (d PostGIS) Spatial(pred filter.SpatialPredicate, geomSQL string, srid int, test *geometry.Geometry, distance float64, bind func(any) string) (string, error) {
	switch pred {
	case filter.SpatialBBOX:
		return geomSQL + " && " + d.envelope(test, srid), nil

	case filter.SpatialDWithin, filter.SpatialBeyond:
		lit := d.literal(test, srid, bind)
		var sql string
		if geometry.IsGeographic(srid) {
			sql = fmt.Sprintf("ST_DWithin((%s)::geography, (%s)::geography, %s)", geomSQL, lit, bind(distance))
		} else {
			sql = fmt.Sprintf("ST_DWithin(%s, %s, %s)", geomSQL, lit, bind(distance))
		}
		if pred == filter.SpatialBeyond {
			sql = "NOT " + sql
		}
		return sql, nil
	}

	fn, ok := postgisRelations[pred]
	if !ok {
		return "", &filter.UnsupportedConstructError{Construct: "spatial predicate " + string(pred)}
	}
	exact := fmt.Sprintf("%s(%s, %s)", fn, geomSQL, d.literal(test, srid, bind))
	if coarseFilterable[pred] && sameSRID(test, srid) {
		return fmt.Sprintf("(%s && %s AND %s)", geomSQL, d.envelope(test, srid), exact), nil
	}
	return exact, nil
}

// envelope renders the literal's bounding box inline. Bounds are numeric
// output of the geometry parser, never raw request text.
func (PostGIS) envelope(test *geometry.Geometry, srid int) string {
	b := test.Bound()
	litSRID := test.SRID
	if litSRID == 0 {
		litSRID = srid
	}
	sql := fmt.Sprintf("ST_MakeEnvelope(%s, %s, %s, %s, %d)",
		f64(b.Min[0]), f64(b.Min[1]), f64(b.Max[0]), f64(b.Max[1]), litSRID)
	if srid != 0 && litSRID != srid {
		sql = fmt.Sprintf("ST_Transform(%s, %d)", sql, srid)
	}
	return sql
}

func (PostGIS) Function(name string, args []string, srid int) (string, error) {
	geographic := geometry.IsGeographic(srid)
	switch name {
	case "area":
		if geographic {
			return fmt.Sprintf("ST_Area((%s)::geography)", args[0]), nil
		}
		return fmt.Sprintf("ST_Area(%s)", args[0]), nil
	case "length":
		if geographic {
			return fmt.Sprintf("ST_Length((%s)::geography)", args[0]), nil
		}
		return fmt.Sprintf("ST_Length(%s)", args[0]), nil
	case "buffer":
		if geographic {
			return fmt.Sprintf("(ST_Buffer((%s)::geography, %s))::geometry", args[0], args[1]), nil
		}
		return fmt.Sprintf("ST_Buffer(%s, %s)", args[0], args[1]), nil
	}
	return "", &filter.UnsupportedConstructError{Construct: "function " + name}
}

// sameSRID reports whether the literal can be compared to the stored
// geometry without reprojection.
func sameSRID(test *geometry.Geometry, srid int) bool {
	return test.SRID == 0 || srid == 0 || test.SRID == srid
}
