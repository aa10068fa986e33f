package sqlgen

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/honua-io/Honua.Server-sub000/geometry"
)

// MySQL renders SQL for MySQL 8 spatial functions. Geographic SRSs in
// MySQL default to latitude-first axis order, so literals carry an
// explicit axis-order option. Geodesic distance uses ST_Distance_Sphere,
// which only accepts point inputs.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (MySQL) Placeholder() sq.PlaceholderFormat { return sq.Question }

func (MySQL) LikeEscape() string { return ` ESCAPE '\\'` }

func (MySQL) ILike(target, pattern string) string {
	return "LOWER(" + target + ") LIKE LOWER(" + pattern + ")"
}

func (MySQL) literal(test *geometry.Geometry, srid int, bind func(any) string) string {
	litSRID := test.SRID
	if litSRID == 0 {
		litSRID = srid
	}
	var sql string
	if geometry.IsGeographic(litSRID) {
		sql = fmt.Sprintf("ST_GeomFromText(%s, %d, 'axis-order=long-lat')", bind(test.WKT()), litSRID)
	} else {
		sql = fmt.Sprintf("ST_GeomFromText(%s, %d)", bind(test.WKT()), litSRID)
	}
	if srid != 0 && litSRID != srid {
		sql = fmt.Sprintf("ST_Transform(%s, %d)", sql, srid)
	}
	return sql
}

var mysqlRelations = map[filter.SpatialPredicate]string{
	filter.SpatialIntersects: "ST_Intersects",
	filter.SpatialContains:   "ST_Contains",
	filter.SpatialWithin:     "ST_Within",
	filter.SpatialTouches:    "ST_Touches",
	filter.SpatialCrosses:    "ST_Crosses",
	filter.SpatialOverlaps:   "ST_Overlaps",
	filter.SpatialDisjoint:   "ST_Disjoint",
	filter.SpatialEquals:     "ST_Equals",
}

func (d MySQL) Spatial(pred filter.SpatialPredicate, geomSQL string, srid int, test *geometry.Geometry, distance float64, bind func(any) string) (string, error) {
	switch pred {
	case filter.SpatialBBOX:
		return fmt.Sprintf("MBRIntersects(%s, %s)", geomSQL, d.envelope(test, srid)), nil

	case filter.SpatialDWithin, filter.SpatialBeyond:
		op := "<="
		if pred == filter.SpatialBeyond {
			op = ">"
		}
		if geometry.IsGeographic(srid) {
			if !test.IsPointLike() {
				return "", &filter.UnsupportedOnDialectError{
					Dialect:   "mysql",
					Construct: "geodesic distance",
					Reason:    "ST_Distance_Sphere only accepts point geometries",
				}
			}
			return fmt.Sprintf("ST_Distance_Sphere(%s, %s) %s %s",
				geomSQL, d.literal(test, srid, bind), op, bind(distance)), nil
		}
		return fmt.Sprintf("ST_Distance(%s, %s) %s %s",
			geomSQL, d.literal(test, srid, bind), op, bind(distance)), nil
	}

	fn, ok := mysqlRelations[pred]
	if !ok {
		return "", &filter.UnsupportedConstructError{Construct: "spatial predicate " + string(pred)}
	}
	exact := fmt.Sprintf("%s(%s, %s)", fn, geomSQL, d.literal(test, srid, bind))
	if coarseFilterable[pred] && sameSRID(test, srid) {
		return fmt.Sprintf("(MBRIntersects(%s, %s) AND %s)", geomSQL, d.envelope(test, srid), exact), nil
	}
	return exact, nil
}

func (MySQL) envelope(test *geometry.Geometry, srid int) string {
	litSRID := test.SRID
	if litSRID == 0 {
		litSRID = srid
	}
	wkt := boundWKT(test.Bound())
	var sql string
	if geometry.IsGeographic(litSRID) {
		sql = fmt.Sprintf("ST_GeomFromText('%s', %d, 'axis-order=long-lat')", wkt, litSRID)
	} else {
		sql = fmt.Sprintf("ST_GeomFromText('%s', %d)", wkt, litSRID)
	}
	if srid != 0 && litSRID != srid {
		sql = fmt.Sprintf("ST_Transform(%s, %d)", sql, srid)
	}
	return sql
}

func (MySQL) Function(name string, args []string, srid int) (string, error) {
	switch name {
	case "area":
		return fmt.Sprintf("ST_Area(%s)", args[0]), nil
	case "length":
		return fmt.Sprintf("ST_Length(%s)", args[0]), nil
	case "buffer":
		if geometry.IsGeographic(srid) {
			return "", &filter.UnsupportedOnDialectError{
				Dialect:   "mysql",
				Construct: "buffer",
				Reason:    "ST_Buffer does not support geographic SRSs",
			}
		}
		return fmt.Sprintf("ST_Buffer(%s, %s)", args[0], args[1]), nil
	}
	return "", &filter.UnsupportedConstructError{Construct: "function " + name}
}
