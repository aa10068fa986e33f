package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/encoding/wkt"
)

// Geometry is the canonical geometry value produced by every grammar
// front-end: an orb geometry together with its spatial reference
// identifier. SRID 0 means "not declared"; resolution against the
// caller-supplied default happens during parsing, and an unresolved SRID
// is an error at translation time.
type Geometry struct {
	Geom orb.Geometry
	SRID int
}

// New creates a geometry value.
func New(geom orb.Geometry, srid int) *Geometry {
	return &Geometry{Geom: geom, SRID: srid}
}

// WKT returns the well-known-text form, the only literal shape dialect
// adapters bind as a parameter.
func (g *Geometry) WKT() string {
	if b, ok := g.Geom.(orb.Bound); ok {
		return wkt.MarshalString(b.ToPolygon())
	}
	return wkt.MarshalString(g.Geom)
}

// Bound returns the geometry's bounding box, used by adapters to emit the
// coarse index-accelerated pre-filter.
func (g *Geometry) Bound() orb.Bound {
	return g.Geom.Bound()
}

// EncodeWKB converts the geometry to WKB bytes.
func EncodeWKB(g *Geometry) ([]byte, error) {
	if g == nil || g.Geom == nil {
		return nil, fmt.Errorf("cannot encode nil geometry")
	}
	if b, ok := g.Geom.(orb.Bound); ok {
		return wkb.Marshal(b.ToPolygon())
	}
	return wkb.Marshal(g.Geom)
}

// DecodeWKB converts WKB bytes to a geometry value with the given SRID.
func DecodeWKB(data []byte, srid int) (*Geometry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot decode empty WKB data")
	}
	geom, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &Geometry{Geom: geom, SRID: srid}, nil
}

// Validate checks structural validity: ring closure and minimum point
// counts per geometry type.
func Validate(geom orb.Geometry) error {
	if geom == nil {
		return fmt.Errorf("geometry is nil")
	}

	switch g := geom.(type) {
	case orb.Point:
		return nil

	case orb.MultiPoint:
		if len(g) == 0 {
			return fmt.Errorf("multipoint is empty")
		}
		return nil

	case orb.LineString:
		if len(g) < 2 {
			return fmt.Errorf("linestring must have at least 2 points, has %d", len(g))
		}
		return nil

	case orb.MultiLineString:
		if len(g) == 0 {
			return fmt.Errorf("multilinestring is empty")
		}
		for i, ls := range g {
			if len(ls) < 2 {
				return fmt.Errorf("multilinestring[%d] must have at least 2 points, has %d", i, len(ls))
			}
		}
		return nil

	case orb.Polygon:
		if len(g) == 0 {
			return fmt.Errorf("polygon has no rings")
		}
		for i, ring := range g {
			if len(ring) < 4 {
				return fmt.Errorf("polygon ring[%d] must have at least 4 points, has %d", i, len(ring))
			}
			if !ring[0].Equal(ring[len(ring)-1]) {
				return fmt.Errorf("polygon ring[%d] is not closed", i)
			}
		}
		return nil

	case orb.MultiPolygon:
		if len(g) == 0 {
			return fmt.Errorf("multipolygon is empty")
		}
		for i, poly := range g {
			if err := Validate(poly); err != nil {
				return fmt.Errorf("multipolygon[%d]: %w", i, err)
			}
		}
		return nil

	case orb.Collection:
		if len(g) == 0 {
			return fmt.Errorf("geometry collection is empty")
		}
		for i, child := range g {
			if err := Validate(child); err != nil {
				return fmt.Errorf("collection[%d]: %w", i, err)
			}
		}
		return nil

	case orb.Bound:
		if g.Min[0] > g.Max[0] || g.Min[1] > g.Max[1] {
			return fmt.Errorf("bound min exceeds max")
		}
		return nil

	default:
		return fmt.Errorf("unknown geometry type: %T", geom)
	}
}

// TypeName returns the WKT type name for a geometry.
func TypeName(geom orb.Geometry) string {
	switch geom.(type) {
	case orb.Point:
		return "Point"
	case orb.MultiPoint:
		return "MultiPoint"
	case orb.LineString:
		return "LineString"
	case orb.MultiLineString:
		return "MultiLineString"
	case orb.Polygon:
		return "Polygon"
	case orb.MultiPolygon:
		return "MultiPolygon"
	case orb.Collection:
		return "GeometryCollection"
	case orb.Bound:
		return "Bound"
	default:
		return "Unknown"
	}
}

// IsPointLike reports whether the geometry is a point or multipoint.
// Some backends can only compute geodesic distance between point inputs.
func (g *Geometry) IsPointLike() bool {
	switch g.Geom.(type) {
	case orb.Point, orb.MultiPoint:
		return true
	}
	return false
}
