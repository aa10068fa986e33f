package geometry

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// ParseWKT decodes a well-known-text geometry literal as used by the CQL
// and OData grammars. An "SRID=nnnn;" prefix (EWKT style, what OData
// geography literals carry) overrides defaultSRID.
func ParseWKT(text string, defaultSRID int) (*Geometry, error) {
	s := strings.TrimSpace(text)
	srid := defaultSRID
	if rest, ok := strings.CutPrefix(s, "SRID="); ok {
		semi := strings.IndexByte(rest, ';')
		if semi < 0 {
			return nil, fmt.Errorf("wkt: malformed SRID prefix in %q", text)
		}
		code, err := ParseSRID(rest[:semi])
		if err != nil {
			return nil, fmt.Errorf("wkt: %w", err)
		}
		srid = code
		s = strings.TrimSpace(rest[semi+1:])
	}
	geom, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("wkt: %w", err)
	}
	if err := Validate(geom); err != nil {
		return nil, fmt.Errorf("wkt: %w", err)
	}
	return &Geometry{Geom: geom, SRID: srid}, nil
}

// NewBBox builds the Envelope/BBOX shorthand geometry from four ordered
// bounds (minx, miny, maxx, maxy).
func NewBBox(minx, miny, maxx, maxy float64, srid int) (*Geometry, error) {
	if minx > maxx || miny > maxy {
		return nil, fmt.Errorf("bbox: min bound exceeds max bound")
	}
	b := orb.Bound{Min: orb.Point{minx, miny}, Max: orb.Point{maxx, maxy}}
	return &Geometry{Geom: b, SRID: srid}, nil
}
