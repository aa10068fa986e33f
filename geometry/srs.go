package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSRID extracts a numeric SRID from an SRS identifier. Accepted
// forms, matching what clients actually send:
//
//	urn:ogc:def:crs:EPSG::4326
//	urn:x-ogc:def:crs:EPSG:6.9:4326
//	http://www.opengis.net/def/crs/EPSG/0/4326
//	http://www.opengis.net/gml/srs/epsg.xml#4326
//	EPSG:4326
//	4326
//
// The CRS84 URI names plain lon/lat WGS84 and maps to 4326.
func ParseSRID(srsName string) (int, error) {
	s := strings.TrimSpace(srsName)
	if s == "" {
		return 0, fmt.Errorf("empty srs name")
	}

	if strings.Contains(s, "CRS84") {
		return 4326, nil
	}

	// Bare numeric code.
	if code, err := strconv.Atoi(s); err == nil {
		return code, nil
	}

	// URL forms carry the code as the last path or fragment segment.
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if i := strings.LastIndexByte(s, '#'); i >= 0 {
			s = s[i+1:]
		} else if i := strings.LastIndexByte(s, '/'); i >= 0 {
			s = s[i+1:]
		}
		code, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid srs url %q", srsName)
		}
		return code, nil
	}

	// URN and AUTHORITY:CODE forms carry the code as the last colon segment.
	parts := strings.Split(s, ":")
	last := parts[len(parts)-1]
	code, err := strconv.Atoi(last)
	if err != nil {
		return 0, fmt.Errorf("invalid srs name %q", srsName)
	}
	return code, nil
}

// LatLonOrder reports whether the given SRS identifier form declares
// latitude-before-longitude axis order. Only the OGC URN form for
// geographic EPSG codes does; every other accepted form, and any form
// lacking an explicit CRS, is treated as longitude-first. That default is
// an assumption, not a standard guarantee, and is pinned by tests.
func LatLonOrder(srsName string, srid int) bool {
	if !IsGeographic(srid) {
		return false
	}
	s := strings.ToLower(strings.TrimSpace(srsName))
	if strings.Contains(s, "crs84") {
		return false
	}
	return strings.HasPrefix(s, "urn:") && strings.Contains(s, ":epsg:")
}

// IsGeographic reports whether the SRID names a degrees-based geographic
// CRS. The set is the geographic systems the catalog layer actually
// serves; projected systems fall through to false.
func IsGeographic(srid int) bool {
	switch srid {
	case 4326, 4269, 4267, 4258, 4283, 4617, 4618, 4759:
		return true
	}
	return false
}
