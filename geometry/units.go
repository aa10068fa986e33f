package geometry

import (
	"fmt"
	"strings"
)

// Meters-per-unit factors for the distance units filters may carry.
// Conversion to meters happens exactly once, in the parsing layer, so
// dialect adapters only ever see meters.
const (
	metersPerKilometer   = 1000.0
	metersPerMile        = 1609.344
	metersPerFoot        = 0.3048
	metersPerYard        = 0.9144
	metersPerNauticalMi  = 1852.0
	metersPerUSSurveyFt  = 1200.0 / 3937.0
)

// unitFactors maps normalized unit spellings to meters-per-unit. Keys
// cover the OGC uom URNs, symbols and the spellings real WFS/CQL clients
// send.
var unitFactors = map[string]float64{
	"m":          1,
	"meter":      1,
	"meters":     1,
	"metre":      1,
	"metres":     1,
	"km":         metersPerKilometer,
	"kilometer":  metersPerKilometer,
	"kilometers": metersPerKilometer,
	"kilometre":  metersPerKilometer,
	"kilometres": metersPerKilometer,
	"mi":         metersPerMile,
	"mile":       metersPerMile,
	"miles":      metersPerMile,
	"ft":         metersPerFoot,
	"foot":       metersPerFoot,
	"feet":       metersPerFoot,
	"us-ft":      metersPerUSSurveyFt,
	"yd":         metersPerYard,
	"yard":       metersPerYard,
	"yards":      metersPerYard,
	"nm":         metersPerNauticalMi,
	"nmi":        metersPerNauticalMi,
	"nautical mile":  metersPerNauticalMi,
	"nautical miles": metersPerNauticalMi,

	// EPSG uom codes by URN: 9001 metre, 9036 km, 9093 statute mile,
	// 9002 foot, 9096 yard, 9030 nautical mile.
	"urn:ogc:def:uom:epsg::9001": 1,
	"urn:ogc:def:uom:epsg::9036": metersPerKilometer,
	"urn:ogc:def:uom:epsg::9093": metersPerMile,
	"urn:ogc:def:uom:epsg::9002": metersPerFoot,
	"urn:ogc:def:uom:epsg::9096": metersPerYard,
	"urn:ogc:def:uom:epsg::9030": metersPerNauticalMi,
}

// ToMeters converts a distance in the named unit to meters. An empty unit
// means meters. Unknown units and negative distances are errors.
func ToMeters(distance float64, unit string) (float64, error) {
	if distance < 0 {
		return 0, fmt.Errorf("distance must be non-negative, got %g", distance)
	}
	u := strings.ToLower(strings.TrimSpace(unit))
	if u == "" {
		return distance, nil
	}
	factor, ok := unitFactors[u]
	if !ok {
		return 0, fmt.Errorf("unknown distance unit %q", unit)
	}
	return distance * factor, nil
}

// KnownUnit reports whether unit names a supported distance unit.
func KnownUnit(unit string) bool {
	_, ok := unitFactors[strings.ToLower(strings.TrimSpace(unit))]
	return ok || strings.TrimSpace(unit) == ""
}

// unitSymbols maps conversion factors back to one canonical symbol, so
// every spelling of a unit compares equal in allow-list checks.
var unitSymbols = map[float64]string{
	1:                   "m",
	metersPerKilometer:  "km",
	metersPerMile:       "mi",
	metersPerFoot:       "ft",
	metersPerUSSurveyFt: "us-ft",
	metersPerYard:       "yd",
	metersPerNauticalMi: "nm",
}

// CanonicalUnit returns the canonical symbol for any supported spelling
// of a distance unit. The empty string means meters.
func CanonicalUnit(unit string) (string, bool) {
	u := strings.ToLower(strings.TrimSpace(unit))
	if u == "" {
		return "m", true
	}
	factor, ok := unitFactors[u]
	if !ok {
		return "", false
	}
	return unitSymbols[factor], true
}

// UnitAllowed reports whether unit is covered by the configured
// allow-list. An empty list allows every supported unit; unknown units
// are never allowed. List entries may use any supported spelling.
func UnitAllowed(allowed []string, unit string) bool {
	canonical, ok := CanonicalUnit(unit)
	if !ok {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if c, ok := CanonicalUnit(a); ok && c == canonical {
			return true
		}
	}
	return false
}
