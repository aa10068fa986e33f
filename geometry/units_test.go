package geometry

import (
	"math"
	"testing"
)

func TestToMeters(t *testing.T) {
	tests := []struct {
		distance float64
		unit     string
		expected float64
	}{
		{5, "", 5},
		{5, "m", 5},
		{5, "meters", 5},
		{5, "km", 5000},
		{5, "KM", 5000},
		{2, "kilometers", 2000},
		{1, "mi", 1609.344},
		{1, "ft", 0.3048},
		{1, "yd", 0.9144},
		{2, "nm", 3704},
		{3, "urn:ogc:def:uom:EPSG::9001", 3},
		{3, "urn:ogc:def:uom:EPSG::9036", 3000},
	}
	for _, tt := range tests {
		got, err := ToMeters(tt.distance, tt.unit)
		if err != nil {
			t.Errorf("ToMeters(%g, %q) failed: %v", tt.distance, tt.unit, err)
			continue
		}
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("ToMeters(%g, %q) = %g, expected %g", tt.distance, tt.unit, got, tt.expected)
		}
	}
}

func TestToMetersRejects(t *testing.T) {
	if _, err := ToMeters(-1, "m"); err == nil {
		t.Error("negative distance should fail")
	}
	if _, err := ToMeters(1, "furlongs"); err == nil {
		t.Error("unknown unit should fail")
	}
}

func TestCanonicalUnit(t *testing.T) {
	tests := []struct {
		unit     string
		expected string
	}{
		{"", "m"},
		{"metres", "m"},
		{"urn:ogc:def:uom:EPSG::9001", "m"},
		{"Kilometers", "km"},
		{"mile", "mi"},
		{"nautical miles", "nm"},
	}
	for _, tt := range tests {
		got, ok := CanonicalUnit(tt.unit)
		if !ok || got != tt.expected {
			t.Errorf("CanonicalUnit(%q) = %q, %v; expected %q", tt.unit, got, ok, tt.expected)
		}
	}
	if _, ok := CanonicalUnit("furlongs"); ok {
		t.Error("unknown unit must not canonicalize")
	}
}

func TestUnitAllowed(t *testing.T) {
	allowed := []string{"m", "kilometers"}

	if !UnitAllowed(nil, "mi") {
		t.Error("empty allow-list admits every supported unit")
	}
	if UnitAllowed(nil, "furlongs") {
		t.Error("unknown units are never allowed")
	}
	if !UnitAllowed(allowed, "km") {
		t.Error("any spelling of an allowed unit passes")
	}
	if !UnitAllowed(allowed, "") {
		t.Error("empty unit means meters")
	}
	if UnitAllowed(allowed, "mi") {
		t.Error("unit outside the allow-list must be rejected")
	}
}

func TestKilometersEqualMeters(t *testing.T) {
	km, err := ToMeters(5, "km")
	if err != nil {
		t.Fatal(err)
	}
	m, err := ToMeters(5000, "m")
	if err != nil {
		t.Fatal(err)
	}
	if km != m {
		t.Errorf("5 km = %g but 5000 m = %g", km, m)
	}
}
