package geometry

import "testing"

func TestParseSRID(t *testing.T) {
	tests := []struct {
		srsName  string
		expected int
	}{
		{"urn:ogc:def:crs:EPSG::4326", 4326},
		{"urn:x-ogc:def:crs:EPSG:6.9:4326", 4326},
		{"http://www.opengis.net/def/crs/EPSG/0/3857", 3857},
		{"http://www.opengis.net/gml/srs/epsg.xml#4269", 4269},
		{"http://www.opengis.net/def/crs/OGC/1.3/CRS84", 4326},
		{"urn:ogc:def:crs:OGC:1.3:CRS84", 4326},
		{"EPSG:27700", 27700},
		{"4326", 4326},
		{" 4326 ", 4326},
	}
	for _, tt := range tests {
		got, err := ParseSRID(tt.srsName)
		if err != nil {
			t.Errorf("ParseSRID(%q) failed: %v", tt.srsName, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseSRID(%q) = %d, expected %d", tt.srsName, got, tt.expected)
		}
	}
}

func TestParseSRIDInvalid(t *testing.T) {
	for _, srsName := range []string{"", "EPSG:abc", "http://example.com/crs/abc", "wgs84"} {
		if _, err := ParseSRID(srsName); err == nil {
			t.Errorf("ParseSRID(%q) should fail", srsName)
		}
	}
}

func TestLatLonOrder(t *testing.T) {
	tests := []struct {
		srsName string
		srid    int
		latLon  bool
	}{
		{"urn:ogc:def:crs:EPSG::4326", 4326, true},
		{"urn:x-ogc:def:crs:EPSG:6.9:4326", 4326, true},
		{"urn:ogc:def:crs:OGC:1.3:CRS84", 4326, false},
		{"EPSG:4326", 4326, false},
		{"4326", 4326, false},
		{"", 4326, false},
		// Projected systems are never swapped, whatever the form.
		{"urn:ogc:def:crs:EPSG::3857", 3857, false},
	}
	for _, tt := range tests {
		if got := LatLonOrder(tt.srsName, tt.srid); got != tt.latLon {
			t.Errorf("LatLonOrder(%q, %d) = %v, expected %v", tt.srsName, tt.srid, got, tt.latLon)
		}
	}
}

func TestIsGeographic(t *testing.T) {
	if !IsGeographic(4326) {
		t.Error("4326 is geographic")
	}
	if IsGeographic(3857) {
		t.Error("3857 is projected")
	}
	if IsGeographic(0) {
		t.Error("unresolved SRID is not geographic")
	}
}
