package geometry

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestParseGMLPoint(t *testing.T) {
	data := []byte(`<gml:Point xmlns:gml="http://www.opengis.net/gml/3.2" srsName="EPSG:4326">
		<gml:pos>-3.7 40.4</gml:pos>
	</gml:Point>`)

	g, err := ParseGML(data, 0)
	if err != nil {
		t.Fatalf("ParseGML failed: %v", err)
	}
	if g.SRID != 4326 {
		t.Errorf("expected SRID 4326, got %d", g.SRID)
	}
	pt, ok := g.Geom.(orb.Point)
	if !ok {
		t.Fatalf("expected Point, got %T", g.Geom)
	}
	if pt[0] != -3.7 || pt[1] != 40.4 {
		t.Errorf("unexpected point %v", pt)
	}
}

func TestParseGMLPointURNSwapsAxes(t *testing.T) {
	// The OGC URN form declares lat-lon order for geographic CRSs.
	data := []byte(`<Point srsName="urn:ogc:def:crs:EPSG::4326"><pos>40.4 -3.7</pos></Point>`)

	g, err := ParseGML(data, 0)
	if err != nil {
		t.Fatalf("ParseGML failed: %v", err)
	}
	pt := g.Geom.(orb.Point)
	if pt[0] != -3.7 || pt[1] != 40.4 {
		t.Errorf("expected lon-lat (-3.7, 40.4), got %v", pt)
	}
}

func TestParseGMLDefaultSRID(t *testing.T) {
	data := []byte(`<Point><pos>1 2</pos></Point>`)
	g, err := ParseGML(data, 4326)
	if err != nil {
		t.Fatalf("ParseGML failed: %v", err)
	}
	if g.SRID != 4326 {
		t.Errorf("expected default SRID 4326, got %d", g.SRID)
	}
}

func TestParseGMLLineString(t *testing.T) {
	data := []byte(`<LineString srsName="EPSG:3857">
		<posList>0 0 100 0 100 100</posList>
	</LineString>`)

	g, err := ParseGML(data, 0)
	if err != nil {
		t.Fatalf("ParseGML failed: %v", err)
	}
	ls, ok := g.Geom.(orb.LineString)
	if !ok {
		t.Fatalf("expected LineString, got %T", g.Geom)
	}
	if len(ls) != 3 {
		t.Errorf("expected 3 points, got %d", len(ls))
	}
}

func TestParseGMLPolygon(t *testing.T) {
	data := []byte(`<gml:Polygon xmlns:gml="http://www.opengis.net/gml/3.2" srsName="EPSG:4326">
		<gml:exterior>
			<gml:LinearRing>
				<gml:posList>-10 40 5 40 5 50 -10 50 -10 40</gml:posList>
			</gml:LinearRing>
		</gml:exterior>
	</gml:Polygon>`)

	g, err := ParseGML(data, 0)
	if err != nil {
		t.Fatalf("ParseGML failed: %v", err)
	}
	poly, ok := g.Geom.(orb.Polygon)
	if !ok {
		t.Fatalf("expected Polygon, got %T", g.Geom)
	}
	if len(poly) != 1 || len(poly[0]) != 5 {
		t.Errorf("unexpected polygon shape %v", poly)
	}
}

func TestParseGMLPolygonGML2Coordinates(t *testing.T) {
	data := []byte(`<Polygon srsName="EPSG:4326">
		<outerBoundaryIs>
			<LinearRing>
				<coordinates>0,0 1,0 1,1 0,1 0,0</coordinates>
			</LinearRing>
		</outerBoundaryIs>
	</Polygon>`)

	g, err := ParseGML(data, 0)
	if err != nil {
		t.Fatalf("ParseGML failed: %v", err)
	}
	poly := g.Geom.(orb.Polygon)
	if len(poly[0]) != 5 {
		t.Errorf("expected 5 ring points, got %d", len(poly[0]))
	}
}

func TestParseGMLEnvelope(t *testing.T) {
	data := []byte(`<Envelope srsName="EPSG:4326">
		<lowerCorner>-10 40</lowerCorner>
		<upperCorner>5 50</upperCorner>
	</Envelope>`)

	g, err := ParseGML(data, 0)
	if err != nil {
		t.Fatalf("ParseGML failed: %v", err)
	}
	b, ok := g.Geom.(orb.Bound)
	if !ok {
		t.Fatalf("expected Bound, got %T", g.Geom)
	}
	if b.Min[0] != -10 || b.Max[1] != 50 {
		t.Errorf("unexpected bound %v", b)
	}
}

func TestParseGMLUnclosedRing(t *testing.T) {
	data := []byte(`<Polygon>
		<exterior><LinearRing><posList>0 0 1 0 1 1 0 1</posList></LinearRing></exterior>
	</Polygon>`)
	if _, err := ParseGML(data, 4326); err == nil {
		t.Error("unclosed ring should fail validation")
	}
}

func TestParseGMLOddOrdinateCount(t *testing.T) {
	data := []byte(`<LineString><posList>0 0 1</posList></LineString>`)
	if _, err := ParseGML(data, 4326); err == nil {
		t.Error("odd ordinate count should fail")
	}
}

func TestParseGMLUnsupportedElement(t *testing.T) {
	data := []byte(`<Circle><pos>0 0</pos></Circle>`)
	if _, err := ParseGML(data, 4326); err == nil {
		t.Error("unsupported element should fail")
	}
}
