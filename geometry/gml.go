package geometry

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// ParseGML decodes a single GML 3.2 geometry element into a canonical
// geometry value. Supported elements: Point, LineString, Polygon,
// MultiPoint, MultiCurve, MultiSurface, MultiGeometry and Envelope.
//
// SRID resolution order: srsName attribute on the element, then
// defaultSRID, then 0 (deferred to translation time). Coordinate order
// follows the srsName form's declared axis order; the lenient GML 2
// coordinates element is always longitude-first.
func ParseGML(data []byte, defaultSRID int) (*Geometry, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("gml: no geometry element found")
		}
		if err != nil {
			return nil, fmt.Errorf("gml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		return decodeGMLElement(dec, start, defaultSRID)
	}
}

func decodeGMLElement(dec *xml.Decoder, start xml.StartElement, defaultSRID int) (*Geometry, error) {
	srsName := findAttr(start, "srsName")
	srid := defaultSRID
	if srsName != "" {
		code, err := ParseSRID(srsName)
		if err != nil {
			return nil, fmt.Errorf("gml: %w", err)
		}
		srid = code
	}
	swap := LatLonOrder(srsName, srid)

	var geom orb.Geometry
	var err error
	switch start.Name.Local {
	case "Point":
		geom, err = decodePoint(dec, start, swap)
	case "LineString", "Curve":
		geom, err = decodeLineString(dec, start, swap)
	case "Polygon", "Surface":
		geom, err = decodePolygon(dec, start, swap)
	case "MultiPoint":
		geom, err = decodeMultiPoint(dec, start, swap)
	case "MultiCurve", "MultiLineString":
		geom, err = decodeMultiLineString(dec, start, swap)
	case "MultiSurface", "MultiPolygon":
		geom, err = decodeMultiPolygon(dec, start, swap)
	case "Envelope":
		geom, err = decodeEnvelope(dec, start, swap)
	default:
		return nil, fmt.Errorf("gml: unsupported geometry element <%s>", start.Name.Local)
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(geom); err != nil {
		return nil, fmt.Errorf("gml: invalid %s: %w", start.Name.Local, err)
	}
	return &Geometry{Geom: geom, SRID: srid}, nil
}

type gmlPoint struct {
	Pos         string `xml:"pos"`
	Coordinates string `xml:"coordinates"`
}

func decodePoint(dec *xml.Decoder, start xml.StartElement, swap bool) (orb.Geometry, error) {
	var raw gmlPoint
	if err := dec.DecodeElement(&raw, &start); err != nil {
		return nil, fmt.Errorf("gml: invalid Point: %w", err)
	}
	pts, err := parseCoords(raw.Pos, raw.Coordinates, swap)
	if err != nil {
		return nil, fmt.Errorf("gml: Point: %w", err)
	}
	if len(pts) != 1 {
		return nil, fmt.Errorf("gml: Point must have exactly one position, has %d", len(pts))
	}
	return pts[0], nil
}

type gmlLineString struct {
	PosList     string   `xml:"posList"`
	Pos         []string `xml:"pos"`
	Coordinates string   `xml:"coordinates"`
	// Curve wraps its positions in segments/LineStringSegment.
	Segments []gmlLineString `xml:"segments>LineStringSegment"`
}

func decodeLineString(dec *xml.Decoder, start xml.StartElement, swap bool) (orb.Geometry, error) {
	var raw gmlLineString
	if err := dec.DecodeElement(&raw, &start); err != nil {
		return nil, fmt.Errorf("gml: invalid LineString: %w", err)
	}
	return lineStringFromRaw(raw, swap)
}

func lineStringFromRaw(raw gmlLineString, swap bool) (orb.LineString, error) {
	if len(raw.Segments) > 0 {
		var ls orb.LineString
		for _, seg := range raw.Segments {
			part, err := lineStringFromRaw(seg, swap)
			if err != nil {
				return nil, err
			}
			ls = append(ls, part...)
		}
		return ls, nil
	}
	if len(raw.Pos) > 0 {
		var ls orb.LineString
		for _, p := range raw.Pos {
			pts, err := parseCoords(p, "", swap)
			if err != nil {
				return nil, fmt.Errorf("gml: LineString: %w", err)
			}
			ls = append(ls, pts...)
		}
		return ls, nil
	}
	pts, err := parseCoords(raw.PosList, raw.Coordinates, swap)
	if err != nil {
		return nil, fmt.Errorf("gml: LineString: %w", err)
	}
	return orb.LineString(pts), nil
}

type gmlRing struct {
	PosList     string `xml:"LinearRing>posList"`
	Coordinates string `xml:"LinearRing>coordinates"`
}

type gmlPolygon struct {
	Exterior  gmlRing   `xml:"exterior"`
	Interiors []gmlRing `xml:"interior"`
	// GML 2 spellings.
	OuterBoundary  gmlRing   `xml:"outerBoundaryIs"`
	InnerBoundarys []gmlRing `xml:"innerBoundaryIs"`
}

func decodePolygon(dec *xml.Decoder, start xml.StartElement, swap bool) (orb.Geometry, error) {
	var raw gmlPolygon
	if err := dec.DecodeElement(&raw, &start); err != nil {
		return nil, fmt.Errorf("gml: invalid Polygon: %w", err)
	}
	return polygonFromRaw(raw, swap)
}

func polygonFromRaw(raw gmlPolygon, swap bool) (orb.Polygon, error) {
	exterior := raw.Exterior
	interiors := raw.Interiors
	if exterior.PosList == "" && exterior.Coordinates == "" {
		exterior = raw.OuterBoundary
		interiors = raw.InnerBoundarys
	}
	outer, err := parseRing(exterior, swap)
	if err != nil {
		return nil, fmt.Errorf("gml: Polygon exterior: %w", err)
	}
	poly := orb.Polygon{outer}
	for i, inner := range interiors {
		ring, err := parseRing(inner, swap)
		if err != nil {
			return nil, fmt.Errorf("gml: Polygon interior[%d]: %w", i, err)
		}
		poly = append(poly, ring)
	}
	return poly, nil
}

func parseRing(raw gmlRing, swap bool) (orb.Ring, error) {
	pts, err := parseCoords(raw.PosList, raw.Coordinates, swap)
	if err != nil {
		return nil, err
	}
	return orb.Ring(pts), nil
}

type gmlMultiPoint struct {
	Members  []gmlPoint `xml:"pointMember>Point"`
	Members2 []gmlPoint `xml:"pointMembers>Point"`
}

func decodeMultiPoint(dec *xml.Decoder, start xml.StartElement, swap bool) (orb.Geometry, error) {
	var raw gmlMultiPoint
	if err := dec.DecodeElement(&raw, &start); err != nil {
		return nil, fmt.Errorf("gml: invalid MultiPoint: %w", err)
	}
	var mp orb.MultiPoint
	for _, m := range append(raw.Members, raw.Members2...) {
		pts, err := parseCoords(m.Pos, m.Coordinates, swap)
		if err != nil {
			return nil, fmt.Errorf("gml: MultiPoint member: %w", err)
		}
		mp = append(mp, pts...)
	}
	return mp, nil
}

type gmlMultiCurve struct {
	Members  []gmlLineString `xml:"curveMember>LineString"`
	Members2 []gmlLineString `xml:"lineStringMember>LineString"`
}

func decodeMultiLineString(dec *xml.Decoder, start xml.StartElement, swap bool) (orb.Geometry, error) {
	var raw gmlMultiCurve
	if err := dec.DecodeElement(&raw, &start); err != nil {
		return nil, fmt.Errorf("gml: invalid MultiCurve: %w", err)
	}
	var mls orb.MultiLineString
	for _, m := range append(raw.Members, raw.Members2...) {
		ls, err := lineStringFromRaw(m, swap)
		if err != nil {
			return nil, err
		}
		mls = append(mls, ls)
	}
	return mls, nil
}

type gmlMultiSurface struct {
	Members  []gmlPolygon `xml:"surfaceMember>Polygon"`
	Members2 []gmlPolygon `xml:"polygonMember>Polygon"`
}

func decodeMultiPolygon(dec *xml.Decoder, start xml.StartElement, swap bool) (orb.Geometry, error) {
	var raw gmlMultiSurface
	if err := dec.DecodeElement(&raw, &start); err != nil {
		return nil, fmt.Errorf("gml: invalid MultiSurface: %w", err)
	}
	var mp orb.MultiPolygon
	for _, m := range append(raw.Members, raw.Members2...) {
		poly, err := polygonFromRaw(m, swap)
		if err != nil {
			return nil, err
		}
		mp = append(mp, poly)
	}
	return mp, nil
}

type gmlEnvelope struct {
	LowerCorner string `xml:"lowerCorner"`
	UpperCorner string `xml:"upperCorner"`
}

func decodeEnvelope(dec *xml.Decoder, start xml.StartElement, swap bool) (orb.Geometry, error) {
	var raw gmlEnvelope
	if err := dec.DecodeElement(&raw, &start); err != nil {
		return nil, fmt.Errorf("gml: invalid Envelope: %w", err)
	}
	lower, err := parseCoords(raw.LowerCorner, "", swap)
	if err != nil || len(lower) != 1 {
		return nil, fmt.Errorf("gml: Envelope lowerCorner must be one position")
	}
	upper, err := parseCoords(raw.UpperCorner, "", swap)
	if err != nil || len(upper) != 1 {
		return nil, fmt.Errorf("gml: Envelope upperCorner must be one position")
	}
	return orb.Bound{Min: lower[0], Max: upper[0]}, nil
}

// parseCoords parses either a pos/posList body (space-separated scalars)
// or a GML 2 coordinates body (comma-joined pairs separated by spaces).
func parseCoords(posList, coordinates string, swap bool) ([]orb.Point, error) {
	if strings.TrimSpace(posList) != "" {
		return parsePosList(posList, swap)
	}
	if strings.TrimSpace(coordinates) != "" {
		return parseCoordinates(coordinates)
	}
	return nil, fmt.Errorf("missing coordinate content")
}

func parsePosList(s string, swap bool) ([]orb.Point, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields)%2 != 0 {
		return nil, fmt.Errorf("position list must contain an even number of ordinates, has %d", len(fields))
	}
	pts := make([]orb.Point, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		x, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ordinate %q", fields[i])
		}
		y, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ordinate %q", fields[i+1])
		}
		if swap {
			x, y = y, x
		}
		pts = append(pts, orb.Point{x, y})
	}
	return pts, nil
}

func parseCoordinates(s string) ([]orb.Point, error) {
	pairs := strings.Fields(s)
	pts := make([]orb.Point, 0, len(pairs))
	for _, pair := range pairs {
		xy := strings.Split(pair, ",")
		if len(xy) < 2 {
			return nil, fmt.Errorf("invalid coordinate pair %q", pair)
		}
		x, err := strconv.ParseFloat(xy[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ordinate %q", xy[0])
		}
		y, err := strconv.ParseFloat(xy[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ordinate %q", xy[1])
		}
		pts = append(pts, orb.Point{x, y})
	}
	return pts, nil
}

func findAttr(start xml.StartElement, local string) string {
	for _, a := range start.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
