// Package geometry decodes geometry literals embedded in filter bodies
// (GML 3.2 elements or WKT text) into one canonical value: an orb
// geometry plus its SRID. It also owns SRS identifier parsing, the
// documented longitude-first axis-order assumption, and distance unit
// normalization to meters.
package geometry
