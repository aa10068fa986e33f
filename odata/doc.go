// Package odata parses OData $filter expressions into the shared filter
// expression model. Spatial tests arrive as function-style predicates
// such as geo.intersects(col, geography'...') or a geo.distance(col, g)
// comparison, and are normalized to the same Spatial node shape the CQL
// and Filter-Encoding grammars produce, so translation has one code path.
package odata
