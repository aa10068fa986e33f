// Package sqlgen translates filter expressions to parameterized SQL
// WHERE clauses. Property names resolve through an entity catalog, every
// literal becomes a bound parameter in traversal order, and the
// backend-specific spelling of spatial predicates, geometry functions,
// quoting and placeholders is delegated to a Dialect adapter. Spatial
// relation tests are paired with an inline bounding-box pre-filter so
// backends can use their spatial index before the exact test runs.
package sqlgen
