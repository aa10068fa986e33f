// Package fes parses OGC Filter Encoding 2.0 XML documents into the
// shared filter expression model. Documents are size- and depth-limited
// and DOCTYPE declarations are rejected before any element tree is
// built. Embedded GML geometry literals are decoded by the geometry
// package.
package fes
