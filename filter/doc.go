// Package filter defines the protocol-agnostic filter expression model
// shared by every grammar front-end and the SQL translator.
//
// All three grammars (CQL2 text/JSON, OData, XML Filter Encoding) parse
// into the same closed set of Expression nodes, so the translator has
// exactly one code path downstream. Trees are immutable once built:
// front-ends construct them bottom-up and never mutate a node after it
// has children.
//
// The package also carries the shared error taxonomy and the complexity
// scorer, which bounds query cost before any SQL is generated:
//
//	expr, err := cql.Parse(text)
//	if err != nil { ... }
//	if err := filter.CheckCost(expr, ceiling); err != nil {
//	    var tooComplex *filter.QueryTooComplexError
//	    if errors.As(err, &tooComplex) { ... }
//	}
//
// All errors are returned as typed values, never panics, so each protocol
// layer can map them to its own error envelope.
package filter
