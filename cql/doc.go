// Package cql parses CQL2 filters, in both their text and JSON forms,
// into the shared filter expression model. The text grammar is a
// hand-rolled lexer plus recursive-descent parser with the usual
// OR < AND < NOT precedence; the JSON grammar walks the
// {"op": ..., "args": [...]} tree. Both emit identical trees for the
// same logical filter.
package cql
