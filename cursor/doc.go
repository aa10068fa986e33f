// Package cursor implements keyset pagination tokens. A token is a
// versioned msgpack payload, base64url-encoded, holding the sort
// specification and the boundary row's values. Decoding a token yields
// the continuation predicate as a regular filter expression, so the SQL
// translator handles it like any other filter.
package cursor
