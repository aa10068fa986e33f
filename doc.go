// Package honua compiles geospatial query filters to parameterized SQL.
//
// The package accepts filters in three protocol grammars: CQL2 (text and
// JSON), OData $filter, and OGC Filter Encoding 2.0 XML. All of them
// parse into one shared expression model, so comparison, logical,
// spatial and function semantics are identical regardless of the
// grammar a filter arrived in.
//
// Compilation runs in stages:
//   - a grammar front-end parses protocol text into the expression model,
//     resolving spatial reference systems and converting distance units
//     to meters
//   - a complexity score is charged against the configured ceiling,
//     bounding worst-case query cost before any SQL is built
//   - the translator resolves property names through an entity catalog
//     and renders a WHERE-clause body with every literal bound as a
//     parameter
//   - a dialect adapter supplies the backend spelling for spatial
//     predicates, geometry functions, quoting and placeholders
//
// # Quick Start
//
// Compile a CQL2 filter for PostGIS:
//
//	engine, err := honua.New(honua.Config{Dialect: "postgis"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	catalog := &sqlgen.Catalog{
//	    Key: "id",
//	    Fields: []sqlgen.Field{
//	        {Name: "id", Type: sqlgen.TypeInteger},
//	        {Name: "datetime", Type: sqlgen.TypeTimestamp},
//	        {Name: "temperature", Type: sqlgen.TypeNumber},
//	        {Name: "geometry", Type: sqlgen.TypeGeometry, SRID: 4326},
//	    },
//	}
//
//	q, err := engine.CompileCQL(
//	    `temperature > 20 AND INTERSECTS(geometry, BBOX(-10, 40, 5, 50))`,
//	    &honua.Request{Catalog: catalog},
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rows, err := db.Query("SELECT * FROM obs WHERE "+q.SQL, q.Args...)
//
// Pagination uses opaque keyset tokens. Pass the previous page's token in
// Request.Cursor and the continuation predicate is added to the filter;
// encode the next token from the last row with Engine.NextCursor.
//
// Errors are typed values: SyntaxError, UnsupportedConstruct,
// MissingRequiredArgument, UnknownField, QueryTooComplex,
// UnsupportedOnDialect and InvalidCursor all live in the filter package
// and unwrap with errors.As.
package honua
