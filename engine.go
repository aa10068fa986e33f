package honua

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/honua-io/Honua.Server-sub000/cql"
	"github.com/honua-io/Honua.Server-sub000/cursor"
	"github.com/honua-io/Honua.Server-sub000/fes"
	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/honua-io/Honua.Server-sub000/odata"
	"github.com/honua-io/Honua.Server-sub000/sqlgen"
)

// Engine compiles protocol filter text into parameterized SQL for one
// configured dialect. An Engine is safe for concurrent use.
type Engine struct {
	cfg     Config
	dialect sqlgen.Dialect
	logger  *slog.Logger
}

// New creates an engine from config. Returns error wrapping
// ErrInvalidConfig when the config does not validate.
func New(cfg Config) (*Engine, error) {
	dialect, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     cfg,
		dialect: dialect,
		logger:  cfg.resolveLogger(),
	}, nil
}

// Request describes one compilation: the entity catalog the filter runs
// against, the requested sort order and an optional continuation token
// from a previous page.
type Request struct {
	// Catalog declares the queryable fields.
	// REQUIRED.
	Catalog *sqlgen.Catalog

	// Sort is the requested sort order. The catalog key is appended as an
	// ascending tiebreaker when missing.
	// OPTIONAL when Cursor is empty.
	Sort []cursor.SortField

	// Cursor is the continuation token from a previous page.
	// OPTIONAL.
	Cursor string
}

// Query is a compiled filter: a WHERE-clause body with bound parameters,
// plus the effective sort order and the complexity cost that was charged.
type Query struct {
	SQL  string
	Args []any
	Sort []cursor.SortField
	Cost int
}

// CompileCQL compiles a CQL2 text filter.
func (e *Engine) CompileCQL(input string, req *Request) (*Query, error) {
	expr, err := cql.Parse(input, &cql.Options{DefaultSRID: e.cfg.defaultSRID(), Units: e.cfg.Units})
	if err != nil {
		return nil, err
	}
	return e.compile(expr, req, "cql2-text")
}

// CompileCQLJSON compiles a CQL2 JSON filter document.
func (e *Engine) CompileCQLJSON(data []byte, req *Request) (*Query, error) {
	expr, err := cql.ParseJSON(data, &cql.Options{DefaultSRID: e.cfg.defaultSRID(), Units: e.cfg.Units})
	if err != nil {
		return nil, err
	}
	return e.compile(expr, req, "cql2-json")
}

// CompileOData compiles an OData $filter expression.
func (e *Engine) CompileOData(input string, req *Request) (*Query, error) {
	expr, err := odata.Parse(input, &odata.Options{DefaultSRID: e.cfg.defaultSRID()})
	if err != nil {
		return nil, err
	}
	return e.compile(expr, req, "odata")
}

// CompileFES compiles an XML Filter Encoding 2.0 document.
func (e *Engine) CompileFES(data []byte, req *Request) (*Query, error) {
	expr, err := fes.Parse(data, &fes.Options{DefaultSRID: e.cfg.defaultSRID(), Units: e.cfg.Units})
	if err != nil {
		return nil, err
	}
	return e.compile(expr, req, "fes")
}

// Compile compiles an already-parsed expression. Front-end packages can
// be used directly when a caller needs the expression tree itself.
func (e *Engine) Compile(expr filter.Expression, req *Request) (*Query, error) {
	return e.compile(expr, req, "model")
}

// NextCursor encodes the continuation token for the last row of a page.
// Sort must be the effective sort returned in Query.Sort, and values
// the row's values for those fields in the same order.
func (e *Engine) NextCursor(sort []cursor.SortField, values []any) (string, error) {
	return cursor.Encode(sort, values)
}

func (e *Engine) compile(expr filter.Expression, req *Request, grammar string) (*Query, error) {
	if req == nil || req.Catalog == nil {
		return nil, fmt.Errorf("request catalog is required")
	}
	if err := req.Catalog.Validate(); err != nil {
		return nil, err
	}

	// Complexity is charged on the request filter only. The keyset
	// predicate is engine-generated and bounded by the sort width.
	cost := 0
	if expr != nil {
		cost = filter.Score(expr)
		if err := filter.CheckCost(expr, e.cfg.maxCost()); err != nil {
			e.logger.Warn("filter rejected", "grammar", grammar, "cost", cost, "ceiling", e.cfg.maxCost())
			return nil, err
		}
	}

	sort := req.Sort
	if req.Catalog.Key != "" {
		sort = cursor.Normalize(sort, req.Catalog.Key)
	}
	for _, s := range sort {
		if _, err := req.Catalog.Resolve(s.Name); err != nil {
			return nil, err
		}
	}

	full := expr
	if req.Cursor != "" {
		boundary, err := e.decodeBoundary(req.Cursor, sort, req.Catalog)
		if err != nil {
			return nil, err
		}
		if full == nil {
			full = boundary
		} else {
			full = filter.And(full, boundary)
		}
	}
	if full == nil {
		return nil, fmt.Errorf("nothing to compile: no filter and no cursor")
	}

	sql, args, err := sqlgen.Translate(full, req.Catalog, e.dialect)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("filter compiled",
		"grammar", grammar,
		"dialect", e.dialect.Name(),
		"cost", cost,
		"params", len(args),
	)
	return &Query{SQL: sql, Args: args, Sort: sort, Cost: cost}, nil
}

// decodeBoundary decodes a continuation token and checks it against the
// effective sort order before building the keyset predicate. A token
// recorded under a different sort would resume at the wrong rows.
func (e *Engine) decodeBoundary(token string, sort []cursor.SortField, catalog *sqlgen.Catalog) (filter.Expression, error) {
	tokenSort, values, err := cursor.Decode(token)
	if err != nil {
		return nil, err
	}
	if len(tokenSort) != len(sort) {
		return nil, &filter.InvalidCursorError{Reason: "sort specification changed"}
	}
	for i, s := range tokenSort {
		if !strings.EqualFold(s.Name, sort[i].Name) || s.Desc != sort[i].Desc {
			return nil, &filter.InvalidCursorError{Reason: "sort specification changed"}
		}
		if _, err := catalog.Resolve(s.Name); err != nil {
			return nil, &filter.InvalidCursorError{Reason: "unknown sort field " + s.Name}
		}
	}
	return cursor.Keyset(tokenSort, values)
}
