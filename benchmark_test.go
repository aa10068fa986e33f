package honua

import (
	"io"
	"log/slog"
	"testing"

	"github.com/honua-io/Honua.Server-sub000/cql"
	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/honua-io/Honua.Server-sub000/sqlgen"
)

func benchEngine(b *testing.B) *Engine {
	b.Helper()
	e, err := New(Config{
		Dialect: "postgis",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		b.Fatal(err)
	}
	return e
}

// BenchmarkCompileComparison measures the full pipeline on a small
// attribute-only filter: parse, score, translate.
func BenchmarkCompileComparison(b *testing.B) {
	e := benchEngine(b)
	req := &Request{Catalog: testCatalog()}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.CompileCQL("temperature > 20 AND status = 'active'", req); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCompileSpatial measures the pipeline with WKT parsing and a
// spatial predicate, the dominant shape in OGC API requests.
func BenchmarkCompileSpatial(b *testing.B) {
	e := benchEngine(b)
	req := &Request{Catalog: testCatalog()}
	input := "datetime >= TIMESTAMP('2024-01-01T00:00:00Z') AND " +
		"S_INTERSECTS(geometry, POLYGON((-10 40, 5 40, 5 50, -10 50, -10 40)))"

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.CompileCQL(input, req); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkTranslateOnly isolates SQL generation from parsing by
// reusing one expression tree.
func BenchmarkTranslateOnly(b *testing.B) {
	catalog := testCatalog()
	expr, err := cql.Parse(
		"temperature > 20 AND (status = 'active' OR status = 'pending')",
		&cql.Options{DefaultSRID: 4326},
	)
	if err != nil {
		b.Fatal(err)
	}
	dialect, err := sqlgen.Lookup("postgis")
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := sqlgen.Translate(expr, catalog, dialect); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkScore isolates the complexity scorer on a 20-clause filter.
func BenchmarkScore(b *testing.B) {
	operands := make([]filter.Expression, 20)
	for i := range operands {
		operands[i] = &filter.Comparison{
			Op:    filter.OpEqual,
			Left:  &filter.Property{Name: "status"},
			Right: &filter.Literal{Value: "active"},
		}
	}
	expr := filter.And(operands...)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		filter.Score(expr)
	}
}
