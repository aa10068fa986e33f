package sqlgen

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/honua-io/Honua.Server-sub000/geometry"
)

func testCatalog() *Catalog {
	return &Catalog{
		Key: "id",
		Fields: []Field{
			{Name: "id", Type: TypeInteger},
			{Name: "name", Type: TypeString},
			{Name: "status", Type: TypeString},
			{Name: "temperature", Type: TypeNumber},
			{Name: "datetime", Type: TypeTimestamp, Column: "observed_at"},
			{Name: "geometry", Type: TypeGeometry, Column: "geom", SRID: 4326},
		},
	}
}

func mustGeom(t *testing.T, wkt string, srid int) *geometry.Geometry {
	t.Helper()
	g, err := geometry.ParseWKT(wkt, srid)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestTranslateComparison(t *testing.T) {
	expr := &filter.Comparison{
		Op:    filter.OpGreaterThan,
		Left:  &filter.Property{Name: "temperature"},
		Right: &filter.Literal{Value: float64(20)},
	}
	sql, args, err := Translate(expr, testCatalog(), PostGIS{})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if sql != `"temperature" > $1` {
		t.Errorf("unexpected SQL %q", sql)
	}
	if len(args) != 1 || args[0] != float64(20) {
		t.Errorf("unexpected args %#v", args)
	}
}

func TestTranslateColumnMapping(t *testing.T) {
	expr := &filter.Comparison{
		Op:    filter.OpLessThan,
		Left:  &filter.Property{Name: "datetime"},
		Right: &filter.Literal{Value: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	sql, _, err := Translate(expr, testCatalog(), PostGIS{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sql, `"observed_at"`) {
		t.Errorf("property must resolve to its backing column, got %q", sql)
	}
	if strings.Contains(sql, "datetime") {
		t.Errorf("external property name must not leak into SQL, got %q", sql)
	}
}

func TestTranslateUnknownField(t *testing.T) {
	expr := &filter.Comparison{
		Op:    filter.OpEqual,
		Left:  &filter.Property{Name: "secret_column"},
		Right: &filter.Literal{Value: int64(1)},
	}
	_, _, err := Translate(expr, testCatalog(), PostGIS{})
	var unknown *filter.UnknownFieldError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownFieldError, got %T: %v", err, err)
	}
	if unknown.Field != "secret_column" {
		t.Errorf("unexpected field %q", unknown.Field)
	}
}

func TestTranslateScenarioIntersects(t *testing.T) {
	// temperature > 20 AND INTERSECTS(geometry, BBOX(-10, 40, 5, 50))
	bbox, err := geometry.NewBBox(-10, 40, 5, 50, 4326)
	if err != nil {
		t.Fatal(err)
	}
	expr := filter.And(
		&filter.Comparison{
			Op:    filter.OpGreaterThan,
			Left:  &filter.Property{Name: "temperature"},
			Right: &filter.Literal{Value: float64(20)},
		},
		&filter.Spatial{
			Predicate: filter.SpatialIntersects,
			Geometry:  &filter.Property{Name: "geometry"},
			Test:      bbox,
		},
	)

	sql, args, err := Translate(expr, testCatalog(), PostGIS{})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	for _, want := range []string{
		`"temperature" > $1`,
		`"geom" && ST_MakeEnvelope(-10, 40, 5, 50, 4326)`,
		`ST_Intersects("geom", ST_GeomFromText($2, 4326))`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("SQL missing %q:\n%s", want, sql)
		}
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 params, got %d: %#v", len(args), args)
	}
	if args[0] != float64(20) {
		t.Errorf("params must follow source order, got %#v", args)
	}
	wkt, ok := args[1].(string)
	if !ok || !strings.HasPrefix(wkt, "POLYGON") {
		t.Errorf("geometry param must be WKT text, got %#v", args[1])
	}
}

func TestTranslateLikeRewrite(t *testing.T) {
	// FES-style pattern metacharacters rewrite to SQL LIKE.
	expr := &filter.Like{
		Target:     &filter.Property{Name: "name"},
		Pattern:    "Mt*_?100%",
		Wildcard:   '*',
		SingleChar: '?',
		Escape:     '!',
	}
	sql, args, err := Translate(expr, testCatalog(), PostGIS{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sql, `"name" LIKE $1 ESCAPE '\'`) {
		t.Errorf("unexpected SQL %q", sql)
	}
	if args[0] != `Mt%\__100\%` {
		t.Errorf("unexpected rewritten pattern %q", args[0])
	}
}

func TestTranslateCaseInsensitiveLike(t *testing.T) {
	expr := &filter.Like{
		Target:          &filter.Property{Name: "name"},
		Pattern:         "mt%",
		Wildcard:        '%',
		SingleChar:      '_',
		Escape:          '\\',
		CaseInsensitive: true,
	}
	sql, _, err := Translate(expr, testCatalog(), PostGIS{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sql, "ILIKE") {
		t.Errorf("PostGIS case-insensitive match must use ILIKE, got %q", sql)
	}

	sql, _, err = Translate(expr, testCatalog(), MySQL{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sql, "LOWER(") {
		t.Errorf("MySQL case-insensitive match must fold, got %q", sql)
	}
}

func TestTranslateInAndBetween(t *testing.T) {
	expr := filter.And(
		&filter.In{
			Target: &filter.Property{Name: "status"},
			Values: []filter.Expression{
				&filter.Literal{Value: "active"},
				&filter.Literal{Value: "retired"},
			},
		},
		&filter.Between{
			Input: &filter.Property{Name: "temperature"},
			Lower: &filter.Literal{Value: float64(0)},
			Upper: &filter.Literal{Value: float64(40)},
		},
	)
	sql, args, err := Translate(expr, testCatalog(), PostGIS{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sql, `"status" IN ($1, $2)`) {
		t.Errorf("unexpected SQL %q", sql)
	}
	if !strings.Contains(sql, `"temperature" BETWEEN $3 AND $4`) {
		t.Errorf("unexpected SQL %q", sql)
	}
	if len(args) != 4 {
		t.Errorf("expected 4 params, got %d", len(args))
	}
}

func TestTranslateIsNullAndNot(t *testing.T) {
	expr := &filter.Logical{
		Op: filter.OpNot,
		Operands: []filter.Expression{
			&filter.IsNull{Target: &filter.Property{Name: "name"}},
		},
	}
	sql, args, err := Translate(expr, testCatalog(), PostGIS{})
	if err != nil {
		t.Fatal(err)
	}
	if sql != `NOT ("name" IS NULL)` {
		t.Errorf("unexpected SQL %q", sql)
	}
	if len(args) != 0 {
		t.Errorf("IS NULL binds no params, got %#v", args)
	}
}

func TestTranslateFunctionNesting(t *testing.T) {
	// area(buffer(geometry, 100)) > 500000
	expr := &filter.Comparison{
		Op: filter.OpGreaterThan,
		Left: &filter.Function{Name: "area", Args: []filter.Expression{
			&filter.Function{Name: "buffer", Args: []filter.Expression{
				&filter.Property{Name: "geometry"},
				&filter.Literal{Value: float64(100)},
			}},
		}},
		Right: &filter.Literal{Value: float64(500000)},
	}
	sql, args, err := Translate(expr, testCatalog(), PostGIS{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sql, `ST_Area(((ST_Buffer(("geom")::geography, $1))::geometry)::geography)`) {
		t.Errorf("unexpected SQL %q", sql)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 params, got %d", len(args))
	}
	if args[0] != float64(100) || args[1] != float64(500000) {
		t.Errorf("params must follow traversal order, got %#v", args)
	}
}

func TestTranslateSpatialOnNonGeometryField(t *testing.T) {
	expr := &filter.Spatial{
		Predicate: filter.SpatialIntersects,
		Geometry:  &filter.Property{Name: "name"},
		Test:      mustGeom(t, "POINT(1 2)", 4326),
	}
	_, _, err := Translate(expr, testCatalog(), PostGIS{})
	var unsupported *filter.UnsupportedConstructError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedConstructError, got %T: %v", err, err)
	}
}

func TestTranslateFunctionOnNonGeometryField(t *testing.T) {
	// Geometry-typed enforcement applies to standalone function calls,
	// not only to spatial predicate operands.
	expr := &filter.Comparison{
		Op: filter.OpGreaterThan,
		Left: &filter.Function{
			Name: "area",
			Args: []filter.Expression{&filter.Property{Name: "temperature"}},
		},
		Right: &filter.Literal{Value: float64(5)},
	}
	_, _, err := Translate(expr, testCatalog(), PostGIS{})
	var unsupported *filter.UnsupportedConstructError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedConstructError, got %T: %v", err, err)
	}

	nested := &filter.Comparison{
		Op: filter.OpGreaterThan,
		Left: &filter.Function{
			Name: "length",
			Args: []filter.Expression{&filter.Function{
				Name: "buffer",
				Args: []filter.Expression{
					&filter.Property{Name: "status"},
					&filter.Literal{Value: float64(10)},
				},
			}},
		},
		Right: &filter.Literal{Value: float64(5)},
	}
	_, _, err = Translate(nested, testCatalog(), PostGIS{})
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedConstructError for nested call, got %T: %v", err, err)
	}
}

func TestTranslateGeometryLiteralOutsideSpatial(t *testing.T) {
	expr := &filter.Comparison{
		Op:    filter.OpEqual,
		Left:  &filter.Property{Name: "geometry"},
		Right: &filter.Literal{Value: mustGeom(t, "POINT(1 2)", 4326)},
	}
	_, _, err := Translate(expr, testCatalog(), PostGIS{})
	var unsupported *filter.UnsupportedConstructError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedConstructError, got %T: %v", err, err)
	}
}

func TestTranslateIdempotent(t *testing.T) {
	expr := filter.And(
		&filter.Comparison{
			Op:    filter.OpGreaterThan,
			Left:  &filter.Property{Name: "temperature"},
			Right: &filter.Literal{Value: float64(20)},
		},
		&filter.Spatial{
			Predicate: filter.SpatialDWithin,
			Geometry:  &filter.Property{Name: "geometry"},
			Test:      mustGeom(t, "POINT(1 2)", 4326),
			Distance:  5000,
		},
	)
	sql1, args1, err := Translate(expr, testCatalog(), PostGIS{})
	if err != nil {
		t.Fatal(err)
	}
	sql2, args2, err := Translate(expr, testCatalog(), PostGIS{})
	if err != nil {
		t.Fatal(err)
	}
	if sql1 != sql2 {
		t.Errorf("translation must be deterministic:\n%s\n%s", sql1, sql2)
	}
	if len(args1) != len(args2) {
		t.Errorf("param counts differ: %d vs %d", len(args1), len(args2))
	}
}
