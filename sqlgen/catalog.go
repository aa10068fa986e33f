package sqlgen

import (
	"fmt"
	"strings"

	"github.com/honua-io/Honua.Server-sub000/filter"
)

// FieldType identifies the storage type of a catalog field.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeNumber    FieldType = "number"
	TypeInteger   FieldType = "integer"
	TypeBoolean   FieldType = "boolean"
	TypeTimestamp FieldType = "timestamp"
	TypeGeometry  FieldType = "geometry"
)

// Field maps an external property name to a backing column.
type Field struct {
	// Name is the property name as it appears in filter text.
	Name string

	// Column is the backing column name. Defaults to Name when empty.
	Column string

	Type FieldType

	// SRID is the stored spatial reference for geometry fields.
	SRID int
}

// ColumnName returns the backing column, falling back to the field name.
func (f *Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// Catalog declares the queryable fields of one entity. Property references
// in filter expressions resolve against it at translation time; names not
// listed here are rejected, so filters can never touch undeclared columns.
type Catalog struct {
	Fields []Field

	// Key names the field used as the pagination tiebreaker. It must
	// resolve to a listed field.
	Key string
}

// Resolve looks up a property name case-insensitively.
func (c *Catalog) Resolve(name string) (*Field, error) {
	for i := range c.Fields {
		if strings.EqualFold(c.Fields[i].Name, name) {
			return &c.Fields[i], nil
		}
	}
	return nil, &filter.UnknownFieldError{Field: name}
}

// GeometryField returns the entity's default geometry field.
func (c *Catalog) GeometryField() (*Field, error) {
	for i := range c.Fields {
		if c.Fields[i].Type == TypeGeometry {
			return &c.Fields[i], nil
		}
	}
	return nil, fmt.Errorf("catalog has no geometry field")
}

// Validate checks the catalog shape: unique names and a resolvable key.
func (c *Catalog) Validate() error {
	if len(c.Fields) == 0 {
		return fmt.Errorf("catalog has no fields")
	}
	seen := make(map[string]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" {
			return fmt.Errorf("catalog field with empty name")
		}
		key := strings.ToLower(f.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate catalog field %q", f.Name)
		}
		seen[key] = struct{}{}
	}
	if c.Key != "" {
		if _, err := c.Resolve(c.Key); err != nil {
			return fmt.Errorf("catalog key: %w", err)
		}
	}
	return nil
}
