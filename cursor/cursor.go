package cursor

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/honua-io/Honua.Server-sub000/filter"
)

// tokenVersion is bumped whenever the payload shape changes. Tokens with
// any other version are rejected so stale clients fail fast instead of
// resuming at the wrong row.
const tokenVersion = 1

// SortField names one component of a sort specification.
type SortField struct {
	Name string
	Desc bool
}

// payload is the wire shape of a pagination token. Short keys keep the
// encoded token compact.
type payload struct {
	Version int      `msgpack:"v"`
	Fields  []string `msgpack:"f"`
	Desc    []bool   `msgpack:"d"`
	Values  []any    `msgpack:"x"`
}

// Encode builds an opaque continuation token from the sort specification
// and the last row's values for those fields. Values must be orderable
// scalars; timestamps are normalized to UTC before encoding.
func Encode(sort []SortField, values []any) (string, error) {
	if len(sort) == 0 {
		return "", fmt.Errorf("empty sort specification")
	}
	if len(values) != len(sort) {
		return "", fmt.Errorf("sort has %d fields but %d values given", len(sort), len(values))
	}

	p := payload{
		Version: tokenVersion,
		Fields:  make([]string, len(sort)),
		Desc:    make([]bool, len(sort)),
		Values:  make([]any, len(sort)),
	}
	for i, s := range sort {
		if s.Name == "" {
			return "", fmt.Errorf("sort field %d has empty name", i)
		}
		v, err := canonicalValue(values[i])
		if err != nil {
			return "", fmt.Errorf("sort field %s: %w", s.Name, err)
		}
		p.Fields[i] = s.Name
		p.Desc[i] = s.Desc
		p.Values[i] = v
	}

	raw, err := msgpack.Marshal(&p)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode parses a continuation token back into its sort specification
// and boundary values. Any malformed, truncated or wrong-version token
// yields an InvalidCursorError.
func Decode(token string) ([]SortField, []any, error) {
	if token == "" {
		return nil, nil, &filter.InvalidCursorError{Reason: "empty token"}
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, nil, &filter.InvalidCursorError{Reason: "not base64url"}
	}

	var p payload
	if err := msgpack.Unmarshal(raw, &p); err != nil {
		return nil, nil, &filter.InvalidCursorError{Reason: "undecodable payload"}
	}
	if p.Version != tokenVersion {
		return nil, nil, &filter.InvalidCursorError{Reason: fmt.Sprintf("unsupported version %d", p.Version)}
	}
	if len(p.Fields) == 0 || len(p.Fields) != len(p.Desc) || len(p.Fields) != len(p.Values) {
		return nil, nil, &filter.InvalidCursorError{Reason: "inconsistent payload shape"}
	}

	sort := make([]SortField, len(p.Fields))
	values := make([]any, len(p.Fields))
	for i, name := range p.Fields {
		if name == "" {
			return nil, nil, &filter.InvalidCursorError{Reason: "empty field name"}
		}
		v, err := canonicalValue(p.Values[i])
		if err != nil {
			return nil, nil, &filter.InvalidCursorError{Reason: err.Error()}
		}
		sort[i] = SortField{Name: name, Desc: p.Desc[i]}
		values[i] = v
	}
	return sort, values, nil
}

// canonicalValue narrows a boundary value to the types the expression
// model carries: string, int64, float64, bool or UTC time.
func canonicalValue(v any) (any, error) {
	switch x := v.(type) {
	case string, bool, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > 1<<62 {
			return nil, fmt.Errorf("value out of range")
		}
		return int64(x), nil
	case float32:
		return float64(x), nil
	case time.Time:
		return x.UTC(), nil
	default:
		return nil, fmt.Errorf("unsupported boundary value type %T", v)
	}
}
