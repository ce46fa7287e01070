package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

var (
	ErrUnknownKind  = errors.New("unknown kind")
	ErrMissingField = errors.New("missing field")
)

// FieldTable holds the variant-specific fields of a tagged record.
type FieldTable map[string]any

func (f FieldTable) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Int64 returns the field as an integer, or def when it is absent.
func (f FieldTable) Int64(key string, def int64) (int64, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		fl, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", key, err)
		}
		return floatToInt(key, fl)
	case float64:
		return floatToInt(key, x)
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q: not an integer: %q", key, x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("field %q: not an integer (%T)", key, v)
	}
}

func floatToInt(key string, fl float64) (int64, error) {
	if fl != math.Trunc(fl) || math.IsInf(fl, 0) || math.IsNaN(fl) {
		return 0, fmt.Errorf("field %q: not an integer: %v", key, fl)
	}
	return int64(fl), nil
}

// RequireInt64 is Int64 for fields that must be present.
func (f FieldTable) RequireInt64(key string) (int64, error) {
	if !f.Has(key) {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	return f.Int64(key, 0)
}

func (f FieldTable) Bool(key string, def bool) (bool, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %q: not a bool (%T)", key, v)
	}
	return b, nil
}

func (f FieldTable) String(key, def string) (string, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: not a string (%T)", key, v)
	}
	return s, nil
}

// rename moves a field to a new key, keeping an existing value at the target.
func (f FieldTable) rename(from, to string) {
	v, ok := f[from]
	if !ok {
		return
	}
	delete(f, from)
	if _, exists := f[to]; !exists {
		f[to] = v
	}
}

// Tagged is a discriminated record: Kind selects the variant and Fields
// carries the rest. On the wire both live in one flat JSON object.
type Tagged struct {
	Kind   string
	Fields FieldTable
}

func (t Tagged) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(t.Fields))
	for k := range t.Fields {
		if k != "kind" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString(`{"kind":`)
	kb, err := json.Marshal(t.Kind)
	if err != nil {
		return nil, err
	}
	buf.Write(kb)
	for _, k := range keys {
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(t.Fields[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.WriteByte(',')
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (t *Tagged) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	if m == nil {
		return errors.New("tagged record: null")
	}
	kind, _ := m["kind"].(string)
	delete(m, "kind")
	t.Kind = kind
	t.Fields = FieldTable(m)
	return nil
}

// SeverityText accepts both the current string names and the numeric
// levels older snapshots wrote. Numbers are kept as their decimal text.
type SeverityText string

func (s *SeverityText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = SeverityText(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("severity: %w", err)
	}
	*s = SeverityText(n.String())
	return nil
}
