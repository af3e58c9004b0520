package analysis

import (
	"errors"
	"sort"
	"strings"
)

// ErrNoTable means the raw result could not be turned into a non-empty table.
// It is an outcome, not a failure.
var ErrNoTable = errors.New("no tabular result")

// Shape tags the variants a sandbox result may arrive in.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeRecordList
	ShapeColumnar
	ShapeSingleArrayField
	ShapeScalarMap
)

func (s Shape) String() string {
	switch s {
	case ShapeRecordList:
		return "record_list"
	case ShapeColumnar:
		return "columnar"
	case ShapeSingleArrayField:
		return "single_array_field"
	case ShapeScalarMap:
		return "scalar_map"
	}
	return "unknown"
}

// Table is a uniform list of flat records; every row has every column.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// Classify resolves which variant raw is.
func Classify(raw any) Shape {
	switch v := raw.(type) {
	case []Record:
		return ShapeRecordList
	case []any:
		if len(v) == 0 {
			return ShapeUnknown
		}
		for _, it := range v {
			if _, ok := it.(map[string]any); !ok {
				return ShapeUnknown
			}
		}
		return ShapeRecordList
	case map[string]any:
		if len(v) == 0 {
			return ShapeUnknown
		}
		if isColumnar(v) {
			return ShapeColumnar
		}
		if _, _, ok := singleArrayField(v); ok {
			return ShapeSingleArrayField
		}
		return ShapeScalarMap
	}
	return ShapeUnknown
}

// Normalize converts raw into a Table. Returns ErrNoTable when nothing usable remains.
func Normalize(raw any) (*Table, Shape, error) {
	shape := Classify(raw)
	var rows []Record
	var order []string
	switch shape {
	case ShapeRecordList:
		rows = fromRecordList(raw)
	case ShapeColumnar:
		rows, order = fromColumnar(raw.(map[string]any))
	case ShapeSingleArrayField:
		rows, order = fromSingleArrayField(raw.(map[string]any))
	case ShapeScalarMap:
		rows = []Record{raw.(map[string]any)}
	}
	if len(rows) == 0 {
		return nil, shape, ErrNoTable
	}
	return unify(rows, order), shape, nil
}

func fromRecordList(raw any) []Record {
	switch v := raw.(type) {
	case []Record:
		return v
	case []any:
		out := make([]Record, 0, len(v))
		for _, it := range v {
			out = append(out, it.(map[string]any))
		}
		return out
	}
	return nil
}

func isColumnar(m map[string]any) bool {
	values, ok := m["values"].([]any)
	if !ok {
		return false
	}
	if _, ok := m["columns"].([]any); !ok {
		return false
	}
	for _, row := range values {
		if _, ok := row.([]any); !ok {
			return false
		}
	}
	return true
}

func fromColumnar(m map[string]any) ([]Record, []string) {
	cols := toStrings(m["columns"].([]any))
	var rows []Record
	for _, r := range m["values"].([]any) {
		rows = append(rows, zip(cols, r.([]any)))
	}
	return rows, cols
}

// singleArrayField returns the only array-valued entry of m.
func singleArrayField(m map[string]any) (string, []any, bool) {
	var key string
	var arr []any
	n := 0
	for k, v := range m {
		if a, ok := v.([]any); ok {
			key, arr = k, a
			n++
		}
	}
	return key, arr, n == 1
}

func fromSingleArrayField(m map[string]any) ([]Record, []string) {
	key, arr, _ := singleArrayField(m)
	allMaps := len(arr) > 0
	for _, it := range arr {
		if _, ok := it.(map[string]any); !ok {
			allMaps = false
			break
		}
	}
	if allMaps {
		return fromRecordList(arr), nil
	}

	// key dipakai sebagai header "a,b,c"
	headers := strings.Split(key, ",")
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	rows := make([]Record, 0, len(arr))
	for _, it := range arr {
		if vals, ok := it.([]any); ok {
			rows = append(rows, zip(headers, vals))
			continue
		}
		rows = append(rows, zip(headers, []any{it}))
	}
	return rows, headers
}

func zip(cols []string, vals []any) Record {
	r := make(Record, len(cols))
	for i, c := range cols {
		if i < len(vals) {
			r[c] = vals[i]
		} else {
			r[c] = nil
		}
	}
	return r
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if s, ok := v.(string); ok {
			out[i] = s
			continue
		}
		out[i] = strings.TrimSpace(strings.Trim(stringify(v), `"`))
	}
	return out
}

// unify makes every row carry the union of all keys. Known column order comes
// first, remaining keys are appended in sorted order per row.
func unify(rows []Record, order []string) *Table {
	seen := make(map[string]bool)
	cols := make([]string, 0, len(order))
	for _, c := range order {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	for _, r := range rows {
		keys := make([]string, 0, len(r))
		for k := range r {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = true
			cols = append(cols, k)
		}
	}
	for _, r := range rows {
		for _, c := range cols {
			if _, ok := r[c]; !ok {
				r[c] = nil
			}
		}
	}
	return &Table{Columns: cols, Rows: rows}
}
