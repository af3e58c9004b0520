package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Record is one flat row of a tabular result.
type Record = map[string]any

// Sheet is one tabular document (CSV file or workbook sheet).
type Sheet struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// Dataset maps sheet name → tabular data.
type Dataset map[string]Sheet

// Empty reports whether no sheet carries at least one data row.
// Header-only and 0-byte files produce empty sheets.
func (d Dataset) Empty() bool {
	for _, s := range d {
		if len(s.Rows) > 0 {
			return false
		}
	}
	return true
}

// Payload is the JSON-serializable value handed to the sandbox.
func (d Dataset) Payload() map[string][]Record {
	out := make(map[string][]Record, len(d))
	for name, s := range d {
		rows := s.Rows
		if rows == nil {
			rows = []Record{}
		}
		out[name] = rows
	}
	return out
}

// Names returns sheet names in stable order.
func (d Dataset) Names() []string {
	names := make([]string, 0, len(d))
	for n := range d {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

const schemaSampleRows = 3

// Schema describes columns, row counts and a few sample rows per sheet.
func (d Dataset) Schema() string {
	var b strings.Builder
	for _, name := range d.Names() {
		s := d[name]
		fmt.Fprintf(&b, "Sheet %q (%d rows)\nColumns: %s\n", name, len(s.Rows), strings.Join(s.Columns, ", "))
		n := len(s.Rows)
		if n > schemaSampleRows {
			n = schemaSampleRows
		}
		for _, r := range s.Rows[:n] {
			raw, _ := json.Marshal(r)
			fmt.Fprintf(&b, "Sample: %s\n", raw)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// Outcome enum
type Outcome string

const (
	OutcomeTable   Outcome = "table"
	OutcomeNoTable Outcome = "no_table"
	OutcomeFailed  Outcome = "failed"
)

// Result is the ephemeral output of one tabular analysis turn.
type Result struct {
	GeneratedCode string  `json:"generated_code"`
	RawResult     any     `json:"raw_result,omitempty"`
	Table         *Table  `json:"table,omitempty"`
	Explanation   string  `json:"explanation"`
	Outcome       Outcome `json:"outcome"`
}

// Run is the persisted audit entry for one analysis execution.
type Run struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	SessionID  string    `json:"session_id"`
	Question   string    `json:"question"`
	Code       string    `json:"code"`
	ResultJSON string    `json:"result_json"`
	Outcome    Outcome   `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
