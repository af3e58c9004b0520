// Package extract turns uploaded files into documents.Document values.
// PDF, XLSX and DOCX extraction happens upstream; their output arrives as
// pre-extracted JSON.
package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bryanwahyu/roundtable/internal/domain/analysis"
	"github.com/bryanwahyu/roundtable/internal/domain/documents"
)

// MaxRows caps rows kept per tabular document.
const MaxRows = 50000

type CSV struct{}

func (CSV) Supports(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".csv")
}

// Extract reads the header row as columns. Numeric cells become float64 so
// the sandbox sees numbers. A 0-byte or header-only file yields a document
// without rows.
func (CSV) Extract(filename string, r io.Reader) (documents.Document, error) {
	doc := documents.Document{Filename: filename, Kind: documents.KindCSV}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read csv header: %w", err)
	}
	doc.Columns = normalizeHeader(header)

	for len(doc.Rows) < MaxRows {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return doc, fmt.Errorf("read csv row %d: %w", len(doc.Rows)+2, err)
		}
		if blank(rec) {
			continue
		}
		doc.Rows = append(doc.Rows, toRecord(doc.Columns, rec))
	}
	return doc, nil
}

func normalizeHeader(header []string) []string {
	cols := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[h]; n > 0 {
			seen[h]++
			h = fmt.Sprintf("%s_%d", h, n+1)
		} else {
			seen[h] = 1
		}
		cols[i] = h
	}
	return cols
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func toRecord(cols []string, vals []string) analysis.Record {
	rec := make(analysis.Record, len(cols))
	for i, c := range cols {
		if i < len(vals) {
			rec[c] = cell(vals[i])
		} else {
			rec[c] = nil
		}
	}
	return rec
}

func cell(v string) any {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
