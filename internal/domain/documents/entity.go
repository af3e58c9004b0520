package documents

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/roundtable/internal/domain/analysis"
)

// Kind enum
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindExcel Kind = "excel"
	KindCSV   Kind = "csv"
	KindDOCX  Kind = "docx"
	KindText  Kind = "text"
)

// renderOrder urutan grup dokumen di context string.
var renderOrder = []Kind{KindPDF, KindExcel, KindCSV, KindDOCX, KindText}

var labels = map[Kind]string{
	KindPDF:   "PDF",
	KindExcel: "Excel",
	KindCSV:   "CSV",
	KindDOCX:  "DOCX",
	KindText:  "Text",
}

// Tabular reports whether documents of this kind carry rows.
func (k Kind) Tabular() bool { return k == KindExcel || k == KindCSV }

// Document is the extracted content of one uploaded file.
// Text kinds use Text; tabular kinds use Columns/Rows.
type Document struct {
	Filename   string            `json:"filename"`
	Kind       Kind              `json:"kind"`
	Text       string            `json:"text,omitempty"`
	Columns    []string          `json:"columns,omitempty"`
	Rows       []analysis.Record `json:"rows,omitempty"`
	ArchiveURL string            `json:"archive_url,omitempty"`
}

// Store holds the extracted documents of one session, keyed by filename.
// Re-adding a filename replaces the earlier document.
type Store struct {
	Documents []Document `json:"documents"`
}

func (s *Store) Add(d Document) {
	for i := range s.Documents {
		if s.Documents[i].Filename == d.Filename {
			s.Documents[i] = d
			return
		}
	}
	s.Documents = append(s.Documents, d)
}

func (s *Store) Len() int { return len(s.Documents) }

// HasTabular reports whether any CSV/Excel document is loaded.
func (s *Store) HasTabular() bool {
	for _, d := range s.Documents {
		if d.Kind.Tabular() {
			return true
		}
	}
	return false
}

// Dataset exposes tabular documents as sheet-name → rows.
func (s *Store) Dataset() analysis.Dataset {
	ds := analysis.Dataset{}
	for _, d := range s.Documents {
		if d.Kind.Tabular() {
			ds[d.Filename] = analysis.Sheet{Columns: d.Columns, Rows: d.Rows}
		}
	}
	return ds
}

// Format renders the textual snapshot used as document context in prompts.
func (s *Store) Format() string {
	var blocks []string
	for _, kind := range renderOrder {
		var group []string
		for _, d := range s.Documents {
			if d.Kind != kind {
				continue
			}
			group = append(group, fmt.Sprintf("%s: %s\nContent: %s", labels[kind], d.Filename, d.content()))
		}
		if len(group) > 0 {
			blocks = append(blocks, strings.Join(group, "\n\n"))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (d Document) content() string {
	if !d.Kind.Tabular() {
		return d.Text
	}
	rows := d.Rows
	if rows == nil {
		rows = []analysis.Record{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "[]"
	}
	return string(b)
}
