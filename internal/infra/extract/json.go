package extract

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bryanwahyu/roundtable/internal/domain/documents"
)

// Extracted reads the output of an upstream extractor:
//
//	{"filename": "report.pdf", "type": "pdf", "content": "plain text"}
//	{"filename": "sales.xlsx", "type": "excel", "content": [["region","total"],["EU",10]]}
//
// Text kinds carry a string, tabular kinds an array of rows with the header first.
type Extracted struct{}

func (Extracted) Supports(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}

func (Extracted) Extract(filename string, r io.Reader) (documents.Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return documents.Document{}, fmt.Errorf("read %s: %w", filename, err)
	}
	if !gjson.ValidBytes(b) {
		return documents.Document{}, fmt.Errorf("%s is not valid JSON", filename)
	}
	root := gjson.ParseBytes(b)

	name := root.Get("filename").String()
	if name == "" {
		name = strings.TrimSuffix(filename, filepath.Ext(filename))
	}
	kind, err := kindOf(root.Get("type").String(), name)
	if err != nil {
		return documents.Document{}, err
	}
	doc := documents.Document{Filename: name, Kind: kind}

	content := root.Get("content")
	if !kind.Tabular() {
		doc.Text = strings.TrimSpace(content.String())
		return doc, nil
	}
	if content.Exists() && !content.IsArray() {
		return documents.Document{}, fmt.Errorf("%s: tabular content must be an array of rows", name)
	}
	rows := content.Array()
	if len(rows) == 0 {
		return doc, nil
	}
	var header []string
	for _, h := range rows[0].Array() {
		header = append(header, h.String())
	}
	doc.Columns = normalizeHeader(header)
	for _, row := range rows[1:] {
		if len(doc.Rows) == MaxRows {
			break
		}
		vals := row.Array()
		rec := make(map[string]any, len(doc.Columns))
		empty := true
		for i, c := range doc.Columns {
			var v any
			if i < len(vals) {
				v = value(vals[i])
			}
			if v != nil {
				empty = false
			}
			rec[c] = v
		}
		if !empty {
			doc.Rows = append(doc.Rows, rec)
		}
	}
	return doc, nil
}

func value(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.String:
		return cell(r.Str)
	default:
		return r.Value()
	}
}

func kindOf(typ, name string) (documents.Kind, error) {
	switch strings.ToLower(typ) {
	case "pdf":
		return documents.KindPDF, nil
	case "excel", "xlsx", "xls":
		return documents.KindExcel, nil
	case "csv":
		return documents.KindCSV, nil
	case "docx", "word":
		return documents.KindDOCX, nil
	case "text", "txt", "md":
		return documents.KindText, nil
	case "":
		switch strings.ToLower(filepath.Ext(name)) {
		case ".pdf":
			return documents.KindPDF, nil
		case ".xlsx", ".xls":
			return documents.KindExcel, nil
		case ".csv":
			return documents.KindCSV, nil
		case ".docx":
			return documents.KindDOCX, nil
		}
		return documents.KindText, nil
	}
	return "", fmt.Errorf("unknown document type %q", typ)
}

// All returns the extractors in lookup order.
func All() []documents.Extractor {
	return []documents.Extractor{CSV{}, Text{}, Extracted{}}
}
