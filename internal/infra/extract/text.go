package extract

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bryanwahyu/roundtable/internal/domain/documents"
)

// MaxTextBytes caps how much of a text document is kept.
const MaxTextBytes = 1 << 20

type Text struct{}

func (Text) Supports(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".markdown":
		return true
	}
	return false
}

func (Text) Extract(filename string, r io.Reader) (documents.Document, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxTextBytes))
	if err != nil {
		return documents.Document{}, fmt.Errorf("read %s: %w", filename, err)
	}
	if !utf8.Valid(b) {
		return documents.Document{}, fmt.Errorf("%s is not valid UTF-8 text", filename)
	}
	return documents.Document{
		Filename: filename,
		Kind:     documents.KindText,
		Text:     strings.TrimSpace(string(b)),
	}, nil
}
