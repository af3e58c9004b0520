package documents

import (
	"context"
	"io"
)

// Extractor turns an uploaded file into a Document.
type Extractor interface {
	Supports(filename string) bool
	Extract(filename string, r io.Reader) (Document, error)
}

// ArchiveStore port (penyimpanan file mentah yang di-upload)
type ArchiveStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}
