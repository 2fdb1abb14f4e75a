// Package extract pulls plain text out of supported file types before
// indexing. Plain text files are read as UTF-8; PDF text is extracted
// page by page.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	recallerrors "github.com/recall-notes/recall/internal/errors"
)

// SupportedExtensions lists the file types that can be indexed.
var SupportedExtensions = []string{".txt", ".pdf"}

// Supported reports whether a path has an indexable extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// FromFile extracts text from a file based on its extension.
func FromFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", recallerrors.FileNotFound(path, err)
	}
	if info.IsDir() {
		return "", recallerrors.New(recallerrors.ErrCodeInvalidInput,
			fmt.Sprintf("%s is a directory", path), nil)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return fromText(path)
	case ".pdf":
		return fromPDF(path)
	default:
		return "", recallerrors.UnsupportedFileType(filepath.Ext(path))
	}
}

// fromText reads a file as UTF-8, dropping invalid byte sequences.
func fromText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", recallerrors.FileNotFound(path, err)
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

// fromPDF extracts text page by page and joins pages with blank lines.
// Pages whose text cannot be decoded are skipped rather than failing
// the whole file.
func fromPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", recallerrors.New(recallerrors.ErrCodeInvalidInput,
			fmt.Sprintf("failed to open PDF %s", path), err)
	}
	defer func() { _ = f.Close() }()

	var pages []string
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}
