package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractText reads the file and returns its plain text. Supported formats
// are .txt (UTF-8, BOM tolerated) and .pdf.
func extractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return extractPlainText(path)
	case ".pdf":
		return extractPDFText(path)
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

func extractPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	return string(data), nil
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text from %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("reading pdf text from %s: %w", path, err)
	}
	return buf.String(), nil
}

// extractMetadata scans the leading lines of a document for the headers the
// knowledge-base files carry:
//
//	# PRODUCT: <title>   or   # KENNIS: <title>
//	## Categorie: <category>
func extractMetadata(text string) (title, category string) {
	lines := strings.Split(text, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "# PRODUCT:"):
			title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# PRODUCT:"))
		case strings.HasPrefix(trimmed, "# KENNIS:"):
			title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# KENNIS:"))
		case strings.HasPrefix(trimmed, "## Categorie:"):
			category = strings.TrimSpace(strings.TrimPrefix(trimmed, "## Categorie:"))
		}
	}
	return title, category
}
