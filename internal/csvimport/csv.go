package csvimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phillip-england/locsetup/internal/locations"
)

const csvMediaType = "text/csv"

// SniffLen is how much of an upload IsCSV needs to look at.
const SniffLen = 3072

var ErrNotTabular = errors.New("csv is not a uniform table of rows")

type Table struct {
	Headers []string
	Rows    []locations.Row
}

// IsCSV reports whether an upload should be treated as CSV. A declared text/csv type is
// trusted; otherwise the file needs a .csv name and content that sniffs as CSV or plain text.
func IsCSV(filename, declaredType string, head []byte) bool {
	if mediaType, _, err := mime.ParseMediaType(declaredType); err == nil && mediaType == csvMediaType {
		return true
	}
	if strings.ToLower(filepath.Ext(filename)) != ".csv" {
		return false
	}
	if len(head) == 0 {
		return false
	}
	detected := mimetype.Detect(head)
	return detected.Is(csvMediaType) || detected.Is("text/plain")
}

func Parse(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)

	records, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return Table{}, fmt.Errorf("%w: %v", ErrNotTabular, parseErr)
		}
		return Table{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("%w: no header row", ErrNotTabular)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]locations.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(locations.Row, len(headers))
		for i, h := range headers {
			row[h] = record[i]
		}
		rows = append(rows, row)
	}

	return Table{Headers: headers, Rows: rows}, nil
}

// ParseBytes is Parse for an in-memory upload.
func ParseBytes(data []byte) (Table, error) {
	return Parse(bytes.NewReader(data))
}
