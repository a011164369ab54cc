// Package data reads the tabular row source of a batch. The first CSV record
// names the placeholder keys; each following record becomes one row.
package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shineum/dispatch/internal/email"
	"github.com/shineum/dispatch/internal/subst"
)

// byteOrderMark is written by spreadsheet exports such as Excel's "CSV UTF-8".
const byteOrderMark = "\ufeff"

// ReadFile reads every row of the CSV file at path.
func ReadFile(path string) ([]subst.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &email.FileError{Path: path, Err: err}
	}
	defer f.Close()

	rows, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file %s: %w", path, err)
	}
	return rows, nil
}

// Read reads CSV records from r. Header names are trimmed of surrounding
// whitespace and a leading UTF-8 byte order mark; values are kept verbatim. Every record must have as many fields
// as the header.
func Read(r io.Reader) ([]subst.Row, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], byteOrderMark)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []subst.Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}

		row := make(subst.Row, len(header))
		for i, key := range header {
			row[key] = record[i]
		}
		rows = append(rows, row)
	}
}
