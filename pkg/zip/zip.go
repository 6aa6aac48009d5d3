// Package zip builds in-memory archives of CSV tables.
package zip

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// Table is one CSV file of an archive. Header is written first.
type Table struct {
	Filename string
	Header   []string
	Rows     [][]string
}

// ArchiveTables renders each table as CSV and returns the zip bytes. Entries
// carry modified as their timestamp so identical inputs give identical output.
func ArchiveTables(tables []Table, modified time.Time) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, t := range tables {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     t.Filename,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", t.Filename, err)
		}
		cw := csv.NewWriter(w)
		if err := cw.Write(t.Header); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", t.Filename, err)
		}
		if err := cw.WriteAll(t.Rows); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", t.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close: %w", err)
	}
	return buf.Bytes(), nil
}
