package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for anything that is not CSV or XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format, please upload a CSV or Excel (.xlsx) file")
	// ErrEmptyFile is returned when a file has no header or no data rows.
	ErrEmptyFile = errors.New("the file is empty or contains no data rows")
)

// SupportedExtensions lists the lower-cased extensions Load understands.
var SupportedExtensions = []string{".csv", ".xlsx"}

// IsSupported reports whether filename has an extension Load can read.
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Load reads r using the reader that matches filename's extension.
func Load(filename string, r io.Reader) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		t, err = ReadCSV(r)
	case ".xlsx":
		t, err = ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(filename), ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(filename), ErrEmptyFile)
	}
	return t, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string) (*Table, error) {
	if !IsSupported(path) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Load(path, f)
}
