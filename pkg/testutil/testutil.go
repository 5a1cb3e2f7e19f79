package testutil

import (
	"encoding/csv"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

// MemFS creates an in-memory filesystem for testing.
func MemFS() afero.Fs {
	return afero.NewMemMapFs()
}

// WriteFile writes content to a file in the given filesystem.
func WriteFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// ReadFile reads content from a file in the given filesystem.
func ReadFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error: %v", path, err)
	}
	return string(data)
}

// WriteCSV encodes rows as CSV into path.
func WriteCSV(t *testing.T, fs afero.Fs, path string, rows [][]string) {
	t.Helper()
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("encoding %s: %v", path, err)
	}
	WriteFile(t, fs, path, b.String())
}

// ReadCSV decodes the CSV file at path.
func ReadCSV(t *testing.T, fs afero.Fs, path string) [][]string {
	t.Helper()
	r := csv.NewReader(strings.NewReader(ReadFile(t, fs, path)))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
	return rows
}

// Workbook builds an in-memory xlsx file. sheets maps sheet name to
// A1-keyed cells; text starting with "=" is stored as a formula. Sheets are
// created in name order after the default "Sheet1".
func Workbook(t *testing.T, sheets map[string]map[string]string) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	names := make([]string, 0, len(sheets))
	for name := range sheets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name != "Sheet1" {
			if _, err := f.NewSheet(name); err != nil {
				t.Fatalf("NewSheet(%s) error: %v", name, err)
			}
		}
		for cell, text := range sheets[name] {
			var err error
			if strings.HasPrefix(text, "=") {
				err = f.SetCellFormula(name, cell, strings.TrimPrefix(text, "="))
			} else {
				err = f.SetCellValue(name, cell, text)
			}
			if err != nil {
				t.Fatalf("setting %s!%s: %v", name, cell, err)
			}
		}
	}
	return f
}

// SaveWorkbook writes f to dir/name on disk and returns the path.
func SaveWorkbook(t *testing.T, f *excelize.File, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs(%s) error: %v", path, err)
	}
	return path
}
