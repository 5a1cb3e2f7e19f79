package sheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrUnsupportedFormat is returned by Open for unknown file types.
var ErrUnsupportedFormat = errors.New("unsupported workbook format")

// Open opens a workbook by file extension: .xlsx/.xlsm through excelize,
// .csv through the OS filesystem.
func Open(path string) (Workbook, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return OpenExcel(path)
	case ".csv":
		return OpenCSVWorkbook(afero.NewOsFs(), path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Supported reports whether Open understands the file at path.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}
