package extract

import (
	"encoding/csv"
	"fmt"
	"os"
)

// WriteCSV writes header and rows to path. Fields holding the delimiter, a
// quote or a line break are quoted per RFC 4180. On failure the partial file
// is removed.
func WriteCSV(path string, header []string, rows [][]any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close csv: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("row %d has %d values, want %d", i+1, len(row), len(header))
		}
		if err := w.Write(FormatRow(row)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
