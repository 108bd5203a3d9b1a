// Package extract reads the tables of a Tableau extract database and writes
// them out as CSV files.
//
// The flow is: open a session on the extract, enumerate every schema and
// table, export the tables of the eligible schemas one after another, and
// return a Manifest that lists every table seen together with its outcome.
// A table that fails to export is recorded on its manifest entry and never
// stops the others.
package extract

import "context"

// Entry is the outcome for one (schema, table) pair found in the catalog.
type Entry struct {
	Schema      string `json:"schema"`
	Table       string `json:"table"`       // as stored in the catalog, quotes stripped
	CleanTable  string `json:"clean_table"` // used for the output file name
	Exported    bool   `json:"exported"`
	Skipped     bool   `json:"skipped,omitempty"` // schema not eligible for export
	Error       string `json:"error,omitempty"`
	CSVFilename string `json:"csv_filename,omitempty"`
}

// Manifest is the result of one extraction run.
type Manifest struct {
	CSVFiles []string `json:"csv_files"` // local paths, in discovery order
	Tables   []Entry  `json:"tables"`
}

// ExportedCount returns how many tables produced a CSV.
func (m *Manifest) ExportedCount() int {
	n := 0
	for _, t := range m.Tables {
		if t.Exported {
			n++
		}
	}
	return n
}

// FailedCount returns how many eligible tables failed to export.
func (m *Manifest) FailedCount() int {
	n := 0
	for _, t := range m.Tables {
		if t.Error != "" {
			n++
		}
	}
	return n
}

// Engine opens sessions on extract database files.
type Engine interface {
	Open(ctx context.Context, databasePath string) (Session, error)
}

// Session is a connection to one extract database. Close releases the
// connection and any engine process started for it.
type Session interface {
	SchemaNames(ctx context.Context) ([]string, error)
	TableNames(ctx context.Context, schema string) ([]string, error)
	Columns(ctx context.Context, schema, table string) ([]string, error)
	Query(ctx context.Context, sql string) ([][]any, error)
	Close() error
}
