package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/errs"
)

// DefaultExportSchema is the schema Tableau stores extract tables in.
const DefaultExportSchema = "Extract"

// Options configures a Reader.
type Options struct {
	// ExportSchemas lists the schemas whose tables are exported, compared
	// case-insensitively. Tables of other schemas are listed as skipped.
	// Empty means DefaultExportSchema.
	ExportSchemas []string

	// Cleaner derives output table names. Nil applies Clean.
	Cleaner *NameCleaner

	// TableTimeout bounds the column lookup, query and CSV write of a single
	// table. Zero means no bound.
	TableTimeout time.Duration

	Observer Observer
}

// Reader exports the tables of extract databases to CSV.
type Reader struct {
	engine  Engine
	schemas map[string]bool
	cleaner *NameCleaner
	timeout time.Duration
	obs     Observer
}

// NewReader creates a Reader that opens databases through engine.
func NewReader(engine Engine, opts Options) *Reader {
	names := opts.ExportSchemas
	if len(names) == 0 {
		names = []string{DefaultExportSchema}
	}
	schemas := make(map[string]bool, len(names))
	for _, s := range names {
		schemas[strings.ToLower(Normalize(strings.TrimSpace(s)))] = true
	}

	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}

	return &Reader{
		engine:  engine,
		schemas: schemas,
		cleaner: opts.Cleaner,
		timeout: opts.TableTimeout,
		obs:     obs,
	}
}

// Eligible reports whether tables of schema are exported.
func (r *Reader) Eligible(schema string) bool {
	return r.schemas[strings.ToLower(Normalize(schema))]
}

// SelectAllSQL is the full scan query for a table.
func SelectAllSQL(schema, table string) string {
	return "SELECT * FROM " + pgx.Identifier{schema, table}.Sanitize()
}

// ReadTables enumerates every table in the database at databasePath and
// exports the eligible ones into outputDir.
//
// Only failures to open the database or read its catalog are returned as
// errors; a table that fails to export is reported on its manifest entry.
func (r *Reader) ReadTables(ctx context.Context, databasePath, outputDir, workbook string) (*Manifest, error) {
	start := time.Now()
	r.obs.Observe(ctx, Event{Kind: EventStart, Workbook: workbook, File: databasePath})

	sess, err := r.engine.Open(ctx, databasePath)
	if err != nil {
		return nil, errs.E(errs.KindConnection, "extract.open", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.obs.Observe(ctx, Event{Kind: EventError, Workbook: workbook, Err: fmt.Errorf("close session: %w", cerr)})
		}
	}()

	schemas, err := sess.SchemaNames(ctx)
	if err != nil {
		return nil, errs.E(errs.KindConnection, "extract.schemas", err)
	}

	m := &Manifest{CSVFiles: []string{}, Tables: []Entry{}}
	used := make(map[string]bool)

	for _, rawSchema := range schemas {
		schema := Normalize(rawSchema)

		tables, err := sess.TableNames(ctx, rawSchema)
		if err != nil {
			return nil, errs.E(errs.KindConnection, "extract.tables", fmt.Errorf("schema %q: %w", schema, err))
		}
		r.obs.Observe(ctx, Event{Kind: EventSchema, Workbook: workbook, Schema: schema, Tables: len(tables)})

		for _, rawTable := range tables {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("extraction interrupted: %w", err)
			}

			entry := r.readTable(ctx, sess, workbook, schema, rawTable, outputDir, used)
			m.Tables = append(m.Tables, entry)
			if entry.Exported {
				m.CSVFiles = append(m.CSVFiles, filepath.Join(outputDir, entry.CSVFilename))
			}
		}
	}

	r.obs.Observe(ctx, Event{
		Kind:     EventDone,
		Workbook: workbook,
		Tables:   len(m.Tables),
		Exported: len(m.CSVFiles),
		Duration: time.Since(start),
	})
	return m, nil
}

func (r *Reader) readTable(ctx context.Context, sess Session, workbook, schema, rawTable, outputDir string, used map[string]bool) Entry {
	table := Normalize(rawTable)
	clean := r.cleaner.Clean(table)
	if clean == "" {
		clean = table
	}

	entry := Entry{Schema: schema, Table: table, CleanTable: clean}
	r.obs.Observe(ctx, Event{Kind: EventTable, Workbook: workbook, Schema: schema, Table: table})

	if !r.Eligible(schema) {
		entry.Skipped = true
		r.obs.Observe(ctx, Event{Kind: EventSkip, Workbook: workbook, Schema: schema, Table: table})
		return entry
	}

	name := uniqueName(CSVName(schema, clean), used)
	start := time.Now()
	rows, err := r.exportTable(ctx, sess, schema, table, filepath.Join(outputDir, name))
	if err != nil {
		err = errs.E(errs.KindTableExport, fmt.Sprintf("export %s.%s", schema, table), err)
		entry.Error = err.Error()
		r.obs.Observe(ctx, Event{Kind: EventError, Workbook: workbook, Schema: schema, Table: table, Err: err})
		return entry
	}

	entry.Exported = true
	entry.CSVFilename = name
	r.obs.Observe(ctx, Event{
		Kind:     EventExport,
		Workbook: workbook,
		Schema:   schema,
		Table:    table,
		File:     name,
		Rows:     rows,
		Duration: time.Since(start),
	})
	return entry
}

func (r *Reader) exportTable(ctx context.Context, sess Session, schema, table, path string) (int, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cols, err := sess.Columns(ctx, schema, table)
	if err != nil {
		return 0, fmt.Errorf("get columns: %w", err)
	}
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = Normalize(c)
	}

	rows, err := sess.Query(ctx, SelectAllSQL(schema, table))
	if err != nil {
		return 0, fmt.Errorf("query: %w", err)
	}

	if err := WriteCSV(path, header, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// uniqueName returns name, or name with a "-N" counter before ".csv" when an
// earlier table of the run already took it.
func uniqueName(name string, used map[string]bool) string {
	if !used[name] {
		used[name] = true
		return name
	}
	base := strings.TrimSuffix(name, ".csv")
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d.csv", base, i)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}
