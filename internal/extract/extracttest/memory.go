// Package extracttest provides an in-memory extract engine for tests.
package extracttest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/extract"
)

// Table is one table held by a MemoryEngine.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any

	// ColumnsErr and QueryErr make the respective call fail for this table.
	ColumnsErr error
	QueryErr   error
}

// Schema is one schema held by a MemoryEngine.
type Schema struct {
	Name   string
	Tables []Table
}

// MemoryEngine serves a fixed catalog regardless of the database path.
// Names may carry catalog quoting; lookups compare normalized names.
type MemoryEngine struct {
	Schemas []Schema

	// OpenErr makes Open fail; SchemasErr makes SchemaNames fail.
	OpenErr    error
	SchemasErr error

	mu      sync.Mutex
	opened  []string
	closed  int
	queries []string
}

var _ extract.Engine = (*MemoryEngine)(nil)

// Open returns a session over the configured catalog.
func (e *MemoryEngine) Open(ctx context.Context, databasePath string) (extract.Session, error) {
	if e.OpenErr != nil {
		return nil, e.OpenErr
	}
	e.mu.Lock()
	e.opened = append(e.opened, databasePath)
	e.mu.Unlock()
	return &memorySession{engine: e}, nil
}

// Opened returns the database paths passed to Open.
func (e *MemoryEngine) Opened() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.opened...)
}

// Closed returns how many sessions were closed.
func (e *MemoryEngine) Closed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Queries returns every SQL statement run, in order.
func (e *MemoryEngine) Queries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.queries...)
}

func (e *MemoryEngine) table(schema, name string) (*Table, error) {
	for i := range e.Schemas {
		if extract.Normalize(e.Schemas[i].Name) != schema {
			continue
		}
		for j := range e.Schemas[i].Tables {
			if extract.Normalize(e.Schemas[i].Tables[j].Name) == name {
				return &e.Schemas[i].Tables[j], nil
			}
		}
	}
	return nil, fmt.Errorf("table %q.%q does not exist", schema, name)
}

type memorySession struct {
	engine *MemoryEngine
}

func (s *memorySession) SchemaNames(ctx context.Context) ([]string, error) {
	if s.engine.SchemasErr != nil {
		return nil, s.engine.SchemasErr
	}
	names := make([]string, len(s.engine.Schemas))
	for i, sc := range s.engine.Schemas {
		names[i] = sc.Name
	}
	return names, nil
}

func (s *memorySession) TableNames(ctx context.Context, schema string) ([]string, error) {
	for _, sc := range s.engine.Schemas {
		if sc.Name == schema {
			names := make([]string, len(sc.Tables))
			for i, t := range sc.Tables {
				names[i] = t.Name
			}
			return names, nil
		}
	}
	return nil, fmt.Errorf("schema %q does not exist", schema)
}

func (s *memorySession) Columns(ctx context.Context, schema, table string) ([]string, error) {
	t, err := s.engine.table(schema, table)
	if err != nil {
		return nil, err
	}
	if t.ColumnsErr != nil {
		return nil, t.ColumnsErr
	}
	return t.Columns, nil
}

// Query only understands the statements built by extract.SelectAllSQL.
func (s *memorySession) Query(ctx context.Context, sql string) ([][]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
		return nil, context.DeadlineExceeded
	}
	s.engine.mu.Lock()
	s.engine.queries = append(s.engine.queries, sql)
	s.engine.mu.Unlock()

	for _, sc := range s.engine.Schemas {
		for _, t := range sc.Tables {
			if extract.SelectAllSQL(extract.Normalize(sc.Name), extract.Normalize(t.Name)) != sql {
				continue
			}
			if t.QueryErr != nil {
				return nil, t.QueryErr
			}
			return t.Rows, nil
		}
	}
	return nil, fmt.Errorf("unexpected query: %s", sql)
}

func (s *memorySession) Close() error {
	s.engine.mu.Lock()
	s.engine.closed++
	s.engine.mu.Unlock()
	return nil
}
