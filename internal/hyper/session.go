package hyper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/errs"
	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/extract"
)

const (
	schemasQuery = `
		SELECT nspname
		FROM pg_catalog.pg_namespace
		WHERE nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		  AND nspname NOT LIKE 'pg\_temp%'
		ORDER BY nspname`

	tablesQuery = `
		SELECT c.relname
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind = 'r'
		ORDER BY c.relname`

	columnsQuery = `
		SELECT a.attname
		FROM pg_catalog.pg_attribute a
		JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2
		  AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum`
)

// Engine opens extract files on a Hyper server. It implements extract.Engine.
type Engine struct {
	cfg Config
}

var _ extract.Engine = (*Engine)(nil)

// NewEngine returns an Engine for cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Open connects to the extract at databasePath, launching hyperd first
// unless an endpoint is configured.
func (e *Engine) Open(ctx context.Context, databasePath string) (extract.Session, error) {
	if e.cfg.Endpoint != "" {
		dial := func(ctx context.Context) (*pgx.Conn, error) {
			return connect(ctx, e.cfg.Endpoint, e.cfg.User, databasePath)
		}
		conn, err := dial(ctx)
		if err != nil {
			return nil, errs.E(errs.KindConnection, "hyper.open", err)
		}
		return &Session{conn: conn, dial: dial}, nil
	}

	proc, err := startProcess(e.cfg)
	if err != nil {
		return nil, errs.E(errs.KindConnection, "hyper.start", err)
	}
	dial := func(ctx context.Context) (*pgx.Conn, error) {
		return connect(ctx, proc.addr, e.cfg.User, databasePath)
	}

	readyCtx, cancel := context.WithTimeout(ctx, e.cfg.StartTimeout)
	defer cancel()

	conn, err := waitReady(readyCtx, proc, dial)
	if err != nil {
		proc.stop()
		return nil, errs.E(errs.KindConnection, "hyper.open", err)
	}
	return &Session{conn: conn, proc: proc, dial: dial}, nil
}

// ConnConfig builds the pgx configuration for opening databasePath on the
// server at addr.
func ConnConfig(addr, user, databasePath string) (*pgx.ConnConfig, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", addr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint port %q: %w", portStr, err)
	}

	cfg, err := pgx.ParseConfig("sslmode=disable")
	if err != nil {
		return nil, err
	}
	cfg.Host = host
	cfg.Port = uint16(port)
	cfg.Fallbacks = nil
	cfg.User = user
	cfg.Password = ""
	cfg.Database = databasePath
	cfg.ConnectTimeout = 5 * time.Second
	// hyperd does not keep server-side prepared statements across our calls.
	cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	return cfg, nil
}

func connect(ctx context.Context, addr, user, databasePath string) (*pgx.Conn, error) {
	cfg, err := ConnConfig(addr, user, databasePath)
	if err != nil {
		return nil, err
	}
	return pgx.ConnectConfig(ctx, cfg)
}

// Session is an open extract database.
//
// pgx closes a connection whose statement is cancelled, which is how a table
// timeout ends a query. The next call then dials a new connection to the same
// database, so one slow table does not fail the ones after it.
type Session struct {
	conn *pgx.Conn
	proc *process
	dial func(ctx context.Context) (*pgx.Conn, error)
}

// SchemaNames lists user-visible schemas.
func (s *Session) SchemaNames(ctx context.Context) ([]string, error) {
	return s.names(ctx, schemasQuery)
}

// TableNames lists the tables of schema.
func (s *Session) TableNames(ctx context.Context, schema string) ([]string, error) {
	return s.names(ctx, tablesQuery, schema)
}

// Columns lists the column names of a table in ordinal order.
func (s *Session) Columns(ctx context.Context, schema, table string) ([]string, error) {
	return s.names(ctx, columnsQuery, schema, table)
}

// Query runs sql and materializes every row.
func (s *Session) Query(ctx context.Context, sql string) ([][]any, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]any, error) {
		return row.Values()
	})
}

func (s *Session) names(ctx context.Context, sql string, args ...any) ([]string, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// acquire returns the open connection, reconnecting if the last one was
// closed.
func (s *Session) acquire(ctx context.Context) (*pgx.Conn, error) {
	if s.conn != nil && !s.conn.IsClosed() {
		return s.conn, nil
	}
	if s.dial == nil {
		return nil, errors.New("connection closed")
	}
	if s.proc != nil {
		if err := s.proc.alive(); err != nil {
			return nil, err
		}
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconnect: %w", err)
	}
	slog.Debug("reconnected to extract database", "database", conn.Config().Database)
	s.conn = conn
	return conn, nil
}

// Close closes the connection, then stops the server if the session owns one.
func (s *Session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errList []error
	if err := s.conn.Close(ctx); err != nil {
		errList = append(errList, fmt.Errorf("close connection: %w", err))
	}
	if s.proc != nil {
		if err := s.proc.stop(); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}
