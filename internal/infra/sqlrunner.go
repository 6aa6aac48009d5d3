package infra

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SQLExecutor is the query surface the Postgres store needs. Both the pool
// runner and the runner bound to a transaction satisfy it.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// TxExecutor adds transactions to SQLExecutor.
type TxExecutor interface {
	SQLExecutor
	InTx(ctx context.Context, fn func(SQLExecutor) error) error
}

// SessionProvider pins one connection for session scoped state such as
// advisory locks.
type SessionProvider interface {
	Session(ctx context.Context) (SQLExecutor, func(), error)
}

// DefaultSlowQuery is the duration after which a statement is logged at warn.
const DefaultSlowQuery = 250 * time.Millisecond

var (
	markerPattern = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)

	ErrNoMarker   = errors.New("sql: statement has no --sql marker")
	ErrNoPool     = errors.New("sql: runner has no pool")
	errEmptyQuery = errors.New("sql: empty statement")
)

// statement is a marker-tagged query split into its marker and body.
type statement struct {
	marker string
	body   string
}

func parseStatement(query string) (statement, error) {
	head, body, _ := strings.Cut(strings.TrimSpace(query), "\n")
	if head == "" {
		return statement{}, errEmptyQuery
	}
	m := markerPattern.FindStringSubmatch(strings.TrimSpace(head))
	if m == nil {
		return statement{}, ErrNoMarker
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return statement{}, fmt.Errorf("sql[%s]: %w", m[1], errEmptyQuery)
	}
	return statement{marker: m[1], body: body}, nil
}

// conn is what pgxpool.Pool and pgx.Tx have in common.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SQLRunner only executes statements that start with a "--sql <uuid>" marker
// line. Each statement is logged under its marker with its duration.
type SQLRunner struct {
	pool  *pgxpool.Pool
	conn  conn
	log   zerolog.Logger
	slow  time.Duration
	inTx  bool
	nowFn func() time.Time
}

func NewSQLRunner(pool *pgxpool.Pool, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{
		pool:  pool,
		conn:  pool,
		log:   logger.With().Str("component", "sql").Logger(),
		slow:  DefaultSlowQuery,
		nowFn: time.Now,
	}
}

// WithSlowThreshold returns a copy that warns on statements slower than d.
func (r *SQLRunner) WithSlowThreshold(d time.Duration) *SQLRunner {
	cp := *r
	cp.slow = d
	return &cp
}

// InTx runs fn in a transaction that commits when fn returns nil.
func (r *SQLRunner) InTx(ctx context.Context, fn func(SQLExecutor) error) error {
	if r.pool == nil {
		return ErrNoPool
	}
	started := r.nowFn()
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		bound := *r
		bound.conn = tx
		bound.inTx = true
		return fn(&bound)
	})
	evt := r.log.Debug()
	if err != nil {
		evt = r.log.Warn().Err(err)
	}
	evt.Dur("duration", r.nowFn().Sub(started)).Bool("committed", err == nil).Msg("sql tx")
	return err
}

// Session acquires a dedicated pool connection. Statements on the returned
// executor all run on it until release is called.
func (r *SQLRunner) Session(ctx context.Context) (SQLExecutor, func(), error) {
	if r.pool == nil {
		return nil, nil, ErrNoPool
	}
	c, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("sql: acquire session: %w", err)
	}
	bound := *r
	bound.conn = c
	return &bound, c.Release, nil
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	st, err := parseStatement(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	started := r.nowFn()
	tag, err := r.conn.Exec(ctx, st.body, args...)
	r.trace(st, "exec", started, err)
	return tag, err
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	st, err := parseStatement(query)
	if err != nil {
		return nil, err
	}
	started := r.nowFn()
	rows, err := r.conn.Query(ctx, st.body, args...)
	r.trace(st, "query", started, err)
	return rows, err
}

// QueryRow defers both the error and the trace line to Scan.
func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	st, err := parseStatement(query)
	if err != nil {
		return failedRow{err: err}
	}
	return &tracedRow{
		row:     r.conn.QueryRow(ctx, st.body, args...),
		runner:  r,
		stmt:    st,
		started: r.nowFn(),
	}
}

func (r *SQLRunner) trace(st statement, op string, started time.Time, err error) {
	elapsed := r.nowFn().Sub(started)
	var evt *zerolog.Event
	switch {
	case err != nil && !IsNoRows(err):
		evt = r.log.Error().Err(err)
	case r.slow > 0 && elapsed >= r.slow:
		evt = r.log.Warn()
	default:
		evt = r.log.Debug()
	}
	evt.Str("marker", st.marker).
		Str("op", op).
		Bool("tx", r.inTx).
		Dur("duration", elapsed).
		Msg("sql statement")
}

type tracedRow struct {
	row     pgx.Row
	runner  *SQLRunner
	stmt    statement
	started time.Time
}

func (t *tracedRow) Scan(dest ...any) error {
	err := t.row.Scan(dest...)
	t.runner.trace(t.stmt, "query_row", t.started, err)
	return err
}

type failedRow struct{ err error }

func (f failedRow) Scan(...any) error { return f.err }

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

var (
	_ TxExecutor      = (*SQLRunner)(nil)
	_ SessionProvider = (*SQLRunner)(nil)
)
