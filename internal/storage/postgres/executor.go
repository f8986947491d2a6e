package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/rsvp/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Statement is a SQL text with @name placeholders and a stable label for metrics and errors.
type Statement struct {
	Name string
	SQL  string
}

// ParamType is the declared SQL type of a Param. The zero value is invalid.
type ParamType uint8

const (
	TypeText ParamType = iota + 1
	TypeInt
	TypeDateTime
	TypeBool
)

func (t ParamType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeInt:
		return "int"
	case TypeDateTime:
		return "datetime"
	case TypeBool:
		return "bool"
	default:
		return fmt.Sprintf("ParamType(%d)", uint8(t))
	}
}

// Param is a named statement argument with an explicit declared type.
// A nil Value binds SQL NULL.
type Param struct {
	Type  ParamType
	Value any
}

// Params binds statement placeholders by name.
type Params map[string]Param

// Text binds a TEXT value.
func Text(v string) Param {
	return Param{Type: TypeText, Value: v}
}

// Int binds an integer value.
func Int(v int64) Param {
	return Param{Type: TypeInt, Value: v}
}

// DateTime binds a TIMESTAMPTZ value.
func DateTime(v time.Time) Param {
	return Param{Type: TypeDateTime, Value: v}
}

// Bool binds a BOOLEAN value.
func Bool(v bool) Param {
	return Param{Type: TypeBool, Value: v}
}

// NullText binds a TEXT value, or NULL when v is nil.
func NullText(v *string) Param {
	if v == nil {
		return Param{Type: TypeText}
	}
	return Text(*v)
}

var ErrParamType = errors.New("parameter type mismatch")

func (p Param) bindValue() (any, error) {
	if p.Value == nil {
		return nil, nil
	}
	switch p.Type {
	case TypeText:
		if v, ok := p.Value.(string); ok {
			return v, nil
		}
	case TypeInt:
		switch v := p.Value.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		}
	case TypeDateTime:
		if v, ok := p.Value.(time.Time); ok {
			return v, nil
		}
	case TypeBool:
		if v, ok := p.Value.(bool); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s cannot hold %T", ErrParamType, p.Type, p.Value)
}

func (p Params) namedArgs() (pgx.NamedArgs, error) {
	args := make(pgx.NamedArgs, len(p))
	for name, param := range p {
		value, err := param.bindValue()
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", name, err)
		}
		args[name] = value
	}
	return args, nil
}

// Row is one result row as an ordered column name to value mapping.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the raw value of column and whether the row has it.
func (r Row) Get(column string) (any, bool) {
	for i, name := range r.Columns {
		if name == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Int64 reads an integer column of any width.
func (r Row) Int64(column string) (int64, error) {
	value, ok := r.Get(column)
	if !ok {
		return 0, fmt.Errorf("column %s not in row", column)
	}
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("column %s: expected integer, got %T", column, value)
	}
}

// String reads a non-null text column.
func (r Row) String(column string) (string, error) {
	value, ok := r.Get(column)
	if !ok {
		return "", fmt.Errorf("column %s not in row", column)
	}
	v, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("column %s: expected text, got %T", column, value)
	}
	return v, nil
}

// NullString returns nil for SQL NULL.
func (r Row) NullString(column string) (*string, error) {
	value, ok := r.Get(column)
	if !ok {
		return nil, fmt.Errorf("column %s not in row", column)
	}
	if value == nil {
		return nil, nil
	}
	v, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("column %s: expected text, got %T", column, value)
	}
	return &v, nil
}

// Time reads a non-null timestamp column.
func (r Row) Time(column string) (time.Time, error) {
	value, ok := r.Get(column)
	if !ok {
		return time.Time{}, fmt.Errorf("column %s not in row", column)
	}
	v, ok := value.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("column %s: expected timestamp, got %T", column, value)
	}
	return v, nil
}

// Result holds the rows a statement returned and the count it affected.
type Result struct {
	Rows         []Row
	RowsAffected int64
}

// QueryError wraps any failure while binding or running a statement.
type QueryError struct {
	Statement string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Statement, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Executor runs one statement per call on a connection acquired for that call
// and released afterwards. Inside InTx all statements share the transaction.
type Executor struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewExecutor(pool *pgxpool.Pool) (*Executor, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres executor: pool is nil")
	}
	return &Executor{pool: pool}, nil
}

func (e *Executor) Execute(ctx context.Context, stmt Statement, params Params) (result Result, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordQuery(stmt.Name, start, err)
		if err != nil {
			err = &QueryError{Statement: stmt.Name, Err: err}
		}
	}()

	args, err := params.namedArgs()
	if err != nil {
		return Result{}, err
	}

	if e.tx != nil {
		return run(ctx, e.tx, stmt.SQL, args)
	}

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return run(ctx, conn, stmt.SQL, args)
}

// InTx runs fn on a transaction-scoped executor. It commits when fn returns nil
// and rolls back otherwise. Nested calls reuse the open transaction.
func (e *Executor) InTx(ctx context.Context, fn func(context.Context, *Executor) error) error {
	if e.tx != nil {
		return fn(ctx, e)
	}

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return &QueryError{Statement: "begin", Err: fmt.Errorf("acquire connection: %w", err)}
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return &QueryError{Statement: "begin", Err: err}
	}

	if err := fn(ctx, &Executor{pool: e.pool, tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return &QueryError{Statement: "commit", Err: err}
	}
	return nil
}

func (e *Executor) Ping(ctx context.Context) error {
	return e.pool.Ping(ctx)
}

func run(ctx context.Context, q querier, sql string, args pgx.NamedArgs) (Result, error) {
	rows, err := q.Query(ctx, sql, args)
	if err != nil {
		return Result{}, err
	}
	return collect(rows)
}

// collect drains rows. pgx closes rows once Next reports false, which makes
// Err and CommandTag final.
func collect(rows pgx.Rows) (Result, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name
	}

	var result Result
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return Result{}, fmt.Errorf("read row: %w", err)
		}
		result.Rows = append(result.Rows, Row{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}
	result.RowsAffected = rows.CommandTag().RowsAffected()
	return result, nil
}
