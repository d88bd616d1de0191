package rdbms

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/stream"
)

var postgresTypeNames = map[ColumnType]string{
	ColumnTypeString:    "text",
	ColumnTypeInt64:     "bigint",
	ColumnTypeFloat64:   "double precision",
	ColumnTypeBool:      "boolean",
	ColumnTypeTimestamp: "timestamptz",
}

func postgresColumnType(dataType string) ColumnType {
	switch dataType {
	case "bigint", "integer", "smallint":
		return ColumnTypeInt64
	case "double precision", "real", "numeric":
		return ColumnTypeFloat64
	case "boolean":
		return ColumnTypeBool
	case "timestamp with time zone", "timestamp without time zone":
		return ColumnTypeTimestamp
	default:
		return ColumnTypeString
	}
}

// PostgresSink is a Sink over a pgx connection pool. Loads use COPY.
// The project part of a TableID must name the connected database.
type PostgresSink struct {
	log      logger.Logger
	pool     *pgxpool.Pool
	database string
}

// NewPostgresSink connects to the database in dsn, which can be a URL or a keyword/value string.
func NewPostgresSink(ctx context.Context, log logger.Logger, dsn string) (*PostgresSink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing postgres DSN")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "error creating postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "error connecting to postgres")
	}
	log.Info("Successful database connection to Postgres database ", cfg.ConnConfig.Database)
	return &PostgresSink{log: log, pool: pool, database: cfg.ConnConfig.Database}, nil
}

func (s *PostgresSink) checkDatabase(id TableID) error {
	if s.database != "" && id.Project != s.database {
		return fmt.Errorf("table %v is not in the connected database %q", id, s.database)
	}
	return nil
}

func (s *PostgresSink) TableExists(ctx context.Context, id TableID) (bool, error) {
	if err := s.checkDatabase(id); err != nil {
		return false, err
	}
	var n int64
	err := s.pool.QueryRow(ctx,
		`select count(*) from information_schema.tables where table_schema = $1 and table_name = $2`,
		id.Dataset, id.Table).Scan(&n)
	if err != nil {
		return false, errors.Wrapf(err, "error checking table %v exists", id)
	}
	return n > 0, nil
}

func (s *PostgresSink) CreateTable(ctx context.Context, id TableID, cols []Column) error {
	if err := s.checkDatabase(id); err != nil {
		return err
	}
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%v %v", QuoteIdentifier(c.Name), postgresTypeNames[c.Type])
	}
	q := fmt.Sprintf("create table if not exists %v (%v)", s.relation(id), strings.Join(defs, ", "))
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return errors.Wrapf(err, "error creating table %v", id)
	}
	s.log.Info("created table ", id)
	return nil
}

// relation returns the schema qualified name since Postgres does not address other databases.
func (s *PostgresSink) relation(id TableID) string {
	return pgx.Identifier{id.Dataset, id.Table}.Sanitize()
}

func (s *PostgresSink) tableColumns(ctx context.Context, tx pgx.Tx, id TableID) (map[string]ColumnType, error) {
	rows, err := tx.Query(ctx,
		`select column_name, data_type from information_schema.columns where table_schema = $1 and table_name = $2`,
		id.Dataset, id.Table)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading columns of %v", id)
	}
	defer rows.Close()
	retval := make(map[string]ColumnType)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, errors.Wrapf(err, "error reading columns of %v", id)
		}
		retval[name] = postgresColumnType(dataType)
	}
	return retval, errors.Wrapf(rows.Err(), "error reading columns of %v", id)
}

func (s *PostgresSink) ensureColumns(ctx context.Context, tx pgx.Tx, id TableID, cols []Column) (map[string]ColumnType, error) {
	existing, err := s.tableColumns(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	for _, c := range missingColumns(existing, cols) {
		q := fmt.Sprintf("alter table %v add column if not exists %v %v", s.relation(id), QuoteIdentifier(c.Name), postgresTypeNames[c.Type])
		if _, err := tx.Exec(ctx, q); err != nil {
			return nil, errors.Wrapf(err, "error adding column %v to %v", c.Name, id)
		}
		s.log.Info("added column ", c.Name, " ", c.Type, " to ", id)
		existing[c.Name] = c.Type
	}
	return existing, nil
}

// WithTx runs fn inside a transaction that is committed when fn returns nil.
func (s *PostgresSink) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "error starting transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "error committing transaction")
}

func (s *PostgresSink) EnsureColumns(ctx context.Context, id TableID, cols []Column) error {
	if err := s.checkDatabase(id); err != nil {
		return err
	}
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := s.ensureColumns(ctx, tx, id, cols)
		return err
	})
}

func (s *PostgresSink) Query(ctx context.Context, query string, params ...Param) ([]stream.Record, error) {
	q, args, err := BindParams(query, params, DollarPlaceholder)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error running query")
	}
	defer rows.Close()
	fields := rows.FieldDescriptions()
	retval := make([]stream.Record, 0)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, errors.Wrap(err, "error scanning query row")
		}
		r := stream.NewRecord()
		for i, f := range fields {
			r.SetData(f.Name, vals[i])
		}
		retval = append(retval, r)
	}
	return retval, errors.Wrap(rows.Err(), "error reading query rows")
}

func (s *PostgresSink) Exec(ctx context.Context, query string, params ...Param) (int64, error) {
	q, args, err := BindParams(query, params, DollarPlaceholder)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "error executing statement")
	}
	return tag.RowsAffected(), nil
}

// LoadAppend widens the table and copies all rows in one transaction.
func (s *PostgresSink) LoadAppend(ctx context.Context, id TableID, recs []stream.Record) error {
	if len(recs) == 0 {
		return nil
	}
	if err := s.checkDatabase(id); err != nil {
		return err
	}
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		colTypes, err := s.ensureColumns(ctx, tx, id, InferColumns(recs))
		if err != nil {
			return err
		}
		names, rows, err := rowsForTable(recs, colTypes)
		if err != nil {
			return err
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{id.Dataset, id.Table}, names, pgx.CopyFromRows(rows))
		if err != nil {
			return errors.Wrapf(err, "error copying rows into %v", id)
		}
		s.log.Info("loaded ", n, " rows into ", id)
		return nil
	})
}

func (s *PostgresSink) Close() {
	s.pool.Close()
}
