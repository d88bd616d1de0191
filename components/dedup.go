package components

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/rdbms"
	"github.com/relloyd/deskpipe/stream"
)

type dedupKey struct {
	column string
	typ    rdbms.ColumnType
}

var (
	dedupKeyChat   = dedupKey{column: constants.FieldChatNumber, typ: rdbms.ColumnTypeInt64}
	dedupKeyTicket = dedupKey{column: constants.FieldTicketNumber, typ: rdbms.ColumnTypeString}
)

// dedupKeys returns the natural key columns checked for policy.
func dedupKeys(policy string) ([]dedupKey, error) {
	switch policy {
	case "", constants.DedupPolicyIndependent:
		return []dedupKey{dedupKeyChat, dedupKeyTicket}, nil
	case constants.DedupPolicyTicket:
		return []dedupKey{dedupKeyTicket}, nil
	case constants.DedupPolicyChat:
		return []dedupKey{dedupKeyChat}, nil
	default:
		return nil, fmt.Errorf("unsupported dedup policy %q", policy)
	}
}

// ValidateDedupPolicy returns an error if policy is not one of independent, ticket or chat.
func ValidateDedupPolicy(policy string) error {
	_, err := dedupKeys(policy)
	return err
}

// Dedup drops candidate rows whose natural key value already exists in the target table.
// It filters on existence only; rows are never updated.
type Dedup struct {
	Log    logger.Logger
	Sink   rdbms.Sink
	Table  rdbms.TableID
	Policy string
}

// Filter returns the rows whose keys are new, in their input order.
// Each key column of the policy that appears in rows is checked in turn.
func (d *Dedup) Filter(ctx context.Context, rows []stream.Record) ([]stream.Record, error) {
	keys, err := dedupKeys(d.Policy)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}
	exists, err := d.Sink.TableExists(ctx, d.Table)
	if err != nil {
		return nil, err
	}
	if !exists {
		d.Log.Info("table ", d.Table, " does not exist yet; all ", len(rows), " rows are new")
		return rows, nil
	}
	for _, k := range keys {
		if rows, err = d.filterColumn(ctx, rows, k); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (d *Dedup) filterColumn(ctx context.Context, rows []stream.Record, k dedupKey) ([]stream.Record, error) {
	values, present := distinctKeyValues(rows, k)
	if !present || values == nil {
		return rows, nil
	}
	if err := d.Sink.EnsureColumns(ctx, d.Table, []rdbms.Column{{Name: k.column, Type: k.typ}}); err != nil {
		return nil, err
	}
	col := rdbms.QuoteIdentifier(k.column)
	q := fmt.Sprintf("select distinct %v from %v where %v in (@values)", col, d.Table.Quoted(), col)
	existing, err := d.Sink.Query(ctx, q, rdbms.NewParam("values", values))
	if err != nil {
		return nil, errors.Wrapf(err, "error looking up existing %v values", k.column)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		if v, ok := stream.JoinKey(r.GetData(k.column)); ok {
			seen[v] = struct{}{}
		}
	}
	retval := make([]stream.Record, 0, len(rows))
	for _, r := range rows {
		if v, ok := stream.JoinKey(r.GetData(k.column)); ok {
			if _, dup := seen[v]; dup {
				continue
			}
		}
		retval = append(retval, r)
	}
	d.Log.Info("dedup on ", k.column, " dropped ", len(rows)-len(retval), " of ", len(rows), " rows")
	return retval, nil
}

// distinctKeyValues collects the distinct non-null values of k.column in rows, typed for the query.
// present reports whether any row has the column at all.
func distinctKeyValues(rows []stream.Record, k dedupKey) (values interface{}, present bool) {
	seen := make(map[string]struct{})
	ints := make([]int64, 0)
	strs := make([]string, 0)
	for _, r := range rows {
		if r.HasData(k.column) {
			present = true
		}
		v, ok := stream.JoinKey(r.GetData(k.column))
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if k.typ == rdbms.ColumnTypeInt64 {
			if i, err := strconv.ParseInt(v, 10, 64); err == nil {
				ints = append(ints, i)
			}
			continue
		}
		strs = append(strs, v)
	}
	if k.typ == rdbms.ColumnTypeInt64 {
		if len(ints) == 0 {
			return nil, present
		}
		return ints, present
	}
	if len(strs) == 0 {
		return nil, present
	}
	return strs, present
}
