package actions

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/relloyd/deskpipe/helper"
	"github.com/relloyd/deskpipe/stream"
)

type QueryConfig struct {
	Dsn              string `errorTxt:"sink DSN" mandatory:"yes"`
	Query            string `errorTxt:"query" mandatory:"yes"`
	PrintHeader      bool
	DryRun           bool
	LogLevel         string
	StackDumpOnPanic bool
	Out              io.Writer
	Env              *Env
}

// RunQuery executes cfg.Query against the sink. Statements that return rows are printed as CSV with
// columns in sorted order; anything else prints the number of rows affected.
func RunQuery(ctx context.Context, cfg *QueryConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	if cfg.DryRun {
		_, err := fmt.Fprintln(out, cfg.Query)
		return err
	}
	env := cfg.Env.orDefault()
	log := env.logger(cfg.LogLevel, cfg.StackDumpOnPanic)
	sink, err := env.OpenSink(ctx, log, cfg.Dsn)
	if err != nil {
		return err
	}
	defer sink.Close()
	if !returnsRows(cfg.Query) {
		n, err := sink.Exec(ctx, cfg.Query)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%v rows affected\n", n)
		return err
	}
	rows, err := sink.Query(ctx, cfg.Query)
	if err != nil {
		return err
	}
	return writeCsv(out, rows, cfg.PrintHeader)
}

func returnsRows(q string) bool {
	f := strings.Fields(strings.ToLower(q))
	if len(f) == 0 {
		return false
	}
	switch f[0] {
	case "select", "with", "show", "describe", "desc", "explain":
		return true
	}
	return false
}

func writeCsv(out io.Writer, rows []stream.Record, printHeader bool) error {
	w := csv.NewWriter(out)
	keys := stream.GetUnionKeys(rows)
	if printHeader {
		if err := w.Write(keys); err != nil {
			return fmt.Errorf("error outputting SQL header: %v", err)
		}
	}
	for _, r := range rows {
		vals := make([]interface{}, len(keys))
		for i, k := range keys {
			vals[i] = r.GetData(k)
		}
		if err := w.Write(helper.InterfaceToString(vals)); err != nil {
			return fmt.Errorf("error outputting SQL row: %v", err)
		}
	}
	w.Flush()
	return w.Error()
}
