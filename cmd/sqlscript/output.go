package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
	jsoniter "github.com/json-iterator/go"
	"github.com/mxs-workbench/sqlscript/database"
	"github.com/mxs-workbench/sqlscript/sqlsplit"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// scriptOutput is what is printed per script.
type scriptOutput struct {
	File       string                 `json:"file" yaml:"file"`
	Statements []sqlsplit.Statement   `json:"statements,omitempty" yaml:"statements,omitempty"`
	Result     *database.ScriptResult `json:"result,omitempty" yaml:"result,omitempty"`
	Error      string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

// writeOutputs writes outputs to w in the given format, which is one of text, json and yaml.
func writeOutputs(w io.Writer, format string, outputs []scriptOutput) error {
	switch format {
	case "json":
		raw, err := json.MarshalIndent(outputs, "", "  ")
		if err != nil {
			return errors.Wrap(err, "can't encode JSON")
		}

		_, err = fmt.Fprintf(w, "%s\n", raw)

		return errors.WithStack(err)
	case "yaml":
		raw, err := yaml.Marshal(outputs)
		if err != nil {
			return errors.Wrap(err, "can't encode YAML")
		}

		_, err = w.Write(raw)

		return errors.WithStack(err)
	case "text", "":
		for _, o := range outputs {
			if err := writeText(w, o); err != nil {
				return err
			}
		}

		return nil
	default:
		return errors.Errorf("unknown output format %q", format)
	}
}

// writeText writes a script's statements as SQL, with DELIMITER directives where needed,
// so that split output can be fed back as input.
func writeText(w io.Writer, o scriptOutput) error {
	var b strings.Builder
	sw := sqlsplit.NewWriter(&b)

	fmt.Fprintf(&b, "-- %s\n", o.File)

	for i, stmt := range o.Statements {
		fmt.Fprintf(&b, "-- statement %d, bytes %d-%d\n", i+1, stmt.StartOffset, stmt.EndOffset)
		_ = sw.Write(stmt)
	}

	if o.Result != nil {
		for i, sr := range o.Result.Statements {
			fmt.Fprintf(&b, "-- statement %d, %s\n", i+1, sr.Duration)
			_ = sw.Write(sr.Statement)

			if sr.Columns == nil {
				fmt.Fprintf(&b, "%d rows affected\n", sr.RowsAffected)
				continue
			}

			writeTable(&b, sr)
		}
	}

	_ = sw.Close()

	if o.Error != "" {
		fmt.Fprintf(&b, "-- error: %s\n", o.Error)
	}

	_, err := io.WriteString(w, b.String())

	return errors.WithStack(err)
}

func writeTable(b *strings.Builder, sr database.StatementResult) {
	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, strings.Join(sr.Columns, "\t"))

	for _, row := range sr.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprint(v)
			}
		}

		_, _ = fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	_ = tw.Flush()

	suffix := ""
	if sr.Truncated {
		suffix = ", truncated"
	}
	fmt.Fprintf(b, "%d rows%s\n", len(sr.Rows), suffix)
}
