package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/rdb/entity"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query failure (storage error, unknown relation, etc.)
	ExitCommandError = 2 // Command error (bad flags, missing schema, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Records is the output of the find and related commands.
type Records struct {
	Entity string           `json:"entity" msgpack:"entity"`
	Total  *int             `json:"total,omitempty" msgpack:"total,omitempty"`
	Rows   []map[string]any `json:"rows" msgpack:"rows"`
}

// Value is one named scalar result of the count command.
type Value struct {
	Name  string `json:"name" msgpack:"name"`
	Value any    `json:"value" msgpack:"value"`
}

// OutputFormatter writes results in the configured format.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Collection drains c and writes its records.
func (f *OutputFormatter) Collection(ctx context.Context, c entity.Collection, total *int) error {
	out := Records{Entity: c.EntityType(), Total: total, Rows: []map[string]any{}}
	for e, err := range c.All(ctx) {
		if err != nil {
			return err
		}
		out.Rows = append(out.Rows, e.ValueMap())
	}
	return f.Records(out)
}

// Records writes r.
func (f *OutputFormatter) Records(r Records) error {
	switch f.Format {
	case "json":
		return json.NewEncoder(f.Writer).Encode(r)
	case "msgpack":
		return f.encodeMsgpack(r)
	}
	var columns []string
	for _, row := range r.Rows {
		for k := range row {
			if !slices.Contains(columns, k) {
				columns = append(columns, k)
			}
		}
	}
	slices.Sort(columns)

	w := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = header(col)
	}
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range r.Rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = cell(row[col])
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if r.Total != nil {
		fmt.Fprintf(w, "(%d of %d %s records)\n", len(r.Rows), *r.Total, r.Entity)
	} else {
		fmt.Fprintf(w, "(%d %s records)\n", len(r.Rows), r.Entity)
	}
	return w.Flush()
}

// Values writes named scalar results.
func (f *OutputFormatter) Values(vs []Value) error {
	switch f.Format {
	case "json":
		return json.NewEncoder(f.Writer).Encode(vs)
	case "msgpack":
		return f.encodeMsgpack(vs)
	}
	w := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	for _, v := range vs {
		fmt.Fprintf(w, "%s\t%s\n", header(v.Name), cell(v.Value))
	}
	return w.Flush()
}

func (f *OutputFormatter) encodeMsgpack(v any) error {
	enc := msgpack.NewEncoder(f.Writer)
	enc.SetSortMapKeys(true)
	return enc.Encode(v)
}

// header turns an attribute name into a column title: "accountId" becomes
// "Account Id".
func header(attr string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(entity.ColumnName(attr), "_", " "))
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
