package console

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/phrazzld/querykit/internal/redact"
	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/store"
	"gopkg.in/yaml.v3"
)

// Format selects how results are written.
type Format string

// Output formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q (want table, json or yaml)",
			schema.ErrConfiguration, name)
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	nullStyle   = cellStyle.Foreground(lipgloss.Color("#6B7280"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#DC2626"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// Renderer writes records, errors and narration in one output format.
type Renderer struct {
	out    io.Writer
	format Format
}

// NewRenderer creates a Renderer. An empty format means FormatTable.
func NewRenderer(out io.Writer, format Format) *Renderer {
	if format == "" {
		format = FormatTable
	}
	return &Renderer{out: out, format: format}
}

// Format returns the current output format.
func (r *Renderer) Format() Format { return r.format }

// SetFormat switches the output format.
func (r *Renderer) SetFormat(f Format) { r.format = f }

// Title writes a section heading. Structured formats skip it.
func (r *Renderer) Title(text string) {
	if r.format != FormatTable {
		return
	}
	fmt.Fprintln(r.out, titleStyle.Render(text))
}

// Note writes a line of narration. Structured formats skip it.
func (r *Renderer) Note(format string, args ...any) {
	if r.format != FormatTable {
		return
	}
	fmt.Fprintln(r.out, noteStyle.Render(fmt.Sprintf(format, args...)))
}

// Records writes records with the given column order.
func (r *Renderer) Records(columns []string, records []schema.Record) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(plain(columns, records))
	case FormatYAML:
		return r.writeYAML(plain(columns, records))
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = cell(rec[c])
		}
		rows[i] = row
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(rows) && rows[row][col] == "null" {
				return nullStyle
			}
			return cellStyle
		})
	fmt.Fprintln(r.out, t.Render())
	fmt.Fprintln(r.out, noteStyle.Render(countLabel(len(records))))
	return nil
}

// Error writes err as a one-row table naming its kind. Messages are
// redacted so store internals never reach the output.
func (r *Renderer) Error(err error) error {
	kind := store.Kind(err)
	msg := redact.Error(err)
	switch r.format {
	case FormatJSON:
		return r.writeJSON(map[string]string{"kind": kind, "error": msg})
	case FormatYAML:
		return r.writeYAML(map[string]string{"kind": kind, "error": msg})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(errorStyle).
		Headers("kind", "error").
		Row(kind, msg).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(r.out, t.Render())
	return nil
}

// Message writes a status line, e.g. after commit.
func (r *Renderer) Message(key, value string) error {
	switch r.format {
	case FormatJSON:
		return r.writeJSON(map[string]string{key: value})
	case FormatYAML:
		return r.writeYAML(map[string]string{key: value})
	}
	fmt.Fprintf(r.out, "%s: %s\n", key, value)
	return nil
}

func (r *Renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Renderer) writeYAML(v any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// plain keeps only the projected columns of each record.
func plain(columns []string, records []schema.Record) []map[string]any {
	out := make([]map[string]any, len(records))
	for i, rec := range records {
		m := make(map[string]any, len(columns))
		for _, c := range columns {
			m[c] = rec[c]
		}
		out[i] = m
	}
	return out
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func countLabel(n int) string {
	if n == 1 {
		return "(1 record)"
	}
	return fmt.Sprintf("(%d records)", n)
}
