// Package render provides centralized output rendering for the posters CLI.
//
// Format selection:
//   - If output is a TTY, default to table
//   - If output is not a TTY, default to json
//   - --format flag always overrides defaults
//   - Invalid formats are errors
//
// Table layouts are fixed per result: ledger records render as one row
// per poster, single results implement Detailer and render as labeled
// lines. Anything else is json or yaml only.
//
// Color handling:
//   - --no-color affects table output only
//   - TUI mode is unaffected by --no-color (uses its own styling)
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/posters/cli/tui"
	"github.com/pithecene-io/posters/types"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// promptWidth caps the prompt column of the history table.
const promptWidth = 48

// ParseFormat parses a format string, returning an error for invalid formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil // Let caller decide default
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Field is one labeled line of a detail table.
type Field struct {
	Name  string
	Value string
}

// Detailer is implemented by single results that have a table layout.
// Fields with an empty Value are omitted from the table.
type Detailer interface {
	TableFields() []Field
}

// Renderer handles output formatting.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer creates a renderer from CLI context.
// Applies the TTY-based format default.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}

	if format == "" {
		if isTTY(os.Stdout) {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}

	return &Renderer{
		format:  format,
		noColor: c.Bool("no-color"),
		out:     os.Stdout,
	}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer (for testing).
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{
		format:  format,
		noColor: noColor,
		out:     out,
	}
}

// Render outputs the data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		return enc.Encode(data)
	case FormatTable:
		return r.renderTable(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// Format returns the selected output format.
func (r *Renderer) Format() Format {
	return r.format
}

// RenderTUI initiates TUI mode for the given view type.
// TUI is opt-in only and read-only only.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

func (r *Renderer) renderTable(data any) error {
	switch d := data.(type) {
	case []types.PosterRecord:
		return r.renderRecords(d)
	case Detailer:
		return r.renderDetail(d.TableFields())
	default:
		return fmt.Errorf("table format is not available for %T (use json or yaml)", data)
	}
}

// renderRecords writes one row per ledger record, oldest first as listed.
func (r *Renderer) renderRecords(records []types.PosterRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(r.out, "(no posters)")
		return err
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tKEY\tSIZE\tSEED\tPROMPT")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt, rec.Key, FormatSize(rec.SizeBytes), SeedCell(rec.Seed), promptCell(rec.Prompt))
	}
	return w.Flush()
}

func (r *Renderer) renderDetail(fields []Field) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		fmt.Fprintf(w, "%s:\t%s\n", f.Name, r.colorize(f.Name, f.Value))
	}
	return w.Flush()
}

// colorize styles "status" and "kind" cells with the TUI palette.
// Other cells pass through.
func (r *Renderer) colorize(field, value string) string {
	if r.noColor || value == "" {
		return value
	}
	switch field {
	case "status":
		return tui.StateStyle(value).Render(value)
	case "kind":
		return tui.ErrorStyle.Render(value)
	default:
		return value
	}
}

// FormatSize renders a byte count in binary units.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 3; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}

// SeedCell renders a request seed. Seeds decoded from JSON arrive as
// float64; whole values print without a fraction.
func SeedCell(seed any) string {
	switch v := seed.(type) {
	case nil:
		return "-"
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// promptCell flattens whitespace and truncates to promptWidth runes.
func promptCell(prompt string) string {
	flat := strings.Join(strings.Fields(prompt), " ")
	runes := []rune(flat)
	if len(runes) <= promptWidth {
		return flat
	}
	return string(runes[:promptWidth-1]) + "…"
}

// isTTY returns true if the writer is a TTY.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
