package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/silvertree/stc/internal/config"
)

// statusf prints a status message to w unless quiet mode is set.
func statusf(w io.Writer, quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(w, format, args...)
	}
}

// Statusf prints a status message to stderr unless quiet mode is set.
// Method form of statusf; avoids threading `quiet bool` through call chains.
func (cc *CLIContext) Statusf(format string, args ...any) {
	statusf(cc.Stderr, cc.Flags.Quiet, format, args...)
}

// palette colors status words. Each color is enabled or disabled explicitly
// so the decision follows the writer it targets rather than stdout.
type palette struct {
	ok   *color.Color
	fail *color.Color
}

func newPalette(mode string, w io.Writer) palette {
	p := palette{
		ok:   color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
	}

	if useColor(mode, w) {
		p.ok.EnableColor()
		p.fail.EnableColor()
	} else {
		p.ok.DisableColor()
		p.fail.DisableColor()
	}

	return p
}

// useColor resolves a color mode against the target writer. "auto" colors
// only terminals and honors NO_COLOR.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}

	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}

	file, ok := w.(*os.File)
	if !ok {
		return false
	}

	fd := file.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// render writes a decoded service response to w in the requested format.
func render(w io.Writer, format string, v any) error {
	switch format {
	case config.OutputYAML:
		return renderYAML(w, v)
	case config.OutputTable:
		return renderTable(w, v)
	default:
		return renderJSON(w, v)
	}
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}

func renderYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(plainNumbers(v))
	if err != nil {
		return fmt.Errorf("encoding YAML output: %w", err)
	}

	_, err = w.Write(data)

	return err
}

// plainNumbers replaces json.Number values with int64 or float64 so YAML
// emits them as numbers rather than quoted strings.
func plainNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}

		if f, err := val.Float64(); err == nil {
			return f
		}

		return val.String()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = plainNumbers(item)
		}

		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plainNumbers(item)
		}

		return out
	default:
		return v
	}
}

// renderTable lays out a response as a table. A list of objects becomes one
// row per object with the union of keys as columns; a single object becomes
// KEY/VALUE rows; anything else prints as a bare value.
func renderTable(w io.Writer, v any) error {
	var (
		headers []string
		rows    [][]string
	)

	switch val := v.(type) {
	case []any:
		headers, rows = listRows(val)
	case map[string]any:
		headers = []string{"KEY", "VALUE"}

		for _, k := range sortedKeys(val) {
			rows = append(rows, []string{k, cellText(val[k])})
		}
	default:
		_, err := fmt.Fprintln(w, cellText(v))
		return err
	}

	_, err := fmt.Fprintln(w, printTable(headers, rows))

	return err
}

// listRows builds columns for a list. Lists of scalars get a single VALUE
// column.
func listRows(items []any) ([]string, [][]string) {
	keySet := make(map[string]any)
	allObjects := len(items) > 0

	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			allObjects = false
			break
		}

		for k := range obj {
			keySet[k] = nil
		}
	}

	if !allObjects {
		rows := make([][]string, len(items))
		for i, item := range items {
			rows[i] = []string{cellText(item)}
		}

		return []string{"VALUE"}, rows
	}

	keys := idFirst(sortedKeys(keySet))
	rows := make([][]string, len(items))

	for i, item := range items {
		obj := item.(map[string]any) //nolint:forcetypeassert // checked above
		row := make([]string, len(keys))

		for j, k := range keys {
			if cell, ok := obj[k]; ok {
				row[j] = cellText(cell)
			}
		}

		rows[i] = row
	}

	return keys, rows
}

// idFirst moves the document identifier column to the front.
func idFirst(keys []string) []string {
	for _, id := range []string{"_id", "id"} {
		for i, k := range keys {
			if k == id {
				return append([]string{id}, append(keys[:i:i], keys[i+1:]...)...)
			}
		}
	}

	return keys
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// cellText renders one value for a table cell: strings as-is, null as
// empty, everything else as compact JSON.
func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(data)
}

// printTable renders headers and rows with rounded borders. Rows shorter
// than the header are padded.
func printTable(headers []string, rows [][]string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = strings.ToUpper(h)
	}

	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}

		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, columns)
	for i := range columns {
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft}
	}

	tw.SetColumnConfigs(configs)

	return tw.Render()
}
