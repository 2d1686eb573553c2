// Package output renders command results as json, yaml or a terminal table
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// Formatter turns a result value into bytes
type Formatter interface {
	Format(data any, pretty bool) ([]byte, error)
	Name() string
}

// NewFormatter returns the formatter for a format name; unknown names fall back to json
func NewFormatter(format string) Formatter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		return &YAMLFormatter{}
	case "table", "text":
		return &TableFormatter{}
	default:
		return &JSONFormatter{}
	}
}

// Render formats data, retrying with NaN/Inf values zeroed when json refuses them
func Render(f Formatter, data any, pretty bool) ([]byte, error) {
	out, err := f.Format(data, pretty)
	if err != nil && strings.Contains(err.Error(), "unsupported value") {
		out, err = f.Format(Sanitize(data), pretty)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to format output data: %w", err)
	}
	return out, nil
}

// WriteFile writes rendered output, creating the parent directory
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// JSONFormatter emits json
type JSONFormatter struct{}

func (f *JSONFormatter) Name() string { return "json" }

func (f *JSONFormatter) Format(data any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// YAMLFormatter emits yaml
type YAMLFormatter struct{}

func (f *YAMLFormatter) Name() string { return "yaml" }

func (f *YAMLFormatter) Format(data any, _ bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A")).Padding(0, 1)
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Padding(0, 1)
	valueStyle  = lipgloss.NewStyle().Padding(0, 1)
)

// TableFormatter flattens the value into dotted key paths and renders a two column table
type TableFormatter struct{}

func (f *TableFormatter) Name() string { return "table" }

func (f *TableFormatter) Format(data any, _ bool) ([]byte, error) {
	flat, err := Flatten(data)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, flat[k]})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))).
		Headers("FIELD", "VALUE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return keyStyle
			default:
				return valueStyle
			}
		})

	return []byte(t.String() + "\n"), nil
}

// Flatten converts any json-encodable value into dotted path/value pairs
func Flatten(data any) (map[string]string, error) {
	raw, err := json.Marshal(Sanitize(data))
	if err != nil {
		return nil, fmt.Errorf("failed to encode for table: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to decode for table: %w", err)
	}

	out := make(map[string]string)
	flattenInto(out, "", generic)
	return out, nil
}

func flattenInto(out map[string]string, prefix string, v any) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 && prefix != "" {
			out[prefix] = "{}"
		}
		for k, child := range val {
			flattenInto(out, joinKey(prefix, k), child)
		}
	case []any:
		if len(val) == 0 {
			out[prefix] = "[]"
			return
		}
		if scalars, ok := joinScalars(val); ok {
			out[prefix] = scalars
			return
		}
		for i, child := range val {
			flattenInto(out, fmt.Sprintf("%s[%d]", prefix, i), child)
		}
	case nil:
		out[prefix] = "-"
	case float64:
		out[prefix] = formatNumber(val)
	default:
		out[prefix] = fmt.Sprintf("%v", val)
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func joinScalars(items []any) (string, bool) {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			parts = append(parts, v)
		case float64:
			parts = append(parts, formatNumber(v))
		case bool:
			parts = append(parts, fmt.Sprintf("%t", v))
		default:
			return "", false
		}
	}
	return strings.Join(parts, ", "), true
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.3f", v)
}
