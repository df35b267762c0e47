// Package output renders command results as json, yaml, csv or tsv.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format represents output format options
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
)

// ParseFormat validates a format name. Empty means json.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatYAML, FormatCSV, FormatTSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format: %s (valid: json, yaml, csv, tsv)", s)
	}
}

// Tabular reports whether the format can only carry rows of cells
func (f Format) Tabular() bool {
	return f == FormatCSV || f == FormatTSV
}

// Table is a titled grid, the unit of csv and tsv output
type Table struct {
	Title   string     `json:"title" yaml:"title"`
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// Formatter turns values and tables into bytes
type Formatter interface {
	// FormatValue formats an arbitrary document
	FormatValue(v any) ([]byte, error)

	// FormatTables formats one or more tables
	FormatTables(tables []Table) ([]byte, error)
}

// NewFormatter creates a formatter for the specified format
func NewFormatter(format string) (Formatter, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatYAML:
		return YAMLFormatter{}, nil
	case FormatCSV:
		return DelimitedFormatter{Comma: ','}, nil
	case FormatTSV:
		return DelimitedFormatter{Comma: '\t'}, nil
	default:
		return JSONFormatter{}, nil
	}
}

// JSONFormatter outputs one JSON document per call
type JSONFormatter struct{}

func (JSONFormatter) FormatValue(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON value: %w", err)
	}
	return append(data, '\n'), nil
}

func (f JSONFormatter) FormatTables(tables []Table) ([]byte, error) {
	return f.FormatValue(tables)
}

// YAMLFormatter outputs one YAML document per call
type YAMLFormatter struct{}

func (YAMLFormatter) FormatValue(v any) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML value: %w", err)
	}
	return data, nil
}

func (f YAMLFormatter) FormatTables(tables []Table) ([]byte, error) {
	return f.FormatValue(tables)
}

// DelimitedFormatter outputs csv (Comma ',') or tsv (Comma '\t').
// Tables are written header first; with more than one table each is preceded by its
// title and separated by a blank line.
type DelimitedFormatter struct {
	Comma rune
}

func (f DelimitedFormatter) FormatValue(v any) ([]byte, error) {
	rows, err := toRows(v)
	if err != nil {
		return nil, err
	}
	return f.write(rows)
}

func (f DelimitedFormatter) FormatTables(tables []Table) ([]byte, error) {
	var rows [][]string
	for i, t := range tables {
		if len(tables) > 1 {
			if i > 0 {
				rows = append(rows, nil)
			}
			rows = append(rows, []string{t.Title})
		}
		rows = append(rows, t.Columns)
		rows = append(rows, t.Rows...)
	}
	return f.write(rows)
}

func (f DelimitedFormatter) write(rows [][]string) ([]byte, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	w.Comma = f.Comma
	for i, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("delimited writer error: %w", err)
	}
	return []byte(buf.String()), nil
}

// toRows converts the shapes the CLI prints to rows of cells
func toRows(v any) ([][]string, error) {
	switch val := v.(type) {
	case [][]string:
		return val, nil
	case []string:
		return [][]string{val}, nil
	case Table:
		return append([][]string{val.Columns}, val.Rows...), nil
	case []Table:
		var rows [][]string
		for _, t := range val {
			rows = append(rows, t.Columns)
			rows = append(rows, t.Rows...)
		}
		return rows, nil
	case string:
		return [][]string{{val}}, nil
	case fmt.Stringer:
		return [][]string{{val.String()}}, nil
	default:
		return nil, fmt.Errorf("cannot render %T as rows", v)
	}
}

// FormatSingle is a convenience function for formatting a single document
func FormatSingle(format string, v any) ([]byte, error) {
	f, err := NewFormatter(format)
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	data, err := f.FormatValue(v)
	if err != nil {
		return nil, fmt.Errorf("failed to format value: %w", err)
	}
	return data, nil
}

// FormatTables is a convenience function for formatting tables
func FormatTables(format string, tables []Table) ([]byte, error) {
	f, err := NewFormatter(format)
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	data, err := f.FormatTables(tables)
	if err != nil {
		return nil, fmt.Errorf("failed to format tables: %w", err)
	}
	return data, nil
}
