package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		want    Format
		wantErr bool
	}{
		{name: "json lowercase", format: "json", want: FormatJSON},
		{name: "json uppercase", format: "JSON", want: FormatJSON},
		{name: "yaml", format: "yaml", want: FormatYAML},
		{name: "csv", format: "csv", want: FormatCSV},
		{name: "tsv", format: "tsv", want: FormatTSV},
		{name: "empty defaults to json", format: "", want: FormatJSON},
		{name: "invalid format", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestFormatTabular(t *testing.T) {
	if !FormatCSV.Tabular() || !FormatTSV.Tabular() {
		t.Error("csv and tsv should be tabular")
	}
	if FormatJSON.Tabular() || FormatYAML.Tabular() {
		t.Error("json and yaml should not be tabular")
	}
}

func TestFormatSingle(t *testing.T) {
	value := map[string]any{"sheet": "Jan", "rows": 2}

	tests := []struct {
		name     string
		format   string
		input    any
		contains []string
		wantErr  bool
	}{
		{name: "json", format: "json", input: value, contains: []string{`"sheet":"Jan"`, `"rows":2`}},
		{name: "yaml", format: "yaml", input: value, contains: []string{"sheet: Jan", "rows: 2"}},
		{name: "csv grid", format: "csv", input: [][]string{{"a", "b,c"}}, contains: []string{`a,"b,c"`}},
		{name: "tsv grid", format: "tsv", input: [][]string{{"a", "b"}}, contains: []string{"a\tb\n"}},
		{name: "csv string", format: "csv", input: "done", contains: []string{"done\n"}},
		{name: "csv map", format: "csv", input: value, wantErr: true},
		{name: "unknown format", format: "xml", input: value, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := FormatSingle(tt.format, tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FormatSingle() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, want := range tt.contains {
				if !strings.Contains(string(out), want) {
					t.Errorf("output missing %q: %q", want, out)
				}
			}
		})
	}
}

func TestFormatTablesDelimited(t *testing.T) {
	tables := []Table{
		{Title: "Q1.xlsx - Jan", Columns: []string{"Region", "Units"}, Rows: [][]string{{"North", "10"}}},
		{Title: "Q1.xlsx - Feb", Columns: []string{"Region", "Units"}, Rows: [][]string{{"East", "3"}}},
	}

	out, err := FormatTables("csv", tables)
	if err != nil {
		t.Fatalf("FormatTables() error = %v", err)
	}
	want := "Q1.xlsx - Jan\nRegion,Units\nNorth,10\n\nQ1.xlsx - Feb\nRegion,Units\nEast,3\n"
	if string(out) != want {
		t.Errorf("csv output = %q, want %q", out, want)
	}

	out, err = FormatTables("tsv", tables[:1])
	if err != nil {
		t.Fatalf("FormatTables() error = %v", err)
	}
	if want := "Region\tUnits\nNorth\t10\n"; string(out) != want {
		t.Errorf("single tsv table = %q, want %q", out, want)
	}
}

func TestFormatTablesStructured(t *testing.T) {
	tables := []Table{{Title: "t", Columns: []string{"a"}, Rows: [][]string{{"1"}}}}

	out, err := FormatTables("json", tables)
	if err != nil {
		t.Fatalf("FormatTables() error = %v", err)
	}
	if want := `[{"title":"t","columns":["a"],"rows":[["1"]]}]` + "\n"; string(out) != want {
		t.Errorf("json output = %q, want %q", out, want)
	}

	out, err = FormatTables("yaml", tables)
	if err != nil {
		t.Fatalf("FormatTables() error = %v", err)
	}
	if !strings.Contains(string(out), "title: t") {
		t.Errorf("yaml output missing title: %q", out)
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, []string{"a", "b"}, "tsv"); err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	if buf.String() != "a\tb\n" {
		t.Errorf("Print() wrote %q", buf.String())
	}

	buf.Reset()
	if err := PrintTables(&buf, []Table{{Columns: []string{"x"}}}, "csv"); err != nil {
		t.Fatalf("PrintTables() error = %v", err)
	}
	if buf.String() != "x\n" {
		t.Errorf("PrintTables() wrote %q", buf.String())
	}

	if err := Print(&buf, "x", "bogus"); err == nil {
		t.Error("expected error for unknown format")
	}
}
