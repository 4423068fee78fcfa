package render

import (
	"bytes"
	"strings"
	"testing"
)

func sampleTable() Table {
	return Table{
		Headers: []string{"ID", "NOME"},
		Rows:    [][]string{{"1", "Anna"}, {"12", "Niccolò"}},
		Items: []any{
			map[string]any{"id": 1, "nome": "Anna"},
			map[string]any{"id": 12, "nome": "Niccolò"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatTable},
		{in: "JSON", want: FormatJSON},
		{in: "yaml", want: FormatYAML},
		{in: "csv", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRender_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer(&buf, Options{}).Render(sampleTable()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	want := "ID  NOME\n--  -------\n1   Anna\n12  Niccolò\n"
	if buf.String() != want {
		t.Errorf("table output:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestRender_Porcelain(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer(&buf, Options{Porcelain: true}).Render(sampleTable()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if buf.String() != "ID\tNOME\n1\tAnna\n12\tNiccolò\n" {
		t.Errorf("porcelain output: %q", buf.String())
	}
}

func TestRender_Structured(t *testing.T) {
	tests := []struct {
		format Format
		want   []string
	}{
		{format: FormatJSON, want: []string{`"nome": "Anna"`, `"id": 12`}},
		{format: FormatNDJSON, want: []string{`{"id":1,"nome":"Anna"}` + "\n"}},
		{format: FormatYAML, want: []string{"- id: 1\n  nome: Anna\n"}},
		{format: FormatTSV, want: []string{"ID\tNOME\n"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewRenderer(&buf, Options{Format: tt.format}).Render(sampleTable()); err != nil {
				t.Fatalf("Render() error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output %q missing %q", buf.String(), want)
				}
			}
		})
	}
}

func TestRender_EmptyJSONIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer(&buf, Options{Format: FormatJSON}).Render(Table{}); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty json output = %q, want []", buf.String())
	}
}
