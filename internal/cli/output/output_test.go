package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/minikv/internal/resp"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"table", "", true},
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

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("NewFormatter(json) is not a JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML).(*YAMLFormatter); !ok {
		t.Error("NewFormatter(yaml) is not a YAMLFormatter")
	}
	if _, ok := NewFormatter(FormatText).(*TextFormatter); !ok {
		t.Error("NewFormatter(text) is not a TextFormatter")
	}
}

// ============================================================================
// Replies
// ============================================================================

func TestWriteReply(t *testing.T) {
	tests := []struct {
		name string
		msg  resp.Message
		want string
	}{
		{"simple", resp.SimpleString("OK"), "OK\n"},
		{"error", resp.Error("ERR syntax error"), "(error) ERR syntax error\n"},
		{"integer", resp.Integer(-3), "(integer) -3\n"},
		{"bulk", resp.Bulk("a b"), "\"a b\"\n"},
		{"null", resp.NullBulk(), "(nil)\n"},
		{"empty array", resp.Array{}, "(empty array)\n"},
		{"array", resp.Array{resp.Bulk("a"), resp.Bulk("b")}, "1) \"a\"\n2) \"b\"\n"},
		{
			"nested",
			resp.Array{resp.Array{resp.Bulk("x"), resp.Integer(1)}, resp.Bulk("z")},
			"1) 1) \"x\"\n   2) (integer) 1\n2) \"z\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteReply(&buf, tt.msg); err != nil {
				t.Fatalf("WriteReply() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("WriteReply() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteReply_PadsIndexes(t *testing.T) {
	arr := make(resp.Array, 10)
	for i := range arr {
		arr[i] = resp.Integer(i)
	}

	var buf bytes.Buffer
	_ = WriteReply(&buf, arr)
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if lines[0] != " 1) (integer) 0" {
		t.Errorf("first line = %q, want %q", lines[0], " 1) (integer) 0")
	}
	if lines[9] != "10) (integer) 9" {
		t.Errorf("last line = %q, want %q", lines[9], "10) (integer) 9")
	}
}

func TestJSONFormatter_Reply(t *testing.T) {
	msg := resp.Array{resp.Bulk("a"), resp.NullBulk(), resp.Integer(2), resp.Error("ERR x")}

	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, msg); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	want := "[\n  \"a\",\n  null,\n  2,\n  {\n    \"error\": \"ERR x\"\n  }\n]\n"
	if buf.String() != want {
		t.Errorf("Format() = %q, want %q", buf.String(), want)
	}
}

func TestYAMLFormatter(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{"bulk", resp.Bulk("v"), "v\n"},
		{"array", resp.Array{resp.Bulk("a"), resp.Integer(1)}, "- a\n- 1\n"},
		{"struct", struct {
			Keys int `yaml:"keys"`
		}{Keys: 3}, "keys: 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := (&YAMLFormatter{}).Format(&buf, tt.data); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Format() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

// ============================================================================
// Tables
// ============================================================================

func TestTextFormatter_Struct(t *testing.T) {
	type build struct {
		Version string `json:"version"`
	}
	data := struct {
		Requests int           `json:"requests"`
		Elapsed  time.Duration `json:"elapsed"`
		Rate     float64       `json:"rate"`
		Empty    string        `json:"empty"`
		Hidden   string        `json:"-"`
		Build    build         `json:"build"`
	}{Requests: 10, Elapsed: 1500 * time.Millisecond, Rate: 6.666, Build: build{Version: "dev"}}

	var buf bytes.Buffer
	if err := (&TextFormatter{}).Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"FIELD", "requests", "10", "1.5s", "6.67", "build.version", "dev"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Hidden") {
		t.Errorf("output contains skipped field:\n%s", out)
	}
}

func TestTextFormatter_MapSorted(t *testing.T) {
	var buf bytes.Buffer
	_ = (&TextFormatter{NoHeaders: true}).Format(&buf, map[string]int{"b": 2, "a": 1})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "a") || !strings.HasPrefix(lines[1], "b") {
		t.Errorf("rows = %q, want a then b", lines)
	}
}

func TestTextFormatter_Fallback(t *testing.T) {
	var buf bytes.Buffer
	_ = (&TextFormatter{}).Format(&buf, 42)
	if buf.String() != "42\n" {
		t.Errorf("Format(42) = %q, want %q", buf.String(), "42\n")
	}
}

func TestTable_Render(t *testing.T) {
	table := &Table{}
	table.SetHeaders("NAME", "VALUE")
	table.AddRow("alpha", "1")
	table.AddRow("b", "22")

	var buf bytes.Buffer
	if err := table.Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := "NAME   VALUE\nalpha  1\nb      22\n"
	if buf.String() != want {
		t.Errorf("Render() = %q, want %q", buf.String(), want)
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressBar(&buf, "bench", 4)
	p.Increment(2)
	if !strings.Contains(buf.String(), " 50% (2/4)") {
		t.Errorf("after Increment(2) output = %q", buf.String())
	}

	p.Finish()
	if !strings.HasSuffix(buf.String(), "100% (4/4)\n") {
		t.Errorf("after Finish output = %q", buf.String())
	}

	buf.Reset()
	open := NewProgressBar(&buf, "ops", 0)
	open.Increment(7)
	if buf.String() != "\rops 7" {
		t.Errorf("unbounded output = %q, want %q", buf.String(), "\rops 7")
	}
}
