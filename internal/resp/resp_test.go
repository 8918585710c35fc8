package resp

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

// ============================================================
// Decode Tests
// ============================================================

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Message
	}{
		{"simple string", "+OK\r\n", SimpleString("OK")},
		{"empty simple string", "+\r\n", SimpleString("")},
		{"error", "-ERR unknown command\r\n", Error("ERR unknown command")},
		{"integer", ":42\r\n", Integer(42)},
		{"negative integer", ":-7\r\n", Integer(-7)},
		{"bulk", "$5\r\nhello\r\n", Bulk("hello")},
		{"empty bulk", "$0\r\n\r\n", Bulk("")},
		{"bulk with CRLF inside", "$4\r\na\r\nb\r\n", Bulk("a\r\nb")},
		{"null bulk", "$-1\r\n", NullBulk()},
		{"empty array", "*0\r\n", Array{}},
		{
			name:  "command array",
			input: "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n",
			want:  Command("SET", "k", "v"),
		},
		{
			name:  "nested array",
			input: "*2\r\n*1\r\n:1\r\n$-1\r\n",
			want:  Array{Array{Integer(1)}, NullBulk()},
		},
		{"utf8 bulk", "$6\r\n你好\r\n", Bulk("你好")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("Decode(%q) error: %v", tt.input, err)
			}
			if !Equal(got, tt.want) {
				t.Errorf("Decode(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty input", "", ErrEmptyInput},
		{"missing CRLF", "+OK", ErrMissingCRLF},
		{"bare LF", "+OK\n", ErrMissingCRLF},
		{"invalid utf8 status", "+\xff\r\n", ErrInvalidUTF8},
		{"invalid utf8 bulk", "$1\r\n\xff\r\n", ErrInvalidUTF8},
		{"invalid integer", ":12a\r\n", ErrInvalidInteger},
		{"invalid bulk length", "$x\r\nab\r\n", ErrInvalidLength},
		{"negative bulk length", "$-2\r\n", ErrInvalidLength},
		{"null array", "*-1\r\n", ErrInvalidLength},
		{"truncated bulk", "$10\r\nabc\r\n", ErrTruncatedBulk},
		{"bulk without terminator", "$3\r\nabcde", ErrTruncatedBulk},
		{"array missing elements", "*2\r\n$1\r\na\r\n", ErrTruncatedBulk},
		{"unknown tag", "!oops\r\n", ErrUnknownTag},
		{"trailing data", "+OK\r\n+OK\r\n", ErrTrailingData},
		{"inline command", "PING\r\n", ErrUnknownTag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decode(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if !errors.Is(err, ErrProtocol) {
				t.Errorf("error %v does not wrap ErrProtocol", err)
			}
		})
	}
}

func TestNext_ReturnsRemainder(t *testing.T) {
	m, rest, err := Next([]byte(":1\r\n+OK\r\n"))
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if !Equal(m, Integer(1)) {
		t.Errorf("message = %#v, want Integer(1)", m)
	}
	if string(rest) != "+OK\r\n" {
		t.Errorf("rest = %q, want %q", rest, "+OK\r\n")
	}
}

func TestDecode_NestingLimit(t *testing.T) {
	input := strings.Repeat("*1\r\n", MaxNestingDepth+1) + ":1\r\n"
	if _, err := Decode([]byte(input)); !errors.Is(err, ErrLimitExceeded) {
		t.Errorf("error = %v, want ErrLimitExceeded", err)
	}
}

func TestDecode_HugeArrayHeaderDoesNotPreallocate(t *testing.T) {
	_, err := Decode([]byte("*1000000\r\n"))
	if !errors.Is(err, ErrTruncatedBulk) {
		t.Errorf("error = %v, want ErrTruncatedBulk", err)
	}
}

// ============================================================
// Encode Tests
// ============================================================

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"simple string", SimpleString("PONG"), "+PONG\r\n"},
		{"error", Error("ERR syntax error"), "-ERR syntax error\r\n"},
		{"integer", Integer(-3), ":-3\r\n"},
		{"bulk", Bulk("bar"), "$3\r\nbar\r\n"},
		{"null bulk", NullBulk(), "$-1\r\n"},
		{"nil message", nil, "$-1\r\n"},
		{"array", Array{Bulk("a"), Integer(2)}, "*2\r\n$1\r\na\r\n:2\r\n"},
		{"empty array", Array{}, "*0\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(Encode(tt.msg)); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	msgs := []Message{
		SimpleString("OK"),
		Error("ERR key has expired"),
		Integer(0),
		Integer(-9223372036854775808),
		Bulk(""),
		Bulk("a,b,c"),
		NullBulk(),
		Array{},
		Array{Array{Bulk("x"), NullBulk()}, Integer(5), Array{Array{}}},
	}

	for _, m := range msgs {
		enc := Encode(m)
		got, rest, err := Next(enc)
		if err != nil {
			t.Errorf("Next(Encode(%#v)) error: %v", m, err)
			continue
		}
		if len(rest) != 0 {
			t.Errorf("Next(Encode(%#v)) left %d bytes", m, len(rest))
		}
		if !Equal(got, m) {
			t.Errorf("round trip = %#v, want %#v", got, m)
		}
	}
}

// ============================================================
// Equal Tests
// ============================================================

func TestEqual(t *testing.T) {
	if Equal(Bulk("a"), SimpleString("a")) {
		t.Error("bulk and simple string compared equal")
	}
	if Equal(NullBulk(), Bulk("")) {
		t.Error("null bulk equals empty bulk")
	}
	if !Equal(BulkString{}, BulkString{Data: []byte{}}) {
		t.Error("nil and empty bulk data should compare equal")
	}
	if Equal(Array{Integer(1)}, Array{Integer(1), Integer(2)}) {
		t.Error("arrays of different length compared equal")
	}
}

// ============================================================
// Reader Tests
// ============================================================

func TestReader_ReadMessage(t *testing.T) {
	input := "+PONG\r\n$3\r\nbar\r\n*2\r\n$1\r\na\r\n$-1\r\n:7\r\n-ERR boom\r\n"
	r := NewReader(strings.NewReader(input))

	want := []Message{
		SimpleString("PONG"),
		Bulk("bar"),
		Array{Bulk("a"), NullBulk()},
		Integer(7),
		Error("ERR boom"),
	}
	for i, w := range want {
		got, err := r.ReadMessage()
		if err != nil {
			t.Fatalf("message %d: error %v", i, err)
		}
		if !Equal(got, w) {
			t.Errorf("message %d = %#v, want %#v", i, got, w)
		}
	}

	if _, err := r.ReadMessage(); !errors.Is(err, io.EOF) {
		t.Errorf("final error = %v, want io.EOF", err)
	}
}

func TestReader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"missing CRLF", "+OK\n", ErrMissingCRLF},
		{"unknown tag", "?\r\n", ErrUnknownTag},
		{"bad length", "$abc\r\n", ErrInvalidLength},
		{"bad integer", ":1.5\r\n", ErrInvalidInteger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(bufio.NewReader(strings.NewReader(tt.input)))
			if _, err := r.ReadMessage(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
