package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/minikv/internal/resp"
)

// Value converts a reply into plain values for structured encoders.
// Errors become {"error": text}; a null bulk becomes nil.
func Value(m resp.Message) any {
	switch v := m.(type) {
	case resp.SimpleString:
		return string(v)
	case resp.Error:
		return map[string]string{"error": string(v)}
	case resp.Integer:
		return int64(v)
	case resp.BulkString:
		if v.Null {
			return nil
		}
		return string(v.Data)
	case resp.Array:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = Value(e)
		}
		return out
	default:
		return nil
	}
}

// WriteReply prints m the way redis-cli does.
func WriteReply(w io.Writer, m resp.Message) error {
	var b strings.Builder
	writeReply(&b, m, "")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeReply(b *strings.Builder, m resp.Message, indent string) {
	switch v := m.(type) {
	case resp.SimpleString:
		b.WriteString(string(v))
	case resp.Error:
		b.WriteString("(error) ")
		b.WriteString(string(v))
	case resp.Integer:
		fmt.Fprintf(b, "(integer) %d", int64(v))
	case resp.BulkString:
		if v.Null {
			b.WriteString("(nil)")
		} else {
			b.WriteString(strconv.Quote(string(v.Data)))
		}
	case resp.Array:
		if len(v) == 0 {
			b.WriteString("(empty array)")
			break
		}
		width := len(strconv.Itoa(len(v)))
		for i, e := range v {
			if i > 0 {
				b.WriteString(indent)
			}
			prefix := fmt.Sprintf("%*d) ", width, i+1)
			b.WriteString(prefix)
			writeReply(b, e, indent+strings.Repeat(" ", len(prefix)))
			if i < len(v)-1 {
				b.WriteByte('\n')
			}
		}
	default:
		fmt.Fprintf(b, "%v", m)
	}
	if indent == "" {
		b.WriteByte('\n')
	}
}
