package resp

import (
	"bufio"
	"strconv"
)

// Encode returns the wire form of m.
func Encode(m Message) []byte {
	return AppendEncode(nil, m)
}

// AppendEncode appends the wire form of m to dst and returns the extended buffer.
// A nil message encodes as a null bulk string.
func AppendEncode(dst []byte, m Message) []byte {
	switch v := m.(type) {
	case SimpleString:
		dst = append(dst, TagSimpleString)
		dst = append(dst, v...)
		return append(dst, crlf...)
	case Error:
		dst = append(dst, TagError)
		dst = append(dst, v...)
		return append(dst, crlf...)
	case Integer:
		dst = append(dst, TagInteger)
		dst = strconv.AppendInt(dst, int64(v), 10)
		return append(dst, crlf...)
	case BulkString:
		if v.Null {
			return append(dst, "$-1\r\n"...)
		}
		dst = append(dst, TagBulkString)
		dst = strconv.AppendInt(dst, int64(len(v.Data)), 10)
		dst = append(dst, crlf...)
		dst = append(dst, v.Data...)
		return append(dst, crlf...)
	case Array:
		dst = append(dst, TagArray)
		dst = strconv.AppendInt(dst, int64(len(v)), 10)
		dst = append(dst, crlf...)
		for _, e := range v {
			dst = AppendEncode(dst, e)
		}
		return dst
	default:
		return append(dst, "$-1\r\n"...)
	}
}

// Write encodes m into w. The caller flushes.
func Write(w *bufio.Writer, m Message) error {
	_, err := w.Write(Encode(m))
	return err
}
