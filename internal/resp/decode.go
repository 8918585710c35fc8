package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Protocol limits.
const (
	// MaxArrayLen limits the number of elements in a single array frame.
	MaxArrayLen = 1024 * 1024

	// MaxBulkLen limits the size of a single bulk string (512MB, as Redis).
	MaxBulkLen = 512 * 1024 * 1024

	// MaxNestingDepth limits how deeply arrays may nest.
	MaxNestingDepth = 64
)

var crlf = []byte("\r\n")

var (
	ErrProtocol = errors.New("resp: protocol error")

	ErrEmptyInput     = fmt.Errorf("%w: empty input", ErrProtocol)
	ErrMissingCRLF    = fmt.Errorf("%w: missing CRLF", ErrProtocol)
	ErrInvalidUTF8    = fmt.Errorf("%w: invalid UTF-8", ErrProtocol)
	ErrInvalidInteger = fmt.Errorf("%w: invalid integer", ErrProtocol)
	ErrInvalidLength  = fmt.Errorf("%w: invalid length", ErrProtocol)
	ErrTruncatedBulk  = fmt.Errorf("%w: truncated bulk string", ErrProtocol)
	ErrUnknownTag     = fmt.Errorf("%w: unknown type tag", ErrProtocol)
	ErrTrailingData   = fmt.Errorf("%w: trailing data", ErrProtocol)
	ErrLimitExceeded  = fmt.Errorf("%w: limit exceeded", ErrProtocol)
)

// Decode parses exactly one message from b. Any bytes left after the
// message are reported as ErrTrailingData.
func Decode(b []byte) (Message, error) {
	m, rest, err := Next(b)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, len(rest))
	}
	return m, nil
}

// Next parses one message from the front of b and returns the remaining bytes.
func Next(b []byte) (Message, []byte, error) {
	return next(b, 0)
}

func next(b []byte, depth int) (Message, []byte, error) {
	if len(b) == 0 {
		return nil, nil, ErrEmptyInput
	}

	switch b[0] {
	case TagSimpleString:
		line, rest, err := textLine(b[1:])
		if err != nil {
			return nil, nil, err
		}
		return SimpleString(line), rest, nil

	case TagError:
		line, rest, err := textLine(b[1:])
		if err != nil {
			return nil, nil, err
		}
		return Error(line), rest, nil

	case TagInteger:
		line, rest, err := textLine(b[1:])
		if err != nil {
			return nil, nil, err
		}
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q", ErrInvalidInteger, line)
		}
		return Integer(n), rest, nil

	case TagBulkString:
		return nextBulk(b[1:])

	case TagArray:
		return nextArray(b[1:], depth)

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownTag, b[0])
	}
}

func nextBulk(b []byte) (Message, []byte, error) {
	n, rest, err := length(b)
	if err != nil {
		return nil, nil, err
	}
	if n == -1 {
		return NullBulk(), rest, nil
	}
	if n < 0 {
		return nil, nil, fmt.Errorf("%w: bulk length %d", ErrInvalidLength, n)
	}
	if n > MaxBulkLen {
		return nil, nil, fmt.Errorf("%w: bulk length %d exceeds %d", ErrLimitExceeded, n, MaxBulkLen)
	}
	if len(rest) < n+2 {
		return nil, nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedBulk, n+2, len(rest))
	}
	if !bytes.Equal(rest[n:n+2], crlf) {
		return nil, nil, fmt.Errorf("%w: bad terminator", ErrTruncatedBulk)
	}
	data := rest[:n:n]
	if !utf8.Valid(data) {
		return nil, nil, ErrInvalidUTF8
	}
	return BulkString{Data: data}, rest[n+2:], nil
}

func nextArray(b []byte, depth int) (Message, []byte, error) {
	if depth >= MaxNestingDepth {
		return nil, nil, fmt.Errorf("%w: nesting deeper than %d", ErrLimitExceeded, MaxNestingDepth)
	}
	n, rest, err := length(b)
	if err != nil {
		return nil, nil, err
	}
	if n < 0 {
		return nil, nil, fmt.Errorf("%w: array length %d", ErrInvalidLength, n)
	}
	if n > MaxArrayLen {
		return nil, nil, fmt.Errorf("%w: array length %d exceeds %d", ErrLimitExceeded, n, MaxArrayLen)
	}

	// Every element needs at least three bytes, so a short buffer caps the allocation.
	out := make(Array, 0, min(n, len(rest)/3))
	for i := 0; i < n; i++ {
		var m Message
		m, rest, err = next(rest, depth+1)
		if err != nil {
			if errors.Is(err, ErrEmptyInput) {
				return nil, nil, fmt.Errorf("%w: array ended after %d of %d elements", ErrTruncatedBulk, i, n)
			}
			return nil, nil, err
		}
		out = append(out, m)
	}
	return out, rest, nil
}

// length parses the "<n>\r\n" header shared by bulk strings and arrays.
func length(b []byte) (int, []byte, error) {
	line, rest, err := textLine(b)
	if err != nil {
		return 0, nil, err
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %q", ErrInvalidLength, line)
	}
	return n, rest, nil
}

// textLine returns the UTF-8 text up to the first CRLF and the bytes after it.
func textLine(b []byte) (string, []byte, error) {
	i := bytes.Index(b, crlf)
	if i < 0 {
		return "", nil, ErrMissingCRLF
	}
	line := b[:i]
	if !utf8.Valid(line) {
		return "", nil, ErrInvalidUTF8
	}
	return string(line), b[i+2:], nil
}
