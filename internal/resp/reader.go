package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

// MaxLineLen limits a single header or status line read from a stream.
const MaxLineLen = 64 * 1024

// Reader decodes messages from a buffered stream, one frame at a time.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r. If r is already a *bufio.Reader it is used directly.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{br: br}
	}
	return &Reader{br: bufio.NewReader(r)}
}

// ReadMessage blocks until one complete message has been read.
func (r *Reader) ReadMessage() (Message, error) {
	return r.read(0)
}

func (r *Reader) read(depth int) (Message, error) {
	line, err := r.readLine()
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return nil, ErrEmptyInput
	}
	body := line[1:]

	switch line[0] {
	case TagSimpleString:
		return SimpleString(body), nil
	case TagError:
		return Error(body), nil
	case TagInteger:
		n, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidInteger, body)
		}
		return Integer(n), nil
	case TagBulkString:
		n, err := strconv.Atoi(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLength, body)
		}
		if n == -1 {
			return NullBulk(), nil
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: bulk length %d", ErrInvalidLength, n)
		}
		if n > MaxBulkLen {
			return nil, fmt.Errorf("%w: bulk length %d exceeds %d", ErrLimitExceeded, n, MaxBulkLen)
		}
		buf := make([]byte, n+2)
		if _, err := io.ReadFull(r.br, buf); err != nil {
			return nil, err
		}
		if !bytes.HasSuffix(buf, crlf) {
			return nil, fmt.Errorf("%w: bad terminator", ErrTruncatedBulk)
		}
		return BulkString{Data: buf[:n]}, nil
	case TagArray:
		if depth >= MaxNestingDepth {
			return nil, fmt.Errorf("%w: nesting deeper than %d", ErrLimitExceeded, MaxNestingDepth)
		}
		n, err := strconv.Atoi(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLength, body)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: array length %d", ErrInvalidLength, n)
		}
		if n > MaxArrayLen {
			return nil, fmt.Errorf("%w: array length %d exceeds %d", ErrLimitExceeded, n, MaxArrayLen)
		}
		out := make(Array, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			m, err := r.read(depth + 1)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, line[0])
	}
}

func (r *Reader) readLine() (string, error) {
	var buf []byte
	for {
		frag, err := r.br.ReadSlice('\n')
		if err == nil {
			buf = append(buf, frag...)
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, frag...)
			if len(buf) > MaxLineLen {
				return "", fmt.Errorf("%w: line length exceeds %d", ErrLimitExceeded, MaxLineLen)
			}
			continue
		}
		return "", err
	}

	if len(buf) > MaxLineLen {
		return "", fmt.Errorf("%w: line length exceeds %d", ErrLimitExceeded, MaxLineLen)
	}
	if !bytes.HasSuffix(buf, crlf) {
		return "", ErrMissingCRLF
	}
	buf = buf[:len(buf)-2]
	if !utf8.Valid(buf) {
		return "", ErrInvalidUTF8
	}
	return string(buf), nil
}
