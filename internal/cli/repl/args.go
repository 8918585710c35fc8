package repl

import (
	"errors"
	"strconv"
	"strings"
)

var errUnbalancedQuotes = errors.New("unbalanced quotes")

// SplitArgs splits a line into arguments. Double-quoted words are unquoted
// with Go escape rules; single quotes are taken literally.
func SplitArgs(line string) ([]string, error) {
	var (
		args  []string
		cur   strings.Builder
		inArg bool
	)

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == ' ' || ch == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		case ch == '"':
			end := closingQuote(line, i)
			if end < 0 {
				return nil, errUnbalancedQuotes
			}
			s, err := strconv.Unquote(line[i : end+1])
			if err != nil {
				return nil, err
			}
			cur.WriteString(s)
			inArg = true
			i = end
		case ch == '\'':
			end := strings.IndexByte(line[i+1:], '\'')
			if end < 0 {
				return nil, errUnbalancedQuotes
			}
			cur.WriteString(line[i+1 : i+1+end])
			inArg = true
			i += end + 1
		default:
			cur.WriteByte(ch)
			inArg = true
		}
	}

	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}

// closingQuote returns the index of the quote closing the one at start, or -1.
func closingQuote(line string, start int) int {
	for i := start + 1; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}
