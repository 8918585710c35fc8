package resp

// Message is one RESP2 protocol unit. The set of implementations is closed:
// SimpleString, Error, Integer, BulkString and Array.
type Message interface {
	tag() byte
}

// SimpleString is a short status reply such as "+OK".
type SimpleString string

// Error is an application-level error reply.
type Error string

// Integer is a signed 64-bit integer reply.
type Integer int64

// BulkString carries binary-safe content, or the null marker when Null is set.
type BulkString struct {
	Data []byte
	Null bool
}

// Array is an ordered sequence of nested messages.
type Array []Message

const (
	TagSimpleString byte = '+'
	TagError        byte = '-'
	TagInteger      byte = ':'
	TagBulkString   byte = '$'
	TagArray        byte = '*'
)

func (SimpleString) tag() byte { return TagSimpleString }
func (Error) tag() byte        { return TagError }
func (Integer) tag() byte      { return TagInteger }
func (BulkString) tag() byte   { return TagBulkString }
func (Array) tag() byte        { return TagArray }

// Bulk returns a present bulk string holding s.
func Bulk(s string) BulkString {
	return BulkString{Data: []byte(s)}
}

// NullBulk returns the null bulk string.
func NullBulk() BulkString {
	return BulkString{Null: true}
}

// String returns the bulk content as text.
func (b BulkString) String() string {
	return string(b.Data)
}

// Command builds a request array of bulk strings, e.g. Command("SET", "k", "v").
func Command(args ...string) Array {
	out := make(Array, 0, len(args))
	for _, a := range args {
		out = append(out, Bulk(a))
	}
	return out
}

// Equal reports whether a and b are structurally identical.
// A present empty bulk string equals any other present empty bulk string.
func Equal(a, b Message) bool {
	switch av := a.(type) {
	case SimpleString:
		bv, ok := b.(SimpleString)
		return ok && av == bv
	case Error:
		bv, ok := b.(Error)
		return ok && av == bv
	case Integer:
		bv, ok := b.(Integer)
		return ok && av == bv
	case BulkString:
		bv, ok := b.(BulkString)
		if !ok || av.Null != bv.Null {
			return false
		}
		return av.Null || string(av.Data) == string(bv.Data)
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	default:
		return false
	}
}
