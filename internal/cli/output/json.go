package output

import (
	"encoding/json"
	"io"

	"github.com/yndnr/minikv/internal/resp"
)

// JSONFormatter formats data as JSON.
type JSONFormatter struct{}

// Format formats data as indented JSON.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	if m, ok := data.(resp.Message); ok {
		data = Value(m)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
