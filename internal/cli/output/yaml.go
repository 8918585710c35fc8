package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/minikv/internal/resp"
)

// YAMLFormatter formats data as YAML.
type YAMLFormatter struct{}

// Format formats data as YAML.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	if m, ok := data.(resp.Message); ok {
		data = Value(m)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}
