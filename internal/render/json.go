package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ginjaninja78/interlis-enums/internal/types"
)

// record is one enumeration value as written to mapping outputs.
type record struct {
	ID      int    `json:"id" yaml:"id"`
	Enum    string `json:"enum" yaml:"enum"`
	EnumTxt string `json:"enumtxt" yaml:"enumtxt"`
}

func records(values []types.EnumValue) []record {
	out := make([]record, 0, len(values))
	for _, v := range values {
		out = append(out, record{ID: v.ID, Enum: v.Code, EnumTxt: v.Label})
	}
	return out
}

// orderedTables marshals as a JSON object whose keys keep table order.
type orderedTables []table

// MarshalJSON implements json.Marshaler.
func (o orderedTables) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalUnescaped(t.Key)
		if err != nil {
			return nil, err
		}
		value, err := marshalUnescaped(records(t.Values))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalUnescaped marshals v without HTML escaping.
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type jsonRenderer struct {
	options Options
}

func (r *jsonRenderer) Format() Format { return FormatJSON }

// Render writes the catalog as a JSON object followed by a newline.
func (r *jsonRenderer) Render(w io.Writer, catalog *types.Catalog) error {
	tables, err := keyedTables(catalog, r.options.Keys)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if r.options.Pretty {
		enc.SetIndent("", r.options.Indent)
	}
	if err := enc.Encode(orderedTables(tables)); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
