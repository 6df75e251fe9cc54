package report

import (
	"bytes"
	"encoding/json"

	"github.com/ginjaninja78/incident-form-converter/internal/types"
	"github.com/ginjaninja78/incident-form-converter/internal/validation"
)

// Entry is the JSON form of one record: the eleven form fields in form
// order, followed by "valid" and "errors" when the record was validated in
// detailed mode.
type Entry struct {
	Record  types.Record
	Outcome *validation.Outcome
}

// NewEntry builds the entry of a record. The outcome is included only when
// it comes from detailed validation.
func NewEntry(record types.Record, outcome validation.Outcome) Entry {
	e := Entry{Record: record}
	if outcome.Mode == validation.ModeDetailed {
		e.Outcome = &outcome
	}
	return e
}

// MarshalJSON writes the entry as an object with a fixed key order.
func (e Entry) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')

	for i, f := range types.Fields() {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeMember(&b, string(f), e.Record.Field(f)); err != nil {
			return nil, err
		}
	}

	if e.Outcome != nil {
		b.WriteByte(',')
		if err := writeMember(&b, "valid", e.Outcome.Valid()); err != nil {
			return nil, err
		}

		b.WriteString(`,"errors":{`)
		for i, fe := range e.Outcome.Errors {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeMember(&b, string(fe.Field), fe.Message); err != nil {
				return nil, err
			}
		}
		b.WriteByte('}')
	}

	b.WriteByte('}')
	return b.Bytes(), nil
}

// writeMember writes "key":value.
func writeMember(b *bytes.Buffer, key string, value any) error {
	if err := encodeTo(b, key); err != nil {
		return err
	}
	b.WriteByte(':')
	return encodeTo(b, value)
}

// encodeTo writes v as compact JSON without HTML escaping and without the
// trailing newline added by json.Encoder.
func encodeTo(b *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	b.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// EncodeDocument renders entries as a JSON array: UTF-8, 4-space indent,
// non-ASCII and HTML characters written literally, no trailing newline.
// An empty set renders as [].
func EncodeDocument(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(entries); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
