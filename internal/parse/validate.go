package parse

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

const recordsSchema = `{
  "type": "array",
  "items": {"type": "object"}
}`

var schema = jsonschema.MustCompileString("records.json", recordsSchema)

// Record is one extracted key/value mapping. Keys keep the order they appear
// in the response.
type Record struct {
	keys   []string
	values map[string]gjson.Result
}

// NewRecord builds a record from alternating key/value pairs. Values are
// stored as JSON strings. Intended for callers that assemble records by hand.
func NewRecord(pairs ...string) Record {
	r := Record{values: make(map[string]gjson.Result, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.set(pairs[i], gjson.Result{Type: gjson.String, Str: pairs[i+1]})
	}
	return r
}

func (r *Record) set(key string, v gjson.Result) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Keys returns the record's field names in document order.
func (r Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.keys) }

// Cell returns the value for key formatted for a flat table cell. Strings are
// returned unquoted, null as "", anything else as compact JSON. The second
// result reports whether the key is present.
func (r Record) Cell(key string) (string, bool) {
	v, ok := r.values[key]
	if !ok {
		return "", false
	}
	switch v.Type {
	case gjson.String:
		return v.Str, true
	case gjson.Null:
		return "", true
	default:
		return string(pretty.Ugly([]byte(v.Raw))), true
	}
}

// Validate confirms d is a list whose every element is a JSON object and
// returns the elements as records. Nothing is accepted from a list with any
// element of the wrong shape.
func Validate(d Decoded) ([]Record, error) {
	if err := schema.Validate(d.Value()); err != nil {
		return nil, &ShapeError{Raw: d.Raw, Text: d.Text, Err: err}
	}

	items := d.Result.Array()
	records := make([]Record, 0, len(items))
	for _, item := range items {
		rec := Record{values: make(map[string]gjson.Result)}
		item.ForEach(func(key, value gjson.Result) bool {
			// Duplicate keys keep their first position and last value.
			rec.set(key.String(), value)
			return true
		})
		records = append(records, rec)
	}
	return records, nil
}
