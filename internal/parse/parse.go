// Package parse locates the JSON array in a model response, decodes it and
// checks that it is a list of records.
package parse

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// Decoded is a JSON value decoded from a response fragment.
type Decoded struct {
	// Raw is the full response text the fragment was taken from.
	Raw string
	// Text is the decoded fragment.
	Text   string
	Result gjson.Result
}

// Value returns the decoded value as plain Go data (maps, slices, float64,
// string, bool or nil).
func (d Decoded) Value() any {
	return d.Result.Value()
}

// ExtractArray returns the first bracketed substring of text: from the first
// '[' up to the first ']' after it. Nested or multiple arrays are not
// balanced, so `[[1],[2]]` yields `[[1]`.
//
// A '[' with no closing ']' is returned as a DecodeError carrying the
// unterminated fragment, since the text does start an array that cannot be
// decoded. No '[' at all is an ExtractionError.
func ExtractArray(text string) (string, error) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return "", &ExtractionError{Raw: text}
	}
	end := strings.IndexByte(text[start:], ']')
	if end < 0 {
		return "", &DecodeError{
			Raw:      text,
			Fragment: text[start:],
			Err:      eris.New("unterminated array"),
		}
	}
	return text[start : start+end+1], nil
}

// Decode validates and parses fragment as JSON.
func Decode(fragment string) (Decoded, error) {
	if !gjson.Valid(fragment) {
		return Decoded{}, &DecodeError{
			Raw:      fragment,
			Fragment: fragment,
			Err:      eris.New("invalid JSON"),
		}
	}
	return Decoded{Raw: fragment, Text: fragment, Result: gjson.Parse(fragment)}, nil
}

// Parse extracts the first JSON array from raw and decodes it. Errors carry
// raw for diagnostics.
func Parse(raw string) (Decoded, error) {
	fragment, err := ExtractArray(raw)
	if err != nil {
		return Decoded{}, err
	}

	d, err := Decode(fragment)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Raw = raw
		}
		return Decoded{}, err
	}
	d.Raw = raw
	return d, nil
}

// Records parses raw and validates the result in one step.
func Records(raw string) ([]Record, error) {
	d, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return Validate(d)
}
