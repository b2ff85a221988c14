package parse

import "fmt"

// ExtractionError reports a response with no bracketed array in it.
type ExtractionError struct {
	Raw string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("parse: no JSON array found in response (%d bytes)", len(e.Raw))
}

// DecodeError reports a bracketed fragment that is not valid JSON.
type DecodeError struct {
	Raw      string
	Fragment string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("parse: decode array: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ShapeError reports decoded JSON that is not a list of key/value records.
type ShapeError struct {
	Raw string
	// Text is the decoded fragment.
	Text string
	Err  error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("parse: unexpected shape: %v", e.Err)
}

func (e *ShapeError) Unwrap() error { return e.Err }

// Content returns the decoded fragment, or the whole response when no
// fragment is known.
func (e *ShapeError) Content() string {
	if e.Text != "" {
		return e.Text
	}
	return e.Raw
}

// Content returns the text worth keeping for diagnostics: the extracted
// fragment when one was found, the whole response otherwise.
func (e *DecodeError) Content() string {
	if e.Fragment != "" {
		return e.Fragment
	}
	return e.Raw
}
