package ical

// ExportError wraps a serialization failure. The export is all-or-nothing:
// when any event fails to serialize, no partial calendar text is returned.
type ExportError struct {
	Err error
}

func (e *ExportError) Error() string {
	return "ical export failed: " + e.Err.Error()
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// ParseError wraps a failure to decode calendar text. Parsing is
// all-or-nothing: malformed input yields no events.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "ical parse failed: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
