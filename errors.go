package ical

import "fmt"

// A GrammarError reports a logical line that does not match the
// content-line grammar. It carries the offending line verbatim.
type GrammarError struct {
	Text   string // the raw logical line
	Reason string
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("cannot parse content line %q: %s", e.Text, e.Reason)
}

// A StructuralError reports a BEGIN/END sequence that cannot form a
// component tree: a content line outside any component, an END whose
// name does not match the open component, or input ending with a
// component still open.
type StructuralError struct {
	Found    string
	Expected string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("found %s, expected %s", e.Found, e.Expected)
}

// A DecodeError reports a raw value the selected decoder could not
// turn into a typed value.
type DecodeError struct {
	Type string // value type the decoder was built for
	Text string // raw value text
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %q as %s: %v", e.Text, e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// A LineError locates a parse failure on the logical line being
// processed when it occurred. Line is the zero-based index of the
// logical line, Source the zero-based physical line it began on.
// Failures outside the per-line loop, such as an unclosed component at
// end of input, carry no line context and are returned unwrapped.
type LineError struct {
	Line   int
	Source int
	Text   string
	Err    error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d (source line %d) %q: %v", e.Line, e.Source, e.Text, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }
