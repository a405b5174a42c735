package ical

import "strings"

// A LineScanner yields the lines of a source in order. It is the
// subset of bufio.Scanner the unfolder needs, so a *bufio.Scanner can
// be passed directly; splitting on CRLF or LF is the scanner's concern.
type LineScanner interface {
	Scan() bool
	Text() string
	Err() error
}

// unfolder reassembles logical lines from the folded wire form
// (RFC 5545 section 3.1): a physical line starting with a space or
// horizontal tab continues the previous line, with the marker removed.
//
// It is single-pass and pull-based; each call to next consumes physical
// lines until a logical line is complete.
type unfolder struct {
	src      LineScanner
	buf      strings.Builder
	open     bool // a logical line is being accumulated
	physical int  // index of the last physical line read
	origin   int  // physical line the accumulated logical line began on
}

func newUnfolder(src LineScanner) *unfolder {
	return &unfolder{src: src, physical: -1}
}

// next returns the next logical line and the physical line index it
// began on. ok is false when the source is exhausted or failed; a
// source failure is returned as-is.
func (u *unfolder) next() (line string, origin int, ok bool, err error) {
	for u.src.Scan() {
		u.physical++
		text := u.src.Text()

		switch {
		case text == "":
			// Blank physical lines are invisible: they neither
			// contribute text nor end the logical line in progress.
		case text[0] == ' ' || text[0] == '\t':
			if !u.open {
				// A continuation with nothing to continue is undefined
				// in RFC 5545. Start a new logical line here rather
				// than dropping the text.
				u.open = true
				u.origin = u.physical
			}
			u.buf.WriteString(text[1:])
		default:
			if u.open {
				line, origin = u.flush()
				u.open = true
				u.origin = u.physical
				u.buf.WriteString(text)
				return line, origin, true, nil
			}
			u.open = true
			u.origin = u.physical
			u.buf.WriteString(text)
		}
	}

	if err := u.src.Err(); err != nil {
		return "", 0, false, err
	}

	if u.open {
		line, origin = u.flush()
		return line, origin, true, nil
	}

	return "", 0, false, nil
}

func (u *unfolder) flush() (string, int) {
	line, origin := u.buf.String(), u.origin
	u.buf.Reset()
	u.open = false
	return line, origin
}
