package ical

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// item represents a token or text string returned from the scanner.
type item struct {
	typ itemType // The type of this item.
	pos int      // The starting position, in bytes, of this item in the input string.
	val string   // The value of this item.
}

func (i item) String() string {
	switch {
	case i.typ == itemEOF:
		return "EOF"
	case i.typ == itemError:
		return i.val
	case len(i.val) > 10:
		return fmt.Sprintf("%.10q...", i.val)
	}
	return fmt.Sprintf("%q", i.val)
}

// itemType identifies the type of lex items.
type itemType int

const (
	// Special tokens
	itemError itemType = iota
	itemEOF

	// Literals
	itemName
	itemParamName
	itemParamValue
	itemValue

	// Misc
	itemColon     // :
	itemSemiColon // ;
	itemEqual     // =
	itemComma     // ,
)

const eof = -1

// stateFn represents the state of the scanner as a function that returns the next state.
type stateFn func(*lexer) stateFn

// lexer holds the state of the scanner. The input is one logical line:
// folding has already been undone and there is no trailing CRLF.
type lexer struct {
	input string    // the string being scanned
	state stateFn   // the next lexing function to enter
	start int       // start position of this item
	pos   int       // current position in the input
	width int       // width of last rune read from input
	items chan item // channel of scanned items
}

// lex creates a new scanner for the input string.
func lex(input string) *lexer {
	l := &lexer{
		input: input,
		items: make(chan item),
	}
	go l.run() // Concurrently run state machine.
	return l
}

// run runs the state machine for the lexer.
func (l *lexer) run() {
	for l.state = lexName; l.state != nil; {
		l.state = l.state(l)
	}
	close(l.items) // No more tokens will be delivered.
}

// emit passes an item back to the client.
func (l *lexer) emit(t itemType) {
	l.items <- item{t, l.start, l.input[l.start:l.pos]}
	l.start = l.pos
}

// ignore skips over the pending input before this point.
func (l *lexer) ignore() {
	l.start = l.pos
}

// next returns the next rune in the input.
func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += l.width
	return r
}

// backup steps back one rune. Can only be called once per call of next.
func (l *lexer) backup() {
	l.pos -= l.width
}

// errorf returns an error token and terminates the scan by passing
// back a nil pointer that will be the next state, terminating l.nextItem.
func (l *lexer) errorf(format string, args ...interface{}) stateFn {
	l.items <- item{itemError, l.start, fmt.Sprintf(format, args...)}
	return nil
}

// nextItem returns the next item from the input.
// Called by the parser, not in the lexing goroutine.
func (l *lexer) nextItem() item {
	return <-l.items
}

// drain consumes the remaining items so the lexing goroutine can exit.
// Called by the parser when it aborts before reaching EOF.
func (l *lexer) drain() {
	for range l.items {
	}
}

// State functions

// lexName scans the name in the content line
//
// name       = iana-token / x-name
// iana-token = 1*(ALPHA / DIGIT / "-") ; iCalendar identifier registered with IANA
// x-name     = "X-" [vendorid "-"] 1*(ALPHA / DIGIT / "-") ; Reserved for experimental use.
// vendorid   = 3*(ALPHA / DIGIT) ; Vendor identification
//
// "_" is accepted as well, matching names emitted by common producers.
func lexName(l *lexer) stateFn {
Loop:
	for {
		switch r := l.next(); {
		case isName(r):
			// absorb
		default:
			l.backup()
			if l.pos == l.start {
				return l.errorf("missing name at start of line")
			}
			l.emit(itemName)
			break Loop
		}
	}
	return lexContentLine
}

// lexContentLine scans the punctuation between the other tokens.
func lexContentLine(l *lexer) stateFn {
	switch r := l.next(); {
	case r == ';':
		l.emit(itemSemiColon)
		return lexParamName
	case r == ':':
		l.emit(itemColon)
		return lexValue
	case r == ',':
		l.emit(itemComma)
		return lexParamValue
	case r == eof:
		return l.errorf("unexpected end of line, expected \":\"")
	default:
		return l.errorf("unrecognized character in content line: %#U", r)
	}
}

// lexParamName scans the param-name in the content line
//
// param-name = iana-token / x-name
func lexParamName(l *lexer) stateFn {
Loop:
	for {
		switch r := l.next(); {
		case isName(r):
			// absorb
		default:
			l.backup()
			if l.pos == l.start {
				return l.errorf("missing param name after \";\"")
			}
			l.emit(itemParamName)
			break Loop
		}
	}

	r := l.next()

	if r == '=' {
		l.emit(itemEqual)
		return lexParamValue
	}
	return l.errorf("missing \"=\" sign after param name, got %#U", r)
}

// lexParamValue scans the param-value in the content line
//
// param-value   = paramtext / quoted-string
// paramtext     = *SAFE-CHAR
// quoted-string = DQUOTE *QSAFE-CHAR DQUOTE
// QSAFE-CHAR    = WSP / %x21 / %x23-7E / NON-US-ASCII ; Any character except CONTROL and DQUOTE
// SAFE-CHAR     = WSP / %x21 / %x23-2B / %x2D-39 / %x3C-7E / NON-US-ASCII ; Any character except CONTROL, DQUOTE, ";", ":", ","
func lexParamValue(l *lexer) stateFn {
	r := l.next()

	if r == '"' {
		l.ignore()
	QLoop:
		for {
			switch r := l.next(); {
			case isQSafeChar(r):
				// absorb
			default:
				l.backup()
				l.emit(itemParamValue)
				break QLoop
			}
		}

		r := l.next()

		if r != '"' {
			return l.errorf("missing \" for closing value")
		}
		l.ignore()
	} else {
		l.backup()
	Loop:
		for {
			switch r := l.next(); {
			case isSafeChar(r):
				// absorb
			default:
				l.backup()
				l.emit(itemParamValue)
				break Loop
			}
		}
	}

	return lexContentLine
}

// lexValue scans the value in the content line
//
// value      = *VALUE-CHAR
// VALUE-CHAR = WSP / %x21-7E / NON-US-ASCII ; Any textual character
func lexValue(l *lexer) stateFn {
Loop:
	for {
		switch r := l.next(); {
		case isValueChar(r):
			// absorb
		default:
			l.backup()
			l.emit(itemValue)
			break Loop
		}
	}

	// The match is anchored: anything left over is a character the
	// value class excludes.
	if r := l.next(); r != eof {
		return l.errorf("control character in value: %#U", r)
	}

	l.emit(itemEOF)
	return nil
}

// rune helpers

func isName(r rune) bool {
	return r == '-' || r == '_' ||
		('0' <= r && r <= '9') ||
		('a' <= r && r <= 'z') ||
		('A' <= r && r <= 'Z')
}

func isQSafeChar(r rune) bool {
	return r != eof && !unicode.IsControl(r) && r != '"'
}

func isSafeChar(r rune) bool {
	return r != eof && !unicode.IsControl(r) && r != '"' && r != ';' && r != ':' && r != ','
}

func isValueChar(r rune) bool {
	return r != eof && r > 0x08 && !(0x0E <= r && r <= 0x1F) && r != 0x7F
}
