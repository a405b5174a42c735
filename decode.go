package ical

import (
	"strconv"
	"strings"
	"time"
)

// Value types resolved by the default mapper. A TypeMapper may return
// any string; unknown types decode as text.
const (
	TypeText     = "TEXT"
	TypeInteger  = "INTEGER"
	TypeDate     = "DATE"
	TypeDateTime = "DATE-TIME"
)

// A Context carries the resolution state one parse threads through
// type mapping and decoding. Its property stack exposes the property
// currently being decoded, so decoders whose layout depends on sibling
// parameters (TZID, VALUE) can reach them.
type Context struct {
	props []*Property
}

// NewContext creates an empty Context
func NewContext() *Context {
	return &Context{}
}

// CurrentProperty returns the property being decoded, or nil outside
// of a decode.
func (c *Context) CurrentProperty() *Property {
	if len(c.props) == 0 {
		return nil
	}
	return c.props[len(c.props)-1]
}

func (c *Context) pushProperty(p *Property) {
	c.props = append(c.props, p)
}

func (c *Context) popProperty() {
	c.props = c.props[:len(c.props)-1]
}

// genericFactory builds a bare Component for any name.
type genericFactory struct{}

func (genericFactory) Build(name string) *Component {
	return NewComponent(name)
}

type noopHooks struct{}

func (noopHooks) OnStart(*Component)  {}
func (noopHooks) OnFinish(*Component) {}

// propertyTypes maps the RFC 5545 properties whose default type is not
// TEXT. Everything else falls through to the text decoder. EXDATE and
// RDATE are absent on purpose: they carry comma-separated lists (and
// RDATE may carry periods), which the single-timestamp date decoder
// cannot represent, so they stay text and fan out per value.
var propertyTypes = map[string]string{
	"COMPLETED":        TypeDateTime,
	"CREATED":          TypeDateTime,
	"DTEND":            TypeDateTime,
	"DTSTAMP":          TypeDateTime,
	"DTSTART":          TypeDateTime,
	"DUE":              TypeDateTime,
	"LAST-MODIFIED":    TypeDateTime,
	"RECURRENCE-ID":    TypeDateTime,
	"PERCENT-COMPLETE": TypeInteger,
	"PRIORITY":         TypeInteger,
	"REPEAT":           TypeInteger,
	"SEQUENCE":         TypeInteger,
}

// defaultTypeMapper resolves with an explicit VALUE= parameter on the
// property being decoded when present, then the propertyTypes table.
type defaultTypeMapper struct{}

func (defaultTypeMapper) ResolveType(name string, ctx *Context) (string, bool) {
	if prop := ctx.CurrentProperty(); prop != nil {
		if v := prop.Parameter("VALUE"); v != nil && len(v.Values) > 0 {
			return strings.ToUpper(v.Values[0]), true
		}
	}

	valueType, ok := propertyTypes[name]
	return valueType, ok
}

// DefaultDecoders returns the package's decoder set. Date-time values
// without a TZID parameter or UTC marker are interpreted in the given
// location; if it is nil, it will default to the system location.
func DefaultDecoders(l *time.Location) DecoderFactory {
	return defaultDecoderFactory{location: l}
}

type defaultDecoderFactory struct {
	location *time.Location
}

func (f defaultDecoderFactory) Build(valueType string, ctx *Context) Decoder {
	switch valueType {
	case TypeInteger:
		return integerDecoder{}
	case TypeDate, TypeDateTime:
		return dateTimeDecoder{ctx: ctx, location: f.location}
	default:
		return textDecoder{}
	}
}

// textDecoder undoes RFC 5545 section 3.3.11 escaping and splits the
// value on unescaped commas. It always returns []string, one entry per
// comma-separated value.
type textDecoder struct{}

func (textDecoder) Decode(text string) (interface{}, error) {
	values := make([]string, 0, 1)
	var buf strings.Builder

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			if i+1 == len(text) {
				buf.WriteByte('\\')
				break
			}
			i++
			switch text[i] {
			case 'n', 'N':
				buf.WriteByte('\n')
			case '\\', ';', ',':
				buf.WriteByte(text[i])
			default:
				// Not an escape sequence the RFC defines; keep it.
				buf.WriteByte('\\')
				buf.WriteByte(text[i])
			}
		case ',':
			values = append(values, buf.String())
			buf.Reset()
		default:
			buf.WriteByte(text[i])
		}
	}

	values = append(values, buf.String())
	return values, nil
}

type integerDecoder struct{}

func (integerDecoder) Decode(text string) (interface{}, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))

	if err != nil {
		return nil, &DecodeError{Type: TypeInteger, Text: text, Err: err}
	}

	return n, nil
}

const (
	dateLayout              = "20060102"
	dateTimeLayoutUTC       = "20060102T150405Z"
	dateTimeLayoutLocalized = "20060102T150405"
)

// dateTimeDecoder reads the TZID and VALUE parameters of the property
// being decoded off the context to pick layout and location.
type dateTimeDecoder struct {
	ctx      *Context
	location *time.Location
}

func (d dateTimeDecoder) Decode(text string) (interface{}, error) {
	l := d.location
	if l == nil {
		l = time.Local
	}

	t, err := parseDate(text, d.ctx.CurrentProperty(), l)

	if err != nil {
		return nil, &DecodeError{Type: TypeDateTime, Text: text, Err: err}
	}

	return t, nil
}

// parseDate transforms an ical date value into a time.Time
func parseDate(value string, prop *Property, l *time.Location) (time.Time, error) {
	if strings.HasSuffix(value, "Z") {
		return time.Parse(dateTimeLayoutUTC, value)
	}

	if prop != nil {
		if tz := prop.Parameter("TZID"); tz != nil && len(tz.Values) > 0 {
			loc, err := time.LoadLocation(tz.Values[0])

			// In case we are not able to load TZID location we default to UTC
			if err != nil {
				loc = time.UTC
			}

			return time.ParseInLocation(dateTimeLayoutLocalized, value, loc)
		}
	}

	if len(value) == 8 {
		return time.ParseInLocation(dateLayout, value, l)
	}

	layout := dateTimeLayoutLocalized

	if prop != nil {
		if val := prop.Parameter("VALUE"); val != nil && len(val.Values) > 0 {
			switch val.Values[0] {
			case "DATE":
				layout = dateLayout

				// Handle malformed DATE entries that use DATE-TIME format
				if len(value) == len(dateTimeLayoutLocalized) {
					layout = dateTimeLayoutLocalized
				}
			case "DATE-TIME":
				layout = dateTimeLayoutLocalized
			}
		}
	}

	return time.ParseInLocation(layout, value, l)
}
