package ical

import (
	"bufio"
	"io"
	"strings"
)

// A ComponentFactory builds the empty node for a BEGIN line. It must
// accept unknown names; the default builds a plain Component.
type ComponentFactory interface {
	Build(name string) *Component
}

// Hooks brackets a component's BEGIN/END span. OnStart runs right
// after the factory builds the node, OnFinish right before the node is
// attached to its parent or emitted.
type Hooks interface {
	OnStart(*Component)
	OnFinish(*Component)
}

// A TypeMapper resolves the value type used to decode a property.
// Returning false means it has no mapping and TypeText is used. The
// property being decoded is on the context, so a mapper can honor an
// explicit VALUE= override.
type TypeMapper interface {
	ResolveType(name string, ctx *Context) (string, bool)
}

// A DecoderFactory builds the decoder for a resolved value type.
type DecoderFactory interface {
	Build(valueType string, ctx *Context) Decoder
}

// A Decoder turns raw value text into one typed value. A []string
// result fans out into one property value per element.
type Decoder interface {
	Decode(text string) (interface{}, error)
}

// A Deserializer parses iCalendar text into component trees. Nil
// collaborators fall back to the package defaults, so the zero value
// is ready to use. A Deserializer holds no parse state and may be
// shared; each call to Deserialize returns an independent iterator.
type Deserializer struct {
	Factory  ComponentFactory
	Hooks    Hooks
	Types    TypeMapper
	Decoders DecoderFactory
}

// Deserialize reads r line by line. It's up to the caller to close the
// io.Reader.
func (d *Deserializer) Deserialize(r io.Reader) *Components {
	return d.DeserializeLines(bufio.NewScanner(r))
}

// DeserializeLines parses an already line-split source.
func (d *Deserializer) DeserializeLines(src LineScanner) *Components {
	c := &Components{
		factory:  d.Factory,
		hooks:    d.Hooks,
		types:    d.Types,
		decoders: d.Decoders,
		u:        newUnfolder(src),
		ctx:      NewContext(),
	}

	if c.factory == nil {
		c.factory = genericFactory{}
	}
	if c.hooks == nil {
		c.hooks = noopHooks{}
	}
	if c.types == nil {
		c.types = defaultTypeMapper{}
	}
	if c.decoders == nil {
		c.decoders = defaultDecoderFactory{}
	}

	return c
}

// Parse reads the whole of r and returns its top-level components.
func Parse(r io.Reader) ([]*Component, error) {
	components := make([]*Component, 0)
	iter := new(Deserializer).Deserialize(r)

	for {
		component, err := iter.Next()

		if err == io.EOF {
			return components, nil
		}

		if err != nil {
			return nil, err
		}

		components = append(components, component)
	}
}

// Components is the lazy sequence of top-level components of one
// parse. It is single-pass: Next consumes the underlying source and
// the sequence cannot be restarted or shared between goroutines.
type Components struct {
	factory  ComponentFactory
	hooks    Hooks
	types    TypeMapper
	decoders DecoderFactory

	u    *unfolder
	ctx  *Context
	line int // logical lines consumed so far

	stack []*Component // ancestors of cur; a nil entry marks the root
	cur   *Component   // currently open component

	err error
}

// Next returns the next top-level component, doing just enough work to
// finish one. A component is returned as soon as its END line pops the
// stack empty, before the rest of the input is read. At clean end of
// input Next returns io.EOF; any other error is fatal for the parse
// and repeated calls keep returning it.
func (c *Components) Next() (*Component, error) {
	if c.err != nil {
		return nil, c.err
	}

	for {
		text, origin, ok, err := c.u.next()

		if err != nil {
			// A source failure happens outside any line, so there is
			// no line context to attach.
			c.err = err
			return nil, c.err
		}

		if !ok {
			if c.cur != nil {
				c.err = &StructuralError{
					Found:    "end of input",
					Expected: "END:" + c.cur.Name,
				}
				return nil, c.err
			}
			c.err = io.EOF
			return nil, c.err
		}

		index := c.line
		c.line++

		component, err := c.advance(text)

		if err != nil {
			c.err = &LineError{Line: index, Source: origin, Text: text, Err: err}
			return nil, c.err
		}

		if component != nil {
			return component, nil
		}
	}
}

// advance feeds one logical line to the component stack machine and
// returns a component when the line completed a top-level one.
func (c *Components) advance(text string) (*Component, error) {
	cl, err := parseContentLine(text)

	if err != nil {
		return nil, err
	}

	switch cl.Name {
	case "BEGIN":
		c.stack = append(c.stack, c.cur)
		node := c.factory.Build(cl.Value)
		c.hooks.OnStart(node)
		c.cur = node

	case "END":
		if c.cur == nil {
			return nil, &StructuralError{Found: "END:" + cl.Value, Expected: "BEGIN"}
		}

		if !strings.EqualFold(c.cur.Name, cl.Value) {
			return nil, &StructuralError{
				Found:    "END:" + cl.Value,
				Expected: "END:" + c.cur.Name,
			}
		}

		finished := c.cur
		c.hooks.OnFinish(finished)

		c.cur = c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]

		if c.cur == nil {
			return finished, nil
		}
		c.cur.Children = append(c.cur.Children, finished)

	default:
		if c.cur == nil {
			return nil, &StructuralError{Found: cl.Name, Expected: "BEGIN"}
		}

		prop, err := c.decodeProperty(cl)

		if err != nil {
			return nil, err
		}

		c.cur.Properties = append(c.cur.Properties, prop)
	}

	return nil, nil
}

// decodeProperty resolves a value type for the content line, builds a
// decoder for it and fans the decoded result into the property's
// value list.
func (c *Components) decodeProperty(cl *ContentLine) (*Property, error) {
	prop := NewProperty(cl.Name)
	prop.Params = cl.Params

	// The in-progress property goes on the context before type
	// resolution so a VALUE= override is visible to the mapper, and
	// stays there for the decoder. Popped even when decoding fails.
	c.ctx.pushProperty(prop)
	defer c.ctx.popProperty()

	valueType, ok := c.types.ResolveType(cl.Name, c.ctx)
	if !ok {
		valueType = TypeText
	}

	decoder := c.decoders.Build(valueType, c.ctx)

	value, err := decoder.Decode(cl.Value)

	if err != nil {
		return nil, err
	}

	if list, ok := value.([]string); ok {
		for _, v := range list {
			prop.Values = append(prop.Values, v)
		}
	} else {
		prop.Values = append(prop.Values, value)
	}

	return prop, nil
}
