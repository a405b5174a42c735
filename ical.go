// Package ical implements a streaming iCalendar deserializer.
//
// iCalendar is defined in RFC 5545. The deserializer unfolds physical
// lines into content lines, matches each against the content-line
// grammar and assembles the BEGIN/END delimited stream into a tree of
// components. Value decoding is pluggable per property type.
package ical

import (
	"bytes"
	"strings"
)

// A Component is a named container of properties and nested components,
// delimited in the source by BEGIN/END lines sharing its name.
type Component struct {
	Name       string
	Properties []*Property
	Children   []*Component
}

// A Property is a decoded content line attached to a component.
// The concrete type of each value is chosen by the decoder that
// produced it; the text decoder yields strings.
type Property struct {
	Name   string
	Params []Parameter
	Values []interface{}
}

// A Parameter is one name=value[,value...] occurrence on a content line.
// Repeating a parameter name on one line yields separate occurrences;
// they are never merged.
type Parameter struct {
	Name   string
	Values []string
}

// A ContentLine is one grammar-parsed logical line, value not yet decoded.
type ContentLine struct {
	Name   string
	Params []Parameter
	Value  string
}

// NewComponent creates an empty Component with the given name.
func NewComponent(name string) *Component {
	return &Component{
		Name:       name,
		Properties: make([]*Property, 0),
		Children:   make([]*Component, 0),
	}
}

// NewProperty creates an empty Property
func NewProperty(name string) *Property {
	return &Property{Name: name}
}

// Property returns the first property with the given name, or nil.
// The match is case-insensitive; decoded property names are upper case.
func (c *Component) Property(name string) *Property {
	for _, prop := range c.Properties {
		if strings.EqualFold(prop.Name, name) {
			return prop
		}
	}
	return nil
}

// Child returns the first child component with the given name, or nil.
func (c *Component) Child(name string) *Component {
	for _, child := range c.Children {
		if strings.EqualFold(child.Name, name) {
			return child
		}
	}
	return nil
}

// Parameter returns the first parameter occurrence with the given name,
// or nil.
func (p *Property) Parameter(name string) *Parameter {
	for i := range p.Params {
		if strings.EqualFold(p.Params[i].Name, name) {
			return &p.Params[i]
		}
	}
	return nil
}

// Text returns the first value as a string, or "" when the property has
// no values or its first value is not a string.
func (p *Property) Text() string {
	if len(p.Values) == 0 {
		return ""
	}
	s, _ := p.Values[0].(string)
	return s
}

// String renders the content line back to its wire form. Parameter
// values are quoted only when they contain a character that would
// otherwise end them.
func (cl ContentLine) String() string {
	var buf bytes.Buffer
	buf.WriteString(cl.Name)

	for _, param := range cl.Params {
		buf.WriteString(";")
		param.appendTo(&buf)
	}

	buf.WriteString(":")
	buf.WriteString(cl.Value)
	return buf.String()
}

func (p Parameter) appendTo(buf *bytes.Buffer) {
	buf.WriteString(p.Name)
	buf.WriteString("=")
	for i, v := range p.Values {
		if i > 0 {
			buf.WriteString(",")
		}
		if strings.ContainsAny(v, ";:,") {
			buf.WriteString("\"")
			buf.WriteString(v)
			buf.WriteString("\"")
		} else {
			buf.WriteString(v)
		}
	}
}
