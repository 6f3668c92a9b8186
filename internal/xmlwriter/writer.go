// =============================================================================
// INTERLIS Enum Extractor - XML Writer Module
// =============================================================================
//
// This module builds small XML documents as an element tree and serializes
// them with deterministic formatting. It is used by the GML renderer.
//
// OUTPUT RULES:
//   - An element with neither text nor children is written self-closing.
//   - An element with text is written on one line: <id>0</id>
//   - An element with children gets one child per line when Pretty is set.
//   - Attributes are written in insertion order.
//
// =============================================================================

package xmlwriter

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls serialization.
type Options struct {
	// Pretty writes one element per line, indented by Indent.
	Pretty bool

	// Indent is the per-level indentation used when Pretty is set.
	// Default: "  " (two spaces)
	Indent string

	// XMLDeclaration writes <?xml version="1.0" encoding="UTF-8"?> first.
	XMLDeclaration bool
}

// =============================================================================
// ELEMENT TREE
// =============================================================================

// Attr is one attribute. Name is written verbatim, so prefixed names such as
// "xmlns:gml" are allowed.
type Attr struct {
	Name  string
	Value string
}

// Element is a node of the document tree.
type Element struct {
	Name       string
	Attributes []Attr
	Text       string
	Children   []*Element
}

// NewElement creates an element with the given tag name.
func NewElement(name string) *Element {
	return &Element{Name: name}
}

// SetAttr appends an attribute and returns the element for chaining.
func (e *Element) SetAttr(name, value string) *Element {
	e.Attributes = append(e.Attributes, Attr{Name: name, Value: value})
	return e
}

// AddChild appends a new child element and returns it.
func (e *Element) AddChild(name string) *Element {
	child := NewElement(name)
	e.Children = append(e.Children, child)
	return child
}

// AddText appends a child element holding only text and returns it.
func (e *Element) AddText(name, text string) *Element {
	child := e.AddChild(name)
	child.Text = text
	return child
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// Write serializes root to w. The output always ends with a newline.
func Write(w io.Writer, root *Element, options Options) error {
	if root == nil {
		return fmt.Errorf("xmlwriter: nil root element")
	}

	bw := bufio.NewWriter(w)
	p := &printer{w: bw, options: options}

	if options.XMLDeclaration {
		p.writeString(`<?xml version="1.0" encoding="UTF-8"?>`)
		p.writeString("\n")
	}

	p.writeElement(root, 0)
	if !options.Pretty {
		p.writeString("\n")
	}

	if p.err != nil {
		return fmt.Errorf("failed to write XML: %w", p.err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush XML: %w", err)
	}
	return nil
}

// printer keeps the first write error so the element walk stays linear.
type printer struct {
	w       *bufio.Writer
	options Options
	err     error
}

func (p *printer) writeString(s string) {
	if p.err != nil {
		return
	}
	_, p.err = p.w.WriteString(s)
}

func (p *printer) writeEscaped(s string) {
	if p.err != nil {
		return
	}
	p.err = xml.EscapeText(p.w, []byte(s))
}

func (p *printer) indent(level int) {
	if p.options.Pretty && level > 0 {
		p.writeString(strings.Repeat(p.options.Indent, level))
	}
}

func (p *printer) newline() {
	if p.options.Pretty {
		p.writeString("\n")
	}
}

func (p *printer) writeElement(element *Element, level int) {
	p.indent(level)

	p.writeString("<")
	p.writeString(element.Name)
	for _, attr := range element.Attributes {
		p.writeString(" ")
		p.writeString(attr.Name)
		p.writeString(`="`)
		p.writeEscaped(attr.Value)
		p.writeString(`"`)
	}

	if len(element.Children) == 0 && element.Text == "" {
		p.writeString("/>")
		p.newline()
		return
	}

	p.writeString(">")

	if len(element.Children) == 0 {
		p.writeEscaped(element.Text)
	} else {
		p.newline()
		for _, child := range element.Children {
			p.writeElement(child, level+1)
		}
		p.indent(level)
	}

	p.writeString("</")
	p.writeString(element.Name)
	p.writeString(">")
	p.newline()
}
