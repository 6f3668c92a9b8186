// =============================================================================
// INTERLIS Enum Extractor - Shared Types
// =============================================================================
//
// This package contains the types shared by the transfer reader, the
// extractor, the validator and the renderers. Keeping them here avoids import
// cycles between those packages.
//
//   transfer  -> Document, ModelSection, EnumNode
//   enums     -> Catalog, EnumType, EnumValue
//   render    -> Catalog (read only)
//
// =============================================================================

package types

import "fmt"

// =============================================================================
// INPUT TYPES
// =============================================================================

// Document is the part of a transfer file the extractor cares about: every
// ModelData section found under DATASECTION, in document order.
type Document struct {
	// SourceFile is the path the document was read from (empty for readers).
	SourceFile string

	// Sections holds one entry per IlisMeta07.ModelData element.
	Sections []ModelSection
}

// NodeCount returns the number of enum nodes across all sections.
func (d *Document) NodeCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Nodes)
	}
	return n
}

// ModelSection is one IlisMeta07.ModelData element.
type ModelSection struct {
	// BID is the basket id of the section, if present.
	BID string

	// Nodes are the enum node records in document order.
	Nodes []EnumNode
}

// EnumNode is one IlisMeta07.ModelData.EnumNode record.
type EnumNode struct {
	// TID is the transfer identifier, unique within the document.
	TID string

	// ParentRef is the REF of the ParentNode child.
	ParentRef string

	// HasParent is true when the ParentNode child element was present.
	HasParent bool

	// EnumTypeRef is the REF of the EnumType child, e.g.
	// "Nutzungsplanung.Grundnutzung_Zonenflaeche.Herkunft.TYPE".
	EnumTypeRef string

	// HasEnumType is true when the EnumType child element was present.
	HasEnumType bool

	// Line is the input line the record started on, for error messages.
	Line int
}

// IsRoot reports whether the node declares an enumeration type.
func (n EnumNode) IsRoot() bool {
	return !n.HasParent
}

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// Catalog is the result of one extraction run.
type Catalog struct {
	// Types are the enumeration types in root-encounter order.
	Types []EnumType

	// Sections is the number of ModelData sections visited.
	Sections int

	// Nodes is the number of enum nodes visited.
	Nodes int
}

// ValueCount returns the number of leaf values across all types.
func (c *Catalog) ValueCount() int {
	n := 0
	for _, t := range c.Types {
		n += len(t.Values)
	}
	return n
}

// IsEmpty reports whether the catalog has no enumeration types.
func (c *Catalog) IsEmpty() bool {
	return c == nil || len(c.Types) == 0
}

// EnumType is one enumeration type derived from a root node.
type EnumType struct {
	// Ordinal is the zero-based position of the root among all roots of the
	// document.
	Ordinal int

	// RootTID is the TID of the root node.
	RootTID string

	// Ref is the raw EnumType REF of the root node.
	Ref string

	// Path is Ref without its trailing ".TYPE".
	Path string

	// Name is the last dot-separated segment of Path.
	Name string

	// Values are the leaf values in encounter order.
	Values []EnumValue
}

// TagName returns the ordinal-prefixed name used as GML element tag.
// Tag names are unique within a catalog even when Names coincide.
func (t EnumType) TagName() string {
	return fmt.Sprintf("enum%d_%s", t.Ordinal, t.Name)
}

// EnumValue is one leaf value of an enumeration type.
type EnumValue struct {
	// ID is the zero-based position of the value within its type.
	ID int

	// Code is the leaf TID relative to the root TID.
	Code string

	// Label is the display text. Transfer files carry none, so it equals Code.
	Label string
}
