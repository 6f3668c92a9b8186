// =============================================================================
// INTERLIS Enum Extractor - Output Renderers
// =============================================================================
//
// A renderer serializes an extracted catalog in one output format. Renderers
// share nothing but the catalog they consume.
//
// FORMATS:
//   json  - mapping type key -> [{id, enum, enumtxt}]   (default)
//   gml   - OGR feature collection, one feature per value
//   yaml  - the json mapping as YAML
//   xlsx  - one worksheet per enumeration type
//
// =============================================================================

package render

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ginjaninja78/interlis-enums/internal/types"
)

// =============================================================================
// FORMATS
// =============================================================================

// Format names an output format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatGML  Format = "gml"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// FormatInfo provides metadata about an output format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatJSON: {
		Name:        FormatJSON,
		MIMEType:    "application/json",
		Extension:   ".json",
		Description: "JSON mapping of enumeration type to values",
	},
	FormatGML: {
		Name:        FormatGML,
		MIMEType:    "application/gml+xml",
		Extension:   ".gml",
		Description: "GML feature collection readable by OGR",
	},
	FormatYAML: {
		Name:        FormatYAML,
		MIMEType:    "application/yaml",
		Extension:   ".yaml",
		Description: "YAML mapping of enumeration type to values",
	},
	FormatXLSX: {
		Name:        FormatXLSX,
		MIMEType:    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Extension:   ".xlsx",
		Description: "Workbook with one sheet per enumeration type",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// Formats returns the supported format names, sorted.
func Formats() []string {
	names := make([]string, 0, len(FormatRegistry))
	for f := range FormatRegistry {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(name string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := FormatRegistry[format]; !ok {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnknownFormat, name, strings.Join(Formats(), ", "))
	}
	return format, nil
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnknownFormat is returned for an unsupported format name.
	ErrUnknownFormat = errors.New("unknown output format")

	// ErrUnknownKeyPolicy is returned for an unsupported key policy name.
	ErrUnknownKeyPolicy = errors.New("unknown key policy")

	// ErrDuplicateKey is returned under KeyStrict when two enumeration types
	// map to the same output key.
	ErrDuplicateKey = errors.New("duplicate enumeration type key")
)

// =============================================================================
// RENDERER
// =============================================================================

// Renderer writes a catalog to w.
type Renderer interface {
	Format() Format
	Render(w io.Writer, catalog *types.Catalog) error
}

// Options configures the renderers. Each renderer reads the fields that
// apply to it.
type Options struct {
	// Pretty enables indentation (json, yaml, gml).
	Pretty bool

	// Indent is the indentation unit.
	// Default: "  " (two spaces)
	Indent string

	// XMLDeclaration writes an XML declaration before the GML document.
	XMLDeclaration bool

	// Keys selects how mapping keys are derived (json, yaml).
	Keys KeyPolicy
}

// DefaultOptions returns the default rendering options.
func DefaultOptions() Options {
	return Options{
		Pretty:         true,
		Indent:         "  ",
		XMLDeclaration: true,
		Keys:           KeyStrict,
	}
}

// New creates the renderer for format.
func New(format Format, options Options) (Renderer, error) {
	if options.Indent == "" {
		options.Indent = "  "
	}
	if options.Keys == "" {
		options.Keys = KeyStrict
	}
	if _, err := ParseKeyPolicy(string(options.Keys)); err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		return &jsonRenderer{options: options}, nil
	case FormatGML:
		return &gmlRenderer{options: options}, nil
	case FormatYAML:
		return &yamlRenderer{options: options}, nil
	case FormatXLSX:
		return &xlsxRenderer{options: options}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
