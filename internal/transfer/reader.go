// =============================================================================
// INTERLIS Enum Extractor - Transfer File Reader
// =============================================================================
//
// This module reads INTERLIS 2.3 transfer files (XTF) carrying IlisMeta07
// model data and returns the enumeration node records they contain.
//
// EXPECTED STRUCTURE (all elements in the configured namespace):
//
//   <TRANSFER xmlns="http://www.interlis.ch/INTERLIS2.3">
//     <DATASECTION>
//       <IlisMeta07.ModelData BID="...">
//         <IlisMeta07.ModelData.EnumNode TID="M.T.TYPE.TOP">
//           <EnumType REF="M.T.TYPE"/>
//         </IlisMeta07.ModelData.EnumNode>
//         <IlisMeta07.ModelData.EnumNode TID="M.T.TYPE.TOP.a">
//           <ParentNode REF="M.T.TYPE.TOP"/>
//         </IlisMeta07.ModelData.EnumNode>
//       </IlisMeta07.ModelData>
//     </DATASECTION>
//   </TRANSFER>
//
// Only direct children are considered at each level: DATASECTION under the
// document root, ModelData under DATASECTION, EnumNode under ModelData.
// Anything else, including elements from other namespaces, is skipped. The
// whole input is still tokenized, so malformed XML anywhere is reported.
// Transfer files declaring a legacy encoding (ISO-8859-1, windows-1252) are
// decoded through the charset reader.
//
// =============================================================================

package transfer

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ginjaninja78/interlis-enums/internal/types"
	"golang.org/x/net/html/charset"
)

// DefaultNamespace is the INTERLIS 2.3 transfer namespace.
const DefaultNamespace = "http://www.interlis.ch/INTERLIS2.3"

const (
	elemDataSection = "DATASECTION"
	elemModelData   = "IlisMeta07.ModelData"
	elemEnumNode    = "IlisMeta07.ModelData.EnumNode"
	elemParentNode  = "ParentNode"
	elemEnumType    = "EnumType"
)

// ErrMalformed is returned when the input is not well-formed XML.
var ErrMalformed = errors.New("malformed transfer file")

// =============================================================================
// READER
// =============================================================================

// Reader extracts enum node records from transfer files.
type Reader struct {
	namespace string
}

// NewReader creates a Reader matching elements in the given namespace.
// An empty namespace selects DefaultNamespace.
func NewReader(namespace string) *Reader {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Reader{namespace: namespace}
}

// Namespace returns the namespace URI the reader matches.
func (r *Reader) Namespace() string {
	return r.namespace
}

// ReadFile opens and reads the transfer file at path.
func (r *Reader) ReadFile(path string) (*types.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transfer file: %w", err)
	}
	defer file.Close()

	doc, err := r.Read(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.SourceFile = path
	return doc, nil
}

// Read parses a transfer document from in.
func (r *Reader) Read(in io.Reader) (*types.Document, error) {
	decoder := xml.NewDecoder(in)
	decoder.CharsetReader = charset.NewReaderLabel
	doc := &types.Document{}

	depth := 0
	sawRoot := false
	inDataSection := false
	inModelData := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			sawRoot = true

			switch {
			case depth == 2 && r.is(t.Name, elemDataSection):
				inDataSection = true

			case depth == 3 && inDataSection && r.is(t.Name, elemModelData):
				doc.Sections = append(doc.Sections, types.ModelSection{
					BID: attrValue(t, "BID"),
				})
				inModelData = true

			case depth == 4 && inModelData && r.is(t.Name, elemEnumNode):
				line, _ := decoder.InputPos()
				node, err := r.decodeNode(decoder, t)
				if err != nil {
					return nil, err
				}
				node.Line = line

				section := &doc.Sections[len(doc.Sections)-1]
				section.Nodes = append(section.Nodes, node)

				// DecodeElement consumed the matching end element.
				depth--
			}

		case xml.EndElement:
			switch {
			case depth == 3 && inModelData:
				inModelData = false
			case depth == 2 && inDataSection:
				inDataSection = false
			}
			depth--
		}
	}

	if !sawRoot {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}

	return doc, nil
}

// =============================================================================
// ENUM NODE DECODING
// =============================================================================

// rawRef captures any child element together with its REF attribute.
type rawRef struct {
	XMLName xml.Name
	Ref     *string `xml:"REF,attr"`
}

type rawEnumNode struct {
	TID      string   `xml:"TID,attr"`
	Children []rawRef `xml:",any"`
}

// decodeNode decodes one EnumNode element. Only the first ParentNode and the
// first EnumType child in the reader's namespace are taken into account.
func (r *Reader) decodeNode(decoder *xml.Decoder, start xml.StartElement) (types.EnumNode, error) {
	var raw rawEnumNode
	if err := decoder.DecodeElement(&raw, &start); err != nil {
		return types.EnumNode{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	node := types.EnumNode{TID: raw.TID}

	for _, child := range raw.Children {
		switch {
		case !node.HasParent && r.is(child.XMLName, elemParentNode):
			node.HasParent = true
			if child.Ref != nil {
				node.ParentRef = *child.Ref
			}

		case !node.HasEnumType && r.is(child.XMLName, elemEnumType):
			node.HasEnumType = true
			if child.Ref != nil {
				node.EnumTypeRef = *child.Ref
			}
		}
	}

	return node, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (r *Reader) is(name xml.Name, local string) bool {
	return name.Space == r.namespace && name.Local == local
}

func attrValue(start xml.StartElement, local string) string {
	for _, attr := range start.Attr {
		if attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}
