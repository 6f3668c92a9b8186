// =============================================================================
// INTERLIS Enum Extractor - Enumeration Hierarchy Extraction
// =============================================================================
//
// IlisMeta07 stores an enumeration as a flat list of EnumNode records. The
// hierarchy is only encoded by back references: every node except the root
// points at its parent through ParentNode/@REF.
//
//   M.T.TYPE.TOP                 root      EnumType REF="M.T.TYPE"
//   M.T.TYPE.TOP.Wohnzone        internal  (referenced as a parent below)
//   M.T.TYPE.TOP.Wohnzone.W2     leaf      -> {id: 0, enum: "Wohnzone.W2"}
//   M.T.TYPE.TOP.Gewerbezone     leaf      -> {id: 1, enum: "Gewerbezone"}
//
// EXTRACTION (per ModelData section):
//   1. Collect every ParentRef of the section. A node whose TID is in that
//      set has children and is never emitted.
//   2. Fold over the nodes in document order. A root opens a new EnumType and
//      resets the value counter; a leaf is appended to the open type.
//
// A section must declare a root before any of its other nodes. Nodes are not
// reordered: a non-root node seen before the first root fails the run.
//
// =============================================================================

package enums

import (
	"errors"
	"fmt"

	"github.com/ginjaninja78/interlis-enums/internal/types"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrMissingTID is returned for an enum node without a TID attribute.
	ErrMissingTID = errors.New("enum node has no TID")

	// ErrMissingEnumType is returned for a root node without EnumType/@REF.
	ErrMissingEnumType = errors.New("root enum node has no EnumType reference")

	// ErrOrphanNode is returned for a non-root node that appears before any
	// root node of its section.
	ErrOrphanNode = errors.New("enum node appears before any root node of its section")
)

// =============================================================================
// EXTRACTION
// =============================================================================

// foldState is the accumulator threaded through the node fold.
type foldState struct {
	// current is the index of the open EnumType in the catalog, or -1.
	current int

	// nextID is the id of the next leaf of the open type.
	nextID int

	// nextOrdinal numbers roots across the whole document.
	nextOrdinal int
}

// Extract builds the enumeration catalog of doc. A nil document or a document
// without sections yields an empty catalog.
func Extract(doc *types.Document) (*types.Catalog, error) {
	catalog := &types.Catalog{Types: []types.EnumType{}}
	if doc == nil {
		return catalog, nil
	}

	state := foldState{current: -1}

	for i, section := range doc.Sections {
		parents := collectParents(section.Nodes)

		// The open type never carries over into the next section.
		state.current = -1

		for _, node := range section.Nodes {
			if err := state.step(catalog, node, parents); err != nil {
				return nil, fmt.Errorf("section %d (%s): %w", i, sectionLabel(section), err)
			}
		}
	}

	catalog.Sections = len(doc.Sections)
	catalog.Nodes = doc.NodeCount()

	return catalog, nil
}

// collectParents returns the set of TIDs referenced as a parent.
func collectParents(nodes []types.EnumNode) map[string]struct{} {
	parents := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		if node.HasParent {
			parents[node.ParentRef] = struct{}{}
		}
	}
	return parents
}

// step applies one node to the fold state.
func (s *foldState) step(catalog *types.Catalog, node types.EnumNode, parents map[string]struct{}) error {
	if node.TID == "" {
		return fmt.Errorf("line %d: %w", node.Line, ErrMissingTID)
	}

	if node.IsRoot() {
		if !node.HasEnumType || node.EnumTypeRef == "" {
			return fmt.Errorf("node %q: %w", node.TID, ErrMissingEnumType)
		}

		path := TypePath(node.EnumTypeRef)
		catalog.Types = append(catalog.Types, types.EnumType{
			Ordinal: s.nextOrdinal,
			RootTID: node.TID,
			Ref:     node.EnumTypeRef,
			Path:    path,
			Name:    TypeName(path),
			Values:  []types.EnumValue{},
		})

		s.nextOrdinal++
		s.current = len(catalog.Types) - 1
		s.nextID = 0
		return nil
	}

	if s.current < 0 {
		return fmt.Errorf("node %q: %w", node.TID, ErrOrphanNode)
	}

	if _, internal := parents[node.TID]; internal {
		return nil
	}

	open := &catalog.Types[s.current]
	code := LocalCode(open.RootTID, node.TID)
	open.Values = append(open.Values, types.EnumValue{
		ID:    s.nextID,
		Code:  code,
		Label: code,
	})
	s.nextID++

	return nil
}

func sectionLabel(section types.ModelSection) string {
	if section.BID == "" {
		return "no BID"
	}
	return section.BID
}
