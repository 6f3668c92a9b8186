package transfer

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "testdata/nutzungsplanung.xtf"

func transferDoc(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<TRANSFER xmlns="http://www.interlis.ch/INTERLIS2.3">
  <DATASECTION>` + body + `
  </DATASECTION>
</TRANSFER>`
}

func TestReadFile_Fixture(t *testing.T) {
	doc, err := NewReader("").ReadFile(fixture)
	require.NoError(t, err)

	assert.Equal(t, fixture, doc.SourceFile)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "MODEL.Nutzungsplanung", doc.Sections[0].BID)
	assert.Equal(t, "MODEL.Nutzungsplanung_Kanton", doc.Sections[1].BID)
	assert.Len(t, doc.Sections[0].Nodes, 9)
	assert.Len(t, doc.Sections[1].Nodes, 3)
	assert.Equal(t, 12, doc.NodeCount())

	rootNode := doc.Sections[0].Nodes[0]
	assert.Equal(t, "Nutzungsplanung.Herkunft.TYPE.TOP", rootNode.TID)
	assert.True(t, rootNode.IsRoot())
	assert.True(t, rootNode.HasEnumType)
	assert.Equal(t, "Nutzungsplanung.Herkunft.TYPE", rootNode.EnumTypeRef)

	leaf := doc.Sections[0].Nodes[6]
	assert.Equal(t, "Nutzungsplanung.Grundnutzung.TYPE.TOP.Wohnzone.W2", leaf.TID)
	assert.False(t, leaf.IsRoot())
	assert.Equal(t, "Nutzungsplanung.Grundnutzung.TYPE.TOP.Wohnzone", leaf.ParentRef)
	assert.False(t, leaf.HasEnumType)

	for _, section := range doc.Sections {
		for _, node := range section.Nodes {
			assert.Positive(t, node.Line, node.TID)
		}
	}
}

func TestRead_NamespaceIsConfigurable(t *testing.T) {
	const ns = "http://www.interlis.ch/INTERLIS2.4"
	input := strings.ReplaceAll(transferDoc(`
    <IlisMeta07.ModelData BID="B1">
      <IlisMeta07.ModelData.EnumNode TID="A.TOP">
        <EnumType REF="M.A.TYPE"/>
      </IlisMeta07.ModelData.EnumNode>
    </IlisMeta07.ModelData>`), DefaultNamespace, ns)

	doc, err := NewReader("").Read(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, doc.Sections, "default namespace must not match")

	reader := NewReader(ns)
	assert.Equal(t, ns, reader.Namespace())

	doc, err = reader.Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	require.Len(t, doc.Sections[0].Nodes, 1)
	assert.Equal(t, "M.A.TYPE", doc.Sections[0].Nodes[0].EnumTypeRef)
}

func TestRead_OnlyDirectChildrenAreConsidered(t *testing.T) {
	input := `<?xml version="1.0"?>
<TRANSFER xmlns="http://www.interlis.ch/INTERLIS2.3">
  <IlisMeta07.ModelData BID="not-in-datasection">
    <IlisMeta07.ModelData.EnumNode TID="X.TOP"><EnumType REF="M.X.TYPE"/></IlisMeta07.ModelData.EnumNode>
  </IlisMeta07.ModelData>
  <DATASECTION>
    <IlisMeta07.ModelData BID="B1">
      <Wrapper>
        <IlisMeta07.ModelData.EnumNode TID="Nested.TOP"><EnumType REF="M.N.TYPE"/></IlisMeta07.ModelData.EnumNode>
      </Wrapper>
      <IlisMeta07.ModelData.EnumNode TID="A.TOP"><EnumType REF="M.A.TYPE"/></IlisMeta07.ModelData.EnumNode>
    </IlisMeta07.ModelData>
    <Other>
      <IlisMeta07.ModelData BID="nested-model-data"/>
    </Other>
  </DATASECTION>
</TRANSFER>`

	doc, err := NewReader("").Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "B1", doc.Sections[0].BID)
	require.Len(t, doc.Sections[0].Nodes, 1)
	assert.Equal(t, "A.TOP", doc.Sections[0].Nodes[0].TID)
}

func TestRead_ForeignNamespaceChildrenAreIgnored(t *testing.T) {
	input := transferDoc(`
    <IlisMeta07.ModelData BID="B1">
      <IlisMeta07.ModelData.EnumNode TID="A.TOP" xmlns:x="urn:other">
        <x:ParentNode REF="Somewhere"/>
        <EnumType REF="M.A.TYPE"/>
        <EnumType REF="M.Second.TYPE"/>
      </IlisMeta07.ModelData.EnumNode>
    </IlisMeta07.ModelData>`)

	doc, err := NewReader("").Read(strings.NewReader(input))
	require.NoError(t, err)

	node := doc.Sections[0].Nodes[0]
	assert.True(t, node.IsRoot())
	assert.Equal(t, "M.A.TYPE", node.EnumTypeRef, "first EnumType wins")
}

func TestRead_ParentNodeWithoutRef(t *testing.T) {
	input := transferDoc(`
    <IlisMeta07.ModelData BID="B1">
      <IlisMeta07.ModelData.EnumNode TID="A.TOP.x"><ParentNode/></IlisMeta07.ModelData.EnumNode>
    </IlisMeta07.ModelData>`)

	doc, err := NewReader("").Read(strings.NewReader(input))
	require.NoError(t, err)

	node := doc.Sections[0].Nodes[0]
	assert.True(t, node.HasParent)
	assert.False(t, node.IsRoot())
	assert.Empty(t, node.ParentRef)
}

func TestRead_NoEnumNodes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sections int
	}{
		{name: "no DATASECTION", input: `<TRANSFER xmlns="http://www.interlis.ch/INTERLIS2.3"/>`, sections: 0},
		{name: "empty DATASECTION", input: transferDoc(""), sections: 0},
		{name: "empty ModelData", input: transferDoc(`<IlisMeta07.ModelData BID="B1"/>`), sections: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewReader("").Read(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Len(t, doc.Sections, tt.sections)
			assert.Equal(t, 0, doc.NodeCount())
		})
	}
}

func TestRead_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty input", input: ""},
		{name: "whitespace only", input: "  \n"},
		{name: "truncated", input: `<TRANSFER xmlns="http://www.interlis.ch/INTERLIS2.3"><DATASECTION>`},
		{name: "mismatched tags", input: `<TRANSFER><DATASECTION></TRANSFER>`},
		{name: "broken enum node", input: transferDoc(`
    <IlisMeta07.ModelData BID="B1">
      <IlisMeta07.ModelData.EnumNode TID="A.TOP"><EnumType REF="M.A.TYPE"></IlisMeta07.ModelData.EnumNode>
    </IlisMeta07.ModelData>`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader("").Read(strings.NewReader(tt.input))
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestRead_LegacyEncoding(t *testing.T) {
	input := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<TRANSFER xmlns=\"http://www.interlis.ch/INTERLIS2.3\"><DATASECTION>" +
		"<IlisMeta07.ModelData BID=\"B1\">" +
		"<IlisMeta07.ModelData.EnumNode TID=\"M.Gew\xe4sser.TYPE.TOP\"><EnumType REF=\"M.Gew\xe4sser.TYPE\"/></IlisMeta07.ModelData.EnumNode>" +
		"</IlisMeta07.ModelData></DATASECTION></TRANSFER>"

	doc, err := NewReader("").Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, doc.Sections[0].Nodes, 1)
	assert.Equal(t, "M.Gewässer.TYPE", doc.Sections[0].Nodes[0].EnumTypeRef)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := NewReader("").ReadFile(filepath.Join(t.TempDir(), "missing.xtf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
