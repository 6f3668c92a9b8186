package converter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/interlis-enums/internal/config"
	"github.com/ginjaninja78/interlis-enums/internal/enums"
	"github.com/ginjaninja78/interlis-enums/internal/render"
	"github.com/ginjaninja78/interlis-enums/internal/transfer"
)

func transferFile(sections ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<TRANSFER xmlns="http://www.interlis.ch/INTERLIS2.3">
  <HEADERSECTION SENDER="test" VERSION="2.3"/>
  <DATASECTION>` + strings.Join(sections, "") + `
  </DATASECTION>
</TRANSFER>
`
}

func modelData(bid string, nodes ...string) string {
	return `
    <IlisMeta07.ModelData BID="` + bid + `">` + strings.Join(nodes, "") + `
    </IlisMeta07.ModelData>`
}

func rootNode(tid, ref string) string {
	return `
      <IlisMeta07.ModelData.EnumNode TID="` + tid + `"><EnumType REF="` + ref + `"/></IlisMeta07.ModelData.EnumNode>`
}

func childNode(tid, parent string) string {
	return `
      <IlisMeta07.ModelData.EnumNode TID="` + tid + `"><ParentNode REF="` + parent + `"/></IlisMeta07.ModelData.EnumNode>`
}

var fooBarTransfer = transferFile(modelData("B1",
	rootNode("A.TYPE", "Foo.Bar.TYPE"),
	childNode("A.TYPE.X", "A.TYPE"),
	childNode("A.TYPE.Y", "A.TYPE"),
))

var nutzungsplanungTransfer = transferFile(
	modelData("MODEL.Nutzungsplanung",
		rootNode("N.Herkunft.TOP", "Nutzungsplanung.Herkunft.TYPE"),
		childNode("N.Herkunft.TOP.Gemeinde", "N.Herkunft.TOP"),
		childNode("N.Herkunft.TOP.Kanton", "N.Herkunft.TOP"),
		childNode("N.Herkunft.TOP.Bund", "N.Herkunft.TOP"),
		rootNode("N.Grundnutzung.TOP", "Nutzungsplanung.Grundnutzung.TYPE"),
		childNode("N.Grundnutzung.TOP.Wohnzone", "N.Grundnutzung.TOP"),
		childNode("N.Grundnutzung.TOP.Wohnzone.W2", "N.Grundnutzung.TOP.Wohnzone"),
		childNode("N.Grundnutzung.TOP.Wohnzone.W3", "N.Grundnutzung.TOP.Wohnzone"),
		childNode("N.Grundnutzung.TOP.Gewerbezone", "N.Grundnutzung.TOP"),
	),
	modelData("MODEL.Nutzungsplanung_Kanton",
		rootNode("K.Herkunft.TOP", "Nutzungsplanung_Kanton.Herkunft.TYPE"),
		childNode("K.Herkunft.TOP.Kanton", "K.Herkunft.TOP"),
		childNode("K.Herkunft.TOP.Bund", "K.Herkunft.TOP"),
	),
)

// sharedPathTransfer declares the same type path twice.
var sharedPathTransfer = transferFile(
	modelData("B1", rootNode("R1", "M.T.TYPE"), childNode("R1.a", "R1")),
	modelData("B2", rootNode("R2", "M.T.TYPE"), childNode("R2.b", "R2")),
)

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newConverter(t *testing.T, mutate func(cfg *config.Config)) *Converter {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	conv, err := New(cfg, nil)
	require.NoError(t, err)
	return conv
}

func TestConvert_JSON(t *testing.T) {
	input := writeInput(t, t.TempDir(), "foo.xtf", fooBarTransfer)
	conv := newConverter(t, func(cfg *config.Config) { cfg.Output.Pretty = false })

	var out bytes.Buffer
	result := conv.Convert(input, &out)
	require.True(t, result.Success, "%v", result.Error)

	assert.Equal(t, `{"Foo.Bar":[{"id":0,"enum":"X","enumtxt":"X"},{"id":1,"enum":"Y","enumtxt":"Y"}]}`+"\n", out.String())
	assert.Equal(t, 1, result.Stats.Sections)
	assert.Equal(t, 3, result.Stats.Nodes)
	assert.Equal(t, 1, result.Stats.Types)
	assert.Equal(t, 2, result.Stats.Values)
	assert.Equal(t, out.Len(), result.Stats.Bytes)
	assert.Empty(t, result.OutputFile)
}

func TestConvert_GMLTagsAcrossSections(t *testing.T) {
	input := writeInput(t, t.TempDir(), "np.xtf", nutzungsplanungTransfer)
	conv := newConverter(t, func(cfg *config.Config) { cfg.Output.Format = "gml" })

	var out bytes.Buffer
	result := conv.Convert(input, &out)
	require.True(t, result.Success, "%v", result.Error)

	gml := out.String()
	assert.Equal(t, 3, strings.Count(gml, "<enum0_Herkunft>"))
	assert.Equal(t, 3, strings.Count(gml, "<enum1_Grundnutzung>"))
	assert.Equal(t, 2, strings.Count(gml, "<enum2_Herkunft>"))
	assert.Contains(t, gml, "<enum>Wohnzone.W2</enum>")
	assert.NotContains(t, gml, "<enum>Wohnzone</enum>")
	assert.Equal(t, 8, result.Stats.Values)
}

func TestConvert_NoEnumNodes(t *testing.T) {
	input := writeInput(t, t.TempDir(), "empty.xtf", transferFile())

	want := map[string]string{
		"json": "{}\n",
		"gml": `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
			`<FeatureCollection xmlns="http://ogr.maptools.org/" xmlns:gml="http://www.opengis.net/gml"/>` + "\n",
	}
	for format, expected := range want {
		conv := newConverter(t, func(cfg *config.Config) { cfg.Output.Format = format })

		var out bytes.Buffer
		result := conv.Convert(input, &out)
		require.True(t, result.Success, "%s: %v", format, result.Error)
		assert.Equal(t, expected, out.String(), format)
	}
}

func TestConvert_Failures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		mutate  func(cfg *config.Config)
		wantErr error
	}{
		{
			name:    "malformed",
			content: "<TRANSFER><DATASECTION>",
			wantErr: transfer.ErrMalformed,
		},
		{
			name:    "empty file",
			content: "",
			wantErr: transfer.ErrMalformed,
		},
		{
			name:    "orphan node",
			content: transferFile(modelData("B1", childNode("A.x", "A"), rootNode("A", "M.A.TYPE"))),
			wantErr: enums.ErrOrphanNode,
		},
		{
			name:    "root without EnumType",
			content: transferFile(modelData("B1", `<IlisMeta07.ModelData.EnumNode TID="A"/>`)),
			wantErr: enums.ErrMissingEnumType,
		},
		{
			name:    "duplicate path under strict keys",
			content: sharedPathTransfer,
			wantErr: render.ErrDuplicateKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := writeInput(t, t.TempDir(), "in.xtf", tt.content)
			conv := newConverter(t, tt.mutate)

			var out bytes.Buffer
			result := conv.Convert(input, &out)
			assert.False(t, result.Success)
			require.ErrorIs(t, result.Error, tt.wantErr)
			assert.Zero(t, out.Len(), "nothing is written on failure")
		})
	}
}

func TestConvert_MissingFile(t *testing.T) {
	conv := newConverter(t, nil)

	result := conv.Convert(filepath.Join(t.TempDir(), "missing.xtf"), &bytes.Buffer{})
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Error, os.ErrNotExist)
}

func TestConvert_SharedPathPolicies(t *testing.T) {
	input := writeInput(t, t.TempDir(), "shared.xtf", sharedPathTransfer)

	t.Run("overwrite collapses to the later type", func(t *testing.T) {
		conv := newConverter(t, func(cfg *config.Config) {
			cfg.Output.Pretty = false
			cfg.Output.JSONKeys = "overwrite"
		})
		var out bytes.Buffer
		result := conv.Convert(input, &out)
		require.True(t, result.Success, "%v", result.Error)
		assert.Equal(t, `{"M.T":[{"id":0,"enum":"b","enumtxt":"b"}]}`+"\n", out.String())
		assert.Equal(t, 1, result.Stats.Warnings)
	})

	t.Run("gml keeps both types", func(t *testing.T) {
		conv := newConverter(t, func(cfg *config.Config) { cfg.Output.Format = "gml" })
		var out bytes.Buffer
		result := conv.Convert(input, &out)
		require.True(t, result.Success, "%v", result.Error)
		assert.Contains(t, out.String(), "<enum0_T>")
		assert.Contains(t, out.String(), "<enum1_T>")
	})

	t.Run("warnings as errors", func(t *testing.T) {
		conv := newConverter(t, func(cfg *config.Config) {
			cfg.Output.Format = "gml"
			cfg.Validation.TreatWarningsAsErrors = true
		})
		var out bytes.Buffer
		result := conv.Convert(input, &out)
		assert.False(t, result.Success)
		assert.Contains(t, result.Error.Error(), "validation failed")
		require.Len(t, result.Findings, 1)
		assert.Zero(t, out.Len())
	})
}

func TestConvert_Deterministic(t *testing.T) {
	input := writeInput(t, t.TempDir(), "np.xtf", nutzungsplanungTransfer)

	for _, format := range []string{"json", "gml", "yaml"} {
		t.Run(format, func(t *testing.T) {
			conv := newConverter(t, func(cfg *config.Config) {
				cfg.Output.Format = format
				cfg.Output.JSONKeys = "ordinal"
			})

			var first, second bytes.Buffer
			require.True(t, conv.Convert(input, &first).Success)
			require.True(t, conv.Convert(input, &second).Success)
			assert.Equal(t, first.Bytes(), second.Bytes())
		})
	}
}

func TestConvert_CustomNamespace(t *testing.T) {
	const ns = "http://www.interlis.ch/INTERLIS2.4"
	content := strings.ReplaceAll(fooBarTransfer, transfer.DefaultNamespace, ns)
	input := writeInput(t, t.TempDir(), "foo24.xtf", content)

	var out bytes.Buffer
	result := newConverter(t, nil).Convert(input, &out)
	require.True(t, result.Success)
	assert.Equal(t, "{}\n", out.String())

	out.Reset()
	result = newConverter(t, func(cfg *config.Config) { cfg.NamespaceURI = ns }).Convert(input, &out)
	require.True(t, result.Success)
	assert.Contains(t, out.String(), `"Foo.Bar"`)
}

func TestConvertToDir(t *testing.T) {
	dir := t.TempDir()
	inputDir := filepath.Join(dir, "input")
	require.NoError(t, os.MkdirAll(inputDir, 0755))
	input := writeInput(t, inputDir, "Nutzungsplanung.xtf", nutzungsplanungTransfer)

	conv := newConverter(t, func(cfg *config.Config) {
		cfg.Output.Format = "yaml"
		cfg.Output.JSONKeys = "ordinal"
		cfg.Batch.InputDir = inputDir
		cfg.Batch.OutputDir = filepath.Join(dir, "output")
		cfg.Batch.InputArchiveDir = filepath.Join(dir, "input_archive")
		cfg.Batch.OutputArchiveDir = filepath.Join(dir, "output_archive")
		cfg.Batch.ArchiveOnSuccess = true
	})

	result := conv.ConvertToDir(input)
	require.True(t, result.Success, "%v", result.Error)

	assert.Equal(t, filepath.Join(dir, "output", "Nutzungsplanung.yaml"), result.OutputFile)
	data, err := os.ReadFile(result.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "enum1_Grundnutzung")

	assert.Equal(t, filepath.Join(dir, "input_archive", "Nutzungsplanung.xtf"), result.ArchivePath)
	assert.NoFileExists(t, input)
	assert.FileExists(t, result.ArchivePath)
	assert.FileExists(t, filepath.Join(dir, "output_archive", "Nutzungsplanung.yaml"))
}

func TestConvertToDir_FailureLeavesInput(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "broken.xtf", "<TRANSFER>")

	conv := newConverter(t, func(cfg *config.Config) {
		cfg.Batch.OutputDir = filepath.Join(dir, "output")
		cfg.Batch.InputArchiveDir = filepath.Join(dir, "archive")
		cfg.Batch.ArchiveOnSuccess = true
	})

	result := conv.ConvertToDir(input)
	assert.False(t, result.Success)
	assert.Empty(t, result.OutputFile)
	assert.FileExists(t, input)
	assert.NoDirExists(t, filepath.Join(dir, "output"))
}

func TestOutputFileName(t *testing.T) {
	conv := newConverter(t, func(cfg *config.Config) {
		cfg.Output.Format = "gml"
		cfg.Batch.OutputNameFormat = "{original}_{format}_{uuid}"
	})

	name := conv.OutputFileName("/data/in/Nutzungsplanung.xtf")
	assert.True(t, strings.HasPrefix(name, "Nutzungsplanung_gml_"), name)
	assert.True(t, strings.HasSuffix(name, ".gml"), name)
	assert.Len(t, name, len("Nutzungsplanung_gml_")+36+len(".gml"))
}

func TestReserveOutputName(t *testing.T) {
	inputDir := filepath.Join(t.TempDir(), "input")
	conv := newConverter(t, func(cfg *config.Config) {
		cfg.Batch.InputDir = inputDir
	})

	nested := filepath.Join(inputDir, "kanton", "model.xtf")
	xtf := filepath.Join(inputDir, "model.xtf")
	xml := filepath.Join(inputDir, "model.xml")
	upper := filepath.Join(inputDir, "MODEL.xtf")

	assert.Equal(t, "kanton_model.json", conv.ReserveOutputName(nested))
	assert.Equal(t, "model.json", conv.ReserveOutputName(xtf))
	assert.Equal(t, "model_2.json", conv.ReserveOutputName(xml))
	assert.Equal(t, "MODEL_3.json", conv.ReserveOutputName(upper), "names clash regardless of case")

	assert.Equal(t, "model.json", conv.ReserveOutputName(xtf), "an input keeps its name")
	assert.Equal(t, "model_2.json", conv.ReserveOutputName(xml))
}

func TestConvertToDir_SameFileNames(t *testing.T) {
	dir := t.TempDir()
	inputDir := filepath.Join(dir, "input")
	require.NoError(t, os.MkdirAll(filepath.Join(inputDir, "a"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(inputDir, "b"), 0755))
	first := writeInput(t, filepath.Join(inputDir, "a"), "model.xtf", fooBarTransfer)
	second := writeInput(t, filepath.Join(inputDir, "b"), "model.xtf", sharedPathTransfer)

	conv := newConverter(t, func(cfg *config.Config) {
		cfg.Output.JSONKeys = "ordinal"
		cfg.Batch.InputDir = inputDir
		cfg.Batch.OutputDir = filepath.Join(dir, "output")
	})

	a := conv.ConvertToDir(first)
	b := conv.ConvertToDir(second)
	require.True(t, a.Success, "%v", a.Error)
	require.True(t, b.Success, "%v", b.Error)
	assert.NotEqual(t, a.OutputFile, b.OutputFile)

	data, err := os.ReadFile(a.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"enum0_Bar"`)

	data, err = os.ReadFile(b.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"enum1_T"`)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Format = "csv"

	_, err := New(cfg, nil)
	require.ErrorIs(t, err, render.ErrUnknownFormat)

	cfg = config.Default()
	cfg.Output.JSONKeys = "first"
	_, err = New(cfg, nil)
	require.ErrorIs(t, err, render.ErrUnknownKeyPolicy)
}

func TestCatalog(t *testing.T) {
	input := writeInput(t, t.TempDir(), "np.xtf", nutzungsplanungTransfer)

	catalog, err := newConverter(t, nil).Catalog(input)
	require.NoError(t, err)
	require.Len(t, catalog.Types, 3)
	assert.Equal(t, "Nutzungsplanung_Kanton.Herkunft", catalog.Types[2].Path)
	assert.Equal(t, 2, catalog.Sections)
}
