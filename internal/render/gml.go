package render

import (
	"io"
	"strconv"

	"github.com/ginjaninja78/interlis-enums/internal/types"
	"github.com/ginjaninja78/interlis-enums/internal/xmlwriter"
)

const (
	ogrNamespace = "http://ogr.maptools.org/"
	gmlNamespace = "http://www.opengis.net/gml"
)

// gmlRenderer writes an OGR-style feature collection:
//
//	<FeatureCollection xmlns="http://ogr.maptools.org/" xmlns:gml="http://www.opengis.net/gml">
//	  <gml:featureMember>
//	    <enum0_Herkunft>
//	      <id>0</id>
//	      <enum>Gemeinde</enum>
//	      <enumtxt>Gemeinde</enumtxt>
//	    </enum0_Herkunft>
//	  </gml:featureMember>
//	</FeatureCollection>
//
// Every enumeration type becomes its own feature type named by TagName, so
// OGR reads one layer per type.
type gmlRenderer struct {
	options Options
}

func (r *gmlRenderer) Format() Format { return FormatGML }

func (r *gmlRenderer) Render(w io.Writer, catalog *types.Catalog) error {
	return xmlwriter.Write(w, featureCollection(catalog), xmlwriter.Options{
		Pretty:         r.options.Pretty,
		Indent:         r.options.Indent,
		XMLDeclaration: r.options.XMLDeclaration,
	})
}

func featureCollection(catalog *types.Catalog) *xmlwriter.Element {
	root := xmlwriter.NewElement("FeatureCollection").
		SetAttr("xmlns", ogrNamespace).
		SetAttr("xmlns:gml", gmlNamespace)

	if catalog == nil {
		return root
	}

	for _, t := range catalog.Types {
		tag := t.TagName()
		for _, v := range t.Values {
			feature := root.AddChild("gml:featureMember").AddChild(tag)
			feature.AddText("id", strconv.Itoa(v.ID))
			feature.AddText("enum", v.Code)
			feature.AddText("enumtxt", v.Label)
		}
	}

	return root
}
