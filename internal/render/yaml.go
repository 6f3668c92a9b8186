package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ginjaninja78/interlis-enums/internal/types"
	"gopkg.in/yaml.v3"
)

// yamlRenderer writes the same mapping as the JSON renderer. The document is
// built from yaml.Node values so key order follows the catalog.
type yamlRenderer struct {
	options Options
}

func (r *yamlRenderer) Format() Format { return FormatYAML }

func (r *yamlRenderer) Render(w io.Writer, catalog *types.Catalog) error {
	tables, err := keyedTables(catalog, r.options.Keys)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(len(r.options.Indent))
	if err := enc.Encode(tablesNode(tables, r.options.Pretty)); err != nil {
		return fmt.Errorf("failed to write YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush YAML: %w", err)
	}
	return nil
}

func tablesNode(tables []table, pretty bool) *yaml.Node {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if !pretty {
		root.Style = yaml.FlowStyle
	}

	for _, t := range tables {
		values := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, rec := range records(t.Values) {
			values.Content = append(values.Content, &yaml.Node{
				Kind: yaml.MappingNode,
				Tag:  "!!map",
				Content: []*yaml.Node{
					scalar("!!str", "id"), scalar("!!int", strconv.Itoa(rec.ID)),
					scalar("!!str", "enum"), scalar("!!str", rec.Enum),
					scalar("!!str", "enumtxt"), scalar("!!str", rec.EnumTxt),
				},
			})
		}
		root.Content = append(root.Content, scalar("!!str", t.Key), values)
	}

	return root
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}
