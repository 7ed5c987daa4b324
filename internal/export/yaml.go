package export

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLExporter writes one mapping per row, keyed by column name in column
// order.
type YAMLExporter struct{}

func (e *YAMLExporter) Export(table *Table, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(rowsNode(table)); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}

func (e *YAMLExporter) ContentType() string {
	return "application/yaml"
}

// rowsNode builds the document by hand so keys keep column order instead of
// the sorted order a map would get.
func rowsNode(table *Table) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range table.Rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for i, col := range table.Columns {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
			)
		}
		seq.Content = append(seq.Content, m)
	}
	return &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: "name"},
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: table.Name},
			{Kind: yaml.ScalarNode, Value: "rows"},
			seq,
		},
	}
}
