package export

import (
	"encoding/json"
	"io"

	"github.com/alvmarrod/source-weaver/internal/graph"
)

// nodeLinkDocument is the node-link layout of a directed graph
type nodeLinkDocument struct {
	Directed bool         `json:"directed"`
	Nodes    []graph.Node `json:"nodes"`
	Edges    []graph.Edge `json:"edges"`
}

// JSONExporter writes the graph as a node-link JSON document
type JSONExporter struct {
	Path string
}

// Export writes g to e.Path
func (e *JSONExporter) Export(g *graph.Graph) error {
	return writeFile(e.Path, g, WriteJSON)
}

// WriteJSON encodes g as indented node-link JSON
func WriteJSON(w io.Writer, g *graph.Graph) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(nodeLinkDocument{
		Directed: true,
		Nodes:    g.Nodes(),
		Edges:    g.Edges(),
	})
}

// ReadJSON decodes a node-link JSON document back into a graph
func ReadJSON(r io.Reader) (*graph.Graph, error) {
	var doc nodeLinkDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	g := graph.New()
	for _, node := range doc.Nodes {
		g.InsertNode(node)
	}
	for _, edge := range doc.Edges {
		if _, err := g.AddEdge(edge.Source, edge.Target); err != nil {
			return nil, err
		}
	}
	return g, nil
}
