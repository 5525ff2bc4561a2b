package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/alvmarrod/source-weaver/internal/graph"
)

// DOTExporter renders the graph as a Graphviz document with one tier per scan depth
type DOTExporter struct {
	Path string
}

// Export writes g to e.Path
func (e *DOTExporter) Export(g *graph.Graph) error {
	return writeFile(e.Path, g, WriteDOT)
}

// WriteDOT renders g in DOT. Nodes are pinned at their layout position,
// labelled with their domain, and grouped into same-rank tiers by depth.
func WriteDOT(w io.Writer, g *graph.Graph) error {
	bw := bufio.NewWriter(w)

	nodes := g.Nodes()
	tiers := make(map[int][]string)

	fmt.Fprintln(bw, "digraph provenance {")
	fmt.Fprintln(bw, "  rankdir=LR;")
	fmt.Fprintln(bw, "  node [shape=box, style=rounded];")

	for _, node := range nodes {
		style := ""
		if !node.Parsed {
			style = ", style=\"rounded,dashed\""
		}
		fmt.Fprintf(bw, "  %s [label=%s, tooltip=%s, pos=\"%d,%d!\"%s];\n",
			quote(node.URL), quote(node.Domain), quote(node.URL),
			node.Position.Depth, -node.Position.Ordinal, style)
		tiers[node.ScanDepth] = append(tiers[node.ScanDepth], node.URL)
	}

	for depth := 0; depth <= g.MaxDepth(); depth++ {
		members := tiers[depth]
		if len(members) == 0 {
			continue
		}
		quoted := make([]string, len(members))
		for i, url := range members {
			quoted[i] = quote(url)
		}
		fmt.Fprintf(bw, "  { rank=same; %s; }\n", strings.Join(quoted, "; "))
	}

	for _, edge := range g.Edges() {
		fmt.Fprintf(bw, "  %s -> %s;\n", quote(edge.Source), quote(edge.Target))
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

// quote produces a DOT double-quoted string
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return `"` + s + `"`
}
