// Package export writes a finished provenance graph to durable formats.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/alvmarrod/source-weaver/internal/graph"
)

// Exporter writes a finished graph somewhere durable
type Exporter interface {
	Export(g *graph.Graph) error
}

// writeFile creates path and streams the output of write into it
func writeFile(path string, g *graph.Graph, write func(io.Writer, *graph.Graph) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := write(file, g); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
