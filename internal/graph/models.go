package graph

// Position is the presentation-only layout slot of a node: its depth tier
// and the number of nodes already at that depth when it was created.
type Position struct {
	Depth   int `json:"depth"`
	Ordinal int `json:"ordinal"`
}

// Node represents a normalized article URL in the provenance graph
type Node struct {
	URL       string   `json:"url"`
	ScanDepth int      `json:"scan_depth"`
	Parsed    bool     `json:"parsed"`
	Domain    string   `json:"domain"`
	Position  Position `json:"layout_position"`
}

// Edge represents "Source links to Target"
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
