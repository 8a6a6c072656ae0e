package domain

// GraphInfo is the externally visible summary of a compiled step graph. The
// executable graph itself stays internal to the engine; hosts only need to
// know that compilation succeeded and what the graph looks like.
type GraphInfo struct {
	Flow  string   `json:"flow"`
	Entry string   `json:"entry"`
	Nodes []string `json:"nodes"`
	Edges int      `json:"edges"`
}
