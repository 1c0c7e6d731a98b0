package maintenance

import "github.com/teranos/mapknowledge/knowledge"

// Summary counts the connectivity described by a document.
type Summary struct {
	Source string `json:"source"`
	// Records is every record in the document; Paths only those with
	// connectivity.
	Records int `json:"records"`
	Paths   int `json:"paths"`
	Edges   int `json:"edges"`
	Nodes   int `json:"nodes"`
	Terms   int `json:"terms"`
}

// Stats summarises doc. Edges, nodes and terms are counted once however
// many paths share them.
func Stats(doc *knowledge.Document) Summary {
	s := Summary{Source: doc.Source, Records: len(doc.Knowledge)}
	edges := make(map[[2]string]struct{})
	nodes := make(map[string]struct{})
	terms := make(map[string]struct{})

	for _, rec := range doc.Knowledge {
		if !rec.HasConnectivity() {
			continue
		}
		s.Paths++
		for _, edge := range rec.Connectivity {
			edges[[2]string{edge[0].Key(), edge[1].Key()}] = struct{}{}
		}
		for _, n := range rec.ConnectivityNodes() {
			nodes[n.Key()] = struct{}{}
		}
		for _, t := range rec.ConnectivityTerms() {
			terms[t] = struct{}{}
		}
	}

	s.Edges, s.Nodes, s.Terms = len(edges), len(nodes), len(terms)
	return s
}
