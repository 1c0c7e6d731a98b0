package knowledge

import (
	"encoding/json"
	"slices"

	"github.com/teranos/mapknowledge/errors"
)

// Node is a point on a connectivity path: a primary anatomical term and the
// ordered set of layer terms it sits within.
//
// On the wire a node is the pair ["UBERON:0001759", ["UBERON:0000948"]].
type Node struct {
	Term   string
	Layers []string
}

// NewNode builds a node, dropping duplicate layers while keeping their order.
func NewNode(term string, layers ...string) Node {
	n := Node{Term: term}
	for _, l := range layers {
		if !slices.Contains(n.Layers, l) {
			n.Layers = append(n.Layers, l)
		}
	}
	return n
}

// Terms returns the primary term followed by the layer terms.
func (n Node) Terms() []string {
	return append([]string{n.Term}, n.Layers...)
}

// Key is the canonical serialized form of the node, used as the
// connectivity index key.
func (n Node) Key() string {
	b, _ := json.Marshal(n)
	return string(b)
}

// Equal reports whether two nodes have the same term and layers in the same order.
func (n Node) Equal(o Node) bool {
	return n.Term == o.Term && slices.Equal(n.Layers, o.Layers)
}

func (n Node) clone() Node {
	return Node{Term: n.Term, Layers: slices.Clone(n.Layers)}
}

// MarshalJSON encodes the node as a [term, [layers...]] pair.
func (n Node) MarshalJSON() ([]byte, error) {
	layers := n.Layers
	if layers == nil {
		layers = []string{}
	}
	return json.Marshal([]interface{}{n.Term, layers})
}

// UnmarshalJSON decodes a [term, [layers...]] pair.
func (n *Node) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "node")
	}
	if len(pair) != 2 {
		return errors.Newf("node: expected [term, layers], got %d elements", len(pair))
	}
	var term string
	if err := json.Unmarshal(pair[0], &term); err != nil {
		return errors.Wrap(err, "node term")
	}
	var layers []string
	if err := json.Unmarshal(pair[1], &layers); err != nil {
		return errors.Wrap(err, "node layers")
	}
	*n = NewNode(term, layers...)
	return nil
}

// Edge is a directed node-to-node step of a connectivity path.
type Edge [2]Node

// NewEdge builds an edge from two nodes.
func NewEdge(from, to Node) Edge {
	return Edge{from, to}
}

func cloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.clone()
	}
	return out
}
