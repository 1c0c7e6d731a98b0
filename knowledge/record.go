// Package knowledge defines the records the knowledge store resolves and
// caches, and the namespace rules that decide which entities carry
// connectivity.
package knowledge

import (
	"encoding/json"
	"maps"
	"slices"
)

// ModelPath is one neuron population path belonging to a connectivity model.
type ModelPath struct {
	ID     string `json:"id"`
	Models string `json:"models,omitempty"`
}

// Record is everything known about one entity.
//
// Fields not modelled explicitly survive a store round trip through Extra.
type Record struct {
	ID        string `json:"id"`
	Label     string `json:"label,omitempty"`
	LongLabel string `json:"long-label,omitempty"`

	// Source is the knowledge source that produced the record; "" is the
	// shared, unsourced source.
	Source string `json:"source,omitempty"`
	Type   string `json:"type,omitempty"`

	Connectivity       []Edge            `json:"connectivity,omitempty"`
	Phenotypes         []string          `json:"phenotypes,omitempty"`
	Taxons             []string          `json:"taxons,omitempty"`
	BiologicalSex      string            `json:"biologicalSex,omitempty"`
	Alert              string            `json:"alert,omitempty"`
	References         []string          `json:"references,omitempty"`
	Dendrites          []Node            `json:"dendrites,omitempty"`
	Axons              []Node            `json:"axons,omitempty"`
	Somas              []Node            `json:"somas,omitempty"`
	AxonTerminals      []Node            `json:"axon-terminals,omitempty"`
	AfferentTerminals  []Node            `json:"afferent-terminals,omitempty"`
	AxonLocations      []Node            `json:"axon-locations,omitempty"`
	ForwardConnections []string          `json:"forward-connections,omitempty"`
	NodePhenotypes     map[string][]Node `json:"node-phenotypes,omitempty"`
	Nerves             []Node            `json:"nerves,omitempty"`
	Paths              []ModelPath       `json:"paths,omitempty"`
	PathDisconnected   bool              `json:"pathDisconnected,omitempty"`
	Errors             []string          `json:"errors,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var knownFields = map[string]struct{}{
	"id": {}, "label": {}, "long-label": {}, "source": {}, "type": {},
	"connectivity": {}, "phenotypes": {}, "taxons": {}, "biologicalSex": {},
	"alert": {}, "references": {}, "dendrites": {}, "axons": {}, "somas": {},
	"axon-terminals": {}, "afferent-terminals": {}, "axon-locations": {},
	"forward-connections": {}, "node-phenotypes": {}, "nerves": {},
	"paths": {}, "pathDisconnected": {}, "errors": {},
}

// plainRecord has Record's fields without its methods.
type plainRecord Record

// MarshalJSON encodes the record, folding Extra fields into the object.
func (r Record) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(plainRecord(r))
	if err != nil || len(r.Extra) == 0 {
		return b, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, known := knownFields[k]; !known {
			fields[k] = v
		}
	}
	return json.Marshal(fields)
}

// UnmarshalJSON decodes a record, collecting unknown fields into Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var plain plainRecord
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	plain.Extra = nil
	for k, v := range fields {
		if _, known := knownFields[k]; known {
			continue
		}
		if plain.Extra == nil {
			plain.Extra = make(map[string]json.RawMessage)
		}
		plain.Extra[k] = v
	}
	*r = Record(plain)
	return nil
}

// Marshal serializes a record into the store's knowledge blob.
func Marshal(r *Record) ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal parses a knowledge blob.
func Unmarshal(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Stub returns a record that knows nothing beyond its id.
func Stub(entity string) *Record {
	return &Record{ID: entity}
}

// HasKnowledge reports whether the record carries anything beyond its id and source.
func (r *Record) HasKnowledge() bool {
	if r == nil {
		return false
	}
	return r.Label != "" || r.LongLabel != "" || r.Type != "" ||
		len(r.Connectivity) > 0 || len(r.Phenotypes) > 0 || len(r.Taxons) > 0 ||
		r.BiologicalSex != "" || r.Alert != "" || len(r.References) > 0 ||
		len(r.Dendrites) > 0 || len(r.Axons) > 0 || len(r.Somas) > 0 ||
		len(r.AxonTerminals) > 0 || len(r.AfferentTerminals) > 0 ||
		len(r.AxonLocations) > 0 || len(r.ForwardConnections) > 0 ||
		len(r.NodePhenotypes) > 0 || len(r.Nerves) > 0 || len(r.Paths) > 0 ||
		r.PathDisconnected || len(r.Errors) > 0 || len(r.Extra) > 0
}

// HasConnectivity reports whether the record describes a connectivity path.
func (r *Record) HasConnectivity() bool {
	return r != nil && len(r.Connectivity) > 0
}

// HasRealLabel reports whether the record's label is something other than
// the entity's own id.
func (r *Record) HasRealLabel(entity string) bool {
	return r != nil && r.Label != "" && r.Label != entity
}

// PreferLongLabel replaces a label equal to the entity's id with the long label, when there is one.
func (r *Record) PreferLongLabel(entity string) {
	if r.Label == entity && r.LongLabel != "" {
		r.Label = r.LongLabel
	}
}

// ConnectivityNodes returns the distinct nodes of all edges, in first-seen order.
func (r *Record) ConnectivityNodes() []Node {
	var nodes []Node
	seen := make(map[string]struct{})
	for _, edge := range r.Connectivity {
		for _, n := range edge {
			key := n.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// ConnectivityTerms returns every distinct primary and layer term referenced
// by the record's connectivity, in first-seen order.
func (r *Record) ConnectivityTerms() []string {
	var terms []string
	seen := make(map[string]struct{})
	for _, n := range r.ConnectivityNodes() {
		for _, t := range n.Terms() {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			terms = append(terms, t)
		}
	}
	return terms
}

// Merge copies every populated field of o into r. The id is never changed.
func (r *Record) Merge(o *Record) {
	if o == nil {
		return
	}
	setString(&r.Label, o.Label)
	setString(&r.LongLabel, o.LongLabel)
	setString(&r.Source, o.Source)
	setString(&r.Type, o.Type)
	setString(&r.BiologicalSex, o.BiologicalSex)
	setString(&r.Alert, o.Alert)
	if len(o.Connectivity) > 0 {
		r.Connectivity = cloneEdges(o.Connectivity)
	}
	setStrings(&r.Phenotypes, o.Phenotypes)
	setStrings(&r.Taxons, o.Taxons)
	setStrings(&r.References, o.References)
	setStrings(&r.ForwardConnections, o.ForwardConnections)
	setStrings(&r.Errors, o.Errors)
	setNodes(&r.Dendrites, o.Dendrites)
	setNodes(&r.Axons, o.Axons)
	setNodes(&r.Somas, o.Somas)
	setNodes(&r.AxonTerminals, o.AxonTerminals)
	setNodes(&r.AfferentTerminals, o.AfferentTerminals)
	setNodes(&r.AxonLocations, o.AxonLocations)
	setNodes(&r.Nerves, o.Nerves)
	if len(o.NodePhenotypes) > 0 {
		r.NodePhenotypes = cloneNodeMap(o.NodePhenotypes)
	}
	if len(o.Paths) > 0 {
		r.Paths = slices.Clone(o.Paths)
	}
	if o.PathDisconnected {
		r.PathDisconnected = true
	}
	if len(o.Extra) > 0 {
		if r.Extra == nil {
			r.Extra = make(map[string]json.RawMessage, len(o.Extra))
		}
		for k, v := range o.Extra {
			r.Extra[k] = slices.Clone(v)
		}
	}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Connectivity = cloneEdges(r.Connectivity)
	c.Phenotypes = slices.Clone(r.Phenotypes)
	c.Taxons = slices.Clone(r.Taxons)
	c.References = slices.Clone(r.References)
	c.ForwardConnections = slices.Clone(r.ForwardConnections)
	c.Errors = slices.Clone(r.Errors)
	c.Dendrites = cloneNodes(r.Dendrites)
	c.Axons = cloneNodes(r.Axons)
	c.Somas = cloneNodes(r.Somas)
	c.AxonTerminals = cloneNodes(r.AxonTerminals)
	c.AfferentTerminals = cloneNodes(r.AfferentTerminals)
	c.AxonLocations = cloneNodes(r.AxonLocations)
	c.Nerves = cloneNodes(r.Nerves)
	c.NodePhenotypes = cloneNodeMap(r.NodePhenotypes)
	c.Paths = slices.Clone(r.Paths)
	if r.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = slices.Clone(v)
		}
	}
	return &c
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setStrings(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = slices.Clone(v)
	}
}

func setNodes(dst *[]Node, v []Node) {
	if len(v) > 0 {
		*dst = cloneNodes(v)
	}
}

func cloneEdges(edges []Edge) []Edge {
	if edges == nil {
		return nil
	}
	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[i] = Edge{e[0].clone(), e[1].clone()}
	}
	return out
}

func cloneNodeMap(m map[string][]Node) map[string][]Node {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = cloneNodes(v)
	}
	return out
}
