package knowledge

import "strings"

// ModelPrefix is the URI prefix of ApiNATOMY connectivity models.
const ModelPrefix = "https://apinatomy.org/uris/models/"

// ConnectivityOntologies are the CURIE prefixes of ontologies whose terms
// carry connectivity (neuron populations and their paths).
var ConnectivityOntologies = []string{"ilxtr"}

type namespace struct {
	prefix string
	uri    string
}

// Order matters: the general interlex namespace must come after the more
// specific ones that share its URI stem.
var namespaces = []namespace{
	{"ILX", "http://uri.interlex.org/base/ilx_"},
	{"NCBITaxon", "http://purl.obolibrary.org/obo/NCBITaxon_"},
	{"PATO", "http://purl.obolibrary.org/obo/PATO_"},
	{"UBERON", "http://purl.obolibrary.org/obo/UBERON_"},
	{"apinatomy", "https://apinatomy.org/uris/readable/"},
	{"ilxtr", "http://uri.interlex.org/tgbugs/uris/readable/"},
	{"ilx", "http://uri.interlex.org/"},
	{"CL", "http://purl.obolibrary.org/obo/CL_"},
}

// URI expands a CURIE with a known prefix; anything else is returned unchanged.
func URI(curie string) string {
	prefix, local, ok := strings.Cut(curie, ":")
	if !ok {
		return curie
	}
	for _, ns := range namespaces {
		if ns.prefix == prefix {
			return ns.uri + local
		}
	}
	return curie
}

// CURIE contracts a URI in a known namespace; anything else is returned unchanged.
func CURIE(uri string) string {
	for _, ns := range namespaces {
		if strings.HasPrefix(uri, ns.uri) {
			return ns.prefix + ":" + uri[len(ns.uri):]
		}
	}
	return uri
}

// Prefix returns the namespace prefix of a CURIE, or "" when there is none.
func Prefix(entity string) string {
	if strings.Contains(entity, "://") {
		return ""
	}
	prefix, _, ok := strings.Cut(entity, ":")
	if !ok {
		return ""
	}
	return prefix
}

// IsConnectivityEntity reports whether entity is a connectivity model or
// belongs to a connectivity-bearing ontology.
func IsConnectivityEntity(entity string) bool {
	if strings.HasPrefix(entity, ModelPrefix) {
		return true
	}
	prefix := Prefix(entity)
	for _, o := range ConnectivityOntologies {
		if prefix == o {
			return true
		}
	}
	return false
}

// ConnectivityPatterns returns SQL LIKE patterns matching every connectivity entity.
func ConnectivityPatterns() []string {
	patterns := []string{ModelPrefix + "%"}
	for _, o := range ConnectivityOntologies {
		patterns = append(patterns, o+":%")
	}
	return patterns
}
