package knowledge

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/mapknowledge/errors"
)

// Format is the encoding of an exported Document.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", errors.WithHint(errors.Newf("unknown export format %q", s), "Use 'json' or 'yaml'")
}

// FormatOf picks the format of a file from its extension, defaulting to JSON.
func FormatOf(path string) Format {
	if f, err := ParseFormat(filepath.Ext(path)); err == nil {
		return f
	}
	return JSON
}

// Document is an export of the knowledge held for one source.
type Document struct {
	Source    string    `json:"source"`
	Knowledge []*Record `json:"knowledge"`
}

// Encode writes doc to w. JSON output is indented.
func (doc *Document) Encode(w io.Writer, format Format) error {
	switch format {
	case YAML:
		// Round trip through JSON so records keep their wire field names.
		data, err := json.Marshal(doc)
		if err != nil {
			return errors.Wrap(err, "encode document")
		}
		var generic interface{}
		if err := json.Unmarshal(data, &generic); err != nil {
			return errors.Wrap(err, "encode document")
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return errors.Wrap(err, "encode yaml document")
		}
		return errors.Wrap(enc.Close(), "encode yaml document")
	case JSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return errors.Wrap(enc.Encode(doc), "encode json document")
	}
	return errors.Newf("unknown export format %q", format)
}

// DecodeDocument reads a document written by Encode.
func DecodeDocument(r io.Reader, format Format) (*Document, error) {
	var doc Document
	switch format {
	case YAML:
		var generic interface{}
		if err := yaml.NewDecoder(r).Decode(&generic); err != nil {
			return nil, errors.Wrap(err, "decode yaml document")
		}
		data, err := json.Marshal(generic)
		if err != nil {
			return nil, errors.Wrap(err, "decode yaml document")
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "decode yaml document")
		}
	case JSON, "":
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode json document")
		}
	default:
		return nil, errors.Newf("unknown export format %q", format)
	}

	for i, rec := range doc.Knowledge {
		if rec == nil || rec.ID == "" {
			return nil, errors.Newf("record %d of %s has no id", i, doc.Source)
		}
	}
	return &doc, nil
}
