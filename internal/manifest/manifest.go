// Package manifest loads batch lists of proposal documents.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"grantreview/internal/pipeline"
)

// Entry is one document to review. A bare string in the file is its Path.
type Entry struct {
	Path string `json:"path" yaml:"path"` // absolute or relative to the manifest file
	// Reference overrides the document reference recorded in the report,
	// e.g. the URL of the original submission.
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// Manifest is a batch of documents with optional run settings.
type Manifest struct {
	Documents []Entry `json:"documents" yaml:"documents"`
	// Parallel overrides the configured worker count when positive.
	Parallel int `json:"parallel,omitempty" yaml:"parallel,omitempty"`
}

// UnmarshalYAML accepts either a path string or a mapping.
func (e *Entry) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		e.Path = n.Value
		return nil
	}
	type plain Entry
	return n.Decode((*plain)(e))
}

// UnmarshalJSON accepts either a path string or an object.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Path = s
		return nil
	}
	type plain Entry
	return json.Unmarshal(data, (*plain)(e))
}

// LoadFromPath reads a manifest (YAML or JSON) and resolves relative
// document paths against the manifest's directory.
func LoadFromPath(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Load(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(path)
	for i := range m.Documents {
		if !filepath.IsAbs(m.Documents[i].Path) {
			m.Documents[i].Path = filepath.Join(base, m.Documents[i].Path)
		}
	}
	return m, nil
}

// Load parses a manifest from bytes. ext (".json", ".yaml", ".yml") is a
// format hint; empty means detect from content. The top level is either a
// mapping with a documents key or a bare list of entries.
func Load(data []byte, ext string) (*Manifest, error) {
	var (
		m   *Manifest
		err error
	)
	switch strings.ToLower(ext) {
	case ".json":
		m, err = loadJSON(data)
	case ".yaml", ".yml":
		m, err = loadYAML(data)
	default:
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			m, err = loadJSON(data)
		} else {
			m, err = loadYAML(data)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func loadJSON(data []byte) (*Manifest, error) {
	if strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
		var entries []Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse manifest json: %w", err)
		}
		return &Manifest{Documents: entries}, nil
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest json: %w", err)
	}
	return &m, nil
}

func loadYAML(data []byte) (*Manifest, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse manifest yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return &Manifest{}, nil
	}
	doc := root.Content[0]
	if doc.Kind == yaml.SequenceNode {
		var entries []Entry
		if err := doc.Decode(&entries); err != nil {
			return nil, fmt.Errorf("parse manifest yaml: %w", err)
		}
		return &Manifest{Documents: entries}, nil
	}
	var m Manifest
	if err := doc.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest yaml: %w", err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if len(m.Documents) == 0 {
		return errors.New("manifest lists no documents")
	}
	if m.Parallel < 0 {
		return fmt.Errorf("manifest parallel must not be negative, got %d", m.Parallel)
	}
	for i, e := range m.Documents {
		if strings.TrimSpace(e.Path) == "" {
			return fmt.Errorf("manifest document %d has no path", i+1)
		}
	}
	return nil
}

// Open reads every listed document. The first unreadable file aborts.
func (m *Manifest) Open() ([]pipeline.Document, error) {
	docs := make([]pipeline.Document, 0, len(m.Documents))
	for _, e := range m.Documents {
		doc, err := pipeline.OpenDocument(e.Path)
		if err != nil {
			return nil, err
		}
		if e.Reference != "" {
			doc.Reference = e.Reference
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
