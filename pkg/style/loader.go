package style

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Loader reads style catalogs from YAML documents.
type Loader struct {
	validator *validator.Validate
	logger    zerolog.Logger
	expected  []string
}

// NewLoader creates a loader that warns about any of the expected categories
// that a document does not define.
func NewLoader(logger zerolog.Logger, expected []string) *Loader {
	return &Loader{
		validator: validator.New(),
		logger:    logger.With().Str("component", "style").Logger(),
		expected:  expected,
	}
}

// LoadFile reads and parses a catalog file.
func (l *Loader) LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style file: %w", err)
	}

	catalog, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse style file %s: %w", path, err)
	}
	return catalog, nil
}

// Parse decodes a catalog document. The first definition of a category wins;
// later duplicates are ignored with a warning.
func (l *Loader) Parse(data []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	categories, err := categoriesNode(&doc)
	if err != nil {
		return nil, err
	}

	catalog := NewCatalog(nil)
	for i := 0; i+1 < len(categories.Content); i += 2 {
		key := categories.Content[i].Value
		if _, dup := catalog.templates[key]; dup {
			l.logger.Warn().Str("category", key).Int("line", categories.Content[i].Line).
				Msg("Duplicate style category found, ignoring")
			continue
		}

		var tmpl Template
		if err := categories.Content[i+1].Decode(&tmpl); err != nil {
			return nil, fmt.Errorf("category %q: %w", key, err)
		}
		if tmpl.Shape == "" {
			tmpl.Shape = ShapeRect
		}
		if err := l.validator.Struct(tmpl); err != nil {
			return nil, fmt.Errorf("category %q failed validation: %w", key, err)
		}

		catalog.templates[key] = tmpl
		l.logger.Debug().Str("category", key).Msg("Loaded style category")
	}

	if missing := catalog.Missing(l.expected); len(missing) > 0 {
		l.logger.Warn().Strs("categories", missing).Msg("Style categories not found")
	}

	return catalog, nil
}

// categoriesNode finds the "categories" mapping in a decoded document.
func categoriesNode(doc *yaml.Node) (*yaml.Node, error) {
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("style document must be a mapping")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "categories" {
			node := root.Content[i+1]
			if node.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("categories must be a mapping")
			}
			return node, nil
		}
	}
	return nil, fmt.Errorf("style document has no categories")
}

// Marshal renders a catalog as a YAML document that Parse accepts.
func Marshal(c *Catalog) ([]byte, error) {
	doc := struct {
		Categories map[string]Template `yaml:"categories"`
	}{Categories: c.templates}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
