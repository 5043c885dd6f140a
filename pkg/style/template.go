package style

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrMissingCategory is wrapped by Lookup when a category is not defined.
var ErrMissingCategory = errors.New("style category not defined")

// Shape is the outline drawn for a template.
type Shape string

const (
	ShapeEllipse   Shape = "ellipse"
	ShapeRect      Shape = "rect"
	ShapeRoundRect Shape = "roundrect"
)

// Template holds the visual attributes of one category.
type Template struct {
	Shape      Shape   `json:"shape" yaml:"shape" validate:"omitempty,oneof=ellipse rect roundrect"`
	Width      float64 `json:"width" yaml:"width" validate:"gt=0"`
	Height     float64 `json:"height" yaml:"height" validate:"gt=0"`
	FillColor  string  `json:"fill_color,omitempty" yaml:"fill_color" validate:"omitempty,hexcolor"`
	LineColor  string  `json:"line_color,omitempty" yaml:"line_color" validate:"omitempty,hexcolor"`
	LineWidth  float64 `json:"line_width,omitempty" yaml:"line_width" validate:"gte=0"`
	FontName   string  `json:"font_name,omitempty" yaml:"font_name"`
	FontSize   float64 `json:"font_size,omitempty" yaml:"font_size" validate:"gte=0"`
	FontBold   bool    `json:"font_bold,omitempty" yaml:"font_bold"`
	FontItalic bool    `json:"font_italic,omitempty" yaml:"font_italic"`
	FontColor  string  `json:"font_color,omitempty" yaml:"font_color" validate:"omitempty,hexcolor"`
}

// MarkerCategory is the category label used for markers of a level.
func MarkerCategory(level int) string {
	return strconv.Itoa(level)
}

// LabelCategory is the category label used for labels of a level.
func LabelCategory(level int) string {
	return fmt.Sprintf("TEXT %d", level)
}

// StandardCategories lists the categories expected for levels 1..maxLevel.
func StandardCategories(maxLevel int) []string {
	out := make([]string, 0, maxLevel*2)
	for l := 1; l <= maxLevel; l++ {
		out = append(out, MarkerCategory(l))
	}
	for l := 1; l <= maxLevel; l++ {
		out = append(out, LabelCategory(l))
	}
	return out
}

// Catalog maps category labels to templates.
type Catalog struct {
	templates map[string]Template
}

// NewCatalog builds a catalog from a map of templates.
func NewCatalog(templates map[string]Template) *Catalog {
	c := &Catalog{templates: make(map[string]Template, len(templates))}
	for k, v := range templates {
		c.templates[k] = v
	}
	return c
}

// Lookup returns the template for a category.
func (c *Catalog) Lookup(category string) (Template, error) {
	if c != nil {
		if t, ok := c.templates[category]; ok {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %q", ErrMissingCategory, category)
}

// Set adds or replaces a category.
func (c *Catalog) Set(category string, t Template) {
	c.templates[category] = t
}

// Categories returns the defined categories in sorted order.
func (c *Catalog) Categories() []string {
	out := make([]string, 0, len(c.templates))
	for k := range c.templates {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Missing returns the expected categories that are not defined.
func (c *Catalog) Missing(expected []string) []string {
	var missing []string
	for _, cat := range expected {
		if _, ok := c.templates[cat]; !ok {
			missing = append(missing, cat)
		}
	}
	return missing
}

// DefaultCatalog returns templates for the three standard levels so that a
// timeline can be rendered without a template file.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[string]Template{
		"1": {Shape: ShapeEllipse, Width: 0.6, Height: 0.6, FillColor: "#1F4E79", LineWidth: 0.02,
			FontName: "Calibri", FontSize: 7, FontBold: true, FontColor: "#FFFFFF"},
		"2": {Shape: ShapeEllipse, Width: 0.45, Height: 0.45, FillColor: "#2E75B6", LineWidth: 0.02,
			FontName: "Calibri", FontSize: 6, FontBold: true, FontColor: "#FFFFFF"},
		"3": {Shape: ShapeEllipse, Width: 0.3, Height: 0.3, FillColor: "#9DC3E6", LineWidth: 0.02,
			FontName: "Calibri", FontSize: 5, FontColor: "#000000"},
		"TEXT 1": {Shape: ShapeRect, Width: 4.5, Height: 1.1, FillColor: "#FFFFFF", LineColor: "#1F4E79",
			LineWidth: 0.02, FontName: "Calibri", FontSize: 8, FontBold: true, FontColor: "#1F4E79"},
		"TEXT 2": {Shape: ShapeRect, Width: 4.0, Height: 1.0, FillColor: "#FFFFFF", LineColor: "#2E75B6",
			LineWidth: 0.02, FontName: "Calibri", FontSize: 8, FontColor: "#2E75B6"},
		"TEXT 3": {Shape: ShapeRect, Width: 3.5, Height: 0.9, FillColor: "#FFFFFF",
			FontName: "Calibri", FontSize: 7, FontItalic: true, FontColor: "#404040"},
	})
}
