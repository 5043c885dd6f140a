// Package style provides the visual templates that milestoner applies to
// generated shapes.
//
// Each milestone level N uses two categories: "N" for its marker and
// "TEXT N" for its label. A Catalog maps category labels to Template values
// and is normally loaded from a YAML file:
//
//	categories:
//	  "1":
//	    shape: ellipse
//	    width: 0.6
//	    height: 0.6
//	    fill_color: "#1F4E79"
//	  "TEXT 1":
//	    shape: rect
//	    width: 4.5
//	    height: 1.1
//	    font_name: Calibri
//	    font_size: 8
//
// Missing categories are reported as warnings when a catalog is loaded; the
// failure surfaces only when a layout actually needs the category.
package style
