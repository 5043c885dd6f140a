// Package render turns draw plans into output documents.
//
// The SVG renderer draws the timeline's centre line and then every plan
// operation in order, so connectors sit beneath markers and markers beneath
// labels. Canvas units are centimetres; Scale converts them to pixels.
package render
