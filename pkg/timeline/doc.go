// Package timeline holds the input side of milestoner: the per-timeline
// configuration, the milestone records read from a workbook, and the
// Manager that indexes loaded timelines by name.
//
// A Timeline is immutable once built. Accessors hand out copies so that a
// layout pass can never mutate the dataset it was given; all mutable layout
// state lives in the engine package.
package timeline
