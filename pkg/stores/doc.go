// Package stores persists layout runs in SQLite. A run records one timeline
// being laid out from an input file; its draw plan is stored operation by
// operation in draw order so it can be rendered again later without the
// original input. Events form an append-only log per run.
package stores
