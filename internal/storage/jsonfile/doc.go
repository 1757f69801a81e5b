// Package jsonfile is a notes.Backend that keeps one JSON document per
// resource key in a directory.
//
// File names are derived from a hash of the key, so arbitrary URIs map to
// safe names. Each document records its key alongside the notes:
//
//	{"file": "file:///src/main.go", "notes": [...]}
//
// Writes go to a temporary file that is renamed into place while holding an
// advisory flock on the directory's lock file, so readers in any process
// see either the old or the new document and concurrent margin processes
// do not interleave their writes. Ordering writes to one key within a
// process is left to notes.Store.
package jsonfile
