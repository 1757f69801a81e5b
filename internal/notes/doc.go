// Package notes stores annotations attached to documents.
//
// Notes are grouped by resource key, the canonical identity of the document
// they annotate (usually a URI). Every mutation of a key's collection is a
// read-modify-write against a Backend and runs under that key's exclusion in
// a serial.Registry, so concurrent saves to one document are applied one at
// a time in arrival order and none is lost. Reads go straight to the backend.
//
// Export and Import move the whole store to and from a snapshot, a mapping
// from resource key to its ordered notes, encoded as JSON or YAML.
package notes
