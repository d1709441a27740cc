// Package jsonl post-processes export output.
//
// ToArray turns the append-only JSONL log into a single JSON array for tools
// that cannot stream. StripField removes an index-internal key such as
// _version_ so documents can be re-imported into another collection.
package jsonl
