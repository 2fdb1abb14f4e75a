// Package store holds the in-memory vector index and document store
// plus their on-disk snapshot format. The index and the store are kept
// positionally aligned: the vector at position i belongs to the
// document at position i.
package store

// Document is one indexed chunk of text with its provenance.
type Document struct {
	ID       string
	Content  string
	Source   string
	Metadata map[string]string
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document Document
	Score    float32
}

// ScoredPosition is an index position with its similarity score,
// produced by the flat index before document lookup.
type ScoredPosition struct {
	Position int
	Score    float32
}
