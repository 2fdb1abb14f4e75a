package store

import "sync"

// DocumentStore keeps documents in insertion order so that document
// positions line up with vector positions in the index.
type DocumentStore struct {
	mu   sync.RWMutex
	docs []Document
}

// NewDocumentStore creates an empty document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{}
}

// Add appends documents, preserving order.
func (s *DocumentStore) Add(docs []Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, docs...)
}

// Get returns the document at a position.
func (s *DocumentStore) Get(position int) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if position < 0 || position >= len(s.docs) {
		return Document{}, false
	}
	return s.docs[position], true
}

// Count returns the number of stored documents.
func (s *DocumentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// All returns a copy of all documents in insertion order.
func (s *DocumentStore) All() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Sources returns the distinct source names, sorted by first appearance.
func (s *DocumentStore) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool, len(s.docs))
	var sources []string
	for _, doc := range s.docs {
		if !seen[doc.Source] {
			seen[doc.Source] = true
			sources = append(sources, doc.Source)
		}
	}
	return sources
}

// CountBySource returns how many chunks each source contributed.
func (s *DocumentStore) CountBySource() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, doc := range s.docs {
		counts[doc.Source]++
	}
	return counts
}

// Partition splits documents into those from the given source and the
// rest, both in insertion order.
func (s *DocumentStore) Partition(source string) (matched, retained []Document) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.docs {
		if doc.Source == source {
			matched = append(matched, doc)
		} else {
			retained = append(retained, doc)
		}
	}
	return matched, retained
}
