package mocks

import (
	"context"
	"encoding/json"
	"sync"
)

// MockDocumentStore is an in-memory implementation of docstore.DocumentStore
// for testing
type MockDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]storedDoc // collection/id -> doc

	// For tracking calls in tests
	GetCalls    []GetCall
	SetCalls    []SetCall
	QueryCalls  []QueryCall
	GetErr      error
	SetErr      error
	QueryErr    error
	SetCallback func(ctx context.Context, collection, id, owner string, doc any) error
}

type storedDoc struct {
	owner string
	doc   json.RawMessage
}

// GetCall records parameters passed to Get
type GetCall struct {
	Collection string
	ID         string
}

// SetCall records parameters passed to Set
type SetCall struct {
	Collection string
	ID         string
	Owner      string
	Doc        any
}

// QueryCall records parameters passed to Query
type QueryCall struct {
	Collection string
	Owner      string
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		docs: make(map[string]storedDoc),
	}
}

func key(collection, id string) string {
	return collection + "/" + id
}

// Get returns a previously stored or seeded document
func (m *MockDocumentStore) Get(ctx context.Context, collection, id string) (json.RawMessage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, GetCall{Collection: collection, ID: id})

	if m.GetErr != nil {
		return nil, false, m.GetErr
	}

	stored, ok := m.docs[key(collection, id)]
	if !ok {
		return nil, false, nil
	}
	return stored.doc, true, nil
}

// Set stores a document in memory
func (m *MockDocumentStore) Set(ctx context.Context, collection, id, owner string, doc any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, SetCall{Collection: collection, ID: id, Owner: owner, Doc: doc})

	if m.SetCallback != nil {
		return m.SetCallback(ctx, collection, id, owner, doc)
	}
	if m.SetErr != nil {
		return m.SetErr
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs[key(collection, id)] = storedDoc{owner: owner, doc: raw}
	return nil
}

// Query returns all documents in a collection owned by owner
func (m *MockDocumentStore) Query(ctx context.Context, collection, owner string) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.QueryCalls = append(m.QueryCalls, QueryCall{Collection: collection, Owner: owner})

	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	prefix := collection + "/"
	var docs []json.RawMessage
	for k, stored := range m.docs {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix && stored.owner == owner {
			docs = append(docs, stored.doc)
		}
	}
	return docs, nil
}

// SeedRaw stores a raw document directly, bypassing marshalling. Useful for
// planting malformed documents in tests.
func (m *MockDocumentStore) SeedRaw(collection, id, owner string, doc []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key(collection, id)] = storedDoc{owner: owner, doc: json.RawMessage(doc)}
}

// Raw returns the stored raw document, if any
func (m *MockDocumentStore) Raw(collection, id string) (json.RawMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.docs[key(collection, id)]
	return stored.doc, ok
}

// Reset clears all documents and recorded calls
func (m *MockDocumentStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string]storedDoc)
	m.GetCalls = nil
	m.SetCalls = nil
	m.QueryCalls = nil
	m.GetErr = nil
	m.SetErr = nil
	m.QueryErr = nil
	m.SetCallback = nil
}
