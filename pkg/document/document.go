// Package document implements the document collection façade (C13): a
// thin JSON-document layer over pkg/mvcc, organizing arbitrary JSON
// values into named collections with insert/get/update/delete/list/count/
// find-by-field operations.
//
// Grounded on original_source's crates/dotdb/core/src/document/
// collection.rs (CollectionManager), re-keyed onto pkg/mvcc's flat
// versioned key/value space instead of a dedicated document storage
// trait. List and Count are kept as separate operations deliberately: a
// per-collection count is maintained as its own key, updated in the same
// transaction as every insert/delete, rather than derived by scanning on
// every call.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/synerthink/dotlanth/pkg/mvcc"
)

var (
	// ErrDocumentNotFound is returned by Update when the target document
	// does not exist; Get and Delete instead report absence via a bool.
	ErrDocumentNotFound = errors.New("document: document not found")
)

const (
	dataPrefix = "doc:data:"
	metaPrefix = "doc:meta:"
)

// Document is one stored JSON document.
type Document struct {
	ID      string
	Content json.RawMessage
}

type collectionMeta struct {
	Count uint64 `json:"count"`
}

func dataKey(collection, id string) string { return dataPrefix + collection + ":" + id }
func dataKeyPrefix(collection string) string { return dataPrefix + collection + ":" }
func metaKey(collection string) string     { return metaPrefix + collection }

// Manager is the collection façade, analogous to the original's
// CollectionManager but backed by pkg/mvcc's versioned store instead of
// a dedicated document storage trait.
type Manager struct {
	store *mvcc.Store
}

// New returns a collection manager backed by store.
func New(store *mvcc.Store) *Manager {
	return &Manager{store: store}
}

func (m *Manager) readMeta(collection string) (collectionMeta, bool, error) {
	raw, ok, err := m.store.Read(metaKey(collection), m.store.CurrentVersion())
	if err != nil {
		return collectionMeta{}, false, err
	}
	if !ok || raw == nil {
		return collectionMeta{}, false, nil
	}
	var meta collectionMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return collectionMeta{}, false, fmt.Errorf("document: decoding collection metadata: %w", err)
	}
	return meta, true, nil
}

// CreateCollection creates an empty collection. Creating an already
// existing collection is a no-op.
func (m *Manager) CreateCollection(collection string) error {
	_, exists, err := m.readMeta(collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.writeMeta(collection, collectionMeta{Count: 0})
}

func (m *Manager) writeMeta(collection string, meta collectionMeta) error {
	enc, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = m.store.Transaction([]mvcc.Op{{Key: metaKey(collection), Value: enc}})
	return err
}

// CollectionExists reports whether collection has been created.
func (m *Manager) CollectionExists(collection string) (bool, error) {
	_, exists, err := m.readMeta(collection)
	return exists, err
}

// ListCollections returns the names of every created collection.
func (m *Manager) ListCollections() ([]string, error) {
	state := m.store.GetStateAtVersion(m.store.CurrentVersion())
	names := make([]string, 0)
	for k := range state {
		if strings.HasPrefix(k, metaPrefix) {
			names = append(names, strings.TrimPrefix(k, metaPrefix))
		}
	}
	sort.Strings(names)
	return names, nil
}

// DeleteCollection removes collection and every document in it,
// reporting false if the collection did not exist.
func (m *Manager) DeleteCollection(collection string) (bool, error) {
	_, exists, err := m.readMeta(collection)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	state := m.store.GetStateAtVersion(m.store.CurrentVersion())
	prefix := dataKeyPrefix(collection)
	ops := []mvcc.Op{{Key: metaKey(collection), Delete: true}}
	for k := range state {
		if strings.HasPrefix(k, prefix) {
			ops = append(ops, mvcc.Op{Key: k, Delete: true})
		}
	}
	if _, err := m.store.Transaction(ops); err != nil {
		return false, err
	}
	return true, nil
}

// Insert stores content as a new document in collection, creating the
// collection implicitly if it does not yet exist, and returns the
// minted document ID.
func (m *Manager) Insert(collection string, content json.RawMessage) (string, error) {
	meta, _, err := m.readMeta(collection)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	meta.Count++
	metaEnc, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}

	ops := []mvcc.Op{
		{Key: dataKey(collection, id), Value: []byte(content)},
		{Key: metaKey(collection), Value: metaEnc},
	}
	if _, err := m.store.Transaction(ops); err != nil {
		return "", err
	}
	return id, nil
}

// Get returns the document with the given id, ok=false if absent.
func (m *Manager) Get(collection, id string) (json.RawMessage, bool, error) {
	raw, ok, err := m.store.Read(dataKey(collection, id), m.store.CurrentVersion())
	if err != nil || !ok || raw == nil {
		return nil, false, err
	}
	return json.RawMessage(raw), true, nil
}

// Exists reports whether the document is present.
func (m *Manager) Exists(collection, id string) (bool, error) {
	_, ok, err := m.Get(collection, id)
	return ok, err
}

// Update replaces the content of an existing document, returning
// ErrDocumentNotFound if it does not exist.
func (m *Manager) Update(collection, id string, content json.RawMessage) error {
	ok, err := m.Exists(collection, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDocumentNotFound
	}
	_, err = m.store.Transaction([]mvcc.Op{{Key: dataKey(collection, id), Value: []byte(content)}})
	return err
}

// Delete removes a document, reporting false if it did not exist.
func (m *Manager) Delete(collection, id string) (bool, error) {
	ok, err := m.Exists(collection, id)
	if err != nil || !ok {
		return false, err
	}

	meta, _, err := m.readMeta(collection)
	if err != nil {
		return false, err
	}
	if meta.Count > 0 {
		meta.Count--
	}
	metaEnc, err := json.Marshal(meta)
	if err != nil {
		return false, err
	}

	ops := []mvcc.Op{
		{Key: dataKey(collection, id), Delete: true},
		{Key: metaKey(collection), Value: metaEnc},
	}
	if _, err := m.store.Transaction(ops); err != nil {
		return false, err
	}
	return true, nil
}

// Count returns the number of documents in collection.
func (m *Manager) Count(collection string) (uint64, error) {
	meta, _, err := m.readMeta(collection)
	if err != nil {
		return 0, err
	}
	return meta.Count, nil
}

// List returns up to limit documents from collection starting at offset,
// ordered by document ID for stable pagination. limit<=0 means no limit.
func (m *Manager) List(collection string, offset, limit int) ([]Document, error) {
	all, err := m.allDocuments(collection)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return []Document{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// FindByField returns every document in collection whose top-level field
// equals the given JSON-encoded value.
func (m *Manager) FindByField(collection, field string, value json.RawMessage) ([]Document, error) {
	all, err := m.allDocuments(collection)
	if err != nil {
		return nil, err
	}

	var wanted interface{}
	if err := json.Unmarshal(value, &wanted); err != nil {
		return nil, fmt.Errorf("document: decoding match value: %w", err)
	}

	matches := make([]Document, 0)
	for _, doc := range all {
		var decoded map[string]interface{}
		if err := json.Unmarshal(doc.Content, &decoded); err != nil {
			continue
		}
		fv, present := decoded[field]
		if present && deepEqual(fv, wanted) {
			matches = append(matches, doc)
		}
	}
	return matches, nil
}

func (m *Manager) allDocuments(collection string) ([]Document, error) {
	state := m.store.GetStateAtVersion(m.store.CurrentVersion())
	prefix := dataKeyPrefix(collection)

	docs := make([]Document, 0)
	for k, v := range state {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		docs = append(docs, Document{ID: strings.TrimPrefix(k, prefix), Content: json.RawMessage(v)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func deepEqual(a, b interface{}) bool {
	aEnc, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bEnc, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(aEnc) == string(bEnc)
}
