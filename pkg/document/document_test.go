package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/synerthink/dotlanth/pkg/mvcc"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	store, err := mvcc.NewStore(mvcc.Config{NodeID: "node1", DataDir: dir, BindAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Shutdown() })
	return New(store)
}

func TestInsertAndGet(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Insert("users", json.RawMessage(`{"name":"Alice","age":30}`))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	content, ok, err := m.Get("users", id)
	require.NoError(t, err)
	require.True(t, ok)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(content, &decoded))
	require.Equal(t, "Alice", decoded["name"])
}

func TestUpdateOperations(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Insert("users", json.RawMessage(`{"name":"Charlie","count":1}`))
	require.NoError(t, err)

	require.NoError(t, m.Update("users", id, json.RawMessage(`{"name":"Charlie","count":2}`)))

	content, ok, err := m.Get("users", id)
	require.NoError(t, err)
	require.True(t, ok)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(content, &decoded))
	require.Equal(t, float64(2), decoded["count"])
}

func TestUpdateMissingDocumentFails(t *testing.T) {
	m := newTestManager(t)
	err := m.Update("users", "does-not-exist", json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDeleteOperations(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Insert("users", json.RawMessage(`{"name":"David"}`))
	require.NoError(t, err)

	exists, err := m.Exists("users", id)
	require.NoError(t, err)
	require.True(t, exists)

	deleted, err := m.Delete("users", id)
	require.NoError(t, err)
	require.True(t, deleted)

	exists, err = m.Exists("users", id)
	require.NoError(t, err)
	require.False(t, exists)

	deletedAgain, err := m.Delete("users", id)
	require.NoError(t, err)
	require.False(t, deletedAgain)
}

func TestCollectionLifecycle(t *testing.T) {
	m := newTestManager(t)

	collections, err := m.ListCollections()
	require.NoError(t, err)
	require.Empty(t, collections)

	require.NoError(t, m.CreateCollection("test"))
	exists, err := m.CollectionExists("test")
	require.NoError(t, err)
	require.True(t, exists)

	collections, err = m.ListCollections()
	require.NoError(t, err)
	require.Equal(t, []string{"test"}, collections)

	deleted, err := m.DeleteCollection("test")
	require.NoError(t, err)
	require.True(t, deleted)

	exists, err = m.CollectionExists("test")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestDeleteCollectionRemovesDocuments(t *testing.T) {
	m := newTestManager(t)
	id, err := m.Insert("test", json.RawMessage(`{"id":1}`))
	require.NoError(t, err)

	deleted, err := m.DeleteCollection("test")
	require.NoError(t, err)
	require.True(t, deleted)

	_, ok, err := m.Get("test", id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListAndCountDocuments(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Insert("test", json.RawMessage(`{"id":1}`))
	require.NoError(t, err)
	_, err = m.Insert("test", json.RawMessage(`{"id":2}`))
	require.NoError(t, err)
	_, err = m.Insert("test", json.RawMessage(`{"id":3}`))
	require.NoError(t, err)

	count, err := m.Count("test")
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)

	all, err := m.List("test", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestListPagination(t *testing.T) {
	m := newTestManager(t)
	for i := 0; i < 5; i++ {
		_, err := m.Insert("test", json.RawMessage(`{}`))
		require.NoError(t, err)
	}

	page1, err := m.List("test", 0, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)

	page2, err := m.List("test", 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.NotEqual(t, page1[0].ID, page2[0].ID)

	page3, err := m.List("test", 4, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)

	beyond, err := m.List("test", 10, 2)
	require.NoError(t, err)
	require.Empty(t, beyond)
}

func TestFindByField(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Insert("users", json.RawMessage(`{"name":"Alice","role":"admin"}`))
	require.NoError(t, err)
	_, err = m.Insert("users", json.RawMessage(`{"name":"Bob","role":"user"}`))
	require.NoError(t, err)
	_, err = m.Insert("users", json.RawMessage(`{"name":"Charlie","role":"admin"}`))
	require.NoError(t, err)

	admins, err := m.FindByField("users", "role", json.RawMessage(`"admin"`))
	require.NoError(t, err)
	require.Len(t, admins, 2)

	users, err := m.FindByField("users", "role", json.RawMessage(`"user"`))
	require.NoError(t, err)
	require.Len(t, users, 1)

	alice, err := m.FindByField("users", "name", json.RawMessage(`"Alice"`))
	require.NoError(t, err)
	require.Len(t, alice, 1)
}

func TestInsertImplicitlyCreatesCollection(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Insert("untouched", json.RawMessage(`{}`))
	require.NoError(t, err)

	exists, err := m.CollectionExists("untouched")
	require.NoError(t, err)
	require.True(t, exists)
}
