package mpt

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Store is the node arena: nodes are addressed only by NodeId, never by
// pointer, matching the original's content-addressed design and removing
// cycle concerns entirely.
type Store interface {
	Get(id NodeID) (NodeType, bool, error)
	Put(n NodeType) (NodeID, error)
}

// MemStore is an in-memory node arena, used by tests and by executors that
// don't need cross-restart persistence.
type MemStore struct {
	nodes map[NodeID][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{nodes: make(map[NodeID][]byte)}
}

func (s *MemStore) Get(id NodeID) (NodeType, bool, error) {
	enc, ok := s.nodes[id]
	if !ok {
		return nil, false, nil
	}
	n, err := Decode(enc)
	if err != nil {
		return nil, false, err
	}
	return n, true, nil
}

func (s *MemStore) Put(n NodeType) (NodeID, error) {
	enc, err := Encode(n)
	if err != nil {
		return NodeID{}, err
	}
	id, err := IDOf(n)
	if err != nil {
		return NodeID{}, err
	}
	s.nodes[id] = enc
	return id, nil
}

var nodesBucket = []byte("nodes")

// BoltStore persists the node arena in a bbolt bucket, keyed by NodeId.
// Grounded on the teacher's pkg/storage/boltdb.go bucket-per-entity,
// db.Update/db.View CRUD idiom.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) the nodes bucket in db.
func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(nodesBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("mpt: creating nodes bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(id NodeID) (NodeType, bool, error) {
	var enc []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(nodesBucket).Get(id[:])
		if b != nil {
			enc = append([]byte{}, b...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if enc == nil {
		return nil, false, nil
	}
	n, err := Decode(enc)
	if err != nil {
		return nil, false, err
	}
	return n, true, nil
}

func (s *BoltStore) Put(n NodeType) (NodeID, error) {
	enc, err := Encode(n)
	if err != nil {
		return NodeID{}, err
	}
	id, err := IDOf(n)
	if err != nil {
		return NodeID{}, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(nodesBucket).Put(id[:], enc)
	})
	if err != nil {
		return NodeID{}, err
	}
	return id, nil
}
