// Package mpt implements a Merkle Patricia Trie: a content-addressed,
// nibble-keyed trie whose node identity is the keccak256 hash of its
// canonical encoding. Grounded on the original's
// crates/dotdb/core/src/state/mpt/node.rs and proof.rs.
package mpt

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/synerthink/dotlanth/pkg/crypto"
)

// NodeID is the content-addressed identity of a node: keccak256 of its
// canonical encoding.
type NodeID [32]byte

func (id NodeID) IsZero() bool { return id == NodeID{} }

var (
	ErrInvalidNodeType    = errors.New("mpt: invalid node type")
	ErrSerialization      = errors.New("mpt: serialization error")
	ErrTrieInvariant      = errors.New("mpt: trie invariant violation")
)

// CompactPath is a nibble sequence tagged with whether it terminates a Leaf
// (true) or an Extension (false).
type CompactPath struct {
	Nibbles []byte // each element in [0,15]
	IsLeaf  bool
}

// KeyToNibbles splits each byte of k into a high nibble then a low nibble.
func KeyToNibbles(k []byte) []byte {
	out := make([]byte, 0, len(k)*2)
	for _, b := range k {
		out = append(out, b>>4, b&0x0F)
	}
	return out
}

// NibblesToKey reassembles nibbles produced by KeyToNibbles back into bytes.
// Panics-free: an odd-length input is truncated, which never occurs for
// nibble sequences produced by this package.
func NibblesToKey(nibbles []byte) []byte {
	out := make([]byte, 0, len(nibbles)/2)
	for i := 0; i+1 < len(nibbles); i += 2 {
		out = append(out, nibbles[i]<<4|nibbles[i+1])
	}
	return out
}

// commonPrefixLen returns the length of the shared prefix of a and b.
func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// Value is an MPT leaf/branch payload — opaque bytes from the trie's point
// of view.
type Value []byte

// NodeType is the closed sum of MPT node variants.
type NodeType interface {
	isNode()
}

type EmptyNode struct{}

func (EmptyNode) isNode() {}

type LeafNode struct {
	Path  CompactPath
	Value Value
}

func (LeafNode) isNode() {}

type ExtensionNode struct {
	Path  CompactPath
	Child NodeID
}

func (ExtensionNode) isNode() {}

type BranchNode struct {
	Children [16]*NodeID // nil entries mean absent
	Value    *Value       // nil means no value stored at this branch
}

func (BranchNode) isNode() {}

// tag bytes for canonical encoding.
const (
	tagEmpty     byte = 0
	tagLeaf      byte = 1
	tagExtension byte = 2
	tagBranch    byte = 3
)

// Encode produces the canonical, deterministic byte encoding of a node: the
// same content always encodes to the same bytes, across runs and
// implementations.
func Encode(n NodeType) ([]byte, error) {
	switch v := n.(type) {
	case EmptyNode:
		return []byte{tagEmpty}, nil
	case LeafNode:
		buf := []byte{tagLeaf}
		buf = appendPath(buf, v.Path)
		buf = appendBytes(buf, v.Value)
		return buf, nil
	case ExtensionNode:
		buf := []byte{tagExtension}
		buf = appendPath(buf, v.Path)
		buf = append(buf, v.Child[:]...)
		return buf, nil
	case BranchNode:
		buf := []byte{tagBranch}
		for _, c := range v.Children {
			if c == nil {
				buf = append(buf, 0)
			} else {
				buf = append(buf, 1)
				buf = append(buf, c[:]...)
			}
		}
		if v.Value == nil {
			buf = append(buf, 0)
		} else {
			buf = append(buf, 1)
			buf = appendBytes(buf, *v.Value)
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidNodeType, n)
	}
}

func appendPath(buf []byte, p CompactPath) []byte {
	if p.IsLeaf {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	var lenB [4]byte
	binary.BigEndian.PutUint32(lenB[:], uint32(len(p.Nibbles)))
	buf = append(buf, lenB[:]...)
	return append(buf, p.Nibbles...)
}

func appendBytes(buf []byte, b []byte) []byte {
	var lenB [4]byte
	binary.BigEndian.PutUint32(lenB[:], uint32(len(b)))
	buf = append(buf, lenB[:]...)
	return append(buf, b...)
}

// Decode is the inverse of Encode; it fails ErrSerialization on any input
// that is not a valid canonical encoding.
func Decode(data []byte) (NodeType, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrSerialization)
	}
	r := &reader{buf: data[1:]}
	switch data[0] {
	case tagEmpty:
		return EmptyNode{}, nil
	case tagLeaf:
		path, err := r.path()
		if err != nil {
			return nil, err
		}
		val, err := r.bytes()
		if err != nil {
			return nil, err
		}
		return LeafNode{Path: path, Value: val}, nil
	case tagExtension:
		path, err := r.path()
		if err != nil {
			return nil, err
		}
		child, err := r.id()
		if err != nil {
			return nil, err
		}
		return ExtensionNode{Path: path, Child: child}, nil
	case tagBranch:
		var bn BranchNode
		for i := 0; i < 16; i++ {
			present, err := r.byte()
			if err != nil {
				return nil, err
			}
			if present == 1 {
				id, err := r.id()
				if err != nil {
					return nil, err
				}
				idCopy := id
				bn.Children[i] = &idCopy
			} else if present != 0 {
				return nil, fmt.Errorf("%w: bad branch presence flag", ErrSerialization)
			}
		}
		present, err := r.byte()
		if err != nil {
			return nil, err
		}
		if present == 1 {
			v, err := r.bytes()
			if err != nil {
				return nil, err
			}
			val := Value(v)
			bn.Value = &val
		}
		return bn, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrSerialization, data[0])
	}
}

type reader struct {
	buf []byte
}

func (r *reader) byte() (byte, error) {
	if len(r.buf) < 1 {
		return 0, fmt.Errorf("%w: truncated", ErrSerialization)
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b, nil
}

func (r *reader) bytes() ([]byte, error) {
	if len(r.buf) < 4 {
		return nil, fmt.Errorf("%w: truncated length", ErrSerialization)
	}
	n := binary.BigEndian.Uint32(r.buf[:4])
	r.buf = r.buf[4:]
	if uint32(len(r.buf)) < n {
		return nil, fmt.Errorf("%w: truncated payload", ErrSerialization)
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out, nil
}

func (r *reader) path() (CompactPath, error) {
	flag, err := r.byte()
	if err != nil {
		return CompactPath{}, err
	}
	nibbles, err := r.bytes()
	if err != nil {
		return CompactPath{}, err
	}
	return CompactPath{Nibbles: nibbles, IsLeaf: flag == 1}, nil
}

func (r *reader) id() (NodeID, error) {
	if len(r.buf) < 32 {
		return NodeID{}, fmt.Errorf("%w: truncated node id", ErrSerialization)
	}
	var id NodeID
	copy(id[:], r.buf[:32])
	r.buf = r.buf[32:]
	return id, nil
}

// IDOf computes NodeId = keccak256(canonical_encode(n)).
func IDOf(n NodeType) (NodeID, error) {
	enc, err := Encode(n)
	if err != nil {
		return NodeID{}, err
	}
	return crypto.Keccak256(enc), nil
}
