package mpt

import "github.com/synerthink/dotlanth/pkg/crypto"

// ProofElement is one (node_id, node_data) pair visited on the path from
// root to a key's resolution.
type ProofElement struct {
	NodeID   NodeID
	NodeData []byte
}

// Proof is a verifiable path proving a key's presence (Value != nil) or
// absence (Value == nil) against a root hash.
type Proof struct {
	Key      []byte
	Value    Value // nil for an absence proof
	Elements []ProofElement
	RootHash NodeID
}

// GetProof builds a proof for key, recording every node visited along the
// walk from the root. Grounded on the original's proof.rs generation
// routine.
func (t *Trie) GetProof(key []byte) (*Proof, error) {
	if !t.hasRoot {
		return &Proof{Key: key}, nil
	}
	p := &Proof{Key: key, RootHash: t.root}
	val, err := t.collectProof(t.root, KeyToNibbles(key), p)
	if err != nil {
		return nil, err
	}
	p.Value = val
	return p, nil
}

func (t *Trie) collectProof(id NodeID, nibbles []byte, p *Proof) (Value, error) {
	n, err := t.getNode(id)
	if err != nil {
		return nil, err
	}
	enc, err := Encode(n)
	if err != nil {
		return nil, err
	}
	p.Elements = append(p.Elements, ProofElement{NodeID: id, NodeData: enc})

	switch v := n.(type) {
	case EmptyNode:
		return nil, nil
	case LeafNode:
		if nibbleEqual(v.Path.Nibbles, nibbles) {
			return v.Value, nil
		}
		return nil, nil
	case ExtensionNode:
		cp := commonPrefixLen(v.Path.Nibbles, nibbles)
		if cp != len(v.Path.Nibbles) {
			return nil, nil
		}
		return t.collectProof(v.Child, nibbles[cp:], p)
	case BranchNode:
		if len(nibbles) == 0 {
			if v.Value == nil {
				return nil, nil
			}
			return *v.Value, nil
		}
		child := v.Children[nibbles[0]]
		if child == nil {
			return nil, nil
		}
		return t.collectProof(*child, nibbles[1:], p)
	default:
		return nil, ErrInvalidNodeType
	}
}

// VerifyProof verifies a proof against an independently supplied root hash
// (the proof's own RootHash field is not trusted; callers pass the hash
// they actually expect). Implements the five-step walk from spec.md §4.6.
func VerifyProof(p *Proof, root NodeID, hasRoot bool) bool {
	if !hasRoot {
		return len(p.Elements) == 0 && p.Value == nil
	}
	if len(p.Elements) == 0 {
		return false
	}

	currentHash := root
	nibbles := KeyToNibbles(p.Key)

	for i, el := range p.Elements {
		if el.NodeID != currentHash {
			return false
		}
		if crypto.Keccak256(el.NodeData) != el.NodeID {
			return false
		}
		n, err := Decode(el.NodeData)
		if err != nil {
			return false
		}

		switch v := n.(type) {
		case EmptyNode:
			return i == len(p.Elements)-1 && p.Value == nil

		case LeafNode:
			last := i == len(p.Elements)-1
			if !last {
				return false
			}
			if !nibbleEqual(v.Path.Nibbles, nibbles) {
				return p.Value == nil
			}
			return valueEqual(v.Value, p.Value)

		case ExtensionNode:
			cp := commonPrefixLen(v.Path.Nibbles, nibbles)
			if cp != len(v.Path.Nibbles) {
				return i == len(p.Elements)-1 && p.Value == nil
			}
			currentHash = v.Child
			nibbles = nibbles[cp:]

		case BranchNode:
			if len(nibbles) == 0 {
				if i != len(p.Elements)-1 {
					return false
				}
				if v.Value == nil {
					return p.Value == nil
				}
				return valueEqual(*v.Value, p.Value)
			}
			child := v.Children[nibbles[0]]
			if child == nil {
				return i == len(p.Elements)-1 && p.Value == nil
			}
			currentHash = *child
			nibbles = nibbles[1:]

		default:
			return false
		}
	}
	return false
}

func valueEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
