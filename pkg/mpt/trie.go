package mpt

// Trie is a Merkle Patricia Trie over an arbitrary-byte-key, arbitrary-byte-
// value namespace. Mutations go through a single writer path (the owning
// caller is responsible for serializing concurrent Put/Delete calls, per
// the shared-resource policy: "mutations go through a single writer path;
// readers can observe any completed root hash").
type Trie struct {
	store   Store
	root    NodeID
	hasRoot bool
}

// New returns an empty trie backed by store.
func New(store Store) *Trie {
	return &Trie{store: store}
}

// RootHash returns the id of the root node, and false if the trie is empty.
// This resolves the source's Option<[u8;32]>-vs-zero-bytes ambiguity
// (spec.md §9) at the public boundary in favor of an explicit presence
// flag.
func (t *Trie) RootHash() (NodeID, bool) {
	return t.root, t.hasRoot
}

func (t *Trie) getNode(id NodeID) (NodeType, error) {
	n, ok, err := t.store.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return EmptyNode{}, nil
	}
	return n, nil
}

// Get returns the value stored at key, if any.
func (t *Trie) Get(key []byte) (Value, bool, error) {
	if !t.hasRoot {
		return nil, false, nil
	}
	return t.getRec(t.root, KeyToNibbles(key))
}

func (t *Trie) getRec(id NodeID, nibbles []byte) (Value, bool, error) {
	n, err := t.getNode(id)
	if err != nil {
		return nil, false, err
	}
	switch v := n.(type) {
	case EmptyNode:
		return nil, false, nil
	case LeafNode:
		if nibbleEqual(v.Path.Nibbles, nibbles) {
			return v.Value, true, nil
		}
		return nil, false, nil
	case ExtensionNode:
		cp := commonPrefixLen(v.Path.Nibbles, nibbles)
		if cp != len(v.Path.Nibbles) {
			return nil, false, nil
		}
		return t.getRec(v.Child, nibbles[cp:])
	case BranchNode:
		if len(nibbles) == 0 {
			if v.Value == nil {
				return nil, false, nil
			}
			return *v.Value, true, nil
		}
		child := v.Children[nibbles[0]]
		if child == nil {
			return nil, false, nil
		}
		return t.getRec(*child, nibbles[1:])
	default:
		return nil, false, nil
	}
}

func nibbleEqual(a, b []byte) bool {
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

// Put inserts or replaces the value at key.
func (t *Trie) Put(key []byte, value Value) error {
	nibbles := KeyToNibbles(key)
	if !t.hasRoot {
		id, err := t.store.Put(LeafNode{Path: CompactPath{Nibbles: nibbles, IsLeaf: true}, Value: value})
		if err != nil {
			return err
		}
		t.root, t.hasRoot = id, true
		return nil
	}
	newID, err := t.putRec(t.root, nibbles, value)
	if err != nil {
		return err
	}
	t.root = newID
	return nil
}

func (t *Trie) putLeaf(nibbles []byte, value Value) (NodeID, error) {
	return t.store.Put(LeafNode{Path: CompactPath{Nibbles: nibbles, IsLeaf: true}, Value: value})
}

func (t *Trie) putRec(id NodeID, nibbles []byte, value Value) (NodeID, error) {
	n, err := t.getNode(id)
	if err != nil {
		return NodeID{}, err
	}
	switch v := n.(type) {
	case EmptyNode:
		return t.putLeaf(nibbles, value)

	case LeafNode:
		if nibbleEqual(v.Path.Nibbles, nibbles) {
			return t.putLeaf(nibbles, value)
		}
		return t.splitLeaf(v, nibbles, value)

	case ExtensionNode:
		cp := commonPrefixLen(v.Path.Nibbles, nibbles)
		if cp == len(v.Path.Nibbles) {
			childID, err := t.putRec(v.Child, nibbles[cp:], value)
			if err != nil {
				return NodeID{}, err
			}
			return t.store.Put(ExtensionNode{Path: v.Path, Child: childID})
		}
		return t.splitExtension(v, cp, nibbles, value)

	case BranchNode:
		if len(nibbles) == 0 {
			vcopy := value
			v.Value = &vcopy
			return t.store.Put(v)
		}
		nxt := nibbles[0]
		var childID NodeID
		if v.Children[nxt] != nil {
			childID = *v.Children[nxt]
		}
		newChildID, err := t.putRec(childID, nibbles[1:], value)
		if err != nil {
			return NodeID{}, err
		}
		v.Children[nxt] = &newChildID
		return t.store.Put(v)

	default:
		return NodeID{}, ErrInvalidNodeType
	}
}

// splitLeaf handles inserting into a Leaf whose path diverges from the new
// key: build a Branch at the divergence point, attach both leaves, and
// wrap in an Extension if a nonempty common prefix remains.
func (t *Trie) splitLeaf(existing LeafNode, nibbles []byte, value Value) (NodeID, error) {
	cp := commonPrefixLen(existing.Path.Nibbles, nibbles)
	var branch BranchNode

	remA := existing.Path.Nibbles[cp:]
	remB := nibbles[cp:]

	if len(remA) == 0 {
		v := existing.Value
		branch.Value = &v
	} else {
		id, err := t.putLeaf(remA[1:], existing.Value)
		if err != nil {
			return NodeID{}, err
		}
		branch.Children[remA[0]] = &id
	}

	if len(remB) == 0 {
		v := value
		branch.Value = &v
	} else {
		id, err := t.putLeaf(remB[1:], value)
		if err != nil {
			return NodeID{}, err
		}
		branch.Children[remB[0]] = &id
	}

	branchID, err := t.store.Put(branch)
	if err != nil {
		return NodeID{}, err
	}
	if cp == 0 {
		return branchID, nil
	}
	return t.store.Put(ExtensionNode{Path: CompactPath{Nibbles: nibbles[:cp], IsLeaf: false}, Child: branchID})
}

// splitExtension handles inserting through an Extension whose path diverges
// from the remaining key at offset cp.
func (t *Trie) splitExtension(existing ExtensionNode, cp int, nibbles []byte, value Value) (NodeID, error) {
	var branch BranchNode

	remExt := existing.Path.Nibbles[cp:]
	remNew := nibbles[cp:]

	if len(remExt) == 1 {
		child := existing.Child
		branch.Children[remExt[0]] = &child
	} else {
		id, err := t.store.Put(ExtensionNode{Path: CompactPath{Nibbles: remExt[1:], IsLeaf: false}, Child: existing.Child})
		if err != nil {
			return NodeID{}, err
		}
		branch.Children[remExt[0]] = &id
	}

	if len(remNew) == 0 {
		v := value
		branch.Value = &v
	} else {
		id, err := t.putLeaf(remNew[1:], value)
		if err != nil {
			return NodeID{}, err
		}
		branch.Children[remNew[0]] = &id
	}

	branchID, err := t.store.Put(branch)
	if err != nil {
		return NodeID{}, err
	}
	if cp == 0 {
		return branchID, nil
	}
	return t.store.Put(ExtensionNode{Path: CompactPath{Nibbles: nibbles[:cp], IsLeaf: false}, Child: branchID})
}

// Delete removes key, reporting whether it was present. After deletion, a
// Branch with exactly one remaining child and no value collapses into a
// merged Extension or Leaf, per spec.md §4.6's normalization rule.
func (t *Trie) Delete(key []byte) (bool, error) {
	if !t.hasRoot {
		return false, nil
	}
	newID, existed, isEmpty, err := t.deleteRec(t.root, KeyToNibbles(key))
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	if isEmpty {
		t.hasRoot = false
		t.root = NodeID{}
		return true, nil
	}
	t.root = newID
	return true, nil
}

func (t *Trie) deleteRec(id NodeID, nibbles []byte) (newID NodeID, existed bool, isEmpty bool, err error) {
	n, err := t.getNode(id)
	if err != nil {
		return NodeID{}, false, false, err
	}
	switch v := n.(type) {
	case EmptyNode:
		return NodeID{}, false, true, nil

	case LeafNode:
		if !nibbleEqual(v.Path.Nibbles, nibbles) {
			return id, false, false, nil
		}
		return NodeID{}, true, true, nil

	case ExtensionNode:
		cp := commonPrefixLen(v.Path.Nibbles, nibbles)
		if cp != len(v.Path.Nibbles) {
			return id, false, false, nil
		}
		childID, existed, childEmpty, err := t.deleteRec(v.Child, nibbles[cp:])
		if err != nil {
			return NodeID{}, false, false, err
		}
		if !existed {
			return id, false, false, nil
		}
		if childEmpty {
			return NodeID{}, true, true, nil
		}
		merged, err := t.normalizeExtension(v.Path, childID)
		if err != nil {
			return NodeID{}, false, false, err
		}
		return merged, true, false, nil

	case BranchNode:
		if len(nibbles) == 0 {
			if v.Value == nil {
				return id, false, false, nil
			}
			v.Value = nil
			return t.normalizeAfterBranchEdit(v)
		}
		nxt := nibbles[0]
		if v.Children[nxt] == nil {
			return id, false, false, nil
		}
		childID, existed, childEmpty, err := t.deleteRec(*v.Children[nxt], nibbles[1:])
		if err != nil {
			return NodeID{}, false, false, err
		}
		if !existed {
			return id, false, false, nil
		}
		if childEmpty {
			v.Children[nxt] = nil
		} else {
			v.Children[nxt] = &childID
		}
		return t.normalizeAfterBranchEdit(v)

	default:
		return NodeID{}, false, false, ErrInvalidNodeType
	}
}

// normalizeAfterBranchEdit collapses a Branch with exactly one child and no
// value into a merged Extension or Leaf, and detects a fully-empty branch.
func (t *Trie) normalizeAfterBranchEdit(b BranchNode) (NodeID, bool, bool, error) {
	count := 0
	var onlyIdx int
	for i, c := range b.Children {
		if c != nil {
			count++
			onlyIdx = i
		}
	}
	if count == 0 && b.Value == nil {
		return NodeID{}, true, true, nil
	}
	if count == 1 && b.Value == nil {
		childID := *b.Children[onlyIdx]
		child, err := t.getNode(childID)
		if err != nil {
			return NodeID{}, false, false, err
		}
		merged, err := t.mergeSingleChild(byte(onlyIdx), child, childID)
		if err != nil {
			return NodeID{}, false, false, err
		}
		return merged, true, false, nil
	}
	id, err := t.store.Put(b)
	if err != nil {
		return NodeID{}, false, false, err
	}
	return id, true, false, nil
}

// mergeSingleChild folds the branch nibble that led to the sole remaining
// child into that child's own path, producing a single Leaf or Extension.
func (t *Trie) mergeSingleChild(nibble byte, child NodeType, childID NodeID) (NodeID, error) {
	switch c := child.(type) {
	case LeafNode:
		merged := append([]byte{nibble}, c.Path.Nibbles...)
		return t.store.Put(LeafNode{Path: CompactPath{Nibbles: merged, IsLeaf: true}, Value: c.Value})
	case ExtensionNode:
		merged := append([]byte{nibble}, c.Path.Nibbles...)
		return t.store.Put(ExtensionNode{Path: CompactPath{Nibbles: merged, IsLeaf: false}, Child: c.Child})
	case BranchNode:
		return t.store.Put(ExtensionNode{Path: CompactPath{Nibbles: []byte{nibble}, IsLeaf: false}, Child: childID})
	default:
		return NodeID{}, ErrInvalidNodeType
	}
}

// normalizeExtension merges an Extension whose child collapsed, folding the
// extension's own path into the child's if the child is itself a Leaf or
// Extension (keeping the trie's node count minimal).
func (t *Trie) normalizeExtension(path CompactPath, childID NodeID) (NodeID, error) {
	child, err := t.getNode(childID)
	if err != nil {
		return NodeID{}, err
	}
	switch c := child.(type) {
	case LeafNode:
		merged := append(append([]byte{}, path.Nibbles...), c.Path.Nibbles...)
		return t.store.Put(LeafNode{Path: CompactPath{Nibbles: merged, IsLeaf: true}, Value: c.Value})
	case ExtensionNode:
		merged := append(append([]byte{}, path.Nibbles...), c.Path.Nibbles...)
		return t.store.Put(ExtensionNode{Path: CompactPath{Nibbles: merged, IsLeaf: false}, Child: c.Child})
	default:
		return t.store.Put(ExtensionNode{Path: path, Child: childID})
	}
}
