package merkletree

import (
	"bytes"
	"errors"

	"github.com/veilwallet/core/pkg/common"
	"github.com/veilwallet/core/pkg/types"
)

// ErrMalformedEncoding is returned by UnmarshalBinary when the byte
// stream does not match the format MarshalBinary produces.
var ErrMalformedEncoding = errors.New("merkletree: malformed tree encoding")

// MarshalBinary serializes the tree to an opaque byte form: the
// persistence layer (spec C6) treats this as a black box, hex-encoding
// it at the text boundary without interpreting it.
func (t *Tree) MarshalBinary() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var buf bytes.Buffer
	writeUint64(&buf, t.size)
	buf.Write(t.root[:])

	writeUint64(&buf, uint64(len(t.nodes)))
	for k, h := range t.nodes {
		buf.WriteByte(k.level)
		writeUint64(&buf, k.index)
		buf.Write(h[:])
	}

	writeUint64(&buf, uint64(len(t.positions)))
	for c, pos := range t.positions {
		buf.Write(c[:])
		writeUint64(&buf, pos)
	}

	writeUint64(&buf, uint64(len(t.witnessed)))
	for pos := range t.witnessed {
		writeUint64(&buf, pos)
	}

	writeUint64(&buf, uint64(len(t.checkpoints)))
	for _, pos := range t.checkpoints {
		writeUint64(&buf, pos)
	}

	if t.appendedSincePos != nil {
		buf.WriteByte(1)
		writeUint64(&buf, *t.appendedSincePos)
	} else {
		buf.WriteByte(0)
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary rebuilds a tree from the form MarshalBinary produces.
// The empty-subtree hash table is recomputed rather than stored, since
// it is a pure function of Depth.
func (t *Tree) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)

	size, err := readUint64(r)
	if err != nil {
		return ErrMalformedEncoding
	}
	var root types.Hash
	if _, err := readFull(r, root[:]); err != nil {
		return ErrMalformedEncoding
	}

	nodeCount, err := readUint64(r)
	if err != nil {
		return ErrMalformedEncoding
	}
	nodes := make(map[nodeKey]types.Hash, nodeCount)
	for i := uint64(0); i < nodeCount; i++ {
		level, err := r.ReadByte()
		if err != nil {
			return ErrMalformedEncoding
		}
		index, err := readUint64(r)
		if err != nil {
			return ErrMalformedEncoding
		}
		var h types.Hash
		if _, err := readFull(r, h[:]); err != nil {
			return ErrMalformedEncoding
		}
		nodes[nodeKey{level: level, index: index}] = h
	}

	posCount, err := readUint64(r)
	if err != nil {
		return ErrMalformedEncoding
	}
	positions := make(map[types.Commitment]uint64, posCount)
	for i := uint64(0); i < posCount; i++ {
		var c types.Commitment
		if _, err := readFull(r, c[:]); err != nil {
			return ErrMalformedEncoding
		}
		pos, err := readUint64(r)
		if err != nil {
			return ErrMalformedEncoding
		}
		positions[c] = pos
	}

	witCount, err := readUint64(r)
	if err != nil {
		return ErrMalformedEncoding
	}
	witnessed := make(map[uint64]struct{}, witCount)
	for i := uint64(0); i < witCount; i++ {
		pos, err := readUint64(r)
		if err != nil {
			return ErrMalformedEncoding
		}
		witnessed[pos] = struct{}{}
	}

	cpCount, err := readUint64(r)
	if err != nil {
		return ErrMalformedEncoding
	}
	checkpoints := make([]uint64, 0, cpCount)
	for i := uint64(0); i < cpCount; i++ {
		pos, err := readUint64(r)
		if err != nil {
			return ErrMalformedEncoding
		}
		checkpoints = append(checkpoints, pos)
	}

	hasAppended, err := r.ReadByte()
	if err != nil {
		return ErrMalformedEncoding
	}
	var appendedSincePos *uint64
	if hasAppended == 1 {
		pos, err := readUint64(r)
		if err != nil {
			return ErrMalformedEncoding
		}
		appendedSincePos = &pos
	}

	if r.Len() != 0 {
		return ErrMalformedEncoding
	}

	fresh := New()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.size = size
	t.root = root
	t.nodes = nodes
	t.positions = positions
	t.witnessed = witnessed
	t.checkpoints = checkpoints
	t.appendedSincePos = appendedSincePos
	t.emptyHash = fresh.emptyHash
	return nil
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	buf.Write(common.Uint64ToBytes(v))
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return common.BytesToUint64(b[:]), nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	n, err := r.Read(b)
	if err != nil {
		return n, err
	}
	if n != len(b) {
		return n, ErrMalformedEncoding
	}
	return n, nil
}
