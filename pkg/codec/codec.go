// Package codec implements the deterministic binary encoding for Commit,
// Change, and CrdtValue (C2). Encoding is a pure function of the logical
// value: fixed field order, little-endian integers, length-prefixed
// byte/string fields, and map entries emitted in sorted-key order so that
// equal logical commits always produce equal bytes and therefore equal
// hashes.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"branchdb/pkg/hash"
	"branchdb/pkg/model"
)

// ErrCorrupt is returned when decoding fails due to truncation, an unknown
// tag, or a length that would overflow the remaining buffer.
var ErrCorrupt = errors.New("codec: corrupt or truncated data")

const (
	tagCounter  = 1
	tagRegister = 2

	tagInsert = 1
	tagUpdate = 2
	tagDelete = 3
)

// --- writer -----------------------------------------------------------

type writer struct {
	buf []byte
}

func (w *writer) byte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *writer) u32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *writer) u64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *writer) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) str(s string) {
	w.bytes([]byte(s))
}

func (w *writer) hash(h hash.Hash) {
	w.buf = append(w.buf, h[:]...)
}

// --- reader -------------------------------------------------------------

type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) byte() (byte, error) {
	if r.remaining() < 1 {
		return 0, ErrCorrupt
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, ErrCorrupt
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, ErrCorrupt
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *reader) bytes() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if n > uint32(r.remaining()) {
		return nil, ErrCorrupt
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}

func (r *reader) str() (string, error) {
	b, err := r.bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) hash() (hash.Hash, error) {
	if r.remaining() < hash.Size {
		return hash.Hash{}, ErrCorrupt
	}
	h, err := hash.FromBytes(r.buf[r.pos : r.pos+hash.Size])
	if err != nil {
		return hash.Hash{}, err
	}
	r.pos += hash.Size
	return h, nil
}

func (r *reader) finished() bool { return r.pos == len(r.buf) }

// --- CrdtValue -----------------------------------------------------------

// EncodeCrdtValue serializes a CrdtValue to its deterministic byte form.
func EncodeCrdtValue(v model.CrdtValue) ([]byte, error) {
	w := &writer{}
	switch v.Kind {
	case model.KindCounter:
		w.byte(tagCounter)
		w.u64(v.Counter)
	case model.KindRegister:
		w.byte(tagRegister)
		w.bytes(v.Register)
	default:
		return nil, fmt.Errorf("%w: unknown CrdtValue kind %d", ErrCorrupt, v.Kind)
	}
	return w.buf, nil
}

// DecodeCrdtValue deserializes a CrdtValue from its deterministic byte form.
func DecodeCrdtValue(data []byte) (model.CrdtValue, error) {
	r := &reader{buf: data}
	tag, err := r.byte()
	if err != nil {
		return model.CrdtValue{}, err
	}
	var v model.CrdtValue
	switch tag {
	case tagCounter:
		c, err := r.u64()
		if err != nil {
			return model.CrdtValue{}, err
		}
		v = model.NewCounter(c)
	case tagRegister:
		b, err := r.bytes()
		if err != nil {
			return model.CrdtValue{}, err
		}
		v = model.NewRegister(b)
	default:
		return model.CrdtValue{}, fmt.Errorf("%w: unknown CrdtValue tag %d", ErrCorrupt, tag)
	}
	if !r.finished() {
		return model.CrdtValue{}, fmt.Errorf("%w: trailing bytes after CrdtValue", ErrCorrupt)
	}
	return v, nil
}

// --- Change ---------------------------------------------------------------

// EncodeChange serializes a Change to its deterministic byte form.
func EncodeChange(c model.Change) ([]byte, error) {
	w := &writer{}
	switch c.Kind {
	case model.ChangeInsert:
		w.byte(tagInsert)
	case model.ChangeUpdate:
		w.byte(tagUpdate)
	case model.ChangeDelete:
		w.byte(tagDelete)
	default:
		return nil, fmt.Errorf("%w: unknown Change kind %d", ErrCorrupt, c.Kind)
	}
	w.str(c.Table)
	w.str(c.ID)
	if c.Kind != model.ChangeDelete {
		w.bytes(c.Value)
	}
	return w.buf, nil
}

// DecodeChange deserializes a Change from its deterministic byte form.
func DecodeChange(data []byte) (model.Change, error) {
	r := &reader{buf: data}
	tag, err := r.byte()
	if err != nil {
		return model.Change{}, err
	}
	table, err := r.str()
	if err != nil {
		return model.Change{}, err
	}
	id, err := r.str()
	if err != nil {
		return model.Change{}, err
	}
	var c model.Change
	switch tag {
	case tagInsert, tagUpdate:
		value, err := r.bytes()
		if err != nil {
			return model.Change{}, err
		}
		kind := model.ChangeInsert
		if tag == tagUpdate {
			kind = model.ChangeUpdate
		}
		c = model.Change{Kind: kind, Table: table, ID: id, Value: value}
	case tagDelete:
		c = model.NewDelete(table, id)
	default:
		return model.Change{}, fmt.Errorf("%w: unknown Change tag %d", ErrCorrupt, tag)
	}
	if table == "" || id == "" {
		return model.Change{}, fmt.Errorf("%w: change with empty table or id", ErrCorrupt)
	}
	if !r.finished() {
		return model.Change{}, fmt.Errorf("%w: trailing bytes after Change", ErrCorrupt)
	}
	return c, nil
}

// --- Commit -----------------------------------------------------------

// EncodeCommit serializes a Commit to its deterministic byte form. Tree
// entries are emitted in ascending key order regardless of map iteration
// order so that equal logical commits always encode to equal bytes.
func EncodeCommit(c model.Commit) ([]byte, error) {
	w := &writer{}

	w.u32(uint32(len(c.Parents)))
	for _, p := range c.Parents {
		w.hash(p)
	}

	w.str(c.Message)
	w.u64(uint64(c.Timestamp))

	w.u32(uint32(len(c.Changes)))
	for _, ch := range c.Changes {
		encoded, err := EncodeChange(ch)
		if err != nil {
			return nil, err
		}
		w.bytes(encoded)
	}

	tableNames := make([]string, 0, len(c.Tree))
	for name := range c.Tree {
		tableNames = append(tableNames, name)
	}
	sort.Strings(tableNames)

	w.u32(uint32(len(tableNames)))
	for _, name := range tableNames {
		w.str(name)
		w.hash(c.Tree[name])
	}

	return w.buf, nil
}

// DecodeCommit deserializes a Commit from its deterministic byte form.
func DecodeCommit(data []byte) (model.Commit, error) {
	r := &reader{buf: data}

	parentCount, err := r.u32()
	if err != nil {
		return model.Commit{}, err
	}
	if parentCount > 2 {
		return model.Commit{}, fmt.Errorf("%w: commit has %d parents, max 2", ErrCorrupt, parentCount)
	}
	parents := make([]hash.Hash, 0, parentCount)
	for i := uint32(0); i < parentCount; i++ {
		p, err := r.hash()
		if err != nil {
			return model.Commit{}, err
		}
		parents = append(parents, p)
	}

	message, err := r.str()
	if err != nil {
		return model.Commit{}, err
	}

	ts, err := r.u64()
	if err != nil {
		return model.Commit{}, err
	}

	changeCount, err := r.u32()
	if err != nil {
		return model.Commit{}, err
	}
	changes := make([]model.Change, 0, changeCount)
	for i := uint32(0); i < changeCount; i++ {
		raw, err := r.bytes()
		if err != nil {
			return model.Commit{}, err
		}
		ch, err := DecodeChange(raw)
		if err != nil {
			return model.Commit{}, err
		}
		changes = append(changes, ch)
	}

	treeCount, err := r.u32()
	if err != nil {
		return model.Commit{}, err
	}
	tree := make(map[string]hash.Hash, treeCount)
	for i := uint32(0); i < treeCount; i++ {
		name, err := r.str()
		if err != nil {
			return model.Commit{}, err
		}
		h, err := r.hash()
		if err != nil {
			return model.Commit{}, err
		}
		tree[name] = h
	}

	if !r.finished() {
		return model.Commit{}, fmt.Errorf("%w: trailing bytes after Commit", ErrCorrupt)
	}

	return model.Commit{
		Parents:   parents,
		Message:   message,
		Timestamp: int64(ts),
		Changes:   changes,
		Tree:      tree,
	}, nil
}
