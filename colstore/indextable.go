package colstore

import (
	"fmt"
	"iter"

	"github.com/ic-timon/peakstore/colstore/format"
)

// recordCodec encodes one fixed-width index record.
type recordCodec[R any] interface {
	size() int
	put(dst []byte, r R)
	get(src []byte) R
}

// IndexTable is an ordered sequence of fixed-width records addressed by position.
type IndexTable[R any] struct {
	name  string
	codec recordCodec[R]
	n     uint64

	rows []R    // write mode
	data []byte // read mode, view of the mmap'd section
}

func newIndexTable[R any](name string, codec recordCodec[R]) *IndexTable[R] {
	return &IndexTable[R]{name: name, codec: codec}
}

func openIndexTable[R any](name string, codec recordCodec[R], e format.SectionEntry, data []byte) (*IndexTable[R], error) {
	if e.Kind != format.SectionRecords {
		return nil, fmt.Errorf("section %q: kind %d is not a record section", name, e.Kind)
	}
	if int(e.RecordSize) != codec.size() {
		return nil, fmt.Errorf("section %q: record size %d, want %d", name, e.RecordSize, codec.size())
	}
	if uint64(len(data)) != e.Count*uint64(codec.size()) {
		return nil, fmt.Errorf("section %q: %d bytes for %d records of %d bytes", name, len(data), e.Count, codec.size())
	}
	if data == nil {
		data = []byte{}
	}
	return &IndexTable[R]{name: name, codec: codec, n: e.Count, data: data}, nil
}

// Len returns the number of records.
func (t *IndexTable[R]) Len() uint64 { return t.n }

// ReadOnly reports whether the table was opened from a container file.
func (t *IndexTable[R]) ReadOnly() bool { return t.data != nil }

// Append adds r and returns its position.
func (t *IndexTable[R]) Append(r R) (uint64, error) {
	if t.ReadOnly() {
		return 0, fmt.Errorf("%w: append to %s", ErrReadOnly, t.name)
	}
	t.rows = append(t.rows, r)
	t.n++
	return t.n - 1, nil
}

// Get returns the record at pos.
func (t *IndexTable[R]) Get(pos uint64) (R, error) {
	if pos >= t.n {
		var zero R
		return zero, fmt.Errorf("%w: %s position %d, have %d records", ErrUnknownID, t.name, pos, t.n)
	}
	if !t.ReadOnly() {
		return t.rows[pos], nil
	}
	sz := uint64(t.codec.size())
	return t.codec.get(t.data[pos*sz : (pos+1)*sz]), nil
}

// All iterates records in position order.
func (t *IndexTable[R]) All() iter.Seq2[uint64, R] {
	return func(yield func(uint64, R) bool) {
		for i := uint64(0); i < t.n; i++ {
			r, err := t.Get(i)
			if err != nil || !yield(i, r) {
				return
			}
		}
	}
}

// search returns the smallest position in [lo, hi) for which less reports false,
// or hi if there is none. Records in the range must be ordered by less.
func (t *IndexTable[R]) search(lo, hi uint64, less func(R) bool) uint64 {
	for lo < hi {
		mid := lo + (hi-lo)/2
		r, err := t.Get(mid)
		if err != nil {
			return hi
		}
		if less(r) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (t *IndexTable[R]) section() (section, error) {
	if t.ReadOnly() {
		return section{}, fmt.Errorf("%w: encode %s", ErrReadOnly, t.name)
	}
	sz := t.codec.size()
	payload := make([]byte, len(t.rows)*sz)
	for i, r := range t.rows {
		t.codec.put(payload[i*sz:(i+1)*sz], r)
	}
	return section{
		name:       t.name,
		kind:       format.SectionRecords,
		recordSize: uint32(sz),
		count:      t.n,
		payload:    payload,
	}, nil
}
