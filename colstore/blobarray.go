package colstore

import (
	"encoding/binary"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ic-timon/peakstore/colstore/format"
)

// BlobArray is an append-only sequence of fixed-size blocks. Offsets are block numbers.
// Bytes at an offset never change once appended.
//
// A BlobArray built with NewBlobArray is writable and keeps its blocks in memory.
// One opened from a container section is read-only and decodes pages on demand.
type BlobArray struct {
	name      string
	blockSize int
	nblocks   uint64

	buf []byte // write mode

	pages *format.PagedSection    // read mode
	cache *lru.Cache[int, []byte] // decoded pages, read mode
	m     *Metrics
}

// NewBlobArray returns an empty writable blob array.
func NewBlobArray(name string, blockSize int, m *Metrics) *BlobArray {
	if blockSize <= 0 {
		blockSize = 1
	}
	return &BlobArray{name: name, blockSize: blockSize, m: m}
}

func openBlobArray(name string, e format.SectionEntry, data []byte, cacheSize int) (*BlobArray, error) {
	if e.Kind != format.SectionPaged {
		return nil, fmt.Errorf("section %q: kind %d is not paged", name, e.Kind)
	}
	pages, err := format.NewPagedSection(data)
	if err != nil {
		return nil, fmt.Errorf("section %q: %w", name, err)
	}
	if pages.BlockSize() != int(e.RecordSize) {
		return nil, fmt.Errorf("section %q: page block size %d, directory says %d", name, pages.BlockSize(), e.RecordSize)
	}
	cache, err := lru.New[int, []byte](max(cacheSize, 1))
	if err != nil {
		return nil, err
	}
	return &BlobArray{
		name:      name,
		blockSize: pages.BlockSize(),
		nblocks:   e.Count,
		pages:     pages,
		cache:     cache,
	}, nil
}

// Name returns the section name.
func (b *BlobArray) Name() string { return b.name }

// BlockSize returns the block size in bytes.
func (b *BlobArray) BlockSize() int { return b.blockSize }

// Len returns the number of blocks appended.
func (b *BlobArray) Len() uint64 { return b.nblocks }

// ReadOnly reports whether the array was opened from a container file.
func (b *BlobArray) ReadOnly() bool { return b.pages != nil }

// blocksFor returns the number of blocks needed for size bytes.
func (b *BlobArray) blocksFor(size int) uint64 {
	return uint64((size + b.blockSize - 1) / b.blockSize)
}

// Append writes p padded with zeros to a whole number of blocks and returns the
// offset of its first block. An empty p occupies no blocks.
func (b *BlobArray) Append(p []byte) (uint64, error) {
	if b.ReadOnly() {
		return 0, fmt.Errorf("%w: append to %s", ErrReadOnly, b.name)
	}
	offset := b.nblocks
	n := b.blocksFor(len(p))
	b.buf = append(b.buf, p...)
	if pad := int(n)*b.blockSize - len(p); pad > 0 {
		b.buf = append(b.buf, make([]byte, pad)...)
	}
	b.nblocks += n
	b.m.appended(b.name, int(n)*b.blockSize)
	return offset, nil
}

// Read returns a copy of nblocks blocks starting at offset.
func (b *BlobArray) Read(offset, nblocks uint64) ([]byte, error) {
	if offset > b.nblocks || nblocks > b.nblocks-offset {
		return nil, fmt.Errorf("%w: %s offset %d length %d exceeds %d blocks", ErrOutOfRangeRead, b.name, offset, nblocks, b.nblocks)
	}
	bs := uint64(b.blockSize)
	lo, hi := offset*bs, (offset+nblocks)*bs
	out := make([]byte, hi-lo)
	if !b.ReadOnly() {
		copy(out, b.buf[lo:hi])
		return out, nil
	}
	pageBytes := uint64(b.pages.PageBlocks()) * bs
	for pos := lo; pos < hi; {
		pi := int(pos / pageBytes)
		page, err := b.page(pi)
		if err != nil {
			return nil, err
		}
		start := pos - uint64(pi)*pageBytes
		if start >= uint64(len(page)) {
			return nil, fmt.Errorf("%w: %s page %d holds %d bytes, need offset %d", ErrOutOfRangeRead, b.name, pi, len(page), start)
		}
		n := copy(out[pos-lo:], page[start:])
		if n == 0 {
			return nil, fmt.Errorf("%w: %s page %d is short", ErrOutOfRangeRead, b.name, pi)
		}
		pos += uint64(n)
	}
	return out, nil
}

func (b *BlobArray) page(i int) ([]byte, error) {
	if p, ok := b.cache.Get(i); ok {
		b.m.cache(b.name, "page", true)
		return p, nil
	}
	b.m.cache(b.name, "page", false)
	p, err := b.pages.Page(i)
	if err != nil {
		return nil, fmt.Errorf("section %q: %w", b.name, err)
	}
	b.cache.Add(i, p)
	return p, nil
}

// AppendFloat64s appends xs as little-endian float64 values, one per block.
// The array must have 8-byte blocks.
func (b *BlobArray) AppendFloat64s(xs []float64) (uint64, error) {
	if b.blockSize != 8 {
		return 0, fmt.Errorf("%s: float64 values need 8-byte blocks, have %d", b.name, b.blockSize)
	}
	p := make([]byte, 0, 8*len(xs))
	for _, x := range xs {
		p = binary.LittleEndian.AppendUint64(p, math.Float64bits(x))
	}
	return b.Append(p)
}

// ReadFloat64s reads n float64 values starting at block offset.
func (b *BlobArray) ReadFloat64s(offset, n uint64) ([]float64, error) {
	if b.blockSize != 8 {
		return nil, fmt.Errorf("%s: float64 values need 8-byte blocks, have %d", b.name, b.blockSize)
	}
	raw, err := b.Read(offset, n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return out, nil
}

// section encodes the array as a paged section.
func (b *BlobArray) section(pageBlocks int, c format.Compression) (section, error) {
	if b.ReadOnly() {
		return section{}, fmt.Errorf("%w: encode %s", ErrReadOnly, b.name)
	}
	payload, err := format.EncodePages(b.buf, b.blockSize, pageBlocks, c)
	if err != nil {
		return section{}, fmt.Errorf("section %q: %w", b.name, err)
	}
	return section{
		name:       b.name,
		kind:       format.SectionPaged,
		recordSize: uint32(b.blockSize),
		count:      b.nblocks,
		payload:    payload,
	}, nil
}

// section is a serialized container section awaiting Finalize.
type section struct {
	name       string
	kind       format.SectionKind
	recordSize uint32
	count      uint64
	payload    []byte
}
