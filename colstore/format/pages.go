package format

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Compression selects how pages of a paged section are stored.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
)

// ParseCompression maps a config name ("none", "zstd") to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "zstd":
		return CompressionZstd, nil
	case "none":
		return CompressionNone, nil
	}
	return 0, fmt.Errorf("unknown compression %q", s)
}

func (c Compression) String() string {
	if c == CompressionZstd {
		return "zstd"
	}
	return "none"
}

// Compression level for pooled encoders. Level 3 keeps page encoding cheap.
const compressionLevel = 3

var encoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			panic("failed to create zstd encoder: " + err.Error())
		}
		return encoder
	},
}

var decoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic("failed to create zstd decoder: " + err.Error())
		}
		return decoder
	},
}

func compressZstd(data []byte) []byte {
	encoder := encoderPool.Get().(*zstd.Encoder)
	defer encoderPool.Put(encoder)
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
}

func decompressZstd(data []byte, rawLen int) ([]byte, error) {
	decoder := decoderPool.Get().(*zstd.Decoder)
	defer decoderPool.Put(decoder)
	return decoder.DecodeAll(data, make([]byte, 0, rawLen))
}

// Paged section layout:
//
//	pagesHeaderSize bytes: numPages u32, pageBlocks u32, blockSize u32, compression u8, pad[3]
//	numPages × pageEntrySize: offset u64 (from start of page data), stored u32, raw u32
//	page data
const (
	pagesHeaderSize = 16
	pageEntrySize   = 16
)

// EncodePages splits raw (a whole number of blockSize blocks) into pages of
// pageBlocks blocks and encodes each with c.
func EncodePages(raw []byte, blockSize, pageBlocks int, c Compression) ([]byte, error) {
	if blockSize <= 0 || pageBlocks <= 0 {
		return nil, fmt.Errorf("invalid page geometry: block size %d, page blocks %d", blockSize, pageBlocks)
	}
	if len(raw)%blockSize != 0 {
		return nil, fmt.Errorf("raw length %d is not a multiple of block size %d", len(raw), blockSize)
	}
	pageBytes := blockSize * pageBlocks
	numPages := (len(raw) + pageBytes - 1) / pageBytes

	head := make([]byte, pagesHeaderSize, pagesHeaderSize+numPages*pageEntrySize)
	binary.LittleEndian.PutUint32(head[0:], uint32(numPages))
	binary.LittleEndian.PutUint32(head[4:], uint32(pageBlocks))
	binary.LittleEndian.PutUint32(head[8:], uint32(blockSize))
	head[12] = byte(c)

	var data []byte
	for i := 0; i < numPages; i++ {
		page := raw[i*pageBytes : min((i+1)*pageBytes, len(raw))]
		stored := page
		if c == CompressionZstd {
			stored = compressZstd(page)
		}
		head = binary.LittleEndian.AppendUint64(head, uint64(len(data)))
		head = binary.LittleEndian.AppendUint32(head, uint32(len(stored)))
		head = binary.LittleEndian.AppendUint32(head, uint32(len(page)))
		data = append(data, stored...)
	}
	return append(head, data...), nil
}

type pageEntry struct {
	offset uint64
	stored uint32
	raw    uint32
}

// PagedSection gives page-level access to a section written by EncodePages.
// The section bytes are typically an mmap view and must outlive the PagedSection.
type PagedSection struct {
	data        []byte
	pages       []pageEntry
	pageBlocks  int
	blockSize   int
	compression Compression
}

// NewPagedSection parses the page table of src.
func NewPagedSection(src []byte) (*PagedSection, error) {
	if len(src) < pagesHeaderSize {
		return nil, fmt.Errorf("paged section too short: %d bytes", len(src))
	}
	n := int(binary.LittleEndian.Uint32(src[0:]))
	s := &PagedSection{
		pageBlocks:  int(binary.LittleEndian.Uint32(src[4:])),
		blockSize:   int(binary.LittleEndian.Uint32(src[8:])),
		compression: Compression(src[12]),
	}
	tableEnd := pagesHeaderSize + n*pageEntrySize
	if len(src) < tableEnd {
		return nil, fmt.Errorf("paged section truncated: page table needs %d bytes, have %d", tableEnd, len(src))
	}
	s.pages = make([]pageEntry, n)
	for i := range s.pages {
		p := src[pagesHeaderSize+i*pageEntrySize:]
		s.pages[i] = pageEntry{
			offset: binary.LittleEndian.Uint64(p),
			stored: binary.LittleEndian.Uint32(p[8:]),
			raw:    binary.LittleEndian.Uint32(p[12:]),
		}
	}
	s.data = src[tableEnd:]
	for i, p := range s.pages {
		if p.offset+uint64(p.stored) > uint64(len(s.data)) {
			return nil, fmt.Errorf("paged section truncated at page %d", i)
		}
	}
	return s, nil
}

// NumPages returns the number of pages.
func (s *PagedSection) NumPages() int { return len(s.pages) }

// PageBlocks returns the number of blocks per full page.
func (s *PagedSection) PageBlocks() int { return s.pageBlocks }

// BlockSize returns the block size in bytes.
func (s *PagedSection) BlockSize() int { return s.blockSize }

// Compression returns the page encoding.
func (s *PagedSection) Compression() Compression { return s.compression }

// Page returns the decoded bytes of page i. Uncompressed pages are returned as a
// view of the underlying section; callers must not modify them.
func (s *PagedSection) Page(i int) ([]byte, error) {
	if i < 0 || i >= len(s.pages) {
		return nil, fmt.Errorf("page %d out of range [0,%d)", i, len(s.pages))
	}
	p := s.pages[i]
	stored := s.data[p.offset : p.offset+uint64(p.stored)]
	if s.compression == CompressionNone {
		return stored, nil
	}
	out, err := decompressZstd(stored, int(p.raw))
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", i, err)
	}
	if len(out) != int(p.raw) {
		return nil, fmt.Errorf("page %d: decoded %d bytes, want %d", i, len(out), p.raw)
	}
	return out, nil
}
