package format

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// SectionKind describes how a section payload is laid out.
type SectionKind uint8

const (
	// SectionRecords is a table of fixed-width records, readable in place.
	SectionRecords SectionKind = 1
	// SectionPaged is a blob array stored as pages (see EncodePages).
	SectionPaged SectionKind = 2
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// SectionEntry locates one named section inside the container.
type SectionEntry struct {
	Name       string
	Kind       SectionKind
	Offset     uint64
	Length     uint64
	RecordSize uint32 // record width, or block size for paged sections
	Count      uint64 // records, or blocks for paged sections
}

// EncodeDirectory serialises the section directory, followed by a CRC-32C.
func EncodeDirectory(entries []SectionEntry) []byte {
	var out []byte
	for _, e := range entries {
		out = binary.LittleEndian.AppendUint16(out, uint16(len(e.Name)))
		out = append(out, e.Name...)
		out = append(out, byte(e.Kind))
		out = binary.LittleEndian.AppendUint64(out, e.Offset)
		out = binary.LittleEndian.AppendUint64(out, e.Length)
		out = binary.LittleEndian.AppendUint32(out, e.RecordSize)
		out = binary.LittleEndian.AppendUint64(out, e.Count)
	}
	return binary.LittleEndian.AppendUint32(out, crc32.Checksum(out, castagnoli))
}

// DecodeDirectory parses n entries from src and verifies the trailing checksum.
func DecodeDirectory(src []byte, n int) ([]SectionEntry, error) {
	if len(src) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptDirectory, len(src))
	}
	body, sum := src[:len(src)-4], binary.LittleEndian.Uint32(src[len(src)-4:])
	if crc32.Checksum(body, castagnoli) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptDirectory)
	}
	entries := make([]SectionEntry, 0, n)
	p := body
	for i := 0; i < n; i++ {
		if len(p) < 2 {
			return nil, fmt.Errorf("%w: entry %d truncated", ErrCorruptDirectory, i)
		}
		nameLen := int(binary.LittleEndian.Uint16(p))
		p = p[2:]
		if len(p) < nameLen+1+8+8+4+8 {
			return nil, fmt.Errorf("%w: entry %d truncated", ErrCorruptDirectory, i)
		}
		e := SectionEntry{Name: string(p[:nameLen])}
		p = p[nameLen:]
		e.Kind = SectionKind(p[0])
		e.Offset = binary.LittleEndian.Uint64(p[1:])
		e.Length = binary.LittleEndian.Uint64(p[9:])
		e.RecordSize = binary.LittleEndian.Uint32(p[17:])
		e.Count = binary.LittleEndian.Uint64(p[21:])
		p = p[29:]
		entries = append(entries, e)
	}
	if len(p) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptDirectory, len(p))
	}
	return entries, nil
}
