package colstore

import (
	"encoding/binary"
	"math"
)

// Record layouts are little-endian and packed.

// BlobRecord locates one stored value: Size bytes starting at block Start.
type BlobRecord struct {
	ID    uint64
	Start uint64
	Size  uint32
}

type blobCodec struct{}

func (blobCodec) size() int { return 20 }

func (blobCodec) put(dst []byte, r BlobRecord) {
	binary.LittleEndian.PutUint64(dst[0:], r.ID)
	binary.LittleEndian.PutUint64(dst[8:], r.Start)
	binary.LittleEndian.PutUint32(dst[16:], r.Size)
}

func (blobCodec) get(src []byte) BlobRecord {
	return BlobRecord{
		ID:    binary.LittleEndian.Uint64(src[0:]),
		Start: binary.LittleEndian.Uint64(src[8:]),
		Size:  binary.LittleEndian.Uint32(src[16:]),
	}
}

// SpectrumRecord locates one spectrum in the shared m/z and intensity blobs.
// Start and Size count float64 values.
type SpectrumRecord struct {
	PMIndex uint32
	RT      float32
	MSLevel uint8
	Start   uint64
	Size    uint32
}

type spectrumCodec struct{}

func (spectrumCodec) size() int { return 21 }

func (spectrumCodec) put(dst []byte, r SpectrumRecord) {
	binary.LittleEndian.PutUint32(dst[0:], r.PMIndex)
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(r.RT))
	dst[8] = r.MSLevel
	binary.LittleEndian.PutUint64(dst[9:], r.Start)
	binary.LittleEndian.PutUint32(dst[17:], r.Size)
}

func (spectrumCodec) get(src []byte) SpectrumRecord {
	return SpectrumRecord{
		PMIndex: binary.LittleEndian.Uint32(src[0:]),
		RT:      math.Float32frombits(binary.LittleEndian.Uint32(src[4:])),
		MSLevel: src[8],
		Start:   binary.LittleEndian.Uint64(src[9:]),
		Size:    binary.LittleEndian.Uint32(src[17:]),
	}
}

// PeakMapRecord describes one stored peak map: NumSpectra spectrum rows starting at
// FirstSpectrum.
type PeakMapRecord struct {
	Hash          ContentHash
	Index         uint32
	FirstSpectrum uint64
	NumSpectra    uint32
}

type peakMapCodec struct{}

func (peakMapCodec) size() int { return 48 }

func (peakMapCodec) put(dst []byte, r PeakMapRecord) {
	copy(dst[0:32], r.Hash[:])
	binary.LittleEndian.PutUint32(dst[32:], r.Index)
	binary.LittleEndian.PutUint64(dst[36:], r.FirstSpectrum)
	binary.LittleEndian.PutUint32(dst[44:], r.NumSpectra)
}

func (peakMapCodec) get(src []byte) PeakMapRecord {
	var r PeakMapRecord
	copy(r.Hash[:], src[0:32])
	r.Index = binary.LittleEndian.Uint32(src[32:])
	r.FirstSpectrum = binary.LittleEndian.Uint64(src[36:])
	r.NumSpectra = binary.LittleEndian.Uint32(src[44:])
	return r
}

// MissingRecord marks an absent cell of a primitive column.
type MissingRecord struct {
	Row uint64
	Col uint64
}

type missingCodec struct{}

func (missingCodec) size() int { return 16 }

func (missingCodec) put(dst []byte, r MissingRecord) {
	binary.LittleEndian.PutUint64(dst[0:], r.Row)
	binary.LittleEndian.PutUint64(dst[8:], r.Col)
}

func (missingCodec) get(src []byte) MissingRecord {
	return MissingRecord{
		Row: binary.LittleEndian.Uint64(src[0:]),
		Col: binary.LittleEndian.Uint64(src[8:]),
	}
}

// hashEntry maps a content hash to a peak-map index; peakmaps_by_hash is sorted by Hash.
type hashEntry struct {
	Hash  ContentHash
	Index uint32
}

type hashEntryCodec struct{}

func (hashEntryCodec) size() int { return 36 }

func (hashEntryCodec) put(dst []byte, r hashEntry) {
	copy(dst[0:32], r.Hash[:])
	binary.LittleEndian.PutUint32(dst[32:], r.Index)
}

func (hashEntryCodec) get(src []byte) hashEntry {
	var r hashEntry
	copy(r.Hash[:], src[0:32])
	r.Index = binary.LittleEndian.Uint32(src[32:])
	return r
}

type uint64Codec struct{}

func (uint64Codec) size() int { return 8 }

func (uint64Codec) put(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }

func (uint64Codec) get(src []byte) uint64 { return binary.LittleEndian.Uint64(src) }
