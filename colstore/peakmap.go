package colstore

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash"
	"math"
)

// Spectrum is one scan: parallel m/z and intensity arrays at a retention time.
type Spectrum struct {
	RT        float32
	MSLevel   uint8
	MZ        []float64
	Intensity []float64
}

// ContentHash identifies a peak map by the sha256 of its canonical encoding.
type ContentHash [32]byte

var hashEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// String returns the unpadded base32hex form of the hash.
func (h ContentHash) String() string {
	return hashEncoding.EncodeToString(h[:])
}

// PeakMapSource is what PeakMapStore consumes: an ordered list of spectra and
// a content hash over them.
type PeakMapSource interface {
	NumSpectra() int
	Spectrum(i int) (Spectrum, error)
	ContentHash() ContentHash
}

// PeakMap is an in-memory peak map.
type PeakMap struct {
	Spectra []Spectrum
}

var _ PeakMapSource = (*PeakMap)(nil)

// NumSpectra implements PeakMapSource.
func (pm *PeakMap) NumSpectra() int { return len(pm.Spectra) }

// Spectrum implements PeakMapSource.
func (pm *PeakMap) Spectrum(i int) (Spectrum, error) {
	if i < 0 || i >= len(pm.Spectra) {
		return Spectrum{}, fmt.Errorf("spectrum %d out of range [0,%d)", i, len(pm.Spectra))
	}
	return pm.Spectra[i], nil
}

// ContentHash implements PeakMapSource.
func (pm *PeakMap) ContentHash() ContentHash {
	h := newSpectrumHasher()
	for _, s := range pm.Spectra {
		h.add(s)
	}
	return h.sum()
}

// spectrumHasher feeds spectra into sha256 as: rt bits u32, ms level u8,
// peak count u64, m/z bits, intensity bits, all little-endian.
type spectrumHasher struct {
	d   hash.Hash
	buf []byte
}

func newSpectrumHasher() *spectrumHasher {
	return &spectrumHasher{d: sha256.New()}
}

func (h *spectrumHasher) add(s Spectrum) {
	h.buf = binary.LittleEndian.AppendUint32(h.buf[:0], math.Float32bits(s.RT))
	h.buf = append(h.buf, s.MSLevel)
	h.buf = binary.LittleEndian.AppendUint64(h.buf, uint64(len(s.MZ)))
	for _, x := range s.MZ {
		h.buf = binary.LittleEndian.AppendUint64(h.buf, math.Float64bits(x))
	}
	for _, x := range s.Intensity {
		h.buf = binary.LittleEndian.AppendUint64(h.buf, math.Float64bits(x))
	}
	h.d.Write(h.buf)
}

func (h *spectrumHasher) sum() ContentHash {
	var out ContentHash
	copy(out[:], h.d.Sum(nil))
	return out
}
