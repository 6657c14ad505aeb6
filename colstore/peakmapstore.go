package colstore

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/ic-timon/peakstore/colstore/format"
)

const (
	mzSection             = "mz_blob"
	iiSection             = "ii_blob"
	spectraSection        = "spectra"
	spectraByRTSection    = "spectra_by_rt"
	peakMapsSection       = "peakmaps"
	peakMapsByHashSection = "peakmaps_by_hash"

	peakMapStoreName = "peakmap"
)

// PeakMapStore packs the spectra of many peak maps into two shared float64 blobs,
// one for m/z and one for intensity. Peak maps with equal content hashes are
// stored once.
type PeakMapStore struct {
	mz       *BlobArray
	ii       *BlobArray
	spectra  *IndexTable[SpectrumRecord]
	peakmaps *IndexTable[PeakMapRecord]

	// Built by Finalize, or loaded from the container.
	byRT   *IndexTable[uint64]
	byHash *IndexTable[hashEntry]

	hashes  map[ContentHash]uint32 // write mode
	proxies *lru.Cache[uint32, *PeakMapProxy]
	m       *Metrics
	log     *zap.SugaredLogger

	mu        sync.RWMutex
	finalized bool
}

var _ Store[PeakMapSource] = (*PeakMapStore)(nil)

func newPeakMapStore(cfg *Config, m *Metrics, log *zap.SugaredLogger) *PeakMapStore {
	proxies, _ := lru.New[uint32, *PeakMapProxy](max(cfg.PeakMapCacheSize, 1))
	return &PeakMapStore{
		mz:       NewBlobArray(mzSection, 8, m),
		ii:       NewBlobArray(iiSection, 8, m),
		spectra:  newIndexTable[SpectrumRecord](spectraSection, spectrumCodec{}),
		peakmaps: newIndexTable[PeakMapRecord](peakMapsSection, peakMapCodec{}),
		hashes:   make(map[ContentHash]uint32),
		proxies:  proxies,
		m:        m,
		log:      log,
	}
}

func openPeakMapStore(f *format.File, cfg *Config, m *Metrics, log *zap.SugaredLogger) (*PeakMapStore, error) {
	s := newPeakMapStore(cfg, m, log)
	s.hashes = nil
	s.finalized = true

	var err error
	for _, name := range []string{mzSection, iiSection} {
		e, data, ok := f.Section(name)
		if !ok {
			return nil, fmt.Errorf("%w: no section %s", ErrPartialWriteAbandoned, name)
		}
		b, err := openBlobArray(name, e, data, cfg.PageCacheSize)
		if err != nil {
			return nil, err
		}
		b.m = m
		if name == mzSection {
			s.mz = b
		} else {
			s.ii = b
		}
	}
	if s.spectra, err = openRecords(f, spectraSection, recordCodec[SpectrumRecord](spectrumCodec{})); err != nil {
		return nil, err
	}
	if s.byRT, err = openRecords(f, spectraByRTSection, recordCodec[uint64](uint64Codec{})); err != nil {
		return nil, err
	}
	if s.peakmaps, err = openRecords(f, peakMapsSection, recordCodec[PeakMapRecord](peakMapCodec{})); err != nil {
		return nil, err
	}
	if s.byHash, err = openRecords(f, peakMapsByHashSection, recordCodec[hashEntry](hashEntryCodec{})); err != nil {
		return nil, err
	}
	if s.byRT.Len() != s.spectra.Len() || s.byHash.Len() != s.peakmaps.Len() {
		return nil, fmt.Errorf("peak map store: secondary index sizes %d/%d do not match %d spectra, %d peak maps",
			s.byRT.Len(), s.byHash.Len(), s.spectra.Len(), s.peakmaps.Len())
	}
	return s, nil
}

func openRecords[R any](f *format.File, name string, codec recordCodec[R]) (*IndexTable[R], error) {
	e, data, ok := f.Section(name)
	if !ok {
		return nil, fmt.Errorf("%w: no section %s", ErrPartialWriteAbandoned, name)
	}
	return openIndexTable(name, codec, e, data)
}

// Write stores pm and returns its peak-map index. A peak map whose content hash
// was stored before returns the earlier index.
func (s *PeakMapStore) Write(pm PeakMapSource) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mz.ReadOnly() {
		return 0, fmt.Errorf("%w: write to %s store", ErrReadOnly, peakMapStoreName)
	}
	if s.finalized {
		return 0, fmt.Errorf("%w: write to %s store", ErrFinalized, peakMapStoreName)
	}
	if isNil(pm) {
		return 0, fmt.Errorf("%s store: nil peak map", peakMapStoreName)
	}
	s.m.write(peakMapStoreName)

	h := pm.ContentHash()
	if idx, ok := s.hashes[h]; ok {
		s.m.dedup(peakMapStoreName)
		return uint64(idx), nil
	}

	// Collect first so a bad spectrum leaves the store untouched.
	n := pm.NumSpectra()
	spectra := make([]Spectrum, n)
	for i := range spectra {
		sp, err := pm.Spectrum(i)
		if err != nil {
			return 0, fmt.Errorf("peak map %s: %w", h, err)
		}
		if len(sp.MZ) != len(sp.Intensity) {
			return 0, fmt.Errorf("peak map %s spectrum %d: %d m/z values, %d intensities", h, i, len(sp.MZ), len(sp.Intensity))
		}
		spectra[i] = sp
	}

	index := uint32(s.peakmaps.Len())
	first := s.spectra.Len()
	for _, sp := range spectra {
		start, err := s.mz.AppendFloat64s(sp.MZ)
		if err != nil {
			return 0, err
		}
		if _, err := s.ii.AppendFloat64s(sp.Intensity); err != nil {
			return 0, err
		}
		if _, err := s.spectra.Append(SpectrumRecord{
			PMIndex: index,
			RT:      sp.RT,
			MSLevel: sp.MSLevel,
			Start:   start,
			Size:    uint32(len(sp.MZ)),
		}); err != nil {
			return 0, err
		}
	}
	if _, err := s.peakmaps.Append(PeakMapRecord{
		Hash:          h,
		Index:         index,
		FirstSpectrum: first,
		NumSpectra:    uint32(n),
	}); err != nil {
		return 0, err
	}
	s.hashes[h] = index
	return uint64(index), nil
}

// Read returns a lazy proxy for peak map id.
func (s *PeakMapStore) Read(id uint64) (PeakMapSource, error) {
	p, err := s.Proxy(id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Proxy returns a lazy proxy for peak map id. No spectra are read until queried.
func (s *PeakMapStore) Proxy(id uint64) (*PeakMapProxy, error) {
	if id > uint64(^uint32(0)) {
		return nil, fmt.Errorf("%w: peak map %d", ErrUnknownID, id)
	}
	if p, ok := s.proxies.Get(uint32(id)); ok {
		s.m.cache(peakMapStoreName, "read", true)
		return p, nil
	}
	s.m.cache(peakMapStoreName, "read", false)

	s.mu.RLock()
	rec, err := s.peakmaps.Get(id)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	p := &PeakMapProxy{store: s, rec: rec}
	s.proxies.Add(uint32(id), p)
	return p, nil
}

// Lookup returns the index of the peak map with content hash h.
func (s *PeakMapStore) Lookup(h ContentHash) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.hashes != nil {
		idx, ok := s.hashes[h]
		return uint64(idx), ok
	}
	n := s.byHash.Len()
	pos := s.byHash.search(0, n, func(e hashEntry) bool {
		return bytes.Compare(e.Hash[:], h[:]) < 0
	})
	if pos == n {
		return 0, false
	}
	e, err := s.byHash.Get(pos)
	if err != nil || e.Hash != h {
		return 0, false
	}
	return uint64(e.Index), true
}

// Finalize seals the store and builds the rt and hash orderings.
func (s *PeakMapStore) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mz.ReadOnly() {
		return fmt.Errorf("%w: finalize %s store", ErrReadOnly, peakMapStoreName)
	}
	if s.finalized {
		return fmt.Errorf("%w: %s store", ErrFinalized, peakMapStoreName)
	}

	rows := make([]uint64, s.spectra.Len())
	for i := range rows {
		rows[i] = uint64(i)
	}
	slices.SortStableFunc(rows, func(a, b uint64) int {
		ra, rb := s.spectra.rows[a], s.spectra.rows[b]
		if ra.PMIndex != rb.PMIndex {
			return cmp.Compare(ra.PMIndex, rb.PMIndex)
		}
		return cmp.Compare(ra.RT, rb.RT)
	})
	s.byRT = newIndexTable[uint64](spectraByRTSection, uint64Codec{})
	for _, r := range rows {
		if _, err := s.byRT.Append(r); err != nil {
			return err
		}
	}

	entries := make([]hashEntry, 0, len(s.hashes))
	for h, idx := range s.hashes {
		entries = append(entries, hashEntry{Hash: h, Index: idx})
	}
	slices.SortFunc(entries, func(a, b hashEntry) int {
		return bytes.Compare(a.Hash[:], b.Hash[:])
	})
	s.byHash = newIndexTable[hashEntry](peakMapsByHashSection, hashEntryCodec{})
	for _, e := range entries {
		if _, err := s.byHash.Append(e); err != nil {
			return err
		}
	}

	s.finalized = true
	s.log.Debugw("finalized peak map store",
		"peakmaps", s.peakmaps.Len(), "spectra", s.spectra.Len(), "peaks", s.mz.Len())
	return nil
}

// Len returns the number of distinct peak maps stored.
func (s *PeakMapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.peakmaps.Len())
}

// NumSpectra returns the number of spectra across all peak maps.
func (s *PeakMapStore) NumSpectra() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spectra.Len()
}

// NumPeaks returns the number of (m/z, intensity) pairs across all spectra.
func (s *PeakMapStore) NumPeaks() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mz.Len()
}

// WriteValue implements ValueStore.
func (s *PeakMapStore) WriteValue(v any) (uint64, error) {
	pm, ok := v.(PeakMapSource)
	if !ok {
		return 0, fmt.Errorf("%w: %s store does not accept %T", ErrNoStoreForType, peakMapStoreName, v)
	}
	return s.Write(pm)
}

// ReadValue implements ValueStore. The value is a *PeakMapProxy.
func (s *PeakMapStore) ReadValue(id uint64) (any, error) {
	p, err := s.Proxy(id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PeakMapStore) sections(pageBlocks int, c format.Compression) ([]section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.finalized {
		return nil, fmt.Errorf("%s store: sections requested before finalize", peakMapStoreName)
	}
	var out []section
	for _, b := range []*BlobArray{s.mz, s.ii} {
		sec, err := b.section(pageBlocks, c)
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	for _, fn := range []func() (section, error){
		s.spectra.section, s.byRT.section, s.peakmaps.section, s.byHash.section,
	} {
		sec, err := fn()
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, nil
}

// spectrum returns the record of spectrum row.
func (s *PeakMapStore) spectrum(row uint64) (SpectrumRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spectra.Get(row)
}

// rtOrder returns the spectrum row at position pos of the rt ordering, or false
// before Finalize.
func (s *PeakMapStore) rtOrder(pos uint64) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.byRT == nil {
		return 0, false, nil
	}
	row, err := s.byRT.Get(pos)
	return row, true, err
}

// peaks reads the m/z and intensity arrays of rec.
func (s *PeakMapStore) peaks(rec SpectrumRecord) ([]float64, []float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := uint64(rec.Size)
	mz, err := s.mz.ReadFloat64s(rec.Start, n)
	if err != nil {
		return nil, nil, err
	}
	ii, err := s.ii.ReadFloat64s(rec.Start, n)
	if err != nil {
		return nil, nil, err
	}
	return mz, ii, nil
}
