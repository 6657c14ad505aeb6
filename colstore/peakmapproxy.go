package colstore

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/ic-timon/peakstore/simd"
)

// PeakMapProxy is a read handle on one stored peak map. It holds only the peak-map
// record; spectra are read from the store on demand.
type PeakMapProxy struct {
	store *PeakMapStore
	rec   PeakMapRecord
}

var _ PeakMapSource = (*PeakMapProxy)(nil)

// ChromatogramPoint is the summed intensity of one spectrum inside an m/z window.
type ChromatogramPoint struct {
	RT        float32
	Intensity float64
}

// Index returns the peak-map index within its store.
func (p *PeakMapProxy) Index() uint32 { return p.rec.Index }

// Len returns the number of spectra.
func (p *PeakMapProxy) Len() int { return int(p.rec.NumSpectra) }

// NumSpectra implements PeakMapSource.
func (p *PeakMapProxy) NumSpectra() int { return int(p.rec.NumSpectra) }

// ContentHash implements PeakMapSource.
func (p *PeakMapProxy) ContentHash() ContentHash { return p.rec.Hash }

func (p *PeakMapProxy) row(i int) (uint64, error) {
	if i < 0 || i >= int(p.rec.NumSpectra) {
		return 0, fmt.Errorf("%w: peak map %d spectrum %d, have %d", ErrUnknownID, p.rec.Index, i, p.rec.NumSpectra)
	}
	return p.rec.FirstSpectrum + uint64(i), nil
}

// Info returns the stored record of spectrum i without reading its peaks.
func (p *PeakMapProxy) Info(i int) (SpectrumRecord, error) {
	row, err := p.row(i)
	if err != nil {
		return SpectrumRecord{}, err
	}
	return p.store.spectrum(row)
}

// Spectrum implements PeakMapSource.
func (p *PeakMapProxy) Spectrum(i int) (Spectrum, error) {
	rec, err := p.Info(i)
	if err != nil {
		return Spectrum{}, err
	}
	return p.load(rec)
}

func (p *PeakMapProxy) load(rec SpectrumRecord) (Spectrum, error) {
	mz, ii, err := p.store.peaks(rec)
	if err != nil {
		return Spectrum{}, fmt.Errorf("peak map %d: %w", p.rec.Index, err)
	}
	return Spectrum{RT: rec.RT, MSLevel: rec.MSLevel, MZ: mz, Intensity: ii}, nil
}

// Spectra reads every spectrum in stored order.
func (p *PeakMapProxy) Spectra() ([]Spectrum, error) {
	out := make([]Spectrum, p.rec.NumSpectra)
	for i := range out {
		s, err := p.Spectrum(i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// Materialize reads the whole peak map into memory.
func (p *PeakMapProxy) Materialize() (*PeakMap, error) {
	spectra, err := p.Spectra()
	if err != nil {
		return nil, err
	}
	return &PeakMap{Spectra: spectra}, nil
}

// RTRange returns the smallest and largest retention time. Both are 0 for an
// empty peak map.
func (p *PeakMapProxy) RTRange() (float32, float32, error) {
	recs, err := p.byRT(float32(math.Inf(-1)), float32(math.Inf(1)))
	if err != nil || len(recs) == 0 {
		return 0, 0, err
	}
	return recs[0].RT, recs[len(recs)-1].RT, nil
}

// Chromatogram sums intensities within [mzMin, mzMax] for every spectrum with
// rt in [rtMin, rtMax], in rt order. msLevel 0 matches any level.
func (p *PeakMapProxy) Chromatogram(mzMin, mzMax float64, rtMin, rtMax float32, msLevel uint8) ([]ChromatogramPoint, error) {
	recs, err := p.byRT(rtMin, rtMax)
	if err != nil {
		return nil, err
	}
	out := make([]ChromatogramPoint, 0, len(recs))
	for _, rec := range recs {
		if msLevel != 0 && rec.MSLevel != msLevel {
			continue
		}
		mz, ii, err := p.store.peaks(rec)
		if err != nil {
			return nil, fmt.Errorf("peak map %d: %w", p.rec.Index, err)
		}
		out = append(out, ChromatogramPoint{RT: rec.RT, Intensity: simd.SumWindow(mz, ii, mzMin, mzMax)})
	}
	return out, nil
}

// byRT returns the records of spectra with rt in [lo, hi] ordered by rt.
// Finalized stores binary-search the spectra_by_rt ordering; open writers scan.
func (p *PeakMapProxy) byRT(lo, hi float32) ([]SpectrumRecord, error) {
	first := p.rec.FirstSpectrum
	end := first + uint64(p.rec.NumSpectra)

	at := func(pos uint64) (SpectrumRecord, bool, error) {
		row, ok, err := p.store.rtOrder(pos)
		if !ok || err != nil {
			return SpectrumRecord{}, ok, err
		}
		rec, err := p.store.spectrum(row)
		return rec, true, err
	}

	if first == end {
		return nil, nil
	}
	if _, ok, err := at(first); err != nil {
		return nil, err
	} else if !ok {
		return p.scanRT(first, end, lo, hi)
	}

	// Rows of one peak map are contiguous, so its rt ordering occupies the same
	// position range.
	pos, n := first, end
	for pos < n {
		mid := pos + (n-pos)/2
		rec, _, err := at(mid)
		if err != nil {
			return nil, err
		}
		if rec.RT < lo {
			pos = mid + 1
		} else {
			n = mid
		}
	}
	var out []SpectrumRecord
	for ; pos < end; pos++ {
		rec, _, err := at(pos)
		if err != nil {
			return nil, err
		}
		if rec.RT > hi {
			break
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *PeakMapProxy) scanRT(first, end uint64, lo, hi float32) ([]SpectrumRecord, error) {
	var out []SpectrumRecord
	for row := first; row < end; row++ {
		rec, err := p.store.spectrum(row)
		if err != nil {
			return nil, err
		}
		if rec.RT >= lo && rec.RT <= hi {
			out = append(out, rec)
		}
	}
	slices.SortStableFunc(out, func(a, b SpectrumRecord) int {
		return cmp.Compare(a.RT, b.RT)
	})
	return out, nil
}
