package colstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPeakMaps() *PeakMapStore {
	return newPeakMapStore(DefaultConfig(), nil, zap.NewNop().Sugar())
}

func TestPeakMapStore_TwoSpectrumLayout(t *testing.T) {
	s := newTestPeakMaps()
	id, err := s.Write(twoSpectrumMap())
	require.NoError(t, err)
	require.Equal(t, uint64(0), id)

	require.Equal(t, uint64(2), s.spectra.Len())
	r0, err := s.spectra.Get(0)
	require.NoError(t, err)
	r1, err := s.spectra.Get(1)
	require.NoError(t, err)
	require.Equal(t, SpectrumRecord{PMIndex: 0, RT: 1.0, MSLevel: 1, Start: 0, Size: 3}, r0)
	require.Equal(t, SpectrumRecord{PMIndex: 0, RT: 2.0, MSLevel: 2, Start: 3, Size: 5}, r1)
	require.Equal(t, uint64(8), s.mz.Len())
	require.Equal(t, uint64(8), s.ii.Len())
}

func TestPeakMapStore_ContentDedup(t *testing.T) {
	s := newTestPeakMaps()
	a, err := s.Write(twoSpectrumMap())
	require.NoError(t, err)
	b, err := s.Write(twoSpectrumMap())
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.Equal(t, 1, s.Len())
	require.Equal(t, uint64(2), s.NumSpectra())
	require.Equal(t, uint64(8), s.NumPeaks())

	other := twoSpectrumMap()
	other.Spectra[1].Intensity[4] = 51
	c, err := s.Write(other)
	require.NoError(t, err)
	require.Equal(t, uint64(1), c)
	require.Equal(t, uint64(4), s.NumSpectra())

	idx, ok := s.Lookup(other.ContentHash())
	require.True(t, ok)
	require.Equal(t, c, idx)
}

func TestPeakMapStore_RejectsRaggedSpectrum(t *testing.T) {
	s := newTestPeakMaps()
	pm := twoSpectrumMap()
	pm.Spectra[1].Intensity = pm.Spectra[1].Intensity[:4]
	_, err := s.Write(pm)
	require.Error(t, err)
	require.Equal(t, 0, s.Len())
	require.Equal(t, uint64(0), s.NumSpectra())
}

func TestPeakMapStore_RejectsNilPeakMap(t *testing.T) {
	s := newTestPeakMaps()
	_, err := s.Write((*PeakMap)(nil))
	require.Error(t, err)
	require.Equal(t, 0, s.Len())
}

func TestPeakMapProxy_Materialize(t *testing.T) {
	s := newTestPeakMaps()
	pm := twoSpectrumMap()
	id, err := s.Write(pm)
	require.NoError(t, err)

	p, err := s.Proxy(id)
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())
	require.Equal(t, pm.ContentHash(), p.ContentHash())

	got, err := p.Materialize()
	require.NoError(t, err)
	require.Equal(t, pm, got)

	_, err = p.Spectrum(2)
	require.ErrorIs(t, err, ErrUnknownID)

	_, err = s.Proxy(5)
	require.ErrorIs(t, err, ErrUnknownID)
}

func chromatogramMap() *PeakMap {
	pm := &PeakMap{}
	// Stored out of rt order on purpose.
	for _, rt := range []float32{5, 1, 3, 2, 4} {
		level := uint8(1)
		if rt == 3 {
			level = 2
		}
		pm.Spectra = append(pm.Spectra, Spectrum{
			RT:        rt,
			MSLevel:   level,
			MZ:        []float64{100, 200, 300},
			Intensity: []float64{float64(rt), 10 * float64(rt), 100 * float64(rt)},
		})
	}
	return pm
}

func checkChromatogram(t *testing.T, p *PeakMapProxy) {
	t.Helper()

	lo, hi, err := p.RTRange()
	require.NoError(t, err)
	require.Equal(t, float32(1), lo)
	require.Equal(t, float32(5), hi)

	pts, err := p.Chromatogram(150, 350, 2, 4, 0)
	require.NoError(t, err)
	require.Equal(t, []ChromatogramPoint{
		{RT: 2, Intensity: 220},
		{RT: 3, Intensity: 330},
		{RT: 4, Intensity: 440},
	}, pts)

	pts, err = p.Chromatogram(0, 1000, 0, 10, 2)
	require.NoError(t, err)
	require.Equal(t, []ChromatogramPoint{{RT: 3, Intensity: 333}}, pts)

	pts, err = p.Chromatogram(0, 1000, 6, 10, 0)
	require.NoError(t, err)
	require.Empty(t, pts)
}

func TestPeakMapProxy_ChromatogramBeforeFinalize(t *testing.T) {
	s := newTestPeakMaps()
	_, err := s.Write(twoSpectrumMap())
	require.NoError(t, err)
	id, err := s.Write(chromatogramMap())
	require.NoError(t, err)

	p, err := s.Proxy(id)
	require.NoError(t, err)
	checkChromatogram(t, p)
}

func TestPeakMapProxy_ChromatogramAfterOpen(t *testing.T) {
	c, err := Create(testPath(t), testConfig(t))
	require.NoError(t, err)
	_, err = c.Store(twoSpectrumMap())
	require.NoError(t, err)
	gid, err := c.Store(chromatogramMap())
	require.NoError(t, err)
	empty, err := c.Store(&PeakMap{})
	require.NoError(t, err)

	r := reopen(t, c)
	v, err := r.Fetch(gid)
	require.NoError(t, err)
	p, ok := v.(*PeakMapProxy)
	require.True(t, ok)
	checkChromatogram(t, p)

	got, err := p.Materialize()
	require.NoError(t, err)
	require.Equal(t, chromatogramMap(), got)

	idx, ok := r.PeakMaps().Lookup(chromatogramMap().ContentHash())
	require.True(t, ok)
	require.Equal(t, gid.Local(), idx)
	_, ok = r.PeakMaps().Lookup(ContentHash{})
	require.False(t, ok)

	v, err = r.Fetch(empty)
	require.NoError(t, err)
	lo, hi, err := v.(*PeakMapProxy).RTRange()
	require.NoError(t, err)
	require.Zero(t, lo)
	require.Zero(t, hi)
}

func TestPeakMapProxy_ConcurrentReaders(t *testing.T) {
	c, err := Create(testPath(t), testConfig(t))
	require.NoError(t, err)
	var ids []GlobalID
	for i := 0; i < 20; i++ {
		pm := chromatogramMap()
		pm.Spectra[0].MZ[0] = float64(i)
		id, err := c.Store(pm)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	r := reopen(t, c)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range ids {
				v, err := r.Fetch(id)
				if err != nil {
					errs <- err
					return
				}
				if _, err := v.(*PeakMapProxy).Chromatogram(150, 350, 0, 10, 1); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestContentHash_String(t *testing.T) {
	h := twoSpectrumMap().ContentHash()
	require.Len(t, h.String(), 52)
	require.Equal(t, h, twoSpectrumMap().ContentHash())
	require.NotEqual(t, h, (&PeakMap{}).ContentHash())
}
