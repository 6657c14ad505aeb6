package colstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// testConfig uses tiny pages so reads cross page boundaries.
func testConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.PageBlocks = 4
	cfg.PageCacheSize = 2
	cfg.Logger = zaptest.NewLogger(t)
	return cfg
}

func testPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "test.pkst")
}

// reopen finalizes c and opens the published file.
func reopen(t *testing.T, c *Container) *Container {
	t.Helper()
	require.NoError(t, c.Finalize())
	r, err := Open(c.Path(), c.cfg)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func twoSpectrumMap() *PeakMap {
	return &PeakMap{Spectra: []Spectrum{
		{RT: 1.0, MSLevel: 1, MZ: []float64{100, 200, 300}, Intensity: []float64{1, 2, 3}},
		{RT: 2.0, MSLevel: 2, MZ: []float64{150, 250, 350, 450, 550}, Intensity: []float64{10, 20, 30, 40, 50}},
	}}
}
