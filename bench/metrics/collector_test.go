package metrics

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ic-timon/peakstore/colstore"
)

func TestTake_ContainerSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.pkst")
	src := &colstore.Table{
		Columns: []colstore.Column{{Name: "s", Type: colstore.TypeString}, {Name: "n", Type: colstore.TypeInt}},
		Data:    [][]any{{"a", 1}, {"b", 2}, {"a", 3}},
	}
	require.NoError(t, colstore.WriteTable(path, src, nil))
	c, err := colstore.Open(path, nil)
	require.NoError(t, err)
	defer c.Close()

	s := Take(c)
	require.Positive(t, s.FileBytes)
	require.Positive(t, s.BlobBytes)
	require.Positive(t, s.IndexBytes)
	require.Less(t, s.BlobBytes+s.IndexBytes, uint64(s.FileBytes))
	require.Positive(t, s.HeapSys)

	rt := Take(nil)
	require.Zero(t, rt.FileBytes)
	require.Zero(t, rt.BlobBytes)
}

func TestCounterValue(t *testing.T) {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total"})
	c.Add(3)
	require.Equal(t, 3.0, CounterValue(c))
	require.Equal(t, 1.0, MB(1<<20))
}
