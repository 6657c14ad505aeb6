package simd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowBounds(t *testing.T) {
	x := []float64{1, 2, 2, 3, 5, 8}
	i, j := WindowBounds(x, 2, 5)
	require.Equal(t, 1, i)
	require.Equal(t, 5, j)

	i, j = WindowBounds(x, 6, 7)
	require.Equal(t, i, j)

	i, j = WindowBounds(x, 9, 1)
	require.Equal(t, 0, i)
	require.Equal(t, 0, j)
}

func TestSum(t *testing.T) {
	require.Equal(t, 0.0, Sum(nil))
	require.Equal(t, 15.0, Sum([]float64{1, 2, 3, 4, 5}))
}

func TestSumWindow(t *testing.T) {
	mz := []float64{100, 200, 300, 400}
	ii := []float64{1, 10, 100, 1000}
	require.Equal(t, 110.0, SumWindow(mz, ii, 150, 350))
	require.Equal(t, 1111.0, SumWindow(mz, ii, 0, 1000))
	require.Equal(t, 0.0, SumWindow(mz, ii, 401, 500))

	unsorted := []float64{300, 100, 400, 200}
	require.Equal(t, 1001.0, SumWindow(unsorted, ii, 150, 350))
	require.Equal(t, 0.0, SumWindow(mz, ii[:2], 0, 1000))
}
