package colstore

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStrings(cacheSize int) *StringStore {
	return &StringStore{chunks: newChunkStore("str", 16, cacheSize, 8, nil, zap.NewNop().Sugar())}
}

func newTestObjects(cacheSize int) *ObjectStore {
	return &ObjectStore{chunks: newChunkStore("obj", 32, cacheSize, 8, nil, zap.NewNop().Sugar()), codec: GobCodec{}}
}

func TestStringStore_RoundTrip(t *testing.T) {
	s := newTestStrings(100)
	values := []string{"", "a", "exactly sixteen!", "longer than one block of sixteen bytes", "nul\x00inside", "ünïcödé"}
	ids := make([]uint64, len(values))
	for i, v := range values {
		id, err := s.Write(v)
		require.NoError(t, err)
		ids[i] = id
	}
	for i, v := range values {
		got, err := s.Read(ids[i])
		require.NoError(t, err)
		require.Equal(t, v, got)
	}

	_, err := s.Read(uint64(len(values)))
	require.ErrorIs(t, err, ErrUnknownID)
}

func TestStringStore_DedupWarmCache(t *testing.T) {
	s := newTestStrings(100)
	a, err := s.Write("repeated value")
	require.NoError(t, err)
	blocks := s.chunks.blobs.Len()

	b, err := s.Write("repeated value")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, 1, s.Len())
	require.Equal(t, blocks, s.chunks.blobs.Len())
}

func TestStringStore_EvictionMayDuplicate(t *testing.T) {
	s := newTestStrings(1)
	a, err := s.Write("first")
	require.NoError(t, err)
	_, err = s.Write("second")
	require.NoError(t, err)

	again, err := s.Write("first")
	require.NoError(t, err)
	require.NotEqual(t, a, again)
	require.Equal(t, 3, s.Len())
	require.Equal(t, int64(2), s.chunks.wcache.evictions())

	got, err := s.Read(again)
	require.NoError(t, err)
	require.Equal(t, "first", got)
}

func TestStringStore_Finalize(t *testing.T) {
	s := newTestStrings(10)
	_, err := s.Write("x")
	require.NoError(t, err)
	require.NoError(t, s.Finalize())
	require.ErrorIs(t, s.Finalize(), ErrFinalized)

	_, err = s.Write("y")
	require.ErrorIs(t, err, ErrFinalized)

	got, err := s.Read(0)
	require.NoError(t, err)
	require.Equal(t, "x", got)
}

func TestObjectStore_RoundTrip(t *testing.T) {
	s := newTestObjects(100)
	values := []any{
		42,
		3.25,
		"x",
		[]any{1, "two", 3.0, nil},
		map[string]any{"k": []any{true, false}, "n": int64(7)},
		[]byte{0, '\\', 0, 1},
		&Table{
			Columns:  []Column{{Name: "a", Type: TypeInt}},
			Data:     [][]any{{1}, {2}},
			Metadata: map[string]any{"source": "nested"},
		},
	}
	for _, v := range values {
		id, err := s.Write(v)
		require.NoError(t, err)
		got, err := s.Read(id)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestObjectStore_RoundTripEmptyCollections(t *testing.T) {
	s := newTestObjects(100)
	values := []any{
		[]any{},
		[]any(nil),
		map[string]any{},
		map[string]any{"k": []any{}, "m": map[string]any{}},
		[]any{[]any{}, nil, map[string]any{}},
		[]string{},
		[]float64{},
		&Table{
			Columns:  []Column{{Name: "a", Type: TypeInt}},
			Data:     [][]any{},
			Metadata: map[string]any{},
		},
		&Table{Columns: []Column{}, Data: [][]any{{}, {[]any{}}}},
		&PeakMap{Spectra: []Spectrum{{RT: 1, MSLevel: 1, MZ: []float64{}, Intensity: []float64{}}}},
		&PeakMap{Spectra: []Spectrum{}},
	}
	for _, v := range values {
		id, err := s.Write(v)
		require.NoError(t, err)
		got, err := s.Read(id)
		require.NoError(t, err)
		require.Equal(t, v, got, "%#v", v)
	}

	// Empty and nil encode differently.
	a, err := s.Write([]any{})
	require.NoError(t, err)
	b, err := s.Write([]any(nil))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestObjectStore_DedupByEncoding(t *testing.T) {
	s := newTestObjects(100)
	a, err := s.Write([]any{1, 2})
	require.NoError(t, err)
	b, err := s.Write([]any{1, 2})
	require.NoError(t, err)
	c, err := s.Write([]any{2, 1})
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Equal(t, 2, s.Len())
}

func TestEscapeNUL(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("plain"),
		{0},
		{'\\'},
		{'\\', '0'},
		{0, 0, '\\', 0, 'a'},
	}
	for _, c := range cases {
		esc := escapeNUL(c)
		require.NotContains(t, string(esc), "\x00")
		back, err := unescapeNUL(esc)
		require.NoError(t, err)
		require.Equal(t, string(c), string(back))
	}

	_, err := unescapeNUL([]byte{'a', '\\'})
	require.Error(t, err)
	_, err = unescapeNUL([]byte{'\\', 'n'})
	require.Error(t, err)
}

func TestAdapt_RejectsWrongType(t *testing.T) {
	vs := Adapt[string](newTestStrings(10))
	_, err := vs.WriteValue(12)
	require.ErrorIs(t, err, ErrNoStoreForType)

	id, err := vs.WriteValue("ok")
	require.NoError(t, err)
	v, err := vs.ReadValue(id)
	require.NoError(t, err)
	require.Equal(t, "ok", v)
}
