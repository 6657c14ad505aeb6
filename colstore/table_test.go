package colstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func scenarioTable() *Table {
	return &Table{
		Columns: []Column{
			{Name: "a", Type: TypeInt},
			{Name: "b", Type: TypeObject, Format: "%s"},
		},
		Data: [][]any{
			{1, "x"},
			{nil, []any{1, 2}},
			{3, "x"},
		},
		Metadata: map[string]any{"title": "scenario"},
	}
}

func TestTable_ThreeRowScenario(t *testing.T) {
	c, err := Create(testPath(t), testConfig(t))
	require.NoError(t, err)
	w := NewTableWriter(c)
	require.NoError(t, w.Write(scenarioTable()))
	require.Equal(t, PhaseClosed, w.Phase())

	r, err := Open(c.Path(), testConfig(t))
	require.NoError(t, err)
	defer r.Close()

	tr, err := r.OpenTable()
	require.NoError(t, err)
	require.Equal(t, scenarioTable().Columns, tr.Columns())
	require.Equal(t, map[string]any{"title": "scenario"}, tr.Meta())
	require.Equal(t, 3, tr.Len())

	a, err := tr.Column(0)
	require.NoError(t, err)
	require.Equal(t, []any{1, nil, 3}, a)

	b, err := tr.Column(1)
	require.NoError(t, err)
	require.Equal(t, []any{"x", []any{1, 2}, "x"}, b)

	rec0, err := tr.record(0)
	require.NoError(t, err)
	rec2, err := tr.record(2)
	require.NoError(t, err)
	off := tr.layouts[1].offset
	id0, id2 := getGlobalID(rec0[off:]), getGlobalID(rec2[off:])
	require.Equal(t, id0, id2)
	require.Equal(t, TagObject, id0.Tag())

	row, err := tr.Row(1)
	require.NoError(t, err)
	require.Equal(t, []any{nil, []any{1, 2}}, row)
}

func TestTable_NullRoundTrip(t *testing.T) {
	nulls := map[int]bool{0: true, 3: true, 7: true}
	src := &Table{Columns: []Column{
		{Name: "n", Type: TypeInt},
		{Name: "f", Type: TypeFloat},
		{Name: "ok", Type: TypeBool},
	}}
	for i := 0; i < 10; i++ {
		var n any = i * 10
		if nulls[i] {
			n = nil
		}
		src.Data = append(src.Data, []any{n, float64(i) / 4, i%2 == 0})
	}

	path := testPath(t)
	require.NoError(t, WriteTable(path, src, testConfig(t)))

	c, err := Open(path, testConfig(t))
	require.NoError(t, err)
	defer c.Close()
	require.Equal(t, uint64(3), c.table.nulls.Len())
	var got []MissingRecord
	for _, m := range c.table.nulls.All() {
		got = append(got, m)
	}
	require.Equal(t, []MissingRecord{{Row: 0, Col: 0}, {Row: 3, Col: 0}, {Row: 7, Col: 0}}, got)

	tr, err := c.OpenTable()
	require.NoError(t, err)
	col, err := tr.Column(0)
	require.NoError(t, err)
	for i, v := range col {
		if nulls[i] {
			require.Nil(t, v, "row %d", i)
		} else {
			require.Equal(t, i*10, v, "row %d", i)
		}
	}

	all, err := tr.ReadAll()
	require.NoError(t, err)
	require.Equal(t, src.Data, all.Data)
}

func TestTable_DelegatedColumns(t *testing.T) {
	nested := &Table{
		Columns: []Column{{Name: "k", Type: TypeString}},
		Data:    [][]any{{"v"}},
	}
	src := &Table{
		Columns: []Column{
			{Name: "name", Type: TypeString},
			{Name: "map", Type: TypePeakMap},
			{Name: "sub", Type: TypeTable},
			{Name: "score", Type: TypeFloat, Format: "%.2f"},
		},
		Data: [][]any{
			{"first", twoSpectrumMap(), nested, 0.5},
			{nil, nil, nil, float32(1.5)},
			{"first", twoSpectrumMap(), nil, 7},
		},
	}

	path := testPath(t)
	require.NoError(t, WriteTable(path, src, testConfig(t)))

	got, err := ReadTable(path, testConfig(t))
	require.NoError(t, err)
	require.Equal(t, src.Columns, got.Columns)
	require.Equal(t, map[string]any{}, got.Metadata)
	require.Equal(t, [][]any{
		{"first", twoSpectrumMap(), nested, 0.5},
		{nil, nil, nil, 1.5},
		{"first", twoSpectrumMap(), nil, 7.0},
	}, got.Data)

	c, err := Open(path, testConfig(t))
	require.NoError(t, err)
	defer c.Close()
	st := c.Stats()
	require.Equal(t, 1, st.PeakMaps)
	require.Equal(t, 1, st.Strings)
	require.Equal(t, uint64(3), st.Rows)
}

func TestTable_RejectsMismatchedCell(t *testing.T) {
	cases := []struct {
		name string
		col  Column
		cell any
	}{
		{"int", Column{Name: "c", Type: TypeInt}, "seven"},
		{"float", Column{Name: "c", Type: TypeFloat}, true},
		{"bool", Column{Name: "c", Type: TypeBool}, 1},
		{"str", Column{Name: "c", Type: TypeString}, 12},
		{"peakmap", Column{Name: "c", Type: TypePeakMap}, "x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := testPath(t)
			src := &Table{Columns: []Column{tc.col}, Data: [][]any{{tc.cell}}}
			err := WriteTable(path, src, testConfig(t))
			require.Error(t, err)
			require.Contains(t, err.Error(), `column "c"`)
			require.NoFileExists(t, path)

			c, err := Create(path, testConfig(t))
			require.NoError(t, err)
			require.NoError(t, c.Abort())
		})
	}
}

func TestTable_UnknownColumnType(t *testing.T) {
	c, err := Create(testPath(t), testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	w := NewTableWriter(c)
	err = w.WriteMeta(&Table{Columns: []Column{{Name: "c", Type: "decimal"}}})
	require.Error(t, err)
	require.ErrorIs(t, w.WriteColumns(), ErrPartialWriteAbandoned)
}

func TestTableWriter_PhaseOrder(t *testing.T) {
	c, err := Create(testPath(t), testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	w := NewTableWriter(c)
	require.Equal(t, PhaseOpen, w.Phase())
	require.ErrorIs(t, w.WriteColumns(), ErrPhase)
	require.ErrorIs(t, w.WriteNulls(), ErrPhase)
	require.ErrorIs(t, w.Finalize(), ErrPhase)

	require.NoError(t, w.WriteMeta(scenarioTable()))
	require.Equal(t, PhaseWriteMeta, w.Phase())
	require.ErrorIs(t, w.WriteMeta(scenarioTable()), ErrPhase)
	require.ErrorIs(t, w.WriteNulls(), ErrPhase)

	// The container refuses to publish a half-written table.
	require.ErrorIs(t, c.Finalize(), ErrPhase)

	require.NoError(t, w.WriteColumns())
	require.Equal(t, PhaseWriteColumns, w.Phase())
	require.ErrorIs(t, w.Finalize(), ErrPhase)
	require.NoError(t, w.WriteNulls())
	require.Equal(t, PhaseWriteNulls, w.Phase())

	// Readable before publish.
	tr, err := c.OpenTable()
	require.NoError(t, err)
	a, err := tr.Column(0)
	require.NoError(t, err)
	require.Equal(t, []any{1, nil, 3}, a)

	require.NoError(t, w.Finalize())
	require.Equal(t, PhaseClosed, w.Phase())
	require.ErrorIs(t, w.Finalize(), ErrPhase)
}

func TestTable_SecondTableRejected(t *testing.T) {
	c, err := Create(testPath(t), testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, NewTableWriter(c).WriteMeta(scenarioTable()))
	require.ErrorIs(t, NewTableWriter(c).WriteMeta(scenarioTable()), ErrPhase)
}

func TestOpenTable_NoTable(t *testing.T) {
	c, err := Create(testPath(t), testConfig(t))
	require.NoError(t, err)
	_, err = c.Store("only a string")
	require.NoError(t, err)
	r := reopen(t, c)

	_, err = r.OpenTable()
	require.ErrorIs(t, err, ErrNoTable)
}
