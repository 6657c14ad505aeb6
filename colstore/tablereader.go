package colstore

import (
	"fmt"
)

// TableReader reads the table of a container. The schema is loaded up front; cells
// are decoded on demand.
type TableReader struct {
	c       *Container
	columns []Column
	meta    map[string]any
	layouts []columnLayout
	width   int
	rows    *BlobArray
	nulls   map[MissingRecord]struct{}
}

// OpenTable loads the table schema and null positions.
func (c *Container) OpenTable() (*TableReader, error) {
	if err := c.check("open table", false); err != nil {
		return nil, err
	}
	c.mu.Lock()
	parts := c.table
	c.mu.Unlock()
	if parts == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTable, c.path)
	}
	if !parts.complete {
		return nil, fmt.Errorf("%w: table in %s is incomplete", ErrPhase, c.path)
	}
	if parts.meta.Len() != metaCount {
		return nil, fmt.Errorf("%s: %d meta entries, want %d", metaIndexSection, parts.meta.Len(), metaCount)
	}

	vals := make([]any, metaCount)
	for i := range vals {
		id, err := parts.meta.Get(uint64(i))
		if err != nil {
			return nil, err
		}
		if vals[i], err = c.objects.Read(id); err != nil {
			return nil, fmt.Errorf("table metadata %d: %w", i, err)
		}
	}
	meta, _ := vals[metaTable].(map[string]any)
	names, ok1 := vals[metaNames].([]string)
	types, ok2 := vals[metaTypes].([]string)
	formats, ok3 := vals[metaFormats].([]string)
	if !ok1 || !ok2 || !ok3 || len(types) != len(names) || len(formats) != len(names) {
		return nil, fmt.Errorf("table schema in %s is malformed", c.path)
	}

	r := &TableReader{c: c, meta: meta, rows: parts.rows, nulls: make(map[MissingRecord]struct{})}
	colTypes := make([]ColumnType, len(types))
	for j := range names {
		colTypes[j] = ColumnType(types[j])
		r.columns = append(r.columns, Column{Name: names[j], Type: colTypes[j], Format: formats[j]})
	}
	var err error
	if r.layouts, r.width, err = rowLayout(colTypes); err != nil {
		return nil, err
	}
	if want := max(r.width, 1); r.rows.BlockSize() != want {
		return nil, fmt.Errorf("%s: block size %d, schema needs %d", rowsSection, r.rows.BlockSize(), want)
	}
	for _, m := range parts.nulls.All() {
		r.nulls[m] = struct{}{}
	}
	return r, nil
}

// Columns returns the table schema.
func (r *TableReader) Columns() []Column { return r.columns }

// Meta returns the table metadata.
func (r *TableReader) Meta() map[string]any { return r.meta }

// Len returns the number of rows.
func (r *TableReader) Len() int { return int(r.rows.Len()) }

func (r *TableReader) cell(rec []byte, i uint64, j int) (any, error) {
	l := r.layouts[j]
	if l.primitive() {
		if _, missing := r.nulls[MissingRecord{Row: i, Col: uint64(j)}]; missing {
			return nil, nil
		}
		return getPrimitive(rec[l.offset:], l), nil
	}
	v, err := r.c.registry.Fetch(getGlobalID(rec[l.offset:]))
	if err != nil {
		return nil, fmt.Errorf("row %d column %q: %w", i, r.columns[j].Name, err)
	}
	return v, nil
}

func (r *TableReader) record(i int) ([]byte, error) {
	if i < 0 || i >= r.Len() {
		return nil, fmt.Errorf("%w: row %d, table has %d rows", ErrUnknownID, i, r.Len())
	}
	return r.rows.Read(uint64(i), 1)
}

// Row returns the cells of row i.
func (r *TableReader) Row(i int) ([]any, error) {
	rec, err := r.record(i)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(r.layouts))
	for j := range out {
		if out[j], err = r.cell(rec, uint64(i), j); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Column returns every cell of column j in row order.
func (r *TableReader) Column(j int) ([]any, error) {
	if j < 0 || j >= len(r.layouts) {
		return nil, fmt.Errorf("column %d out of range [0,%d)", j, len(r.layouts))
	}
	out := make([]any, r.Len())
	for i := range out {
		rec, err := r.record(i)
		if err != nil {
			return nil, err
		}
		if out[i], err = r.cell(rec, uint64(i), j); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadAll reads the whole table.
func (r *TableReader) ReadAll() (*Table, error) {
	t := &Table{
		Columns:  append([]Column(nil), r.columns...),
		Data:     make([][]any, r.Len()),
		Metadata: r.meta,
	}
	for i := range t.Data {
		row, err := r.Row(i)
		if err != nil {
			return nil, err
		}
		t.Data[i] = row
	}
	return t, nil
}
