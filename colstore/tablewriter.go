package colstore

import (
	"fmt"

	"github.com/ic-timon/peakstore/colstore/format"
)

const (
	metaIndexSection = "meta_index"
	missingSection   = "missing_values"
	rowsSection      = "rows"
)

// meta_index positions.
const (
	metaTable = iota
	metaNames
	metaTypes
	metaFormats
	metaCount
)

// tableParts are the sections of the container's table.
type tableParts struct {
	meta     *IndexTable[uint64]
	rows     *BlobArray
	nulls    *IndexTable[MissingRecord]
	complete bool
}

func openTableParts(f *format.File, cfg *Config) (*tableParts, error) {
	meta, err := openRecords(f, metaIndexSection, recordCodec[uint64](uint64Codec{}))
	if err != nil {
		return nil, err
	}
	nulls, err := openRecords(f, missingSection, recordCodec[MissingRecord](missingCodec{}))
	if err != nil {
		return nil, err
	}
	e, data, ok := f.Section(rowsSection)
	if !ok {
		return nil, fmt.Errorf("%w: no section %s", ErrPartialWriteAbandoned, rowsSection)
	}
	rows, err := openBlobArray(rowsSection, e, data, cfg.PageCacheSize)
	if err != nil {
		return nil, err
	}
	return &tableParts{meta: meta, rows: rows, nulls: nulls, complete: true}, nil
}

func (p *tableParts) sections(pageBlocks int, c format.Compression) ([]section, error) {
	meta, err := p.meta.section()
	if err != nil {
		return nil, err
	}
	rows, err := p.rows.section(pageBlocks, c)
	if err != nil {
		return nil, err
	}
	nulls, err := p.nulls.section()
	if err != nil {
		return nil, err
	}
	return []section{meta, rows, nulls}, nil
}

func (c *Container) attachTable(p *tableParts) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateWriting {
		return fmt.Errorf("%w: attach table to %s", ErrReadOnly, c.path)
	}
	if c.table != nil {
		return fmt.Errorf("%w: container %s already holds a table", ErrPhase, c.path)
	}
	c.table = p
	return nil
}

// Phase is a TableWriter step.
type Phase uint8

const (
	PhaseOpen Phase = iota
	PhaseWriteMeta
	PhaseWriteColumns
	PhaseWriteNulls
	PhaseFinalize
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "OPEN"
	case PhaseWriteMeta:
		return "WRITE_META"
	case PhaseWriteColumns:
		return "WRITE_COLUMNS"
	case PhaseWriteNulls:
		return "WRITE_NULLS"
	case PhaseFinalize:
		return "FINALIZE"
	case PhaseClosed:
		return "CLOSED"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// TableWriter writes one table into a container. Its steps must run in order:
// WriteMeta, WriteColumns, WriteNulls, Finalize. After a failed step the writer
// refuses further work.
type TableWriter struct {
	c       *Container
	phase   Phase
	failed  error
	src     TableSource
	names   []string
	layouts []columnLayout
	width   int
	parts   *tableParts
	pending []MissingRecord
}

// NewTableWriter returns a writer in PhaseOpen.
func NewTableWriter(c *Container) *TableWriter {
	return &TableWriter{c: c}
}

// Phase returns the last completed step.
func (w *TableWriter) Phase() Phase { return w.phase }

func (w *TableWriter) enter(from, to Phase) error {
	if w.failed != nil {
		return fmt.Errorf("%w: %w", ErrPartialWriteAbandoned, w.failed)
	}
	if w.phase != from {
		return fmt.Errorf("%w: cannot enter %s from %s", ErrPhase, to, w.phase)
	}
	return nil
}

func (w *TableWriter) fail(err error) error {
	w.failed = err
	return err
}

// Write runs every step for src.
func (w *TableWriter) Write(src TableSource) error {
	if err := w.WriteMeta(src); err != nil {
		return err
	}
	if err := w.WriteColumns(); err != nil {
		return err
	}
	if err := w.WriteNulls(); err != nil {
		return err
	}
	return w.Finalize()
}

// WriteMeta resolves the column layouts and stores the table metadata and the column
// names, types and formats in the object store.
func (w *TableWriter) WriteMeta(src TableSource) error {
	if err := w.enter(PhaseOpen, PhaseWriteMeta); err != nil {
		return err
	}
	names, types, formats := src.ColNames(), src.ColTypes(), src.ColFormats()
	if len(types) != len(names) || len(formats) != len(names) {
		return w.fail(fmt.Errorf("table schema: %d names, %d types, %d formats", len(names), len(types), len(formats)))
	}
	layouts, width, err := rowLayout(types)
	if err != nil {
		return w.fail(fmt.Errorf("table schema: %w", err))
	}

	parts := &tableParts{
		meta:  newIndexTable[uint64](metaIndexSection, uint64Codec{}),
		rows:  NewBlobArray(rowsSection, max(width, 1), w.c.m),
		nulls: newIndexTable[MissingRecord](missingSection, missingCodec{}),
	}
	if err := w.c.attachTable(parts); err != nil {
		return w.fail(err)
	}

	meta := src.Meta()
	if meta == nil {
		meta = map[string]any{}
	}
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}
	for _, v := range []any{meta, names, typeNames, formats} {
		id, err := w.c.objects.Write(v)
		if err != nil {
			return w.fail(fmt.Errorf("table metadata: %w", err))
		}
		if _, err := parts.meta.Append(id); err != nil {
			return w.fail(fmt.Errorf("table metadata: %w", err))
		}
	}

	w.src, w.names, w.layouts, w.width, w.parts = src, names, layouts, width, parts
	w.phase = PhaseWriteMeta
	return nil
}

// WriteColumns writes one row record per source row. Primitive cells are stored
// inline; other cells are stored through the registry and referenced by GlobalID.
func (w *TableWriter) WriteColumns() error {
	if err := w.enter(PhaseWriteMeta, PhaseWriteColumns); err != nil {
		return err
	}
	rec := make([]byte, max(w.width, 1))
	var i uint64
	for cells := range w.src.Rows() {
		if len(cells) != len(w.layouts) {
			return w.fail(fmt.Errorf("row %d: %d cells, table has %d columns", i, len(cells), len(w.layouts)))
		}
		clear(rec)
		for j, l := range w.layouts {
			if err := w.putCell(rec, i, j, l, cells[j]); err != nil {
				return w.fail(err)
			}
		}
		if _, err := w.parts.rows.Append(rec); err != nil {
			return w.fail(err)
		}
		i++
	}
	w.phase = PhaseWriteColumns
	return nil
}

func (w *TableWriter) putCell(rec []byte, i uint64, j int, l columnLayout, v any) error {
	dst := rec[l.offset : l.offset+l.width()]
	if l.primitive() {
		if v == nil {
			w.pending = append(w.pending, MissingRecord{Row: i, Col: uint64(j)})
			return nil
		}
		if err := putPrimitive(dst, l, v); err != nil {
			return fmt.Errorf("row %d column %q: %w", i, w.names[j], err)
		}
		return nil
	}
	id, err := w.c.registry.StoreAs(l.tag, v)
	if err != nil {
		return fmt.Errorf("row %d column %q: %w", i, w.names[j], err)
	}
	putGlobalID(dst, id)
	return nil
}

// WriteNulls records every missing primitive cell.
func (w *TableWriter) WriteNulls() error {
	if err := w.enter(PhaseWriteColumns, PhaseWriteNulls); err != nil {
		return err
	}
	for _, m := range w.pending {
		if _, err := w.parts.nulls.Append(m); err != nil {
			return w.fail(err)
		}
	}
	w.pending = nil
	w.parts.complete = true
	w.phase = PhaseWriteNulls
	return nil
}

// Finalize finalizes and publishes the container.
func (w *TableWriter) Finalize() error {
	if err := w.enter(PhaseWriteNulls, PhaseFinalize); err != nil {
		return err
	}
	w.phase = PhaseFinalize
	if err := w.c.Finalize(); err != nil {
		return w.fail(err)
	}
	w.phase = PhaseClosed
	return nil
}
