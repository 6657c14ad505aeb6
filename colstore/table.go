package colstore

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"slices"
)

// ColumnType is the declared type of a table column.
type ColumnType string

const (
	TypeInt     ColumnType = "int"
	TypeFloat   ColumnType = "float"
	TypeBool    ColumnType = "bool"
	TypeString  ColumnType = "str"
	TypeObject  ColumnType = "object"
	TypePeakMap ColumnType = "peakmap"
	TypeTable   ColumnType = "table"
)

// Column describes one table column. Format is a display hint and may be empty.
type Column struct {
	Name   string
	Type   ColumnType
	Format string
}

// TableSource is what TableWriter consumes.
type TableSource interface {
	ColNames() []string
	ColTypes() []ColumnType
	ColFormats() []string
	Rows() iter.Seq[[]any]
	Meta() map[string]any
}

// Table is an in-memory table. A nil cell is a missing value.
//
// Cells of int columns read back as int, float columns as float64 and bool columns
// as bool. Peak-map cells read back as *PeakMapProxy.
type Table struct {
	Columns  []Column
	Data     [][]any
	Metadata map[string]any
}

var _ TableSource = (*Table)(nil)

// ColNames implements TableSource.
func (t *Table) ColNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// ColTypes implements TableSource.
func (t *Table) ColTypes() []ColumnType {
	out := make([]ColumnType, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Type
	}
	return out
}

// ColFormats implements TableSource.
func (t *Table) ColFormats() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Format
	}
	return out
}

// Rows implements TableSource.
func (t *Table) Rows() iter.Seq[[]any] {
	return slices.Values(t.Data)
}

// Meta implements TableSource.
func (t *Table) Meta() map[string]any {
	return t.Metadata
}

// layoutKind is how a column's cells are held in the row record.
type layoutKind uint8

const (
	layoutInt layoutKind = iota + 1
	layoutFloat
	layoutBool
	layoutDelegated
)

// columnLayout is resolved once per column from its declared type.
type columnLayout struct {
	kind   layoutKind
	tag    Tag // delegated columns only
	offset int // byte offset within the row record
}

func (l columnLayout) width() int {
	if l.kind == layoutBool {
		return 1
	}
	return 8
}

func (l columnLayout) primitive() bool {
	return l.kind != layoutDelegated
}

func resolveLayout(t ColumnType) (columnLayout, error) {
	switch t {
	case TypeInt:
		return columnLayout{kind: layoutInt}, nil
	case TypeFloat:
		return columnLayout{kind: layoutFloat}, nil
	case TypeBool:
		return columnLayout{kind: layoutBool}, nil
	case TypeString:
		return columnLayout{kind: layoutDelegated, tag: TagString}, nil
	case TypePeakMap:
		return columnLayout{kind: layoutDelegated, tag: TagPeakMap}, nil
	case TypeObject, TypeTable:
		return columnLayout{kind: layoutDelegated, tag: TagObject}, nil
	}
	return columnLayout{}, fmt.Errorf("unknown column type %q", t)
}

// rowLayout resolves every column and returns the layouts and the row record width.
func rowLayout(types []ColumnType) ([]columnLayout, int, error) {
	layouts := make([]columnLayout, len(types))
	width := 0
	for j, t := range types {
		l, err := resolveLayout(t)
		if err != nil {
			return nil, 0, fmt.Errorf("column %d: %w", j, err)
		}
		l.offset = width
		width += l.width()
		layouts[j] = l
	}
	return layouts, width, nil
}

// putPrimitive writes v into dst according to l. v must not be nil.
func putPrimitive(dst []byte, l columnLayout, v any) error {
	switch l.kind {
	case layoutInt:
		n, ok := toInt64(v)
		if !ok {
			return fmt.Errorf("cannot store %T as int", v)
		}
		binary.LittleEndian.PutUint64(dst, uint64(n))
	case layoutFloat:
		f, ok := toFloat64(v)
		if !ok {
			return fmt.Errorf("cannot store %T as float", v)
		}
		binary.LittleEndian.PutUint64(dst, math.Float64bits(f))
	case layoutBool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("cannot store %T as bool", v)
		}
		dst[0] = 0
		if b {
			dst[0] = 1
		}
	default:
		return fmt.Errorf("layout %d is not primitive", l.kind)
	}
	return nil
}

func getPrimitive(src []byte, l columnLayout) any {
	switch l.kind {
	case layoutInt:
		return int(int64(binary.LittleEndian.Uint64(src)))
	case layoutFloat:
		return math.Float64frombits(binary.LittleEndian.Uint64(src))
	case layoutBool:
		return src[0] != 0
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	}
	if n, ok := toInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}

func putGlobalID(dst []byte, id GlobalID) {
	binary.LittleEndian.PutUint64(dst, uint64(id))
}

func getGlobalID(src []byte) GlobalID {
	return GlobalID(binary.LittleEndian.Uint64(src))
}
