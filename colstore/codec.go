package colstore

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"reflect"
)

// DeepCodec converts arbitrary values to bytes and back. Decode(Encode(v)) must be
// deeply equal to v for every value the codec accepts.
type DeepCodec interface {
	Encode(v any) ([]byte, error)
	Decode(p []byte) (any, error)
}

// GobCodec encodes values with encoding/gob. Concrete types carried inside
// interfaces must be registered with gob.Register; the nested container types of
// this package are registered already.
//
// gob decodes empty slices and maps as nil, so []any, map[string]any, *Table,
// *PeakMap and empty slices of other types are packed into wire forms that keep
// the nil flag. Values nested inside other registered types follow plain gob rules.
type GobCodec struct{}

type gobEnvelope struct {
	V any
}

type gobList struct {
	Items []any
	Nil   bool
}

type gobMap struct {
	Entries map[string]any
	Nil     bool
}

// gobSlice carries an empty slice of any type gob can decode.
type gobSlice struct {
	V   any
	Nil bool
}

type gobTable struct {
	Nil        bool
	Columns    []Column
	ColumnsNil bool
	Data       gobList
	Metadata   gobMap
}

type gobSpectrum struct {
	RT           float32
	MSLevel      uint8
	MZ           []float64
	MZNil        bool
	Intensity    []float64
	IntensityNil bool
}

type gobPeakMap struct {
	Nil        bool
	Spectra    []gobSpectrum
	SpectraNil bool
}

func init() {
	gob.Register([]any{})
	gob.Register(map[string]any{})
	gob.Register(&Table{})
	gob.Register(&PeakMap{})
	gob.Register(gobList{})
	gob.Register(gobMap{})
	gob.Register(gobSlice{})
	gob.Register(gobTable{})
	gob.Register(gobPeakMap{})
}

// Encode implements DeepCodec.
func (GobCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gobEnvelope{V: pack(v)}); err != nil {
		return nil, fmt.Errorf("gob encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// Decode implements DeepCodec.
func (GobCodec) Decode(p []byte) (any, error) {
	var env gobEnvelope
	if err := gob.NewDecoder(bytes.NewReader(p)).Decode(&env); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return unpack(env.V), nil
}

func pack(v any) any {
	switch x := v.(type) {
	case []any:
		return packList(x)
	case map[string]any:
		return packMap(x)
	case *Table:
		return packTable(x)
	case *PeakMap:
		return packPeakMap(x)
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.Len() == 0 {
		return gobSlice{V: v, Nil: rv.IsNil()}
	}
	return v
}

func unpack(v any) any {
	switch x := v.(type) {
	case gobList:
		return x.unpack()
	case gobMap:
		return x.unpack()
	case gobTable:
		return x.unpack()
	case gobPeakMap:
		return x.unpack()
	case gobSlice:
		if x.Nil || x.V == nil {
			return x.V
		}
		return reflect.MakeSlice(reflect.TypeOf(x.V), 0, 0).Interface()
	}
	return v
}

// orEmpty undoes gob's empty-to-nil collapse.
func orEmpty[T any](xs []T, isNil bool) []T {
	if isNil {
		return nil
	}
	if xs == nil {
		return []T{}
	}
	return xs
}

func packList(xs []any) gobList {
	l := gobList{Nil: xs == nil, Items: make([]any, len(xs))}
	for i, x := range xs {
		l.Items[i] = pack(x)
	}
	return l
}

func (l gobList) unpack() []any {
	if l.Nil {
		return nil
	}
	out := make([]any, len(l.Items))
	for i, x := range l.Items {
		out[i] = unpack(x)
	}
	return out
}

func packMap(m map[string]any) gobMap {
	if m == nil {
		return gobMap{Nil: true}
	}
	g := gobMap{Entries: make(map[string]any, len(m))}
	for k, v := range m {
		g.Entries[k] = pack(v)
	}
	return g
}

func (g gobMap) unpack() map[string]any {
	if g.Nil {
		return nil
	}
	m := make(map[string]any, len(g.Entries))
	for k, v := range g.Entries {
		m[k] = unpack(v)
	}
	return m
}

func packTable(t *Table) gobTable {
	if t == nil {
		return gobTable{Nil: true}
	}
	var rows []any
	if t.Data != nil {
		rows = make([]any, len(t.Data))
		for i, row := range t.Data {
			rows[i] = packList(row)
		}
	}
	return gobTable{
		Columns:    t.Columns,
		ColumnsNil: t.Columns == nil,
		Data:       gobList{Items: rows, Nil: t.Data == nil},
		Metadata:   packMap(t.Metadata),
	}
}

func (g gobTable) unpack() *Table {
	if g.Nil {
		return nil
	}
	t := &Table{
		Columns:  orEmpty(g.Columns, g.ColumnsNil),
		Metadata: g.Metadata.unpack(),
	}
	if !g.Data.Nil {
		t.Data = make([][]any, len(g.Data.Items))
		for i, row := range g.Data.Items {
			t.Data[i], _ = unpack(row).([]any)
		}
	}
	return t
}

func packPeakMap(pm *PeakMap) gobPeakMap {
	if pm == nil {
		return gobPeakMap{Nil: true}
	}
	g := gobPeakMap{SpectraNil: pm.Spectra == nil, Spectra: make([]gobSpectrum, len(pm.Spectra))}
	for i, s := range pm.Spectra {
		g.Spectra[i] = gobSpectrum{
			RT:           s.RT,
			MSLevel:      s.MSLevel,
			MZ:           s.MZ,
			MZNil:        s.MZ == nil,
			Intensity:    s.Intensity,
			IntensityNil: s.Intensity == nil,
		}
	}
	return g
}

func (g gobPeakMap) unpack() *PeakMap {
	if g.Nil {
		return nil
	}
	pm := &PeakMap{}
	if !g.SpectraNil {
		pm.Spectra = make([]Spectrum, len(g.Spectra))
	}
	for i, s := range g.Spectra {
		pm.Spectra[i] = Spectrum{
			RT:        s.RT,
			MSLevel:   s.MSLevel,
			MZ:        orEmpty(s.MZ, s.MZNil),
			Intensity: orEmpty(s.Intensity, s.IntensityNil),
		}
	}
	return pm
}
