package colstore

import (
	"fmt"

	"github.com/ic-timon/peakstore/colstore/format"
)

// Store persists values of one kind under dense local ids.
//
// Write returns the id of v, reusing an existing id when an identical value is still
// in the write cache. Read returns the value for an id. Finalize seals the store;
// a second call returns ErrFinalized.
type Store[T any] interface {
	Write(v T) (uint64, error)
	Read(id uint64) (T, error)
	Finalize() error
	Len() int
}

// ValueStore is the type-erased view of a Store used by the TypeRegistry.
type ValueStore interface {
	WriteValue(v any) (uint64, error)
	ReadValue(id uint64) (any, error)
}

// Adapt exposes s as a ValueStore. WriteValue rejects values that are not a T.
func Adapt[T any](s Store[T]) ValueStore {
	return adapted[T]{s}
}

type adapted[T any] struct {
	s Store[T]
}

func (a adapted[T]) WriteValue(v any) (uint64, error) {
	t, ok := v.(T)
	if !ok {
		return 0, fmt.Errorf("%w: store does not accept %T", ErrNoStoreForType, v)
	}
	return a.s.Write(t)
}

func (a adapted[T]) ReadValue(id uint64) (any, error) {
	return a.s.Read(id)
}

// sectioner is implemented by stores that persist sections on container finalize.
type sectioner interface {
	sections(pageBlocks int, c format.Compression) ([]section, error)
}
