package colstore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// memStore is a ValueStore that keeps values in a slice.
type memStore struct {
	vals []any
}

func (m *memStore) WriteValue(v any) (uint64, error) {
	m.vals = append(m.vals, v)
	return uint64(len(m.vals) - 1), nil
}

func (m *memStore) ReadValue(id uint64) (any, error) {
	if id >= uint64(len(m.vals)) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	return m.vals[id], nil
}

func TestGlobalID_TagRoundTrip(t *testing.T) {
	for tag := Tag(0); tag < MaxTags; tag++ {
		g := EncodeGlobalID(5, tag)
		require.Equal(t, uint64(5), g.Local())
		require.Equal(t, tag, g.Tag())
		require.NotEqual(t, NoValue, g)
	}
	g := EncodeGlobalID(MaxLocalID, 7)
	require.NotEqual(t, NoValue, g)
	require.Equal(t, MaxLocalID, g.Local())
}

func TestTypeRegistry_EveryTag(t *testing.T) {
	r := NewTypeRegistry()
	for tag := Tag(0); tag < MaxTags; tag++ {
		want := int(tag)
		require.NoError(t, r.Register(fmt.Sprint("s", tag), tag, func(v any) bool {
			n, ok := v.(int)
			return ok && n%MaxTags == want
		}, &memStore{}))
	}
	for v := 0; v < 3*MaxTags; v++ {
		id, err := r.Store(v)
		require.NoError(t, err)
		require.Equal(t, Tag(v%MaxTags), id.Tag())
		require.Equal(t, uint64(v/MaxTags), id.Local())

		got, err := r.Fetch(id)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestTypeRegistry_Dispatch(t *testing.T) {
	strs, objs := &memStore{}, &memStore{}
	r := NewTypeRegistry()
	require.NoError(t, r.Register("string", TagString, isString, strs))
	require.NoError(t, r.Register("object", TagObject, isAny, objs))

	id, err := r.Store("s")
	require.NoError(t, err)
	require.Equal(t, TagString, id.Tag())

	id, err = r.Store(3.5)
	require.NoError(t, err)
	require.Equal(t, TagObject, id.Tag())

	// StoreAs bypasses order but still checks the predicate.
	id, err = r.StoreAs(TagObject, "s")
	require.NoError(t, err)
	require.Equal(t, TagObject, id.Tag())
	require.Len(t, objs.vals, 2)

	_, err = r.StoreAs(TagString, 1)
	require.ErrorIs(t, err, ErrNoStoreForType)
	_, err = r.StoreAs(TagPeakMap, 1)
	require.ErrorIs(t, err, ErrNoStoreForType)

	id, err = r.Store(nil)
	require.NoError(t, err)
	require.Equal(t, NoValue, id)
	v, err := r.Fetch(NoValue)
	require.NoError(t, err)
	require.Nil(t, v)

	_, err = r.Fetch(EncodeGlobalID(0, 5))
	require.ErrorIs(t, err, ErrUnknownID)
	_, err = r.Fetch(EncodeGlobalID(99, TagString))
	require.ErrorIs(t, err, ErrUnknownID)
}

func TestContainer_StoreNilPointer(t *testing.T) {
	c, err := Create(testPath(t), testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	for _, v := range []any{(*PeakMap)(nil), (*Table)(nil)} {
		id, err := c.Store(v)
		require.NoError(t, err)
		require.Equal(t, NoValue, id)
	}
	id, err := c.Registry().StoreAs(TagPeakMap, (*PeakMap)(nil))
	require.NoError(t, err)
	require.Equal(t, NoValue, id)
	require.Equal(t, 0, c.PeakMaps().Len())
}

func TestTypeRegistry_NoMatch(t *testing.T) {
	r := NewTypeRegistry()
	require.NoError(t, r.Register("string", TagString, isString, &memStore{}))
	_, err := r.Store(1)
	require.ErrorIs(t, err, ErrNoStoreForType)
}

func TestTypeRegistry_RegisterValidation(t *testing.T) {
	r := NewTypeRegistry()
	require.NoError(t, r.Register("a", 3, isAny, &memStore{}))
	require.Error(t, r.Register("b", 3, isAny, &memStore{}))
	require.Error(t, r.Register("c", MaxTags, isAny, &memStore{}))
	require.Error(t, r.Register("d", 4, nil, &memStore{}))
}
