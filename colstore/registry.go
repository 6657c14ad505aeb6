package colstore

import (
	"fmt"
	"math"
	"reflect"
)

// Tag selects a store within a TypeRegistry. Tags occupy the low 3 bits of a GlobalID.
type Tag uint8

const (
	TagObject  Tag = 0
	TagString  Tag = 1
	TagPeakMap Tag = 2

	// MaxTags is the number of distinct tags.
	MaxTags = 8

	tagBits = 3
	tagMask = MaxTags - 1
)

// GlobalID identifies a value across all stores of a container: local<<3 | tag.
type GlobalID uint64

// NoValue marks a delegated cell without a value.
const NoValue GlobalID = math.MaxUint64

// MaxLocalID is the largest local id that fits in a GlobalID.
const MaxLocalID = (uint64(1) << (64 - tagBits)) - 2

// EncodeGlobalID combines a store-local id and a tag.
func EncodeGlobalID(local uint64, tag Tag) GlobalID {
	return GlobalID(local<<tagBits | uint64(tag&tagMask))
}

// Local returns the store-local id.
func (g GlobalID) Local() uint64 { return uint64(g) >> tagBits }

// Tag returns the store tag.
func (g GlobalID) Tag() Tag { return Tag(g & tagMask) }

func (g GlobalID) String() string {
	if g == NoValue {
		return "none"
	}
	return fmt.Sprintf("%d/%d", g.Tag(), g.Local())
}

type registryEntry struct {
	name  string
	tag   Tag
	match func(any) bool
	store ValueStore
}

// TypeRegistry dispatches values to stores. Entries are tried in registration order
// and the first whose predicate accepts the value wins.
type TypeRegistry struct {
	entries []*registryEntry
	byTag   [MaxTags]*registryEntry
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{}
}

// Register appends a store. Tags must be unique and below MaxTags.
func (r *TypeRegistry) Register(name string, tag Tag, match func(any) bool, store ValueStore) error {
	if tag >= MaxTags {
		return fmt.Errorf("register %s: tag %d out of range [0,%d)", name, tag, MaxTags)
	}
	if prev := r.byTag[tag]; prev != nil {
		return fmt.Errorf("register %s: tag %d already used by %s", name, tag, prev.name)
	}
	if match == nil || store == nil {
		return fmt.Errorf("register %s: predicate and store are required", name)
	}
	e := &registryEntry{name: name, tag: tag, match: match, store: store}
	r.entries = append(r.entries, e)
	r.byTag[tag] = e
	return nil
}

// Store writes v to the first matching store. A nil v or nil pointer is NoValue.
func (r *TypeRegistry) Store(v any) (GlobalID, error) {
	if isNil(v) {
		return NoValue, nil
	}
	for _, e := range r.entries {
		if e.match(v) {
			return r.write(e, v)
		}
	}
	return 0, fmt.Errorf("%w: %T", ErrNoStoreForType, v)
}

// StoreAs writes v to the store registered under tag. A nil v or nil pointer is NoValue.
func (r *TypeRegistry) StoreAs(tag Tag, v any) (GlobalID, error) {
	if isNil(v) {
		return NoValue, nil
	}
	e := r.entry(tag)
	if e == nil {
		return 0, fmt.Errorf("%w: no store under tag %d for %T", ErrNoStoreForType, tag, v)
	}
	if !e.match(v) {
		return 0, fmt.Errorf("%w: %s store (tag %d) does not accept %T", ErrNoStoreForType, e.name, tag, v)
	}
	return r.write(e, v)
}

func (r *TypeRegistry) write(e *registryEntry, v any) (GlobalID, error) {
	local, err := e.store.WriteValue(v)
	if err != nil {
		return 0, err
	}
	if local > MaxLocalID {
		return 0, fmt.Errorf("%s store: local id %d does not fit a global id", e.name, local)
	}
	return EncodeGlobalID(local, e.tag), nil
}

// Fetch reads the value behind id. NoValue yields nil.
func (r *TypeRegistry) Fetch(id GlobalID) (any, error) {
	if id == NoValue {
		return nil, nil
	}
	e := r.entry(id.Tag())
	if e == nil {
		return nil, fmt.Errorf("%w: no store under tag %d (id %s)", ErrUnknownID, id.Tag(), id)
	}
	v, err := e.store.ReadValue(id.Local())
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	return v, nil
}

// Lookup returns the store registered under tag.
func (r *TypeRegistry) Lookup(tag Tag) (ValueStore, bool) {
	e := r.entry(tag)
	if e == nil {
		return nil, false
	}
	return e.store, true
}

func (r *TypeRegistry) entry(tag Tag) *registryEntry {
	if tag >= MaxTags {
		return nil
	}
	return r.byTag[tag]
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isPeakMap(v any) bool {
	_, ok := v.(PeakMapSource)
	return ok
}

func isAny(any) bool { return true }
