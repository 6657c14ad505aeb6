package colstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ic-timon/peakstore/colstore/format"
)

type containerState uint8

const (
	stateWriting containerState = iota
	stateFinalized
	stateAborted
	stateReadOnly
	stateClosed
)

// Container is a single-file store of strings, objects, peak maps and at most one
// table. A container from Create is written in memory and published on Finalize.
// A container from Open is read-only and safe for concurrent reads.
type Container struct {
	path string
	cfg  *Config
	log  *zap.SugaredLogger
	m    *Metrics
	id   uuid.UUID

	strings  *StringStore
	objects  *ObjectStore
	peakmaps *PeakMapStore
	registry *TypeRegistry
	table    *tableParts

	file *format.File // read mode
	lock *writerLock  // write mode

	mu    sync.Mutex
	state containerState
}

// Stats describes a container's contents.
type Stats struct {
	ID       uuid.UUID
	Strings  int
	Objects  int
	PeakMaps int
	Spectra  uint64
	Peaks    uint64
	Rows     uint64
	Sections map[string]uint64 // bytes per section, opened containers only
	FileSize int
}

// Create starts a new container at path. The path is locked against other writers
// until Finalize or Abort. Nothing is visible at path before Finalize.
func Create(path string, cfg *Config) (*Container, error) {
	cfg = cfg.OrDefault()
	if _, err := cfg.compression(); err != nil {
		return nil, err
	}
	lock, err := acquireWriterLock(path)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(tmpPath(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Join(err, lock.release())
	}

	m := NewMetrics(cfg.Registerer)
	c := &Container{
		path:  path,
		cfg:   cfg,
		m:     m,
		id:    uuid.New(),
		lock:  lock,
		state: stateWriting,
	}
	c.log = cfg.Logger.Sugar().With("container", path)
	c.strings = &StringStore{chunks: newChunkStore("str", cfg.StringBlockSize, cfg.StringCacheSize, cfg.ReadCacheSize, m, c.log)}
	c.objects = &ObjectStore{chunks: newChunkStore("obj", cfg.ObjectBlockSize, cfg.ObjectCacheSize, cfg.ReadCacheSize, m, c.log), codec: cfg.Codec}
	c.peakmaps = newPeakMapStore(cfg, m, c.log)
	if c.registry, err = c.defaultRegistry(); err != nil {
		return nil, errors.Join(err, lock.release())
	}
	c.log.Debugw("created container", "id", c.id)
	return c, nil
}

// Open maps a finalized container read-only.
func Open(path string, cfg *Config) (*Container, error) {
	cfg = cfg.OrDefault()
	if strings.HasSuffix(path, ".tmp") {
		return nil, fmt.Errorf("%w: %s is a temporary file", ErrPartialWriteAbandoned, path)
	}
	f, err := format.OpenFile(path)
	if err != nil {
		if errors.Is(err, format.ErrCorruptDirectory) {
			return nil, fmt.Errorf("%w: %w", ErrPartialWriteAbandoned, err)
		}
		return nil, err
	}

	m := NewMetrics(cfg.Registerer)
	c := &Container{
		path:  path,
		cfg:   cfg,
		m:     m,
		id:    uuid.UUID(f.Header().ContainerID),
		file:  f,
		state: stateReadOnly,
	}
	c.log = cfg.Logger.Sugar().With("container", path)
	if err := c.openStores(); err != nil {
		return nil, errors.Join(err, f.Close())
	}
	c.log.Debugw("opened container", "id", c.id, "sections", len(f.Sections()), "bytes", f.Size())
	return c, nil
}

func (c *Container) openStores() error {
	str, err := openChunkStore("str", c.file, c.cfg, c.m, c.log)
	if err != nil {
		return err
	}
	obj, err := openChunkStore("obj", c.file, c.cfg, c.m, c.log)
	if err != nil {
		return err
	}
	c.strings = &StringStore{chunks: str}
	c.objects = &ObjectStore{chunks: obj, codec: c.cfg.Codec}
	if c.peakmaps, err = openPeakMapStore(c.file, c.cfg, c.m, c.log); err != nil {
		return err
	}
	if c.registry, err = c.defaultRegistry(); err != nil {
		return err
	}
	if _, _, ok := c.file.Section(metaIndexSection); ok {
		if c.table, err = openTableParts(c.file, c.cfg); err != nil {
			return err
		}
	}
	return nil
}

// defaultRegistry registers peak maps, strings and the catch-all object store,
// in that order.
func (c *Container) defaultRegistry() (*TypeRegistry, error) {
	r := NewTypeRegistry()
	if err := r.Register("peakmap", TagPeakMap, isPeakMap, c.peakmaps); err != nil {
		return nil, err
	}
	if err := r.Register("string", TagString, isString, Adapt[string](c.strings)); err != nil {
		return nil, err
	}
	if err := r.Register("object", TagObject, isAny, Adapt[any](c.objects)); err != nil {
		return nil, err
	}
	return r, nil
}

func tmpPath(path string) string { return path + ".tmp" }

// ID returns the container identity stored in the header.
func (c *Container) ID() uuid.UUID { return c.id }

// Path returns the published file path.
func (c *Container) Path() string { return c.path }

// Strings returns the string store.
func (c *Container) Strings() *StringStore { return c.strings }

// Objects returns the object store.
func (c *Container) Objects() *ObjectStore { return c.objects }

// PeakMaps returns the peak-map store.
func (c *Container) PeakMaps() *PeakMapStore { return c.peakmaps }

// Registry returns the type registry.
func (c *Container) Registry() *TypeRegistry { return c.registry }

// Metrics returns the container's collectors.
func (c *Container) Metrics() *Metrics { return c.m }

func (c *Container) check(op string, write bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case stateAborted:
		return fmt.Errorf("%w: %s on %s", ErrPartialWriteAbandoned, op, c.path)
	case stateClosed:
		return fmt.Errorf("%s on closed container %s", op, c.path)
	case stateReadOnly:
		if write {
			return fmt.Errorf("%w: %s on %s", ErrReadOnly, op, c.path)
		}
	case stateFinalized:
		if write {
			return fmt.Errorf("%w: %s on %s", ErrFinalized, op, c.path)
		}
	}
	return nil
}

// Store writes v through the type registry.
func (c *Container) Store(v any) (GlobalID, error) {
	if err := c.check("store", true); err != nil {
		return 0, err
	}
	return c.registry.Store(v)
}

// Fetch reads the value behind id.
func (c *Container) Fetch(id GlobalID) (any, error) {
	if err := c.check("fetch", false); err != nil {
		return nil, err
	}
	return c.registry.Fetch(id)
}

// Finalize seals every store, writes <path>.tmp, syncs it and renames it onto path.
// The writer lock is released whether or not Finalize succeeds.
func (c *Container) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateFinalized:
		return fmt.Errorf("%w: container %s", ErrFinalized, c.path)
	case stateAborted:
		return fmt.Errorf("%w: finalize %s", ErrPartialWriteAbandoned, c.path)
	case stateReadOnly, stateClosed:
		return fmt.Errorf("%w: finalize %s", ErrReadOnly, c.path)
	}
	if c.table != nil && !c.table.complete {
		return fmt.Errorf("%w: table in %s is incomplete", ErrPhase, c.path)
	}

	if err := c.publish(); err != nil {
		c.log.Errorw("finalize failed", "id", c.id, "error", err)
		return errors.Join(err, c.abortLocked())
	}
	c.state = stateFinalized
	c.log.Infow("finalized container",
		"id", c.id,
		"strings", c.strings.Len(),
		"objects", c.objects.Len(),
		"peakmaps", c.peakmaps.Len(),
		"spectra", c.peakmaps.NumSpectra(),
	)
	return c.lock.release()
}

func (c *Container) publish() error {
	if err := errors.Join(c.strings.Finalize(), c.objects.Finalize(), c.peakmaps.Finalize()); err != nil {
		return err
	}
	comp, err := c.cfg.compression()
	if err != nil {
		return err
	}
	sources := []sectioner{c.strings.chunks, c.objects.chunks, c.peakmaps}
	if c.table != nil {
		sources = append(sources, c.table)
	}
	w := format.NewWriter(c.id)
	for _, src := range sources {
		secs, err := src.sections(c.cfg.PageBlocks, comp)
		if err != nil {
			return err
		}
		for _, s := range secs {
			w.AddSection(s.name, s.kind, s.recordSize, s.count, s.payload)
		}
	}

	tmp := tmpPath(c.path)
	if err := w.WriteFile(tmp); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("publish %s: %w", c.path, err)
	}
	return syncDir(filepath.Dir(c.path))
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	return errors.Join(d.Sync(), d.Close())
}

// Abort discards a container that was never finalized and releases its lock.
func (c *Container) Abort() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateAborted:
		return nil
	case stateWriting:
		return c.abortLocked()
	}
	return fmt.Errorf("abort %s: container is not being written", c.path)
}

func (c *Container) abortLocked() error {
	c.state = stateAborted
	c.log.Warnw("aborted container", "id", c.id)
	err := os.Remove(tmpPath(c.path))
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	return errors.Join(err, c.lock.release())
}

// Close releases the container. A container still being written is aborted.
func (c *Container) Close() error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case stateWriting:
		return c.Abort()
	case stateReadOnly:
		c.mu.Lock()
		defer c.mu.Unlock()
		c.state = stateClosed
		return c.file.Close()
	}
	return nil
}

// Stats reports entry counts and, for opened containers, section sizes.
func (c *Container) Stats() Stats {
	st := Stats{
		ID:       c.id,
		Strings:  c.strings.Len(),
		Objects:  c.objects.Len(),
		PeakMaps: c.peakmaps.Len(),
		Spectra:  c.peakmaps.NumSpectra(),
		Peaks:    c.peakmaps.NumPeaks(),
	}
	if c.table != nil {
		st.Rows = c.table.rows.Len()
	}
	if c.file != nil {
		st.FileSize = c.file.Size()
		st.Sections = make(map[string]uint64)
		for _, e := range c.file.Sections() {
			st.Sections[e.Name] = e.Length
		}
	}
	return st
}

// WriteTable writes src as the only table of a new container at path.
func WriteTable(path string, src TableSource, cfg *Config) error {
	c, err := Create(path, cfg)
	if err != nil {
		return err
	}
	if err := NewTableWriter(c).Write(src); err != nil {
		return errors.Join(err, c.Close())
	}
	return nil
}

// ReadTable reads the table of the container at path into memory. Peak-map cells are
// materialized so the result does not depend on the file.
func ReadTable(path string, cfg *Config) (*Table, error) {
	c, err := Open(path, cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	r, err := c.OpenTable()
	if err != nil {
		return nil, err
	}
	t, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	for _, row := range t.Data {
		for j, v := range row {
			if p, ok := v.(*PeakMapProxy); ok {
				if row[j], err = p.Materialize(); err != nil {
					return nil, err
				}
			}
		}
	}
	return t, nil
}
