package colstore

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ic-timon/peakstore/colstore/format"
)

// chunkStore stores byte payloads chunked into fixed-size blocks of one blob array,
// one BlobRecord per payload. StringStore and ObjectStore are built on it.
type chunkStore struct {
	name   string
	blobs  *BlobArray
	index  *IndexTable[BlobRecord]
	wcache *writeCache
	rcache *readCache[[]byte]
	m      *Metrics
	log    *zap.SugaredLogger

	mu        sync.RWMutex
	finalized bool
}

func blobSectionName(store string, blockSize int) string {
	return fmt.Sprintf("%s_blob_%d", store, blockSize)
}

func indexSectionName(store string, blockSize int) string {
	return fmt.Sprintf("%s_index_%d", store, blockSize)
}

func newChunkStore(name string, blockSize, writeCacheSize, readCacheSize int, m *Metrics, log *zap.SugaredLogger) *chunkStore {
	return &chunkStore{
		name:   name,
		blobs:  NewBlobArray(blobSectionName(name, blockSize), blockSize, m),
		index:  newIndexTable[BlobRecord](indexSectionName(name, blockSize), blobCodec{}),
		wcache: newWriteCache(writeCacheSize),
		rcache: newReadCache[[]byte](name, readCacheSize, m),
		m:      m,
		log:    log,
	}
}

// openChunkStore locates the <name>_blob_<bs> and <name>_index_<bs> sections of f.
func openChunkStore(name string, f *format.File, cfg *Config, m *Metrics, log *zap.SugaredLogger) (*chunkStore, error) {
	var blobEntry format.SectionEntry
	found := false
	for _, e := range f.Sections() {
		if strings.HasPrefix(e.Name, name+"_blob_") {
			blobEntry, found = e, true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: no %s blob section", ErrPartialWriteAbandoned, name)
	}
	bs := int(blobEntry.RecordSize)
	_, blobData, _ := f.Section(blobEntry.Name)
	blobs, err := openBlobArray(blobEntry.Name, blobEntry, blobData, cfg.PageCacheSize)
	if err != nil {
		return nil, err
	}
	blobs.m = m

	indexName := indexSectionName(name, bs)
	indexEntry, indexData, ok := f.Section(indexName)
	if !ok {
		return nil, fmt.Errorf("%w: no section %s", ErrPartialWriteAbandoned, indexName)
	}
	index, err := openIndexTable[BlobRecord](indexName, blobCodec{}, indexEntry, indexData)
	if err != nil {
		return nil, err
	}
	return &chunkStore{
		name:      name,
		blobs:     blobs,
		index:     index,
		rcache:    newReadCache[[]byte](name, cfg.ReadCacheSize, m),
		m:         m,
		log:       log,
		finalized: true,
	}, nil
}

func (s *chunkStore) write(p []byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blobs.ReadOnly() {
		return 0, fmt.Errorf("%w: write to %s store", ErrReadOnly, s.name)
	}
	if s.finalized {
		return 0, fmt.Errorf("%w: write to %s store", ErrFinalized, s.name)
	}
	if len(p) > math.MaxUint32 {
		return 0, fmt.Errorf("%s store: payload of %d bytes exceeds record size limit", s.name, len(p))
	}
	s.m.write(s.name)

	key := keyOf(p)
	id, hit := s.wcache.get(key)
	s.m.cache(s.name, "write", hit)
	if hit {
		stored, err := s.load(id)
		if err == nil && bytes.Equal(stored, p) {
			s.m.dedup(s.name)
			return id, nil
		}
	}

	start, err := s.blobs.Append(p)
	if err != nil {
		return 0, err
	}
	id, err = s.index.Append(BlobRecord{ID: s.index.Len(), Start: start, Size: uint32(len(p))})
	if err != nil {
		return 0, err
	}
	s.wcache.add(key, id)
	return id, nil
}

// load reads the payload of id, bypassing the read cache.
func (s *chunkStore) load(id uint64) ([]byte, error) {
	rec, err := s.index.Get(id)
	if err != nil {
		return nil, err
	}
	if rec.ID != id {
		return nil, fmt.Errorf("%w: %s index position %d holds id %d", ErrUnknownID, s.name, id, rec.ID)
	}
	raw, err := s.blobs.Read(rec.Start, s.blobs.blocksFor(int(rec.Size)))
	if err != nil {
		return nil, fmt.Errorf("%s id %d: %w", s.name, id, err)
	}
	return raw[:rec.Size], nil
}

func (s *chunkStore) read(id uint64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rcache.get(id, func() ([]byte, error) {
		return s.load(id)
	})
}

func (s *chunkStore) finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blobs.ReadOnly() {
		return fmt.Errorf("%w: finalize %s store", ErrReadOnly, s.name)
	}
	if s.finalized {
		return fmt.Errorf("%w: %s store", ErrFinalized, s.name)
	}
	s.finalized = true
	if n := s.wcache.evictions(); n > 0 {
		s.log.Warnw("write cache evicted entries, duplicates may be stored",
			"store", s.name, "evictions", n, "entries", s.index.Len())
	}
	return nil
}

func (s *chunkStore) len() int {
	return int(s.index.Len())
}

func (s *chunkStore) sections(pageBlocks int, c format.Compression) ([]section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, err := s.blobs.section(pageBlocks, c)
	if err != nil {
		return nil, err
	}
	index, err := s.index.section()
	if err != nil {
		return nil, err
	}
	return []section{blob, index}, nil
}
