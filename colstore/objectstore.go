package colstore

import "fmt"

// ObjectStore persists arbitrary values through a DeepCodec. Values whose encodings
// are byte-identical share one id while the encoding is in the write cache.
type ObjectStore struct {
	chunks *chunkStore
	codec  DeepCodec
}

var _ Store[any] = (*ObjectStore)(nil)

// Write encodes v and stores it.
func (s *ObjectStore) Write(v any) (uint64, error) {
	p, err := s.codec.Encode(v)
	if err != nil {
		return 0, err
	}
	return s.chunks.write(escapeNUL(p))
}

// Read decodes the value stored under id.
func (s *ObjectStore) Read(id uint64) (any, error) {
	p, err := s.chunks.read(id)
	if err != nil {
		return nil, err
	}
	raw, err := unescapeNUL(p)
	if err != nil {
		return nil, fmt.Errorf("object id %d: %w", id, err)
	}
	v, err := s.codec.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("object id %d: %w", id, err)
	}
	return v, nil
}

// Finalize seals the store.
func (s *ObjectStore) Finalize() error { return s.chunks.finalize() }

// Len returns the number of stored objects.
func (s *ObjectStore) Len() int { return s.chunks.len() }
