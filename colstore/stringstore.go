package colstore

// StringStore persists strings. Identical strings written while their entry is
// still in the write cache share one id.
type StringStore struct {
	chunks *chunkStore
}

var _ Store[string] = (*StringStore)(nil)

// Write stores s and returns its id.
func (s *StringStore) Write(v string) (uint64, error) {
	return s.chunks.write([]byte(v))
}

// Read returns the string stored under id.
func (s *StringStore) Read(id uint64) (string, error) {
	p, err := s.chunks.read(id)
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// Finalize seals the store.
func (s *StringStore) Finalize() error { return s.chunks.finalize() }

// Len returns the number of stored strings.
func (s *StringStore) Len() int { return s.chunks.len() }
