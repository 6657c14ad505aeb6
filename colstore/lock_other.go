//go:build !unix

package colstore

// writerLock is a no-op where flock is unavailable.
type writerLock struct{}

func acquireWriterLock(string) (*writerLock, error) { return &writerLock{}, nil }

func (l *writerLock) release() error { return nil }
