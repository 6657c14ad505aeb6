//go:build unix

package colstore

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// writerLock is an advisory exclusive flock on <path>.lock. The lock file is
// never unlinked: every writer must lock the same inode.
type writerLock struct {
	f *os.File
}

func acquireWriterLock(path string) (*writerLock, error) {
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("flock %s.lock: %w", path, err)
	}
	return &writerLock{f: f}, nil
}

func (l *writerLock) release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := errors.Join(
		unix.Flock(int(l.f.Fd()), unix.LOCK_UN),
		l.f.Close(),
	)
	l.f = nil
	return err
}
