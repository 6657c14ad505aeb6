package colstore

import (
	"errors"

	"github.com/ic-timon/peakstore/colstore/format"
)

// Sentinel errors. Every error returned by this package wraps one of them with the
// id, tag, section or offset that triggered it.
var (
	// ErrOutOfRangeRead is returned when a read reaches past the end of a blob array.
	// It means the index and the blob disagree, i.e. the container is corrupt.
	ErrOutOfRangeRead = errors.New("read past end of blob array")

	// ErrUnknownID is returned when an id was never written to the store it names.
	ErrUnknownID = errors.New("unknown id")

	// ErrNoStoreForType is returned when no registered store accepts a value.
	ErrNoStoreForType = errors.New("no store registered for value type")

	// ErrPartialWriteAbandoned is returned for containers whose writer never finalized.
	ErrPartialWriteAbandoned = errors.New("container write was abandoned before finalize")

	// ErrFinalized is returned when writing to, or finalizing, a finalized store.
	ErrFinalized = errors.New("store already finalized")

	// ErrReadOnly is returned when writing to a store opened from a container file.
	ErrReadOnly = errors.New("store is read-only")

	// ErrPhase is returned when table writer steps are called out of order.
	ErrPhase = errors.New("table writer phase out of order")

	// ErrLocked is returned when another writer holds the container path.
	ErrLocked = errors.New("container is locked by another writer")

	// ErrNoTable is returned when reading a table from a container that holds none.
	ErrNoTable = errors.New("container holds no table")

	// ErrCorruptHeader is returned when the container header cannot be parsed.
	ErrCorruptHeader = format.ErrCorruptHeader
)
