package format

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the fixed header size.
	HeaderSize = 64

	// Magic identifies a valid peakstore container file.
	Magic = "PKST"

	// FormatVersion is the current file format version.
	FormatVersion uint16 = 1
)

var (
	// ErrCorruptHeader is returned when the header cannot be parsed.
	ErrCorruptHeader = errors.New("corrupt container header")
	// ErrCorruptDirectory is returned when the section directory is damaged or missing.
	ErrCorruptDirectory = errors.New("corrupt section directory")
)

// Header holds the persisted container metadata.
type Header struct {
	Magic           [4]byte
	Version         uint16
	Flags           uint16
	NumSections     uint32
	_               uint32
	DirectoryOffset uint64
	DirectoryLen    uint64
	ContainerID     [16]byte
	Reserved        [16]byte // pad to 64 bytes
}

// EncodeHeader writes the header to a byte slice, padded to HeaderSize.
func EncodeHeader(h *Header) ([]byte, error) {
	if h == nil {
		return nil, errors.New("header is nil")
	}
	copy(h.Magic[:], Magic)
	h.Version = FormatVersion
	var w bytes.Buffer
	if err := binary.Write(&w, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	b := w.Bytes()
	if len(b) < HeaderSize {
		padded := make([]byte, HeaderSize)
		copy(padded, b)
		return padded, nil
	}
	return b, nil
}

// DecodeHeader reads the header from src. Returns ErrCorruptHeader if magic/version invalid.
func DecodeHeader(src []byte) (*Header, error) {
	if len(src) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrCorruptHeader, len(src), HeaderSize)
	}
	var h Header
	r := bytes.NewReader(src[:HeaderSize])
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHeader, err)
	}
	if string(h.Magic[:]) != Magic {
		return nil, fmt.Errorf("%w: invalid magic %q", ErrCorruptHeader, h.Magic[:])
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorruptHeader, h.Version)
	}
	return &h, nil
}
