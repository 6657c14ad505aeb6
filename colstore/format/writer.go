package format

import (
	"bufio"
	"os"
)

// Writer lays out a container file: header, section payloads, directory.
// Sections are buffered until WriteFile.
type Writer struct {
	containerID [16]byte
	entries     []SectionEntry
	payloads    [][]byte
	offset      uint64
}

// NewWriter creates a writer for a container with the given identity.
func NewWriter(containerID [16]byte) *Writer {
	return &Writer{containerID: containerID, offset: HeaderSize}
}

// AddSection appends a section payload. Names must be unique; later duplicates shadow
// earlier ones on read.
func (w *Writer) AddSection(name string, kind SectionKind, recordSize uint32, count uint64, payload []byte) {
	w.entries = append(w.entries, SectionEntry{
		Name:       name,
		Kind:       kind,
		Offset:     w.offset,
		Length:     uint64(len(payload)),
		RecordSize: recordSize,
		Count:      count,
	})
	w.payloads = append(w.payloads, payload)
	w.offset += uint64(len(payload))
}

// Entries returns the sections added so far.
func (w *Writer) Entries() []SectionEntry {
	return w.entries
}

// WriteFile writes the container to path and syncs it. The directory is written last,
// so a file cut short by a crash never carries a valid directory.
func (w *Writer) WriteFile(path string) error {
	dir := EncodeDirectory(w.entries)
	h := &Header{
		NumSections:     uint32(len(w.entries)),
		DirectoryOffset: w.offset,
		DirectoryLen:    uint64(len(dir)),
		ContainerID:     w.containerID,
	}
	headerBytes, err := EncodeHeader(h)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, 1<<20)
	if _, err := bw.Write(headerBytes); err != nil {
		return err
	}
	for _, p := range w.payloads {
		if _, err := bw.Write(p); err != nil {
			return err
		}
	}
	if _, err := bw.Write(dir); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Sync()
}
