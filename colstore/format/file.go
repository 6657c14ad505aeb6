package format

import (
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// File is a read-only container backed by an mmap'd file.
type File struct {
	f        *os.File
	data     mmap.MMap
	header   *Header
	sections map[string]SectionEntry
	order    []string
}

// OpenFile maps path read-only and decodes its header and section directory.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.Size() < HeaderSize {
		f.Close()
		return nil, fmt.Errorf("%w: file is %d bytes", ErrCorruptHeader, st.Size())
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	cf := &File{f: f, data: m}
	if err := cf.decode(); err != nil {
		return nil, errors.Join(err, cf.Close())
	}
	return cf, nil
}

func (cf *File) decode() error {
	h, err := DecodeHeader(cf.data[:HeaderSize])
	if err != nil {
		return err
	}
	end := h.DirectoryOffset + h.DirectoryLen
	if h.DirectoryLen == 0 || end > uint64(len(cf.data)) || h.DirectoryOffset < HeaderSize {
		return fmt.Errorf("%w: directory [%d,%d) outside file of %d bytes", ErrCorruptDirectory, h.DirectoryOffset, end, len(cf.data))
	}
	entries, err := DecodeDirectory(cf.data[h.DirectoryOffset:end], int(h.NumSections))
	if err != nil {
		return err
	}
	cf.header = h
	cf.sections = make(map[string]SectionEntry, len(entries))
	for _, e := range entries {
		if e.Offset+e.Length > h.DirectoryOffset || e.Offset < HeaderSize {
			return fmt.Errorf("%w: section %q [%d,%d) overlaps header or directory", ErrCorruptDirectory, e.Name, e.Offset, e.Offset+e.Length)
		}
		cf.sections[e.Name] = e
		cf.order = append(cf.order, e.Name)
	}
	return nil
}

// Header returns the decoded header.
func (cf *File) Header() *Header {
	return cf.header
}

// Sections returns the section entries in file order.
func (cf *File) Sections() []SectionEntry {
	out := make([]SectionEntry, 0, len(cf.order))
	for _, name := range cf.order {
		out = append(out, cf.sections[name])
	}
	return out
}

// Section returns the entry and an mmap view of the named section.
// The slice is valid until Close. Caller must not modify it.
func (cf *File) Section(name string) (SectionEntry, []byte, bool) {
	e, ok := cf.sections[name]
	if !ok || cf.data == nil {
		return SectionEntry{}, nil, false
	}
	return e, cf.data[e.Offset : e.Offset+e.Length], true
}

// Size returns the mapped file size.
func (cf *File) Size() int {
	return len(cf.data)
}

// Close unmaps the file and closes it.
func (cf *File) Close() error {
	if cf.data != nil {
		if err := cf.data.Unmap(); err != nil {
			return err
		}
		cf.data = nil
	}
	if cf.f != nil {
		err := cf.f.Close()
		cf.f = nil
		return err
	}
	return nil
}
