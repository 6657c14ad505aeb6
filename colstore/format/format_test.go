package format

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeader_EncodeDecode(t *testing.T) {
	h := &Header{NumSections: 3, DirectoryOffset: 4096, DirectoryLen: 120}
	copy(h.ContainerID[:], "0123456789abcdef")
	b, err := EncodeHeader(h)
	require.NoError(t, err)
	require.Len(t, b, HeaderSize)

	got, err := DecodeHeader(b)
	require.NoError(t, err)
	require.Equal(t, FormatVersion, got.Version)
	require.EqualValues(t, 3, got.NumSections)
	require.EqualValues(t, 4096, got.DirectoryOffset)
	require.EqualValues(t, 120, got.DirectoryLen)
	require.Equal(t, h.ContainerID, got.ContainerID)
}

func TestHeader_Corrupt(t *testing.T) {
	b, err := EncodeHeader(&Header{})
	require.NoError(t, err)

	bad := bytes.Clone(b)
	copy(bad, "XXXX")
	_, err = DecodeHeader(bad)
	require.ErrorIs(t, err, ErrCorruptHeader)

	_, err = DecodeHeader(b[:10])
	require.ErrorIs(t, err, ErrCorruptHeader)
}

func TestDirectory_RoundTrip(t *testing.T) {
	entries := []SectionEntry{
		{Name: "rows", Kind: SectionPaged, Offset: 64, Length: 100, RecordSize: 17, Count: 5},
		{Name: "missing_values", Kind: SectionRecords, Offset: 164, Length: 48, RecordSize: 16, Count: 3},
	}
	b := EncodeDirectory(entries)
	got, err := DecodeDirectory(b, len(entries))
	require.NoError(t, err)
	require.Equal(t, entries, got)

	b[3] ^= 0xFF
	_, err = DecodeDirectory(b, len(entries))
	require.ErrorIs(t, err, ErrCorruptDirectory)
}

func TestPages_RoundTrip(t *testing.T) {
	raw := make([]byte, 16*10)
	for i := range raw {
		raw[i] = byte(i % 7)
	}
	for _, c := range []Compression{CompressionNone, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			enc, err := EncodePages(raw, 16, 4, c)
			require.NoError(t, err)
			s, err := NewPagedSection(enc)
			require.NoError(t, err)
			require.Equal(t, 3, s.NumPages())
			require.Equal(t, 16, s.BlockSize())
			require.Equal(t, c, s.Compression())

			var all []byte
			for i := 0; i < s.NumPages(); i++ {
				p, err := s.Page(i)
				require.NoError(t, err)
				all = append(all, p...)
			}
			require.Equal(t, raw, all)

			_, err = s.Page(3)
			require.Error(t, err)
		})
	}
}

func TestPages_Empty(t *testing.T) {
	enc, err := EncodePages(nil, 8, 4, CompressionZstd)
	require.NoError(t, err)
	s, err := NewPagedSection(enc)
	require.NoError(t, err)
	require.Equal(t, 0, s.NumPages())
}

func TestPages_RejectsPartialBlock(t *testing.T) {
	_, err := EncodePages(make([]byte, 10), 8, 4, CompressionNone)
	require.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("none")
	require.NoError(t, err)
	require.Equal(t, CompressionNone, c)
	c, err = ParseCompression("")
	require.NoError(t, err)
	require.Equal(t, CompressionZstd, c)
	_, err = ParseCompression("lz4")
	require.Error(t, err)
}

func TestWriter_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.pkst")
	w := NewWriter([16]byte{1, 2, 3})
	w.AddSection("a", SectionRecords, 4, 2, []byte{1, 0, 0, 0, 2, 0, 0, 0})
	w.AddSection("b", SectionRecords, 1, 3, []byte("xyz"))
	require.NoError(t, w.WriteFile(path))

	f, err := OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, [16]byte{1, 2, 3}, f.Header().ContainerID)
	require.Len(t, f.Sections(), 2)
	e, b, ok := f.Section("b")
	require.True(t, ok)
	require.EqualValues(t, 3, e.Count)
	require.Equal(t, []byte("xyz"), b)
	_, _, ok = f.Section("missing")
	require.False(t, ok)
}

func TestOpenFile_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.pkst")
	w := NewWriter([16]byte{})
	w.AddSection("a", SectionRecords, 1, 128, make([]byte, 128))
	require.NoError(t, w.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:HeaderSize+100], 0o644))

	_, err = OpenFile(path)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCorruptDirectory))
}
