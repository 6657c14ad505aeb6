// Package format provides the container file format and the mmap-backed reader
// used by colstore.Create, colstore.Open and colstore.Container.Finalize.
//
// The file format consists of:
//   - Header (64 bytes): magic, version, section count, directory location, container UUID
//   - Section payloads: fixed-width record tables and paged (optionally zstd) blob arrays
//   - Section directory: name, kind, offset, length, record size and count per section,
//     followed by a CRC-32C of the directory bytes
package format
