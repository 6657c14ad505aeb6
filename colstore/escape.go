package colstore

import (
	"bytes"
	"fmt"
)

// escapeNUL rewrites p so it contains no NUL bytes: '\' becomes `\\` and NUL becomes `\0`.
func escapeNUL(p []byte) []byte {
	if bytes.IndexByte(p, 0) < 0 && bytes.IndexByte(p, '\\') < 0 {
		return p
	}
	out := make([]byte, 0, len(p)+len(p)/8)
	for _, b := range p {
		switch b {
		case '\\':
			out = append(out, '\\', '\\')
		case 0:
			out = append(out, '\\', '0')
		default:
			out = append(out, b)
		}
	}
	return out
}

// unescapeNUL reverses escapeNUL.
func unescapeNUL(p []byte) ([]byte, error) {
	if bytes.IndexByte(p, '\\') < 0 {
		return p, nil
	}
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		if p[i] != '\\' {
			out = append(out, p[i])
			continue
		}
		i++
		if i == len(p) {
			return nil, fmt.Errorf("dangling escape at byte %d", i-1)
		}
		switch p[i] {
		case '\\':
			out = append(out, '\\')
		case '0':
			out = append(out, 0)
		default:
			return nil, fmt.Errorf("invalid escape %q at byte %d", p[i], i-1)
		}
	}
	return out, nil
}
