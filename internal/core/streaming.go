package core

// streaming.go provides the readers an imported file is passed through before
// it reaches the CSV parser. None of them buffer the whole file:
//
//   - SizeLimitReader: fails with ErrFileTooLarge past the import limit
//   - SkipBOM: drops the UTF-8 byte order mark Excel writes
//   - UTF8Sanitizer: replaces invalid UTF-8 bytes with '?'
//
// Use WrapForImport to apply all of them in the correct order.

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrFileTooLarge is returned once more than the allowed number of bytes has
// been read.
var ErrFileTooLarge = errors.New("file too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SizeLimitReader counts the bytes read from r and fails once they exceed max.
type SizeLimitReader struct {
	r    io.Reader
	max  int64
	read int64
}

// NewSizeLimitReader limits r to max bytes. A non-positive max disables the
// limit.
func NewSizeLimitReader(r io.Reader, max int64) *SizeLimitReader {
	return &SizeLimitReader{r: r, max: max}
}

func (l *SizeLimitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.max > 0 && l.read > l.max {
		return 0, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, l.max)
	}
	return n, err
}

// BytesRead returns the number of raw bytes consumed so far.
func (l *SizeLimitReader) BytesRead() int64 {
	return l.read
}

// SkipBOM returns a reader over r without a leading UTF-8 byte order mark.
// Read errors hit while looking for the mark are returned by the first Read.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// UTF8Sanitizer replaces every byte that is not part of a valid UTF-8
// sequence with '?'. Sequences split across reads are carried over, so the
// output never grows beyond the input.
type UTF8Sanitizer struct {
	r       io.Reader
	scratch [4096]byte
	in      []byte // raw bytes not yet decoded
	out     []byte // sanitized bytes not yet returned
	err     error
}

// NewUTF8Sanitizer wraps r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{r: r}
}

func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.out) == 0 {
		if s.err != nil {
			if len(s.in) == 0 {
				return 0, s.err
			}
			s.decode(true)
			continue
		}
		n, err := s.r.Read(s.scratch[:])
		s.in = append(s.in, s.scratch[:n]...)
		s.err = err
		s.decode(err != nil)
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// decode moves complete sequences from in to out. Unless final, a trailing
// incomplete sequence stays in in until more bytes arrive.
func (s *UTF8Sanitizer) decode(final bool) {
	i := 0
	for i < len(s.in) {
		b := s.in[i]
		if b < utf8.RuneSelf {
			s.out = append(s.out, b)
			i++
			continue
		}
		if !final && !utf8.FullRune(s.in[i:]) {
			break
		}
		r, size := utf8.DecodeRune(s.in[i:])
		if r == utf8.RuneError && size == 1 {
			s.out = append(s.out, '?')
		} else {
			s.out = append(s.out, s.in[i:i+size]...)
		}
		i += size
	}
	s.in = append(s.in[:0], s.in[i:]...)
}

// WrapForImport applies the size limit to the raw bytes, then strips the BOM,
// then sanitizes the encoding. The returned SizeLimitReader reports progress.
func WrapForImport(r io.Reader, maxBytes int64) (io.Reader, *SizeLimitReader) {
	limited := NewSizeLimitReader(r, maxBytes)
	return NewUTF8Sanitizer(SkipBOM(limited)), limited
}
