package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"
)

// sampleBufferSize is how much of a stream is inspected before it is
// classified line by line.
const sampleBufferSize = 16 * 1024

var (
	// ErrBinaryFile is returned for streams that do not look like text.
	ErrBinaryFile = errors.New("binary content is not supported")

	// ErrUnsupportedInput is returned for inputs this build cannot open.
	ErrUnsupportedInput = errors.New("unsupported input")
)

// SourceFunc receives one log stream found in an input. name identifies the
// stream: the file name, or "archive:member" for archive members.
type SourceFunc func(name string, r io.Reader) error

// plain hands r to fn after checking that it starts like text.
func plain(name string, r io.Reader, fn SourceFunc) error {
	br, ok := r.(*bufio.Reader)
	if !ok || br.Size() < sampleBufferSize {
		br = bufio.NewReaderSize(r, sampleBufferSize)
	}
	head, err := peek(br)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if isBinaryContent(head) {
		return fmt.Errorf("%s: %w", name, ErrBinaryFile)
	}
	return fn(name, br)
}

// peek returns up to sampleBufferSize bytes without consuming them.
func peek(br *bufio.Reader) ([]byte, error) {
	head, err := br.Peek(sampleBufferSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return head, nil
}

// isBinaryContent reports whether sample looks like binary data: it holds a
// NUL byte, or more than one byte in ten is a control character or part of
// an invalid UTF-8 sequence. Escape sequences used for terminal colours are
// common in container logs and are not counted.
func isBinaryContent(sample []byte) bool {
	if len(sample) == 0 {
		return false
	}
	bad := 0
	for i := 0; i < len(sample); {
		c := sample[i]
		if c == 0 {
			return true
		}
		if c < utf8.RuneSelf {
			if c < 0x20 && c != '\t' && c != '\n' && c != '\r' && c != '\f' && c != '\v' && c != 0x1b {
				bad++
			}
			i++
			continue
		}
		r, size := utf8.DecodeRune(sample[i:])
		if r == utf8.RuneError && size == 1 {
			// A sequence cut by the end of the sample is not an error.
			if len(sample)-i >= utf8.UTFMax {
				bad++
			}
		}
		i += size
	}
	return bad*10 > len(sample)
}

// IsLogFile reports whether a file or archive member name looks like a log.
// Compression suffixes are ignored, and rotated kubelet logs such as
// "0.log.20240514-090155" are accepted.
func IsLogFile(name string) bool {
	base := strings.ToLower(path.Base(name))
	for _, suffix := range []string{".gz", ".zst", ".zstd", ".lz4", ".sz"} {
		base = strings.TrimSuffix(base, suffix)
	}
	if strings.Contains(base, ".log") {
		return true
	}
	for _, ext := range []string{".txt", ".json", ".ndjson", ".jsonl", ".out", ".err"} {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}
