//go:build !js

package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/pierrec/lz4/v4"
)

// ErrCompressionFailed indicates a failure reading compressed content.
var ErrCompressionFailed = errors.New("failed to read compressed stream")

// compressionCodec defines how to recognize and stream a compressed format.
type compressionCodec struct {
	name     string
	magic    []byte
	suffixes []string
	opener   func(io.Reader) (io.ReadCloser, error)
}

var codecs = []compressionCodec{
	{
		name:     "gzip",
		magic:    []byte{0x1f, 0x8b},
		suffixes: []string{".gz"},
		opener: func(r io.Reader) (io.ReadCloser, error) {
			return newParallelGzipReader(r)
		},
	},
	{
		name:     "zstd",
		magic:    []byte{0x28, 0xb5, 0x2f, 0xfd},
		suffixes: []string{".zst", ".zstd"},
		opener: func(r io.Reader) (io.ReadCloser, error) {
			return newZstdDecoder(r)
		},
	},
	{
		name:     "lz4",
		magic:    []byte{0x04, 0x22, 0x4d, 0x18},
		suffixes: []string{".lz4"},
		opener: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(lz4.NewReader(r)), nil
		},
	},
	{
		// Framed format only; raw snappy blocks carry no magic number.
		name:     "snappy",
		magic:    []byte("\xff\x06\x00\x00sNaPpY"),
		suffixes: []string{".sz"},
		opener: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(snappy.NewReader(r)), nil
		},
	},
}

// compressionSuffixes lists the file name suffixes of every codec.
func compressionSuffixes() []string {
	var out []string
	for _, c := range codecs {
		out = append(out, c.suffixes...)
	}
	return out
}

// IsCompressed reports whether name carries the suffix of a supported
// compression format.
func IsCompressed(name string) bool {
	return trimSuffixes(name, compressionSuffixes()) != name
}

// Open calls fn for every log stream found at path, in order. A plain or
// compressed file is one stream; tar and 7z archives yield one stream per
// log member. Members that cannot be read are skipped and reported in the
// returned error once the archive is done. An error returned by fn stops
// the walk.
func Open(path string, fn SourceFunc) error {
	switch archiveOf(path) {
	case archiveTar:
		return walkTar(path, fn)
	case archive7z:
		return walk7z(path, fn)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return OpenReader(path, f, fn)
}

// OpenReader decompresses gzip, zstd, lz4 or snappy content, recognized by its magic
// number, and hands the text stream to fn.
func OpenReader(name string, r io.Reader, fn SourceFunc) error {
	dr, closeFn, codec, err := unwrap(r)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer closeFn()
	if codec != nil {
		name = trimSuffixes(name, codec.suffixes)
	}
	return plain(name, dr, fn)
}

// unwrap peeks at r and returns a reader over its decompressed content. The
// codec is nil when r is not compressed.
func unwrap(r io.Reader) (io.Reader, func() error, *compressionCodec, error) {
	br := bufio.NewReaderSize(r, sampleBufferSize)
	head, err := peek(br)
	if err != nil {
		return nil, nil, nil, err
	}
	for i := range codecs {
		c := &codecs[i]
		if !bytes.HasPrefix(head, c.magic) {
			continue
		}
		dr, err := c.opener(br)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %s: %v", ErrCompressionFailed, c.name, err)
		}
		return dr, dr.Close, c, nil
	}
	return br, func() error { return nil }, nil, nil
}

func trimSuffixes(name string, suffixes []string) string {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s) {
			return name[:len(name)-len(s)]
		}
	}
	return name
}

// newParallelGzipReader returns a pgzip reader configured for parallel decompression.
func newParallelGzipReader(r io.Reader) (*pgzip.Reader, error) {
	threads := runtime.GOMAXPROCS(0)
	if threads < 1 {
		threads = 1
	}
	if threads > 8 {
		threads = 8 // cap to avoid excessive goroutine churn on large hosts
	}

	const blockSize = 1 << 20
	return pgzip.NewReaderN(r, blockSize, threads)
}

type zstdReadCloser struct {
	*zstd.Decoder
}

func (z *zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// newZstdDecoder returns a zstd decoder configured for streaming decompression.
func newZstdDecoder(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return &zstdReadCloser{Decoder: dec}, nil
}
