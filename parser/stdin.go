package parser

import "io"

// StdinName is the stream name used for standard input.
const StdinName = "-"

// Stdin hands standard input, passed as r, to fn. It is decompressed when
// it starts with a gzip or zstd header.
func Stdin(r io.Reader, fn SourceFunc) error {
	return OpenReader(StdinName, r, fn)
}
