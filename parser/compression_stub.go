//go:build js

package parser

import (
	"fmt"
	"io"
)

// Open is not available in WASM builds: the browser hands content over
// directly.
func Open(path string, fn SourceFunc) error {
	return fmt.Errorf("%s: %w", path, ErrUnsupportedInput)
}

// OpenReader hands r to fn. The browser decompresses content before passing
// it to WASM.
func OpenReader(name string, r io.Reader, fn SourceFunc) error {
	return plain(name, r, fn)
}
