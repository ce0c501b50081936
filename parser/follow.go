//go:build !js

package parser

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Follow classifies the file at path like Stream, then keeps waiting for
// new lines until ctx is done. A truncated file is read again from the
// start; a file replaced by rotation is reopened.
func (e *Engine) Follow(ctx context.Context, s Stream, path string, out chan<- Record) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	defer w.Close()
	// The directory is watched so that a recreated file is noticed.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { f.Close() }()

	st := newStreamer(e, s)
	r := bufio.NewReaderSize(f, 64*1024)
	var (
		pending []byte
		dropped int
		full    bool
		offset  int64
	)
	reset := func() {
		pending, dropped, full = pending[:0], 0, false
	}

	emit := func() error {
		line, n := string(bytes.TrimSuffix(pending, []byte{'\r'})), dropped
		reset()
		if rec, ok := st.line(line, n); ok {
			select {
			case out <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}

	// drain classifies the complete lines available. A trailing partial
	// line stays pending until its newline arrives.
	drain := func() error {
		for {
			chunk, err := r.ReadSlice('\n')
			offset += int64(len(chunk))
			if err == nil {
				chunk = chunk[:len(chunk)-1]
			}
			var d int
			pending, d, full = keepPrefix(pending, chunk, full)
			dropped += d
			switch {
			case err == nil:
				if err := emit(); err != nil {
					return err
				}
			case errors.Is(err, bufio.ErrBufferFull):
			case errors.Is(err, io.EOF):
				return nil
			default:
				return err
			}
		}
	}

	clean := filepath.Clean(path)
	for {
		if err := drain(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", path, err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != clean {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				nf, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("reopening %s: %w", path, err)
				}
				// Lines written before the rotation are still in the old file.
				if err := drain(); err != nil {
					nf.Close()
					return err
				}
				if len(pending) > 0 || dropped > 0 {
					if err := emit(); err != nil {
						nf.Close()
						return err
					}
				}
				f.Close()
				f = nf
				r.Reset(f)
				offset = 0
			case ev.Has(fsnotify.Write):
				if fi, err := f.Stat(); err == nil && fi.Size() < offset {
					if _, err := f.Seek(0, io.SeekStart); err != nil {
						return fmt.Errorf("rewinding %s: %w", path, err)
					}
					r.Reset(f)
					reset()
					offset = 0
				}
			}
		}
	}
}
