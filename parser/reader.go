package parser

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// maxKeptLine is the number of bytes of a line a stream keeps. It holds an
// oversized message and its remnant even in 4-byte characters; the rest of
// the line is counted and skipped.
const maxKeptLine = 8 * MaxLineLength

// Stream describes one log stream: where it comes from and how its lines
// are classified.
type Stream struct {
	Identity
	Name     string
	Fold     bool
	Override string
}

// streamer classifies the lines of one stream in order. It owns the
// stream's ScanState and reassembles CRI partial lines when the stream
// turns out to be in the CRI file format.
type streamer struct {
	engine *Engine
	stream Stream
	state  ScanState
	cri    criJoiner

	detected bool
	isCRI    bool
	n        int
}

func newStreamer(e *Engine, s Stream) *streamer {
	return &streamer{engine: e, stream: s}
}

// line classifies the next raw line. The second result is false while a CRI
// partial line is being reassembled.
// dropped counts the characters the reader cut from the end of text.
func (st *streamer) line(text string, dropped int) (Record, bool) {
	st.n++
	if !st.detected && strings.TrimSpace(text) != "" {
		_, _, _, st.isCRI = splitCRI(text)
		st.detected = true
	}
	number := st.n
	if st.isCRI {
		var ok bool
		if text, number, dropped, ok = st.cri.add(text, st.n, dropped); !ok {
			return Record{}, false
		}
	}
	return st.classify(text, number, dropped), true
}

// flush classifies an unterminated partial line left at the end of input.
func (st *streamer) flush() (Record, bool) {
	text, number, dropped, ok := st.cri.flush()
	if !ok {
		return Record{}, false
	}
	return st.classify(text, number, dropped), true
}

func (st *streamer) classify(text string, number, dropped int) Record {
	rec := st.engine.Classify(&st.state, Request{
		Identity:   st.stream.Identity,
		Line:       text,
		LineNumber: number,
		Dropped:    dropped,
		Fold:       st.stream.Fold,
		Override:   st.stream.Override,
	})
	rec.Source = st.stream.Name
	return rec
}

// Stream reads r to the end and sends one Record per line to out. The
// caller owns out and closes it.
func (e *Engine) Stream(ctx context.Context, s Stream, r io.Reader, out chan<- Record) error {
	st := newStreamer(e, s)
	send := func(rec Record) error {
		select {
		case out <- rec:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	lr := newLineReader(r)
	var readErr error
	for {
		text, dropped, err := lr.next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = fmt.Errorf("reading %s: %w", s.Name, err)
			}
			break
		}
		if rec, ok := st.line(text, dropped); ok {
			if err := send(rec); err != nil {
				return err
			}
		}
	}
	if rec, ok := st.flush(); ok {
		if err := send(rec); err != nil {
			return err
		}
	}
	return readErr
}

// lineReader reads lines of any length. Of each line it keeps at most
// maxKeptLine bytes, cut on a character boundary, and counts the characters
// of the rest.
type lineReader struct {
	br   *bufio.Reader
	line []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReaderSize(r, 64*1024)}
}

// next returns the next line without its line ending, along with the
// number of characters dropped from it. It returns io.EOF at the end of
// input.
func (lr *lineReader) next() (string, int, error) {
	lr.line = lr.line[:0]
	dropped, full, read := 0, false, false
	for {
		chunk, err := lr.br.ReadSlice('\n')
		read = read || len(chunk) > 0
		if err == nil {
			chunk = bytes.TrimSuffix(chunk[:len(chunk)-1], []byte{'\r'})
		}
		var d int
		lr.line, d, full = keepPrefix(lr.line, chunk, full)
		dropped += d

		switch {
		case err == nil:
			return string(lr.line), dropped, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && read:
			return string(lr.line), dropped, nil
		default:
			return "", 0, err
		}
	}
}

// keepPrefix appends chunk to line up to maxKeptLine bytes and returns the
// number of characters left out. A character split by the cut is left out
// whole. Once line is full, later chunks are only counted.
func keepPrefix(line, chunk []byte, full bool) ([]byte, int, bool) {
	if full {
		return line, runeStarts(chunk), true
	}
	room := maxKeptLine - len(line)
	if len(chunk) <= room {
		return append(line, chunk...), 0, false
	}
	line = append(line, chunk[:room]...)
	chunk = chunk[room:]
	dropped := runeStarts(chunk)
	if len(line) > 0 && !utf8.RuneStart(chunk[0]) {
		i := len(line) - 1
		for i > 0 && len(line)-i < utf8.UTFMax && !utf8.RuneStart(line[i]) {
			i--
		}
		if !utf8.FullRune(line[i:]) {
			line = line[:i]
			dropped++
		}
	}
	return line, dropped, true
}

// runeStarts counts the characters in b, each of which has one leading byte.
func runeStarts(b []byte) int {
	n := 0
	for _, c := range b {
		if utf8.RuneStart(c) {
			n++
		}
	}
	return n
}

// ClassifyText classifies every line of content synchronously. It suits
// single-threaded callers such as the WASM build.
func (e *Engine) ClassifyText(s Stream, content string) []Record {
	st := newStreamer(e, s)
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	out := make([]Record, 0, len(lines))
	if content == "" {
		return out
	}
	for _, l := range lines {
		if rec, ok := st.line(l, 0); ok {
			out = append(out, rec)
		}
	}
	if rec, ok := st.flush(); ok {
		out = append(out, rec)
	}
	return out
}
