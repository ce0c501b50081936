//go:build !js

package parser

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bodgit/sevenzip"
)

type archiveKind int

const (
	archiveNone archiveKind = iota
	archiveTar
	archive7z
)

func archiveOf(name string) archiveKind {
	lower := strings.ToLower(name)
	for _, s := range []string{".tar", ".tar.gz", ".tgz", ".tar.zst", ".tar.zstd", ".tzst"} {
		if strings.HasSuffix(lower, s) {
			return archiveTar
		}
	}
	if strings.HasSuffix(lower, ".7z") {
		return archive7z
	}
	return archiveNone
}

// IsArchive reports whether Open walks name as a tar or 7z archive.
func IsArchive(name string) bool {
	return archiveOf(name) != archiveNone
}

// skippable reports whether a member error should not stop the walk.
func skippable(err error) bool {
	return errors.Is(err, ErrBinaryFile) || errors.Is(err, ErrCompressionFailed)
}

// walkTar streams the log members of a tar archive, compressed or not.
func walkTar(filename string, fn SourceFunc) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open tar archive %s: %w", filename, err)
	}
	defer file.Close()

	r, closeFn, _, err := unwrap(file)
	if err != nil {
		return fmt.Errorf("tar archive %s: %w", filename, err)
	}
	defer closeFn()

	var skipped []error
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading archive %s: %w", filename, err)
		}
		if hdr.Typeflag != tar.TypeReg || hdr.Size == 0 || !IsLogFile(hdr.Name) {
			continue
		}

		err = OpenReader(filename+":"+hdr.Name, io.LimitReader(tr, hdr.Size), fn)
		if err != nil && !skippable(err) {
			return err
		}
		if err != nil {
			skipped = append(skipped, err)
		}
	}
	return errors.Join(skipped...)
}

// walk7z streams the log members of a 7z archive.
func walk7z(filename string, fn SourceFunc) error {
	r, err := sevenzip.OpenReader(filename)
	if err != nil {
		return fmt.Errorf("failed to open 7z archive %s: %w", filename, err)
	}
	defer r.Close()

	var skipped []error
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !IsLogFile(f.Name) {
			continue
		}
		err := open7zMember(filename, f, fn)
		if err != nil && !skippable(err) {
			return err
		}
		if err != nil {
			skipped = append(skipped, err)
		}
	}
	return errors.Join(skipped...)
}

func open7zMember(filename string, f *sevenzip.File, fn SourceFunc) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%s:%s: %w: %v", filename, f.Name, ErrCompressionFailed, err)
	}
	defer rc.Close()
	return OpenReader(filename+":"+f.Name, rc, fn)
}
