package cmd

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/Alain-L/lognorm/parser"
)

// collectFiles gathers all log files from the provided arguments.
// Arguments can be:
//   - Individual files
//   - Glob patterns, with ** matching any number of directories
//   - Directories (scanned recursively for log files and archives)
//
// Duplicates are dropped; the order of the arguments is kept.
func collectFiles(args []string, log *zap.Logger) []string {
	var files []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			files = append(files, name)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			dirFiles, err := gatherLogFiles(arg)
			if err != nil {
				log.Warn("failed to read directory", zap.String("dir", arg), zap.Error(err))
				continue
			}
			for _, f := range dirFiles {
				add(f)
			}
			continue
		}
		if err == nil {
			add(arg)
			continue
		}

		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			log.Warn("invalid pattern", zap.String("pattern", arg), zap.Error(err))
			continue
		}
		if len(matches) == 0 {
			log.Warn("no files match pattern", zap.String("pattern", arg))
			continue
		}
		for _, m := range matches {
			add(m)
		}
	}
	return files
}

// gatherLogFiles scans a directory tree for log files and archives.
func gatherLogFiles(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "**/*", doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, err
	}

	var logFiles []string
	for _, m := range matches {
		if parser.IsLogFile(m) || parser.IsArchive(m) {
			logFiles = append(logFiles, filepath.Join(dir, filepath.FromSlash(m)))
		}
	}
	sort.Strings(logFiles)
	return logFiles, nil
}

// calculateTotalFileSize computes the total size of all input files.
func calculateTotalFileSize(files []string) int64 {
	var total int64
	for _, file := range files {
		if fi, err := os.Stat(file); err == nil {
			total += fi.Size()
		}
	}
	return total
}
