package cmd

import "runtime"

// determineWorkerCount returns the number of files classified in parallel.
// A positive configured value wins, capped by the number of files.
// Otherwise:
//   - Single file: no parallelism
//   - Multiple files: up to NumCPU/2 workers, at least 2 and at most 4, to
//     leave room for the filter, analysis and rendering goroutines
//   - Never more workers than files
func determineWorkerCount(numFiles, configured int) int {
	if numFiles <= 1 {
		return 1
	}
	if configured > 0 {
		return min(configured, numFiles)
	}

	maxWorkers := runtime.NumCPU() / 2
	if maxWorkers < 2 {
		maxWorkers = 2
	}
	if maxWorkers > 4 {
		maxWorkers = 4
	}
	return min(numFiles, maxWorkers)
}
