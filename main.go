// Package main is the entry point for the lognorm application.
// lognorm normalizes Kubernetes container logs: it selects a parser per
// container, maps severities onto one scale and extracts readable messages.
package main

import (
	"log"
	"os"
	"runtime/pprof"

	"github.com/Alain-L/lognorm/cmd"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	// CPU profiling
	if cpuProfile := os.Getenv("CPUPROFILE"); cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
		defer pprof.StopCPUProfile()
	}

	// Memory profiling
	if memProfile := os.Getenv("MEMPROFILE"); memProfile != "" {
		f, err := os.Create(memProfile)
		if err != nil {
			log.Fatal(err)
		}
		defer func() {
			pprof.WriteHeapProfile(f)
			f.Close()
		}()
	}

	cmd.Execute(version, commit, date)
}
