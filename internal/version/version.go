// Package version holds build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X todomanager/internal/version.Version=v1.2.0"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a one-line description of the build.
func Info() string {
	return fmt.Sprintf("todomanager %s (commit %s, built %s, %s)", Version, commit(), Date, runtime.Version())
}

// commit falls back to the VCS revision recorded by the Go toolchain.
func commit() string {
	if Commit != "none" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				if len(s.Value) > 12 {
					return s.Value[:12]
				}
				return s.Value
			}
		}
	}
	return Commit
}
