// Package buildinfo exposes build information for snapetl.
//
// Version, Commit and BuildTime are injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/snapetl-go/internal/infra/buildinfo.Version=v0.3.0"
//
// GoVersion and, when ldflags are absent, the VCS revision are read from the
// binary's embedded build information.
package buildinfo
