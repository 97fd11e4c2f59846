// Package version exposes build metadata for beer-hall.
//
// Version, Commit and BuildTime are injected with -ldflags "-X ..." at build
// time. Full is printed by the version command; UserAgent is sent with every
// artifact download.
package version
