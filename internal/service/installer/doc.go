// Package installer places verified artifacts under an install root and runs
// the full install pipeline: resolve, download, verify, place, record, test.
//
// Placement never writes the destination before the payload's digest has
// been verified, applies the file atomically with a second checksum gate,
// and serializes installs of the same package with a lock marker.
package installer
