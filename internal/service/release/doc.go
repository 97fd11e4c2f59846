// Package release automates publishing a tool from the tap: it parses a
// "tool/vX.Y.Z" tag, locates and hashes the tool's script, renders release
// notes, bumps the tool's formula and creates the GitHub release with gh.
package release
