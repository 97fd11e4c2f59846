// Package smoketest runs an installed command with its declared arguments
// and judges the result by exit status and an output marker.
package smoketest
