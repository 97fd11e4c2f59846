// Package resolve looks a package up, locally in the formula directory or
// remotely through a registry server, and selects its artifact for a target.
package resolve
