// Package server runs the registry gRPC server over a formula directory.
package server
