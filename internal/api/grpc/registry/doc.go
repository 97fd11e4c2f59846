// Package registry implements the gRPC transport for the formula registry.
//
// Messages travel as google.protobuf.Struct documents, so the service is
// described by hand instead of by generated stubs. Helpers here convert
// domain types to and from those documents for both server and client.
package registry
