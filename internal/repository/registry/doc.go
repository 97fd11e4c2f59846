// Package registry loads the tap's formula files into a versioned registry.
//
// Formula files are YAML or TOML. Each document is converted to JSON,
// checked against the embedded JSON Schema and then against the domain
// validation in package formula, so authoring defects (bad digests,
// overlapping or missing platform rules) fail at load time rather than at
// install time. Multiple versions of a package coexist.
package registry
