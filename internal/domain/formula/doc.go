// Package formula defines the tap's domain model: package specs, the ordered
// table of per-platform artifact rules, platform targets, smoke tests and the
// error taxonomy shared by the resolver, the installer and the release tooling.
//
// Specs are immutable once loaded. Validate checks them at authoring time so
// that resolution at install time is total and deterministic.
package formula
