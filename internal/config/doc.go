// Package config defines the settings used by the beer-hall commands and
// provides helpers to load, validate and save them in YAML format.
//
// Load layers BEER_HALL_* environment variables over the file and fills in
// bounded download and smoke test timeouts when none are configured.
package config
