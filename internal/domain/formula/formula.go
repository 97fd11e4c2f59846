package formula

import (
	"slices"
	"time"
)

// Compression names how a downloaded artifact is packed.
type Compression string

// Supported artifact compressions.
const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
	CompressionXZ   Compression = "xz"
)

const (
	// VersionPlaceholder is the only token allowed in URL templates.
	VersionPlaceholder = "{version}"

	// DefaultTestMarker is expected in smoke test output when a formula names none.
	DefaultTestMarker = "usage"

	// DefaultTestFlag is passed to the installed command when a formula names no args.
	DefaultTestFlag = "--help"
)

// Spec describes one released version of a package.
type Spec struct {
	// Name is the public command and package name.
	Name string `json:"name" yaml:"name"`
	// Description is a one-line summary shown by list.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Version is an X.Y.Z release version.
	Version string `json:"version" yaml:"version"`
	// Homepage is the project URL.
	Homepage string `json:"homepage" yaml:"homepage"`
	// License is an SPDX identifier.
	License string `json:"license" yaml:"license"`
	// Platforms lists the targets the package claims to support.
	// When empty, it is derived from the rules.
	Platforms []Target `json:"platforms,omitempty" yaml:"platforms,omitempty"`
	// Rules is the ordered artifact table. The first matching rule wins.
	Rules []Rule `json:"artifacts" yaml:"artifacts"`
	// Launcher is set for interpreter-hosted packages.
	Launcher *LauncherSpec `json:"launcher,omitempty" yaml:"launcher,omitempty"`
	// Test is the post-install smoke test.
	Test SmokeTest `json:"test" yaml:"test"`
	// DependsOn names runtime prerequisites. They are reported, not installed.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// Match is the predicate half of a rule. An empty field matches any value.
type Match struct {
	OS   OS   `json:"os,omitempty"   yaml:"os,omitempty"`
	Arch Arch `json:"arch,omitempty" yaml:"arch,omitempty"`
}

// Matches reports whether the predicate accepts the target. It never fails.
func (m Match) Matches(t Target) bool {
	if m.OS != "" && m.OS != t.OS {
		return false
	}

	if m.Arch != "" && m.Arch != t.Arch {
		return false
	}

	return true
}

// String renders the predicate with "*" for wildcards.
func (m Match) String() string {
	o, a := string(m.OS), string(m.Arch)
	if o == "" {
		o = "*"
	}

	if a == "" {
		a = "*"
	}

	return o + "/" + a
}

// Rule pairs a platform predicate with the artifact served for it.
type Rule struct {
	Match `yaml:",inline"`

	// URL is a template containing exactly one {version} placeholder.
	URL string `json:"url" yaml:"url"`
	// SHA256 is the lowercase hex digest of the published artifact.
	SHA256 string `json:"sha256" yaml:"sha256"`
	// InstallName is the file name the artifact gets once installed.
	InstallName string `json:"install_name" yaml:"install_name"`
	// Compression is how the artifact is packed; empty means none.
	Compression Compression `json:"compression,omitempty" yaml:"compression,omitempty"`
	// SignatureURL optionally points to a detached armored OpenPGP signature.
	SignatureURL string `json:"signature_url,omitempty" yaml:"signature_url,omitempty"`
}

// LauncherSpec describes how an interpreter-hosted payload is invoked.
type LauncherSpec struct {
	// Interpreter is the command prefix, e.g. ["uv", "run"].
	Interpreter []string `json:"interpreter" yaml:"interpreter"`
}

// SmokeTest declares how the installed command is checked.
type SmokeTest struct {
	// Args are passed to the command; defaults to ["--help"].
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
	// ExitCodes is the allow-list of exit statuses; defaults to [0].
	ExitCodes []int `json:"exit_codes,omitempty" yaml:"exit_codes,omitempty"`
	// Marker must appear in the combined output; defaults to "usage".
	Marker string `json:"marker,omitempty" yaml:"marker,omitempty"`
}

// WithDefaults returns a copy with empty fields filled in.
func (s SmokeTest) WithDefaults() SmokeTest {
	out := SmokeTest{
		Args:      slices.Clone(s.Args),
		ExitCodes: slices.Clone(s.ExitCodes),
		Marker:    s.Marker,
	}

	if len(out.Args) == 0 {
		out.Args = []string{DefaultTestFlag}
	}

	if len(out.ExitCodes) == 0 {
		out.ExitCodes = []int{0}
	}

	if out.Marker == "" {
		out.Marker = DefaultTestMarker
	}

	return out
}

// AcceptsExitCode reports whether code is in the allow-list (after defaults).
func (s SmokeTest) AcceptsExitCode(code int) bool {
	return slices.Contains(s.WithDefaults().ExitCodes, code)
}

// SupportedTargets returns the declared platforms, or every known target
// matched by some rule when none are declared.
func (s *Spec) SupportedTargets() []Target {
	if len(s.Platforms) > 0 {
		return slices.Clone(s.Platforms)
	}

	var targets []Target

	for _, t := range KnownTargets() {
		for _, r := range s.Rules {
			if r.Matches(t) {
				targets = append(targets, t)
				break
			}
		}
	}

	return targets
}

// Selection is the resolved artifact for one package on one target.
type Selection struct {
	Package      string
	Version      string
	Target       Target
	URL          string
	Digest       string
	InstallName  string
	Compression  Compression
	SignatureURL string
	Launcher     *LauncherSpec
	Test         SmokeTest
}

// InstalledBinary describes a completed install.
type InstalledBinary struct {
	// Package and Version identify what was installed.
	Package string
	Version string
	// Command is the public executable path (binary or launcher).
	Command string
	// Payload is where the artifact itself lives; equal to Command for native binaries.
	Payload string
	// Digest is the verified SHA-256 of the downloaded artifact.
	Digest string
	// InstalledAt is when placement finished.
	InstalledAt time.Time
	// Test is the smoke test the formula declared.
	Test SmokeTest
}

// Summary describes one package in a registry listing.
type Summary struct {
	Name        string
	Description string
	Homepage    string
	// Latest is the highest registered version; Versions lists all of them ascending.
	Latest    string
	Versions  []string
	Platforms []Target
}
