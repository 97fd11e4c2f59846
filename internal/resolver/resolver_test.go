package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
)

const alphaDigest = "d34d00000000000000000000000000000000000000000000000000000000beef"

func alphaSpec() *formula.Spec {
	return &formula.Spec{
		Name:    "alpha",
		Version: "1.0.0",
		License: "MIT",
		Rules: []formula.Rule{{
			Match:       formula.Match{OS: formula.OSMacOS, Arch: formula.ArchARM64},
			URL:         "https://example.com/releases/v{version}/alpha-macos-arm64",
			SHA256:      alphaDigest,
			InstallName: "alpha",
		}},
	}
}

// TestResolve_AlphaScenario resolves the single-rule package on its platform and off it.
func TestResolve_AlphaScenario(t *testing.T) {
	t.Parallel()

	spec := alphaSpec()
	require.NoError(t, formula.Validate(spec))

	sel, err := Resolve(spec, formula.Target{OS: formula.OSMacOS, Arch: formula.ArchARM64})
	require.NoError(t, err)
	require.Equal(t, "https://example.com/releases/v1.0.0/alpha-macos-arm64", sel.URL)
	require.Equal(t, alphaDigest, sel.Digest)
	require.Equal(t, "alpha", sel.InstallName)
	require.Equal(t, formula.CompressionNone, sel.Compression)

	_, err = Resolve(spec, formula.Target{OS: formula.OSLinux, Arch: formula.ArchX8664})
	require.ErrorIs(t, err, formula.ErrUnsupportedPlatform)

	var unsupported *formula.UnsupportedPlatformError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "linux/x86_64", unsupported.Target.String())
}

// TestResolve_TotalAndUnique checks that each declared target yields exactly one selection
// and that every other target, known or not, fails cleanly.
func TestResolve_TotalAndUnique(t *testing.T) {
	t.Parallel()

	base := "https://example.com/v{version}/tool-"
	spec := &formula.Spec{
		Name:    "tool",
		Version: "2.3.4",
		License: "MIT",
		Rules: []formula.Rule{
			{Match: formula.Match{OS: formula.OSMacOS, Arch: formula.ArchX8664}, URL: base + "macos-amd64", SHA256: strings.Repeat("1", 64), InstallName: "tool"},
			{Match: formula.Match{OS: formula.OSMacOS, Arch: formula.ArchARM64}, URL: base + "macos-arm64", SHA256: strings.Repeat("2", 64), InstallName: "tool"},
			{Match: formula.Match{OS: formula.OSLinux, Arch: formula.ArchX8664}, URL: base + "linux", SHA256: strings.Repeat("3", 64), InstallName: "tool"},
		},
	}
	require.NoError(t, formula.Validate(spec))

	matrix, err := Matrix(spec)
	require.NoError(t, err)
	require.Len(t, matrix, 3)

	urls := make(map[string]struct{})
	for _, sel := range matrix {
		urls[sel.URL] = struct{}{}
	}

	require.Len(t, urls, 3)

	supported := make(map[formula.Target]bool)
	for _, target := range spec.SupportedTargets() {
		supported[target] = true
	}

	all := append(formula.KnownTargets(),
		formula.Target{OS: formula.OSUnknown, Arch: formula.ArchUnknown},
		formula.Target{OS: formula.OSMacOS, Arch: formula.ArchUnknown},
	)

	for _, target := range all {
		sel, err := Resolve(spec, target)
		if supported[target] {
			require.NoError(t, err, target.String())
			require.NotNil(t, sel)

			continue
		}

		require.ErrorIs(t, err, formula.ErrUnsupportedPlatform, target.String())
	}
}

// TestResolve_FirstMatchWins documents the deterministic outcome for a defective, overlapping table.
func TestResolve_FirstMatchWins(t *testing.T) {
	t.Parallel()

	spec := alphaSpec()
	spec.Rules = append(spec.Rules, formula.Rule{
		Match:       formula.Match{OS: formula.OSMacOS},
		URL:         "https://example.com/releases/v{version}/alpha-macos-universal",
		SHA256:      strings.Repeat("e", 64),
		InstallName: "alpha",
	})

	require.ErrorIs(t, formula.Validate(spec), formula.ErrInvalidFormula)

	for range 5 {
		sel, err := Resolve(spec, formula.Target{OS: formula.OSMacOS, Arch: formula.ArchARM64})
		require.NoError(t, err)
		require.Equal(t, alphaDigest, sel.Digest)
	}
}

// TestResolve_WildcardScript resolves an interpreter-hosted script on any platform.
func TestResolve_WildcardScript(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("#!/usr/bin/env python3\n"))
	spec := &formula.Spec{
		Name:     "gh-pr2org",
		Version:  "1.0.0",
		License:  "MIT",
		Launcher: &formula.LauncherSpec{Interpreter: []string{"uv", "run"}},
		Test:     formula.SmokeTest{ExitCodes: []int{2}},
		Rules: []formula.Rule{{
			URL:         "https://github.com/sam-phinizy/homebrew-beer-hall/releases/download/gh-pr2org/v{version}/gh-pr2org.py",
			SHA256:      hex.EncodeToString(sum[:]),
			InstallName: "gh-pr2org.py",
		}},
	}
	require.NoError(t, formula.Validate(spec))

	sel, err := Resolve(spec, formula.Target{OS: formula.OSLinux, Arch: formula.ArchARM64})
	require.NoError(t, err)
	require.Equal(t, "https://github.com/sam-phinizy/homebrew-beer-hall/releases/download/gh-pr2org/v1.0.0/gh-pr2org.py", sel.URL)
	require.NotNil(t, sel.Launcher)
	require.Equal(t, []int{2}, sel.Test.ExitCodes)
	require.Equal(t, "usage", sel.Test.Marker)
}

// TestResolve_WildcardRejectsUnknownTargets keeps a match-anything rule inside the known grid.
func TestResolve_WildcardRejectsUnknownTargets(t *testing.T) {
	t.Parallel()

	spec := &formula.Spec{
		Name:     "gh-pr2org",
		Version:  "1.0.0",
		License:  "MIT",
		Launcher: &formula.LauncherSpec{Interpreter: []string{"uv", "run"}},
		Rules: []formula.Rule{{
			URL:         "https://example.com/v{version}/gh-pr2org.py",
			SHA256:      strings.Repeat("a", 64),
			InstallName: "gh-pr2org.py",
		}},
	}
	require.NoError(t, formula.Validate(spec))

	unknown := []formula.Target{
		{OS: formula.OSUnknown, Arch: formula.ArchUnknown},
		{OS: formula.OSLinux, Arch: formula.ArchUnknown},
		{OS: formula.OSUnknown, Arch: formula.ArchARM64},
	}

	for _, target := range unknown {
		sel, err := Resolve(spec, target)
		require.Nil(t, sel, target.String())
		require.ErrorIs(t, err, formula.ErrUnsupportedPlatform, target.String())
	}

	for _, target := range formula.KnownTargets() {
		_, err := Resolve(spec, target)
		require.NoError(t, err, target.String())
	}
}

// TestResolve_DeclaredPlatformsBound limits a wildcard rule to the declared platforms.
func TestResolve_DeclaredPlatformsBound(t *testing.T) {
	t.Parallel()

	spec := &formula.Spec{
		Name:      "tool",
		Version:   "1.0.0",
		License:   "MIT",
		Platforms: []formula.Target{{OS: formula.OSLinux, Arch: formula.ArchX8664}},
		Rules: []formula.Rule{{
			Match:       formula.Match{OS: formula.OSLinux},
			URL:         "https://example.com/v{version}/tool",
			SHA256:      strings.Repeat("b", 64),
			InstallName: "tool",
		}},
	}

	_, err := Resolve(spec, formula.Target{OS: formula.OSLinux, Arch: formula.ArchX8664})
	require.NoError(t, err)

	_, err = Resolve(spec, formula.Target{OS: formula.OSLinux, Arch: formula.ArchARM64})
	require.ErrorIs(t, err, formula.ErrUnsupportedPlatform)
}
