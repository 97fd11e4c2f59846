package formula

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testDigest = "d34d000000000000000000000000000000000000000000000000000000000001"

func gitStackSpec() *Spec {
	base := "https://github.com/sam-phinizy/git-stack/releases/download/v{version}/"

	return &Spec{
		Name:     "git-stack",
		Version:  "0.1.0",
		Homepage: "https://github.com/sam-phinizy/git-stack",
		License:  "MIT",
		Rules: []Rule{
			{Match: Match{OS: OSMacOS, Arch: ArchX8664}, URL: base + "git-stack-macos-amd64", SHA256: strings.Repeat("a", 64), InstallName: "git-stack"},
			{Match: Match{OS: OSMacOS, Arch: ArchARM64}, URL: base + "git-stack-macos-arm64", SHA256: strings.Repeat("b", 64), InstallName: "git-stack"},
			{Match: Match{OS: OSLinux, Arch: ArchX8664}, URL: base + "git-stack-linux", SHA256: strings.Repeat("c", 64), InstallName: "git-stack"},
		},
	}
}

// TestValidate_AcceptsWellFormedSpec checks the happy path.
func TestValidate_AcceptsWellFormedSpec(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate(gitStackSpec()))
}

// TestValidate_ReportsAuthoringDefects covers each class of defect caught at load time.
func TestValidate_ReportsAuthoringDefects(t *testing.T) {
	t.Parallel()

	cases := map[string]func(s *Spec){
		"short digest":      func(s *Spec) { s.Rules[0].SHA256 = "abc" },
		"uppercase digest":  func(s *Spec) { s.Rules[0].SHA256 = strings.Repeat("A", 64) },
		"placeholder":       func(s *Spec) { s.Rules[0].SHA256 = "SHA256_PLACEHOLDER_INTEL" },
		"no placeholder":    func(s *Spec) { s.Rules[0].URL = "https://example.com/x" },
		"two placeholders":  func(s *Spec) { s.Rules[0].URL = "https://example.com/{version}/{version}" },
		"stray brace":       func(s *Spec) { s.Rules[0].URL = "https://example.com/{version}/{arch}" },
		"relative url":      func(s *Spec) { s.Rules[0].URL = "/releases/{version}" },
		"bad version":       func(s *Spec) { s.Version = "v1.0" },
		"bad name":          func(s *Spec) { s.Name = "Git Stack" },
		"missing license":   func(s *Spec) { s.License = "" },
		"no rules":          func(s *Spec) { s.Rules = nil },
		"path install name": func(s *Spec) { s.Rules[0].InstallName = "../git-stack" },
		"unknown os":        func(s *Spec) { s.Rules[0].OS = "plan9" },
		"overlap": func(s *Spec) {
			s.Rules = append(s.Rules, Rule{
				Match:       Match{OS: OSLinux},
				URL:         "https://example.com/{version}",
				SHA256:      testDigest,
				InstallName: "git-stack",
			})
		},
		"declared platform uncovered": func(s *Spec) {
			s.Platforms = []Target{{OS: OSLinux, Arch: ArchARM64}}
		},
		"empty launcher": func(s *Spec) { s.Launcher = &LauncherSpec{} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			spec := gitStackSpec()
			mutate(spec)

			err := Validate(spec)
			require.ErrorIs(t, err, ErrInvalidFormula)
		})
	}
}

// TestSupportedTargets_DerivedFromRules expands wildcard rules over the known grid.
func TestSupportedTargets_DerivedFromRules(t *testing.T) {
	t.Parallel()

	spec := gitStackSpec()
	require.Len(t, spec.SupportedTargets(), 3)

	script := &Spec{Rules: []Rule{{URL: "https://example.com/{version}/x.py"}}}
	require.Equal(t, KnownTargets(), script.SupportedTargets())
}

// TestMatch_TotalOverAllTargets evaluates every predicate against every target, unknowns included.
func TestMatch_TotalOverAllTargets(t *testing.T) {
	t.Parallel()

	targets := append(KnownTargets(),
		Target{OS: OSUnknown, Arch: ArchUnknown},
		Target{OS: OSLinux, Arch: ArchUnknown},
		Target{},
	)

	for _, rule := range gitStackSpec().Rules {
		for _, target := range targets {
			require.NotPanics(t, func() { rule.Matches(target) })
		}
	}

	require.True(t, Match{}.Matches(Target{OS: OSUnknown, Arch: ArchUnknown}))
	require.False(t, Match{OS: OSLinux}.Matches(Target{OS: OSMacOS, Arch: ArchARM64}))
}

// TestRenderURL checks single-token substitution and its guards.
func TestRenderURL(t *testing.T) {
	t.Parallel()

	got, err := RenderURL("https://example.com/alpha/v{version}/alpha-macos-arm64", "1.0.0")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/alpha/v1.0.0/alpha-macos-arm64", got)

	_, err = RenderURL("https://example.com/v{version}", "1.0.0/../../evil")
	require.Error(t, err)

	_, err = RenderURL("ftp://example.com/{version}", "1.0.0")
	require.Error(t, err)
}

// TestCompareVersions checks numeric ordering of release versions.
func TestCompareVersions(t *testing.T) {
	t.Parallel()

	require.Equal(t, -1, CompareVersions("0.9.0", "0.10.0"))
	require.Equal(t, 1, CompareVersions("2.0.0", "1.99.99"))
	require.Equal(t, 0, CompareVersions("1.2.3", "1.2.3"))
	require.Equal(t, -1, CompareVersions("garbage", "0.0.1"))
}

// TestParseTarget maps Go and human spellings and keeps unknown values.
func TestParseTarget(t *testing.T) {
	t.Parallel()

	got, err := ParseTarget("darwin/amd64")
	require.NoError(t, err)
	require.Equal(t, Target{OS: OSMacOS, Arch: ArchX8664}, got)

	got, err = ParseTarget("freebsd/riscv64")
	require.NoError(t, err)
	require.False(t, got.IsKnown())

	_, err = ParseTarget("linux")
	require.Error(t, err)

	require.Equal(t, Target{OS: OSLinux, Arch: ArchARM64}, TargetFromGo("linux", "arm64"))
}

// TestSmokeTest_Defaults checks the conventional --help / 0 / "usage" defaults.
func TestSmokeTest_Defaults(t *testing.T) {
	t.Parallel()

	d := SmokeTest{}.WithDefaults()
	require.Equal(t, []string{"--help"}, d.Args)
	require.Equal(t, []int{0}, d.ExitCodes)
	require.Equal(t, "usage", d.Marker)

	custom := SmokeTest{ExitCodes: []int{0, 2}}
	require.True(t, custom.AcceptsExitCode(2))
	require.False(t, custom.AcceptsExitCode(1))
}
