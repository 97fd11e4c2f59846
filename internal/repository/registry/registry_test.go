package registry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
)

const gitStackYAML = `
name: git-stack
description: Git stack management tool with interactive TUI
homepage: https://github.com/sam-phinizy/git-stack
version: %s
license: MIT
artifacts:
  - os: macos
    arch: x86_64
    url: https://github.com/sam-phinizy/git-stack/releases/download/v{version}/git-stack-macos-amd64
    sha256: aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa
    install_name: git-stack
  - os: macos
    arch: arm64
    url: https://github.com/sam-phinizy/git-stack/releases/download/v{version}/git-stack-macos-arm64
    sha256: bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb
    install_name: git-stack
  - os: linux
    arch: x86_64
    url: https://github.com/sam-phinizy/git-stack/releases/download/v{version}/git-stack-linux
    sha256: cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc
    install_name: git-stack
`

const alphaTOML = `
name = "alpha"
version = "1.0.0"
license = "MIT"

[[artifacts]]
os = "macos"
arch = "arm64"
url = "https://example.com/alpha/v{version}/alpha-macos-arm64"
sha256 = "d34d00000000000000000000000000000000000000000000000000000000beef"
install_name = "alpha"

[test]
exit_codes = [0, 2]
marker = "usage"
`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func gitStack(version string) string {
	return strings.Replace(gitStackYAML, "%s", version, 1)
}

// TestLoad_VersionedRegistry loads several versions of one package plus a TOML formula.
func TestLoad_VersionedRegistry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "git-stack.yaml", gitStack("0.10.0"))
	writeFile(t, dir, "git-stack@0.1.0.yml", gitStack("0.1.0"))
	writeFile(t, dir, "nested/git-stack@0.9.0.yaml", gitStack("0.9.0"))
	writeFile(t, dir, "alpha.toml", alphaTOML)
	writeFile(t, dir, "README.md", "not a formula")

	reg, err := Load(dir)
	require.NoError(t, err)

	ctx := context.Background()

	latest, err := reg.Latest(ctx, "git-stack")
	require.NoError(t, err)
	require.Equal(t, "0.10.0", latest.Version)

	require.Equal(t, []string{"0.1.0", "0.9.0", "0.10.0"}, reg.Versions("git-stack"))

	old, err := reg.Get(ctx, "git-stack", "0.1.0")
	require.NoError(t, err)
	require.Len(t, old.Rules, 3)
	require.Equal(t, formula.OSMacOS, old.Rules[0].OS)

	alpha, err := reg.Get(ctx, "alpha", "")
	require.NoError(t, err)
	require.Equal(t, []int{0, 2}, alpha.Test.ExitCodes)

	_, err = reg.Get(ctx, "git-stack", "9.9.9")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = reg.Latest(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.Len(t, reg.List(ctx), 4)
}

// TestLoad_RejectsDefects reports schema and domain defects from every file.
func TestLoad_RejectsDefects(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "placeholder.yaml", strings.Replace(gitStack("0.1.0"),
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "SHA256_PLACEHOLDER_INTEL", 1))
	writeFile(t, dir, "unknown-field.toml", alphaTOML+"\nfoo = 1\n")

	_, err := Load(dir)
	require.ErrorIs(t, err, formula.ErrInvalidFormula)
	require.Contains(t, err.Error(), "placeholder.yaml")
	require.Contains(t, err.Error(), "unknown-field.toml")
}

// TestLoad_RejectsOverlap catches rule tables that schema checks cannot see.
func TestLoad_RejectsOverlap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "overlap.yaml", gitStack("0.1.0")+`
  - os: linux
    url: https://example.com/{version}/any-linux
    sha256: dddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddd
    install_name: git-stack
`)

	_, err := Load(dir)
	require.ErrorIs(t, err, formula.ErrInvalidFormula)
	require.Contains(t, err.Error(), "overlap")
}

// TestLoad_Duplicate refuses two files with the same name and version.
func TestLoad_Duplicate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", gitStack("0.1.0"))
	writeFile(t, dir, "b.yaml", gitStack("0.1.0"))

	_, err := Load(dir)
	require.ErrorIs(t, err, ErrDuplicate)
}

// TestLoad_ShippedFormulas keeps the tap's own formulas valid.
func TestLoad_ShippedFormulas(t *testing.T) {
	t.Parallel()

	reg, err := Load(filepath.Join("..", "..", "..", "Formula"))
	require.NoError(t, err)

	spec, err := reg.Latest(context.Background(), "gh-pr2org")
	require.NoError(t, err)
	require.NotNil(t, spec.Launcher)
	require.Equal(t, []string{"uv", "run"}, spec.Launcher.Interpreter)
	require.Equal(t, []int{2}, spec.Test.ExitCodes)
}

const betaVersionsYAML = `
versions:
  - name: beta
    version: 1.0.0
    license: Apache-2.0
    artifacts:
      - url: https://example.com/beta/v{version}/beta.py
        sha256: eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee
        install_name: beta.py
    launcher:
      interpreter: [python3]
  - name: beta
    version: 1.1.0
    license: Apache-2.0
    artifacts:
      - url: https://example.com/beta/v{version}/beta.py
        sha256: ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff
        install_name: beta.py
    launcher:
      interpreter: [python3]
`

// TestLoad_VersionsList loads every document of a multi-version file.
func TestLoad_VersionsList(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "beta.yaml", betaVersionsYAML)

	reg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"1.0.0", "1.1.0"}, reg.Versions("beta"))
	require.Equal(t, path, reg.Source("beta", "1.0.0"))

	spec, err := reg.Latest(context.Background(), "beta")
	require.NoError(t, err)
	require.Equal(t, "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", spec.Rules[0].SHA256)
}

// TestDecodeAll_EmptyVersions rejects a versions list with no documents.
func TestDecodeAll_EmptyVersions(t *testing.T) {
	t.Parallel()

	_, err := DecodeAll("empty.yaml", []byte("versions: []\n"))
	require.ErrorIs(t, err, formula.ErrInvalidFormula)
}

// TestRegistry_Summaries lists each package once at its latest version.
func TestRegistry_Summaries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "git-stack.yaml", gitStack("0.10.0"))
	writeFile(t, dir, "git-stack@0.9.0.yaml", gitStack("0.9.0"))
	writeFile(t, dir, "alpha.toml", alphaTOML)

	reg, err := Load(dir)
	require.NoError(t, err)

	summaries := reg.Summaries(context.Background())
	require.Len(t, summaries, 2)
	require.Equal(t, "alpha", summaries[0].Name)
	require.Equal(t, "git-stack", summaries[1].Name)
	require.Equal(t, "0.10.0", summaries[1].Latest)
	require.Equal(t, []string{"0.9.0", "0.10.0"}, summaries[1].Versions)
	require.Len(t, summaries[1].Platforms, 3)
}

// TestRegistry_LoadDirMerges adds formulas from several directories and files into one registry.
func TestRegistry_LoadDirMerges(t *testing.T) {
	t.Parallel()

	first, second := t.TempDir(), t.TempDir()
	writeFile(t, first, "git-stack.yaml", gitStack("0.1.0"))
	writeFile(t, second, "nested/git-stack.yaml", gitStack("0.2.0"))
	single := writeFile(t, t.TempDir(), "beta.yaml", betaVersionsYAML)

	reg := New()
	require.NoError(t, reg.LoadDir(first))
	require.NoError(t, reg.LoadDir(second))
	require.NoError(t, reg.LoadFile(single))

	require.Equal(t, []string{"0.1.0", "0.2.0"}, reg.Versions("git-stack"))
	require.Len(t, reg.List(context.Background()), 4)

	require.ErrorIs(t, reg.LoadDir(first), ErrDuplicate)
}

const digitsYAML = `
versions:
  - name: digits
    version: 1.0.0
    license: MIT
    artifacts:
      - os: linux
        arch: x86_64
        url: https://example.com/digits-{version}
        sha256: 1111111111111111111111111111111111111111111111111111111111111111
        install_name: digits
    test:
      exit_codes: [0, 2]
`

// TestDecodeAll_AllDigitDigest keeps plain numeric-looking scalars as strings.
func TestDecodeAll_AllDigitDigest(t *testing.T) {
	t.Parallel()

	specs, err := DecodeAll("digits.yaml", []byte(digitsYAML))
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Equal(t, strings.Repeat("1", 64), specs[0].Rules[0].SHA256)
	require.Equal(t, []int{0, 2}, specs[0].Test.ExitCodes)

	_, err = Decode("bad.yaml", []byte("name: bad\nversion: 1.0\nlicense: MIT\n"))
	require.ErrorIs(t, err, formula.ErrInvalidFormula)
}
