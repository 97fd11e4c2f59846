package installer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sam-phinizy/beer-hall/internal/config"
	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
	"github.com/sam-phinizy/beer-hall/internal/integrity"
	"github.com/sam-phinizy/beer-hall/internal/repository/receipt"
)

const alphaFormula = `
name: alpha
description: Test tool
version: 1.0.0
license: MIT
artifacts:
  - os: %s
    url: %s/alpha-{version}
    sha256: %s
    install_name: alpha
test:
  exit_codes: %s
  marker: usage
`

// fixture is an artifact server plus a formula dir and settings file pointing at it.
type fixture struct {
	root       string
	configPath string
	hits       *atomic.Int32
	server     *httptest.Server
}

func newFixture(t *testing.T, served []byte, osName, exitCodes string) *fixture {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("the test artifact is a shell script")
	}

	hits := new(atomic.Int32)

	mux := http.NewServeMux()
	mux.HandleFunc("/alpha-1.0.0", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)

		_, _ = w.Write(served)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	formulaDir := filepath.Join(dir, "Formula")
	require.NoError(t, os.MkdirAll(formulaDir, 0o755))

	contents := fmt.Sprintf(alphaFormula, osName, server.URL, integrity.Sum(alphaBinary), exitCodes)
	require.NoError(t, os.WriteFile(filepath.Join(formulaDir, "alpha.yaml"), []byte(contents), 0o600))

	root := filepath.Join(dir, "prefix")
	configPath := filepath.Join(dir, config.DefaultConfigFilename)

	require.NoError(t, config.Save(configPath, &config.Config{
		FormulaDir:      formulaDir,
		InstallRoot:     root,
		CacheDir:        filepath.Join(dir, "cache"),
		DownloadTimeout: 5 * time.Second,
		TestTimeout:     5 * time.Second,
	}))

	return &fixture{
		root:       root,
		configPath: configPath,
		hits:       hits,
		server:     server,
	}
}

// TestInstall_Pipeline installs, records a receipt and passes the smoke test.
func TestInstall_Pipeline(t *testing.T) {
	t.Parallel()

	f := newFixture(t, alphaBinary, "linux", "[0, 2]")

	report, err := Install(context.Background(), &Options{
		ConfigPath: f.configPath,
		Name:       "alpha",
		Target:     "linux/x86_64",
	})
	require.NoError(t, err)
	require.Equal(t, "1.0.0", report.Selection.Version)
	require.Equal(t, f.server.URL+"/alpha-1.0.0", report.Selection.URL)
	require.Equal(t, filepath.Join(f.root, "bin", "alpha"), report.Installed.Command)
	require.NotNil(t, report.Test)
	require.Equal(t, 2, report.Test.ExitCode)

	record, err := receipt.NewFileRepository(receipt.Dir(f.root)).Load(context.Background(), "alpha")
	require.NoError(t, err)
	require.Equal(t, report.Installed.Digest, record.Installed.Digest)
	require.Equal(t, formula.Target{OS: formula.OSLinux, Arch: formula.ArchX8664}, record.Target)

	locks, err := os.ReadDir(filepath.Join(f.root, "var", "locks"))
	require.NoError(t, err)
	require.Empty(t, locks)
}

// TestInstall_SmokeTestFailureKeepsInstall reports the failure distinctly and leaves the binary.
func TestInstall_SmokeTestFailureKeepsInstall(t *testing.T) {
	t.Parallel()

	f := newFixture(t, alphaBinary, "linux", "[0]")

	report, err := Install(context.Background(), &Options{
		ConfigPath: f.configPath,
		Name:       "alpha",
		Target:     "linux/x86_64",
	})
	require.ErrorIs(t, err, formula.ErrTestFailure)
	require.ErrorContains(t, err, "installed at")
	require.NotNil(t, report)
	require.FileExists(t, report.Installed.Command)
}

// TestInstall_SkipTest does not run the smoke test.
func TestInstall_SkipTest(t *testing.T) {
	t.Parallel()

	f := newFixture(t, alphaBinary, "linux", "[0]")

	report, err := Install(context.Background(), &Options{
		ConfigPath: f.configPath,
		Name:       "alpha",
		Target:     "linux/x86_64",
		SkipTest:   true,
	})
	require.NoError(t, err)
	require.Nil(t, report.Test)
}

// TestInstall_DigestMismatchWritesNothing refuses a tampered download.
func TestInstall_DigestMismatchWritesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []byte("tampered"), "linux", "[0, 2]")

	_, err := Install(context.Background(), &Options{
		ConfigPath: f.configPath,
		Name:       "alpha",
		Target:     "linux/x86_64",
	})
	require.ErrorIs(t, err, formula.ErrDigestMismatch)
	require.NoFileExists(t, filepath.Join(f.root, "bin", "alpha"))
}

// TestInstall_UnsupportedPlatform fails before any download.
func TestInstall_UnsupportedPlatform(t *testing.T) {
	t.Parallel()

	f := newFixture(t, alphaBinary, "windows", "[0, 2]")

	_, err := Install(context.Background(), &Options{
		ConfigPath: f.configPath,
		Name:       "alpha",
		Target:     "linux/x86_64",
	})
	require.ErrorIs(t, err, formula.ErrUnsupportedPlatform)
	require.ErrorContains(t, err, "linux/x86_64")
	require.Zero(t, f.hits.Load())
}

// TestInstall_DownloadFailure surfaces HTTP errors as download failures.
func TestInstall_DownloadFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, alphaBinary, "linux", "[0, 2]")
	f.server.Close()

	_, err := Install(context.Background(), &Options{
		ConfigPath: f.configPath,
		Name:       "alpha",
		Target:     "linux/x86_64",
	})
	require.ErrorIs(t, err, formula.ErrDownloadFailure)
}

// TestInstall_UsesVerifiedCache reinstalls from the cache without downloading again.
func TestInstall_UsesVerifiedCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t, alphaBinary, "linux", "[0, 2]")

	options := &Options{
		ConfigPath: f.configPath,
		Name:       "alpha",
		Target:     "linux/x86_64",
		SkipTest:   true,
	}

	_, err := Install(context.Background(), options)
	require.NoError(t, err)
	require.EqualValues(t, 1, f.hits.Load())

	_, err = Install(context.Background(), options)
	require.NoError(t, err)
	require.EqualValues(t, 1, f.hits.Load())
}

// TestInstall_UnknownPackage reports a missing formula.
func TestInstall_UnknownPackage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, alphaBinary, "linux", "[0, 2]")

	_, err := Install(context.Background(), &Options{ConfigPath: f.configPath, Name: "ghost"})
	require.Error(t, err)

	_, err = Install(context.Background(), &Options{ConfigPath: f.configPath})
	require.ErrorIs(t, err, errNameRequired)
}

// TestOnPath resolves versioned dependency names.
func TestOnPath(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("sh is not on PATH on windows")
	}

	require.True(t, onPath("sh"))
	require.False(t, onPath("definitely-not-a-real-tool@9.9"))
}
