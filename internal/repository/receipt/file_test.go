package receipt

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing receipt.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(t.TempDir())

	r, err := repo.Load(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, r)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns the same receipt.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	repo := NewFileRepository(Dir(root))

	want := &Receipt{
		Installed: &formula.InstalledBinary{
			Package:     "gh-pr2org",
			Version:     "1.0.0",
			Command:     filepath.Join(root, "bin", "gh-pr2org"),
			Payload:     filepath.Join(root, "libexec", "gh-pr2org", "gh-pr2org.py"),
			Digest:      "d2026bb663f53e9cee6c85030dc11586a21a21694fb652131a028b7cd0eaf803",
			InstalledAt: time.Now().UTC().Truncate(time.Second),
			Test:        formula.SmokeTest{Args: []string{"--help"}, ExitCodes: []int{0, 2}, Marker: "usage"},
		},
		URL:      "https://example.com/gh-pr2org.py",
		Target:   formula.Target{OS: formula.OSLinux, Arch: formula.ArchX8664},
		Hostname: "build-host",
		Username: "releaser",
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background(), "gh-pr2org")
	require.NoError(t, err)
	require.Equal(t, want.Installed.Package, got.Installed.Package)
	require.Equal(t, want.Installed.Command, got.Installed.Command)
	require.Equal(t, want.Installed.Digest, got.Installed.Digest)
	require.True(t, want.Installed.InstalledAt.Equal(got.Installed.InstalledAt))
	require.Equal(t, want.Installed.Test, got.Installed.Test)
	require.Equal(t, want.Target, got.Target)
	require.Equal(t, want.Username, got.Username)

	_, err = os.Stat(filepath.Join(Dir(root), "gh-pr2org.json"))
	require.NoError(t, err)
}

// TestFileRepository_SaveNil rejects empty receipts.
func TestFileRepository_SaveNil(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(t.TempDir())
	require.Error(t, repo.Save(context.Background(), nil))
	require.Error(t, repo.Save(context.Background(), &Receipt{}))
}
