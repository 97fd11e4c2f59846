package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sam-phinizy/beer-hall/internal/config"
	"github.com/sam-phinizy/beer-hall/internal/integrity"
	"github.com/sam-phinizy/beer-hall/internal/repository/registry"
	"github.com/sam-phinizy/beer-hall/internal/resolver"
	"github.com/sam-phinizy/beer-hall/internal/service/release"
)

const noteFormula = `# Keep this comment.
name: note-sync
description: Sync notes
version: 0.1.0
license: MIT
artifacts:
  - url: https://github.com/example/tap/releases/download/note-sync/v{version}/note-sync.py
    sha256: 0000000000000000000000000000000000000000000000000000000000000000
    install_name: note-sync.py
launcher:
  interpreter: [python3]
`

// ghStub stands in for the gh CLI and remembers the asset it was given.
type ghStub struct {
	asset string
}

// Run returns the URL gh prints for a created release.
func (g *ghStub) Run(_ context.Context, _, _ string, args ...string) ([]byte, error) {
	g.asset = args[3]

	return []byte("https://github.com/example/tap/releases/tag/" + args[2] + "\n"), nil
}

// TestRelease_PublishBumpsFormula releases from a tap checkout and checks the
// bumped formula resolves to the new release asset.
func TestRelease_PublishBumpsFormula(t *testing.T) {
	t.Parallel()

	tap := t.TempDir()
	script := []byte("#!/usr/bin/env python3\nprint('usage: note-sync')\n")

	require.NoError(t, os.MkdirAll(filepath.Join(tap, release.ScriptsDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tap, release.ScriptsDir, "note-sync.py"), script, 0o600))

	formulaDir := filepath.Join(tap, config.DefaultFormulaDir)
	require.NoError(t, os.MkdirAll(formulaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(formulaDir, "note-sync.yaml"), []byte(noteFormula), 0o600))

	var out bytes.Buffer

	gh := new(ghStub)

	err := release.Run(context.Background(), &release.Options{
		ConfigPath: writeConfig(t, &config.Config{Tap: "example/tap"}),
		Tag:        "note-sync/v0.2.0",
		RepoDir:    tap,
		Bump:       true,
		Out:        &out,
		Runner:     gh,
	})
	require.NoError(t, err)
	require.Equal(t, "scripts/note-sync.py", gh.asset)
	require.Contains(t, out.String(), "SHA256 hash for formula: "+integrity.Sum(script))

	formulas, err := registry.Load(formulaDir)
	require.NoError(t, err)

	spec, err := formulas.Latest(context.Background(), "note-sync")
	require.NoError(t, err)
	require.Equal(t, "0.2.0", spec.Version)

	selection, err := resolver.ResolveHost(spec)
	require.NoError(t, err)
	require.Equal(t, integrity.Sum(script), selection.Digest)
	require.Equal(t, "https://github.com/example/tap/releases/download/note-sync/v0.2.0/note-sync.py", selection.URL)

	bumped, err := os.ReadFile(filepath.Join(formulaDir, "note-sync.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(bumped), "# Keep this comment.")
}
