package cmd

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
)

// selectionView is the stdout form of a resolved artifact.
type selectionView struct {
	Package      string   `yaml:"package"`
	Version      string   `yaml:"version"`
	Target       string   `yaml:"target"`
	URL          string   `yaml:"url"`
	SHA256       string   `yaml:"sha256"`
	InstallName  string   `yaml:"install_name"`
	Compression  string   `yaml:"compression,omitempty"`
	SignatureURL string   `yaml:"signature_url,omitempty"`
	Launcher     []string `yaml:"launcher,omitempty"`
}

func newSelectionView(selection *formula.Selection) selectionView {
	view := selectionView{
		Package:      selection.Package,
		Version:      selection.Version,
		Target:       selection.Target.String(),
		URL:          selection.URL,
		SHA256:       selection.Digest,
		InstallName:  selection.InstallName,
		Compression:  string(selection.Compression),
		SignatureURL: selection.SignatureURL,
	}

	if selection.Launcher != nil {
		view.Launcher = selection.Launcher.Interpreter
	}

	return view
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	return enc.Close()
}

// sortedSelections orders a resolution matrix by target.
func sortedSelections(matrix map[formula.Target]*formula.Selection) []selectionView {
	views := make([]selectionView, 0, len(matrix))
	for _, selection := range matrix {
		views = append(views, newSelectionView(selection))
	}

	sort.Slice(views, func(i, j int) bool { return views[i].Target < views[j].Target })

	return views
}
