package release

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/sam-phinizy/beer-hall/internal/integrity"
)

// ScriptsDir holds one script per tool, named <tool>.<ext>.
const ScriptsDir = "scripts"

var tagPattern = regexp.MustCompile(`^([a-z0-9-]+)/v(\d+\.\d+\.\d+)$`)

var (
	errInvalidTag      = errors.New("invalid tag format, expected tool-name/vX.Y.Z (e.g. gh-pr2org/v1.0.0)")
	errNoScript        = errors.New("no script found")
	errMultipleScripts = errors.New("multiple scripts found, keep exactly one per tool")
)

// Tag is a parsed tool release tag.
type Tag struct {
	Tool    string
	Version string
}

// ParseTag parses "tool-name/vX.Y.Z".
func ParseTag(tag string) (*Tag, error) {
	m := tagPattern.FindStringSubmatch(tag)
	if m == nil {
		return nil, fmt.Errorf("%q: %w", tag, errInvalidTag)
	}

	return &Tag{
		Tool:    m[1],
		Version: m[2],
	}, nil
}

// String returns the tag in its git form.
func (t *Tag) String() string {
	return t.Tool + "/v" + t.Version
}

// Title is the GitHub release title.
func (t *Tag) Title() string {
	return t.Tool + " v" + t.Version
}

// FindScript returns the path, relative to repoDir, of the single file in
// scripts/ named <tool>.<ext>.
func FindScript(repoDir, tool string) (string, error) {
	entries, err := os.ReadDir(filepath.Join(repoDir, ScriptsDir))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ScriptsDir, err)
	}

	var (
		names   []string
		matches []string
	)

	for _, entry := range entries {
		names = append(names, entry.Name())

		if !entry.IsDir() && strings.HasPrefix(entry.Name(), tool+".") {
			matches = append(matches, entry.Name())
		}
	}

	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("tool %q in %s/ (available: %s): %w", tool, ScriptsDir, strings.Join(names, ", "), errNoScript)
	case 1:
		return filepath.ToSlash(filepath.Join(ScriptsDir, matches[0])), nil
	default:
		return "", fmt.Errorf("tool %q: %s: %w", tool, strings.Join(matches, ", "), errMultipleScripts)
	}
}

// FileSHA256 returns the lowercase hex SHA-256 of the file at path.
func FileSHA256(path string) (string, error) {
	return integrity.SumFile(path)
}

// RenderNotes returns the markdown body of a release.
func RenderNotes(tool, version, digest, tap string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Release of %s v%s\n\n", tool, version)
	b.WriteString("**Installation:**\n")
	b.WriteString("```bash\n")
	fmt.Fprintf(&b, "brew install %s/%s\n", tap, tool)
	b.WriteString("```\n\n")
	fmt.Fprintf(&b, "**SHA256:** `%s`\n\n", digest)
	b.WriteString("---\n")
	b.WriteString("*This release was automatically created by the beer-hall release tool.*\n")

	return b.String()
}

// PreviewNotes renders markdown notes for a terminal of the given width.
func PreviewNotes(notes string, width int) (string, error) {
	options := []glamour.TermRendererOption{
		glamour.WithAutoStyle(),
	}

	if width > 0 {
		options = append(options, glamour.WithWordWrap(width))
	}

	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}

	out, err := renderer.Render(notes)
	if err != nil {
		return "", fmt.Errorf("render notes: %w", err)
	}

	return out, nil
}
