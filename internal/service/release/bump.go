package release

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
	"github.com/sam-phinizy/beer-hall/internal/repository/registry"
)

var (
	errNotMapping        = errors.New("formula document is not a mapping")
	errAssetCount        = errors.New("bump needs exactly one artifact rule")
	errFormulaNotFound   = errors.New("formula file not found")
	errUnsupportedFormat = errors.New("unsupported formula format")
)

// FindFormula returns the formula file of tool in dir.
func FindFormula(dir, tool string) (string, error) {
	for _, ext := range []string{".yaml", ".yml", ".toml"} {
		path := filepath.Join(dir, tool+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s in %s: %w", tool, dir, errFormulaNotFound)
}

// BumpFormula rewrites the version and the single artifact digest of the
// formula at path. The result is validated before it replaces the file.
// YAML keeps its comments; TOML is re-encoded and loses them.
func BumpFormula(path, version, digest string) error {
	out, err := RenderBump(path, version, digest)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat formula: %w", err)
	}

	if err = os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("write formula: %w", err)
	}

	return nil
}

// RenderBump returns the validated contents BumpFormula would write,
// leaving the file untouched.
func RenderBump(path, version, digest string) ([]byte, error) {
	if err := formula.ValidateVersion(version); err != nil {
		return nil, fmt.Errorf("%w: %w", formula.ErrInvalidFormula, err)
	}

	if err := formula.ValidateDigest(digest); err != nil {
		return nil, fmt.Errorf("%w: %w", formula.ErrInvalidFormula, err)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read formula: %w", err)
	}

	var out []byte

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		out, err = bumpYAML(data, version, digest)
	case ".toml":
		out, err = bumpTOML(data, version, digest)
	default:
		err = fmt.Errorf("%s: %w", path, errUnsupportedFormat)
	}

	if err != nil {
		return nil, fmt.Errorf("bump %s: %w", path, err)
	}

	if _, err = registry.Decode(path, out); err != nil {
		return nil, fmt.Errorf("bumped formula is invalid: %w", err)
	}

	return out, nil
}

// bumpYAML edits the node tree so comments and key order survive.
func bumpYAML(data []byte, version, digest string) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yaml parsing error: %w", err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errNotMapping
	}

	root := doc.Content[0]

	setScalar(root, "version", version)

	artifacts := lookup(root, "artifacts")
	if artifacts == nil || artifacts.Kind != yaml.SequenceNode || len(artifacts.Content) != 1 {
		return nil, errAssetCount
	}

	rule := artifacts.Content[0]
	if rule.Kind != yaml.MappingNode {
		return nil, errNotMapping
	}

	setScalar(rule, "sha256", digest)

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("yaml encoding error: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yaml encoding error: %w", err)
	}

	return buf.Bytes(), nil
}

func bumpTOML(data []byte, version, digest string) ([]byte, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("toml parsing error: %w", err)
	}

	artifacts, ok := doc["artifacts"].([]any)
	if !ok || len(artifacts) != 1 {
		return nil, errAssetCount
	}

	rule, ok := artifacts[0].(map[string]any)
	if !ok {
		return nil, errNotMapping
	}

	doc["version"] = version
	rule["sha256"] = digest

	out, err := toml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("toml encoding error: %w", err)
	}

	return out, nil
}

// lookup returns the value node of key in a mapping node.
func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}

	return nil
}

// setScalar replaces or appends a string scalar in a mapping node.
func setScalar(mapping *yaml.Node, key, value string) {
	if node := lookup(mapping, key); node != nil {
		node.Kind = yaml.ScalarNode
		node.Tag = "!!str"
		node.Value = value
		node.Style = 0
		node.Content = nil

		return
	}

	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}
