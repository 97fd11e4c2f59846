package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	goyaml "gopkg.in/yaml.v3"
	"sigs.k8s.io/yaml"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
)

var (
	errUnknownFormat = errors.New("unknown formula file extension")
	errNoVersions    = errors.New("versions list is empty")
)

// versionsKey holds a list of complete documents in a multi-version file.
const versionsKey = "versions"

// stringKeys are always strings, however their plain scalars would resolve.
// An all-digit digest or a version like 1.0 must not become a number.
var stringKeys = map[string]bool{
	"name":          true,
	"description":   true,
	"homepage":      true,
	"version":       true,
	"license":       true,
	"url":           true,
	"sha256":        true,
	"install_name":  true,
	"signature_url": true,
	"compression":   true,
	"os":            true,
	"arch":          true,
	"marker":        true,
}

// IsFormulaFile reports whether name has a formula extension.
func IsFormulaFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".toml":
		return true
	default:
		return false
	}
}

// toJSON converts a YAML or TOML formula document to JSON, chosen by extension.
func toJSON(name string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		typed, err := pinStrings(data)
		if err != nil {
			return nil, fmt.Errorf("yaml parsing error: %w", err)
		}

		out, err := yaml.YAMLToJSON(typed)
		if err != nil {
			return nil, fmt.Errorf("yaml parsing error: %w", err)
		}

		return out, nil
	case ".toml":
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("toml parsing error: %w", err)
		}

		out, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("json marshaling error: %w", err)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%s: %w", name, errUnknownFormat)
	}
}

// Decode parses one formula document, validates it against the schema and
// then against the domain rules. name selects the format by extension.
func Decode(name string, data []byte) (*formula.Spec, error) {
	jsonData, err := toJSON(name, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, formula.ErrInvalidFormula, err)
	}

	return decodeJSON(name, jsonData)
}

// DecodeAll parses a formula file that holds either one document or a
// top-level "versions" list of documents.
func DecodeAll(name string, data []byte) ([]*formula.Spec, error) {
	jsonData, err := toJSON(name, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, formula.ErrInvalidFormula, err)
	}

	var top map[string]json.RawMessage
	if err = json.Unmarshal(jsonData, &top); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, formula.ErrInvalidFormula, err)
	}

	list, ok := top[versionsKey]
	if !ok || len(top) != 1 {
		spec, decodeErr := decodeJSON(name, jsonData)
		if decodeErr != nil {
			return nil, decodeErr
		}

		return []*formula.Spec{spec}, nil
	}

	var documents []json.RawMessage
	if err = json.Unmarshal(list, &documents); err != nil {
		return nil, fmt.Errorf("%s: %w: versions: %w", name, formula.ErrInvalidFormula, err)
	}

	if len(documents) == 0 {
		return nil, fmt.Errorf("%s: %w: %w", name, formula.ErrInvalidFormula, errNoVersions)
	}

	specs := make([]*formula.Spec, 0, len(documents))

	var errs []error

	for i, document := range documents {
		spec, decodeErr := decodeJSON(fmt.Sprintf("%s[%d]", name, i), document)
		if decodeErr != nil {
			errs = append(errs, decodeErr)
			continue
		}

		specs = append(specs, spec)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return specs, nil
}

// pinStrings re-tags plain scalars under stringKeys as !!str so the JSON
// conversion keeps them as strings.
func pinStrings(data []byte) ([]byte, error) {
	var doc goyaml.Node
	if err := goyaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if doc.Kind == 0 {
		return data, nil
	}

	retagStrings(&doc)

	return goyaml.Marshal(&doc)
}

func retagStrings(node *goyaml.Node) {
	if node.Kind == goyaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if stringKeys[key.Value] && value.Kind == goyaml.ScalarNode && value.Tag != "!!str" && value.Tag != "!!null" {
				value.Tag = "!!str"
				value.Style = goyaml.DoubleQuotedStyle
			}
		}
	}

	for _, child := range node.Content {
		retagStrings(child)
	}
}

func decodeJSON(name string, jsonData []byte) (*formula.Spec, error) {
	if err := ValidateJSON(jsonData); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, formula.ErrInvalidFormula, err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.DisallowUnknownFields()

	var spec formula.Spec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, formula.ErrInvalidFormula, err)
	}

	if err := formula.Validate(&spec); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return &spec, nil
}
