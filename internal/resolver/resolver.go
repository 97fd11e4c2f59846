// Package resolver selects the artifact a package serves for a platform.
//
// Resolution is a pure, first-match-wins scan of the spec's ordered rule
// table. Overlapping rules are an authoring defect caught by formula.Validate;
// if one slips through, the earliest rule still wins deterministically.
package resolver

import (
	"fmt"
	"slices"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
)

// Resolve returns the artifact selection for target, or an
// *formula.UnsupportedPlatformError when target is not one of the spec's
// supported targets. Wildcard rules never admit unknown platforms.
func Resolve(spec *formula.Spec, target formula.Target) (*formula.Selection, error) {
	if spec == nil {
		return nil, fmt.Errorf("resolve: %w: spec is nil", formula.ErrInvalidFormula)
	}

	rule, ok := firstMatch(spec.Rules, target)
	if !ok || !target.IsKnown() || !slices.Contains(spec.SupportedTargets(), target) {
		return nil, &formula.UnsupportedPlatformError{
			Package: spec.Name,
			Version: spec.Version,
			Target:  target,
		}
	}

	artifactURL, err := formula.RenderURL(rule.URL, spec.Version)
	if err != nil {
		return nil, fmt.Errorf("resolve %s %s: %w: %w", spec.Name, spec.Version, formula.ErrInvalidFormula, err)
	}

	var signatureURL string
	if rule.SignatureURL != "" {
		signatureURL, err = formula.RenderURL(rule.SignatureURL, spec.Version)
		if err != nil {
			return nil, fmt.Errorf("resolve %s %s signature: %w: %w", spec.Name, spec.Version, formula.ErrInvalidFormula, err)
		}
	}

	compression := rule.Compression
	if compression == "" {
		compression = formula.CompressionNone
	}

	return &formula.Selection{
		Package:      spec.Name,
		Version:      spec.Version,
		Target:       target,
		URL:          artifactURL,
		Digest:       rule.SHA256,
		InstallName:  rule.InstallName,
		Compression:  compression,
		SignatureURL: signatureURL,
		Launcher:     spec.Launcher,
		Test:         spec.Test.WithDefaults(),
	}, nil
}

// ResolveHost resolves for the running host.
func ResolveHost(spec *formula.Spec) (*formula.Selection, error) {
	return Resolve(spec, formula.DetectTarget())
}

// Matrix resolves every supported target of spec, keyed by target.
// It is used by validation and by the list command to show coverage.
func Matrix(spec *formula.Spec) (map[formula.Target]*formula.Selection, error) {
	out := make(map[formula.Target]*formula.Selection)

	for _, target := range spec.SupportedTargets() {
		selection, err := Resolve(spec, target)
		if err != nil {
			return nil, err
		}

		out[target] = selection
	}

	return out, nil
}

func firstMatch(rules []formula.Rule, target formula.Target) (formula.Rule, bool) {
	for _, rule := range rules {
		if rule.Matches(target) {
			return rule, true
		}
	}

	return formula.Rule{}, false
}
