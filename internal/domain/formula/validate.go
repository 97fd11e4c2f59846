package formula

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Validate checks a spec for authoring defects: field formats, the URL
// template grammar, digests, and that the rule table is total over the
// supported platforms without overlapping anywhere on the known grid.
// Every problem is reported; the result wraps ErrInvalidFormula.
func Validate(spec *Spec) error {
	if spec == nil {
		return fmt.Errorf("%w: spec is nil", ErrInvalidFormula)
	}

	var errs []error

	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !namePattern.MatchString(spec.Name) {
		add("name %q must be lowercase letters, digits and dashes", spec.Name)
	}

	if err := ValidateVersion(spec.Version); err != nil {
		errs = append(errs, err)
	}

	if spec.Homepage != "" {
		if u, err := url.Parse(spec.Homepage); err != nil || !u.IsAbs() {
			add("homepage %q must be an absolute URL", spec.Homepage)
		}
	}

	if strings.TrimSpace(spec.License) == "" {
		add("license is required")
	}

	if len(spec.Rules) == 0 {
		add("at least one artifact rule is required")
	}

	for i, rule := range spec.Rules {
		errs = append(errs, validateRule(i, &rule)...)
	}

	if spec.Launcher != nil && len(spec.Launcher.Interpreter) == 0 {
		add("launcher.interpreter must not be empty")
	}

	for _, code := range spec.Test.ExitCodes {
		if code < 0 || code > 255 {
			add("test exit code %d is out of range", code)
		}
	}

	errs = append(errs, validateCoverage(spec)...)

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%s %s: %w: %w", spec.Name, spec.Version, ErrInvalidFormula, errors.Join(errs...))
}

func validateRule(i int, rule *Rule) []error {
	var errs []error

	prefix := fmt.Sprintf("artifact #%d (%s)", i+1, rule.Match)

	if rule.OS != "" && !rule.OS.IsKnown() {
		errs = append(errs, fmt.Errorf("%s: unknown os %q", prefix, rule.OS))
	}

	if rule.Arch != "" && !rule.Arch.IsKnown() {
		errs = append(errs, fmt.Errorf("%s: unknown arch %q", prefix, rule.Arch))
	}

	if err := ValidateTemplate(rule.URL); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
	}

	if rule.SignatureURL != "" {
		if err := ValidateTemplate(rule.SignatureURL); err != nil {
			errs = append(errs, fmt.Errorf("%s: signature: %w", prefix, err))
		}
	}

	if err := ValidateDigest(rule.SHA256); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
	}

	if rule.InstallName == "" || strings.ContainsAny(rule.InstallName, `/\`) || rule.InstallName == "." || rule.InstallName == ".." {
		errs = append(errs, fmt.Errorf("%s: install_name %q must be a plain file name", prefix, rule.InstallName))
	}

	switch rule.Compression {
	case "", CompressionNone, CompressionGzip, CompressionZstd, CompressionXZ:
	default:
		errs = append(errs, fmt.Errorf("%s: unknown compression %q", prefix, rule.Compression))
	}

	return errs
}

// validateCoverage enforces totality over the supported targets and
// uniqueness over the whole known grid.
func validateCoverage(spec *Spec) []error {
	var errs []error

	for _, t := range KnownTargets() {
		var matched []int

		for i, rule := range spec.Rules {
			if rule.Matches(t) {
				matched = append(matched, i+1)
			}
		}

		if len(matched) > 1 {
			errs = append(errs, fmt.Errorf("rules %v overlap on %s", matched, t))
		}
	}

	for _, t := range spec.Platforms {
		if !t.IsKnown() {
			errs = append(errs, fmt.Errorf("declared platform %s is not a known target", t))
			continue
		}

		if !spec.matchesAny(t) {
			errs = append(errs, fmt.Errorf("declared platform %s has no artifact", t))
		}
	}

	if len(spec.Platforms) > 0 {
		for i, rule := range spec.Rules {
			covered := false

			for _, t := range spec.Platforms {
				if rule.Matches(t) {
					covered = true
					break
				}
			}

			if !covered {
				errs = append(errs, fmt.Errorf("artifact #%d (%s) matches no declared platform", i+1, rule.Match))
			}
		}
	}

	return errs
}

func (s *Spec) matchesAny(t Target) bool {
	for _, rule := range s.Rules {
		if rule.Matches(t) {
			return true
		}
	}

	return false
}
