package formula

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	digestPattern  = regexp.MustCompile(`^[0-9a-f]{64}$`)

	errBadVersion     = errors.New("version must look like X.Y.Z")
	errBadDigest      = errors.New("sha256 must be 64 lowercase hex characters")
	errPlaceholders   = errors.New("url template must contain exactly one " + VersionPlaceholder)
	errStrayBraces    = errors.New("url template contains braces outside " + VersionPlaceholder)
	errNotAbsoluteURL = errors.New("url must be an absolute http(s) URL")
)

// ValidateVersion checks the X.Y.Z release grammar.
func ValidateVersion(version string) error {
	if !versionPattern.MatchString(version) {
		return fmt.Errorf("%q: %w", version, errBadVersion)
	}

	return nil
}

// ValidateDigest checks that digest is a lowercase hex SHA-256.
func ValidateDigest(digest string) error {
	if !digestPattern.MatchString(digest) {
		return fmt.Errorf("%q: %w", digest, errBadDigest)
	}

	return nil
}

// ValidateTemplate checks the single-placeholder template grammar.
func ValidateTemplate(template string) error {
	if strings.Count(template, VersionPlaceholder) != 1 {
		return fmt.Errorf("%q: %w", template, errPlaceholders)
	}

	rest := strings.Replace(template, VersionPlaceholder, "", 1)
	if strings.ContainsAny(rest, "{}") {
		return fmt.Errorf("%q: %w", template, errStrayBraces)
	}

	// A representative version must produce a well-formed URL.
	if _, err := substitute(template, "0.0.0"); err != nil {
		return err
	}

	return nil
}

// RenderURL substitutes version into template. Both inputs are validated,
// so the result is always a well-formed absolute URL.
func RenderURL(template, version string) (string, error) {
	if err := ValidateVersion(version); err != nil {
		return "", err
	}

	if err := ValidateTemplate(template); err != nil {
		return "", err
	}

	return substitute(template, version)
}

func substitute(template, version string) (string, error) {
	rendered := strings.Replace(template, VersionPlaceholder, version, 1)

	u, err := url.Parse(rendered)
	if err != nil {
		return "", fmt.Errorf("%q: %w", rendered, err)
	}

	if !u.IsAbs() || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return "", fmt.Errorf("%q: %w", rendered, errNotAbsoluteURL)
	}

	return rendered, nil
}

// CompareVersions orders two X.Y.Z versions like strings.Compare does.
// Invalid versions sort before valid ones and compare lexically among themselves.
func CompareVersions(a, b string) int {
	pa, okA := splitVersion(a)
	pb, okB := splitVersion(b)

	switch {
	case !okA && !okB:
		return strings.Compare(a, b)
	case !okA:
		return -1
	case !okB:
		return 1
	}

	for i := range pa {
		switch {
		case pa[i] < pb[i]:
			return -1
		case pa[i] > pb[i]:
			return 1
		}
	}

	return 0
}

func splitVersion(v string) ([3]int, bool) {
	var parts [3]int

	if !versionPattern.MatchString(v) {
		return parts, false
	}

	for i, field := range strings.SplitN(v, ".", 3) {
		n, err := strconv.Atoi(field)
		if err != nil {
			return parts, false
		}

		parts[i] = n
	}

	return parts, true
}
