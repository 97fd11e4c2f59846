package formula

import (
	"errors"
	"fmt"
)

// Sentinel errors of the install pipeline. Typed errors below wrap them so
// callers can branch with errors.Is while still reporting full context.
var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrDownloadFailure     = errors.New("download failed")
	ErrDigestMismatch      = errors.New("digest mismatch")
	ErrInstallWrite        = errors.New("install write failed")
	ErrTestFailure         = errors.New("smoke test failed")
	ErrInvalidFormula      = errors.New("invalid formula")
)

// UnsupportedPlatformError reports that no rule of a package matches the target.
type UnsupportedPlatformError struct {
	Package string
	Version string
	Target  Target
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("%s %s has no artifact for %s: %s", e.Package, e.Version, e.Target, ErrUnsupportedPlatform)
}

// Unwrap returns ErrUnsupportedPlatform.
func (e *UnsupportedPlatformError) Unwrap() error { return ErrUnsupportedPlatform }

// DownloadError reports a transport failure or a non-2xx response.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", ErrDownloadFailure, e.URL, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s: HTTP %d", ErrDownloadFailure, e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %s", ErrDownloadFailure, e.URL)
	}
}

// Unwrap exposes both the sentinel and the transport cause.
func (e *DownloadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDownloadFailure}
	}

	return []error{ErrDownloadFailure, e.Err}
}

// DigestMismatchError reports a payload whose SHA-256 differs from the declared one.
type DigestMismatchError struct {
	Expected string
	Actual   string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", ErrDigestMismatch, e.Expected, e.Actual)
}

// Unwrap returns ErrDigestMismatch.
func (e *DigestMismatchError) Unwrap() error { return ErrDigestMismatch }

// InstallWriteError reports a filesystem failure at the given path.
type InstallWriteError struct {
	Path string
	Err  error
}

func (e *InstallWriteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrInstallWrite, e.Path, e.Err)
}

// Unwrap exposes both the sentinel and the filesystem cause.
func (e *InstallWriteError) Unwrap() []error { return []error{ErrInstallWrite, e.Err} }

// TestFailureError reports a smoke test that did not pass.
type TestFailureError struct {
	Command  string
	ExitCode int
	Reason   string
	Output   string
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("%s: %s exited %d: %s", ErrTestFailure, e.Command, e.ExitCode, e.Reason)
}

// Unwrap returns ErrTestFailure.
func (e *TestFailureError) Unwrap() error { return ErrTestFailure }
