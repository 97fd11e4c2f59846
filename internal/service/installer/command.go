package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/sam-phinizy/beer-hall/internal/config"
	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
	"github.com/sam-phinizy/beer-hall/internal/integrity"
	"github.com/sam-phinizy/beer-hall/internal/logger"
	"github.com/sam-phinizy/beer-hall/internal/repository/receipt"
	"github.com/sam-phinizy/beer-hall/internal/service/common"
	"github.com/sam-phinizy/beer-hall/internal/service/downloader"
	"github.com/sam-phinizy/beer-hall/internal/service/resolve"
	"github.com/sam-phinizy/beer-hall/internal/service/smoketest"
)

// Options controls one install.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// Name is the package to install.
	Name string
	// Version pins an exact version; empty selects the latest.
	Version string
	// Target overrides the detected host platform, as "os/arch".
	Target string
	// InstallRoot overrides the install root from settings.
	InstallRoot string
	// FormulaDir overrides the formula directory from settings.
	FormulaDir string
	// RegistryAddress resolves through a registry server instead of local formulas.
	RegistryAddress string
	// SkipTest disables the post-install smoke test.
	SkipTest bool
	// Progress receives a download progress bar when set.
	Progress io.Writer
}

// Report describes a finished install.
type Report struct {
	Selection *formula.Selection
	Installed *formula.InstalledBinary
	// Test is nil when the smoke test was skipped.
	Test *smoketest.Result
	// MissingDependencies lists depends_on entries not found on PATH.
	MissingDependencies []string
}

var (
	errNameRequired = errors.New("package name is required")
	errNoKeyring    = errors.New("formula publishes a signature but no keyring is configured")
)

// Run installs one package and logs the outcome.
func Run(ctx context.Context, opts *Options) error {
	_, err := Install(ctx, opts)

	return err
}

// Install resolves, downloads, verifies, places and smoke tests a package.
// A smoke test failure leaves the install in place and is returned wrapped
// so callers can tell it apart with errors.Is(err, formula.ErrTestFailure).
func Install(ctx context.Context, opts *Options) (*Report, error) {
	ctx = logger.WithName(ctx, "installer")

	if opts.Name == "" {
		return nil, errNameRequired
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(settings, opts)

	target, err := resolve.ParseTarget(opts.Target)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "package", opts.Name)

	resolved, err := resolve.Resolve(ctx, settings, opts.RegistryAddress, &resolve.Request{
		Name:    opts.Name,
		Version: opts.Version,
		Target:  target,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	selection := resolved.Selection

	ctx = logger.WithKV(ctx, "version", selection.Version)
	logger.InfoKV(ctx, "Resolved artifact", "target", target, "url", selection.URL, "sha256", selection.Digest)

	inst := New(settings.InstallRoot)

	lock, err := AcquireLock(ctx, inst.LockDir(), selection.Package, DefaultLockLifetime)
	if err != nil {
		return nil, fmt.Errorf("lock: %w", err)
	}

	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Failed to release install lock", "error", releaseErr)
		}
	}()

	dl := downloader.New(
		downloader.WithTimeout(settings.DownloadTimeout),
		downloader.WithMaxSize(settings.MaxArtifactSize),
		downloader.WithCacheDir(settings.CacheDir),
		downloader.WithProgress(opts.Progress),
	)

	payload, err := fetchVerified(ctx, dl, selection)
	if err != nil {
		return nil, err
	}

	if err = checkSignature(ctx, dl, settings.Keyring, selection, payload); err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}

	installed, err := inst.Install(ctx, selection, payload)
	if err != nil {
		return nil, fmt.Errorf("install: %w", err)
	}

	logger.InfoKV(ctx, "Installed", "command", installed.Command, "payload", installed.Payload)

	if err = saveReceipt(ctx, settings.InstallRoot, selection, installed); err != nil {
		return nil, fmt.Errorf("receipt: %w", err)
	}

	report := &Report{
		Selection:           selection,
		Installed:           installed,
		MissingDependencies: missingDependencies(ctx, resolved.DependsOn),
	}

	if opts.SkipTest {
		logger.Info(ctx, "Smoke test skipped")
		return report, nil
	}

	report.Test, err = smoketest.Check(ctx, installed.Command, installed.Test, settings.TestTimeout)
	if err != nil {
		return report, fmt.Errorf("%s %s installed at %s, but smoke test failed: %w",
			installed.Package, installed.Version, installed.Command, err)
	}

	logger.InfoKV(ctx, "Smoke test passed", "exit_code", report.Test.ExitCode)

	return report, nil
}

func applyOverrides(settings *config.Config, opts *Options) {
	if opts.InstallRoot != "" {
		settings.InstallRoot = opts.InstallRoot
	}

	if opts.FormulaDir != "" {
		settings.FormulaDir = opts.FormulaDir
	}
}

// fetchVerified returns the artifact bytes, from the cache when a verified
// copy exists, and only stores downloads that match the digest.
func fetchVerified(ctx context.Context, dl *downloader.Downloader, selection *formula.Selection) ([]byte, error) {
	if payload, ok := dl.Cached(ctx, selection.Digest); ok {
		logger.InfoKV(ctx, "Using cached artifact", "path", dl.CachePath(selection.Digest))
		return payload, nil
	}

	payload, err := dl.Fetch(ctx, selection.URL)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	if err = integrity.Verify(payload, selection.Digest); err != nil {
		return nil, fmt.Errorf("verify %s for %s: %w", selection.URL, selection.Target, err)
	}

	dl.Store(ctx, selection.Digest, payload)

	return payload, nil
}

// checkSignature verifies a detached signature when the rule publishes one.
// Without a keyring the check is skipped with a warning.
func checkSignature(
	ctx context.Context,
	dl *downloader.Downloader,
	keyringPath string,
	selection *formula.Selection,
	payload []byte,
) error {
	if selection.SignatureURL == "" {
		return nil
	}

	if keyringPath == "" {
		logger.WarnKV(ctx, "Skipping signature check", "reason", errNoKeyring.Error(), "signature_url", selection.SignatureURL)
		return nil
	}

	keyring, err := os.ReadFile(keyringPath) //nolint:gosec // Keyring path comes from settings.
	if err != nil {
		return fmt.Errorf("read keyring: %w", err)
	}

	signature, err := dl.Fetch(ctx, selection.SignatureURL)
	if err != nil {
		return fmt.Errorf("download signature: %w", err)
	}

	signer, err := integrity.VerifySignature(payload, signature, keyring)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Signature verified", "signer", signer)

	return nil
}

func saveReceipt(ctx context.Context, root string, selection *formula.Selection, installed *formula.InstalledBinary) error {
	record := &receipt.Receipt{
		Installed: installed,
		URL:       selection.URL,
		Target:    selection.Target,
	}

	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect actor", "error", err)
	} else {
		record.Hostname = actor.Hostname
		record.Username = actor.Username
	}

	return receipt.NewFileRepository(receipt.Dir(root)).Save(ctx, record)
}

// missingDependencies reports runtime prerequisites that are not on PATH.
// A version suffix such as python@3.12 is checked as "python3.12", then "python3".
func missingDependencies(ctx context.Context, dependsOn []string) []string {
	var missing []string

	for _, dependency := range dependsOn {
		if !onPath(dependency) {
			logger.WarnKV(ctx, "Runtime dependency not found on PATH", "dependency", dependency)
			missing = append(missing, dependency)
		}
	}

	return missing
}

func onPath(dependency string) bool {
	name, version, versioned := strings.Cut(dependency, "@")

	candidates := []string{name}
	if versioned {
		major, _, _ := strings.Cut(version, ".")
		candidates = []string{name + version, name + major, name}
	}

	for _, candidate := range candidates {
		if _, err := exec.LookPath(candidate); err == nil {
			return true
		}
	}

	return false
}
