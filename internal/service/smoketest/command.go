package smoketest

import (
	"context"
	"errors"
	"fmt"

	"github.com/sam-phinizy/beer-hall/internal/config"
	"github.com/sam-phinizy/beer-hall/internal/logger"
	"github.com/sam-phinizy/beer-hall/internal/repository/receipt"
)

// Options controls a smoke test run against an installed package.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// Name is the installed package to test.
	Name string
	// InstallRoot overrides the install root from settings.
	InstallRoot string
}

var errNotInstalled = errors.New("package is not installed")

// Run re-runs the recorded smoke test of an installed package.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "smoketest")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	root := settings.InstallRoot
	if opts.InstallRoot != "" {
		root = opts.InstallRoot
	}

	receipts := receipt.NewFileRepository(receipt.Dir(root))

	record, err := receipts.Load(ctx, opts.Name)
	if errors.Is(err, receipt.ErrNotFound) {
		return nil, fmt.Errorf("%s under %s: %w", opts.Name, root, errNotInstalled)
	}

	if err != nil {
		return nil, fmt.Errorf("load receipt: %w", err)
	}

	ctx = logger.WithKV(ctx, "package", opts.Name)

	result, err := Check(ctx, record.Installed.Command, record.Installed.Test, settings.TestTimeout)
	if err != nil {
		return result, fmt.Errorf("smoke test %s %s: %w", record.Installed.Package, record.Installed.Version, err)
	}

	logger.InfoKV(ctx, "Smoke test passed", "command", record.Installed.Command, "exit_code", result.ExitCode)

	return result, nil
}
