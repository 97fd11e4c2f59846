package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/sam-phinizy/beer-hall/internal/config"
	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
	"github.com/sam-phinizy/beer-hall/internal/logger"
	"github.com/sam-phinizy/beer-hall/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel is the minimum level written to stderr.
	logLevel string
	// quiet limits logging to warnings and errors.
	quiet bool

	errBadLogLevel = errors.New("unknown log level")

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   "beer-hall",
		Short: "Resolve, install and test tools from the beer-hall tap.",
		Long: `beer-hall resolves package formulas for the current platform, downloads and
verifies their artifacts, installs them into an install root and smoke tests
the result. It also validates formulas, serves them over gRPC and automates
tool releases.

Logs go to stderr; command results go to stdout.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
	}
)

// Execute runs the beer-hall CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		if errors.Is(err, formula.ErrTestFailure) {
			logger.ErrorKV(ctx, "Installed, but smoke test failed", "error", err)
		} else {
			logger.ErrorKV(ctx, "Command failed", "error", err)
		}

		os.Exit(1)
	}
}

// setupLogging applies --log-level and --quiet before any command runs.
func setupLogging(_ *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("%q: %w", logLevel, errBadLogLevel)
	}

	logger.SetLevel(level)

	if quiet {
		logger.SetLogger(logger.New(nil, logger.WithLevel(zapcore.WarnLevel)))
	}

	return nil
}

// splitRef splits "name@version" into its parts; the version may be empty.
func splitRef(ref string) (name, version string) {
	name, version, _ = strings.Cut(ref, "@")

	return name, version
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+config.DefaultConfigFilename+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
}
