package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sam-phinizy/beer-hall/internal/service/installer"
)

var (
	// installOptions are bound to the install command flags.
	installOptions = new(installer.Options)
	// noProgress hides the download progress bar.
	noProgress bool

	installCmd = &cobra.Command{
		Use:   "install <name>[@version]",
		Short: "Download, verify, install and smoke test a package.",
		Long: `Install resolves a package for the host platform, downloads the artifact,
verifies its SHA-256 digest (and detached signature when a keyring is
configured), places it under <install-root>/bin and runs its smoke test.

Interpreter-hosted packages are placed under <install-root>/libexec/<name>
with a launcher script in <install-root>/bin. A receipt is written to
<install-root>/var/receipts/<name>.json.

A failing smoke test leaves the install in place and exits non-zero.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			installOptions.ConfigPath = configPath
			installOptions.Name, installOptions.Version = splitRef(args[0])

			if !noProgress && !quiet {
				installOptions.Progress = os.Stderr
			}

			report, err := installer.Install(cmd.Context(), installOptions)
			if report != nil && report.Installed != nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), report.Installed.Command)
			}

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := installCmd.Flags()
	flags.StringVarP(&installOptions.Target, "target", "t", "", "platform as os/arch (default: host)")
	flags.StringVarP(&installOptions.InstallRoot, "root", "r", "", "install root (default from settings)")
	flags.StringVar(&installOptions.FormulaDir, "formula-dir", "", "formula directory (default from settings)")
	flags.StringVar(&installOptions.RegistryAddress, "registry-addr", "", "resolve through the registry server at this address")
	flags.BoolVar(&installOptions.SkipTest, "skip-test", false, "do not run the smoke test")
	flags.BoolVar(&noProgress, "no-progress", false, "hide the download progress bar")

	rootCmd.AddCommand(installCmd)
}
