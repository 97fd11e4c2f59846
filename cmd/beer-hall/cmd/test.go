package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sam-phinizy/beer-hall/internal/service/smoketest"
)

var (
	// testOptions are bound to the test command flags.
	testOptions = new(smoketest.Options)

	testCmd = &cobra.Command{
		Use:   "test <name>",
		Short: "Re-run the smoke test of an installed package.",
		Long: `Run the smoke test recorded in the package's install receipt: invoke the
installed command with its test arguments and require an allowed exit status
and the marker in the combined output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			testOptions.ConfigPath = configPath
			testOptions.Name = args[0]

			result, err := smoketest.Run(cmd.Context(), testOptions)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ok %s (exit %d, %s)\n", result.Command, result.ExitCode, result.Duration.Round(time.Millisecond))

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	testCmd.Flags().StringVarP(&testOptions.InstallRoot, "root", "r", "", "install root (default from settings)")

	rootCmd.AddCommand(testCmd)
}
