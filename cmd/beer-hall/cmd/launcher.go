package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sam-phinizy/beer-hall/internal/launcher"
)

var launcherCmd = &cobra.Command{
	Use:   "launcher <payload> <interpreter> [interpreter-args...]",
	Short: "Print the launcher script for a payload.",
	Long: `Render the launcher script beer-hall installs in front of interpreter-hosted
payloads, for example:

  beer-hall launcher /opt/libexec/gh-pr2org/gh-pr2org.py uv run`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := launcher.Render(args[1:], args[0])
		if err != nil {
			return err
		}

		_, _ = fmt.Fprint(cmd.OutOrStdout(), script)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Interpreter arguments such as "-u" belong to the script, not to beer-hall.
	launcherCmd.Flags().SetInterspersed(false)

	rootCmd.AddCommand(launcherCmd)
}
