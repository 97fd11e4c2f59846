package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sam-phinizy/beer-hall/internal/config"
	"github.com/sam-phinizy/beer-hall/internal/service/resolve"
)

var (
	// resolveOptions are bound to the resolve command flags.
	resolveOptions = new(resolve.Options)
	// resolveAll prints every supported target instead of one.
	resolveAll bool

	resolveCmd = &cobra.Command{
		Use:   "resolve <name>[@version]",
		Short: "Print the artifact a package resolves to.",
		Long: `Resolve a package for the host platform (or --target os/arch) and print the
download URL, SHA-256 digest and install name as YAML.

With --registry-addr the lookup goes through a beer-hall registry server.
With --all every supported target of a local formula is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolveOptions.ConfigPath = configPath
			resolveOptions.Name, resolveOptions.Version = splitRef(args[0])

			if resolveAll {
				settings, err := config.Load(configPath)
				if err != nil {
					return err
				}

				if resolveOptions.FormulaDir != "" {
					settings.FormulaDir = resolveOptions.FormulaDir
				}

				matrix, err := resolve.Matrix(cmd.Context(), settings, resolveOptions.Name, resolveOptions.Version)
				if err != nil {
					return err
				}

				return writeYAML(cmd.OutOrStdout(), sortedSelections(matrix))
			}

			result, err := resolve.Run(cmd.Context(), resolveOptions)
			if err != nil {
				return err
			}

			return writeYAML(cmd.OutOrStdout(), newSelectionView(result.Selection))
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := resolveCmd.Flags()
	flags.StringVarP(&resolveOptions.Target, "target", "t", "", "platform as os/arch, e.g. linux/x86_64 (default: host)")
	flags.StringVar(&resolveOptions.FormulaDir, "formula-dir", "", "formula directory (default from settings)")
	flags.StringVar(&resolveOptions.RegistryAddress, "registry-addr", "", "resolve through the registry server at this address")
	flags.BoolVar(&resolveAll, "all", false, "print every supported target")

	rootCmd.AddCommand(resolveCmd)
}
