package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sam-phinizy/beer-hall/internal/service/server"
)

var (
	// serveOptions are bound to the serve command flags.
	serveOptions = new(server.Options)

	serveCmd = &cobra.Command{
		Use:   "serve [listen-address]",
		Short: "Serve the formula registry over gRPC.",
		Long: `Serve loads every formula once and answers Resolve and ListFormulas
calls until interrupted. Without an argument the port of registry_addr from
settings is used on all interfaces.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serveOptions.ConfigPath = configPath
			if len(args) > 0 {
				serveOptions.ListenAddress = args[0]
			}

			return server.Run(cmd.Context(), serveOptions)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	serveCmd.Flags().StringVar(&serveOptions.FormulaDir, "formula-dir", "", "formula directory (default from settings)")

	rootCmd.AddCommand(serveCmd)
}
