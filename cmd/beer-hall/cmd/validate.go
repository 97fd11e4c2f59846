package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sam-phinizy/beer-hall/internal/config"
	"github.com/sam-phinizy/beer-hall/internal/repository/registry"
	"github.com/sam-phinizy/beer-hall/internal/resolver"
)

var (
	// validateMatrix prints the resolution of every supported target.
	validateMatrix bool

	validateCmd = &cobra.Command{
		Use:   "validate [file-or-dir...]",
		Short: "Check formulas for authoring defects.",
		Long: `Validate formula files against the formula schema and the rule-table
invariants: digests are 64 lowercase hex characters, URL templates hold
exactly one {version}, every declared platform has an artifact and no two
rules overlap. Without arguments the configured formula directory is checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				settings, err := config.Load(configPath)
				if err != nil {
					return err
				}

				args = []string{settings.FormulaDir}
			}

			formulas := registry.New()

			var errs []error

			for _, path := range args {
				if err := loadInto(formulas, path); err != nil {
					errs = append(errs, err)
				}
			}

			if len(errs) > 0 {
				return errors.Join(errs...)
			}

			out := cmd.OutOrStdout()

			for _, spec := range formulas.List(cmd.Context()) {
				_, _ = fmt.Fprintf(out, "ok %s %s (%s)\n", spec.Name, spec.Version, formulas.Source(spec.Name, spec.Version))

				if !validateMatrix {
					continue
				}

				matrix, err := resolver.Matrix(spec)
				if err != nil {
					return err
				}

				for _, view := range sortedSelections(matrix) {
					_, _ = fmt.Fprintf(out, "  %-14s %s\n", view.Target, view.URL)
				}
			}

			return nil
		},
	}
)

// loadInto adds a formula file, or every formula under a directory.
func loadInto(formulas *registry.Registry, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return formulas.LoadFile(path)
	}

	return formulas.LoadDir(path)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	validateCmd.Flags().BoolVar(&validateMatrix, "matrix", false, "print the artifact URL for every supported target")

	rootCmd.AddCommand(validateCmd)
}
