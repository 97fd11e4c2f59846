package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sam-phinizy/beer-hall/internal/config"
	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
	"github.com/sam-phinizy/beer-hall/internal/repository/registry"
	"github.com/sam-phinizy/beer-hall/internal/service/common"
)

var (
	// listFormulaDir overrides the formula directory.
	listFormulaDir string
	// listRegistryAddress lists a registry server instead of local formulas.
	listRegistryAddress string

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the packages in the tap.",
		Long: `List every package with its latest version, the other known versions and
the platforms it supports. With --registry-addr the listing comes from a
beer-hall registry server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Load(configPath)
			if err != nil {
				return err
			}

			var summaries []formula.Summary

			if listRegistryAddress != "" {
				client, dialErr := common.Dial(cmd.Context(), listRegistryAddress, common.WithCallTimeout(settings.Timeout))
				if dialErr != nil {
					return dialErr
				}

				defer func() {
					_ = client.Close()
				}()

				if summaries, err = client.ListFormulas(cmd.Context()); err != nil {
					return err
				}
			} else {
				if listFormulaDir != "" {
					settings.FormulaDir = listFormulaDir
				}

				formulas, loadErr := registry.Load(settings.FormulaDir)
				if loadErr != nil {
					return loadErr
				}

				summaries = formulas.Summaries(cmd.Context())
			}

			renderSummaries(cmd.OutOrStdout(), summaries)

			return nil
		},
	}
)

// renderSummaries prints one styled block per package.
func renderSummaries(w io.Writer, summaries []formula.Summary) {
	nameStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39"))

	versionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	descriptionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	hintStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("242")).
		Italic(true)

	if len(summaries) == 0 {
		_, _ = fmt.Fprintln(w, hintStyle.Render("No formulas found."))
		return
	}

	for _, summary := range summaries {
		_, _ = fmt.Fprintf(w, "%s %s\n", nameStyle.Render(summary.Name), versionStyle.Render(summary.Latest))

		if summary.Description != "" {
			_, _ = fmt.Fprintf(w, "  %s\n", descriptionStyle.Render(summary.Description))
		}

		platforms := make([]string, 0, len(summary.Platforms))
		for _, target := range summary.Platforms {
			platforms = append(platforms, target.String())
		}

		_, _ = fmt.Fprintf(w, "  %s\n", hintStyle.Render("platforms: "+strings.Join(platforms, ", ")))

		if len(summary.Versions) > 1 {
			_, _ = fmt.Fprintf(w, "  %s\n", hintStyle.Render("versions: "+strings.Join(summary.Versions, ", ")))
		}
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	listCmd.Flags().StringVar(&listFormulaDir, "formula-dir", "", "formula directory (default from settings)")
	listCmd.Flags().StringVar(&listRegistryAddress, "registry-addr", "", "list the registry server at this address")

	rootCmd.AddCommand(listCmd)
}
