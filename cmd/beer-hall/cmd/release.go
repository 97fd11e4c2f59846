package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sam-phinizy/beer-hall/internal/service/release"
)

var (
	// releaseOptions are bound to the release command flags.
	releaseOptions = new(release.Options)

	releaseCmd = &cobra.Command{
		Use:   "release <tool>/v<X.Y.Z>",
		Short: "Publish a script tool as a GitHub release.",
		Long: `Release finds scripts/<tool>, computes its SHA-256 and renders release
notes with install instructions. Unless --dry-run=false is passed, the plan
is only printed. A real run creates the release with "gh release create";
gh reads its token from ` + release.GitHubTokenEnv + `.

With --bump the tool's formula is rewritten with the new version and
digest, keeping its comments. A dry run only checks that the rewrite is valid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			releaseOptions.ConfigPath = configPath
			releaseOptions.Tag = args[0]
			releaseOptions.Out = cmd.OutOrStdout()

			return release.Run(cmd.Context(), releaseOptions)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := releaseCmd.Flags()
	flags.StringVar(&releaseOptions.RepoDir, "repo", "", "tap checkout (default: working directory)")
	flags.BoolVar(&releaseOptions.DryRun, "dry-run", true, "print the plan without publishing")
	flags.BoolVar(&releaseOptions.Preview, "preview", false, "render the release notes in the terminal")
	flags.BoolVar(&releaseOptions.Bump, "bump", false, "update the formula with the new version and digest (checked only under --dry-run)")

	rootCmd.AddCommand(releaseCmd)
}
