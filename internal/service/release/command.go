package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sam-phinizy/beer-hall/internal/config"
	"github.com/sam-phinizy/beer-hall/internal/logger"
)

// Options controls a release run.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// Tag is the git tag being released, e.g. gh-pr2org/v1.0.0.
	Tag string
	// RepoDir is the tap checkout; defaults to the working directory.
	RepoDir string
	// DryRun prints the plan instead of creating the release.
	DryRun bool
	// Preview renders the release notes for the terminal.
	Preview bool
	// Bump rewrites the tool's formula with the new version and digest.
	// Under DryRun the rewrite is only checked, not written.
	Bump bool
	// Out receives the plan and notes; defaults to stdout.
	Out io.Writer
	// Runner executes gh; defaults to ExecRunner.
	Runner Runner
}

// Plan is everything a release needs, computed without side effects.
type Plan struct {
	Tag    *Tag
	Script string
	Digest string
	Notes  string
}

// Runner executes an external command in dir and returns its stdout.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w", name, strings.Join(args[:min(len(args), 2)], " "), err)
	}

	return out, nil
}

// GitHubTokenEnv is read by gh for authentication.
const GitHubTokenEnv = "GH_TOKEN"

var errTagRequired = errors.New("tag is required")

// Prepare parses the tag, finds and hashes the script and renders notes.
func Prepare(repoDir, tag, tap string) (*Plan, error) {
	parsed, err := ParseTag(tag)
	if err != nil {
		return nil, err
	}

	script, err := FindScript(repoDir, parsed.Tool)
	if err != nil {
		return nil, err
	}

	digest, err := FileSHA256(filepath.Join(repoDir, filepath.FromSlash(script)))
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", script, err)
	}

	return &Plan{
		Tag:    parsed,
		Script: script,
		Digest: digest,
		Notes:  RenderNotes(parsed.Tool, parsed.Version, digest, tap),
	}, nil
}

// Publish creates the GitHub release with the script as its only asset.
func Publish(ctx context.Context, runner Runner, repoDir string, plan *Plan) (string, error) {
	out, err := runner.Run(ctx, repoDir, "gh",
		"release", "create", plan.Tag.String(),
		plan.Script,
		"--title", plan.Tag.Title(),
		"--notes", plan.Notes,
	)
	if err != nil {
		return "", fmt.Errorf("create release: %w", err)
	}

	return strings.TrimSpace(string(out)), nil
}

// Run prepares a release and, unless DryRun, publishes it.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "release")

	if opts.Tag == "" {
		return errTagRequired
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	repoDir := opts.RepoDir
	if repoDir == "" {
		repoDir = "."
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	plan, err := Prepare(repoDir, opts.Tag, settings.Tap)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}

	ctx = logger.WithKV(ctx, "tag", plan.Tag.String())
	logger.InfoKV(ctx, "Release prepared", "script", plan.Script, "sha256", plan.Digest)

	if opts.Preview {
		rendered, renderErr := PreviewNotes(plan.Notes, 0)
		if renderErr != nil {
			return renderErr
		}

		_, _ = fmt.Fprint(out, rendered)
	}

	formulaPath := ""

	if opts.Bump {
		formulaDir := settings.FormulaDir
		if !filepath.IsAbs(formulaDir) {
			formulaDir = filepath.Join(repoDir, formulaDir)
		}

		if formulaPath, err = FindFormula(formulaDir, plan.Tag.Tool); err != nil {
			return err
		}

		if opts.DryRun {
			if _, err = RenderBump(formulaPath, plan.Tag.Version, plan.Digest); err != nil {
				return err
			}
		} else {
			if err = BumpFormula(formulaPath, plan.Tag.Version, plan.Digest); err != nil {
				return err
			}

			logger.InfoKV(ctx, "Formula bumped", "formula", formulaPath)
		}
	}

	if opts.DryRun {
		printPlan(out, plan, opts.Preview)

		if formulaPath != "" {
			_, _ = fmt.Fprintf(out, "\nWould update formula: %s\n", formulaPath)
		}

		return nil
	}

	if os.Getenv(GitHubTokenEnv) == "" {
		logger.WarnKV(ctx, "GitHub token not set, relying on gh's own login", "env", GitHubTokenEnv)
	}

	result, err := Publish(ctx, runner, repoDir, plan)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Release created", "result", result)

	_, _ = fmt.Fprintf(out, "Release created: %s\n\nSHA256 hash for formula: %s\n", result, plan.Digest)

	if formulaPath == "" {
		_, _ = fmt.Fprintf(out, "\nNext steps:\n1. Update the %s formula with version %s and sha256 %s\n2. Commit and push the formula update\n",
			plan.Tag.Tool, plan.Tag.Version, plan.Digest)
	}

	return nil
}

func printPlan(out io.Writer, plan *Plan, notesShown bool) {
	_, _ = fmt.Fprintf(out, "DRY RUN - would create release:\nTag: %s\nTool: %s\nVersion: %s\nScript: %s\nSHA256: %s\n",
		plan.Tag, plan.Tag.Tool, plan.Tag.Version, plan.Script, plan.Digest)

	if !notesShown {
		_, _ = fmt.Fprintf(out, "\nRelease Notes:\n%s", plan.Notes)
	}
}
