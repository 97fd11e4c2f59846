package resolve

import (
	"context"
	"fmt"

	"github.com/sam-phinizy/beer-hall/internal/config"
	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
	"github.com/sam-phinizy/beer-hall/internal/logger"
	"github.com/sam-phinizy/beer-hall/internal/repository/registry"
	"github.com/sam-phinizy/beer-hall/internal/resolver"
	"github.com/sam-phinizy/beer-hall/internal/service/common"
)

// Options controls one resolution.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// Name is the package to resolve.
	Name string
	// Version pins an exact version; empty selects the latest.
	Version string
	// Target overrides the detected host platform, as "os/arch".
	Target string
	// FormulaDir overrides the formula directory from settings.
	FormulaDir string
	// RegistryAddress resolves through a registry server instead of local formulas.
	RegistryAddress string
}

// Request names what to resolve.
type Request struct {
	Name    string
	Version string
	Target  formula.Target
}

// Result is a selection plus what only a local formula can tell.
type Result struct {
	Selection *formula.Selection
	// DependsOn is empty for remote resolutions.
	DependsOn []string
}

// Run loads settings and resolves one package.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "resolve")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.FormulaDir != "" {
		settings.FormulaDir = opts.FormulaDir
	}

	target, err := ParseTarget(opts.Target)
	if err != nil {
		return nil, err
	}

	return Resolve(ctx, settings, opts.RegistryAddress, &Request{
		Name:    opts.Name,
		Version: opts.Version,
		Target:  target,
	})
}

// ParseTarget parses an "os/arch" override, or detects the host when empty.
func ParseTarget(raw string) (formula.Target, error) {
	if raw == "" {
		return formula.DetectTarget(), nil
	}

	target, err := formula.ParseTarget(raw)
	if err != nil {
		return formula.Target{}, fmt.Errorf("parse target: %w", err)
	}

	return target, nil
}

// Resolve selects the artifact locally, or through the registry server at
// remote when it is non-empty.
func Resolve(ctx context.Context, settings *config.Config, remote string, req *Request) (*Result, error) {
	if remote != "" {
		return resolveRemote(ctx, settings, remote, req)
	}

	formulas, err := registry.Load(settings.FormulaDir)
	if err != nil {
		return nil, fmt.Errorf("load formulas: %w", err)
	}

	spec, err := formulas.Get(ctx, req.Name, req.Version)
	if err != nil {
		return nil, err
	}

	selection, err := resolver.Resolve(spec, req.Target)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Resolved locally", "package", req.Name, "source", formulas.Source(spec.Name, spec.Version))

	return &Result{
		Selection: selection,
		DependsOn: spec.DependsOn,
	}, nil
}

func resolveRemote(ctx context.Context, settings *config.Config, remote string, req *Request) (*Result, error) {
	client, err := common.Dial(ctx, remote, common.WithCallTimeout(settings.Timeout))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = client.Close()
	}()

	selection, err := client.Resolve(ctx, req.Name, req.Version, req.Target)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Resolved remotely", "package", req.Name, "registry", remote)

	return &Result{Selection: selection}, nil
}

// Matrix resolves a local package for every known target it supports.
func Matrix(ctx context.Context, settings *config.Config, name, version string) (map[formula.Target]*formula.Selection, error) {
	formulas, err := registry.Load(settings.FormulaDir)
	if err != nil {
		return nil, fmt.Errorf("load formulas: %w", err)
	}

	spec, err := formulas.Get(ctx, name, version)
	if err != nil {
		return nil, err
	}

	return resolver.Matrix(spec)
}
