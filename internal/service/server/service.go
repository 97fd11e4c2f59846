package server

import (
	"context"
	"fmt"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
	"github.com/sam-phinizy/beer-hall/internal/logger"
	repo "github.com/sam-phinizy/beer-hall/internal/repository/registry"
	"github.com/sam-phinizy/beer-hall/internal/resolver"
)

// service resolves packages against a formula registry.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// repo holds the loaded formulas.
	repo *repo.Registry
}

// newService creates a service backed by the provided registry.
func newService(registry *repo.Registry) *service {
	return &service{
		repo: registry,
	}
}

// Resolve selects the artifact of name@version for target.
func (s *service) Resolve(ctx context.Context, name, version string, target formula.Target) (*formula.Selection, error) {
	spec, err := s.repo.Get(ctx, name, version)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", name, err)
	}

	selection, err := resolver.Resolve(spec, target)
	if err != nil {
		logger.InfoKV(ctx, "Resolve rejected", "package", name, "version", spec.Version, "target", target, "error", err)
		return nil, err
	}

	logger.InfoKV(ctx, "Resolved", "package", name, "version", selection.Version, "target", target, "url", selection.URL)

	return selection, nil
}

// ListFormulas summarises every registered package.
func (s *service) ListFormulas(ctx context.Context) ([]formula.Summary, error) {
	return s.repo.Summaries(ctx), nil
}
