package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
)

var (
	// ErrNotFound is returned when no formula matches the requested name or version.
	ErrNotFound = errors.New("formula not found")
	// ErrDuplicate is returned when two files define the same name and version.
	ErrDuplicate = errors.New("duplicate formula version")
)

// Repository defines read access to the formula registry.
type Repository interface {
	Get(ctx context.Context, name, version string) (*formula.Spec, error)
	Latest(ctx context.Context, name string) (*formula.Spec, error)
	List(ctx context.Context) []*formula.Spec
}

// entry pairs a spec with the file it came from.
type entry struct {
	spec   *formula.Spec
	source string
}

// Registry is an in-memory, versioned view of the formula directory.
// Several versions of one package may coexist; Latest picks the highest.
type Registry struct {
	// mu protects packages.
	mu sync.RWMutex
	// packages maps name -> version -> entry.
	packages map[string]map[string]entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		packages: make(map[string]map[string]entry),
	}
}

// Load reads every formula file in dir (recursively) into a new registry.
// All files are parsed; every failure is reported together.
func Load(dir string) (*Registry, error) {
	reg := New()
	if err := reg.LoadDir(dir); err != nil {
		return nil, err
	}

	return reg, nil
}

// LoadDir adds every formula file under dir.
func (r *Registry) LoadDir(dir string) error {
	var errs []error

	walkErr := filepath.WalkDir(filepath.Clean(dir), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !IsFormulaFile(d.Name()) {
			return nil
		}

		if err = r.LoadFile(path); err != nil {
			errs = append(errs, err)
		}

		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("read formula directory: %w", walkErr)
	}

	return errors.Join(errs...)
}

// LoadFile decodes one formula file and adds it.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read formula: %w", err)
	}

	specs, err := DecodeAll(path, data)
	if err != nil {
		return err
	}

	var errs []error

	for _, spec := range specs {
		if err = r.add(spec, path); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Add registers a spec that did not come from disk. The spec is validated.
func (r *Registry) Add(spec *formula.Spec) error {
	if err := formula.Validate(spec); err != nil {
		return err
	}

	return r.add(spec, "")
}

func (r *Registry) add(spec *formula.Spec, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions, ok := r.packages[spec.Name]
	if !ok {
		versions = make(map[string]entry)
		r.packages[spec.Name] = versions
	}

	if existing, dup := versions[spec.Version]; dup {
		return fmt.Errorf("%s %s in %q and %q: %w", spec.Name, spec.Version, existing.source, source, ErrDuplicate)
	}

	versions[spec.Version] = entry{spec: spec, source: source}

	return nil
}

// Get returns the exact version of name. An empty version means latest.
func (r *Registry) Get(ctx context.Context, name, version string) (*formula.Spec, error) {
	if version == "" {
		return r.Latest(ctx, name)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.packages[name][version]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", name, version, ErrNotFound)
	}

	return e.spec, nil
}

// Latest returns the highest version of name.
func (r *Registry) Latest(_ context.Context, name string) (*formula.Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.sortedVersions(name)
	if len(versions) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	return r.packages[name][versions[len(versions)-1]].spec, nil
}

// Versions returns every known version of name in ascending order.
func (r *Registry) Versions(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedVersions(name)
}

// Source returns the file a spec was loaded from, if any.
func (r *Registry) Source(name, version string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.packages[name][version].source
}

// List returns every spec ordered by name, then version.
func (r *Registry) List(_ context.Context) []*formula.Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.packages))
	for name := range r.packages {
		names = append(names, name)
	}

	sort.Strings(names)

	var specs []*formula.Spec

	for _, name := range names {
		for _, version := range r.sortedVersions(name) {
			specs = append(specs, r.packages[name][version].spec)
		}
	}

	return specs
}

// sortedVersions must be called with mu held.
func (r *Registry) sortedVersions(name string) []string {
	versions := make([]string, 0, len(r.packages[name]))
	for version := range r.packages[name] {
		versions = append(versions, version)
	}

	slices.SortFunc(versions, formula.CompareVersions)

	return versions
}

// Summaries describes each package once, at its latest version.
func (r *Registry) Summaries(ctx context.Context) []formula.Summary {
	var summaries []formula.Summary

	for _, spec := range r.List(ctx) {
		versions := r.Versions(spec.Name)
		if len(versions) == 0 || versions[len(versions)-1] != spec.Version {
			continue
		}

		summaries = append(summaries, formula.Summary{
			Name:        spec.Name,
			Description: spec.Description,
			Homepage:    spec.Homepage,
			Latest:      spec.Version,
			Versions:    versions,
			Platforms:   spec.SupportedTargets(),
		})
	}

	return summaries
}
