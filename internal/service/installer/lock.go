package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-ps"

	"github.com/sam-phinizy/beer-hall/internal/logger"
)

// DefaultLockLifetime is how long a marker is honoured while its holder
// process is still alive.
const DefaultLockLifetime = 30 * time.Minute

// ErrInstallInProgress is returned when another live process holds the lock.
var ErrInstallInProgress = errors.New("another install of this package is in progress")

var errMalformedLock = errors.New("malformed lock marker")

// Lock is a held install marker for one package.
type Lock struct {
	path  string
	token string
}

// AcquireLock creates <dir>/<name>.lock holding this process's PID and a
// random token. A marker left behind by a dead process, or one older than
// lifetime, is reclaimed.
func AcquireLock(ctx context.Context, dir, name string, lifetime time.Duration) (*Lock, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock := &Lock{
		path:  filepath.Join(dir, filepath.Base(name)+".lock"),
		token: uuid.NewString(),
	}

	for attempt := 0; attempt < 2; attempt++ {
		err := lock.create()
		if err == nil {
			logger.DebugKV(ctx, "Install lock acquired", "path", lock.path, "token", lock.token)
			return lock, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock %s: %w", lock.path, err)
		}

		if !isStale(ctx, lock.path, lifetime) {
			return nil, fmt.Errorf("%s: %w", name, ErrInstallInProgress)
		}

		logger.WarnKV(ctx, "Reclaiming stale install lock", "path", lock.path)

		if err = os.Remove(lock.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock %s: %w", lock.path, err)
		}
	}

	return nil, fmt.Errorf("%s: %w", name, ErrInstallInProgress)
}

// Release removes the marker if it still carries this lock's token.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}

	_, token, err := readLock(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil || token != l.token {
		return nil
	}

	if err = os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock %s: %w", l.path, err)
	}

	return nil
}

// Path returns the marker location.
func (l *Lock) Path() string { return l.path }

func (l *Lock) create() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gosec // Marker is not secret.
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(f, "%d %s\n", os.Getpid(), l.token)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(l.path)
	}

	return err
}

// isStale reports whether the marker at path may be reclaimed.
func isStale(ctx context.Context, path string, lifetime time.Duration) bool {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Is(err, os.ErrNotExist)
	}

	if lifetime > 0 && time.Since(info.ModTime()) > lifetime {
		logger.InfoKV(ctx, "The install lock is too old", "path", path, "modified", info.ModTime())
		return true
	}

	pid, _, err := readLock(path)
	if err != nil {
		logger.WarnKV(ctx, "Unable to read install lock", "path", path, "error", err)
		return false
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		return false
	}

	return process == nil
}

func readLock(path string) (int, string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is built from the install root.
	if err != nil {
		return 0, "", err
	}

	fields := strings.Fields(string(data))
	if len(fields) != 2 {
		return 0, "", errMalformedLock
	}

	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", errMalformedLock, err)
	}

	return pid, fields[1], nil
}
