package installer

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
	"github.com/sam-phinizy/beer-hall/internal/integrity"
	"github.com/sam-phinizy/beer-hall/internal/launcher"
	"github.com/sam-phinizy/beer-hall/internal/logger"
)

const (
	// DefaultFileMode is applied to installed executables and launchers.
	DefaultFileMode os.FileMode = 0o755

	// DefaultChecksumFunction gates the atomic apply of placed files.
	DefaultChecksumFunction crypto.Hash = crypto.SHA256

	// maxDecompressedSize caps what a compressed artifact may expand to.
	maxDecompressedSize int64 = 1 << 30

	dirMode os.FileMode = 0o755
)

var (
	errUnknownCompression = errors.New("unknown compression")
	errDecompressedSize   = errors.New("decompressed artifact exceeds size limit")
)

// Installer places artifacts under a root directory laid out as
// bin/, libexec/<package>/ and var/.
type Installer struct {
	root string
	now  func() time.Time
}

// New returns an installer rooted at root. A relative root is made absolute
// so launchers keep working from any directory.
func New(root string) *Installer {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}

	return &Installer{
		root: abs,
		now:  time.Now,
	}
}

// Root returns the install root.
func (i *Installer) Root() string { return i.root }

// BinDir holds public commands.
func (i *Installer) BinDir() string { return filepath.Join(i.root, "bin") }

// LibexecDir holds private payloads of interpreter-hosted packages.
func (i *Installer) LibexecDir(name string) string {
	return filepath.Join(i.root, "libexec", filepath.Base(name))
}

// LockDir holds install lock markers.
func (i *Installer) LockDir() string { return filepath.Join(i.root, "var", "locks") }

// Destinations returns where the payload and the public command will live.
func (i *Installer) Destinations(selection *formula.Selection) (payload, command string) {
	if selection.Launcher != nil {
		payload = filepath.Join(i.LibexecDir(selection.Package), selection.InstallName)
		command = filepath.Join(i.BinDir(), selection.Package)

		return payload, command
	}

	payload = filepath.Join(i.BinDir(), selection.InstallName)

	return payload, payload
}

// Install verifies payload against the selection's digest and only then
// places it. Nothing under the root is written when verification fails.
func (i *Installer) Install(ctx context.Context, selection *formula.Selection, payload []byte) (*formula.InstalledBinary, error) {
	if err := integrity.Verify(payload, selection.Digest); err != nil {
		return nil, err
	}

	data, err := decompress(selection.Compression, payload)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", selection.URL, err)
	}

	payloadPath, commandPath := i.Destinations(selection)

	logger.InfoKV(ctx, "Placing artifact", "path", payloadPath, "bytes", len(data))

	if err = place(payloadPath, data); err != nil {
		return nil, err
	}

	if selection.Launcher != nil {
		var script string

		script, err = launcher.Render(selection.Launcher.Interpreter, payloadPath)
		if err != nil {
			return nil, fmt.Errorf("render launcher: %w", err)
		}

		logger.InfoKV(ctx, "Writing launcher", "path", commandPath)

		if err = writeAtomic(commandPath, []byte(script)); err != nil {
			return nil, err
		}
	}

	return &formula.InstalledBinary{
		Package:     selection.Package,
		Version:     selection.Version,
		Command:     commandPath,
		Payload:     payloadPath,
		Digest:      selection.Digest,
		InstalledAt: i.now().UTC(),
		Test:        selection.Test,
	}, nil
}

// place applies data to target with go-update, gated by its own checksum,
// and marks the result executable.
func place(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return &formula.InstallWriteError{Path: filepath.Dir(target), Err: err}
	}

	// go-update swaps an existing file, so make sure one is there.
	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		f, createErr := os.OpenFile(target, os.O_CREATE|os.O_WRONLY, DefaultFileMode)
		if createErr != nil {
			return &formula.InstallWriteError{Path: target, Err: createErr}
		}

		_ = f.Close()
	}

	checksum := sha256.Sum256(data)

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: DefaultFileMode,
		Checksum:   checksum[:],
		Hash:       DefaultChecksumFunction,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return &formula.InstallWriteError{Path: target, Err: err}
	}

	oldFileName := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old")
	if _, err := os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	if err := os.Chmod(target, DefaultFileMode); err != nil {
		return &formula.InstallWriteError{Path: target, Err: err}
	}

	return nil
}

// writeAtomic writes data next to target and renames it into place.
func writeAtomic(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return &formula.InstallWriteError{Path: filepath.Dir(target), Err: err}
	}

	tmpPath := target + ".tmp"

	if err := os.WriteFile(tmpPath, data, DefaultFileMode); err != nil {
		_ = os.Remove(tmpPath)
		return &formula.InstallWriteError{Path: tmpPath, Err: err}
	}

	if err := os.Chmod(tmpPath, DefaultFileMode); err != nil {
		_ = os.Remove(tmpPath)
		return &formula.InstallWriteError{Path: tmpPath, Err: err}
	}

	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return &formula.InstallWriteError{Path: target, Err: err}
	}

	return nil
}

// decompress unpacks a single-file artifact.
func decompress(compression formula.Compression, payload []byte) ([]byte, error) {
	var (
		reader io.Reader
		closer func()
	)

	switch compression {
	case "", formula.CompressionNone:
		return payload, nil
	case formula.CompressionGzip:
		gz, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}

		reader, closer = gz, func() { _ = gz.Close() }
	case formula.CompressionZstd:
		zr, err := zstd.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}

		reader, closer = zr, zr.Close
	case formula.CompressionXZ:
		xr, err := xz.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}

		reader, closer = xr, func() {}
	default:
		return nil, fmt.Errorf("%q: %w", compression, errUnknownCompression)
	}

	defer closer()

	var out bytes.Buffer

	n, err := io.Copy(&out, io.LimitReader(reader, maxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress artifact: %w", err)
	}

	if n > maxDecompressedSize {
		return nil, errDecompressedSize
	}

	return out.Bytes(), nil
}
