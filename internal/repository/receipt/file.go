package receipt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
)

// Receipt records one completed install.
type Receipt struct {
	// Installed describes the placed artifact.
	Installed *formula.InstalledBinary
	// URL is where the artifact was downloaded from.
	URL string
	// Target is the platform the artifact was resolved for.
	Target formula.Target
	// Hostname and Username identify who ran the install.
	Hostname string
	Username string
}

// Repository defines persistence operations for install receipts.
type Repository interface {
	Load(ctx context.Context, name string) (*Receipt, error)
	Save(ctx context.Context, receipt *Receipt) error
}

// FileRepository persists receipts as JSON files in a directory.
// JSON is produced and consumed via protojson over a Struct so the same
// document can be served by the registry API without conversion.
type FileRepository struct {
	// dir is the directory holding <name>.json receipts.
	dir string
	// mu protects concurrent access to the receipt files.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when no receipt exists for the package.
	ErrNotFound = errors.New("receipt not found")

	errNilReceipt = errors.New("receipt is nil")
)

// receiptPermissions keeps receipts readable by other users of the prefix.
const receiptPermissions = 0o644

// NewFileRepository creates a repository that reads/writes receipts in dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{
		dir: filepath.Clean(dir),
	}
}

// Dir returns the receipt directory for an install root.
func Dir(installRoot string) string {
	return filepath.Join(installRoot, "var", "receipts")
}

// Load reads the receipt of the named package.
func (r *FileRepository) Load(_ context.Context, name string) (*Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}

		return nil, fmt.Errorf("read receipt: %w", err)
	}

	var doc structpb.Struct
	if err = protojson.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}

	return fromStruct(&doc)
}

// Save writes the receipt, replacing any previous one for the package.
func (r *FileRepository) Save(_ context.Context, receipt *Receipt) error {
	if receipt == nil || receipt.Installed == nil {
		return errNilReceipt
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := toStruct(receipt)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	if err = os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create receipt directory: %w", err)
	}

	if err = os.WriteFile(r.path(receipt.Installed.Package), data, receiptPermissions); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}

	return nil
}

func (r *FileRepository) path(name string) string {
	return filepath.Join(r.dir, filepath.Base(name)+".json")
}

// toStruct converts a Receipt into a protobuf Struct.
func toStruct(receipt *Receipt) (*structpb.Struct, error) {
	installed := receipt.Installed

	exitCodes := make([]any, 0, len(installed.Test.ExitCodes))
	for _, code := range installed.Test.ExitCodes {
		exitCodes = append(exitCodes, code)
	}

	args := make([]any, 0, len(installed.Test.Args))
	for _, arg := range installed.Test.Args {
		args = append(args, arg)
	}

	return structpb.NewStruct(map[string]any{
		"package":      installed.Package,
		"version":      installed.Version,
		"command":      installed.Command,
		"payload":      installed.Payload,
		"sha256":       installed.Digest,
		"installed_at": installed.InstalledAt.UTC().Format(time.RFC3339Nano),
		"url":          receipt.URL,
		"os":           string(receipt.Target.OS),
		"arch":         string(receipt.Target.Arch),
		"hostname":     receipt.Hostname,
		"username":     receipt.Username,
		"test": map[string]any{
			"args":       args,
			"exit_codes": exitCodes,
			"marker":     installed.Test.Marker,
		},
	})
}

// fromStruct converts a protobuf Struct back into a Receipt.
func fromStruct(doc *structpb.Struct) (*Receipt, error) {
	fields := doc.GetFields()
	str := func(key string) string { return fields[key].GetStringValue() }

	var installedAt time.Time

	if raw := str("installed_at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("decode installed_at: %w", err)
		}

		installedAt = parsed
	}

	var test formula.SmokeTest

	if testFields := fields["test"].GetStructValue().GetFields(); testFields != nil {
		for _, v := range testFields["args"].GetListValue().GetValues() {
			test.Args = append(test.Args, v.GetStringValue())
		}

		for _, v := range testFields["exit_codes"].GetListValue().GetValues() {
			test.ExitCodes = append(test.ExitCodes, int(v.GetNumberValue()))
		}

		test.Marker = testFields["marker"].GetStringValue()
	}

	return &Receipt{
		Installed: &formula.InstalledBinary{
			Package:     str("package"),
			Version:     str("version"),
			Command:     str("command"),
			Payload:     str("payload"),
			Digest:      str("sha256"),
			InstalledAt: installedAt,
			Test:        test,
		},
		URL:      str("url"),
		Target:   formula.Target{OS: formula.OS(str("os")), Arch: formula.Arch(str("arch"))},
		Hostname: str("hostname"),
		Username: str("username"),
	}, nil
}
