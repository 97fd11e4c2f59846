package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every beer-hall command.
type Config struct {
	// FormulaDir is the directory holding formula files.
	FormulaDir string `yaml:"formula_dir" mapstructure:"formula_dir"`
	// InstallRoot is the prefix that receives bin/, libexec/ and var/.
	InstallRoot string `yaml:"install_root" mapstructure:"install_root"`
	// CacheDir keeps verified downloads keyed by digest. Empty disables caching.
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`
	// Keyring is an optional armored OpenPGP public keyring for signed artifacts.
	Keyring string `yaml:"keyring" mapstructure:"keyring"`
	// RegistryAddress is the gRPC address of a remote registry server.
	RegistryAddress string `yaml:"registry_addr" mapstructure:"registry_addr"`
	// Tap is the "owner/name" of the tap, used in release notes.
	Tap string `yaml:"tap" mapstructure:"tap"`
	// DownloadTimeout bounds a single artifact download.
	DownloadTimeout time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
	// TestTimeout bounds a single smoke test run.
	TestTimeout time.Duration `yaml:"test_timeout" mapstructure:"test_timeout"`
	// Timeout bounds registry RPC calls.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MaxArtifactSize caps the bytes accepted for one artifact.
	MaxArtifactSize int64 `yaml:"max_artifact_size" mapstructure:"max_artifact_size"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "beer-hall.yaml"

	// DefaultFormulaDir is where formulas live inside the tap.
	DefaultFormulaDir = "Formula"

	// DefaultTap is the tap used in release notes.
	DefaultTap = "sam-phinizy/beer-hall"

	// DefaultDownloadTimeout is the download deadline when none is configured.
	DefaultDownloadTimeout = 5 * time.Minute

	// DefaultTestTimeout is the smoke test deadline when none is configured.
	DefaultTestTimeout = 30 * time.Second

	// DefaultTimeout is the default duration for registry RPC calls.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxArtifactSize caps downloads at 512 MiB.
	DefaultMaxArtifactSize int64 = 512 << 20

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// EnvPrefix prefixes environment overrides, e.g. BEER_HALL_INSTALL_ROOT.
	EnvPrefix = "BEER_HALL"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeSize is returned for a negative artifact size cap.
	errNegativeSize = errors.New("max_artifact_size must not be negative")
	// errBadTap is returned when the tap is not owner/name.
	errBadTap = errors.New("tap must look like owner/name")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		FormulaDir:      DefaultFormulaDir,
		InstallRoot:     defaultInstallRoot(),
		Tap:             DefaultTap,
		DownloadTimeout: DefaultDownloadTimeout,
		TestTimeout:     DefaultTestTimeout,
		Timeout:         DefaultTimeout,
		MaxArtifactSize: DefaultMaxArtifactSize,
	}

	return cfg
}

// Load reads configuration from path, applies BEER_HALL_* environment
// overrides and defaults, and validates the result. A missing file at the
// default location is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	defaults := Default()

	v := viper.New()
	v.SetConfigFile(filepath.Clean(path))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("formula_dir", defaults.FormulaDir)
	v.SetDefault("install_root", defaults.InstallRoot)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("keyring", defaults.Keyring)
	v.SetDefault("registry_addr", defaults.RegistryAddress)
	v.SetDefault("tap", defaults.Tap)
	v.SetDefault("download_timeout", defaults.DownloadTimeout)
	v.SetDefault("test_timeout", defaults.TestTimeout)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("max_artifact_size", defaults.MaxArtifactSize)

	if _, err := os.Stat(path); err == nil {
		if err = v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in defaults for empty fields.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.FormulaDir == "" {
		settings.FormulaDir = DefaultFormulaDir
	}

	if settings.InstallRoot == "" {
		settings.InstallRoot = defaultInstallRoot()
	}

	if settings.Tap == "" {
		settings.Tap = DefaultTap
	}

	if owner, name, ok := strings.Cut(settings.Tap, "/"); !ok || owner == "" || name == "" {
		return fmt.Errorf("%q: %w", settings.Tap, errBadTap)
	}

	if settings.DownloadTimeout <= 0 {
		settings.DownloadTimeout = DefaultDownloadTimeout
	}

	if settings.TestTimeout <= 0 {
		settings.TestTimeout = DefaultTestTimeout
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.MaxArtifactSize < 0 {
		return errNegativeSize
	}

	if settings.MaxArtifactSize == 0 {
		settings.MaxArtifactSize = DefaultMaxArtifactSize
	}

	if settings.RegistryAddress == "" {
		return nil
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.RegistryAddress); err != nil {
		return fmt.Errorf("invalid registry address: %w", err)
	}

	return nil
}

// defaultInstallRoot is ~/.local, falling back to a relative prefix.
func defaultInstallRoot() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".beer-hall"
	}

	return filepath.Join(home, ".local")
}
