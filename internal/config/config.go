package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	LedgerFile string `toml:"ledger_file"`
	ContentDB  string `toml:"content_db"`
	LogDir     string `toml:"log_dir"`
	BackupDir  string `toml:"backup_dir"`
}

// Shortcodes describes the directive grammar and companion links.
type Shortcodes struct {
	// Kinds lists the directive names that carry a legacy id, e.g. "product".
	Kinds []string `toml:"kinds"`
	// LinkPrefixes are path segments that mark a link as pointing at a catalog entry.
	LinkPrefixes []string `toml:"link_prefixes"`
	// CanonicalLinkPrefix is the path prefix rewritten links point at.
	CanonicalLinkPrefix string `toml:"canonical_link_prefix"`
}

// Catalog contains catalog index options.
type Catalog struct {
	// SlugPrefixes are distributor prefixes some catalog slugs carry.
	SlugPrefixes []string `toml:"slug_prefixes"`
}

// Matching contains match engine and scan tuning.
type Matching struct {
	AutoApproveThreshold int `toml:"auto_approve_threshold"`
	Lookbehind           int `toml:"lookbehind"`
	Lookahead            int `toml:"lookahead"`
	MinSignalLength      int `toml:"min_signal_length"`
	Workers              int `toml:"workers"`
}

// Ledger contains decision ledger options.
type Ledger struct {
	BackupOnReview bool `toml:"backup_on_review"`
	// BackupRetentionDays prunes older ledger backups; 0 keeps them all.
	BackupRetentionDays int `toml:"backup_retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for relink.
//
// Configuration sections by subsystem:
//   - Paths: ledger snapshot, content database, logs and backups
//   - Shortcodes: directive kinds and catalog link prefixes
//   - Catalog: distributor slug prefixes
//   - Matching: confidence threshold, context window and worker count
//   - Ledger: backup behaviour
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Shortcodes Shortcodes `toml:"shortcodes"`
	Catalog    Catalog    `toml:"catalog"`
	Matching   Matching   `toml:"matching"`
	Ledger     Ledger     `toml:"ledger"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("relink.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories relink writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Paths.LedgerFile), c.Paths.LogDir}
	if c.Ledger.BackupOnReview {
		dirs = append(dirs, c.Paths.BackupDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogFile returns the path of the persistent log file, or "" when file
// logging is disabled.
func (c *Config) LogFile() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "relink.log")
}

// DirectiveMarker returns the substring every directive body contains. It
// lets the store skip bodies that cannot hold a token.
func (c *Config) DirectiveMarker() string {
	if len(c.Shortcodes.Kinds) == 1 {
		return "[" + c.Shortcodes.Kinds[0]
	}
	return "["
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string { return sampleConfig }

// CreateSample writes a sample configuration file to the specified location.
// An existing file is never overwritten.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	if _, err := file.WriteString(sampleConfig); err != nil {
		_ = file.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return file.Close()
}
