package config

import (
	"errors"
	"fmt"
	"regexp"
)

var kindPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateShortcodes(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Ledger.BackupRetentionDays < 0 {
		return errors.New("ledger.backup_retention_days must be >= 0")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.LedgerFile == "" {
		return errors.New("paths.ledger_file must be set")
	}
	if c.Paths.ContentDB == "" {
		return fmt.Errorf("paths.content_db must be set (or export %s)", contentDBEnv)
	}
	if c.Paths.LedgerFile == c.Paths.ContentDB {
		return errors.New("paths.ledger_file and paths.content_db must differ")
	}
	return nil
}

func (c *Config) validateShortcodes() error {
	if len(c.Shortcodes.Kinds) == 0 {
		return errors.New("shortcodes.kinds must list at least one directive kind")
	}
	for _, kind := range c.Shortcodes.Kinds {
		if !kindPattern.MatchString(kind) {
			return fmt.Errorf("shortcodes.kinds: %q may only contain letters, digits, '_' and '-'", kind)
		}
	}
	if len(c.Shortcodes.LinkPrefixes) == 0 {
		return errors.New("shortcodes.link_prefixes must list at least one path prefix")
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	if m.AutoApproveThreshold < 1 || m.AutoApproveThreshold > 100 {
		return errors.New("matching.auto_approve_threshold must be between 1 and 100")
	}
	if m.Lookbehind < 1 || m.Lookbehind > maxContextWindow {
		return fmt.Errorf("matching.lookbehind must be between 1 and %d", maxContextWindow)
	}
	if m.Lookahead < 1 || m.Lookahead > maxContextWindow {
		return fmt.Errorf("matching.lookahead must be between 1 and %d", maxContextWindow)
	}
	if m.MinSignalLength < 1 {
		return errors.New("matching.min_signal_length must be positive")
	}
	if m.Workers < 1 || m.Workers > maxWorkers {
		return fmt.Errorf("matching.workers must be between 1 and %d", maxWorkers)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
