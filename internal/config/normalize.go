package config

import (
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeShortcodes()
	c.normalizeCatalog()
	c.normalizeMatching()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.ContentDB) == "" {
		if value, ok := os.LookupEnv(contentDBEnv); ok && strings.TrimSpace(value) != "" {
			c.Paths.ContentDB = value
		} else {
			c.Paths.ContentDB = defaultContentDB
		}
	}
	if strings.TrimSpace(c.Paths.LedgerFile) == "" {
		c.Paths.LedgerFile = defaultLedgerFile
	}
	if strings.TrimSpace(c.Paths.BackupDir) == "" {
		c.Paths.BackupDir = defaultBackupDir
	}

	var err error
	if c.Paths.LedgerFile, err = expandPath(strings.TrimSpace(c.Paths.LedgerFile)); err != nil {
		return fmt.Errorf("paths.ledger_file: %w", err)
	}
	if c.Paths.ContentDB, err = expandPath(strings.TrimSpace(c.Paths.ContentDB)); err != nil {
		return fmt.Errorf("paths.content_db: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.BackupDir, err = expandPath(strings.TrimSpace(c.Paths.BackupDir)); err != nil {
		return fmt.Errorf("paths.backup_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeShortcodes() {
	c.Shortcodes.Kinds = cleanList(c.Shortcodes.Kinds, func(v string) string { return v })
	c.Shortcodes.LinkPrefixes = cleanList(c.Shortcodes.LinkPrefixes, normalizeLinkPrefix)
	c.Shortcodes.CanonicalLinkPrefix = normalizeLinkPrefix(c.Shortcodes.CanonicalLinkPrefix)
	if c.Shortcodes.CanonicalLinkPrefix == "" {
		c.Shortcodes.CanonicalLinkPrefix = defaultCanonicalLinkPrefix
	}
}

func (c *Config) normalizeCatalog() {
	c.Catalog.SlugPrefixes = cleanList(c.Catalog.SlugPrefixes, func(v string) string {
		return strings.Trim(strings.ToLower(v), "-")
	})
}

func (c *Config) normalizeMatching() {
	if c.Matching.AutoApproveThreshold == 0 {
		c.Matching.AutoApproveThreshold = defaultAutoApproveThreshold
	}
	if c.Matching.Lookbehind == 0 {
		c.Matching.Lookbehind = defaultLookbehind
	}
	if c.Matching.Lookahead == 0 {
		c.Matching.Lookahead = defaultLookahead
	}
	if c.Matching.MinSignalLength == 0 {
		c.Matching.MinSignalLength = defaultMinSignalLength
	}
	if c.Matching.Workers == 0 {
		c.Matching.Workers = runtime.NumCPU()
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeLinkPrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix + "/"
}

func cleanList(values []string, transform func(string) string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = transform(strings.TrimSpace(value))
		if value == "" || slices.Contains(out, value) {
			continue
		}
		out = append(out, value)
	}
	return out
}
