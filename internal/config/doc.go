// Package config loads, normalizes, and validates relink configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the RELINK_CONTENT_DB environment
// fallback. The Config type centralizes the directive grammar, matching
// thresholds and file locations every command needs.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical link prefixes, and clear validation errors.
package config
