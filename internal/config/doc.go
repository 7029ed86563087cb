// Package config loads, normalizes, and validates the importer TOML
// configuration.
//
// Load resolves the config file (explicit path, ~/.config/import-app/config.toml,
// then ./import-app.toml), applies defaults for anything left unset, expands
// home-relative paths, and rejects unusable values before any other component
// sees the configuration. The ordered [[modules]] list drives which processing
// modules an import run executes.
package config
