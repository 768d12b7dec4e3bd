// Package config loads, normalizes, and validates univdl configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment overrides such as UNIVDL_BIN_DIR. The
// Config type centralizes every knob the CLI needs: where the vendored bin/
// directory lives, which engine and cookie source a download uses, and how
// the installer reaches its download mirrors.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical engine names, and clear validation errors.
package config
