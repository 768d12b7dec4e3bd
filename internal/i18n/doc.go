// Package i18n holds the translated messages the CLI prints to the
// terminal. Catalogs are embedded TOML tables of format strings keyed by
// message id; structured log records stay in English.
package i18n
