// Package services defines shared utilities consumed by the installer, the
// launcher, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, engine names, and tool names for
//     logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent history statuses (failed vs stopped).
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform across the CLI.
package services
