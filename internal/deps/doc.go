// Package deps describes the vendored tools univdl drives and reports whether
// they are usable.
//
// A Layout knows where each tool lives inside the bin/ directory and falls
// back to PATH (plus Homebrew prefixes on macOS) when a tool was installed
// system-wide. Inspect reports presence without running anything; Verify
// additionally runs each tool's version flag to catch truncated downloads and
// wrong-architecture binaries.
package deps
