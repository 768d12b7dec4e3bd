// Command univdl downloads media with yt-dlp, aria2 or N_m3u8DL-RE using the
// binaries vendored in its bin/ directory.
//
// Subcommands:
//   - download: run one job with the selected engine
//   - deps: inspect, verify and install the vendored binaries
//   - history: list, inspect and prune past downloads
//   - config, cookies, open, status: helpers around the above
package main
