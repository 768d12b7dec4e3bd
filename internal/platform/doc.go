// Package platform centralizes operating system and architecture detection
// for univdl.
//
// runtime.GOOS and runtime.GOARCH are read here and nowhere else. Other
// packages ask this package for executable names, the browsers whose cookies
// yt-dlp can read on the current OS, the PATH handed to spawned engines, and
// how to reveal a folder in the system file manager.
package platform
