package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// Homebrew prefixes missing from the PATH of apps started outside a shell.
var macExtraPaths = []string{"/opt/homebrew/bin", "/usr/local/bin"}

// ExtendPath appends each extra directory to pathValue unless already present.
func ExtendPath(pathValue string, extra ...string) string {
	entries := filepath.SplitList(pathValue)
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		seen[filepath.Clean(entry)] = struct{}{}
	}
	for _, dir := range extra {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		if _, ok := seen[filepath.Clean(dir)]; ok {
			continue
		}
		seen[filepath.Clean(dir)] = struct{}{}
		entries = append(entries, dir)
	}
	return strings.Join(entries, string(os.PathListSeparator))
}

// PrependPath puts dir at the front of pathValue, removing any later duplicate.
func PrependPath(pathValue, dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return pathValue
	}
	out := []string{dir}
	for _, entry := range filepath.SplitList(pathValue) {
		if entry == "" || filepath.Clean(entry) == filepath.Clean(dir) {
			continue
		}
		out = append(out, entry)
	}
	return strings.Join(out, string(os.PathListSeparator))
}

// SearchPath returns the PATH used to resolve engines: the process PATH plus
// Homebrew prefixes on macOS.
func (p Platform) SearchPath(pathValue string) string {
	if p.IsMac() {
		return ExtendPath(pathValue, macExtraPaths...)
	}
	return pathValue
}

// ChildEnv returns the environment for a spawned engine. binDir is placed
// first on PATH so yt-dlp locates the vendored ffmpeg and aria2c.
func ChildEnv(binDir string) []string {
	p := Current()
	base := os.Environ()
	out := make([]string, 0, len(base)+1)
	pathValue := ""
	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if ok && strings.EqualFold(key, "PATH") {
			pathValue = value
			continue
		}
		out = append(out, kv)
	}
	pathValue = PrependPath(p.SearchPath(pathValue), binDir)
	return append(out, "PATH="+pathValue)
}
