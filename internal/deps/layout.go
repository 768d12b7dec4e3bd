package deps

import (
	"os"
	"path/filepath"

	"univdl/internal/platform"
)

// Location labels reported in Status.Location.
const (
	LocationBin  = "bin"
	LocationPath = "PATH"
)

// Layout maps tools to files inside the bin/ directory.
type Layout struct {
	BinDir   string
	Platform platform.Platform
	// PathEnv overrides the PATH searched by Resolve; empty means the
	// process PATH.
	PathEnv string
}

// NewLayout returns the layout for binDir on the running platform.
func NewLayout(binDir string) Layout {
	return Layout{BinDir: binDir, Platform: platform.Current()}
}

// Path returns the expected location of tool inside bin/.
func (l Layout) Path(tool Tool) string {
	return filepath.Join(l.BinDir, l.Platform.ExecutableName(tool.Binary()))
}

// Has reports whether tool is present and executable inside bin/.
func (l Layout) Has(tool Tool) bool {
	info, err := os.Stat(l.Path(tool))
	return err == nil && platform.IsExecutable(info)
}

// Resolve returns the executable for tool, preferring bin/ over PATH, and
// where it was found.
func (l Layout) Resolve(tool Tool) (string, string, bool) {
	if l.Has(tool) {
		return l.Path(tool), LocationBin, true
	}
	if path, ok := l.lookPath(l.Platform.ExecutableName(tool.Binary())); ok {
		return path, LocationPath, true
	}
	return "", "", false
}

func (l Layout) lookPath(name string) (string, bool) {
	pathValue := l.PathEnv
	if pathValue == "" {
		pathValue = os.Getenv("PATH")
	}
	for _, dir := range filepath.SplitList(l.Platform.SearchPath(pathValue)) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && platform.IsExecutable(info) {
			if abs, err := filepath.Abs(candidate); err == nil {
				candidate = abs
			}
			return candidate, true
		}
	}
	return "", false
}

// Requirements lists every tool with its resolved command, or the bin/ path
// when the tool cannot be found.
func (l Layout) Requirements() []Requirement {
	reqs := make([]Requirement, 0, len(AllTools()))
	for _, tool := range AllTools() {
		command := l.Path(tool)
		if resolved, _, ok := l.Resolve(tool); ok {
			command = resolved
		}
		reqs = append(reqs, Requirement{
			Name:        string(tool),
			Command:     command,
			Description: tool.Description(),
			Optional:    tool.OptionalOn(l.Platform),
		})
	}
	return reqs
}

// Inspect reports the availability of every tool without executing them.
func (l Layout) Inspect() []Status {
	statuses := CheckBinaries(l.Requirements())
	for i, tool := range AllTools() {
		if !statuses[i].Available {
			statuses[i].Detail = "not found in " + l.BinDir + " or PATH"
			continue
		}
		_, statuses[i].Location, _ = l.Resolve(tool)
	}
	return statuses
}

// MissingTools returns the tools named in statuses that are unavailable.
func MissingTools(statuses []Status, includeOptional bool) []Tool {
	var missing []Tool
	for _, status := range statuses {
		if status.Available || (status.Optional && !includeOptional) {
			continue
		}
		if tool, err := ParseTool(status.Name); err == nil {
			missing = append(missing, tool)
		}
	}
	return missing
}
