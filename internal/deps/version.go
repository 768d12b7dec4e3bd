package deps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// VersionTimeout bounds a single version check.
const VersionTimeout = 3 * time.Second

// ReadVersion runs the tool's version flag and returns the first non-empty
// output line. A binary that cannot start or exits non-zero is reported as broken.
func ReadVersion(ctx context.Context, tool Tool, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("read version: empty path")
	}
	ctx, cancel := context.WithTimeout(ctx, VersionTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, tool.VersionArgs()...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("read version %s: timed out after %s", tool, VersionTimeout)
	}
	if err != nil {
		return "", fmt.Errorf("read version %s: %w", tool, err)
	}
	return firstLine(string(output)), nil
}

func firstLine(output string) string {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}

// Verify inspects every tool and reads the version of the ones that are present. Tools
// that fail are reported unavailable with the error.
func (l Layout) Verify(ctx context.Context) []Status {
	statuses := l.Inspect()
	for i := range statuses {
		if !statuses[i].Available {
			continue
		}
		tool, err := ParseTool(statuses[i].Name)
		if err != nil {
			continue
		}
		version, err := ReadVersion(ctx, tool, statuses[i].Command)
		if err != nil {
			statuses[i].Available = false
			statuses[i].Detail = "broken: " + err.Error()
			continue
		}
		statuses[i].Version = version
	}
	return statuses
}

// Broken reports whether a status describes a tool that exists but failed
// its version check.
func Broken(status Status) bool {
	return !status.Available && strings.HasPrefix(status.Detail, "broken:")
}
