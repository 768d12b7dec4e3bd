package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// OpenFolder creates dir when missing and reveals it in the file manager.
func OpenFolder(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create folder %q: %w", dir, err)
	}
	p := Current()
	name, args := p.openCommand(dir)
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return p.openResult(name, cmd.Run())
}

func (p Platform) openCommand(dir string) (string, []string) {
	switch p.OS {
	case OSWindows:
		return "explorer", []string{dir}
	case OSDarwin:
		return "open", []string{dir}
	default:
		return "xdg-open", []string{dir}
	}
}

// openResult maps the opener's exit to an error. explorer exits 1 even after
// opening the window, so only a failure to start it counts on Windows.
func (p Platform) openResult(name string, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if p.IsWindows() && errors.As(err, &exitErr) {
		return nil
	}
	return fmt.Errorf("open folder with %s: %w", name, err)
}
