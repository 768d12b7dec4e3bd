package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"univdl/internal/deps"
	"univdl/internal/launcher"
)

// CheckEngine verifies that the binaries engine needs are present in bin/ or
// on PATH. A missing ffmpeg only produces a warning: plain single-file
// downloads still work without it.
func CheckEngine(layout deps.Layout, engine launcher.Engine) []Result {
	tools := engine.Tools()
	results := make([]Result, 0, len(tools)+1)
	for _, tool := range tools {
		results = append(results, checkTool(layout, tool))
	}

	ffmpeg := deps.FFmpegFor(layout.BinDir)
	if ffmpeg.Available {
		results = append(results, Result{
			Name:   string(deps.ToolFFmpeg),
			Passed: true,
			Detail: fmt.Sprintf("%s (%s)", ffmpeg.Command, ffmpeg.Location),
		})
	} else {
		results = append(results, Result{
			Name:    string(deps.ToolFFmpeg),
			Passed:  true,
			Warning: true,
			Detail:  "not found; merging and remuxing will fail",
		})
	}
	return results
}

func checkTool(layout deps.Layout, tool deps.Tool) Result {
	path, location, ok := layout.Resolve(tool)
	if !ok {
		return Result{
			Name:   string(tool),
			Detail: fmt.Sprintf("not found in %s or PATH", layout.BinDir),
		}
	}
	return Result{Name: string(tool), Passed: true, Detail: fmt.Sprintf("%s (%s)", path, location)}
}

// CheckDownloadDir accepts an existing writable directory, or a missing one
// whose nearest existing ancestor is writable so the launcher can create it.
func CheckDownloadDir(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if _, err := os.Stat(path); err == nil || !errors.Is(err, fs.ErrNotExist) {
		return CheckDirectoryAccess(name, path)
	}

	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
		}
		parent = next
	}
	ancestor := CheckDirectoryAccess(name, parent)
	if !ancestor.Passed {
		return ancestor
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckCookieFile verifies that the configured cookies.txt can be read.
func CheckCookieFile(path string) Result {
	const name = "Cookie file"
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Passed: true, Warning: true, Detail: "no file configured; downloading as guest"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	f, err := os.Open(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	_ = f.Close()
	if info.Size() == 0 {
		return Result{Name: name, Passed: true, Warning: true, Detail: fmt.Sprintf("%s (empty)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}
