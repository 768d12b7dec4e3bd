//go:build windows

package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// CheckDirectoryAccess verifies that the directory exists and accepts a new
// file. Windows ACLs are not reflected in mode bits, so a scratch file is the
// only reliable test.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	scratch, err := os.CreateTemp(path, ".univdl-access-*")
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	scratchName := scratch.Name()
	_ = scratch.Close()
	_ = os.Remove(scratchName)
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}
