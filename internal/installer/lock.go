package installer

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"univdl/internal/services"
)

const lockFileName = ".install.lock"

// ErrInstallRunning is returned when another process holds the bin/ lock.
var ErrInstallRunning = fmt.Errorf("%w: another install is running", services.ErrTransient)

// acquireLock takes the exclusive bin/ lock without waiting.
func acquireLock(binDir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(binDir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire install lock: %w", err)
	}
	if !ok {
		return nil, ErrInstallRunning
	}
	return lock, nil
}
