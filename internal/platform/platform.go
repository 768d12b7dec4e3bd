package platform

import (
	"os"
	"runtime"
	"strings"
)

// Operating systems univdl ships binaries for.
const (
	OSDarwin  = "darwin"
	OSWindows = "windows"
	OSLinux   = "linux"
)

// Normalized architecture labels used in download URLs and status output.
const (
	ArchX64   = "x64"
	ArchARM64 = "arm64"
)

// Platform identifies the OS/architecture pair the binaries must match.
type Platform struct {
	OS   string
	Arch string
}

// Current reports the running platform.
func Current() Platform {
	return Platform{OS: runtime.GOOS, Arch: normalizeArch(runtime.GOARCH)}
}

// IsSupported reports whether vendored binaries exist for the platform.
func (p Platform) IsSupported() bool {
	switch p.OS {
	case OSDarwin, OSWindows, OSLinux:
		return p.Arch == ArchX64 || p.Arch == ArchARM64
	default:
		return false
	}
}

func (p Platform) String() string {
	return p.OS + "-" + p.Arch
}

// IsWindows reports whether the platform is Windows.
func (p Platform) IsWindows() bool { return p.OS == OSWindows }

// IsMac reports whether the platform is macOS.
func (p Platform) IsMac() bool { return p.OS == OSDarwin }

func normalizeArch(goarch string) string {
	switch strings.ToLower(strings.TrimSpace(goarch)) {
	case "amd64", "x86_64":
		return ArchX64
	case "arm64", "aarch64":
		return ArchARM64
	default:
		return goarch
	}
}

// ExecutableName returns base with the platform executable suffix.
func ExecutableName(base string) string {
	return Current().ExecutableName(base)
}

// ExecutableName returns base with the executable suffix of p.
func (p Platform) ExecutableName(base string) string {
	if p.IsWindows() && !strings.HasSuffix(strings.ToLower(base), ".exe") {
		return base + ".exe"
	}
	return base
}

// IsExecutable reports whether info describes a runnable regular file.
func IsExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == OSWindows {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
