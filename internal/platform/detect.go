package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "whisperd"

type Runtime struct {
	OS   string
	Arch string
}

func CurrentRuntime() Runtime {
	return Runtime{
		OS:   runtime.GOOS,
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

// Target is the os_arch pair used to lay out per-platform engine builds.
func (r Runtime) Target() string {
	return fmt.Sprintf("%s_%s", r.OS, r.Arch)
}

func NormalizeArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	default:
		return arch
	}
}

func DefaultModelDirFor(goos, homeDir, xdgDataHome string) (string, error) {
	switch goos {
	case "linux":
		if xdgDataHome != "" {
			return filepath.Join(xdgDataHome, appName, "models"), nil
		}
		if homeDir == "" {
			return "", errors.New("home directory is empty")
		}
		return filepath.Join(homeDir, ".local", "share", appName, "models"), nil
	case "darwin":
		if homeDir == "" {
			return "", errors.New("home directory is empty")
		}
		return filepath.Join(homeDir, "Library", "Application Support", appName, "models"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}

// ResolveModelDir returns override when set, otherwise the per-user data
// directory. Containers without a home directory must set an override.
func ResolveModelDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	xdg := os.Getenv("XDG_DATA_HOME")
	homeDir, err := os.UserHomeDir()
	if err != nil && xdg == "" {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return DefaultModelDirFor(runtime.GOOS, homeDir, xdg)
}
