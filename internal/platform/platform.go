// Package platform provides host platform detection and the platform-specific
// naming rules used by the build pipelines.
package platform

import (
	"fmt"
	"os"
	"runtime"
)

// Host represents the OS/architecture combination a build runs on.
type Host struct {
	OS   string // darwin, linux, windows
	Arch string // x64, aarch64
}

// Current returns the host for the running process.
func Current() Host {
	return Host{OS: runtime.GOOS, Arch: mapArch(runtime.GOARCH)}
}

// mapArch converts Go's GOARCH to the naming used in release artifacts.
func mapArch(goarch string) string {
	switch goarch {
	case "arm64":
		return "aarch64"
	default:
		return "x64"
	}
}

// Classifier returns the os-arch string used in build records and filenames.
func (h Host) Classifier() string {
	return fmt.Sprintf("%s-%s", h.OS, h.Arch)
}

func (h Host) IsDarwin() bool  { return h.OS == "darwin" }
func (h Host) IsLinux() bool   { return h.OS == "linux" }
func (h Host) IsWindows() bool { return h.OS == "windows" }

// IsUnix reports whether the host is macOS or Linux.
func (h Host) IsUnix() bool { return h.IsDarwin() || h.IsLinux() }

// BuildTypes returns the build types available on this host.
func (h Host) BuildTypes() []string {
	switch {
	case h.IsDarwin():
		return []string{"local", "shared-ext", "static-ext", "framework-ext", "framework-pkg"}
	case h.IsWindows():
		return []string{"local", "windows-pkg"}
	case h.IsLinux():
		return []string{"local", "shared-ext", "static-ext"}
	}
	return []string{"local"}
}

// DefaultDeploymentTarget is the macOS deployment target applied when the
// environment does not already set one.
const DefaultDeploymentTarget = "12.6"

// SetupEnvironment applies platform-specific environment defaults.
func (h Host) SetupEnvironment() {
	if h.IsDarwin() {
		if _, ok := os.LookupEnv("MACOSX_DEPLOYMENT_TARGET"); !ok {
			os.Setenv("MACOSX_DEPLOYMENT_TARGET", DefaultDeploymentTarget)
		}
	}
}

// ExecutableName returns the platform-correct executable name for a target.
func (h Host) ExecutableName(name string) string {
	if h.IsWindows() {
		return name + ".exe"
	}
	return name
}

// StaticLibName returns the static library filename for a library stem.
func (h Host) StaticLibName(stem string) string {
	if h.IsWindows() {
		return stem + ".lib"
	}
	return stem + ".a"
}

// DylibName returns the dynamic library filename for a library stem.
func (h Host) DylibName(stem string) (string, error) {
	switch {
	case h.IsDarwin():
		return stem + ".dylib", nil
	case h.IsLinux():
		return stem + ".so", nil
	case h.IsWindows():
		return stem + ".dll", nil
	}
	return "", fmt.Errorf("unsupported platform: %s", h.OS)
}
