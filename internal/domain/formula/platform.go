package formula

import (
	"fmt"
	"runtime"
	"strings"
)

// OS identifies an operating system family.
type OS string

// Arch identifies a CPU architecture.
type Arch string

// Supported operating systems. OSUnknown is produced for hosts we do not know about.
const (
	OSMacOS   OS = "macos"
	OSLinux   OS = "linux"
	OSWindows OS = "windows"
	OSUnknown OS = "unknown"
)

// Supported CPU architectures. ArchUnknown is produced for hosts we do not know about.
const (
	ArchX8664   Arch = "x86_64"
	ArchARM64   Arch = "arm64"
	ArchUnknown Arch = "unknown"
)

// KnownOS lists every operating system a rule may name, in a stable order.
func KnownOS() []OS {
	return []OS{OSMacOS, OSLinux, OSWindows}
}

// KnownArch lists every architecture a rule may name, in a stable order.
func KnownArch() []Arch {
	return []Arch{ArchX8664, ArchARM64}
}

// Target is the (operating system, CPU architecture) pair an install is performed for.
type Target struct {
	OS   OS   `json:"os" yaml:"os"`
	Arch Arch `json:"arch" yaml:"arch"`
}

// String renders the target as "os/arch".
func (t Target) String() string {
	return string(t.OS) + "/" + string(t.Arch)
}

// IsKnown reports whether both fields are enumerated values.
func (t Target) IsKnown() bool {
	return t.OS.IsKnown() && t.Arch.IsKnown()
}

// IsKnown reports whether the OS is one of the enumerated values.
func (o OS) IsKnown() bool {
	for _, known := range KnownOS() {
		if o == known {
			return true
		}
	}

	return false
}

// IsKnown reports whether the architecture is one of the enumerated values.
func (a Arch) IsKnown() bool {
	for _, known := range KnownArch() {
		if a == known {
			return true
		}
	}

	return false
}

// KnownTargets returns the full grid of enumerated targets.
func KnownTargets() []Target {
	targets := make([]Target, 0, len(KnownOS())*len(KnownArch()))

	for _, o := range KnownOS() {
		for _, a := range KnownArch() {
			targets = append(targets, Target{OS: o, Arch: a})
		}
	}

	return targets
}

// ParseOS maps user and Go spellings onto OS values. Unknown input yields OSUnknown.
func ParseOS(s string) OS {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "macos", "darwin", "mac", "osx":
		return OSMacOS
	case "linux":
		return OSLinux
	case "windows":
		return OSWindows
	default:
		return OSUnknown
	}
}

// ParseArch maps user and Go spellings onto Arch values. Unknown input yields ArchUnknown.
func ParseArch(s string) Arch {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x86_64", "amd64", "intel", "x64":
		return ArchX8664
	case "arm64", "aarch64":
		return ArchARM64
	default:
		return ArchUnknown
	}
}

// ParseTarget parses "os/arch". Unknown parts are kept as unknown values, not rejected.
func ParseTarget(s string) (Target, error) {
	osPart, archPart, ok := strings.Cut(s, "/")
	if !ok {
		return Target{}, fmt.Errorf("target %q: expected os/arch", s)
	}

	return Target{OS: ParseOS(osPart), Arch: ParseArch(archPart)}, nil
}

// TargetFromGo converts runtime.GOOS/GOARCH style values into a Target.
func TargetFromGo(goos, goarch string) Target {
	return Target{OS: ParseOS(goos), Arch: ParseArch(goarch)}
}

// DetectTarget returns the Target of the running host.
func DetectTarget() Target {
	return TargetFromGo(runtime.GOOS, runtime.GOARCH)
}
