package manager

import (
	"os"
	"runtime"
)

// acceleratorDevices are device nodes whose presence means a GPU runtime
// can be opened by the in-process engine.
var acceleratorDevices = []string{"/dev/nvidia0", "/dev/kfd", "/dev/dri/renderD128"}

// HostInfo is the host inspection used by the probe.
type HostInfo struct {
	GOOS   string
	GOARCH string
	// LlamaBuilt reports whether the binary carries the in-process engine.
	LlamaBuilt bool
	// Exists reports whether a device path is present.
	Exists func(path string) bool
}

// LocalHost describes the running process.
func LocalHost() HostInfo {
	return HostInfo{
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		LlamaBuilt: llamaBuilt,
		Exists: func(p string) bool {
			_, err := os.Stat(p)
			return err == nil
		},
	}
}

// AcceleratorDevice returns the first visible accelerator, or "".
func (h HostInfo) AcceleratorDevice() string {
	if h.GOOS == "darwin" && h.GOARCH == "arm64" {
		return "metal"
	}
	if h.Exists == nil {
		return ""
	}
	for _, d := range acceleratorDevices {
		if h.Exists(d) {
			return d
		}
	}
	return ""
}

// CapabilityProbe ranks backends from host capabilities and configuration.
type CapabilityProbe struct {
	Host   HostInfo
	CPU    bool
	Remote bool
}

// Probe returns usable backend kinds, most preferred first. It has no side
// effects; a missing accelerator only removes it from the ranking.
func (p CapabilityProbe) Probe() ([]BackendKind, error) {
	var out []BackendKind
	if p.Host.LlamaBuilt && p.Host.AcceleratorDevice() != "" {
		out = append(out, KindAccelerated)
	}
	if p.CPU {
		out = append(out, KindCPU)
	}
	if p.Remote {
		out = append(out, KindRemote)
	}
	if len(out) == 0 {
		return nil, ErrUnsupportedPlatform
	}
	return out, nil
}

// staticProber returns a fixed ranking.
type staticProber []BackendKind

func (s staticProber) Probe() ([]BackendKind, error) {
	if len(s) == 0 {
		return nil, ErrUnsupportedPlatform
	}
	out := make([]BackendKind, len(s))
	copy(out, s)
	return out, nil
}
