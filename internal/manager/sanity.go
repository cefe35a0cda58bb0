package manager

import (
	"os"
	"strings"
)

// SanityReport describes what the host offers to each backend kind.
type SanityReport struct {
	LlamaBuilt        bool     `json:"llama_built"`
	AcceleratorDevice string   `json:"accelerator_device,omitempty"`
	LlamaServerFound  bool     `json:"llama_server_found"`
	LlamaServerPath   string   `json:"llama_server_path,omitempty"`
	RemoteEndpoint    string   `json:"remote_endpoint,omitempty"`
	Ranking           []string `json:"ranking,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// SanityCheck inspects host and configuration without mutating anything.
// llamaBin may be empty, in which case DiscoverLlamaBin is consulted.
func SanityCheck(host HostInfo, llamaBin, remoteEndpoint string) SanityReport {
	r := SanityReport{
		LlamaBuilt:        host.LlamaBuilt,
		AcceleratorDevice: host.AcceleratorDevice(),
		RemoteEndpoint:    strings.TrimSpace(remoteEndpoint),
	}
	bin := llamaBin
	if bin == "" {
		bin = DiscoverLlamaBin()
	}
	var errs []string
	if bin == "" {
		errs = append(errs, "llama-server not found")
	} else if fi, err := os.Stat(bin); err == nil && !fi.IsDir() {
		r.LlamaServerFound = true
		r.LlamaServerPath = bin
	} else {
		r.LlamaServerPath = bin
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			errs = append(errs, "llama path is a directory")
		}
	}
	probe := CapabilityProbe{Host: host, CPU: r.LlamaServerFound, Remote: r.RemoteEndpoint != ""}
	kinds, err := probe.Probe()
	if err != nil {
		errs = append(errs, err.Error())
	}
	for _, k := range kinds {
		r.Ranking = append(r.Ranking, string(k))
	}
	r.Error = strings.Join(errs, "; ")
	return r
}
