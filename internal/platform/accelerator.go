package platform

import (
	"os"
	"strings"
)

// Device nodes exposed by the NVIDIA driver, the ROCm kernel driver and WSL's
// GPU paravirtualization layer.
var acceleratorNodes = []string{
	"/dev/nvidiactl",
	"/dev/nvidia0",
	"/dev/kfd",
	"/dev/dxg",
}

type AcceleratorProbe struct {
	Nodes     []string
	Stat      func(string) (os.FileInfo, error)
	LookupEnv func(string) (string, bool)
}

// AcceleratorAvailable reports whether a GPU usable for inference is visible
// to this process.
func AcceleratorAvailable() bool {
	return AcceleratorProbe{}.Available()
}

func (p AcceleratorProbe) Available() bool {
	lookup := p.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if value, ok := lookup("CUDA_VISIBLE_DEVICES"); ok {
		value = strings.TrimSpace(value)
		if value == "" || value == "-1" {
			return false
		}
	}

	stat := p.Stat
	if stat == nil {
		stat = os.Stat
	}
	nodes := p.Nodes
	if nodes == nil {
		nodes = acceleratorNodes
	}

	for _, node := range nodes {
		if _, err := stat(node); err == nil {
			return true
		}
	}
	return false
}
