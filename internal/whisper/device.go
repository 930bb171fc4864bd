package whisper

import "strings"

type Device string

const (
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// ResolveDevice maps the configured device preference to an execution
// device. "cpu" and "cuda" are honored verbatim, even when no accelerator is
// present; anything else picks cuda only when one is available.
func ResolveDevice(setting string, acceleratorAvailable bool) Device {
	switch strings.ToLower(strings.TrimSpace(setting)) {
	case string(DeviceCPU):
		return DeviceCPU
	case string(DeviceCUDA):
		return DeviceCUDA
	}

	if acceleratorAvailable {
		return DeviceCUDA
	}
	return DeviceCPU
}
