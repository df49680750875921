package device

import (
	"strconv"
	"strings"
)

// Baseline hardware defaults shared by every provisioned instance.
const (
	recommendedCPUCores    = 4
	defaultInternalStorage = "2048M"
	defaultSDCardSize      = "512M"
	defaultVMHeapSizeMB    = "228"
)

// DefaultMaxRAMMB is the memory cap applied when no explicit limit is
// configured.
const DefaultMaxRAMMB = 8192

// RAMSizeKey is the hardware property restricted by the memory cap.
const RAMSizeKey = "hw.ramSize"

// BaselineHardware returns the fixed floor of hardware properties. Every key
// in it is present in the final configuration unless a later layer overrides
// it.
func BaselineHardware() HardwareConfig {
	return HardwareConfig{
		"hw.camera.back":                   "virtualscene",
		"hw.camera.front":                  "emulated",
		"hw.cpu.ncore":                     strconv.Itoa(recommendedCPUCores),
		"skin.dynamic":                     "no",
		"showDeviceFrame":                  "yes",
		"hw.keyboard":                      "yes",
		"hw.gpu.mode":                      "auto",
		"hw.gpu.enabled":                   "yes",
		"hw.initialOrientation":            "portrait",
		"disk.dataPartition.size":          defaultInternalStorage,
		"runtime.network.latency":          "none",
		"runtime.network.speed":            "full",
		"sdcard.size":                      defaultSDCardSize,
		"snapshot.present":                 "no",
		"fastboot.forceColdBoot":           "no",
		"fastboot.forceChosenSnapshotBoot": "no",
		"fastboot.forceFastBoot":           "yes",
		"vm.heapSize":                      defaultVMHeapSizeMB,
	}
}

// Merge returns a fresh configuration with overlay applied on top of base.
// Keys absent from the overlay keep the base value; neither input is
// mutated.
func Merge(base HardwareConfig, overlay map[string]string) HardwareConfig {
	merged := make(HardwareConfig, len(base)+len(overlay))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range overlay {
		merged[key] = value
	}
	return merged
}

// ApplyRAMCap clamps the RAM size property to maxMB. It is the only merge
// step allowed to reduce a previously set value; every other key passes
// through untouched. A value that cannot be parsed as a size is left as-is.
func ApplyRAMCap(config HardwareConfig, maxMB int) HardwareConfig {
	if maxMB <= 0 {
		maxMB = DefaultMaxRAMMB
	}

	result := Merge(config, nil)
	raw, ok := result[RAMSizeKey]
	if !ok {
		return result
	}

	sizeMB, ok := parseMegabytes(raw)
	if !ok || sizeMB <= maxMB {
		return result
	}

	result[RAMSizeKey] = strconv.Itoa(maxMB)
	return result
}

// parseMegabytes reads an emulator memory size value: a bare integer is
// megabytes, with optional K/KB, M/MB or G/GB suffixes.
func parseMegabytes(value string) (int, bool) {
	v := strings.TrimSpace(strings.ToUpper(value))
	multiplierMB := 1
	divisor := 1

	switch {
	case strings.HasSuffix(v, "KB"):
		v, divisor = strings.TrimSuffix(v, "KB"), 1024
	case strings.HasSuffix(v, "K"):
		v, divisor = strings.TrimSuffix(v, "K"), 1024
	case strings.HasSuffix(v, "MB"):
		v = strings.TrimSuffix(v, "MB")
	case strings.HasSuffix(v, "M"):
		v = strings.TrimSuffix(v, "M")
	case strings.HasSuffix(v, "GB"):
		v, multiplierMB = strings.TrimSuffix(v, "GB"), 1024
	case strings.HasSuffix(v, "G"):
		v, multiplierMB = strings.TrimSuffix(v, "G"), 1024
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, false
	}
	return n * multiplierMB / divisor, true
}

// Builder computes the pre-profile hardware configuration: the fixed
// baseline overlaid with the defaults declared by the installed emulator
// runtime. The profile overlay and the memory cap are applied afterwards by
// the provisioning service, in that order.
type Builder struct {
	Definitions HardwareDefinitionSource
}

// Build merges the baseline layer with the installation-derived defaults.
// Definitions without a default leave the baseline value untouched.
func (b *Builder) Build() (HardwareConfig, error) {
	definitions, err := b.Definitions.Definitions()
	if err != nil {
		return nil, err
	}

	overlay := make(map[string]string, len(definitions))
	for _, definition := range definitions {
		if definition.Name == "" || definition.Default == "" {
			continue
		}
		overlay[definition.Name] = definition.Default
	}

	return Merge(BaselineHardware(), overlay), nil
}
