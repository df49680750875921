package embedded

import (
	"github.com/roostdev/roost/internal/device"
)

// EmbeddedProfileCatalog contains the built-in hardware profiles shipped
// with roost. The catalog is read-only; ListAll hands out copies so callers
// cannot mutate the built-in set.
type EmbeddedProfileCatalog struct {
	profiles []device.DeviceProfile
}

// NewEmbeddedProfileCatalog constructs a catalog pre-populated with the
// built-in profiles.
func NewEmbeddedProfileCatalog() *EmbeddedProfileCatalog {
	return &EmbeddedProfileCatalog{profiles: defaultProfiles()}
}

// ListAll returns the built-in profiles in their declaration order.
func (c *EmbeddedProfileCatalog) ListAll() ([]device.DeviceProfile, error) {
	profiles := make([]device.DeviceProfile, len(c.profiles))
	for i, profile := range c.profiles {
		profiles[i] = cloneProfile(profile)
	}
	return profiles, nil
}

func cloneProfile(profile device.DeviceProfile) device.DeviceProfile {
	clone := profile
	clone.BaseHardwareProperties = cloneMap(profile.BaseHardwareProperties)
	clone.BootProperties = cloneMap(profile.BootProperties)
	return clone
}

func cloneMap(values map[string]string) map[string]string {
	if values == nil {
		return nil
	}
	cloned := make(map[string]string, len(values))
	for key, value := range values {
		cloned[key] = value
	}
	return cloned
}

func defaultProfiles() []device.DeviceProfile {
	return []device.DeviceProfile{
		{
			DisplayName: "Nexus 5",
			BaseHardwareProperties: map[string]string{
				"hw.lcd.density": "480",
				"hw.lcd.width":   "1080",
				"hw.lcd.height":  "1920",
				"hw.ramSize":     "2048",
			},
			BootProperties: map[string]string{
				"ro.product.model": "Nexus 5",
				"ro.product.brand": "google",
			},
		},
		{
			DisplayName: "Nexus 6",
			BaseHardwareProperties: map[string]string{
				"hw.lcd.density": "560",
				"hw.lcd.width":   "1440",
				"hw.lcd.height":  "2560",
				"hw.ramSize":     "3072",
			},
			BootProperties: map[string]string{
				"ro.product.model": "Nexus 6",
				"ro.product.brand": "google",
			},
		},
		{
			DisplayName: "Pixel 2",
			BaseHardwareProperties: map[string]string{
				"hw.lcd.density": "420",
				"hw.lcd.width":   "1080",
				"hw.lcd.height":  "1920",
				"hw.ramSize":     "4096",
			},
			BootProperties: map[string]string{
				"ro.product.model": "Pixel 2",
				"ro.product.brand": "google",
			},
			SupportsPlayStore: true,
		},
		{
			DisplayName: "Pixel 4",
			BaseHardwareProperties: map[string]string{
				"hw.lcd.density": "440",
				"hw.lcd.width":   "1080",
				"hw.lcd.height":  "2280",
				"hw.ramSize":     "6144",
			},
			BootProperties: map[string]string{
				"ro.product.model": "Pixel 4",
				"ro.product.brand": "google",
			},
			SupportsPlayStore: true,
		},
		{
			DisplayName: "Medium Tablet",
			BaseHardwareProperties: map[string]string{
				"hw.lcd.density":        "320",
				"hw.lcd.width":          "1600",
				"hw.lcd.height":         "2560",
				"hw.ramSize":            "4096",
				"hw.initialOrientation": "landscape",
			},
		},
	}
}
