package device

import (
	"time"
)

// ProvisioningRequest identifies the virtual device a caller wants provisioned.
// The device name is the identity of the instance: repeated requests with the
// same name reuse the instance created by the first one, regardless of the
// image or profile they carry.
type ProvisioningRequest struct {
	ImageID             string
	DeviceName          string
	HardwareProfileName string
}

// ImageDescriptor describes a resolved, installed system image. Descriptors
// are only produced by the Resolver; the zero value is never a valid image.
type ImageDescriptor struct {
	ID       string
	Location string // absolute directory of the installed image
	APILevel int
	ABI      string
	Tag      string
}

// DeviceProfile is a named bundle of device characteristics used as a
// template when creating an instance.
type DeviceProfile struct {
	DisplayName            string
	BaseHardwareProperties map[string]string
	BootProperties         map[string]string
	SupportsPlayStore      bool
}

// HardwareConfig is the merged set of emulator hardware properties for one
// instance. It is built fresh per provisioning call and not mutated after the
// instance has been created.
type HardwareConfig map[string]string

// InstanceRecord describes a provisioned device instance as stored in the
// instance index.
type InstanceRecord struct {
	ID          string
	DeviceName  string
	ConfigDir   string
	ImageID     string
	ProfileName string
	CreatedAt   time.Time
}

// CreateSpec carries everything the instance-creation primitive needs to
// materialize and register a new device instance.
type CreateSpec struct {
	DeviceName     string
	ProfileName    string
	ConfigDir      string
	Image          ImageDescriptor
	Hardware       HardwareConfig
	BootProperties map[string]string
	PlayStore      bool
}

// HardwareDefinition is one property declared by the emulator runtime's
// hardware-definition file. A non-empty Default overrides the baseline value
// for the same property during the hardware merge.
type HardwareDefinition struct {
	Name        string
	Type        string
	Default     string
	Description string
}
