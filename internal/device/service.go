package device

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roostdev/roost/internal/lazy"
)

// ProvisionService is the public entry point of the provisioning core. Given
// a request it returns the configuration directory of a ready-to-run device
// instance, creating the instance on demand and reusing it on subsequent
// requests for the same device name.
type ProvisionService struct {
	Logger    *slog.Logger
	Resources *Handles
	Resolver  *Resolver
	Profiles  *Lookup
	Hardware  *Builder
	Creator   InstanceCreator

	// DevicesDir is the directory under which new instance configuration
	// directories are allocated.
	DevicesDir string

	// MaxRAMMB caps the RAM size property of new instances. Zero selects
	// DefaultMaxRAMMB.
	MaxRAMMB int
}

// NewProvisionService wires a service around the shared resource handles.
func NewProvisionService(resources *Handles, definitions HardwareDefinitionSource, creator InstanceCreator, devicesDir string) *ProvisionService {
	return &ProvisionService{
		Resources:  resources,
		Resolver:   &Resolver{Resources: resources},
		Profiles:   &Lookup{Resources: resources},
		Hardware:   &Builder{Definitions: definitions},
		Creator:    creator,
		DevicesDir: devicesDir,
	}
}

// Provision returns a handle that resolves to the configuration directory of
// the instance named by the request. The work runs on first observation of
// the handle; a handle that is never observed does no work at all.
func (s *ProvisionService) Provision(request ProvisioningRequest) *lazy.Handle[string] {
	return lazy.Defer(func() (string, error) {
		return s.run(request)
	})
}

// run executes one provisioning call to completion: cache check, then on a
// miss image resolution, profile lookup, hardware merge, location allocation
// and instance creation. Any failure aborts the call with no partial state.
func (s *ProvisionService) run(request ProvisioningRequest) (string, error) {
	if request.DeviceName == "" {
		return "", errors.New("device name is required")
	}

	logger := s.logger().With("device", request.DeviceName)

	index, err := s.Resources.InstanceIndex()
	if err != nil {
		return "", err
	}

	existing, err := index.Lookup(request.DeviceName)
	if err != nil {
		return "", err
	}
	if existing != nil {
		logger.Debug("reusing existing instance", "config_dir", existing.ConfigDir)
		return existing.ConfigDir, nil
	}

	image, err := s.Resolver.Resolve(request.ImageID)
	if err != nil {
		return "", err
	}

	profile, err := s.Profiles.Find(request.HardwareProfileName)
	if err != nil {
		return "", err
	}

	config, err := s.Hardware.Build()
	if err != nil {
		return "", err
	}
	config = Merge(config, profile.BaseHardwareProperties)
	config = ApplyRAMCap(config, s.MaxRAMMB)

	configDir, err := s.allocateConfigDir(request.DeviceName)
	if err != nil {
		return "", err
	}

	record, err := s.Creator.Create(CreateSpec{
		DeviceName:     request.DeviceName,
		ProfileName:    profile.DisplayName,
		ConfigDir:      configDir,
		Image:          image,
		Hardware:       config,
		BootProperties: profile.BootProperties,
		PlayStore:      profile.SupportsPlayStore,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			// A concurrent call registered the name first; adopt its
			// instance. The index is the authority on at-most-once creation.
			winner, lookupErr := index.Lookup(request.DeviceName)
			if lookupErr == nil && winner != nil {
				logger.Debug("adopting concurrently created instance", "config_dir", winner.ConfigDir)
				return winner.ConfigDir, nil
			}
		}
		return "", err
	}

	logger.Info("instance provisioned",
		"image", image.ID,
		"profile", profile.DisplayName,
		"config_dir", record.ConfigDir,
	)
	return record.ConfigDir, nil
}

// allocateConfigDir reserves a fresh directory for a new instance, derived
// from the device name. The directory is created here so that two concurrent
// calls can never be handed the same path.
func (s *ProvisionService) allocateConfigDir(deviceName string) (string, error) {
	if s.DevicesDir == "" {
		return "", errors.New("devices directory is not configured")
	}
	if err := os.MkdirAll(s.DevicesDir, 0o755); err != nil {
		return "", fmt.Errorf("allocate config directory: %w", err)
	}

	base := sanitizeName(deviceName)
	for attempt := 0; ; attempt++ {
		name := base
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d", base, attempt)
		}

		dir := filepath.Join(s.DevicesDir, name+".avd")
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("allocate config directory: %w", err)
		}
	}
}

// sanitizeName reduces a device name to characters safe in a directory name.
func sanitizeName(name string) string {
	var builder strings.Builder
	builder.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			builder.WriteRune(r)
		default:
			builder.WriteByte('_')
		}
	}
	if builder.Len() == 0 {
		return "device"
	}
	return builder.String()
}

func (s *ProvisionService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
