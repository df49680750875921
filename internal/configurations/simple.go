// Package simple assembles the full provisioning stack from a setup.Config.
package simple

import (
	"log/slog"

	"github.com/roostdev/roost/internal/device"
	"github.com/roostdev/roost/internal/logging"
	embeddedrepositories "github.com/roostdev/roost/internal/repositories/embedded"
	localrepositories "github.com/roostdev/roost/internal/repositories/local"
	sqliterepositories "github.com/roostdev/roost/internal/repositories/sqlite"
	"github.com/roostdev/roost/internal/runtime"
	"github.com/roostdev/roost/internal/setup"
)

// NewProvisionService wires a provisioning service against the catalogs the
// configuration points at. The backing handles are constructed lazily, on
// first use, and shared for the life of the returned service.
func NewProvisionService(cfg setup.Config, logger *slog.Logger) *device.ProvisionService {
	logger = logging.Ensure(logger).With("component", "provision")

	resources := device.NewHandles(
		func() (device.ImageStore, error) {
			return &localrepositories.LocalImageStore{BaseDir: cfg.ImagesDir}, nil
		},
		func() (device.ProfileCatalog, error) {
			return device.Catalogs{
				embeddedrepositories.NewEmbeddedProfileCatalog(),
				&localrepositories.LocalProfileCatalog{BaseDir: cfg.ProfilesDir},
			}, nil
		},
		func() (device.InstanceIndex, error) {
			return sqliterepositories.Open(cfg.IndexPath)
		},
	)

	service := device.NewProvisionService(
		resources,
		runtime.NewDefinitionSource(cfg.SDKRoot),
		&runtime.Creator{Resources: resources, Logger: logger.With("driver", "local")},
		cfg.DevicesDir,
	)
	service.Logger = logger
	service.MaxRAMMB = cfg.MaxRAMMB
	return service
}

// Provision runs one provisioning call to completion and returns the
// instance's configuration directory.
func Provision(cfg setup.Config, request device.ProvisioningRequest, logger *slog.Logger) (string, error) {
	service := NewProvisionService(cfg, logger)
	return service.Provision(request).Value()
}

// ListProfiles returns every hardware profile visible to the service:
// built-in profiles first, then user-supplied ones.
func ListProfiles(cfg setup.Config) ([]device.DeviceProfile, error) {
	catalog := device.Catalogs{
		embeddedrepositories.NewEmbeddedProfileCatalog(),
		&localrepositories.LocalProfileCatalog{BaseDir: cfg.ProfilesDir},
	}
	return catalog.ListAll()
}

// ListImages returns the identifiers of every installed system image.
func ListImages(cfg setup.Config) ([]string, error) {
	store := localrepositories.LocalImageStore{BaseDir: cfg.ImagesDir}
	return store.ListIDs()
}

// ListInstances returns every registered device instance.
func ListInstances(cfg setup.Config) ([]device.InstanceRecord, error) {
	index, err := sqliterepositories.Open(cfg.IndexPath)
	if err != nil {
		return nil, err
	}
	defer index.Close()
	return index.List()
}
