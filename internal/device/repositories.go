package device

// ImageStore exposes the catalog of installed system images.
type ImageStore interface {
	// Get returns the descriptor for the image with the given identifier.
	// A missing image yields a NotFoundError, an image with unusable
	// metadata an InvalidError.
	Get(imageID string) (ImageDescriptor, error)

	// ListIDs returns the identifiers of every installed image.
	ListIDs() ([]string, error)
}

// ProfileCatalog enumerates the available hardware profiles.
type ProfileCatalog interface {
	ListAll() ([]DeviceProfile, error)
}

// Catalogs chains multiple profile catalogs into one. Enumeration preserves
// argument order, so earlier catalogs win under the first-match policy.
type Catalogs []ProfileCatalog

// ListAll returns the profiles of every chained catalog in order.
func (c Catalogs) ListAll() ([]DeviceProfile, error) {
	var profiles []DeviceProfile
	for _, catalog := range c {
		entries, err := catalog.ListAll()
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, entries...)
	}
	return profiles, nil
}

// InstanceIndex is the authoritative registry of provisioned instances. It
// guarantees at-most-once registration per device name.
type InstanceIndex interface {
	// Lookup returns the record registered under deviceName, or nil if none
	// exists.
	Lookup(deviceName string) (*InstanceRecord, error)

	// List returns every registered record.
	List() ([]InstanceRecord, error)

	// Register stores the record. Registering a device name that already has
	// a record fails with ErrAlreadyRegistered and leaves the index
	// unchanged.
	Register(record InstanceRecord) (InstanceRecord, error)
}

// InstanceCreator materializes a new device instance on disk and registers
// it. Creation is atomic from the caller's perspective: either the instance
// is fully registered or no record exists.
type InstanceCreator interface {
	Create(spec CreateSpec) (InstanceRecord, error)
}

// HardwareDefinitionSource provides the property definitions shipped with
// the installed emulator runtime.
type HardwareDefinitionSource interface {
	Definitions() ([]HardwareDefinition, error)
}
