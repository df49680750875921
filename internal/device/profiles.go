package device

// Lookup finds hardware profiles by display name in the device catalog.
type Lookup struct {
	Resources *Handles
}

// Find returns the first catalog entry whose display name equals name
// exactly, case sensitive. Duplicate display names are not an error; the
// first entry in catalog-enumeration order wins.
func (l *Lookup) Find(name string) (DeviceProfile, error) {
	catalog, err := l.Resources.ProfileCatalog()
	if err != nil {
		return DeviceProfile{}, err
	}

	profiles, err := catalog.ListAll()
	if err != nil {
		return DeviceProfile{}, err
	}

	for _, profile := range profiles {
		if profile.DisplayName == name {
			return profile, nil
		}
	}

	return DeviceProfile{}, &NotFoundError{Kind: "hardware-profile", Name: name}
}
