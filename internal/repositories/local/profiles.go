package local

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roostdev/roost/internal/device"
)

// LocalProfileCatalog loads hardware profiles from YAML files under BaseDir.
// Files are enumerated in sorted name order so the first-match lookup policy
// is deterministic. A missing directory is an empty catalog.
type LocalProfileCatalog struct {
	BaseDir string
}

type profileDocument struct {
	DisplayName    string            `yaml:"display_name"`
	Hardware       map[string]string `yaml:"hardware"`
	BootProperties map[string]string `yaml:"boot_properties"`
	PlayStore      bool              `yaml:"play_store"`
}

// ListAll returns every profile stored in the catalog directory.
func (c *LocalProfileCatalog) ListAll() ([]device.DeviceProfile, error) {
	if c.BaseDir == "" {
		return nil, errors.New("base directory is not configured")
	}

	entries, err := os.ReadDir(c.BaseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	profiles := make([]device.DeviceProfile, 0, len(names))
	for _, name := range names {
		profile, err := c.loadProfile(filepath.Join(c.BaseDir, name))
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func (c *LocalProfileCatalog) loadProfile(path string) (device.DeviceProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return device.DeviceProfile{}, err
	}

	var doc profileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return device.DeviceProfile{}, &device.InvalidError{
			Kind: "hardware-profile",
			Name: filepath.Base(path),
			Err:  err,
		}
	}
	if strings.TrimSpace(doc.DisplayName) == "" {
		return device.DeviceProfile{}, &device.InvalidError{
			Kind: "hardware-profile",
			Name: filepath.Base(path),
			Err:  fmt.Errorf("display_name is required"),
		}
	}

	return device.DeviceProfile{
		DisplayName:            doc.DisplayName,
		BaseHardwareProperties: doc.Hardware,
		BootProperties:         doc.BootProperties,
		SupportsPlayStore:      doc.PlayStore,
	}, nil
}
