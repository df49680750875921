package runtime

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roostdev/roost/internal/device"
)

const (
	configFileName    = "config.ini"
	bootPropsFileName = "boot.props"
)

// Creator materializes device instances as configuration directories on the
// local filesystem and registers them in the instance index. Registration is
// the commit point: if it fails, the directory is removed again and no
// record exists.
type Creator struct {
	Resources *device.Handles
	Logger    *slog.Logger
}

// Create writes the configuration directory for spec and registers the
// instance. A device name that is already registered fails with
// ErrAlreadyRegistered and leaves no directory behind.
func (c *Creator) Create(spec device.CreateSpec) (device.InstanceRecord, error) {
	index, err := c.Resources.InstanceIndex()
	if err != nil {
		return device.InstanceRecord{}, err
	}

	if err := c.writeConfigDir(spec); err != nil {
		c.removeConfigDir(spec.ConfigDir)
		return device.InstanceRecord{}, err
	}

	record := device.InstanceRecord{
		ID:          uuid.New().String(),
		DeviceName:  spec.DeviceName,
		ConfigDir:   spec.ConfigDir,
		ImageID:     spec.Image.ID,
		ProfileName: spec.ProfileName,
		CreatedAt:   time.Now().UTC(),
	}

	registered, err := index.Register(record)
	if err != nil {
		// The directory belongs to whichever record the index holds. Only
		// remove it while no registered record points at it: a racing call
		// that lost to a winner sharing the same path must not destroy the
		// winner's instance.
		if c.ownsConfigDir(index, spec) {
			c.removeConfigDir(spec.ConfigDir)
		}
		return device.InstanceRecord{}, err
	}

	c.logger().Debug("instance created",
		"device", registered.DeviceName,
		"config_dir", registered.ConfigDir,
	)
	return registered, nil
}

// ownsConfigDir reports whether the directory in spec can be rolled back:
// it is owned as long as no registered record for the device name claims
// the same path.
func (c *Creator) ownsConfigDir(index device.InstanceIndex, spec device.CreateSpec) bool {
	registered, err := index.Lookup(spec.DeviceName)
	if err != nil {
		// Ownership cannot be established; a stray directory is the lesser
		// harm than deleting a registered instance.
		return false
	}
	return registered == nil || registered.ConfigDir != spec.ConfigDir
}

func (c *Creator) removeConfigDir(configDir string) {
	if err := os.RemoveAll(configDir); err != nil {
		c.logger().Warn("failed to remove config dir after creation failure",
			"config_dir", configDir,
			"error", err,
		)
	}
}

func (c *Creator) writeConfigDir(spec device.CreateSpec) error {
	if err := os.MkdirAll(spec.ConfigDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	config := make(map[string]string, len(spec.Hardware)+4)
	for key, value := range spec.Hardware {
		config[key] = value
	}
	config["image.sysdir.1"] = spec.Image.Location
	config["abi.type"] = spec.Image.ABI
	config["tag.id"] = spec.Image.Tag
	config["PlayStore.enabled"] = strconv.FormatBool(spec.PlayStore)

	path := filepath.Join(spec.ConfigDir, configFileName)
	if err := os.WriteFile(path, []byte(formatProperties(config)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", configFileName, err)
	}

	if len(spec.BootProperties) > 0 {
		path = filepath.Join(spec.ConfigDir, bootPropsFileName)
		if err := os.WriteFile(path, []byte(formatProperties(spec.BootProperties)), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", bootPropsFileName, err)
		}
	}

	return nil
}

// formatProperties renders a property map as key=value lines in sorted key
// order so that the output is deterministic.
func formatProperties(properties map[string]string) string {
	keys := make([]string, 0, len(properties))
	for key := range properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, key := range keys {
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(properties[key])
		builder.WriteByte('\n')
	}
	return builder.String()
}

func (c *Creator) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
