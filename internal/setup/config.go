// Package setup loads the service-level configuration for roost.
package setup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/roostdev/roost/internal/device"
)

// Config holds the resolved settings of a roost deployment.
type Config struct {
	// SDKRoot is the root of the SDK installation holding the emulator
	// runtime and, by default, the installed system images.
	SDKRoot string

	// ImagesDir is the root of the installed system image tree.
	ImagesDir string

	// DevicesDir is where new instance configuration directories are
	// allocated.
	DevicesDir string

	// ProfilesDir holds user-supplied hardware profile YAML files.
	ProfilesDir string

	// IndexPath is the location of the instance index database.
	IndexPath string

	// MaxRAMMB caps the RAM size of newly provisioned instances.
	MaxRAMMB int
}

// DefaultBaseDir returns the per-user roost data directory.
func DefaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".roost"
	}
	return filepath.Join(home, ".roost")
}

// Load reads the configuration from the optional file at path, the ROOST_*
// environment, and built-in defaults, in increasing precedence of file over
// defaults and environment over file.
func Load(path string) (Config, error) {
	base := DefaultBaseDir()

	v := viper.New()
	v.SetDefault("sdk_root", defaultSDKRoot())
	v.SetDefault("images_dir", "")
	v.SetDefault("devices_dir", filepath.Join(base, "devices"))
	v.SetDefault("profiles_dir", filepath.Join(base, "profiles"))
	v.SetDefault("index_path", filepath.Join(base, "instances.db"))
	v.SetDefault("max_ram_mb", device.DefaultMaxRAMMB)

	v.SetEnvPrefix("ROOST")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(base)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		SDKRoot:     v.GetString("sdk_root"),
		ImagesDir:   v.GetString("images_dir"),
		DevicesDir:  v.GetString("devices_dir"),
		ProfilesDir: v.GetString("profiles_dir"),
		IndexPath:   v.GetString("index_path"),
		MaxRAMMB:    v.GetInt("max_ram_mb"),
	}
	if cfg.ImagesDir == "" {
		cfg.ImagesDir = filepath.Join(cfg.SDKRoot, "system-images")
	}
	return cfg, nil
}

// Verify checks that the locations a provisioning call depends on exist.
func Verify(cfg Config) error {
	getLogger().Debug("verifying configured locations",
		"sdk_root", cfg.SDKRoot,
		"images_dir", cfg.ImagesDir,
	)

	for _, check := range []struct {
		kind string
		path string
	}{
		{"sdk root", cfg.SDKRoot},
		{"images directory", cfg.ImagesDir},
	} {
		info, err := os.Stat(check.path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%s %s does not exist", check.kind, check.path)
			}
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s %s is not a directory", check.kind, check.path)
		}
	}
	return nil
}

func defaultSDKRoot() string {
	if root := os.Getenv("ANDROID_SDK_ROOT"); root != "" {
		return root
	}
	if root := os.Getenv("ANDROID_HOME"); root != "" {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Android", "Sdk")
}
