// Package runtime discovers the locally installed emulator runtime and
// exposes the hardware-property definitions it ships with.
package runtime

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/roostdev/roost/internal/device"
)

const (
	runtimeDirName          = "emulator"
	hardwareDefinitionsFile = "lib/hardware-properties.ini"
)

// Install is a discovered emulator runtime installation.
type Install struct {
	Root string
}

// Discover locates the emulator runtime under sdkRoot. The runtime is never
// downloaded: an absent installation is reported as unavailable.
func Discover(sdkRoot string) (*Install, error) {
	if sdkRoot == "" {
		return nil, &device.UnavailableError{Kind: "runtime", Err: errors.New("sdk root is not configured")}
	}

	root := filepath.Join(sdkRoot, runtimeDirName)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, &device.UnavailableError{
			Kind: "runtime",
			Err:  fmt.Errorf("emulator runtime not installed under %s", sdkRoot),
		}
	}

	return &Install{Root: root}, nil
}

// Definitions parses the hardware-definition file shipped with the runtime.
func (i *Install) Definitions() ([]device.HardwareDefinition, error) {
	path := filepath.Join(i.Root, filepath.FromSlash(hardwareDefinitionsFile))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &device.UnavailableError{
			Kind: "runtime",
			Err:  fmt.Errorf("read hardware definitions: %w", err),
		}
	}
	return ParseDefinitions(data)
}

// ParseDefinitions reads hardware-property definition blocks of the form
//
//	name     = hw.ramSize
//	type     = integer
//	default  = 1536
//	abstract = Device RAM size
//
// A "name" line starts a new definition; unknown keys and comment lines are
// ignored. Definitions without a default carry an empty Default.
func ParseDefinitions(data []byte) ([]device.HardwareDefinition, error) {
	var definitions []device.HardwareDefinition
	var current *device.HardwareDefinition

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "name":
			if current != nil {
				definitions = append(definitions, *current)
			}
			current = &device.HardwareDefinition{Name: value}
		case "type":
			if current != nil {
				current.Type = value
			}
		case "default":
			if current != nil {
				current.Default = value
			}
		case "abstract":
			if current != nil {
				current.Description = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan hardware definitions: %w", err)
	}
	if current != nil {
		definitions = append(definitions, *current)
	}

	return definitions, nil
}

// DefinitionSource lazily discovers the runtime installation and caches the
// parsed definitions for the process lifetime. A discovery failure is cached
// as well and re-returned without retrying.
type DefinitionSource struct {
	load func() ([]device.HardwareDefinition, error)
}

// NewDefinitionSource returns a source reading from the runtime under
// sdkRoot.
func NewDefinitionSource(sdkRoot string) *DefinitionSource {
	return &DefinitionSource{
		load: sync.OnceValues(func() ([]device.HardwareDefinition, error) {
			install, err := Discover(sdkRoot)
			if err != nil {
				return nil, err
			}
			return install.Definitions()
		}),
	}
}

// Definitions returns the runtime's hardware-property definitions.
func (s *DefinitionSource) Definitions() ([]device.HardwareDefinition, error) {
	return s.load()
}
