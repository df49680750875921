package local

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/roostdev/roost/internal/device"
)

const imagePropertiesFile = "source.properties"

// LocalImageStore reads installed system images from a directory tree rooted
// at BaseDir. An image identifier is a slash-separated path relative to the
// root (for example "android-34/google_apis/x86_64"); each image directory
// carries a source.properties file describing it.
type LocalImageStore struct {
	BaseDir string
}

// Get returns the descriptor for the image with the given identifier.
func (s *LocalImageStore) Get(imageID string) (device.ImageDescriptor, error) {
	if s.BaseDir == "" {
		return device.ImageDescriptor{}, errors.New("base directory is not configured")
	}
	if imageID == "" || strings.Contains(imageID, "..") {
		return device.ImageDescriptor{}, &device.NotFoundError{Kind: "image", Name: imageID}
	}

	dir := filepath.Join(s.BaseDir, filepath.FromSlash(imageID))
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return device.ImageDescriptor{}, &device.NotFoundError{Kind: "image", Name: imageID}
		}
		return device.ImageDescriptor{}, err
	}
	if !info.IsDir() {
		return device.ImageDescriptor{}, &device.NotFoundError{Kind: "image", Name: imageID}
	}

	properties, err := readProperties(filepath.Join(dir, imagePropertiesFile))
	if err != nil {
		return device.ImageDescriptor{}, &device.InvalidError{Kind: "image", Name: imageID, Err: err}
	}

	descriptor, err := descriptorFromProperties(imageID, dir, properties)
	if err != nil {
		return device.ImageDescriptor{}, &device.InvalidError{Kind: "image", Name: imageID, Err: err}
	}
	return descriptor, nil
}

// ListIDs returns the identifier of every image directory under BaseDir that
// carries a properties file, in sorted order.
func (s *LocalImageStore) ListIDs() ([]string, error) {
	if s.BaseDir == "" {
		return nil, errors.New("base directory is not configured")
	}

	var ids []string
	err := filepath.WalkDir(s.BaseDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == s.BaseDir && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return err
		}
		if entry.IsDir() || entry.Name() != imagePropertiesFile {
			return nil
		}

		relative, err := filepath.Rel(s.BaseDir, filepath.Dir(path))
		if err != nil {
			return err
		}
		ids = append(ids, filepath.ToSlash(relative))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(ids)
	return ids, nil
}

func descriptorFromProperties(imageID, dir string, properties map[string]string) (device.ImageDescriptor, error) {
	rawAPI, ok := properties["AndroidVersion.ApiLevel"]
	if !ok {
		return device.ImageDescriptor{}, errors.New("missing AndroidVersion.ApiLevel")
	}
	apiLevel, err := strconv.Atoi(rawAPI)
	if err != nil {
		return device.ImageDescriptor{}, fmt.Errorf("bad AndroidVersion.ApiLevel %q", rawAPI)
	}

	abi, ok := properties["SystemImage.Abi"]
	if !ok || abi == "" {
		return device.ImageDescriptor{}, errors.New("missing SystemImage.Abi")
	}

	tag := properties["SystemImage.TagId"]
	if tag == "" {
		tag = "default"
	}

	return device.ImageDescriptor{
		ID:       imageID,
		Location: dir,
		APILevel: apiLevel,
		ABI:      abi,
		Tag:      tag,
	}, nil
}

// readProperties parses a key=value properties file; '#' lines are comments.
func readProperties(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	properties := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		properties[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return properties, nil
}
