package device

import (
	"errors"
	"sync"
)

// Handles owns the lazily constructed, process-lifetime handles to the three
// backing catalogs. Each constructor runs at most once, on first use, even
// under concurrent first access; a construction failure is cached and
// re-returned on every subsequent access instead of being retried.
type Handles struct {
	imageStore func() (ImageStore, error)
	catalog    func() (ProfileCatalog, error)
	index      func() (InstanceIndex, error)
}

// NewHandles wraps the provided constructors in single-initialization
// guards. Constructor failures surface as UnavailableError.
func NewHandles(
	images func() (ImageStore, error),
	profiles func() (ProfileCatalog, error),
	index func() (InstanceIndex, error),
) *Handles {
	return &Handles{
		imageStore: sync.OnceValues(guarded("image store", images)),
		catalog:    sync.OnceValues(guarded("device catalog", profiles)),
		index:      sync.OnceValues(guarded("instance index", index)),
	}
}

// ImageStore returns the image store handle, constructing it on first call.
func (h *Handles) ImageStore() (ImageStore, error) { return h.imageStore() }

// ProfileCatalog returns the device catalog handle, constructing it on first call.
func (h *Handles) ProfileCatalog() (ProfileCatalog, error) { return h.catalog() }

// InstanceIndex returns the instance index handle, constructing it on first call.
func (h *Handles) InstanceIndex() (InstanceIndex, error) { return h.index() }

func guarded[T any](kind string, construct func() (T, error)) func() (T, error) {
	return func() (T, error) {
		value, err := construct()
		if err != nil {
			var unavailable *UnavailableError
			if !errors.As(err, &unavailable) {
				err = &UnavailableError{Kind: kind, Err: err}
			}
			var zero T
			return zero, err
		}
		return value, nil
	}
}
