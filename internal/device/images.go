package device

// Resolver maps image identifiers to validated image descriptors through the
// image store handle. Resolution is cheap relative to instance creation, so
// every call re-resolves; the resolver keeps no cache of its own.
type Resolver struct {
	Resources *Handles
}

// Resolve returns the descriptor for the installed image with the given
// identifier. The resolver never fetches or installs images: a missing image
// is a NotFoundError, corrupt metadata an InvalidError.
func (r *Resolver) Resolve(imageID string) (ImageDescriptor, error) {
	store, err := r.Resources.ImageStore()
	if err != nil {
		return ImageDescriptor{}, err
	}
	return store.Get(imageID)
}
