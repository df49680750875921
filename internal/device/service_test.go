package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type fakeImageStore struct {
	images map[string]ImageDescriptor
	calls  int
}

func (s *fakeImageStore) Get(imageID string) (ImageDescriptor, error) {
	s.calls++
	image, ok := s.images[imageID]
	if !ok {
		return ImageDescriptor{}, &NotFoundError{Kind: "image", Name: imageID}
	}
	return image, nil
}

func (s *fakeImageStore) ListIDs() ([]string, error) {
	ids := make([]string, 0, len(s.images))
	for id := range s.images {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeIndex struct {
	mu      sync.Mutex
	records map[string]InstanceRecord
}

func (i *fakeIndex) Lookup(deviceName string) (*InstanceRecord, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	record, ok := i.records[deviceName]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (i *fakeIndex) List() ([]InstanceRecord, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	records := make([]InstanceRecord, 0, len(i.records))
	for _, record := range i.records {
		records = append(records, record)
	}
	return records, nil
}

func (i *fakeIndex) Register(record InstanceRecord) (InstanceRecord, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.records == nil {
		i.records = make(map[string]InstanceRecord)
	}
	if _, exists := i.records[record.DeviceName]; exists {
		return InstanceRecord{}, fmt.Errorf("%w: %s", ErrAlreadyRegistered, record.DeviceName)
	}
	i.records[record.DeviceName] = record
	return record, nil
}

// registeringCreator mimics the local creation primitive: it registers the
// record in the index and counts creations.
type registeringCreator struct {
	index    InstanceIndex
	creates  int
	lastSpec CreateSpec
}

func (c *registeringCreator) Create(spec CreateSpec) (InstanceRecord, error) {
	c.creates++
	c.lastSpec = spec
	return c.index.Register(InstanceRecord{
		ID:          fmt.Sprintf("id-%d", c.creates),
		DeviceName:  spec.DeviceName,
		ConfigDir:   spec.ConfigDir,
		ImageID:     spec.Image.ID,
		ProfileName: spec.ProfileName,
	})
}

type serviceFixture struct {
	service *ProvisionService
	store   *fakeImageStore
	index   *fakeIndex
	creator *registeringCreator
}

func newServiceFixture(t *testing.T, definitions HardwareDefinitionSource) *serviceFixture {
	t.Helper()

	store := &fakeImageStore{images: map[string]ImageDescriptor{
		"valid": {ID: "valid", Location: "/images/valid", APILevel: 34, ABI: "x86_64", Tag: "google_apis"},
	}}
	index := &fakeIndex{}
	creator := &registeringCreator{index: index}

	handles := NewHandles(
		func() (ImageStore, error) { return store, nil },
		func() (ProfileCatalog, error) {
			return staticCatalog{
				{
					DisplayName:            "Nexus 5",
					BaseHardwareProperties: map[string]string{"hw.lcd.density": "480", RAMSizeKey: "2048"},
					BootProperties:         map[string]string{"ro.product.model": "Nexus 5"},
				},
			}, nil
		},
		func() (InstanceIndex, error) { return index, nil },
	)

	service := NewProvisionService(handles, definitions, creator, t.TempDir())
	return &serviceFixture{service: service, store: store, index: index, creator: creator}
}

func TestProvisionCreatesInstanceOnMiss(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, staticDefinitions{})
	request := ProvisioningRequest{ImageID: "valid", DeviceName: "d1", HardwareProfileName: "Nexus 5"}

	configDir, err := fixture.service.Provision(request).Value()
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if configDir == "" {
		t.Fatal("Provision() returned an empty config directory")
	}
	if fixture.creator.creates != 1 {
		t.Fatalf("creator invoked %d times, want 1", fixture.creator.creates)
	}

	spec := fixture.creator.lastSpec
	if spec.Image.ID != "valid" {
		t.Fatalf("create spec image = %q, want %q", spec.Image.ID, "valid")
	}
	if got := spec.Hardware["hw.lcd.density"]; got != "480" {
		t.Fatalf("create spec hw.lcd.density = %q, want profile value %q", got, "480")
	}
	if got := spec.BootProperties["ro.product.model"]; got != "Nexus 5" {
		t.Fatalf("create spec boot property = %q, want %q", got, "Nexus 5")
	}
}

func TestProvisionIsIdempotentPerDeviceName(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, staticDefinitions{})
	request := ProvisioningRequest{ImageID: "valid", DeviceName: "d1", HardwareProfileName: "Nexus 5"}

	first, err := fixture.service.Provision(request).Value()
	if err != nil {
		t.Fatalf("first Provision() error = %v", err)
	}

	second, err := fixture.service.Provision(request).Value()
	if err != nil {
		t.Fatalf("second Provision() error = %v", err)
	}

	if first != second {
		t.Fatalf("Provision() returned %q then %q, want the same directory", first, second)
	}
	if fixture.creator.creates != 1 {
		t.Fatalf("creator invoked %d times, want 1", fixture.creator.creates)
	}
}

func TestProvisionCacheHitSkipsResolution(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, staticDefinitions{})
	fixture.index.records = map[string]InstanceRecord{
		"d3": {DeviceName: "d3", ConfigDir: "/devices/d3.avd"},
	}

	// Image and profile are bogus on purpose: a cache hit must return before
	// either is resolved.
	request := ProvisioningRequest{ImageID: "any", DeviceName: "d3", HardwareProfileName: "any"}
	configDir, err := fixture.service.Provision(request).Value()
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if configDir != "/devices/d3.avd" {
		t.Fatalf("Provision() = %q, want existing directory %q", configDir, "/devices/d3.avd")
	}
	if fixture.store.calls != 0 {
		t.Fatalf("image store queried %d times on a cache hit, want 0", fixture.store.calls)
	}
	if fixture.creator.creates != 0 {
		t.Fatalf("creator invoked %d times on a cache hit, want 0", fixture.creator.creates)
	}
}

func TestProvisionReportsMissingImage(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, staticDefinitions{})
	request := ProvisioningRequest{ImageID: "missing-image", DeviceName: "d1", HardwareProfileName: "Nexus 5"}

	_, err := fixture.service.Provision(request).Value()
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Provision() error = %v, want NotFoundError", err)
	}
	if notFound.Kind != "image" || notFound.Name != "missing-image" {
		t.Fatalf("error = %s %q, want image %q", notFound.Kind, notFound.Name, "missing-image")
	}
	if fixture.creator.creates != 0 {
		t.Fatal("creator invoked despite image resolution failure")
	}
}

func TestProvisionReportsMissingProfile(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, staticDefinitions{})
	request := ProvisioningRequest{ImageID: "valid", DeviceName: "d2", HardwareProfileName: "NoSuchProfile"}

	_, err := fixture.service.Provision(request).Value()
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Provision() error = %v, want NotFoundError", err)
	}
	if notFound.Kind != "hardware-profile" || notFound.Name != "NoSuchProfile" {
		t.Fatalf("error = %s %q, want hardware-profile %q", notFound.Kind, notFound.Name, "NoSuchProfile")
	}
}

func TestProvisionAppliesRAMCap(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, staticDefinitions{})
	fixture.service.MaxRAMMB = 1024

	request := ProvisioningRequest{ImageID: "valid", DeviceName: "d1", HardwareProfileName: "Nexus 5"}
	if _, err := fixture.service.Provision(request).Value(); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	// The profile asks for 2048 MB; the restriction policy must win.
	if got := fixture.creator.lastSpec.Hardware[RAMSizeKey]; got != "1024" {
		t.Fatalf("hw.ramSize = %q, want capped %q", got, "1024")
	}
}

func TestProvisionLayersProfileOverInstallation(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, staticDefinitions{
		{Name: "hw.lcd.density", Default: "240"},
		{Name: "hw.sensors.gps", Default: "yes"},
	})

	request := ProvisioningRequest{ImageID: "valid", DeviceName: "d1", HardwareProfileName: "Nexus 5"}
	if _, err := fixture.service.Provision(request).Value(); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}

	hardware := fixture.creator.lastSpec.Hardware
	if got := hardware["hw.lcd.density"]; got != "480" {
		t.Fatalf("hw.lcd.density = %q, want profile override %q", got, "480")
	}
	if got := hardware["hw.sensors.gps"]; got != "yes" {
		t.Fatalf("hw.sensors.gps = %q, want installation default %q", got, "yes")
	}
	if got := hardware["hw.camera.back"]; got != "virtualscene" {
		t.Fatalf("hw.camera.back = %q, want baseline %q", got, "virtualscene")
	}
}

func TestProvisionAbortsOnRuntimeUnavailable(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, failingDefinitions{})
	request := ProvisioningRequest{ImageID: "valid", DeviceName: "d1", HardwareProfileName: "Nexus 5"}

	_, err := fixture.service.Provision(request).Value()
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Provision() error = %v, want UnavailableError", err)
	}
	if unavailable.Kind != "runtime" {
		t.Fatalf("error kind = %q, want %q", unavailable.Kind, "runtime")
	}
	if fixture.creator.creates != 0 {
		t.Fatal("creator invoked despite missing runtime")
	}
}

type failingDefinitions struct{}

func (failingDefinitions) Definitions() ([]HardwareDefinition, error) {
	return nil, &UnavailableError{Kind: "runtime", Err: errors.New("not installed")}
}

func TestProvisionAdoptsConcurrentWinner(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, staticDefinitions{})

	// The creator loses the registration race: another record appears under
	// the same name before Register commits.
	fixture.service.Creator = creatorFunc(func(spec CreateSpec) (InstanceRecord, error) {
		fixture.index.records = map[string]InstanceRecord{
			spec.DeviceName: {DeviceName: spec.DeviceName, ConfigDir: "/devices/winner.avd"},
		}
		return InstanceRecord{}, fmt.Errorf("%w: %s", ErrAlreadyRegistered, spec.DeviceName)
	})

	request := ProvisioningRequest{ImageID: "valid", DeviceName: "d1", HardwareProfileName: "Nexus 5"}
	configDir, err := fixture.service.Provision(request).Value()
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if configDir != "/devices/winner.avd" {
		t.Fatalf("Provision() = %q, want winner's directory", configDir)
	}
}

type creatorFunc func(CreateSpec) (InstanceRecord, error)

func (f creatorFunc) Create(spec CreateSpec) (InstanceRecord, error) { return f(spec) }

func TestProvisionRequiresDeviceName(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, staticDefinitions{})
	_, err := fixture.service.Provision(ProvisioningRequest{ImageID: "valid", HardwareProfileName: "Nexus 5"}).Value()
	if err == nil {
		t.Fatal("Provision() error = nil, want device name error")
	}
}

func TestAllocateConfigDirAvoidsCollisions(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, staticDefinitions{})

	taken := filepath.Join(fixture.service.DevicesDir, "d1.avd")
	if err := os.MkdirAll(taken, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	dir, err := fixture.service.allocateConfigDir("d1")
	if err != nil {
		t.Fatalf("allocateConfigDir() error = %v", err)
	}
	if dir == taken {
		t.Fatalf("allocateConfigDir() = %q, want a fresh directory", dir)
	}
	if filepath.Dir(dir) != fixture.service.DevicesDir {
		t.Fatalf("allocateConfigDir() = %q, want a directory under %q", dir, fixture.service.DevicesDir)
	}
}

func TestAllocateConfigDirReservesDirectory(t *testing.T) {
	t.Parallel()

	fixture := newServiceFixture(t, staticDefinitions{})

	first, err := fixture.service.allocateConfigDir("d1")
	if err != nil {
		t.Fatalf("allocateConfigDir() error = %v", err)
	}
	info, err := os.Stat(first)
	if err != nil || !info.IsDir() {
		t.Fatalf("allocated directory %q does not exist: %v", first, err)
	}

	// The allocation itself takes the path, so a second call can never be
	// handed the same directory.
	second, err := fixture.service.allocateConfigDir("d1")
	if err != nil {
		t.Fatalf("allocateConfigDir() error = %v", err)
	}
	if second == first {
		t.Fatalf("allocateConfigDir() handed out %q twice", first)
	}
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"pixel-ci", "pixel-ci"},
		{"api 34 device", "api_34_device"},
		{"weird/..name", "weird_..name"},
		{"", "device"},
	}

	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Fatalf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
