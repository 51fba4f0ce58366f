package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/core-tools/hsu-kernel-go/pkg/errors"
	"github.com/core-tools/hsu-kernel-go/pkg/mm"
)

// MockLogger is a mock implementation of Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) LogLevelf(level int, format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Debugf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Warnf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.Called(format, args)
}

func newTestRegistry() *Registry {
	logger := &MockLogger{}
	logger.On("Debugf", mock.Anything, mock.Anything).Maybe()
	logger.On("Infof", mock.Anything, mock.Anything).Maybe()
	logger.On("Warnf", mock.Anything, mock.Anything).Maybe()
	logger.On("Errorf", mock.Anything, mock.Anything).Maybe()
	return NewRegistry(logger)
}

func testImage(name string) *ProgramImage {
	return &ProgramImage{
		Name:  name,
		Entry: 0x10000,
		Segments: []Segment{
			{Start: 0x10000, Size: mm.PageSize, Perm: mm.PermRead | mm.PermExecute | mm.PermUser},
		},
	}
}

func TestRegisterAndResolve(t *testing.T) {
	r := newTestRegistry()

	require.NoError(t, r.Register(testImage("init")))

	img, ok := r.Resolve("init")
	require.True(t, ok)
	assert.Equal(t, "init", img.Name)

	// resolution is by exact name
	_, ok = r.Resolve("ini")
	assert.False(t, ok)

	assert.Equal(t, []string{"init"}, r.Names())
}

func TestRegisterDuplicate(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(testImage("init")))

	err := r.Register(testImage("init"))
	assert.True(t, errors.IsConflictError(err))
}

func TestImageValidation(t *testing.T) {
	r := newTestRegistry()

	err := r.Register(&ProgramImage{})
	assert.True(t, errors.IsValidationError(err))

	err = r.Register(&ProgramImage{Name: "empty"})
	assert.True(t, errors.IsValidationError(err))

	err = r.Register(&ProgramImage{
		Name:  "short",
		Entry: 0x10000,
		Segments: []Segment{
			{Start: 0x10000, Size: 2, Perm: mm.PermRead, Data: []byte("payload larger than size")},
		},
	})
	assert.True(t, errors.IsValidationError(err))
}

func TestBuildAddressSpace(t *testing.T) {
	frames := mm.NewFrameAllocator()
	img := &ProgramImage{
		Name:  "hello",
		Entry: 0x10000,
		Segments: []Segment{
			{Start: 0x10000, Size: mm.PageSize, Perm: mm.PermRead | mm.PermExecute | mm.PermUser},
			{Start: 0x20000, Size: mm.PageSize, Perm: mm.PermRead | mm.PermWrite | mm.PermUser, Data: []byte("greetings")},
		},
	}

	ms, stackTop, err := img.Build(frames)
	require.NoError(t, err)
	assert.Equal(t, DefaultStackTop, stackTop)

	// text + data + two default stack pages
	assert.Equal(t, 4, ms.MappedPages())
	assert.True(t, ms.IsMapped(DefaultStackTop-1))
	assert.False(t, ms.IsMapped(DefaultStackTop))

	got, err := ms.Token().ReadBytes(0x20000, 9)
	require.NoError(t, err)
	assert.Equal(t, []byte("greetings"), got)
}

func TestBuildCustomStack(t *testing.T) {
	frames := mm.NewFrameAllocator()
	img := testImage("custom")
	img.StackTop = 0x40000
	img.StackSize = mm.PageSize

	ms, stackTop, err := img.Build(frames)
	require.NoError(t, err)
	assert.Equal(t, mm.VirtAddr(0x40000), stackTop)
	assert.True(t, ms.IsMapped(0x3f000))
	assert.Equal(t, 2, ms.MappedPages())
}

func TestBuildOverlappingSegments(t *testing.T) {
	frames := mm.NewFrameAllocator()
	img := &ProgramImage{
		Name:  "overlap",
		Entry: 0x10000,
		Segments: []Segment{
			{Start: 0x10000, Size: mm.PageSize, Perm: mm.PermRead | mm.PermUser},
			{Start: 0x10000, Size: mm.PageSize, Perm: mm.PermWrite | mm.PermUser},
		},
	}

	_, _, err := img.Build(frames)
	assert.True(t, errors.IsProcessError(err))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	payload := []byte{0x13, 0x37, 0xca, 0xfe}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "init_data.bin"), payload, 0644))

	manifestYAML := `
programs:
  - name: init
    entry: 65536
    segments:
      - start: 65536
        size: 4096
        perm: rx
      - start: 131072
        perm: rw
        payload_url: init_data.bin
  - name: hello
    entry: 65536
    stack_top: 268435456
    stack_size: 4096
    segments:
      - start: 65536
        perm: rwx
        payload: "CODE"
`
	manifestPath := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifestYAML), 0644))

	r := newTestRegistry()
	require.NoError(t, r.LoadManifest(context.Background(), manifestPath))

	init, ok := r.Resolve("init")
	require.True(t, ok)
	assert.Equal(t, mm.VirtAddr(65536), init.Entry)
	require.Len(t, init.Segments, 2)
	assert.Equal(t, mm.PermRead|mm.PermExecute|mm.PermUser, init.Segments[0].Perm)
	assert.Equal(t, payload, init.Segments[1].Data)

	hello, ok := r.Resolve("hello")
	require.True(t, ok)
	assert.Equal(t, mm.VirtAddr(268435456), hello.StackTop)
	assert.Equal(t, uint64(4096), hello.StackSize)
	assert.Equal(t, []byte("CODE"), hello.Segments[0].Data)
}

func TestLoadManifestErrors(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry()
	ctx := context.Background()

	err := r.LoadManifest(ctx, filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.IsIOError(err))

	badYAML := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badYAML, []byte("programs: {not a list"), 0644))
	err = r.LoadManifest(ctx, badYAML)
	assert.True(t, errors.IsValidationError(err))

	badPerm := filepath.Join(dir, "badperm.yaml")
	require.NoError(t, os.WriteFile(badPerm, []byte(`
programs:
  - name: broken
    entry: 65536
    segments:
      - start: 65536
        perm: zz
`), 0644))
	err = r.LoadManifest(ctx, badPerm)
	assert.True(t, errors.IsValidationError(err))

	missingPayload := filepath.Join(dir, "payload.yaml")
	require.NoError(t, os.WriteFile(missingPayload, []byte(`
programs:
  - name: nodata
    entry: 65536
    segments:
      - start: 65536
        perm: rx
        payload_url: nowhere.bin
`), 0644))
	err = r.LoadManifest(ctx, missingPayload)
	assert.True(t, errors.IsIOError(err))
}
