package loader

import (
	"context"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"

	"github.com/core-tools/hsu-kernel-go/pkg/errors"
	"github.com/core-tools/hsu-kernel-go/pkg/logging"
	"github.com/core-tools/hsu-kernel-go/pkg/mm"
)

// Registry maps program names to images. Resolution is by exact name, no
// partial matching.
type Registry struct {
	mutex  sync.RWMutex
	images map[string]*ProgramImage
	fs     afs.Service
	logger logging.Logger
}

func NewRegistry(logger logging.Logger) *Registry {
	return &Registry{
		images: make(map[string]*ProgramImage),
		fs:     afs.New(),
		logger: logger,
	}
}

// Register adds an image under its name.
func (r *Registry) Register(img *ProgramImage) error {
	if err := img.Validate(); err != nil {
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, exists := r.images[img.Name]; exists {
		return errors.NewConflictError("image already registered", nil).WithContext("image", img.Name)
	}
	r.images[img.Name] = img
	r.logger.Debugf("Registered program image, name: %s, segments: %d", img.Name, len(img.Segments))
	return nil
}

// Resolve looks an image up by exact name.
func (r *Registry) Resolve(name string) (*ProgramImage, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	img, ok := r.images[name]
	return img, ok
}

// Names returns the registered image names.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	names := make([]string, 0, len(r.images))
	for name := range r.images {
		names = append(names, name)
	}
	return names
}

// manifest is the YAML document describing a set of program images.
type manifest struct {
	Programs []programConfig `yaml:"programs"`
}

type programConfig struct {
	Name      string          `yaml:"name"`
	Entry     uint64          `yaml:"entry"`
	StackTop  uint64          `yaml:"stack_top,omitempty"`
	StackSize uint64          `yaml:"stack_size,omitempty"`
	Segments  []segmentConfig `yaml:"segments"`
}

type segmentConfig struct {
	Start      uint64 `yaml:"start"`
	Size       uint64 `yaml:"size,omitempty"`
	Perm       string `yaml:"perm"`
	Payload    string `yaml:"payload,omitempty"`     // inline payload bytes
	PayloadURL string `yaml:"payload_url,omitempty"` // resolved relative to the manifest
}

// LoadManifest reads a YAML program manifest from URL and registers every
// image it declares. Segment payloads may be inline or referenced by URL and
// fetched through the registry's file service.
func (r *Registry) LoadManifest(ctx context.Context, URL string) error {
	data, err := r.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return errors.NewIOError("failed to read program manifest", err).WithContext("url", URL)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return errors.NewValidationError("failed to parse program manifest", err).WithContext("url", URL)
	}

	baseURL, _ := url.Split(URL, file.Scheme)
	for _, prog := range m.Programs {
		img, err := r.buildImage(ctx, baseURL, prog)
		if err != nil {
			return err
		}
		if err := r.Register(img); err != nil {
			return err
		}
	}
	r.logger.Infof("Loaded program manifest, url: %s, programs: %d", URL, len(m.Programs))
	return nil
}

func (r *Registry) buildImage(ctx context.Context, baseURL string, prog programConfig) (*ProgramImage, error) {
	img := &ProgramImage{
		Name:      prog.Name,
		Entry:     mm.VirtAddr(prog.Entry),
		StackTop:  mm.VirtAddr(prog.StackTop),
		StackSize: prog.StackSize,
	}
	for _, seg := range prog.Segments {
		perm, err := mm.ParsePermission(seg.Perm)
		if err != nil {
			return nil, errors.NewValidationError("invalid segment permission", err).
				WithContext("image", prog.Name)
		}
		payload := []byte(seg.Payload)
		if seg.PayloadURL != "" {
			payloadURL := url.Join(baseURL, seg.PayloadURL)
			payload, err = r.fs.DownloadWithURL(ctx, payloadURL)
			if err != nil {
				return nil, errors.NewIOError("failed to read segment payload", err).
					WithContext("image", prog.Name).
					WithContext("url", payloadURL)
			}
		}
		img.Segments = append(img.Segments, Segment{
			Start: mm.VirtAddr(seg.Start),
			Size:  seg.Size,
			Perm:  perm,
			Data:  payload,
		})
	}
	return img, nil
}
