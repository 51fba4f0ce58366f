// Package kernel wires the process-management core together: clock, frame
// allocator, program registry, scheduler, processor and syscall surface.
package kernel

import (
	"context"

	"github.com/google/uuid"

	"github.com/core-tools/hsu-kernel-go/pkg/errors"
	"github.com/core-tools/hsu-kernel-go/pkg/loader"
	"github.com/core-tools/hsu-kernel-go/pkg/logging"
	"github.com/core-tools/hsu-kernel-go/pkg/mm"
	"github.com/core-tools/hsu-kernel-go/pkg/syscall"
	"github.com/core-tools/hsu-kernel-go/pkg/task"
	"github.com/core-tools/hsu-kernel-go/pkg/timer"
	"github.com/core-tools/hsu-kernel-go/pkg/tracing"
)

const kernelVersion = "1.0.0"

// Kernel owns one bootable instance of the process-management core.
type Kernel struct {
	config    *Config
	logger    logging.Logger
	clock     timer.Clock
	frames    *mm.FrameAllocator
	images    *loader.Registry
	processor *task.Processor
	handler   *syscall.Handler
	bootID    uuid.UUID
}

// NewKernel builds a kernel from configuration. The ready queue is the
// process-wide scheduler singleton.
func NewKernel(config *Config, logger logging.Logger) (*Kernel, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	if err := tracing.Init("hsu-kernel", kernelVersion, config.Kernel.TraceOutput); err != nil {
		logger.Warnf("Tracing initialization failed, continuing without spans: %v", err)
	}

	clock := timer.NewSystemClock()
	frames := mm.NewFrameAllocator()
	images := loader.NewRegistry(logger)
	processor := task.NewProcessor(task.Default(), clock, logger)
	handler := syscall.NewHandler(processor, images, frames, clock, logger)

	k := &Kernel{
		config:    config,
		logger:    logger,
		clock:     clock,
		frames:    frames,
		images:    images,
		processor: processor,
		handler:   handler,
		bootID:    uuid.New(),
	}
	logger.Infof("Kernel created, boot_id: %s, init_program: %s", k.bootID, config.Kernel.InitProgram)
	return k, nil
}

// LoadPrograms loads every configured program manifest.
func (k *Kernel) LoadPrograms(ctx context.Context) error {
	for _, url := range k.config.Programs.Manifests {
		if err := k.images.LoadManifest(ctx, url); err != nil {
			return err
		}
	}
	return nil
}

// Bootstrap creates the root task from the configured init program and
// enqueues it. The root task is the unique parentless task and the
// reparenting target for orphans.
func (k *Kernel) Bootstrap() error {
	img, ok := k.images.Resolve(k.config.Kernel.InitProgram)
	if !ok {
		return errors.NewNotFoundError("init program not registered", nil).
			WithContext("init_program", k.config.Kernel.InitProgram)
	}
	root, err := task.New(img, k.frames, k.clock)
	if err != nil {
		return errors.NewProcessError("failed to create root task", err)
	}
	k.processor.SetRoot(root)
	k.processor.Manager().Add(root)
	k.logger.Infof("Root task created, pid: %d, image: %s", root.Pid(), img.Name)
	return nil
}

func (k *Kernel) Handler() *syscall.Handler {
	return k.handler
}

func (k *Kernel) Processor() *task.Processor {
	return k.processor
}

func (k *Kernel) Images() *loader.Registry {
	return k.images
}

func (k *Kernel) Frames() *mm.FrameAllocator {
	return k.frames
}

func (k *Kernel) Clock() timer.Clock {
	return k.clock
}

func (k *Kernel) BootID() uuid.UUID {
	return k.bootID
}
