package main

import (
	"context"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/core-tools/hsu-kernel-go/pkg/kernel"
	"github.com/core-tools/hsu-kernel-go/pkg/loader"
	"github.com/core-tools/hsu-kernel-go/pkg/logging"
	"github.com/core-tools/hsu-kernel-go/pkg/mm"
	"github.com/core-tools/hsu-kernel-go/pkg/syscall"
	"github.com/core-tools/hsu-kernel-go/pkg/task"
)

type flagOptions struct {
	Config   string `long:"config" description:"kernel configuration file (YAML)"`
	LogLevel string `long:"log-level" description:"log level override (debug, info, warn, error)"`
	Ticks    int    `long:"ticks" description:"maximum scheduling turns to run" default:"500"`
}

// Demo user-memory layout. The init image carries a data page with the
// worker program names and scratch space for syscall out-parameters.
const (
	demoTextBase = mm.VirtAddr(0x10000)
	demoDataBase = mm.VirtAddr(0x20000)

	addrWorkerAName = uint64(demoDataBase)
	addrWorkerBName = uint64(demoDataBase) + 0x10
	addrExitCodeOut = uint64(demoDataBase) + 0x100
)

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	config := kernel.DefaultConfig()
	if opts.Config != "" {
		loaded, err := kernel.LoadConfigFromFile(opts.Config)
		if err != nil {
			fmt.Printf("Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		config = loaded
	}
	if opts.LogLevel != "" {
		config.Kernel.LogLevel = opts.LogLevel
	}

	zapConfig := logging.DefaultZapConfig()
	zapConfig.Level = config.Kernel.LogLevel
	logger, err := logging.NewZapLogger(zapConfig)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	k, err := kernel.NewKernel(config, logger)
	if err != nil {
		logger.Errorf("Failed to create kernel: %v", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := k.LoadPrograms(ctx); err != nil {
		logger.Errorf("Failed to load program manifests: %v", err)
		os.Exit(1)
	}
	registerDemoImages(k.Images(), logger)

	if err := k.Bootstrap(); err != nil {
		logger.Errorf("Failed to bootstrap: %v", err)
		os.Exit(1)
	}

	driver := newDriver(k, logger)
	driver.run(ctx, opts.Ticks)
}

// registerDemoImages installs a built-in workload when no manifest provides
// one: an init program that spawns two workers of different weights, waits
// on both, and exits.
func registerDemoImages(images *loader.Registry, logger logging.Logger) {
	if _, ok := images.Resolve(kernel.DefaultInitProgram); ok {
		return
	}

	data := make([]byte, 0x200)
	copy(data[addrWorkerAName-uint64(demoDataBase):], "worker_a\x00")
	copy(data[addrWorkerBName-uint64(demoDataBase):], "worker_b\x00")

	init := &loader.ProgramImage{
		Name:  kernel.DefaultInitProgram,
		Entry: demoTextBase,
		Segments: []loader.Segment{
			{Start: demoTextBase, Size: mm.PageSize, Perm: mm.PermRead | mm.PermExecute | mm.PermUser},
			{Start: demoDataBase, Size: mm.PageSize, Perm: mm.PermRead | mm.PermWrite | mm.PermUser, Data: data},
		},
	}
	worker := func(name string) *loader.ProgramImage {
		return &loader.ProgramImage{
			Name:  name,
			Entry: demoTextBase,
			Segments: []loader.Segment{
				{Start: demoTextBase, Size: mm.PageSize, Perm: mm.PermRead | mm.PermExecute | mm.PermUser},
			},
		}
	}

	for _, img := range []*loader.ProgramImage{init, worker("worker_a"), worker("worker_b")} {
		if err := images.Register(img); err != nil {
			logger.Errorf("Failed to register demo image %s: %v", img.Name, err)
			os.Exit(1)
		}
	}
	logger.Infof("Registered built-in demo images: %v", images.Names())
}

// driver stands in for the trap layer: it picks the next ready task and
// issues that task's next scripted syscall through the real dispatcher.
type driver struct {
	kernel     *kernel.Kernel
	logger     logging.Logger
	steps      map[task.Pid]int
	selections map[task.Pid]int
	reaped     int
	workerPids map[task.Pid]int64 // pid -> assigned weight
}

func newDriver(k *kernel.Kernel, logger logging.Logger) *driver {
	return &driver{
		kernel:     k,
		logger:     logger,
		steps:      make(map[task.Pid]int),
		selections: make(map[task.Pid]int),
		workerPids: make(map[task.Pid]int64),
	}
}

func (d *driver) run(ctx context.Context, maxTicks int) {
	processor := d.kernel.Processor()
	handler := d.kernel.Handler()
	rootPid := processor.Root().Pid()

	for tick := 0; tick < maxTicks; tick++ {
		t := processor.Schedule()
		if t == nil {
			break
		}
		d.selections[t.Pid()]++

		if t.Pid() == rootPid {
			d.stepInit(ctx, handler)
		} else {
			d.stepWorker(ctx, handler, t.Pid())
		}

		// a task that neither exited nor yielded keeps the executor; the
		// demo is cooperative, so hand it back
		if processor.Current() != nil {
			handler.Dispatch(ctx, syscall.SyscallYield, [3]uint64{})
		}
	}

	d.logger.Infof("Run complete, frames in use: %d", d.kernel.Frames().InUse())
	for pid, weight := range d.workerPids {
		d.logger.Infof("Worker selection count, pid: %d, weight: %d, selected: %d",
			pid, weight, d.selections[pid])
	}
}

func (d *driver) stepInit(ctx context.Context, handler *syscall.Handler) {
	pid := d.kernel.Processor().Current().Pid()
	step := d.steps[pid]
	d.steps[pid] = step + 1

	switch step {
	case 0:
		// exercise the address-space syscalls once before spawning
		handler.Dispatch(ctx, syscall.SyscallMMap, [3]uint64{0x40000, 0x2000, 3})
		handler.Dispatch(ctx, syscall.SyscallMUnmap, [3]uint64{0x40000, 0x2000})
	case 1:
		child := handler.Dispatch(ctx, syscall.SyscallSpawn, [3]uint64{addrWorkerAName})
		d.workerPids[task.Pid(child)] = 2
	case 2:
		child := handler.Dispatch(ctx, syscall.SyscallSpawn, [3]uint64{addrWorkerBName})
		d.workerPids[task.Pid(child)] = 4
	default:
		ret := handler.Dispatch(ctx, syscall.SyscallWaitPid, [3]uint64{^uint64(0), addrExitCodeOut})
		if ret > 0 {
			d.reaped++
			d.logger.Infof("Reaped child, pid: %d", ret)
		}
		if d.reaped == len(d.workerPids) {
			handler.Dispatch(ctx, syscall.SyscallExit, [3]uint64{0})
		}
	}
}

func (d *driver) stepWorker(ctx context.Context, handler *syscall.Handler, pid task.Pid) {
	step := d.steps[pid]
	d.steps[pid] = step + 1

	const workerTurns = 40
	switch {
	case step == 0:
		weight := d.workerPids[pid]
		handler.Dispatch(ctx, syscall.SyscallSetPriority, [3]uint64{uint64(weight)})
	case step >= workerTurns:
		handler.Dispatch(ctx, syscall.SyscallExit, [3]uint64{uint64(step)})
	default:
		handler.Dispatch(ctx, syscall.SyscallYield, [3]uint64{})
	}
}
