package main

import (
	"context"
	"flag"
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vkngwrapper/pbr/assets"
	"github.com/vkngwrapper/pbr/config"
	"github.com/vkngwrapper/pbr/gpu/vkng"
	"github.com/vkngwrapper/pbr/renderer"
	"github.com/vkngwrapper/pbr/window"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	settings, err := config.Load(".env", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("%+v", err)
	}
	level, _ := settings.Level()
	log.SetLevel(level)

	err = run(settings, log.StandardLogger())
	if err != nil {
		log.Errorf("%+v", err)
		os.Exit(1)
	}
}

func run(settings config.Settings, logger log.FieldLogger) error {
	win, err := window.New(window.Options{
		Title:      settings.Title,
		Width:      settings.Width,
		Height:     settings.Height,
		Fullscreen: settings.Fullscreen,
	}, logger)
	if err != nil {
		return err
	}
	defer win.Destroy()

	instance, err := vkng.NewInstance(win.SDL(), vkng.InstanceOptions{
		AppName:    settings.Title,
		Validation: settings.Validation,
		Verbose:    settings.Verbose,
	}, logger)
	if err != nil {
		return err
	}
	defer instance.Destroy()

	adapters, err := instance.Adapters()
	if err != nil {
		return err
	}
	adapter, err := renderer.PickAdapter(adapters, settings.GPU)
	if err != nil {
		return err
	}

	device, err := renderer.NewDevice(adapter, logger)
	if err != nil {
		return err
	}
	defer device.Destroy()

	swapchain := renderer.NewSwapchain(instance, device, settings.Vsync, logger)
	defer swapchain.Destroy()
	err = swapchain.InitSurface(instance)
	if err != nil {
		return err
	}

	// The mesh only goes through the staging upload; nothing draws it.
	if settings.Mesh != "" {
		mesh, err := assets.LoadMesh(settings.Mesh)
		if err != nil {
			return err
		}
		gpuMesh, err := assets.Upload(device, mesh, logger)
		if err != nil {
			return err
		}
		defer gpuMesh.Destroy()
	}

	width, height := win.DrawableSize()
	r, err := renderer.NewRenderer(device, swapchain, renderer.Options{
		Width:        width,
		Height:       height,
		Compute:      settings.Compute,
		ClearColor:   mgl32.Vec4{0.05, 0.1, 0.2, 1},
		ComputeColor: mgl32.Vec4{0.8, 0.3, 0.1, 1},
	}, logger)
	if err != nil {
		return err
	}
	defer r.Destroy()

	win.SetResizeObserver(r.Resizer.OnResize)
	r.Resizer.SetSizeFunc(win.DrawableSize)

	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)
	if settings.StatsInterval > 0 {
		group.Go(func() error {
			return r.Stats.Report(groupCtx, settings.StatsInterval, logger)
		})
	}

	err = r.Run(groupCtx, win)
	cancel()
	return errors.CombineErrors(err, group.Wait())
}
