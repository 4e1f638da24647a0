package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"irlink/internal/descriptor"
	"irlink/internal/deser"
	"irlink/internal/klib"
	"irlink/internal/libcache"
	"irlink/internal/linker"
	"irlink/internal/observ"
	"irlink/internal/project"
	"irlink/internal/project/dag"
	"irlink/internal/trace"
)

// workspace is a loaded irlink project: its configuration, archives in
// dependency order and descriptor index.
type workspace struct {
	cfg     *project.Config
	order   []string
	libs    map[string]*klib.Library
	modules map[string]*descriptor.Module
}

// sessionOptions override the [link] settings of the configuration.
type sessionOptions struct {
	lazyCaches bool
	strategy   deser.Strategy
	caches     *libcache.Registry
}

func resolveConfigPath(cmd *cobra.Command) (string, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return "", fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return path, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	path, ok, err := project.FindConfig(wd)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no %s found in %s or its parents", project.ConfigFile, wd)
	}
	return path, nil
}

// loadWorkspace reads the configuration and every declared archive.
// Archives are decoded concurrently; the result is ordered dependencies
// first.
func loadWorkspace(ctx context.Context, configPath string, timer *observ.Timer) (*workspace, error) {
	var cfg *project.Config
	if err := timer.Measure("config", func() error {
		var err error
		cfg, err = project.LoadConfig(configPath)
		return err
	}); err != nil {
		return nil, err
	}

	names := cfg.LibraryNames()
	loaded := make([]*klib.Library, len(names))
	if err := timer.Measure("load archives", func() error {
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i, name := range names {
			g.Go(func() error {
				dir, err := cfg.LibraryDir(name)
				if err != nil {
					return err
				}
				lib, err := klib.Load(dir)
				if err != nil {
					return fmt.Errorf("library %s: %w", name, err)
				}
				if lib.Name() != name {
					return fmt.Errorf("library %s: archive %s declares name %q", name, dir, lib.Name())
				}
				loaded[i] = lib
				return nil
			})
		}
		return g.Wait()
	}); err != nil {
		return nil, err
	}

	ws := &workspace{cfg: cfg, libs: make(map[string]*klib.Library, len(loaded))}
	nodes := make([]dag.Node, 0, len(loaded))
	for _, lib := range loaded {
		ws.libs[lib.Name()] = lib
		nodes = append(nodes, dag.Node{Name: lib.Name(), Deps: lib.Manifest.Dependencies})
	}

	if err := timer.Measure("descriptors", func() error {
		order, err := dag.Order(nodes)
		if err != nil {
			return err
		}
		ws.order = order
		ordered := make([]*klib.Library, len(order))
		for i, name := range order {
			ordered[i] = ws.libs[name]
		}
		ws.modules, err = klib.BuildDescriptors(ordered)
		return err
	}); err != nil {
		return nil, err
	}
	return ws, nil
}

// options returns the configured session options.
func (ws *workspace) options() sessionOptions {
	return sessionOptions{
		lazyCaches: ws.cfg.Link.LazyCaches,
		strategy:   ws.cfg.Strategy(),
	}
}

// openCaches returns a registry over the configured cache directory.
func (ws *workspace) openCaches() (*libcache.Registry, error) {
	disk, err := libcache.OpenDiskCache(ws.cfg.CacheDir())
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return libcache.NewRegistry(disk), nil
}

// forwardModule builds the forward-declaration module over the interop
// libraries of the workspace.
func (ws *workspace) forwardModule() *descriptor.Module {
	fwd := descriptor.NewForwardModule()
	for _, name := range ws.order {
		if ws.libs[name].IsInterop() {
			fwd.AddDependency(ws.modules[name])
		}
	}
	return fwd
}

// session creates a link session and deserializes every module header in
// dependency order.
func (ws *workspace) session(ctx context.Context, opts sessionOptions, timer *observ.Timer) (*linker.Linker, error) {
	cfg := linker.Config{
		Caches:     opts.caches,
		LazyCaches: opts.lazyCaches && opts.caches != nil,
		Tracer:     trace.FromContext(ctx),
	}
	if name := ws.cfg.Link.Current; name != "" {
		cfg.CurrentModule = ws.modules[name]
	}
	if ws.cfg.Link.ForwardModule {
		cfg.ForwardModule = ws.forwardModule()
	}
	l, err := linker.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := timer.Measure("module headers", func() error {
		for _, name := range ws.order {
			if _, err := l.DeserializeModuleHeader(ws.modules[name], ws.libs[name], opts.strategy); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// library returns the loaded library and descriptor module named name.
func (ws *workspace) library(name string) (*klib.Library, *descriptor.Module, error) {
	lib, ok := ws.libs[name]
	if !ok {
		return nil, nil, fmt.Errorf("library %q is not declared in %s", name, project.ConfigFile)
	}
	return lib, ws.modules[name], nil
}
