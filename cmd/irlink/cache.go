package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"irlink/internal/deser"
	"irlink/internal/klib"
	"irlink/internal/layout"
	"irlink/internal/libcache"
	"irlink/internal/observ"
	"irlink/internal/project"
	"irlink/internal/ui"
	"irlink/internal/xref"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Build and inspect library caches",
}

var cacheBuildCmd = &cobra.Command{
	Use:   "build [library...]",
	Short: "Record inline function bodies and class layouts of libraries",
	Long: `Build links each library completely and stores its inline function
references and class field layouts in the cache directory. Without
arguments every non-interop library except the current module is cached.`,
	RunE: runCacheBuild,
}

var cacheDumpCmd = &cobra.Command{
	Use:   "dump <library>",
	Short: "Print the cached records of a library",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheDump,
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every cached library",
	Args:  cobra.NoArgs,
	RunE:  runCacheClean,
}

func init() {
	cacheBuildCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")

	cacheCmd.AddCommand(cacheBuildCmd)
	cacheCmd.AddCommand(cacheDumpCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
}

func runCacheBuild(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	timer := observ.NewTimer()
	defer func() {
		if timings {
			fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
		}
	}()

	configPath, err := resolveConfigPath(cmd)
	if err != nil {
		return err
	}
	ws, err := loadWorkspace(cmd.Context(), configPath, timer)
	if err != nil {
		return err
	}
	targets, err := cacheTargets(ws, args)
	if err != nil {
		return err
	}
	registry, err := ws.openCaches()
	if err != nil {
		return err
	}

	var results []cacheResult
	if shouldUseTUI(mode) {
		results, err = runCacheBuildWithUI(cmd.Context(), ws, registry, targets, timer)
	} else {
		results, err = buildCaches(cmd.Context(), ws, registry, targets, timer, ui.NopSink{})
	}
	out := cmd.OutOrStdout()
	for _, r := range results {
		fmt.Fprintf(out, "%s %s: %d inline functions, %d classes\n",
			okColor.Sprint("cached"), moduleColor.Sprint(r.library), r.inline, r.classes)
	}
	if err != nil {
		dumpRing(cmd)
		return err
	}
	return nil
}

// cacheResult summarizes one stored library cache.
type cacheResult struct {
	library string
	inline  int
	classes int
}

// buildCaches links targets in one session and stores their caches. It
// stops at the first failure and returns the caches stored so far.
func buildCaches(ctx context.Context, ws *workspace, registry *libcache.Registry, targets []string, timer *observ.Timer, sink ui.Sink) ([]cacheResult, error) {
	for _, name := range targets {
		sink.Emit(ui.Event{Library: name, Status: ui.StatusQueued})
	}
	sink.Emit(ui.Event{Stage: ui.StageHeader, Status: ui.StatusWorking})
	l, err := ws.session(ctx, sessionOptions{strategy: deser.StrategyReferenced}, timer)
	if err != nil {
		sink.Emit(ui.Event{Stage: ui.StageHeader, Status: ui.StatusError, Err: err})
		return nil, err
	}
	defer l.Close()
	sink.Emit(ui.Event{Stage: ui.StageHeader, Status: ui.StatusDone})

	results := make([]cacheResult, 0, len(targets))
	for _, name := range targets {
		lib, desc, err := ws.library(name)
		if err != nil {
			return results, err
		}
		var c *libcache.Cache
		if err := timer.Measure("cache "+name, func() error {
			var err error
			sink.Emit(ui.Event{Library: name, Stage: ui.StageLink, Status: ui.StatusWorking})
			if c, err = l.BuildLibraryCache(desc); err != nil {
				return err
			}
			sink.Emit(ui.Event{Library: name, Stage: ui.StageCache, Status: ui.StatusWorking})
			return registry.Store(lib, c)
		}); err != nil {
			sink.Emit(ui.Event{Library: name, Status: ui.StatusError, Err: err})
			return results, fmt.Errorf("cache %s: %w", name, err)
		}
		sink.Emit(ui.Event{Library: name, Status: ui.StatusDone})
		results = append(results, cacheResult{library: name, inline: len(c.InlineFunctionBodies), classes: len(c.ClassFields)})
	}
	return results, nil
}

// cacheTargets validates the requested libraries, defaulting to every
// cacheable library.
func cacheTargets(ws *workspace, args []string) ([]string, error) {
	if len(args) == 0 {
		var out []string
		for _, name := range ws.order {
			if name == ws.cfg.Link.Current || ws.libs[name].IsInterop() {
				continue
			}
			out = append(out, name)
		}
		return out, nil
	}
	for _, name := range args {
		lib, _, err := ws.library(name)
		if err != nil {
			return nil, err
		}
		if lib.IsInterop() {
			return nil, fmt.Errorf("library %s is an interop library and cannot be cached", name)
		}
	}
	// Dependencies are linked first either way; keep the output ordered.
	out := make([]string, 0, len(args))
	for _, name := range ws.order {
		if slices.Contains(args, name) {
			out = append(out, name)
		}
	}
	return out, nil
}

func runCacheDump(cmd *cobra.Command, args []string) error {
	configPath, err := resolveConfigPath(cmd)
	if err != nil {
		return err
	}
	ws, err := loadWorkspace(cmd.Context(), configPath, observ.NewTimer())
	if err != nil {
		return err
	}
	lib, _, err := ws.library(args[0])
	if err != nil {
		return err
	}
	registry, err := ws.openCaches()
	if err != nil {
		return err
	}
	if !registry.IsLibraryCached(lib) {
		return fmt.Errorf("library %s has no cache in %s", lib.Name(), ws.cfg.CacheDir())
	}
	c, err := registry.Cache(lib)
	if err != nil {
		return err
	}
	return dumpCache(cmd.OutOrStdout(), lib, c)
}

func recordFile(lib *klib.Library, index int32) (string, error) {
	if index < 0 || int(index) >= lib.FileCount() {
		return "", fmt.Errorf("file index %d out of range [0, %d)", index, lib.FileCount())
	}
	return lib.Files[index].Name, nil
}

func dumpCache(out io.Writer, lib *klib.Library, c *libcache.Cache) error {
	fmt.Fprintf(out, "%s %s (%s)\n", headerColor.Sprint("library"), moduleColor.Sprint(lib.Name()), lib.Digest.Hex())

	fmt.Fprintln(out, headerColor.Sprintf("inline functions: %d", len(c.InlineFunctionBodies)))
	for _, ref := range c.InlineFunctionBodies {
		file, err := recordFile(lib, ref.File)
		if err != nil {
			return err
		}
		s, err := lib.Reader(int(ref.File)).Signature(ref.FunctionSignature)
		if err != nil {
			return fmt.Errorf("inline function in %s: %w", file, err)
		}
		fmt.Fprintf(out, "  %s\n", s)
		fmt.Fprintf(out, "    %s\n", detailColor.Sprintf("%s body=%d offsets=%d..%d params=%d type-params=%d defaults=%d",
			file, ref.Body, ref.StartOffset, ref.EndOffset,
			len(ref.ValueParameterSigs), len(ref.TypeParameterSigs), len(ref.DefaultValues)))
	}

	fmt.Fprintln(out, headerColor.Sprintf("class layouts: %d", len(c.ClassFields)))
	for _, rec := range c.ClassFields {
		file, err := recordFile(lib, rec.File)
		if err != nil {
			return err
		}
		r := lib.Reader(int(rec.File))
		s, err := r.Signature(rec.ClassSignature)
		if err != nil {
			return fmt.Errorf("class in %s: %w", file, err)
		}
		fmt.Fprintf(out, "  %s %s\n", s, detailColor.Sprintf("(%s, %d fields)", file, len(rec.Fields)))
		for _, f := range rec.Fields {
			name, err := r.String(f.Name)
			if err != nil {
				return fmt.Errorf("class %s: %w", s, err)
			}
			fmt.Fprintf(out, "    %s: %s%s\n", name, fieldRepresentation(f), fieldFlags(f))
		}
	}
	return nil
}

func fieldRepresentation(f xref.FieldInfo) string {
	switch {
	case f.Type != xref.InvalidIndex:
		return fmt.Sprintf("type#%d", f.Type)
	case f.BinaryType != xref.InvalidIndex:
		return layout.PrimitiveBinaryType(f.BinaryType).String()
	default:
		return "Any?"
	}
}

func fieldFlags(f xref.FieldInfo) string {
	switch {
	case f.IsConst() && f.HasConstInitializer():
		return warnColor.Sprint(" const, initialized")
	case f.IsConst():
		return warnColor.Sprint(" const")
	default:
		return ""
	}
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	configPath, err := resolveConfigPath(cmd)
	if err != nil {
		return err
	}
	cfg, err := project.LoadConfig(configPath)
	if err != nil {
		return err
	}
	disk, err := libcache.OpenDiskCache(cfg.CacheDir())
	if err != nil {
		return err
	}
	if err := disk.DropAll(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okColor.Sprint("removed"), disk.Dir())
	return nil
}
