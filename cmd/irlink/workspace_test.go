package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"irlink/internal/descriptor"
	"irlink/internal/deser"
	"irlink/internal/ir"
	"irlink/internal/klib"
	"irlink/internal/layout"
	"irlink/internal/linker"
	"irlink/internal/observ"
	"irlink/internal/proto"
	"irlink/internal/sig"
	"irlink/internal/ui"
)

var (
	twiceSig = sig.Public("util", "twice", 3, 0)
	mainSig  = sig.Public("app", "main", 5, 0)
	boxSig   = sig.Public("util", "Box", 0, 0)
	flagSig  = sig.Public("util", "Box.flag", 0, 0)
	countSig = sig.Public("util", "Box.count", 0, 0)
)

func utilFile() *proto.File {
	b := proto.NewBuilder("util.kt", "util")
	intType := b.ClassType(ir.BuiltinSignature("Int"), false)
	b.TopLevel(twiceSig, proto.Declaration{Kind: proto.DeclFunction, Function: &proto.Function{
		Base:     proto.Base{Symbol: b.Symbol(sig.SymbolFunction, twiceSig), Flags: proto.FlagInline},
		NameType: b.NameType("twice", intType),
		ValueParameters: []proto.ValueParameter{{
			Base:     proto.Base{Symbol: b.Symbol(sig.SymbolValueParameter, sig.ScopeLocal(1))},
			NameType: b.NameType("x", intType),
		}},
		HasBody: true,
		Body: b.Body(proto.Body{Kind: proto.BodyStatements, Statements: []proto.Expression{
			{Kind: proto.ExprReturn, Type: intType, Symbol: b.Symbol(sig.SymbolFunction, twiceSig), Args: []proto.Expression{
				{Kind: proto.ExprGetValue, Type: intType, Symbol: b.Symbol(sig.SymbolValueParameter, sig.ScopeLocal(1))},
			}},
		}}),
	}})
	field := func(s sig.Signature, name string, typ int32) proto.Declaration {
		return proto.Declaration{Kind: proto.DeclField, Field: &proto.Field{
			Base:     proto.Base{Symbol: b.Symbol(sig.SymbolField, s)},
			NameType: b.NameType(name, typ),
		}}
	}
	b.TopLevel(boxSig, proto.Declaration{Kind: proto.DeclClass, Class: &proto.Class{
		Base: proto.Base{Symbol: b.Symbol(sig.SymbolClass, boxSig)},
		Name: b.String("Box"),
		Declarations: []proto.Declaration{
			field(flagSig, "flag", b.ClassType(ir.BuiltinSignature("Boolean"), false)),
			field(countSig, "count", b.ClassType(ir.BuiltinSignature("Long"), false)),
		},
		InlineUnderlying: proto.NoIndex,
	}})
	return b.File()
}

func mainFile() *proto.File {
	b := proto.NewBuilder("main.kt", "app")
	intType := b.ClassType(ir.BuiltinSignature("Int"), false)
	b.TopLevel(mainSig, proto.Declaration{Kind: proto.DeclFunction, Function: &proto.Function{
		Base:     proto.Base{Symbol: b.Symbol(sig.SymbolFunction, mainSig)},
		NameType: b.NameType("main", proto.NoIndex),
		HasBody:  true,
		Body: b.Body(proto.Body{Kind: proto.BodyStatements, Statements: []proto.Expression{
			{Kind: proto.ExprCall, Type: intType, Symbol: b.Symbol(sig.SymbolFunction, twiceSig), Args: []proto.Expression{
				{Kind: proto.ExprConst, Type: intType, Value: 21},
			}},
		}}),
	}})
	return b.File()
}

// writeProject saves the util and app archives and an irlink.toml under a
// temporary directory and returns the configuration path.
func writeProject(t *testing.T, lazy bool) string {
	t.Helper()
	root := t.TempDir()
	libs := []*klib.Library{
		klib.New(klib.Manifest{Name: "app", ABIVersion: "1.8.0", Dependencies: []string{"util"}}, mainFile()),
		klib.New(klib.Manifest{Name: "util", ABIVersion: "1.8.0"}, utilFile()),
	}
	for _, lib := range libs {
		if err := klib.Save(filepath.Join(root, "libs", lib.Name()), lib); err != nil {
			t.Fatalf("Save %s: %v", lib.Name(), err)
		}
	}
	config := `[link]
current = "app"
forward_module = true
cache_dir = "cache"
`
	if lazy {
		config += "lazy_caches = true\n"
	}
	config += `
[libraries.app]
path = "libs/app"

[libraries.util]
path = "libs/util"
`
	path := filepath.Join(root, "irlink.toml")
	if err := os.WriteFile(path, []byte(config), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func categories(l *linker.Linker) map[string]string {
	out := make(map[string]string)
	for _, d := range l.Deserializers() {
		out[d.Descriptor().Name] = d.Category().String()
	}
	return out
}

func TestLoadWorkspaceOrdersDependenciesFirst(t *testing.T) {
	timer := observ.NewTimer()
	ws, err := loadWorkspace(context.Background(), writeProject(t, false), timer)
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}
	if diff := cmp.Diff([]string{"util", "app"}, ws.order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if ws.modules["util"].Lookup(twiceSig) == nil {
		t.Fatalf("twice not indexed")
	}
	if len(timer.Report().Phases) != 3 {
		t.Fatalf("phases = %+v", timer.Report().Phases)
	}
	targets, err := cacheTargets(ws, nil)
	if err != nil {
		t.Fatalf("cacheTargets: %v", err)
	}
	if diff := cmp.Diff([]string{"util"}, targets); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}
	if _, err := cacheTargets(ws, []string{"nope"}); err == nil {
		t.Fatalf("expected error for undeclared library")
	}
}

func TestLinkWorkspace(t *testing.T) {
	ws, err := loadWorkspace(context.Background(), writeProject(t, false), observ.NewTimer())
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}
	l, err := linkWorkspace(context.Background(), ws, ws.options(), nil, observ.NewTimer())
	if err != nil {
		t.Fatalf("linkWorkspace: %v", err)
	}
	defer l.Close()

	want := map[string]string{descriptor.ForwardModuleName: "forward", "util": "library", "app": "library"}
	if diff := cmp.Diff(want, categories(l)); diff != "" {
		t.Fatalf("categories mismatch (-want +got):\n%s", diff)
	}
	if err := verifyLinked(l); err != nil {
		t.Fatalf("verifyLinked: %v", err)
	}
	if got := countDeclarations(l.Modules()["util"]); got != 1 {
		t.Fatalf("util declarations = %d, want 1", got)
	}

	if err := applyColorMode("off"); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	printLinkReport(&out, ws, l)
	if !strings.Contains(out.String(), "linked:") || !strings.Contains(out.String(), "util") {
		t.Fatalf("unexpected report:\n%s", out.String())
	}
}

func TestLinkWorkspaceUnknownRoot(t *testing.T) {
	ws, err := loadWorkspace(context.Background(), writeProject(t, false), observ.NewTimer())
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}
	if got := rootDescriptors(ws.modules["app"], []string{"missing"}); len(got) != 0 {
		t.Fatalf("rootDescriptors = %v, want none", got)
	}
	if got := rootDescriptors(ws.modules["app"], nil); len(got) != 1 || got[0].Signature != mainSig {
		t.Fatalf("rootDescriptors = %v, want main", got)
	}
}

func TestCacheBuildThenLazyLink(t *testing.T) {
	configPath := writeProject(t, true)
	ws, err := loadWorkspace(context.Background(), configPath, observ.NewTimer())
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}
	registry, err := ws.openCaches()
	if err != nil {
		t.Fatalf("openCaches: %v", err)
	}
	builder, err := ws.session(context.Background(), sessionOptions{strategy: deser.StrategyReferenced}, observ.NewTimer())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	lib, desc, err := ws.library("util")
	if err != nil {
		t.Fatal(err)
	}
	c, err := builder.BuildLibraryCache(desc)
	if err != nil {
		t.Fatalf("BuildLibraryCache: %v", err)
	}
	builder.Close()
	if len(c.InlineFunctionBodies) != 1 {
		t.Fatalf("inline records = %d, want 1", len(c.InlineFunctionBodies))
	}
	if err := registry.Store(lib, c); err != nil {
		t.Fatalf("Store: %v", err)
	}

	var dump bytes.Buffer
	if err := applyColorMode("off"); err != nil {
		t.Fatal(err)
	}
	if err := dumpCache(&dump, lib, c); err != nil {
		t.Fatalf("dumpCache: %v", err)
	}
	if !strings.Contains(dump.String(), twiceSig.String()) {
		t.Fatalf("dump misses twice:\n%s", dump.String())
	}

	// A fresh workspace sees the cache on disk.
	ws, err = loadWorkspace(context.Background(), configPath, observ.NewTimer())
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}
	opts := ws.options()
	if opts.caches, err = ws.openCaches(); err != nil {
		t.Fatalf("openCaches: %v", err)
	}
	l, err := linkWorkspace(context.Background(), ws, opts, nil, observ.NewTimer())
	if err != nil {
		t.Fatalf("linkWorkspace: %v", err)
	}
	defer l.Close()
	if got := categories(l)["util"]; got != "cached" {
		t.Fatalf("util category = %s, want cached", got)
	}
	// Descriptors belong to the workspace that loaded them.
	if _, desc, err = ws.library("util"); err != nil {
		t.Fatal(err)
	}
	cached, err := l.CachedDeserializerFor(desc)
	if err != nil {
		t.Fatalf("CachedDeserializerFor: %v", err)
	}
	d, err := l.GetDeclaration(twiceSig, sig.SymbolFunction)
	if err != nil {
		t.Fatalf("GetDeclaration: %v", err)
	}
	fn, ok := d.(*ir.Function)
	if !ok {
		t.Fatalf("twice is %T", d)
	}
	if fn.Origin() != ir.OriginStub || fn.Body == nil {
		t.Fatalf("twice after lazy link: origin %v, body %v", fn.Origin(), fn.Body)
	}
	info, err := cached.DeserializeInlineFunction(fn)
	if err != nil {
		t.Fatalf("DeserializeInlineFunction: %v", err)
	}
	if info.File == nil {
		t.Fatalf("twice has no origin file")
	}
}

func TestLibraryLayouts(t *testing.T) {
	configPath := writeProject(t, false)
	ws, err := loadWorkspace(context.Background(), configPath, observ.NewTimer())
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}
	want := layout.TypeLayout{Size: 16, Align: 8, FieldOffsets: []int{0, 8}, FieldAligns: []int{1, 8}}

	l, err := ws.session(context.Background(), ws.options(), observ.NewTimer())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	defer l.Close()
	layouts, err := libraryLayouts(l, ws.modules["util"], layout.New(layout.X86_64LinuxGNU(), l.Builtins()))
	if err != nil {
		t.Fatalf("libraryLayouts: %v", err)
	}
	if len(layouts) != 1 || layouts[0].class.Name() != "Box" {
		t.Fatalf("layouts = %+v, want Box", layouts)
	}
	if diff := cmp.Diff(want, layouts[0].layout); diff != "" {
		t.Fatalf("layout mismatch (-want +got):\n%s", diff)
	}

	// The same layout comes back from the cache.
	lib, desc, err := ws.library("util")
	if err != nil {
		t.Fatal(err)
	}
	c, err := l.BuildLibraryCache(desc)
	if err != nil {
		t.Fatalf("BuildLibraryCache: %v", err)
	}
	if len(c.ClassFields) != 1 {
		t.Fatalf("class records = %d, want 1", len(c.ClassFields))
	}
	opts := ws.options()
	opts.lazyCaches = true
	if opts.caches, err = ws.openCaches(); err != nil {
		t.Fatalf("openCaches: %v", err)
	}
	if err := opts.caches.Store(lib, c); err != nil {
		t.Fatalf("Store: %v", err)
	}
	lazy, err := ws.session(context.Background(), opts, observ.NewTimer())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	defer lazy.Close()
	layouts, err = libraryLayouts(lazy, ws.modules["util"], layout.New(layout.X86_64LinuxGNU(), lazy.Builtins()))
	if err != nil {
		t.Fatalf("libraryLayouts (cached): %v", err)
	}
	if len(layouts) != 1 {
		t.Fatalf("cached layouts = %d, want 1", len(layouts))
	}
	if diff := cmp.Diff(want, layouts[0].layout); diff != "" {
		t.Fatalf("cached layout mismatch (-want +got):\n%s", diff)
	}
	if layouts[0].fields[0].Field != nil {
		t.Fatalf("cached field should not point at a live declaration")
	}
}

type recordingSink struct {
	events []ui.Event
}

func (s *recordingSink) Emit(ev ui.Event) { s.events = append(s.events, ev) }

func TestBuildCachesEmitsEvents(t *testing.T) {
	ws, err := loadWorkspace(context.Background(), writeProject(t, false), observ.NewTimer())
	if err != nil {
		t.Fatalf("loadWorkspace: %v", err)
	}
	registry, err := ws.openCaches()
	if err != nil {
		t.Fatalf("openCaches: %v", err)
	}
	sink := &recordingSink{}
	results, err := buildCaches(context.Background(), ws, registry, []string{"util"}, observ.NewTimer(), sink)
	if err != nil {
		t.Fatalf("buildCaches: %v", err)
	}
	if diff := cmp.Diff([]cacheResult{{library: "util", inline: 1, classes: 1}}, results, cmp.AllowUnexported(cacheResult{})); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
	want := []ui.Event{
		{Library: "util", Status: ui.StatusQueued},
		{Stage: ui.StageHeader, Status: ui.StatusWorking},
		{Stage: ui.StageHeader, Status: ui.StatusDone},
		{Library: "util", Stage: ui.StageLink, Status: ui.StatusWorking},
		{Library: "util", Stage: ui.StageCache, Status: ui.StatusWorking},
		{Library: "util", Status: ui.StatusDone},
	}
	if diff := cmp.Diff(want, sink.events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	lib, _, err := ws.library("util")
	if err != nil {
		t.Fatal(err)
	}
	if !registry.IsLibraryCached(lib) {
		t.Fatalf("util not cached")
	}
}

func TestReadUIMode(t *testing.T) {
	for value, want := range map[string]uiMode{"": uiModeAuto, "ON": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(value)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %v, %v", value, got, err)
		}
	}
	if _, err := readUIMode("maybe"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestApplyColorModeRejectsUnknown(t *testing.T) {
	if err := applyColorMode("sometimes"); err == nil {
		t.Fatalf("expected error")
	}
}
