package linker

import (
	"testing"

	"irlink/internal/descriptor"
	"irlink/internal/deser"
	"irlink/internal/ir"
	"irlink/internal/klib"
	"irlink/internal/libcache"
	"irlink/internal/proto"
	"irlink/internal/sig"
)

// Signatures of the core library:
//
//	package p
//	class Outer<A> {
//	    inner class Inner<B> {
//	        inline fun <C> get(x: Int = 1, c: C): Int { A; B; C; return x }
//	    }
//	    val size: Int
//	    field count: Long = 7
//	    private class Hidden
//	    private value class Handle(Int)
//	    private value class Raw(NativePtr)
//	    field secret: Hidden
//	    field handle: Handle
//	    field raw: Raw
//	}
//	inline fun Int.twice(y: Int = 2): Int { return <receiver> }
//	fun plain()
//	private fun helper()
var (
	outerSig  = sig.Public("p", "Outer", 0, 0)
	innerSig  = sig.Public("p", "Outer.Inner", 0, 0)
	getSig    = sig.Public("p", "Outer.Inner.get", 11, 0)
	sizeSig   = sig.Public("p", "Outer.size", 0, 0)
	sizeGet   = sig.Public("p", "Outer.size.<get-size>", 0, 0)
	countSig  = sig.Public("p", "Outer.count", 0, 0)
	hiddenSig = sig.Public("p", "Outer.Hidden", 0, 0)
	handleSig = sig.Public("p", "Outer.Handle", 0, 0)
	rawSig    = sig.Public("p", "Outer.Raw", 0, 0)
	secretSig = sig.Public("p", "Outer.secret", 0, 0)
	handleFld = sig.Public("p", "Outer.handle", 0, 0)
	rawFld    = sig.Public("p", "Outer.raw", 0, 0)
	twiceSig  = sig.Public("p", "twice", 3, 0)
	plainSig  = sig.Public("p", "plain", 0, 0)
	helperSig = sig.FileLocal(sig.Public("p", "helper", 0, 0), 1)

	mainSig = sig.Public("app", "main", 0, 0)

	// Native interop and forward declarations.
	statSig    = sig.Public("platform.posix", "stat", 0, sig.FlagNativeInterop)
	statSize   = sig.Public("platform.posix", "stat.size", 0, sig.FlagNativeInterop)
	realSig    = sig.Public("cnames.structs", "Real", 0, sig.FlagNativeInterop)
	opaqueSig  = sig.Public("cnames.structs", "Opaque", 0, 0)
	missingSig = sig.Public("objcnames.classes", "Missing", 0, 0)
)

// Scope-local signatures inside the core library.
var (
	tpA      = sig.ScopeLocal(1)
	tpB      = sig.ScopeLocal(2)
	tpC      = sig.ScopeLocal(3)
	paramX   = sig.ScopeLocal(4)
	paramC   = sig.ScopeLocal(5)
	getThis  = sig.ScopeLocal(6)
	twiceRcv = sig.ScopeLocal(7)
	paramY   = sig.ScopeLocal(8)
)

func typeParameter(b *proto.Builder, s sig.Signature, name string) proto.TypeParameter {
	return proto.TypeParameter{Base: proto.Base{Symbol: b.Symbol(sig.SymbolTypeParameter, s)}, Name: b.String(name)}
}

func classRecord(b *proto.Builder, s sig.Signature, name string, flags proto.Flags, underlying int32, members ...proto.Declaration) proto.Declaration {
	return proto.Declaration{Kind: proto.DeclClass, Class: &proto.Class{
		Base:             proto.Base{Symbol: b.Symbol(sig.SymbolClass, s), Flags: flags},
		Name:             b.String(name),
		Declarations:     members,
		InlineUnderlying: underlying,
	}}
}

func fieldRecord(b *proto.Builder, s sig.Signature, name string, typ int32) proto.Declaration {
	return proto.Declaration{Kind: proto.DeclField, Field: &proto.Field{
		Base:     proto.Base{Symbol: b.Symbol(sig.SymbolField, s)},
		NameType: b.NameType(name, typ),
	}}
}

func coreFile() *proto.File {
	b := proto.NewBuilder("outer.kt", "p")
	intType := b.ClassType(ir.BuiltinSignature("Int"), false)
	longType := b.ClassType(ir.BuiltinSignature("Long"), false)
	ptrType := b.ClassType(ir.BuiltinSignature("NativePtr"), false)
	innerType := b.ClassType(innerSig, false)
	typeOf := func(s sig.Signature) int32 {
		return b.Type(proto.Type{Classifier: b.Symbol(sig.SymbolTypeParameter, s)})
	}
	typeA, typeB, typeC := typeOf(tpA), typeOf(tpB), typeOf(tpC)

	getDefault := b.Body(proto.Body{Kind: proto.BodyExpression, Statements: []proto.Expression{
		{Kind: proto.ExprConst, Type: intType, Value: 1},
	}})
	getBody := b.Body(proto.Body{Kind: proto.BodyStatements, Statements: []proto.Expression{
		{Kind: proto.ExprConst, Type: typeA},
		{Kind: proto.ExprConst, Type: typeB},
		{Kind: proto.ExprConst, Type: typeC},
		{Kind: proto.ExprReturn, Type: intType, Symbol: b.Symbol(sig.SymbolFunction, getSig), Args: []proto.Expression{
			{Kind: proto.ExprGetValue, Type: intType, Symbol: b.Symbol(sig.SymbolValueParameter, paramX)},
		}},
	}})
	get := &proto.Function{
		Base:           proto.Base{Symbol: b.Symbol(sig.SymbolFunction, getSig), Flags: proto.FlagInline, Start: 10, End: 42},
		NameType:       b.NameType("get", intType),
		TypeParameters: []proto.TypeParameter{typeParameter(b, tpC, "C")},
		DispatchReceiver: &proto.ValueParameter{
			Base:     proto.Base{Symbol: b.Symbol(sig.SymbolReceiverParameter, getThis)},
			NameType: b.NameType("<this>", innerType),
		},
		ValueParameters: []proto.ValueParameter{
			{
				Base:         proto.Base{Symbol: b.Symbol(sig.SymbolValueParameter, paramX)},
				NameType:     b.NameType("x", intType),
				HasDefault:   true,
				DefaultValue: getDefault,
			},
			{
				Base:     proto.Base{Symbol: b.Symbol(sig.SymbolValueParameter, paramC)},
				NameType: b.NameType("c", typeC),
			},
		},
		HasBody: true,
		Body:    getBody,
	}
	inner := classRecord(b, innerSig, "Inner", proto.FlagInner, proto.NoIndex,
		proto.Declaration{Kind: proto.DeclFunction, Function: get})
	inner.Class.TypeParameters = []proto.TypeParameter{typeParameter(b, tpB, "B")}

	countInit := b.Body(proto.Body{Kind: proto.BodyExpression, Statements: []proto.Expression{
		{Kind: proto.ExprConst, Type: longType, Value: 7},
	}})
	count := fieldRecord(b, countSig, "count", longType)
	count.Field.HasInitializer = true
	count.Field.Initializer = countInit

	size := proto.Declaration{Kind: proto.DeclProperty, Property: &proto.Property{
		Base: proto.Base{Symbol: b.Symbol(sig.SymbolProperty, sizeSig)},
		Name: b.String("size"),
		Getter: &proto.Function{
			Base:     proto.Base{Symbol: b.Symbol(sig.SymbolFunction, sizeGet)},
			NameType: b.NameType("<get-size>", intType),
		},
		BackingField: &proto.Field{
			Base:     proto.Base{Symbol: b.Symbol(sig.SymbolField, sig.FileLocal(sizeSig, 1))},
			NameType: b.NameType("size", intType),
		},
	}}

	outer := classRecord(b, outerSig, "Outer", 0, proto.NoIndex,
		inner,
		size,
		count,
		classRecord(b, hiddenSig, "Hidden", proto.FlagPrivate, proto.NoIndex),
		classRecord(b, handleSig, "Handle", proto.FlagPrivate|proto.FlagValueClass, intType),
		classRecord(b, rawSig, "Raw", proto.FlagPrivate|proto.FlagValueClass, ptrType),
		fieldRecord(b, secretSig, "secret", b.ClassType(hiddenSig, false)),
		fieldRecord(b, handleFld, "handle", b.ClassType(handleSig, false)),
		fieldRecord(b, rawFld, "raw", b.ClassType(rawSig, false)),
	)
	outer.Class.TypeParameters = []proto.TypeParameter{typeParameter(b, tpA, "A")}
	b.TopLevel(outerSig, outer)

	twiceBody := b.Body(proto.Body{Kind: proto.BodyStatements, Statements: []proto.Expression{
		{Kind: proto.ExprReturn, Type: intType, Symbol: b.Symbol(sig.SymbolFunction, twiceSig), Args: []proto.Expression{
			{Kind: proto.ExprGetValue, Type: intType, Symbol: b.Symbol(sig.SymbolReceiverParameter, twiceRcv)},
		}},
	}})
	twiceDefault := b.Body(proto.Body{Kind: proto.BodyExpression, Statements: []proto.Expression{
		{Kind: proto.ExprConst, Type: intType, Value: 2},
	}})
	b.TopLevel(twiceSig, proto.Declaration{Kind: proto.DeclFunction, Function: &proto.Function{
		Base:     proto.Base{Symbol: b.Symbol(sig.SymbolFunction, twiceSig), Flags: proto.FlagInline, Start: 50, End: 70},
		NameType: b.NameType("twice", intType),
		ExtensionReceiver: &proto.ValueParameter{
			Base:     proto.Base{Symbol: b.Symbol(sig.SymbolReceiverParameter, twiceRcv)},
			NameType: b.NameType("<receiver>", intType),
		},
		ValueParameters: []proto.ValueParameter{{
			Base:         proto.Base{Symbol: b.Symbol(sig.SymbolValueParameter, paramY)},
			NameType:     b.NameType("y", intType),
			HasDefault:   true,
			DefaultValue: twiceDefault,
		}},
		HasBody: true,
		Body:    twiceBody,
	}})
	b.TopLevel(plainSig, proto.Declaration{Kind: proto.DeclFunction, Function: &proto.Function{
		Base:     proto.Base{Symbol: b.Symbol(sig.SymbolFunction, plainSig)},
		NameType: b.NameType("plain", proto.NoIndex),
	}})
	b.TopLevel(helperSig, proto.Declaration{Kind: proto.DeclFunction, Function: &proto.Function{
		Base:     proto.Base{Symbol: b.Symbol(sig.SymbolFunction, helperSig), Flags: proto.FlagPrivate},
		NameType: b.NameType("helper", proto.NoIndex),
	}})
	return b.File()
}

// appFile declares: fun main() { 1.twice() }
func appFile() *proto.File {
	b := proto.NewBuilder("main.kt", "app")
	intType := b.ClassType(ir.BuiltinSignature("Int"), false)
	body := b.Body(proto.Body{Kind: proto.BodyStatements, Statements: []proto.Expression{
		{Kind: proto.ExprCall, Type: intType, Symbol: b.Symbol(sig.SymbolFunction, twiceSig), Args: []proto.Expression{
			{Kind: proto.ExprConst, Type: intType, Value: 1},
		}},
	}})
	b.TopLevel(mainSig, proto.Declaration{Kind: proto.DeclFunction, Function: &proto.Function{
		Base:     proto.Base{Symbol: b.Symbol(sig.SymbolFunction, mainSig)},
		NameType: b.NameType("main", proto.NoIndex),
		HasBody:  true,
		Body:     body,
	}})
	return b.File()
}

// nativeFile declares the C struct stat { size: Long } and the struct Real,
// which is forward-declared under cnames.structs.
func nativeFile() *proto.File {
	b := proto.NewBuilder("posix.kt", "platform.posix")
	longType := b.ClassType(ir.BuiltinSignature("Long"), false)
	stat := classRecord(b, statSig, "stat", proto.FlagExternal, proto.NoIndex,
		proto.Declaration{Kind: proto.DeclProperty, Property: &proto.Property{
			Base: proto.Base{Symbol: b.Symbol(sig.SymbolProperty, statSize)},
			Name: b.String("size"),
			Getter: &proto.Function{
				Base:     proto.Base{Symbol: b.Symbol(sig.SymbolFunction, sig.Public("platform.posix", "stat.size.<get-size>", 0, sig.FlagNativeInterop))},
				NameType: b.NameType("<get-size>", longType),
			},
		}})
	b.TopLevel(statSig, stat)
	b.TopLevel(realSig, classRecord(b, realSig, "Real", proto.FlagExternal, proto.NoIndex))
	return b.File()
}

type world struct {
	libs    []*klib.Library
	modules map[string]*descriptor.Module
	forward *descriptor.Module
}

// newWorld builds core, app and native plus any extra libraries.
func newWorld(t *testing.T, extra ...*klib.Library) *world {
	t.Helper()
	libs := []*klib.Library{
		klib.New(klib.Manifest{Name: "core", ABIVersion: "1.8.0"}, coreFile()),
		klib.New(klib.Manifest{Name: "app", ABIVersion: "1.8.0", Dependencies: []string{"core"}}, appFile()),
		klib.New(klib.Manifest{Name: "native", ABIVersion: "1.8.0", Interop: true}, nativeFile()),
	}
	libs = append(libs, extra...)
	modules, err := klib.BuildDescriptors(libs)
	if err != nil {
		t.Fatalf("BuildDescriptors: %v", err)
	}
	forward := descriptor.NewForwardModule()
	forward.Add(&descriptor.Descriptor{Kind: descriptor.KindClass, Signature: opaqueSig})
	forward.AddDependency(modules["native"])
	return &world{libs: libs, modules: modules, forward: forward}
}

func (w *world) lib(name string) *klib.Library {
	for _, lib := range w.libs {
		if lib.Name() == name {
			return lib
		}
	}
	return nil
}

// session creates a linker over every library of w. Caches, when given,
// are used lazily.
func (w *world) session(t *testing.T, caches *libcache.Registry, strategy deser.Strategy) *Linker {
	t.Helper()
	l, err := New(Config{
		CurrentModule: w.modules["app"],
		ForwardModule: w.forward,
		Caches:        caches,
		LazyCaches:    caches != nil,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, lib := range w.libs {
		if _, err := l.DeserializeModuleHeader(w.modules[lib.Name()], lib, strategy); err != nil {
			t.Fatalf("DeserializeModuleHeader(%s): %v", lib.Name(), err)
		}
	}
	return l
}

func getDeclaration[T ir.Declaration](t *testing.T, l *Linker, s sig.Signature, kind sig.SymbolKind) T {
	t.Helper()
	decl, err := l.GetDeclaration(s, kind)
	if err != nil {
		t.Fatalf("GetDeclaration(%v): %v", s, err)
	}
	out, ok := decl.(T)
	if !ok {
		t.Fatalf("GetDeclaration(%v) = %s", s, ir.Render(decl))
	}
	return out
}

// buildCoreCache links core completely in a fresh session and returns its
// library cache.
func buildCoreCache(t *testing.T, w *world) *libcache.Cache {
	t.Helper()
	l := w.session(t, nil, deser.StrategyReferenced)
	defer l.Close()
	c, err := l.BuildLibraryCache(w.modules["core"])
	if err != nil {
		t.Fatalf("BuildLibraryCache: %v", err)
	}
	return c
}

// cachedSession links with core served from c.
func cachedSession(t *testing.T, w *world, c *libcache.Cache) (*Linker, *CachedModuleDeserializer) {
	t.Helper()
	reg := libcache.NewRegistry(nil)
	reg.Register("core", c)
	l := w.session(t, reg, deser.StrategyReferenced)
	cached, err := l.CachedDeserializerFor(w.modules["core"])
	if err != nil {
		t.Fatalf("CachedDeserializerFor: %v", err)
	}
	return l, cached
}
