package klib

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"irlink/internal/descriptor"
	"irlink/internal/proto"
	"irlink/internal/sig"
)

func sampleFile() *proto.File {
	b := proto.NewBuilder("util.kt", "util")
	intType := b.ClassType(sig.Public("lang", "Int", 0, 0), false)
	twice := sig.Public("util", "twice", 3, 0)
	b.TopLevel(twice, proto.Declaration{Kind: proto.DeclFunction, Function: &proto.Function{
		Base:     proto.Base{Symbol: b.Symbol(sig.SymbolFunction, twice), Flags: proto.FlagInline},
		NameType: b.NameType("twice", intType),
		ValueParameters: []proto.ValueParameter{{
			Base:     proto.Base{Symbol: b.Symbol(sig.SymbolValueParameter, sig.ScopeLocal(1))},
			NameType: b.NameType("x", intType),
		}},
		HasBody: true,
		Body: b.Body(proto.Body{Kind: proto.BodyStatements, Statements: []proto.Expression{
			{Kind: proto.ExprReturn, Type: intType, Symbol: b.Symbol(sig.SymbolFunction, twice)},
		}}),
	}})
	secret := sig.FileLocal(twice, 1)
	b.TopLevel(secret, proto.Declaration{Kind: proto.DeclFunction, Function: &proto.Function{
		Base:     proto.Base{Symbol: b.Symbol(sig.SymbolFunction, secret), Flags: proto.FlagPrivate},
		NameType: b.NameType("secret", proto.NoIndex),
	}})
	return b.File()
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "util")
	lib := New(Manifest{Name: "util", ABIVersion: "1.8.0", Dependencies: []string{"stdlib"}}, sampleFile())
	if err := Save(dir, lib); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(lib.Manifest, got.Manifest); diff != "" {
		t.Fatalf("manifest mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(lib.Files, got.Files, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
	if got.Digest.IsZero() || got.Dir != dir {
		t.Fatalf("digest or dir not set: %+v", got)
	}
	again, err := Load(dir)
	if err != nil || again.Digest != got.Digest {
		t.Fatalf("digest not stable: %v", err)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	write("[other]\nname = \"x\"\n")
	if _, err := LoadManifest(dir); !errors.Is(err, ErrLibrarySectionMissing) {
		t.Fatalf("expected ErrLibrarySectionMissing, got %v", err)
	}
	write("[library]\nname = \"  \"\n")
	if _, err := LoadManifest(dir); !errors.Is(err, ErrLibraryNameMissing) {
		t.Fatalf("expected ErrLibraryNameMissing, got %v", err)
	}
	write("[library]\nname = \"c\"\nabi_version = \"one\"\n")
	if _, err := LoadManifest(dir); err == nil {
		t.Fatalf("expected abi version error")
	}
	write("[library]\nname = \"posix\"\ninterop = true\n")
	m, err := LoadManifest(dir)
	if err != nil || !m.Interop || m.Name != "posix" {
		t.Fatalf("LoadManifest = %+v, %v", m, err)
	}
}

func TestBuildDescriptors(t *testing.T) {
	stdlib := New(Manifest{Name: "stdlib"})
	util := New(Manifest{Name: "util", Dependencies: []string{"stdlib"}}, sampleFile())

	modules, err := BuildDescriptors([]*Library{stdlib, util})
	if err != nil {
		t.Fatalf("BuildDescriptors: %v", err)
	}
	m := modules["util"]
	d := m.Lookup(sig.Public("util", "twice", 3, 0))
	if d == nil || d.Kind != descriptor.KindFunction || !d.IsInline || d.Name != "twice" {
		t.Fatalf("descriptor = %+v", d)
	}
	if len(d.ValueParameters) != 1 || d.ReturnType.Classifier != sig.Public("lang", "Int", 0, 0) {
		t.Fatalf("signature not derived: %+v", d)
	}
	if len(m.Descriptors()) != 1 {
		t.Fatalf("private declarations must not get descriptors: %d", len(m.Descriptors()))
	}
	if deps := m.Dependencies(); len(deps) != 1 || deps[0] != modules["stdlib"] {
		t.Fatalf("dependencies = %v", deps)
	}

	broken := New(Manifest{Name: "app", Dependencies: []string{"missing"}})
	if _, err := BuildDescriptors([]*Library{broken}); err == nil {
		t.Fatalf("expected unknown dependency error")
	}
}
