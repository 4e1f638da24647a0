package fuzztests

import (
	"bytes"
	"testing"

	"irlink/internal/xref"
)

// FuzzInlineFunctionReferences checks that any decodable input re-encodes
// to the same bytes.
func FuzzInlineFunctionReferences(f *testing.F) {
	addWordSeeds(f, inlineSeeds())
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampSeed(input)
		refs, err := xref.DeserializeInlineFunctionReferences(input)
		if err != nil {
			return
		}
		again, err := xref.SerializeInlineFunctionReferences(refs)
		if err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		if !bytes.Equal(input, again) {
			t.Fatalf("round trip changed %d bytes into %d", len(input), len(again))
		}
	})
}

func FuzzClassFields(f *testing.F) {
	addWordSeeds(f, fieldSeeds())
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampSeed(input)
		classes, err := xref.DeserializeClassFields(input)
		if err != nil {
			return
		}
		again, err := xref.SerializeClassFields(classes)
		if err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		if !bytes.Equal(input, again) {
			t.Fatalf("round trip changed %d bytes into %d", len(input), len(again))
		}
	})
}
