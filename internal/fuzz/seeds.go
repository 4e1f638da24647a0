package fuzztests

import (
	"testing"

	"irlink/internal/xref"
)

const maxFuzzInput = 64 << 10

func clampSeed(data []byte) []byte {
	if len(data) > maxFuzzInput {
		return append([]byte(nil), data[:maxFuzzInput]...)
	}
	return append([]byte(nil), data...)
}

func inlineSeeds() [][]byte {
	sets := [][]xref.InlineFunctionReference{
		nil,
		{{File: 0, FunctionSignature: 3, Body: 1, StartOffset: 10, EndOffset: 42,
			ExtensionReceiverSig: xref.InvalidIndex, DispatchReceiverSig: 6,
			ValueParameterSigs: []int32{4, 5}, TypeParameterSigs: []int32{1, 2, 3}, DefaultValues: []int32{0, xref.InvalidIndex}}},
		{
			{File: 1, FunctionSignature: 0, Body: xref.InvalidIndex, ExtensionReceiverSig: 7, DispatchReceiverSig: xref.InvalidIndex},
			{File: 2, FunctionSignature: 9, Body: 2, ValueParameterSigs: []int32{8}, DefaultValues: []int32{3}},
		},
	}
	var out [][]byte
	for _, set := range sets {
		data, err := xref.SerializeInlineFunctionReferences(set)
		if err != nil {
			panic(err)
		}
		out = append(out, data)
	}
	return out
}

func fieldSeeds() [][]byte {
	sets := [][]xref.ClassFields{
		nil,
		{{File: 0, ClassSignature: 2, TypeParameterSigs: []int32{1}, Fields: []xref.FieldInfo{
			{Name: 3, BinaryType: 3, Type: 0, Flags: xref.FlagIsConst | xref.FlagConstInitializer},
			{Name: 4, BinaryType: xref.InvalidIndex, Type: xref.InvalidIndex},
		}}},
	}
	var out [][]byte
	for _, set := range sets {
		data, err := xref.SerializeClassFields(set)
		if err != nil {
			panic(err)
		}
		out = append(out, data)
	}
	return out
}

func addWordSeeds(f *testing.F, seeds [][]byte) {
	for _, s := range seeds {
		f.Add(clampSeed(s))
	}
	f.Add([]byte{})
	f.Add([]byte{1, 2, 3})
	f.Add([]byte{0, 0, 0, 0, 0xff, 0xff, 0xff, 0x7f})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff})
}
