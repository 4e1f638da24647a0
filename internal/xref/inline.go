// Package xref implements the compact binary formats that persist
// cross-references between compilation runs: inline function body references
// and class field layouts of cached libraries.
//
// Both formats are sequences of 32-bit little-endian words with no record
// separators and no record count; a reader stops when the buffer is exhausted.
// Field order is part of the compatibility contract.
package xref

import (
	"fmt"

	"fortio.org/safecast"

	"irlink/internal/binstream"
)

// InvalidIndex marks an absent signature, body or type reference.
const InvalidIndex int32 = -1

// InlineFunctionReference locates the body of one inline function inside a
// cached library together with the signature ids needed to rebind its
// parameters to live declarations.
type InlineFunctionReference struct {
	File                 int32
	FunctionSignature    int32
	Body                 int32
	StartOffset          int32
	EndOffset            int32
	ExtensionReceiverSig int32
	DispatchReceiverSig  int32
	ValueParameterSigs   []int32
	TypeParameterSigs    []int32
	DefaultValues        []int32
}

const inlineReferenceScalars = 10 // 7 fixed fields + 3 length prefixes

// SerializeInlineFunctionReferences encodes refs back to back.
func SerializeInlineFunctionReferences(refs []InlineFunctionReference) ([]byte, error) {
	words := 0
	for i := range refs {
		r := &refs[i]
		words += inlineReferenceScalars + len(r.ValueParameterSigs) + len(r.TypeParameterSigs) + len(r.DefaultValues)
	}
	w := writer{s: binstream.Sized(words)}
	for i := range refs {
		r := &refs[i]
		w.int(r.File)
		w.int(r.FunctionSignature)
		w.int(r.Body)
		w.int(r.StartOffset)
		w.int(r.EndOffset)
		w.int(r.ExtensionReceiverSig)
		w.int(r.DispatchReceiverSig)
		w.ints(r.ValueParameterSigs)
		w.ints(r.TypeParameterSigs)
		w.ints(r.DefaultValues)
	}
	if w.err != nil {
		return nil, fmt.Errorf("serialize inline function references: %w", w.err)
	}
	return w.s.Bytes(), nil
}

// DeserializeInlineFunctionReferences decodes every record in data.
func DeserializeInlineFunctionReferences(data []byte) ([]InlineFunctionReference, error) {
	var result []InlineFunctionReference
	r := reader{s: binstream.New(data)}
	for r.s.HasData() {
		ref := InlineFunctionReference{
			File:                 r.int(),
			FunctionSignature:    r.int(),
			Body:                 r.int(),
			StartOffset:          r.int(),
			EndOffset:            r.int(),
			ExtensionReceiverSig: r.int(),
			DispatchReceiverSig:  r.int(),
		}
		ref.ValueParameterSigs = r.ints()
		ref.TypeParameterSigs = r.ints()
		ref.DefaultValues = r.ints()
		if r.err != nil {
			return nil, fmt.Errorf("deserialize inline function reference #%d: %w", len(result), r.err)
		}
		result = append(result, ref)
	}
	return result, nil
}

// writer and reader latch the first stream error so record layouts read as
// straight-line code.
type writer struct {
	s   *binstream.Stream
	err error
}

func (w *writer) int(v int32) {
	if w.err != nil {
		return
	}
	w.err = w.s.WriteInt(v)
}

func (w *writer) count(n int) {
	v, err := safecast.Conv[int32](n)
	if err != nil {
		if w.err == nil {
			w.err = fmt.Errorf("array length overflow: %w", err)
		}
		return
	}
	w.int(v)
}

func (w *writer) ints(vs []int32) {
	w.count(len(vs))
	for _, v := range vs {
		w.int(v)
	}
}

type reader struct {
	s   *binstream.Stream
	err error
}

func (r *reader) int() int32 {
	if r.err != nil {
		return 0
	}
	v, err := r.s.ReadInt()
	r.err = err
	return v
}

func (r *reader) count() int {
	n := r.int()
	if r.err != nil {
		return 0
	}
	if n < 0 {
		r.err = fmt.Errorf("negative array length %d at offset %d", n, r.s.Offset()-binstream.IntSize)
		return 0
	}
	if int(n) > r.s.Remaining()/binstream.IntSize {
		r.err = fmt.Errorf("array length %d exceeds remaining data at offset %d: %w", n, r.s.Offset(), binstream.ErrOutOfBounds)
		return 0
	}
	return int(n)
}

func (r *reader) ints() []int32 {
	n := r.count()
	if r.err != nil {
		return nil
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = r.int()
	}
	return out
}
