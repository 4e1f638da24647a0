package xref

import (
	"fmt"

	"irlink/internal/binstream"
)

// Field flag bits.
const (
	FlagIsConst          int32 = 1 << 0
	FlagConstInitializer int32 = 1 << 1
)

// FieldInfo describes one field of a cached class layout.
//
// BinaryType is recorded in case the field type can't be deserialized (for
// example a private value class); the field is then typed with the primitive
// the class erases to.
type FieldInfo struct {
	Name       int32
	BinaryType int32
	Type       int32
	Flags      int32
}

// IsConst reports FlagIsConst.
func (f FieldInfo) IsConst() bool { return f.Flags&FlagIsConst != 0 }

// HasConstInitializer reports FlagConstInitializer.
func (f FieldInfo) HasConstInitializer() bool { return f.Flags&FlagConstInitializer != 0 }

// ClassFields is the recorded field layout of one class.
type ClassFields struct {
	File              int32
	ClassSignature    int32
	TypeParameterSigs []int32
	Fields            []FieldInfo
}

const (
	classFieldsScalars = 4 // file, class signature + 2 length prefixes
	fieldScalars       = 4
)

// SerializeClassFields encodes records back to back.
func SerializeClassFields(classes []ClassFields) ([]byte, error) {
	words := 0
	for i := range classes {
		words += classFieldsScalars + len(classes[i].TypeParameterSigs) + fieldScalars*len(classes[i].Fields)
	}
	w := writer{s: binstream.Sized(words)}
	for i := range classes {
		c := &classes[i]
		w.int(c.File)
		w.int(c.ClassSignature)
		w.ints(c.TypeParameterSigs)
		w.count(len(c.Fields))
		for _, f := range c.Fields {
			w.int(f.Name)
			w.int(f.BinaryType)
			w.int(f.Type)
			w.int(f.Flags)
		}
	}
	if w.err != nil {
		return nil, fmt.Errorf("serialize class fields: %w", w.err)
	}
	return w.s.Bytes(), nil
}

// DeserializeClassFields decodes every record in data.
func DeserializeClassFields(data []byte) ([]ClassFields, error) {
	var result []ClassFields
	r := reader{s: binstream.New(data)}
	for r.s.HasData() {
		c := ClassFields{
			File:           r.int(),
			ClassSignature: r.int(),
		}
		c.TypeParameterSigs = r.ints()
		n := r.count()
		c.Fields = make([]FieldInfo, n)
		for i := range c.Fields {
			c.Fields[i] = FieldInfo{
				Name:       r.int(),
				BinaryType: r.int(),
				Type:       r.int(),
				Flags:      r.int(),
			}
		}
		if r.err != nil {
			return nil, fmt.Errorf("deserialize class fields #%d: %w", len(result), r.err)
		}
		result = append(result, c)
	}
	return result, nil
}
