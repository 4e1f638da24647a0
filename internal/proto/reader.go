package proto

import (
	"errors"
	"fmt"

	"irlink/internal/sig"
)

// ErrBadIndex reports a table index outside its table.
var ErrBadIndex = errors.New("table index out of range")

// FileReader gives random access to the tables of one serialized file.
type FileReader interface {
	Declaration(index int32) (*Declaration, error)
	DeclarationCount() int
	DeclarationID(index int32) (int32, error)
	String(index int32) (string, error)
	Signature(index int32) (sig.Signature, error)
	Type(index int32) (*Type, error)
	Body(index int32) (*Body, error)
}

// Reader is the in-memory FileReader over a decoded File.
type Reader struct {
	File *File
}

// NewReader wraps f.
func NewReader(f *File) *Reader { return &Reader{File: f} }

func at[T any](table []T, index int32, what string) (*T, error) {
	if index < 0 || int(index) >= len(table) {
		return nil, fmt.Errorf("%s #%d (table size %d): %w", what, index, len(table), ErrBadIndex)
	}
	return &table[index], nil
}

// Declaration returns the top-level declaration at index.
func (r *Reader) Declaration(index int32) (*Declaration, error) {
	return at(r.File.Declarations, index, "declaration")
}

// DeclarationCount returns the number of top-level declarations.
func (r *Reader) DeclarationCount() int { return len(r.File.Declarations) }

// DeclarationID returns the signature id of the top-level declaration at index.
func (r *Reader) DeclarationID(index int32) (int32, error) {
	id, err := at(r.File.DeclarationIDs, index, "declaration id")
	if err != nil {
		return 0, err
	}
	return *id, nil
}

// String returns a string-table entry.
func (r *Reader) String(index int32) (string, error) {
	s, err := at(r.File.Strings, index, "string")
	if err != nil {
		return "", err
	}
	return *s, nil
}

// Signature returns a signature-table entry.
func (r *Reader) Signature(index int32) (sig.Signature, error) {
	s, err := at(r.File.Signatures, index, "signature")
	if err != nil {
		return sig.Signature{}, err
	}
	return *s, nil
}

// Type returns a type-table entry.
func (r *Reader) Type(index int32) (*Type, error) { return at(r.File.Types, index, "type") }

// Body returns a body-table entry.
func (r *Reader) Body(index int32) (*Body, error) { return at(r.File.Bodies, index, "body") }
