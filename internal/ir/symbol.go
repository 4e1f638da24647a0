package ir

import (
	"errors"
	"fmt"

	"irlink/internal/sig"
)

// ErrAlreadyBound reports an attempt to bind a symbol that already has an owner.
var ErrAlreadyBound = errors.New("symbol already bound")

// Symbol is a stable handle for a declaration. It may exist before its owner
// is materialized (reserved) and is bound exactly once.
type Symbol struct {
	signature sig.Signature
	kind      sig.SymbolKind
	owner     Declaration
}

// NewSymbol creates an unbound symbol.
func NewSymbol(kind sig.SymbolKind, s sig.Signature) *Symbol {
	return &Symbol{signature: s, kind: kind}
}

// Signature returns the symbol's signature (zero for anonymous local symbols).
func (s *Symbol) Signature() sig.Signature { return s.signature }

// Kind returns the symbol kind.
func (s *Symbol) Kind() sig.SymbolKind { return s.kind }

// Owner returns the bound declaration or nil.
func (s *Symbol) Owner() Declaration { return s.owner }

// IsBound reports whether the symbol has an owner.
func (s *Symbol) IsBound() bool { return s.owner != nil }

// Bind attaches owner. Binding the same owner twice is a no-op.
func (s *Symbol) Bind(owner Declaration) error {
	if s.owner != nil {
		if s.owner == owner {
			return nil
		}
		return fmt.Errorf("%s %v: %w", s.kind, s.signature, ErrAlreadyBound)
	}
	s.owner = owner
	return nil
}

func (s *Symbol) String() string {
	state := "unbound"
	if s.owner != nil {
		state = "bound"
	}
	return fmt.Sprintf("%s %v (%s)", s.kind, s.signature, state)
}
