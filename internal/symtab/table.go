// Package symtab is the session-wide arena of public symbol slots. A slot is
// allocated the first time a signature is referenced and stays reserved
// (unbound) until its declaration is materialized, which lets mutually
// recursive declarations refer to each other before either exists.
package symtab

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"irlink/internal/ir"
	"irlink/internal/sig"
)

var (
	// ErrNotPublic reports a non-public signature passed to the session table.
	ErrNotPublic = errors.New("signature is not public")
	// ErrKindMismatch reports a signature referenced with two symbol kinds.
	ErrKindMismatch = errors.New("symbol kind mismatch")
)

// SymbolID identifies a slot in the arena.
type SymbolID uint32

// NoSymbolID marks the absence of a slot.
const NoSymbolID SymbolID = 0

// IsValid reports whether the ID refers to an allocated slot.
func (id SymbolID) IsValid() bool { return id != NoSymbolID }

// Table maps public signatures to symbol slots.
type Table struct {
	slots []*ir.Symbol
	bySig map[sig.Signature]SymbolID
}

// New creates a table with an optional capacity hint.
func New(capacity uint32) *Table {
	if capacity == 0 {
		capacity = 64
	}
	return &Table{
		slots: make([]*ir.Symbol, 1, capacity+1), // index 0 reserved for NoSymbolID
		bySig: make(map[sig.Signature]SymbolID, capacity),
	}
}

func (t *Table) add(sym *ir.Symbol) SymbolID {
	value, err := safecast.Conv[uint32](len(t.slots))
	if err != nil {
		panic(fmt.Errorf("symbol arena overflow: %w", err))
	}
	id := SymbolID(value)
	t.slots = append(t.slots, sym)
	t.bySig[sym.Signature()] = id
	return id
}

// Reference returns the symbol for s, reserving a fresh unbound slot on
// first use. The same signature always yields the same symbol.
func (t *Table) Reference(s sig.Signature, kind sig.SymbolKind) (*ir.Symbol, error) {
	if !s.IsPublic() {
		return nil, fmt.Errorf("reference %v: %w", s, ErrNotPublic)
	}
	if id, ok := t.bySig[s]; ok {
		sym := t.slots[id]
		if sym.Kind() != kind {
			return nil, fmt.Errorf("%v referenced as %s, reserved as %s: %w", s, kind, sym.Kind(), ErrKindMismatch)
		}
		return sym, nil
	}
	sym := ir.NewSymbol(kind, s)
	t.add(sym)
	return sym, nil
}

// Adopt registers an existing symbol, e.g. a builtin.
func (t *Table) Adopt(sym *ir.Symbol) error {
	s := sym.Signature()
	if !s.IsPublic() {
		return fmt.Errorf("adopt %v: %w", s, ErrNotPublic)
	}
	if id, ok := t.bySig[s]; ok {
		if t.slots[id] == sym {
			return nil
		}
		return fmt.Errorf("adopt %v: %w", s, ir.ErrAlreadyBound)
	}
	t.add(sym)
	return nil
}

// Lookup returns the symbol for s without reserving.
func (t *Table) Lookup(s sig.Signature) (*ir.Symbol, bool) {
	id, ok := t.bySig[s]
	if !ok {
		return nil, false
	}
	return t.slots[id], true
}

// Get returns the symbol in slot id or nil.
func (t *Table) Get(id SymbolID) *ir.Symbol {
	if !id.IsValid() || int(id) >= len(t.slots) {
		return nil
	}
	return t.slots[id]
}

// Len reports the number of slots excluding the sentinel.
func (t *Table) Len() int { return len(t.slots) - 1 }

// Unbound lists reserved slots that never received an owner, in allocation order.
func (t *Table) Unbound() []*ir.Symbol {
	var out []*ir.Symbol
	for _, sym := range t.slots[1:] {
		if !sym.IsBound() {
			out = append(out, sym)
		}
	}
	return out
}
