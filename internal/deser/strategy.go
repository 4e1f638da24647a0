package deser

import (
	"fmt"
	"strings"
)

// Strategy selects how much of a library file is deserialized.
type Strategy uint8

const (
	// StrategyAll materializes every top-level declaration with bodies.
	StrategyAll Strategy = iota + 1
	// StrategyReferenced materializes reachable declarations with bodies.
	StrategyReferenced
	// StrategyInlineBodies materializes reachable declarations, keeping only
	// inline function bodies.
	StrategyInlineBodies
	// StrategyHeaders materializes reachable declarations without bodies.
	StrategyHeaders
)

// String returns the string representation of Strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyAll:
		return "all"
	case StrategyReferenced:
		return "referenced"
	case StrategyInlineBodies:
		return "inline-bodies"
	case StrategyHeaders:
		return "headers"
	default:
		return "unknown"
	}
}

// ParseStrategy converts a string to Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "all":
		return StrategyAll, nil
	case "", "referenced":
		return StrategyReferenced, nil
	case "inline-bodies":
		return StrategyInlineBodies, nil
	case "headers":
		return StrategyHeaders, nil
	default:
		return 0, fmt.Errorf("invalid deserialization strategy: %q (expected: all|referenced|inline-bodies|headers)", s)
	}
}

// Eager reports whether every top-level declaration is materialized up front.
func (s Strategy) Eager() bool { return s == StrategyAll }

// Options returns the declaration deserializer options for s.
func (s Strategy) Options() Options {
	switch s {
	case StrategyAll, StrategyReferenced:
		return Options{Bodies: true, InlineBodies: true}
	case StrategyInlineBodies:
		return Options{InlineBodies: true}
	default:
		return Options{}
	}
}
