package domain

// PositionRef is an opaque, reflow-stable reference to a location inside a
// document's logical text. Refs are comparable for equality only; mapping a
// ref to a document order or read percentage requires the reading surface
// that minted it.
type PositionRef string

// NoPosition is the zero ref, meaning "start of the document".
const NoPosition PositionRef = ""

// IsZero reports whether the ref carries no position.
func (p PositionRef) IsZero() bool {
	return p == NoPosition
}
