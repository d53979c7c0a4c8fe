package liegroup

import "github.com/motionkit/kinet/debug"

// Element is a point of a Space together with the space it belongs to.
// The coordinate slice is owned by the element unless constructed with Wrap.
type Element struct {
	space *Space
	q     []float64
}

// NewElement returns the neutral element of the space.
func NewElement(s *Space) *Element {
	return Wrap(s, s.Neutral())
}

// Wrap returns an element viewing q, without copying. Mutations of the element
// are visible through q and vice versa.
func Wrap(s *Space, q []float64) *Element {
	debug.Assert(len(q) == s.Size(), "liegroup: element size %d, expected %d", len(q), s.Size())
	return &Element{space: s, q: q}
}

// Space returns the space the element belongs to.
func (e *Element) Space() *Space { return e.space }

// Coordinates returns the backing coordinate slice.
func (e *Element) Coordinates() []float64 { return e.q }

// Set copies q into the element.
func (e *Element) Set(q []float64) {
	debug.Assert(len(q) == e.space.Size(), "liegroup: element size %d, expected %d", len(q), e.space.Size())
	copy(e.q, q)
}

// SetNeutral resets the element to the identity of its space.
func (e *Element) SetNeutral() {
	copy(e.q, e.space.Neutral())
}

// Integrate applies the retraction in place: e ← e ⊕ v.
func (e *Element) Integrate(v []float64) {
	e.space.Integrate(e.q, v, e.q)
}

// Minus computes out = e ⊖ o in the tangent space.
func (e *Element) Minus(o *Element, out []float64) {
	e.space.Difference(e.q, o.q, out)
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() *Element {
	q := make([]float64, len(e.q))
	copy(q, e.q)
	return Wrap(e.space, q)
}
