// Package labels maps physical controls to dense training labels.
//
// A Class is the id of a physical "add example" control (1..4 on the demo
// board). Training backends want dense labels starting at 0, assigned in the
// order controls are first used; Registry keeps that bijection.
package labels

import "fmt"

// Class identifies a physical add-example control. None means "no prediction".
type Class int

// None is the absence of a class. Control index 0 is the clear button, so no
// add-example control ever maps to it.
const None Class = 0

var classNames = []string{"--", "One", "Two", "Three", "Four"}

// String returns the display name used in the status line.
func (c Class) String() string {
	if c >= 0 && int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("Class%d", int(c))
}

// Valid reports whether c is an actual control rather than None.
func (c Class) Valid() bool {
	return c > None
}

// LED returns the indicator index for c, or -1 for None.
func (c Class) LED() int {
	if !c.Valid() {
		return -1
	}
	return int(c)
}

// Registry is a bijection between controls and internal labels 0..N-1.
// Labels are handed out in order of first use and never reassigned until Reset.
type Registry struct {
	toInternal map[Class]int
	toClass    []Class
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{toInternal: make(map[Class]int)}
}

// Assign returns the internal label of c, creating it on first use.
func (r *Registry) Assign(c Class) int {
	if id, ok := r.toInternal[c]; ok {
		return id
	}
	id := len(r.toClass)
	r.toInternal[c] = id
	r.toClass = append(r.toClass, c)
	return id
}

// Internal returns the internal label of c if one was assigned.
func (r *Registry) Internal(c Class) (int, bool) {
	id, ok := r.toInternal[c]
	return id, ok
}

// Class returns the control mapped to internal label id.
func (r *Registry) Class(id int) (Class, bool) {
	if id < 0 || id >= len(r.toClass) {
		return None, false
	}
	return r.toClass[id], true
}

// Len returns the number of assigned labels.
func (r *Registry) Len() int {
	return len(r.toClass)
}

// Reset forgets every mapping.
func (r *Registry) Reset() {
	r.toInternal = make(map[Class]int)
	r.toClass = nil
}

// Mapping returns internal label -> control for persistence.
func (r *Registry) Mapping() map[int]Class {
	out := make(map[int]Class, len(r.toClass))
	for id, c := range r.toClass {
		out[id] = c
	}
	return out
}

// Restore replaces the registry contents with a previously saved mapping.
// The mapping must cover 0..len-1 without gaps and must not repeat a control.
func (r *Registry) Restore(m map[int]Class) error {
	toClass := make([]Class, len(m))
	toInternal := make(map[Class]int, len(m))
	for id, c := range m {
		if id < 0 || id >= len(m) {
			return fmt.Errorf("labels: internal label %d out of range for %d labels", id, len(m))
		}
		if _, dup := toInternal[c]; dup {
			return fmt.Errorf("labels: control %d mapped twice", int(c))
		}
		toClass[id] = c
		toInternal[c] = id
	}
	r.toClass = toClass
	r.toInternal = toInternal
	return nil
}
