package definition

import (
	"rubyscope/internal/core/errors"
)

// NestedStack scopes in-flight evaluation results: each frame collects the
// values produced while one syntax node's children are walked, so nested
// expressions cannot leak into sibling contexts.
type NestedStack struct {
	frames [][]*Definition
}

// AddFrame opens a new empty frame.
func (s *NestedStack) AddFrame() {
	s.frames = append(s.frames, nil)
}

// Push appends to the innermost frame. With no frame open it is a silent
// no-op: nothing is currently collecting, which is a valid state rather
// than an error.
func (s *NestedStack) Push(d *Definition) {
	if len(s.frames) == 0 {
		return
	}
	top := len(s.frames) - 1
	s.frames[top] = append(s.frames[top], d)
}

// Pop removes the innermost frame and returns its contents in push order.
// Popping with no frame open is an interpreter bug.
func (s *NestedStack) Pop() ([]*Definition, error) {
	if len(s.frames) == 0 {
		return nil, errors.Invariant("pop on empty nested stack")
	}
	top := len(s.frames) - 1
	frame := s.frames[top]
	s.frames = s.frames[:top]
	return frame, nil
}

// Empty reports whether no frame is open.
func (s *NestedStack) Empty() bool {
	return len(s.frames) == 0
}

// Depth returns the number of open frames.
func (s *NestedStack) Depth() int {
	return len(s.frames)
}
