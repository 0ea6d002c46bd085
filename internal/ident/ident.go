// Package ident provides identifier generation for lists and items.
package ident

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator hands out fresh, never reused identifiers.
type Generator interface {
	Next() string
}

// UUID generates random version 4 UUIDs.
type UUID struct{}

func (UUID) Next() string {
	return uuid.NewString()
}

// Sequence generates predictable ids ("item-1", "item-2", ...). Safe for
// concurrent use. Meant for tests and fixtures.
type Sequence struct {
	prefix string
	n      atomic.Int64
}

// NewSequence returns a Sequence whose ids start with prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) Next() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.n.Add(1))
}

// Func adapts an ordinary function to a Generator.
type Func func() string

func (f Func) Next() string {
	return f()
}
