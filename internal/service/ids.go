package service

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDAllocator hands out identifiers for new entities
type IDAllocator interface {
	NextID() string
}

// UUIDAllocator allocates random v4 UUIDs
type UUIDAllocator struct{}

// NextID implements IDAllocator
func (UUIDAllocator) NextID() string {
	return uuid.NewString()
}

// SequenceAllocator allocates "<prefix>-<n>" ids from a counter starting at 1
type SequenceAllocator struct {
	prefix string
	next   atomic.Int64
}

// NewSequenceAllocator creates a sequence allocator
func NewSequenceAllocator(prefix string) *SequenceAllocator {
	return &SequenceAllocator{prefix: prefix}
}

// NextID implements IDAllocator
func (a *SequenceAllocator) NextID() string {
	return fmt.Sprintf("%s-%d", a.prefix, a.next.Add(1))
}
