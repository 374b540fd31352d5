package action

import (
	"errors"
	"fmt"
	"math"
)

// Tag identifies one queued action for cancellation and status queries.
type Tag uint32

const (
	// InvalidTag is never assigned.
	InvalidTag Tag = 0
	// FirstEngineTag is the first automatically assigned tag. Tags below it
	// are reserved for callers.
	FirstEngineTag Tag = 1 << 24
	// LastEngineTag is the last automatically assigned tag before wrapping.
	LastEngineTag Tag = math.MaxUint32
)

// ErrBadTag is returned when a custom tag is invalid or already in use.
var ErrBadTag = errors.New("bad action tag")

// TagAllocator hands out unique tags. It is not safe for concurrent use;
// it lives alongside the queues that own the tagged actions.
type TagAllocator struct {
	next  Tag
	inUse map[Tag]struct{}
}

// NewTagAllocator creates an allocator with no tags in use.
func NewTagAllocator() *TagAllocator {
	return &TagAllocator{
		next:  FirstEngineTag,
		inUse: make(map[Tag]struct{}),
	}
}

// Next returns the next free engine tag, wrapping around at LastEngineTag.
func (a *TagAllocator) Next() Tag {
	for {
		t := a.next
		if a.next == LastEngineTag {
			a.next = FirstEngineTag
		} else {
			a.next++
		}
		if _, used := a.inUse[t]; !used {
			a.inUse[t] = struct{}{}
			return t
		}
	}
}

// Reserve claims a caller-chosen tag.
func (a *TagAllocator) Reserve(t Tag) error {
	if t == InvalidTag || t >= FirstEngineTag {
		return fmt.Errorf("%w: %d is outside the custom range", ErrBadTag, t)
	}
	if _, used := a.inUse[t]; used {
		return fmt.Errorf("%w: %d is already in use", ErrBadTag, t)
	}
	a.inUse[t] = struct{}{}
	return nil
}

// Release returns a tag to the pool.
func (a *TagAllocator) Release(t Tag) {
	delete(a.inUse, t)
}

// InUse reports whether t is currently assigned.
func (a *TagAllocator) InUse(t Tag) bool {
	_, used := a.inUse[t]
	return used
}
