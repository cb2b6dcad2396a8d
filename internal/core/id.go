// Package core provides the identity primitives shared by every
// subsystem: time-ordered ids, content hashing, short-id resolution,
// and mention parsing.
package core

import (
	"github.com/google/uuid"
)

// NewID returns a UUIDv7 string: monotonic and sortable by creation
// time at millisecond resolution, per the ordering guarantee every
// store table relies on for insertion order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the global random source errors;
		// fall back to a random v4 rather than panic a running agent.
		return uuid.New().String()
	}
	return id.String()
}

// ShortDisplayLen is the number of trailing characters shown to
// humans for any full id (ids, hashes).
const ShortDisplayLen = 8

// Short returns the trailing ShortDisplayLen characters of id, for
// display only — never used as a storage key.
func Short(id string) string {
	if len(id) <= ShortDisplayLen {
		return id
	}
	return id[len(id)-ShortDisplayLen:]
}
