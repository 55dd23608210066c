// Package entity defines the entities and errors used in the application.
// It includes the URLEntry struct, which represents a shortened link along with
// its visit statistics, and the sentinel errors shared by every layer.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrShortCodeExists is returned when attempting to store an entry under a short code that is already taken.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when an entry with the specified short code cannot be found.
	ErrURLNotFound = errors.New("url not found")
	// ErrCodeSpaceExhausted is returned when no free short code could be generated within the attempt limit.
	ErrCodeSpaceExhausted = errors.New("short code space exhausted")
	// ErrStoreUnreadable is returned when a persisted snapshot exists but cannot be read or decoded.
	ErrStoreUnreadable = errors.New("store unreadable")
	// ErrStoreWriteFailed is returned when a snapshot could not be written to the store.
	ErrStoreWriteFailed = errors.New("store write failed")
)

// URLEntry represents a shortened URL.
type URLEntry struct {
	ShortCode  string     // ShortCode is the public path segment that resolves to LongURL.
	LongURL    string     // LongURL is the redirect target.
	Note       string     // Note is a free-text annotation set at creation.
	VisitCount uint64     // VisitCount is the number of successful redirects.
	LastVisit  *time.Time // LastVisit is the time of the latest redirect, nil until the first one.
}

// Clone returns a deep copy of the entry so callers never share the LastVisit pointer.
func (e URLEntry) Clone() URLEntry {
	if e.LastVisit != nil {
		t := *e.LastVisit
		e.LastVisit = &t
	}
	return e
}
