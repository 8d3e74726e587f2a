package directory

import (
	"sync/atomic"
	"time"
)

// Entry is one selectable delivery channel or mention role.
type Entry struct {
	ID   string
	Name string // "Guild - name"
}

// Snapshot is an immutable view built by a single refresh cycle.
// Callers must not modify the slices.
type Snapshot struct {
	Generation uint64
	BuiltAt    time.Time
	Channels   []Entry
	Roles      []Entry
}

// Channel looks up a channel entry by id.
func (s *Snapshot) Channel(id string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	for _, e := range s.Channels {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Cache publishes the current snapshot. Only the refresher writes; any number
// of readers may Load concurrently without locks.
type Cache struct {
	cur atomic.Pointer[Snapshot]
}

var empty = &Snapshot{}

func NewCache() *Cache { return &Cache{} }

// Load returns the current snapshot, never nil.
func (c *Cache) Load() *Snapshot {
	if s := c.cur.Load(); s != nil {
		return s
	}
	return empty
}

func (c *Cache) publish(s *Snapshot) {
	c.cur.Store(s)
}
