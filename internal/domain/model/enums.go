package model

// EntryStatus represents where a schedule entry sits in the club's queue.
type EntryStatus string

const (
	EntryStatusScheduled EntryStatus = "scheduled"
	EntryStatusWatched   EntryStatus = "watched"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s EntryStatus) Valid() bool {
	switch s {
	case EntryStatusScheduled, EntryStatusWatched, EntryStatusCancelled:
		return true
	}
	return false
}

// Submittable reports whether s may be supplied by a client when adding a movie.
// Cancelled entries only arise from later moderation, never at creation.
func (s EntryStatus) Submittable() bool {
	return s == EntryStatusScheduled || s == EntryStatusWatched
}
