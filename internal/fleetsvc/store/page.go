package store

// Page is a one-based page window. Ordering is always created_at
// descending, applied identically to the windowed query and ignored by
// the count. The count and the data fetch are two round trips on the
// plain path; a record inserted between them may show up in one and not
// the other. That race is accepted, not worked around.
type Page struct {
	Number int
	Size   int
}

// Window clamps the page number and converts to skip/limit. A size of
// zero (or less) yields limit 0, which callers treat as "count only" —
// it must never be handed to mongo, where limit 0 means unbounded.
func (p Page) Window() (skip, limit int64) {
	n := p.Number
	if n < 1 {
		n = 1
	}
	if p.Size <= 0 {
		return 0, 0
	}
	return int64(n-1) * int64(p.Size), int64(p.Size)
}
