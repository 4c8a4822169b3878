// Package pagination provides the offset/limit page window used by listing
// queries.
package pagination

const (
	// DefaultLimit applies when the caller does not bound the page.
	DefaultLimit = 50
	// MaxLimit is the server-enforced ceiling on page size.
	MaxLimit = 500
)

// Window bounds a listing query. Stores fetch Limit+1 rows and report the
// probe row as the "more" flag without returning it.
type Window struct {
	Offset int
	Limit  int
}

// NewWindow normalizes raw offset/limit values into a valid window.
// Negative offsets collapse to zero; a non-positive limit falls back to the
// default and anything above the ceiling is clamped.
func NewWindow(offset, limit int) Window {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Window{Offset: offset, Limit: limit}
}
