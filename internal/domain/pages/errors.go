package pages

import "github.com/rotisserie/eris"

// Error kinds surfaced by the page versioning service. Match them with eris.Is.
var (
	// ErrNotFound indicates a write targeted a page that does not exist.
	ErrNotFound = eris.New("cms page not found")
	// ErrForbidden indicates the actor lacks the capability for a write.
	ErrForbidden = eris.New("cms operation forbidden")
	// ErrConflict indicates the slug is already taken.
	ErrConflict = eris.New("cms slug already in use")
	// ErrValidation indicates malformed input.
	ErrValidation = eris.New("cms input invalid")
	// ErrConcurrency indicates version numbering kept colliding with concurrent writers.
	ErrConcurrency = eris.New("cms version numbering contention")
	// ErrVersionConflict is returned by stores when (page, version number) already exists.
	ErrVersionConflict = eris.New("cms version number already taken")
)
