package pages

import "context"

// Store defines the persistence operations the versioning service relies on.
// Lookups return nil without an error when nothing matches.
type Store interface {
	VersionLedger

	FindPage(ctx context.Context, id int64) (*Page, error)
	FindPageBySlug(ctx context.Context, slug string) (*Page, error)
	ListPages(ctx context.Context) ([]Page, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	// CreatePage assigns the id and timestamps. A taken slug yields ErrConflict.
	CreatePage(ctx context.Context, page *Page) error
	// ListVersions returns the page's versions ordered by number, highest first.
	ListVersions(ctx context.Context, pageID int64) ([]Version, error)
}

// LanguageRegistry resolves language codes, creating unknown ones on first use.
type LanguageRegistry interface {
	Resolve(ctx context.Context, code string) (Language, error)
}

// Identity names the actor bound to ctx.
type Identity interface {
	CurrentActorID(ctx context.Context) string
}
