package transfer

import (
	"context"
	"time"

	domainpages "cmspages/app/internal/domain/pages"
)

// FormatVersion identifies the layout of export documents.
const FormatVersion = "1"

// Document is the top-level structure of an export file.
type Document struct {
	Format     string       `json:"format"`
	ExportedAt time.Time    `json:"exported_at"`
	Pages      []PageExport `json:"pages"`
}

// PageExport is a page with its complete history.
type PageExport struct {
	Slug      string          `json:"slug"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Versions  []VersionExport `json:"versions"`
}

// VersionExport is one numbered version.
type VersionExport struct {
	VersionNumber int                 `json:"version_number"`
	Status        string              `json:"status"`
	Comment       string              `json:"comment,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	CreatedBy     string              `json:"created_by"`
	Translations  []TranslationExport `json:"translations"`
}

// TranslationExport is one language's content within a version.
type TranslationExport struct {
	Language string `json:"language"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

// Store is the administrative slice of the page store used by transfers.
type Store interface {
	ListPagesBySlugPrefix(ctx context.Context, prefix string) ([]domainpages.Page, error)
	ListVersions(ctx context.Context, pageID int64) ([]domainpages.Version, error)
	ReplacePage(ctx context.Context, page *domainpages.Page, versions []domainpages.Version) (bool, error)
	DeletePagesBySlugPrefix(ctx context.Context, prefix string) (int, error)
}
