package pages

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// PermissionIDPrefix prefixes every page resource id handed to the permission checker.
const PermissionIDPrefix = "cms:page:"

// Status is the lifecycle state recorded on a version.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// ParseStatus maps a user supplied value onto a Status, ignoring case and surrounding whitespace.
func ParseStatus(value string) (Status, error) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case StatusDraft, StatusPublished, StatusArchived:
		return normalized, nil
	default:
		return "", eris.Wrapf(ErrValidation, "unknown status: %q", value)
	}
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// Page is a permanently retained content unit identified by its slug.
type Page struct {
	ID        int64
	Slug      string
	CreatedAt time.Time
	// UpdatedAt tracks the creation time of the latest version.
	UpdatedAt time.Time
}

// PermissionID returns the resource id used for permission checks on the page.
func (p Page) PermissionID() string {
	return PermissionIDPrefix + strconv.FormatInt(p.ID, 10)
}

// Version is an immutable, numbered snapshot of a page.
type Version struct {
	PageID       int64
	Number       int
	CreatedAt    time.Time
	CreatedBy    string
	Status       Status
	Comment      string
	Translations []Translation
}

// Translation returns the first translation for the language code, if any.
func (v Version) Translation(code string) (Translation, bool) {
	canonical := CanonicalLanguageCode(code)
	for _, translation := range v.Translations {
		if translation.Language.Code == canonical {
			return translation, true
		}
	}
	return Translation{}, false
}

// Translation is one language's title and content within a version.
type Translation struct {
	Language Language
	Title    string
	Content  string
}

// Language tags translations.
type Language struct {
	ID    int64
	Code  string
	Label string
}
