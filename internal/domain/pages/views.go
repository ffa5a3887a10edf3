package pages

import "time"

// VersionSummary is the compact view of a page's current version.
type VersionSummary struct {
	Number    int
	Status    Status
	CreatedAt time.Time
}

// PageSummary is returned by page listings.
type PageSummary struct {
	ID             int64
	Slug           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CurrentVersion *VersionSummary
}

// VersionInfo describes a version without its content.
type VersionInfo struct {
	Number    int
	Status    Status
	Comment   string
	CreatedAt time.Time
	CreatedBy string
}

// PageDetail is a page with the versions the actor may see.
type PageDetail struct {
	ID        int64
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Versions  []VersionInfo
}

// TranslationView is one translation inside a VersionDetail.
type TranslationView struct {
	Language string
	Title    string
	Content  string
}

// VersionDetail is a version including every translation.
type VersionDetail struct {
	VersionInfo
	Translations []TranslationView
}

// TranslationDetail is a single translation of a version.
type TranslationDetail struct {
	VersionNumber int
	Status        Status
	Language      string
	Title         string
	Content       string
}

func toVersionInfo(version Version) VersionInfo {
	return VersionInfo{
		Number:    version.Number,
		Status:    version.Status,
		Comment:   version.Comment,
		CreatedAt: version.CreatedAt,
		CreatedBy: version.CreatedBy,
	}
}

func toVersionDetail(version Version) *VersionDetail {
	translations := make([]TranslationView, 0, len(version.Translations))
	for _, translation := range version.Translations {
		translations = append(translations, TranslationView{
			Language: translation.Language.Code,
			Title:    translation.Title,
			Content:  translation.Content,
		})
	}

	return &VersionDetail{
		VersionInfo:  toVersionInfo(version),
		Translations: translations,
	}
}

func toTranslationDetail(version Version, translation Translation) *TranslationDetail {
	return &TranslationDetail{
		VersionNumber: version.Number,
		Status:        version.Status,
		Language:      translation.Language.Code,
		Title:         translation.Title,
		Content:       translation.Content,
	}
}
