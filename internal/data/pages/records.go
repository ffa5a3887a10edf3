package pages

import "time"

// PageRecord represents a CMS page persisted in the database.
type PageRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Slug      string    `gorm:"size:255;uniqueIndex:idx_cms_pages_slug;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Versions []VersionRecord `gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE"`
}

// TableName defines the table name for the PageRecord model.
func (PageRecord) TableName() string {
	return "cms_pages"
}

// VersionRecord is an immutable page version row. (page_id, version_number) is unique.
type VersionRecord struct {
	ID            uint      `gorm:"primaryKey"`
	PageID        uint      `gorm:"not null;uniqueIndex:idx_cms_page_versions_number,priority:1"`
	VersionNumber int       `gorm:"not null;uniqueIndex:idx_cms_page_versions_number,priority:2"`
	CreatedAt     time.Time `gorm:"not null"`
	CreatedBy     string    `gorm:"size:255;not null"`
	Comment       *string   `gorm:"type:text"`
	Status        string    `gorm:"size:16;not null"`

	Translations []TranslationRecord `gorm:"foreignKey:VersionID;constraint:OnDelete:CASCADE"`
}

// TableName defines the table name for the VersionRecord model.
func (VersionRecord) TableName() string {
	return "cms_page_versions"
}

// TranslationRecord holds one language's content of a version.
type TranslationRecord struct {
	ID         uint   `gorm:"primaryKey"`
	VersionID  uint   `gorm:"not null;index"`
	LanguageID uint   `gorm:"not null;index"`
	Title      string `gorm:"size:512;not null"`
	Content    string `gorm:"type:text"`

	Language LanguageRecord `gorm:"foreignKey:LanguageID"`
}

// TableName defines the table name for the TranslationRecord model.
func (TranslationRecord) TableName() string {
	return "cms_page_version_translations"
}

// LanguageRecord is a language known to the CMS.
type LanguageRecord struct {
	ID    uint   `gorm:"primaryKey"`
	Code  string `gorm:"size:32;uniqueIndex:idx_cms_languages_code;not null"`
	Label string `gorm:"size:255;not null"`
}

// TableName defines the table name for the LanguageRecord model.
func (LanguageRecord) TableName() string {
	return "cms_languages"
}
