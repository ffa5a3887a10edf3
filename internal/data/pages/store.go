package pages

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainpages "cmspages/app/internal/domain/pages"
)

// Store persists pages, versions and translations using a Gorm database connection.
// Versions are append-only: the store offers no way to modify a persisted version.
type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewStore constructs a Gorm-backed store implementation.
func NewStore(db *gorm.DB, logger *logrus.Logger) (*Store, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &Store{db: db, logger: logger}, nil
}

var _ domainpages.Store = (*Store)(nil)

// FindPage returns the page with the provided id or nil when not found.
func (s *Store) FindPage(ctx context.Context, id int64) (*domainpages.Page, error) {
	if id <= 0 {
		return nil, nil
	}

	var record PageRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logError(logrus.Fields{"page_id": id}, err, "fetching page by id")
		return nil, eris.Wrapf(err, "fetching page by id: %d", id)
	}

	return toDomainPage(&record), nil
}

// FindPageBySlug returns the page for the provided slug or nil when not found.
func (s *Store) FindPageBySlug(ctx context.Context, slug string) (*domainpages.Page, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, eris.New("slug is required")
	}

	var record PageRecord
	err := s.db.WithContext(ctx).First(&record, "slug = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logError(logrus.Fields{"slug": trimmed}, err, "fetching page by slug")
		return nil, eris.Wrapf(err, "fetching page by slug: %s", trimmed)
	}

	return toDomainPage(&record), nil
}

// ListPages returns every page ordered by slug.
func (s *Store) ListPages(ctx context.Context) ([]domainpages.Page, error) {
	var records []PageRecord

	if err := s.db.WithContext(ctx).Order("slug ASC").Find(&records).Error; err != nil {
		s.logError(nil, err, "listing pages")
		return nil, eris.Wrap(err, "listing pages")
	}

	return toDomainPages(records), nil
}

// ListPagesBySlugPrefix returns the pages whose slug starts with prefix, ordered by slug.
func (s *Store) ListPagesBySlugPrefix(ctx context.Context, prefix string) ([]domainpages.Page, error) {
	var records []PageRecord

	err := s.db.WithContext(ctx).
		Where("slug LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("slug ASC").
		Find(&records).Error
	if err != nil {
		s.logError(logrus.Fields{"prefix": prefix}, err, "listing pages by slug prefix")
		return nil, eris.Wrapf(err, "listing pages by slug prefix: %s", prefix)
	}

	return toDomainPages(records), nil
}

// SlugExists reports whether a page already uses slug.
func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64

	err := s.db.WithContext(ctx).Model(&PageRecord{}).Where("slug = ?", strings.TrimSpace(slug)).Count(&count).Error
	if err != nil {
		s.logError(logrus.Fields{"slug": slug}, err, "counting pages by slug")
		return false, eris.Wrapf(err, "counting pages by slug: %s", slug)
	}

	return count > 0, nil
}

// CreatePage stores a new page without versions. A taken slug yields ErrConflict.
func (s *Store) CreatePage(ctx context.Context, page *domainpages.Page) error {
	if page == nil {
		return eris.New("page is nil")
	}

	trimmedSlug := strings.TrimSpace(page.Slug)
	if trimmedSlug == "" {
		return eris.New("page slug is required")
	}

	createdAt := page.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	record := &PageRecord{
		Slug:      trimmedSlug,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return eris.Wrapf(domainpages.ErrConflict, "page with slug %s already exists", trimmedSlug)
		}
		s.logError(logrus.Fields{"slug": trimmedSlug}, err, "creating page")
		return eris.Wrapf(err, "creating page: %s", trimmedSlug)
	}

	*page = *toDomainPage(record)
	return nil
}

// ListVersions returns the versions of a page, highest number first, with translations in
// insertion order.
func (s *Store) ListVersions(ctx context.Context, pageID int64) ([]domainpages.Version, error) {
	var records []VersionRecord

	err := s.db.WithContext(ctx).
		Preload("Translations", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Translations.Language").
		Where("page_id = ?", pageID).
		Order("version_number DESC").
		Find(&records).Error
	if err != nil {
		s.logError(logrus.Fields{"page_id": pageID}, err, "listing versions")
		return nil, eris.Wrapf(err, "listing versions of page %d", pageID)
	}

	versions := make([]domainpages.Version, 0, len(records))
	for i := range records {
		versions = append(versions, toDomainVersion(&records[i]))
	}

	return versions, nil
}

// MaxVersionNumber returns the highest version number of a page, 0 when it has none.
func (s *Store) MaxVersionNumber(ctx context.Context, pageID int64) (int, error) {
	var highest int

	err := s.db.WithContext(ctx).
		Model(&VersionRecord{}).
		Select("COALESCE(MAX(version_number), 0)").
		Where("page_id = ?", pageID).
		Scan(&highest).Error
	if err != nil {
		s.logError(logrus.Fields{"page_id": pageID}, err, "reading highest version number")
		return 0, eris.Wrapf(err, "reading highest version number of page %d", pageID)
	}

	return highest, nil
}

// InsertVersion persists the version, its translations and the page's updated_at in one
// transaction. A taken (page, number) pair yields ErrVersionConflict.
func (s *Store) InsertVersion(ctx context.Context, version *domainpages.Version) error {
	if version == nil {
		return eris.New("version is nil")
	}
	if version.Number <= 0 {
		return eris.Errorf("version number must be positive, got %d", version.Number)
	}

	fields := logrus.Fields{"page_id": version.PageID, "number": version.Number}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertVersionTree(tx, uint(version.PageID), version); err != nil {
			return err
		}

		return tx.Model(&PageRecord{}).
			Where("id = ?", version.PageID).
			UpdateColumn("updated_at", version.CreatedAt).Error
	})
	if err != nil {
		if eris.Is(err, domainpages.ErrVersionConflict) {
			return err
		}
		s.logError(fields, err, "inserting version")
		return eris.Wrapf(err, "inserting version %d of page %d", version.Number, version.PageID)
	}

	return nil
}

// ReplacePage writes page and its complete history, removing any existing page with the same
// slug first. Version numbers and timestamps are kept as given. It reports whether a page was
// replaced and sets page.ID.
func (s *Store) ReplacePage(ctx context.Context, page *domainpages.Page, versions []domainpages.Version) (bool, error) {
	if page == nil {
		return false, eris.New("page is nil")
	}

	slug := strings.TrimSpace(page.Slug)
	if slug == "" {
		return false, eris.New("page slug is required")
	}

	replaced := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []uint
		if err := tx.Model(&PageRecord{}).Where("slug = ?", slug).Pluck("id", &existing).Error; err != nil {
			return eris.Wrap(err, "looking up existing page")
		}
		if len(existing) > 0 {
			if err := deletePageTrees(tx, existing); err != nil {
				return err
			}
			replaced = true
		}

		createdAt := page.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		updatedAt := page.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}

		record := &PageRecord{Slug: slug, CreatedAt: createdAt, UpdatedAt: updatedAt}
		if err := tx.Omit(clause.Associations).Create(record).Error; err != nil {
			return eris.Wrapf(err, "creating page: %s", slug)
		}

		for i := range versions {
			if err := insertVersionTree(tx, record.ID, &versions[i]); err != nil {
				return err
			}
		}

		*page = *toDomainPage(record)
		return nil
	})
	if err != nil {
		s.logError(logrus.Fields{"slug": slug}, err, "replacing page")
		return false, eris.Wrapf(err, "replacing page: %s", slug)
	}

	return replaced, nil
}

// DeletePagesBySlugPrefix permanently removes matching pages with their history.
func (s *Store) DeletePagesBySlugPrefix(ctx context.Context, prefix string) (int, error) {
	if strings.TrimSpace(prefix) == "" {
		return 0, eris.New("slug prefix is required")
	}

	deleted := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		err := tx.Model(&PageRecord{}).
			Where("slug LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
			Pluck("id", &ids).Error
		if err != nil {
			return eris.Wrap(err, "selecting pages by slug prefix")
		}
		if len(ids) == 0 {
			return nil
		}

		if err := deletePageTrees(tx, ids); err != nil {
			return err
		}
		deleted = len(ids)
		return nil
	})
	if err != nil {
		s.logError(logrus.Fields{"prefix": prefix}, err, "deleting pages by slug prefix")
		return 0, eris.Wrapf(err, "deleting pages by slug prefix: %s", prefix)
	}

	return deleted, nil
}

func insertVersionTree(tx *gorm.DB, pageID uint, version *domainpages.Version) error {
	record := &VersionRecord{
		PageID:        pageID,
		VersionNumber: version.Number,
		CreatedAt:     version.CreatedAt,
		CreatedBy:     version.CreatedBy,
		Comment:       optionalString(version.Comment),
		Status:        version.Status.String(),
	}

	if err := tx.Omit(clause.Associations).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return eris.Wrapf(domainpages.ErrVersionConflict, "page %d version %d", pageID, version.Number)
		}
		return eris.Wrapf(err, "creating version %d", version.Number)
	}

	if len(version.Translations) == 0 {
		return nil
	}

	translations := make([]TranslationRecord, 0, len(version.Translations))
	for _, translation := range version.Translations {
		if translation.Language.ID <= 0 {
			return eris.Errorf("language %q is not registered", translation.Language.Code)
		}
		translations = append(translations, TranslationRecord{
			VersionID:  record.ID,
			LanguageID: uint(translation.Language.ID),
			Title:      translation.Title,
			Content:    translation.Content,
		})
	}

	if err := tx.Omit(clause.Associations).Create(&translations).Error; err != nil {
		return eris.Wrapf(err, "creating translations of version %d", version.Number)
	}

	return nil
}

func deletePageTrees(tx *gorm.DB, pageIDs []uint) error {
	versionIDs := tx.Model(&VersionRecord{}).Select("id").Where("page_id IN ?", pageIDs)

	if err := tx.Where("version_id IN (?)", versionIDs).Delete(&TranslationRecord{}).Error; err != nil {
		return eris.Wrap(err, "deleting translations")
	}
	if err := tx.Where("page_id IN ?", pageIDs).Delete(&VersionRecord{}).Error; err != nil {
		return eris.Wrap(err, "deleting versions")
	}
	if err := tx.Where("id IN ?", pageIDs).Delete(&PageRecord{}).Error; err != nil {
		return eris.Wrap(err, "deleting pages")
	}
	return nil
}

func (s *Store) logError(fields logrus.Fields, err error, message string) {
	logError(s.logger, fields, err, message)
}

func logError(logger *logrus.Logger, fields logrus.Fields, err error, message string) {
	if logger == nil || err == nil {
		return
	}

	entry := logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique")
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func toDomainPage(record *PageRecord) *domainpages.Page {
	if record == nil {
		return nil
	}

	return &domainpages.Page{
		ID:        int64(record.ID),
		Slug:      strings.TrimSpace(record.Slug),
		CreatedAt: record.CreatedAt.UTC(),
		UpdatedAt: record.UpdatedAt.UTC(),
	}
}

func toDomainPages(records []PageRecord) []domainpages.Page {
	pages := make([]domainpages.Page, 0, len(records))
	for i := range records {
		pages = append(pages, *toDomainPage(&records[i]))
	}
	return pages
}

func toDomainVersion(record *VersionRecord) domainpages.Version {
	version := domainpages.Version{
		PageID:    int64(record.PageID),
		Number:    record.VersionNumber,
		CreatedAt: record.CreatedAt.UTC(),
		CreatedBy: record.CreatedBy,
		Status:    domainpages.Status(record.Status),
	}
	if record.Comment != nil {
		version.Comment = *record.Comment
	}

	version.Translations = make([]domainpages.Translation, 0, len(record.Translations))
	for _, translation := range record.Translations {
		version.Translations = append(version.Translations, domainpages.Translation{
			Language: toDomainLanguage(&translation.Language),
			Title:    translation.Title,
			Content:  translation.Content,
		})
	}

	return version
}

func toDomainLanguage(record *LanguageRecord) domainpages.Language {
	return domainpages.Language{
		ID:    int64(record.ID),
		Code:  record.Code,
		Label: record.Label,
	}
}
