package pages

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domainpages "cmspages/app/internal/domain/pages"
)

// LanguageRegistry resolves language codes against the cms_languages table.
type LanguageRegistry struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewLanguageRegistry constructs a Gorm-backed language registry.
func NewLanguageRegistry(db *gorm.DB, logger *logrus.Logger) (*LanguageRegistry, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &LanguageRegistry{db: db, logger: logger}, nil
}

var _ domainpages.LanguageRegistry = (*LanguageRegistry)(nil)

// Resolve returns the language for code, registering it with the code as label when unknown.
func (r *LanguageRegistry) Resolve(ctx context.Context, code string) (domainpages.Language, error) {
	canonical := domainpages.CanonicalLanguageCode(code)
	if canonical == "" {
		return domainpages.Language{}, eris.Wrap(domainpages.ErrValidation, "language code is required")
	}

	record, err := r.find(ctx, canonical)
	if err != nil {
		return domainpages.Language{}, err
	}
	if record != nil {
		return toDomainLanguage(record), nil
	}

	record = &LanguageRecord{Code: canonical, Label: canonical}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if !isUniqueViolation(err) {
			logError(r.logger, logrus.Fields{"code": canonical}, err, "registering language")
			return domainpages.Language{}, eris.Wrapf(err, "registering language: %s", canonical)
		}

		// Another writer registered it first.
		record, err = r.find(ctx, canonical)
		if err != nil {
			return domainpages.Language{}, err
		}
		if record == nil {
			return domainpages.Language{}, eris.Errorf("language %s vanished after unique violation", canonical)
		}
	} else if r.logger != nil {
		r.logger.WithField("code", canonical).Info("registered language")
	}

	return toDomainLanguage(record), nil
}

// List returns every registered language ordered by code.
func (r *LanguageRegistry) List(ctx context.Context) ([]domainpages.Language, error) {
	var records []LanguageRecord
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&records).Error; err != nil {
		logError(r.logger, nil, err, "listing languages")
		return nil, eris.Wrap(err, "listing languages")
	}

	languages := make([]domainpages.Language, 0, len(records))
	for i := range records {
		languages = append(languages, toDomainLanguage(&records[i]))
	}
	return languages, nil
}

func (r *LanguageRegistry) find(ctx context.Context, code string) (*LanguageRecord, error) {
	var record LanguageRecord
	err := r.db.WithContext(ctx).First(&record, "code = ?", code).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logError(r.logger, logrus.Fields{"code": code}, err, "fetching language")
		return nil, eris.Wrapf(err, "fetching language: %s", code)
	}
	return &record, nil
}
