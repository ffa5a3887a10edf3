package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Service implements page creation, version appends, archiving and the read projections.
// Read projections return nil (or an empty slice) both when the page is missing and when the
// actor may not see it, so the two cases are indistinguishable to callers.
type Service interface {
	CreatePage(ctx context.Context, slug string) (*Page, error)
	CreateVersion(ctx context.Context, pageID int64, input CreateVersionInput) (*VersionDetail, error)
	DeletePage(ctx context.Context, pageID int64, actorID string) error
	SlugExists(ctx context.Context, slug string) (bool, error)

	GetAllPages(ctx context.Context) ([]PageSummary, error)
	GetPageBySlug(ctx context.Context, slug string) (*PageSummary, error)
	GetPageByID(ctx context.Context, pageID int64) (*PageDetail, error)
	GetVersions(ctx context.Context, pageID int64) ([]VersionInfo, error)
	GetCurrentVersion(ctx context.Context, pageID int64) (*VersionDetail, error)
	GetVersion(ctx context.Context, pageID int64, number int) (*VersionDetail, error)
	GetPublishedVersion(ctx context.Context, pageID int64) (*VersionDetail, error)
	GetTranslation(ctx context.Context, pageID int64, number int, language string) (*TranslationDetail, error)
}

// TranslationInput carries one language's content for a new version.
type TranslationInput struct {
	Language string `validate:"required,max=32"`
	Title    string `validate:"required,max=512"`
	Content  string
}

// CreateVersionInput describes a version to append. An empty CreatedBy falls back to the
// actor reported by the identity collaborator.
type CreateVersionInput struct {
	Status       string `validate:"required"`
	Comment      string
	CreatedBy    string             `validate:"max=255"`
	Translations []TranslationInput `validate:"dive"`
}

// ServiceOptions wires the service collaborators.
type ServiceOptions struct {
	Store      Store
	Languages  LanguageRegistry
	Numbering  *NumberingAuthority
	Resolver   *Resolver
	Identity   Identity
	Logger     *logrus.Logger
	SentryHub  *sentry.Hub
	Clock      func() time.Time
	Validation *validator.Validate
}

type service struct {
	store     Store
	languages LanguageRegistry
	numbering *NumberingAuthority
	resolver  *Resolver
	identity  Identity
	logger    *logrus.Logger
	sentryHub *sentry.Hub
	now       func() time.Time
	validate  *validator.Validate
}

var _ Service = (*service)(nil)

const maxSlugLength = 255

// NewService wires the page versioning service with its dependencies.
func NewService(opts ServiceOptions) (Service, error) {
	if opts.Store == nil {
		return nil, eris.New("page store is required")
	}
	if opts.Languages == nil {
		return nil, eris.New("language registry is required")
	}
	if opts.Numbering == nil {
		return nil, eris.New("numbering authority is required")
	}
	if opts.Resolver == nil {
		return nil, eris.New("visibility resolver is required")
	}

	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	validate := opts.Validation
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &service{
		store:     opts.Store,
		languages: opts.Languages,
		numbering: opts.Numbering,
		resolver:  opts.Resolver,
		identity:  opts.Identity,
		logger:    opts.Logger,
		sentryHub: opts.SentryHub,
		now:       clock,
		validate:  validate,
	}, nil
}

func (s *service) CreatePage(ctx context.Context, slug string) (*Page, error) {
	trimmed := strings.TrimSpace(slug)
	if err := s.validate.Var(trimmed, fmt.Sprintf("required,max=%d", maxSlugLength)); err != nil {
		return nil, validationError(err, "slug")
	}

	exists, err := s.store.SlugExists(ctx, trimmed)
	if err != nil {
		s.recordError(logrus.Fields{"slug": trimmed}, err, "checking slug availability")
		return nil, eris.Wrapf(err, "checking slug: %s", trimmed)
	}
	if exists {
		return nil, eris.Wrapf(ErrConflict, "slug %s", trimmed)
	}

	page := &Page{Slug: trimmed, CreatedAt: s.now()}
	if err := s.store.CreatePage(ctx, page); err != nil {
		if eris.Is(err, ErrConflict) {
			return nil, err
		}
		s.recordError(logrus.Fields{"slug": trimmed}, err, "creating page")
		return nil, eris.Wrapf(err, "creating page: %s", trimmed)
	}

	s.logInfo(logrus.Fields{"page_id": page.ID, "slug": page.Slug}, "page created")
	return page, nil
}

func (s *service) CreateVersion(ctx context.Context, pageID int64, input CreateVersionInput) (*VersionDetail, error) {
	status, createdBy, err := s.prepareVersion(ctx, input)
	if err != nil {
		return nil, err
	}

	page, err := s.findPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, eris.Wrapf(ErrNotFound, "page %d", pageID)
	}
	if !s.resolver.CanWrite(ctx, *page) {
		return nil, eris.Wrapf(ErrForbidden, "writing page %d", pageID)
	}

	translations := make([]Translation, 0, len(input.Translations))
	for _, item := range input.Translations {
		language, err := s.languages.Resolve(ctx, item.Language)
		if err != nil {
			s.recordError(logrus.Fields{"page_id": pageID, "language": item.Language}, err, "resolving language")
			return nil, eris.Wrapf(err, "resolving language: %s", item.Language)
		}
		translations = append(translations, Translation{
			Language: language,
			Title:    strings.TrimSpace(item.Title),
			Content:  item.Content,
		})
	}

	comment := strings.TrimSpace(input.Comment)
	version, err := s.numbering.Append(ctx, pageID, func(number int) Version {
		return Version{
			CreatedAt:    s.now(),
			CreatedBy:    createdBy,
			Status:       status,
			Comment:      comment,
			Translations: translations,
		}
	})
	if err != nil {
		s.recordError(logrus.Fields{"page_id": pageID}, err, "appending version")
		return nil, err
	}

	s.logInfo(logrus.Fields{
		"page_id": pageID,
		"number":  version.Number,
		"status":  version.Status.String(),
	}, "version created")

	return toVersionDetail(*version), nil
}

func (s *service) prepareVersion(ctx context.Context, input CreateVersionInput) (Status, string, error) {
	normalized := input
	normalized.Status = strings.TrimSpace(input.Status)
	normalized.CreatedBy = strings.TrimSpace(input.CreatedBy)
	normalized.Translations = make([]TranslationInput, 0, len(input.Translations))
	for _, item := range input.Translations {
		normalized.Translations = append(normalized.Translations, TranslationInput{
			Language: strings.TrimSpace(item.Language),
			Title:    strings.TrimSpace(item.Title),
			Content:  item.Content,
		})
	}

	if err := s.validate.Struct(normalized); err != nil {
		return "", "", validationError(err, "version")
	}

	status, err := ParseStatus(normalized.Status)
	if err != nil {
		return "", "", err
	}

	createdBy := normalized.CreatedBy
	if createdBy == "" {
		createdBy = s.currentActor(ctx)
	}
	if createdBy == "" {
		return "", "", eris.Wrap(ErrValidation, "created_by is required")
	}

	return status, createdBy, nil
}

func (s *service) DeletePage(ctx context.Context, pageID int64, actorID string) error {
	actor := strings.TrimSpace(actorID)
	if actor == "" {
		actor = s.currentActor(ctx)
	}
	if actor == "" {
		return eris.Wrap(ErrValidation, "actor is required to archive a page")
	}

	page, err := s.findPage(ctx, pageID)
	if err != nil {
		return err
	}
	if page == nil {
		return eris.Wrapf(ErrNotFound, "page %d", pageID)
	}
	if !s.resolver.CanDelete(ctx, *page) {
		return eris.Wrapf(ErrForbidden, "deleting page %d", pageID)
	}

	version, err := s.numbering.Append(ctx, pageID, func(int) Version {
		return Version{
			CreatedAt: s.now(),
			CreatedBy: actor,
			Status:    StatusArchived,
		}
	})
	if err != nil {
		s.recordError(logrus.Fields{"page_id": pageID}, err, "archiving page")
		return err
	}

	s.logInfo(logrus.Fields{"page_id": pageID, "number": version.Number, "actor": actor}, "page archived")
	return nil
}

func (s *service) SlugExists(ctx context.Context, slug string) (bool, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return false, nil
	}

	exists, err := s.store.SlugExists(ctx, trimmed)
	if err != nil {
		s.recordError(logrus.Fields{"slug": trimmed}, err, "checking slug availability")
		return false, eris.Wrapf(err, "checking slug: %s", trimmed)
	}
	return exists, nil
}

func (s *service) GetAllPages(ctx context.Context) ([]PageSummary, error) {
	pages, err := s.store.ListPages(ctx)
	if err != nil {
		s.recordError(nil, err, "listing pages")
		return nil, eris.Wrap(err, "listing pages")
	}

	summaries := make([]PageSummary, 0, len(pages))
	for _, page := range pages {
		versions, err := s.listVersions(ctx, page.ID)
		if err != nil {
			return nil, err
		}
		if !s.resolver.CanReadPage(ctx, page, versions) {
			continue
		}
		summaries = append(summaries, s.toPageSummary(ctx, page, versions))
	}

	return summaries, nil
}

func (s *service) GetPageBySlug(ctx context.Context, slug string) (*PageSummary, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, nil
	}

	page, err := s.store.FindPageBySlug(ctx, trimmed)
	if err != nil {
		s.recordError(logrus.Fields{"slug": trimmed}, err, "fetching page by slug")
		return nil, eris.Wrapf(err, "fetching page by slug: %s", trimmed)
	}
	if page == nil {
		return nil, nil
	}

	versions, err := s.listVersions(ctx, page.ID)
	if err != nil {
		return nil, err
	}
	if !s.resolver.CanReadPage(ctx, *page, versions) {
		return nil, nil
	}

	summary := s.toPageSummary(ctx, *page, versions)
	return &summary, nil
}

func (s *service) GetPageByID(ctx context.Context, pageID int64) (*PageDetail, error) {
	page, versions, err := s.loadReadable(ctx, pageID)
	if err != nil || page == nil {
		return nil, err
	}

	detail := &PageDetail{
		ID:        page.ID,
		Slug:      page.Slug,
		CreatedAt: page.CreatedAt,
		UpdatedAt: page.UpdatedAt,
		Versions:  s.readableVersionInfos(ctx, *page, versions),
	}
	return detail, nil
}

func (s *service) GetVersions(ctx context.Context, pageID int64) ([]VersionInfo, error) {
	page, versions, err := s.loadReadable(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page == nil || !s.resolver.CanReadVersions(ctx, *page) {
		return []VersionInfo{}, nil
	}

	return s.readableVersionInfos(ctx, *page, versions), nil
}

func (s *service) GetCurrentVersion(ctx context.Context, pageID int64) (*VersionDetail, error) {
	page, versions, err := s.loadReadable(ctx, pageID)
	if err != nil || page == nil {
		return nil, err
	}

	for _, version := range versions {
		if s.resolver.CanReadVersion(ctx, *page, version) {
			return toVersionDetail(version), nil
		}
	}
	return nil, nil
}

func (s *service) GetVersion(ctx context.Context, pageID int64, number int) (*VersionDetail, error) {
	page, version, err := s.loadReadableVersion(ctx, pageID, number)
	if err != nil || page == nil || version == nil {
		return nil, err
	}
	return toVersionDetail(*version), nil
}

func (s *service) GetPublishedVersion(ctx context.Context, pageID int64) (*VersionDetail, error) {
	page, versions, err := s.loadReadable(ctx, pageID)
	if err != nil || page == nil {
		return nil, err
	}

	for _, version := range versions {
		if version.Status == StatusPublished {
			return toVersionDetail(version), nil
		}
	}
	return nil, nil
}

func (s *service) GetTranslation(ctx context.Context, pageID int64, number int, language string) (*TranslationDetail, error) {
	page, version, err := s.loadReadableVersion(ctx, pageID, number)
	if err != nil || page == nil || version == nil {
		return nil, err
	}

	translation, ok := version.Translation(language)
	if !ok {
		return nil, nil
	}
	return toTranslationDetail(*version, translation), nil
}

// loadReadable returns the page and its versions (highest first) when the page exists and
// passes CanReadPage; otherwise a nil page.
func (s *service) loadReadable(ctx context.Context, pageID int64) (*Page, []Version, error) {
	page, err := s.findPage(ctx, pageID)
	if err != nil || page == nil {
		return nil, nil, err
	}

	versions, err := s.listVersions(ctx, pageID)
	if err != nil {
		return nil, nil, err
	}

	if !s.resolver.CanReadPage(ctx, *page, versions) {
		s.logDebug(logrus.Fields{"page_id": pageID}, "page hidden from actor")
		return nil, nil, nil
	}

	return page, versions, nil
}

func (s *service) loadReadableVersion(ctx context.Context, pageID int64, number int) (*Page, *Version, error) {
	page, versions, err := s.loadReadable(ctx, pageID)
	if err != nil || page == nil {
		return nil, nil, err
	}

	for i := range versions {
		if versions[i].Number != number {
			continue
		}
		if !s.resolver.CanReadVersion(ctx, *page, versions[i]) {
			return page, nil, nil
		}
		return page, &versions[i], nil
	}
	return page, nil, nil
}

func (s *service) findPage(ctx context.Context, pageID int64) (*Page, error) {
	page, err := s.store.FindPage(ctx, pageID)
	if err != nil {
		s.recordError(logrus.Fields{"page_id": pageID}, err, "fetching page")
		return nil, eris.Wrapf(err, "fetching page %d", pageID)
	}
	return page, nil
}

func (s *service) listVersions(ctx context.Context, pageID int64) ([]Version, error) {
	versions, err := s.store.ListVersions(ctx, pageID)
	if err != nil {
		s.recordError(logrus.Fields{"page_id": pageID}, err, "listing versions")
		return nil, eris.Wrapf(err, "listing versions of page %d", pageID)
	}
	return versions, nil
}

func (s *service) toPageSummary(ctx context.Context, page Page, versions []Version) PageSummary {
	summary := PageSummary{
		ID:        page.ID,
		Slug:      page.Slug,
		CreatedAt: page.CreatedAt,
		UpdatedAt: page.UpdatedAt,
	}

	for _, version := range versions {
		if s.resolver.CanReadVersion(ctx, page, version) {
			summary.CurrentVersion = &VersionSummary{
				Number:    version.Number,
				Status:    version.Status,
				CreatedAt: version.CreatedAt,
			}
			break
		}
	}

	return summary
}

func (s *service) readableVersionInfos(ctx context.Context, page Page, versions []Version) []VersionInfo {
	infos := make([]VersionInfo, 0, len(versions))
	for _, version := range versions {
		if s.resolver.CanReadVersion(ctx, page, version) {
			infos = append(infos, toVersionInfo(version))
		}
	}
	return infos
}

func (s *service) currentActor(ctx context.Context) string {
	if s.identity == nil {
		return ""
	}
	return strings.TrimSpace(s.identity.CurrentActorID(ctx))
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}

func (s *service) logInfo(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(fields).Info(message)
}

func (s *service) logDebug(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(fields).Debug(message)
}

// validationError flattens validator failures into an ErrValidation.
func validationError(err error, subject string) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return eris.Wrapf(ErrValidation, "%s: %v", subject, err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		name := fieldErr.Namespace()
		if name == "" {
			name = subject
		}
		problems = append(problems, fmt.Sprintf("%s failed %s", name, fieldErr.Tag()))
	}
	return eris.Wrapf(ErrValidation, "%s: %s", subject, strings.Join(problems, "; "))
}
