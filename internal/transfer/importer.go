package transfer

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	domainpages "cmspages/app/internal/domain/pages"
)

// ImporterOptions configures an Importer.
type ImporterOptions struct {
	Store     Store
	Languages domainpages.LanguageRegistry
	Logger    *logrus.Logger
	// DefaultAuthor fills versions exported without created_by.
	DefaultAuthor string
	Clock         func() time.Time
}

// Importer recreates pages from export documents, replacing pages with the same slug.
type Importer struct {
	store         Store
	languages     domainpages.LanguageRegistry
	logger        *logrus.Logger
	defaultAuthor string
	clock         func() time.Time
}

// Failure describes a page that could not be imported.
type Failure struct {
	Slug  string
	Error string
}

// Report summarises an import run. Failed pages do not abort the run.
type Report struct {
	Created  int
	Replaced int
	Failures []Failure
}

// Imported returns the number of pages written.
func (r Report) Imported() int {
	return r.Created + r.Replaced
}

// NewImporter validates its collaborators.
func NewImporter(opts ImporterOptions) (*Importer, error) {
	if opts.Store == nil {
		return nil, eris.New("transfer store is required")
	}
	if opts.Languages == nil {
		return nil, eris.New("language registry is required")
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	author := strings.TrimSpace(opts.DefaultAuthor)
	if author == "" {
		author = "import"
	}

	return &Importer{
		store:         opts.Store,
		languages:     opts.Languages,
		logger:        opts.Logger,
		defaultAuthor: author,
		clock:         clock,
	}, nil
}

// ImportFile reads an export document from path and imports its pages.
func (i *Importer) ImportFile(ctx context.Context, path string) (Report, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Report{}, eris.Wrapf(err, "reading import file %s", path)
	}

	var document Document
	if err := json.Unmarshal(payload, &document); err != nil {
		return Report{}, eris.Wrapf(err, "decoding import file %s", path)
	}
	if document.Format != "" && document.Format != FormatVersion {
		return Report{}, eris.Errorf("unsupported export format %q", document.Format)
	}

	return i.Import(ctx, document.Pages)
}

// Import writes each page with its history, keeping version numbers and timestamps.
func (i *Importer) Import(ctx context.Context, pages []PageExport) (Report, error) {
	var report Report

	for _, export := range pages {
		if err := ctx.Err(); err != nil {
			return report, eris.Wrap(err, "import cancelled")
		}

		replaced, err := i.importPage(ctx, export)
		if err != nil {
			report.Failures = append(report.Failures, Failure{Slug: export.Slug, Error: err.Error()})
			if i.logger != nil {
				i.logger.WithFields(logrus.Fields{
					"slug":  export.Slug,
					"error": err.Error(),
				}).Warn("page import failed")
			}
			continue
		}

		if replaced {
			report.Replaced++
		} else {
			report.Created++
		}
	}

	if i.logger != nil {
		i.logger.WithFields(logrus.Fields{
			"created":  report.Created,
			"replaced": report.Replaced,
			"failed":   len(report.Failures),
		}).Info("import finished")
	}

	return report, nil
}

func (i *Importer) importPage(ctx context.Context, export PageExport) (bool, error) {
	slug := strings.TrimSpace(export.Slug)
	if slug == "" {
		return false, eris.Wrap(domainpages.ErrValidation, "slug is required")
	}

	versions, err := i.buildVersions(ctx, export.Versions)
	if err != nil {
		return false, err
	}

	page := &domainpages.Page{
		Slug:      slug,
		CreatedAt: export.CreatedAt,
		UpdatedAt: export.UpdatedAt,
	}
	if page.CreatedAt.IsZero() {
		page.CreatedAt = i.clock().UTC()
	}
	if page.UpdatedAt.IsZero() {
		page.UpdatedAt = page.CreatedAt
		if len(versions) > 0 {
			page.UpdatedAt = versions[len(versions)-1].CreatedAt
		}
	}

	return i.store.ReplacePage(ctx, page, versions)
}

func (i *Importer) buildVersions(ctx context.Context, exports []VersionExport) ([]domainpages.Version, error) {
	seen := make(map[int]struct{}, len(exports))
	versions := make([]domainpages.Version, 0, len(exports))

	for _, export := range exports {
		if export.VersionNumber <= 0 {
			return nil, eris.Wrapf(domainpages.ErrValidation, "version number must be positive, got %d", export.VersionNumber)
		}
		if _, dup := seen[export.VersionNumber]; dup {
			return nil, eris.Wrapf(domainpages.ErrValidation, "duplicate version number %d", export.VersionNumber)
		}
		seen[export.VersionNumber] = struct{}{}

		status, err := domainpages.ParseStatus(export.Status)
		if err != nil {
			return nil, eris.Wrapf(err, "version %d", export.VersionNumber)
		}

		translations, err := i.buildTranslations(ctx, export)
		if err != nil {
			return nil, err
		}

		createdAt := export.CreatedAt
		if createdAt.IsZero() {
			createdAt = i.clock().UTC()
		}
		createdBy := strings.TrimSpace(export.CreatedBy)
		if createdBy == "" {
			createdBy = i.defaultAuthor
		}

		versions = append(versions, domainpages.Version{
			Number:       export.VersionNumber,
			CreatedAt:    createdAt,
			CreatedBy:    createdBy,
			Status:       status,
			Comment:      export.Comment,
			Translations: translations,
		})
	}

	sort.Slice(versions, func(a, b int) bool {
		return versions[a].Number < versions[b].Number
	})

	return versions, nil
}

func (i *Importer) buildTranslations(ctx context.Context, export VersionExport) ([]domainpages.Translation, error) {
	translations := make([]domainpages.Translation, 0, len(export.Translations))
	for _, translation := range export.Translations {
		if strings.TrimSpace(translation.Title) == "" {
			return nil, eris.Wrapf(domainpages.ErrValidation, "version %d: translation title is required", export.VersionNumber)
		}

		language, err := i.languages.Resolve(ctx, translation.Language)
		if err != nil {
			return nil, eris.Wrapf(err, "version %d: resolving language %q", export.VersionNumber, translation.Language)
		}

		translations = append(translations, domainpages.Translation{
			Language: language,
			Title:    translation.Title,
			Content:  translation.Content,
		})
	}
	return translations, nil
}
