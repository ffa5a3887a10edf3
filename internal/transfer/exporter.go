package transfer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	domainpages "cmspages/app/internal/domain/pages"
)

// Exporter serialises pages with their full history. It bypasses visibility.
type Exporter struct {
	store  Store
	logger *logrus.Logger
	now    func() time.Time
}

// NewExporter creates a new Exporter instance.
func NewExporter(store Store, logger *logrus.Logger) (*Exporter, error) {
	if store == nil {
		return nil, eris.New("transfer store is required")
	}

	return &Exporter{store: store, logger: logger, now: time.Now}, nil
}

// Export returns every page whose slug starts with slugPrefix, versions in ascending order.
// An empty prefix exports everything.
func (e *Exporter) Export(ctx context.Context, slugPrefix string) ([]PageExport, error) {
	pages, err := e.store.ListPagesBySlugPrefix(ctx, slugPrefix)
	if err != nil {
		return nil, eris.Wrapf(err, "listing pages with prefix %q", slugPrefix)
	}

	exports := make([]PageExport, 0, len(pages))
	for _, page := range pages {
		versions, err := e.store.ListVersions(ctx, page.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "listing versions of %s", page.Slug)
		}
		exports = append(exports, toPageExport(page, versions))
	}

	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"prefix": slugPrefix,
			"pages":  len(exports),
		}).Info("exported pages")
	}

	return exports, nil
}

// WriteFile exports matching pages to path as indented JSON, creating parent directories.
// It returns the number of pages written.
func (e *Exporter) WriteFile(ctx context.Context, slugPrefix, path string) (int, error) {
	pages, err := e.Export(ctx, slugPrefix)
	if err != nil {
		return 0, err
	}

	document := Document{
		Format:     FormatVersion,
		ExportedAt: e.now().UTC(),
		Pages:      pages,
	}

	payload, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return 0, eris.Wrap(err, "encoding export document")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, eris.Wrapf(err, "creating export directory %s", dir)
		}
	}

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return 0, eris.Wrapf(err, "writing export file %s", path)
	}

	return len(pages), nil
}

func toPageExport(page domainpages.Page, versions []domainpages.Version) PageExport {
	export := PageExport{
		Slug:      page.Slug,
		CreatedAt: page.CreatedAt,
		UpdatedAt: page.UpdatedAt,
		Versions:  make([]VersionExport, 0, len(versions)),
	}

	for _, version := range versions {
		translations := make([]TranslationExport, 0, len(version.Translations))
		for _, translation := range version.Translations {
			translations = append(translations, TranslationExport{
				Language: translation.Language.Code,
				Title:    translation.Title,
				Content:  translation.Content,
			})
		}

		export.Versions = append(export.Versions, VersionExport{
			VersionNumber: version.Number,
			Status:        version.Status.String(),
			Comment:       version.Comment,
			CreatedAt:     version.CreatedAt,
			CreatedBy:     version.CreatedBy,
			Translations:  translations,
		})
	}

	sort.Slice(export.Versions, func(i, j int) bool {
		return export.Versions[i].VersionNumber < export.Versions[j].VersionNumber
	})

	return export
}
