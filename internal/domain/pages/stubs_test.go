package pages

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type memoryStore struct {
	mu       sync.Mutex
	nextID   int64
	pages    map[int64]*Page
	versions map[int64][]Version

	// conflictsLeft makes the next N inserts fail with ErrVersionConflict.
	conflictsLeft int
	inserts       int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		pages:    make(map[int64]*Page),
		versions: make(map[int64][]Version),
	}
}

func (m *memoryStore) FindPage(_ context.Context, id int64) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	page, ok := m.pages[id]
	if !ok {
		return nil, nil
	}
	clone := *page
	return &clone, nil
}

func (m *memoryStore) FindPageBySlug(_ context.Context, slug string) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, page := range m.pages {
		if page.Slug == slug {
			clone := *page
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) ListPages(context.Context) ([]Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pages := make([]Page, 0, len(m.pages))
	for _, page := range m.pages {
		pages = append(pages, *page)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Slug < pages[j].Slug })
	return pages, nil
}

func (m *memoryStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	page, err := m.FindPageBySlug(ctx, slug)
	return page != nil, err
}

func (m *memoryStore) CreatePage(_ context.Context, page *Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.pages {
		if existing.Slug == page.Slug {
			return ErrConflict
		}
	}

	m.nextID++
	page.ID = m.nextID
	page.UpdatedAt = page.CreatedAt
	clone := *page
	m.pages[page.ID] = &clone
	return nil
}

func (m *memoryStore) ListVersions(_ context.Context, pageID int64) ([]Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions := append([]Version(nil), m.versions[pageID]...)
	sort.Slice(versions, func(i, j int) bool { return versions[i].Number > versions[j].Number })
	return versions, nil
}

func (m *memoryStore) MaxVersionNumber(_ context.Context, pageID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	highest := 0
	for _, version := range m.versions[pageID] {
		if version.Number > highest {
			highest = version.Number
		}
	}
	return highest, nil
}

func (m *memoryStore) InsertVersion(_ context.Context, version *Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inserts++
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		return ErrVersionConflict
	}

	for _, existing := range m.versions[version.PageID] {
		if existing.Number == version.Number {
			return ErrVersionConflict
		}
	}

	m.versions[version.PageID] = append(m.versions[version.PageID], *version)
	if page, ok := m.pages[version.PageID]; ok {
		page.UpdatedAt = version.CreatedAt
	}
	return nil
}

type memoryLanguages struct {
	mu     sync.Mutex
	byCode map[string]Language
}

func newMemoryLanguages() *memoryLanguages {
	return &memoryLanguages{byCode: make(map[string]Language)}
}

func (m *memoryLanguages) Resolve(_ context.Context, code string) (Language, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	canonical := CanonicalLanguageCode(code)
	if language, ok := m.byCode[canonical]; ok {
		return language, nil
	}
	language := Language{ID: int64(len(m.byCode) + 1), Code: canonical, Label: canonical}
	m.byCode[canonical] = language
	return language, nil
}

type mutexLocker struct {
	mu sync.Mutex
}

func (l *mutexLocker) Lock(context.Context, string) (func(), error) {
	l.mu.Lock()
	return l.mu.Unlock, nil
}

// grants maps an action to whether it is allowed, for every resource.
type grants map[string]bool

func (g grants) HasPermission(_ context.Context, _ string, action string) bool {
	return g[action]
}

func allActions() grants {
	return grants{
		ActionRead:         true,
		ActionWrite:        true,
		ActionDelete:       true,
		ActionReadDraft:    true,
		ActionReadArchived: true,
		ActionReadVersions: true,
	}
}

type actorKey struct{}

type contextIdentity struct{}

func (contextIdentity) CurrentActorID(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

func withActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// perActorGrants lets tests switch permissions per actor bound in ctx.
type perActorGrants map[string]grants

func (p perActorGrants) HasPermission(ctx context.Context, resourceID, action string) bool {
	actor, _ := ctx.Value(actorKey{}).(string)
	if !strings.HasPrefix(resourceID, PermissionIDPrefix) {
		return false
	}
	return p[actor].HasPermission(ctx, resourceID, action)
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func pageResource(id int64) string {
	return PermissionIDPrefix + strconv.FormatInt(id, 10)
}
