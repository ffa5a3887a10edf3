package pages

import (
	"context"

	"github.com/rotisserie/eris"
)

// Actions checked against the permission collaborator.
const (
	ActionRead         = "read"
	ActionWrite        = "write"
	ActionDelete       = "delete"
	ActionReadDraft    = "read-draft"
	ActionReadArchived = "read-archived"
	ActionReadVersions = "read-versions"
)

// PermissionChecker answers whether the actor bound to ctx may perform action on resourceID.
type PermissionChecker interface {
	HasPermission(ctx context.Context, resourceID, action string) bool
}

// visibilityRule names the capability needed, on top of ActionRead, to see content in a status.
type visibilityRule struct {
	status   Status
	requires string
}

var visibilityRules = []visibilityRule{
	{status: StatusPublished},
	{status: StatusDraft, requires: ActionReadDraft},
	{status: StatusArchived, requires: ActionReadArchived},
}

func ruleFor(status Status) (visibilityRule, bool) {
	for _, rule := range visibilityRules {
		if rule.status == status {
			return rule, true
		}
	}
	return visibilityRule{}, false
}

// GoverningStatus returns the status deciding whole-page visibility: the status of the
// highest-numbered non-draft version, or draft when every version is a draft (or there are none).
// The order of versions does not matter.
func GoverningStatus(versions []Version) Status {
	governing := StatusDraft
	highest := 0
	for _, version := range versions {
		if version.Status == StatusDraft {
			continue
		}
		if version.Number > highest {
			highest = version.Number
			governing = version.Status
		}
	}
	return governing
}

// Resolver decides visibility of pages, versions and version lists.
type Resolver struct {
	permissions PermissionChecker
}

// NewResolver constructs a Resolver backed by the permission collaborator.
func NewResolver(permissions PermissionChecker) (*Resolver, error) {
	if permissions == nil {
		return nil, eris.New("permission checker is required")
	}
	return &Resolver{permissions: permissions}, nil
}

// CanReadPage reports whether the page as a whole is visible.
func (r *Resolver) CanReadPage(ctx context.Context, page Page, versions []Version) bool {
	if !r.has(ctx, page, ActionRead) {
		return false
	}
	return r.satisfies(ctx, page, GoverningStatus(versions))
}

// CanReadVersion reports whether a single version is visible, independent of its siblings.
func (r *Resolver) CanReadVersion(ctx context.Context, page Page, version Version) bool {
	if !r.has(ctx, page, ActionRead) {
		return false
	}
	return r.satisfies(ctx, page, version.Status)
}

// CanReadVersions reports whether the version list may be enumerated.
func (r *Resolver) CanReadVersions(ctx context.Context, page Page) bool {
	return r.has(ctx, page, ActionRead) && r.has(ctx, page, ActionReadVersions)
}

// CanWrite reports whether new versions may be appended.
func (r *Resolver) CanWrite(ctx context.Context, page Page) bool {
	return r.has(ctx, page, ActionWrite)
}

// CanDelete reports whether the page may be archived.
func (r *Resolver) CanDelete(ctx context.Context, page Page) bool {
	return r.has(ctx, page, ActionDelete)
}

// satisfies checks the status rule. Unknown statuses are never visible.
func (r *Resolver) satisfies(ctx context.Context, page Page, status Status) bool {
	rule, ok := ruleFor(status)
	if !ok {
		return false
	}
	if rule.requires == "" {
		return true
	}
	return r.has(ctx, page, rule.requires)
}

func (r *Resolver) has(ctx context.Context, page Page, action string) bool {
	return r.permissions.HasPermission(ctx, page.PermissionID(), action)
}
