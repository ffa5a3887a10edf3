package access

import (
	"context"
	"strings"
	"sync"

	domainpages "cmspages/app/internal/domain/pages"
)

// Wildcard matches any actor or action. As the last character of a resource pattern it
// matches any suffix.
const Wildcard = "*"

// Grant allows Actor to perform Actions on resources matching Resource.
type Grant struct {
	Actor    string
	Resource string
	Actions  []string
}

// Policy is an in-memory grant table keyed by the actor bound to the context.
type Policy struct {
	mu     sync.RWMutex
	grants []Grant
}

// NewPolicy returns a policy holding grants.
func NewPolicy(grants ...Grant) *Policy {
	policy := &Policy{}
	for _, grant := range grants {
		policy.Allow(grant)
	}
	return policy
}

var _ domainpages.PermissionChecker = (*Policy)(nil)

// Allow adds a grant. Empty actors and resources are ignored.
func (p *Policy) Allow(grant Grant) {
	grant.Actor = strings.TrimSpace(grant.Actor)
	grant.Resource = strings.TrimSpace(grant.Resource)
	if grant.Actor == "" || grant.Resource == "" || len(grant.Actions) == 0 {
		return
	}

	actions := make([]string, 0, len(grant.Actions))
	for _, action := range grant.Actions {
		if trimmed := strings.TrimSpace(action); trimmed != "" {
			actions = append(actions, trimmed)
		}
	}
	grant.Actions = actions

	p.mu.Lock()
	p.grants = append(p.grants, grant)
	p.mu.Unlock()
}

// HasPermission reports whether any grant for the context's actor covers resourceID and action.
// Contexts without an actor are denied.
func (p *Policy) HasPermission(ctx context.Context, resourceID, action string) bool {
	actor := ActorFromContext(ctx)
	if actor == "" {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, grant := range p.grants {
		if grant.Actor != Wildcard && grant.Actor != actor {
			continue
		}
		if !matchResource(grant.Resource, resourceID) {
			continue
		}
		for _, allowed := range grant.Actions {
			if allowed == Wildcard || allowed == action {
				return true
			}
		}
	}
	return false
}

func matchResource(pattern, resourceID string) bool {
	if prefix, ok := strings.CutSuffix(pattern, Wildcard); ok {
		return strings.HasPrefix(resourceID, prefix)
	}
	return pattern == resourceID
}

// FullAccess grants every action on every resource. The CLI runs with it.
type FullAccess struct{}

// HasPermission always returns true.
func (FullAccess) HasPermission(context.Context, string, string) bool {
	return true
}

var _ domainpages.PermissionChecker = FullAccess{}
