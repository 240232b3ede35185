package permissions

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/saiakshat556/farm-data-bridge/internal/models"
	apperrors "github.com/saiakshat556/farm-data-bridge/pkg/errors"
	"github.com/saiakshat556/farm-data-bridge/pkg/metrics"
)

// ErrUnauthorized is returned when the gate denies an action.
var ErrUnauthorized = apperrors.New("permission.unauthorized", "You are not allowed to perform this action", http.StatusForbidden)

// Scope limits a grant to the caller's own records or widens it to every record.
type Scope string

const (
	ScopeOwn Scope = "own"
	ScopeAll Scope = "all"
)

// Covers reports whether s is at least as wide as other.
func (s Scope) Covers(other Scope) bool {
	return s == ScopeAll || s == other
}

// Subject is the identity an authorization decision is made for.
type Subject struct {
	ID   string
	Role models.Role
}

// GateConfig tunes the role grants.
type GateConfig struct {
	// AdminCanReview lets administrators approve and reject submissions.
	AdminCanReview bool
}

// Gate decides what each role may do. Decisions depend only on the role,
// the permission and, for own-scoped grants, who owns the target.
type Gate struct {
	grants map[models.Role]map[string]Scope
}

// NewGate builds a Gate from the role grants and verifies that every grant's
// dependencies are granted to the same role.
func NewGate(cfg GateConfig) (*Gate, error) {
	if err := ValidateDependencies(); err != nil {
		return nil, err
	}

	grants := roleGrants(cfg)
	for role, perms := range grants {
		for id, scope := range perms {
			deps, err := ResolveDependencies(id)
			if err != nil {
				return nil, fmt.Errorf("gate: role %s: %w", role, err)
			}
			for _, dep := range deps {
				depScope, ok := perms[dep]
				if !ok || !depScope.Covers(scope) {
					return nil, fmt.Errorf("gate: role %s grants %s (%s) without %s", role, id, scope, dep)
				}
			}
		}
	}
	return &Gate{grants: grants}, nil
}

// Scope returns how widely subject holds permission.
func (g *Gate) Scope(subject Subject, permission string) (Scope, bool) {
	if g == nil {
		return "", false
	}
	scope, ok := g.grants[subject.Role][permission]
	return scope, ok
}

// CanAccess reports whether subject may exercise permission on a record owned
// by ownerID. An empty ownerID means "any record", which only an all-scoped
// grant satisfies.
func (g *Gate) CanAccess(subject Subject, permission, ownerID string) bool {
	if subject.ID == "" {
		return false
	}
	scope, ok := g.Scope(subject, permission)
	if !ok {
		return false
	}
	if scope == ScopeAll {
		return true
	}
	return ownerID != "" && ownerID == subject.ID
}

// Authorize is CanAccess returning ErrUnauthorized on denial.
func (g *Gate) Authorize(subject Subject, permission, ownerID string) error {
	if g.CanAccess(subject, permission, ownerID) {
		metrics.PermissionChecks.WithLabelValues(permission, "allow").Inc()
		return nil
	}
	metrics.PermissionChecks.WithLabelValues(permission, "deny").Inc()
	return ErrUnauthorized
}

// Permissions lists the permission ids held by role, sorted.
func (g *Gate) Permissions(role models.Role) []string {
	if g == nil {
		return nil
	}
	perms := g.grants[role]
	out := make([]string, 0, len(perms))
	for id := range perms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
