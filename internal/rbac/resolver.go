package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexus-community/backend/internal/auth"
)

// Mode selects how a required permission set is compared against the
// resolved set.
type Mode int

const (
	// ModeAll requires every listed permission; denials report the exact
	// missing permissions.
	ModeAll Mode = iota
	// ModeAny requires at least one listed permission; denials are generic
	// so callers cannot probe which permissions exist.
	ModeAny
)

// RoleGrant is the slice of a role the resolver needs: its permission tags.
type RoleGrant struct {
	Name        string
	Permissions []string
}

// Membership is the snapshot of one user's standing in one community, read
// from the authoritative store. The resolver never mutates it and never
// caches it: authorization always sees committed state.
type Membership struct {
	IsOwner bool
	Status  string
	Roles   []RoleGrant
}

// MembershipSource loads membership snapshots. Implemented by the members
// repository.
type MembershipSource interface {
	GetMembership(ctx context.Context, userID, communityID uuid.UUID) (*Membership, error)
}

// ForbiddenError is an authorization denial. Missing is populated only in
// ModeAll.
type ForbiddenError struct {
	Missing []Permission
}

func (e *ForbiddenError) Error() string {
	if len(e.Missing) == 0 {
		return "insufficient permissions"
	}
	tags := make([]string, len(e.Missing))
	for i, p := range e.Missing {
		tags[i] = string(p)
	}
	return fmt.Sprintf("missing permissions: %s", strings.Join(tags, ", "))
}

// Resolver computes effective permission sets inside a community. Resolution
// is a pure function of (identity, community, membership snapshot); results
// are never cached and denials are never retried.
type Resolver struct {
	memberships MembershipSource
	logger      *zap.Logger
}

// NewResolver creates a permission resolver.
func NewResolver(memberships MembershipSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{memberships: memberships, logger: logger}
}

// Resolve returns the effective permission set for identity inside the
// community identified by communityID:
//
//   - superadmins hold every permission, without a membership lookup;
//   - an unparsable community id is treated as "no membership" (fail closed);
//   - a non-member may view public community data but nothing else;
//   - an owner holds every permission regardless of assigned roles;
//   - otherwise the union of the assigned roles' permission sets, with
//     unknown tags skipped.
func (r *Resolver) Resolve(ctx context.Context, identity *auth.Identity, communityID string) (Set, error) {
	if identity.IsSuperadmin {
		return All(), nil
	}

	id, err := uuid.Parse(communityID)
	if err != nil {
		return NewSet(PermCommunityView), nil
	}

	membership, err := r.memberships.GetMembership(ctx, identity.UserID, id)
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	if membership == nil {
		return NewSet(PermCommunityView), nil
	}
	if membership.IsOwner {
		return All(), nil
	}

	resolved := make(Set)
	for _, role := range membership.Roles {
		resolved.AddKnown(role.Permissions)
	}
	return resolved, nil
}

// ResolveDeclared returns the permission set declared in the identity's own
// claims. Used for operations with no community scope.
func (r *Resolver) ResolveDeclared(identity *auth.Identity) Set {
	if identity.IsSuperadmin {
		return All()
	}
	resolved := make(Set)
	resolved.AddKnown(identity.Permissions)
	return resolved
}

// Authorize checks the required permissions against the resolved set for the
// community. A denial is returned as *ForbiddenError and is never retried.
func (r *Resolver) Authorize(ctx context.Context, identity *auth.Identity, communityID string, required []Permission, mode Mode) error {
	resolved, err := r.Resolve(ctx, identity, communityID)
	if err != nil {
		return err
	}
	return r.check(identity, resolved, required, mode)
}

// AuthorizeDeclared checks required permissions against the identity's
// declared claims, for operations outside any community scope.
func (r *Resolver) AuthorizeDeclared(identity *auth.Identity, required []Permission, mode Mode) error {
	return r.check(identity, r.ResolveDeclared(identity), required, mode)
}

func (r *Resolver) check(identity *auth.Identity, resolved Set, required []Permission, mode Mode) error {
	switch mode {
	case ModeAny:
		if !resolved.ContainsAny(required) {
			return &ForbiddenError{}
		}
	default:
		if missing := resolved.Missing(required); len(missing) > 0 {
			r.logger.Warn("authorization denied",
				zap.String("user_id", identity.UserID.String()),
				zap.Any("missing_permissions", missing))
			return &ForbiddenError{Missing: missing}
		}
	}
	return nil
}
