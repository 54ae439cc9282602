package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-community/backend/internal/auth"
)

type fakeMemberships struct {
	membership *Membership
	err        error
	calls      int
}

func (f *fakeMemberships) GetMembership(ctx context.Context, userID, communityID uuid.UUID) (*Membership, error) {
	f.calls++
	return f.membership, f.err
}

func identity() *auth.Identity {
	return &auth.Identity{UserID: uuid.New()}
}

func TestResolveSuperadminSkipsLookup(t *testing.T) {
	source := &fakeMemberships{}
	resolver := NewResolver(source, nil)

	id := identity()
	id.IsSuperadmin = true

	set, err := resolver.Resolve(context.Background(), id, uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, All(), set)
	assert.Zero(t, source.calls, "superadmin resolution must not hit the membership store")
}

func TestResolveUnparsableCommunityID(t *testing.T) {
	source := &fakeMemberships{membership: &Membership{IsOwner: true}}
	resolver := NewResolver(source, nil)

	set, err := resolver.Resolve(context.Background(), identity(), "not-a-uuid")
	require.NoError(t, err)
	assert.Equal(t, NewSet(PermCommunityView), set)
	assert.Zero(t, source.calls, "unparsable id must not hit the membership store")
}

func TestResolveNonMember(t *testing.T) {
	resolver := NewResolver(&fakeMemberships{}, nil)

	set, err := resolver.Resolve(context.Background(), identity(), uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, NewSet(PermCommunityView), set)
}

func TestResolveOwnerHoldsEverything(t *testing.T) {
	source := &fakeMemberships{membership: &Membership{
		IsOwner: true,
		Roles:   []RoleGrant{{Name: "member", Permissions: []string{"community.view"}}},
	}}
	resolver := NewResolver(source, nil)

	set, err := resolver.Resolve(context.Background(), identity(), uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, All(), set)
}

func TestResolveUnionsRolePermissions(t *testing.T) {
	source := &fakeMemberships{membership: &Membership{
		Status: "active",
		Roles: []RoleGrant{
			{Name: "member", Permissions: []string{"community.view", "post.create"}},
			{Name: "moderator", Permissions: []string{"post.create", "post.moderate", "member.kick"}},
		},
	}}
	resolver := NewResolver(source, nil)

	set, err := resolver.Resolve(context.Background(), identity(), uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, NewSet(PermCommunityView, PermPostCreate, PermPostModerate, PermMemberKick), set)
}

func TestResolveSkipsUnknownTags(t *testing.T) {
	source := &fakeMemberships{membership: &Membership{
		Roles: []RoleGrant{{Name: "member", Permissions: []string{"community.view", "future.capability", ""}}},
	}}
	resolver := NewResolver(source, nil)

	set, err := resolver.Resolve(context.Background(), identity(), uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, NewSet(PermCommunityView), set)
}

func TestResolvePropagatesStoreError(t *testing.T) {
	source := &fakeMemberships{err: errors.New("connection refused")}
	resolver := NewResolver(source, nil)

	_, err := resolver.Resolve(context.Background(), identity(), uuid.New().String())
	require.Error(t, err)
}

func TestAuthorizeAllReportsMissingSorted(t *testing.T) {
	source := &fakeMemberships{membership: &Membership{
		Roles: []RoleGrant{{Name: "member", Permissions: []string{"community.view"}}},
	}}
	resolver := NewResolver(source, nil)

	err := resolver.Authorize(context.Background(), identity(), uuid.New().String(),
		[]Permission{PermRoleManage, PermMemberManage, PermCommunityView}, ModeAll)

	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, []Permission{PermMemberManage, PermRoleManage}, forbidden.Missing)
	assert.Contains(t, forbidden.Error(), "member.manage")
	assert.Contains(t, forbidden.Error(), "role.manage")
}

func TestAuthorizeAnyDenialIsGeneric(t *testing.T) {
	source := &fakeMemberships{membership: &Membership{
		Roles: []RoleGrant{{Name: "member", Permissions: []string{"community.view"}}},
	}}
	resolver := NewResolver(source, nil)

	err := resolver.Authorize(context.Background(), identity(), uuid.New().String(),
		[]Permission{PermMemberKick, PermMemberBan}, ModeAny)

	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Empty(t, forbidden.Missing)
	assert.Equal(t, "insufficient permissions", forbidden.Error())
}

func TestAuthorizeAnyPassesWithOnePermission(t *testing.T) {
	source := &fakeMemberships{membership: &Membership{
		Roles: []RoleGrant{{Name: "moderator", Permissions: []string{"member.kick"}}},
	}}
	resolver := NewResolver(source, nil)

	err := resolver.Authorize(context.Background(), identity(), uuid.New().String(),
		[]Permission{PermMemberKick, PermMemberBan}, ModeAny)
	require.NoError(t, err)
}

func TestAuthorizeDeclared(t *testing.T) {
	resolver := NewResolver(&fakeMemberships{}, nil)

	id := identity()
	id.Permissions = []string{"community.create"}
	require.NoError(t, resolver.AuthorizeDeclared(id, []Permission{PermCommunityCreate}, ModeAll))

	var forbidden *ForbiddenError
	err := resolver.AuthorizeDeclared(identity(), []Permission{PermCommunityCreate}, ModeAll)
	require.ErrorAs(t, err, &forbidden)
}

func TestParse(t *testing.T) {
	p, ok := Parse("post.moderate")
	assert.True(t, ok)
	assert.Equal(t, PermPostModerate, p)

	_, ok = Parse("post.destroy")
	assert.False(t, ok)
}

func TestSetMissingAndContainsAny(t *testing.T) {
	set := NewSet(PermCommunityView, PermPostCreate)

	assert.Empty(t, set.Missing([]Permission{PermCommunityView}))
	assert.Equal(t, []Permission{PermPostDelete}, set.Missing([]Permission{PermPostDelete, PermPostCreate}))
	assert.True(t, set.ContainsAny([]Permission{PermPostDelete, PermPostCreate}))
	assert.False(t, set.ContainsAny([]Permission{PermPostDelete, PermPostModerate}))
}
