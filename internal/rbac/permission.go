package rbac

import "sort"

// Permission is a capability tag checked against role assignments. The
// enumeration is closed: permissions are never created or deleted at runtime,
// and unknown strings in stored role sets are inert.
type Permission string

const (
	PermCommunityCreate    Permission = "community.create"
	PermCommunityUpdate    Permission = "community.update"
	PermCommunityDelete    Permission = "community.delete"
	PermCommunityView      Permission = "community.view"
	PermMemberManage       Permission = "member.manage"
	PermMemberKick         Permission = "member.kick"
	PermMemberBan          Permission = "member.ban"
	PermRoleManage         Permission = "role.manage"
	PermPostCreate         Permission = "post.create"
	PermPostUpdate         Permission = "post.update"
	PermPostDelete         Permission = "post.delete"
	PermPostModerate       Permission = "post.moderate"
	PermChannelManage      Permission = "channel.manage"
	PermEventManage        Permission = "event.manage"
	PermSubscriptionManage Permission = "subscription.manage"
	PermAnalyticsView      Permission = "analytics.view"
	PermDonationView       Permission = "donation.view"
)

var allPermissions = []Permission{
	PermCommunityCreate,
	PermCommunityUpdate,
	PermCommunityDelete,
	PermCommunityView,
	PermMemberManage,
	PermMemberKick,
	PermMemberBan,
	PermRoleManage,
	PermPostCreate,
	PermPostUpdate,
	PermPostDelete,
	PermPostModerate,
	PermChannelManage,
	PermEventManage,
	PermSubscriptionManage,
	PermAnalyticsView,
	PermDonationView,
}

var permissionIndex = func() map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(allPermissions))
	for _, p := range allPermissions {
		m[p] = struct{}{}
	}
	return m
}()

// Parse validates a permission tag against the enumeration. Boundary code
// (role create/update) rejects unknown tags; resolution skips them silently
// for forward compatibility with tags written by newer versions.
func Parse(s string) (Permission, bool) {
	p := Permission(s)
	_, ok := permissionIndex[p]
	return p, ok
}

// All returns the full permission enumeration as a set.
func All() Set {
	s := make(Set, len(allPermissions))
	for _, p := range allPermissions {
		s[p] = struct{}{}
	}
	return s
}

// Set is a set of permissions.
type Set map[Permission]struct{}

// NewSet builds a set from the given permissions.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether p is in the set.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// AddKnown adds every tag that parses as a known permission, skipping the
// rest.
func (s Set) AddKnown(tags []string) {
	for _, tag := range tags {
		if p, ok := Parse(tag); ok {
			s[p] = struct{}{}
		}
	}
}

// Missing returns the required permissions not present in the set, sorted
// for stable error messages.
func (s Set) Missing(required []Permission) []Permission {
	var missing []Permission
	for _, p := range required {
		if !s.Has(p) {
			missing = append(missing, p)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

// ContainsAny reports whether any required permission is in the set.
func (s Set) ContainsAny(required []Permission) bool {
	for _, p := range required {
		if s.Has(p) {
			return true
		}
	}
	return false
}
