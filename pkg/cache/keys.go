package cache

import "fmt"

// Keys derives cache keys deterministically from entity type and id. Every
// read path and its invalidating write path must build keys through the same
// method so invalidation hits exactly the entries a mutation may have changed.
type Keys struct {
	prefix string
}

// NewKeys creates a key builder with the configured prefix.
func NewKeys(prefix string) Keys {
	return Keys{prefix: prefix}
}

func (k Keys) Community(id string) string {
	return fmt.Sprintf("%scommunity:%s", k.prefix, id)
}

func (k Keys) CommunityList(page, pageSize int) string {
	return fmt.Sprintf("%scommunities:list:%d:%d", k.prefix, page, pageSize)
}

func (k Keys) CommunityMembers(id string, page int) string {
	return fmt.Sprintf("%scommunity:%s:members:%d", k.prefix, id, page)
}

func (k Keys) CommunityPosts(id string, page int) string {
	return fmt.Sprintf("%scommunity:%s:posts:%d", k.prefix, id, page)
}

func (k Keys) CommunityRoles(id string) string {
	return fmt.Sprintf("%scommunity:%s:roles", k.prefix, id)
}

func (k Keys) CommunityAnalytics(id string) string {
	return fmt.Sprintf("%scommunity:%s:analytics", k.prefix, id)
}

func (k Keys) PostAnalytics(id string) string {
	return fmt.Sprintf("%spost:%s:analytics", k.prefix, id)
}

func (k Keys) MemberAnalytics(userID string) string {
	return fmt.Sprintf("%smember:%s:analytics", k.prefix, userID)
}

func (k Keys) TopDonors(id string) string {
	return fmt.Sprintf("%scommunity:%s:top_donors", k.prefix, id)
}

// CommunityPattern matches every cached artifact keyed under one community.
// Used for tenant-scoped invalidation when the blast radius spans multiple
// derived views (e.g. community delete).
func (k Keys) CommunityPattern(id string) string {
	return fmt.Sprintf("%scommunity:%s:*", k.prefix, id)
}
