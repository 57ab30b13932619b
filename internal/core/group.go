package core

import "github.com/samber/lo"

// Group is a named message board with an ordered member list and a message log.
// Not safe for concurrent use; GroupStore serializes access.
type Group struct {
	ID   string
	Name string

	members []string
	index   map[string]struct{}
	log     MessageLog
}

// GroupInfo is the public summary of a group.
type GroupInfo struct {
	ID          string
	Name        string
	MemberCount int
}

// NewGroup constructs a group with no members.
func NewGroup(id, name string) *Group {
	return &Group{
		ID:    id,
		Name:  name,
		index: make(map[string]struct{}),
	}
}

// AddMember inserts a user into the group. Returns true if newly added.
func (g *Group) AddMember(username string) bool {
	if g.HasMember(username) {
		return false
	}
	g.index[username] = struct{}{}
	g.members = append(g.members, username)
	return true
}

// RemoveMember deletes a user from the group. Returns true if removed.
func (g *Group) RemoveMember(username string) bool {
	if !g.HasMember(username) {
		return false
	}
	delete(g.index, username)
	g.members = lo.Without(g.members, username)
	return true
}

// HasMember reports membership.
func (g *Group) HasMember(username string) bool {
	_, ok := g.index[username]
	return ok
}

// Members returns a copy of the member list in join order.
func (g *Group) Members() []string {
	out := make([]string, len(g.members))
	copy(out, g.members)
	return out
}

// MembersExcept returns members other than the given user.
func (g *Group) MembersExcept(username string) []string {
	return lo.Without(g.members, username)
}

// Info summarizes the group.
func (g *Group) Info() GroupInfo {
	return GroupInfo{ID: g.ID, Name: g.Name, MemberCount: len(g.members)}
}
