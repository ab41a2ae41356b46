package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menza-chat/calld/internal/domain"
)

func TestGroupMembership(t *testing.T) {
	m := NewMemory()
	g := m.AddGroup("devs", "alice", "bob", "alice")

	got, ok := m.Group(g.ID)
	require.True(t, ok)
	assert.Equal(t, "devs", got.Name)
	assert.ElementsMatch(t, []domain.Identity{"alice", "bob"}, got.Members, "owner deduplicated")
	assert.True(t, got.HasMember("bob"))
	assert.False(t, got.HasMember("mallory"))

	_, ok = m.Group("group_missing")
	assert.False(t, ok)
}

func TestChannelRoles(t *testing.T) {
	m := NewMemory()
	ch := m.AddChannel("announcements", "alice")

	role, ok := m.ChannelRole(ch.ID, "alice")
	require.True(t, ok)
	assert.Equal(t, domain.RoleAdmin, role)

	require.True(t, m.Subscribe(ch.ID, "bob", domain.RoleModerator))
	require.True(t, m.Subscribe(ch.ID, "carol", domain.RoleMember))

	got, ok := m.Channel(ch.ID)
	require.True(t, ok)
	assert.ElementsMatch(t, []domain.Identity{"alice", "bob", "carol"}, got.Subscribers)

	role, _ = m.ChannelRole(ch.ID, "bob")
	assert.Equal(t, domain.RoleModerator, role)

	// Re-subscribing changes the role, not the subscriber set.
	require.True(t, m.Subscribe(ch.ID, "carol", domain.RoleModerator))
	got, _ = m.Channel(ch.ID)
	assert.Len(t, got.Subscribers, 3)
	role, _ = m.ChannelRole(ch.ID, "carol")
	assert.Equal(t, domain.RoleModerator, role)

	assert.False(t, m.Subscribe("channel_missing", "bob", domain.RoleMember))
}

func TestSnapshotsAreCopies(t *testing.T) {
	m := NewMemory()
	g := m.AddGroup("devs", "alice", "bob")

	got, _ := m.Group(g.ID)
	got.Members[0] = "mallory"

	again, _ := m.Group(g.ID)
	assert.True(t, again.HasMember("alice"), "caller mutation must not leak into the store")
}
