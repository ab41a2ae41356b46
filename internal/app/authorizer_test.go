package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menza-chat/calld/internal/directory"
	"github.com/menza-chat/calld/internal/domain"
)

func TestResolveDirect(t *testing.T) {
	a := NewAuthorizer(directory.NewMemory())

	grant, err := a.Resolve(domain.TopologyDirect, "bob", "alice", "alice")
	require.NoError(t, err)
	assert.True(t, grant.CanSpeak)

	grant, err = a.Resolve(domain.TopologyDirect, "bob", "alice", "bob")
	require.NoError(t, err)
	assert.True(t, grant.CanSpeak)

	_, err = a.Resolve(domain.TopologyDirect, "bob", "alice", "mallory")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestResolveGroup(t *testing.T) {
	dir := directory.NewMemory()
	g := dir.AddGroup("devs", "alice", "bob")
	a := NewAuthorizer(dir)

	grant, err := a.Resolve(domain.TopologyGroup, g.ID, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, grant.CanSpeak)
	assert.Equal(t, domain.RoleParticipant, grant.Role)

	_, err = a.Resolve(domain.TopologyGroup, g.ID, "alice", "mallory")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = a.Resolve(domain.TopologyGroup, "group_missing", "alice", "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveChannel(t *testing.T) {
	dir := directory.NewMemory()
	ch := dir.AddChannel("news", "alice")
	dir.Subscribe(ch.ID, "mod", domain.RoleModerator)
	dir.Subscribe(ch.ID, "viewer", domain.RoleMember)
	a := NewAuthorizer(dir)

	grant, err := a.Resolve(domain.TopologyChannel, ch.ID, "alice", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, grant.Role)
	assert.True(t, grant.CanSpeak)

	grant, err = a.Resolve(domain.TopologyChannel, ch.ID, "alice", "mod")
	require.NoError(t, err)
	assert.True(t, grant.CanSpeak)

	grant, err = a.Resolve(domain.TopologyChannel, ch.ID, "alice", "viewer")
	require.NoError(t, err)
	assert.False(t, grant.CanSpeak, "plain subscribers listen only")

	_, err = a.Resolve(domain.TopologyChannel, ch.ID, "alice", "stranger")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = a.Resolve(domain.TopologyChannel, "channel_missing", "alice", "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecipientsPersonalized(t *testing.T) {
	dir := directory.NewMemory()
	ch := dir.AddChannel("news", "alice")
	dir.Subscribe(ch.ID, "mod", domain.RoleModerator)
	dir.Subscribe(ch.ID, "viewer", domain.RoleMember)
	a := NewAuthorizer(dir)

	invites, err := a.Recipients(domain.TopologyChannel, ch.ID, "alice")
	require.NoError(t, err)
	require.Len(t, invites, 2, "initiator excluded")

	byID := map[domain.Identity]Grant{}
	for _, inv := range invites {
		byID[inv.Identity] = inv.Grant
	}
	assert.True(t, byID["mod"].CanSpeak)
	assert.Equal(t, domain.RoleModerator, byID["mod"].Role)
	assert.False(t, byID["viewer"].CanSpeak)
}

func TestRecipientsDirect(t *testing.T) {
	a := NewAuthorizer(directory.NewMemory())

	invites, err := a.Recipients(domain.TopologyDirect, "bob", "alice")
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, domain.Identity("bob"), invites[0].Identity)
	assert.True(t, invites[0].Grant.CanSpeak)
}
