// Package directory is the in-memory implementation of the group and
// channel lookups the call engine consumes. A real deployment would back
// this with the chat service's own store; the engine only ever sees the
// read interface.
package directory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/menza-chat/calld/internal/domain"
	"github.com/rs/zerolog/log"
)

type channelEntry struct {
	channel domain.Channel
	roles   map[domain.Identity]domain.Role
}

type Memory struct {
	mu       sync.RWMutex
	groups   map[domain.TargetRef]*domain.Group
	channels map[domain.TargetRef]*channelEntry
}

func NewMemory() *Memory {
	return &Memory{
		groups:   make(map[domain.TargetRef]*domain.Group),
		channels: make(map[domain.TargetRef]*channelEntry),
	}
}

func (m *Memory) AddGroup(name string, owner domain.Identity, members ...domain.Identity) *domain.Group {
	all := []domain.Identity{owner}
	for _, mem := range members {
		if mem != owner {
			all = append(all, mem)
		}
	}
	g := &domain.Group{
		ID:      domain.TargetRef("group_" + uuid.NewString()),
		Name:    name,
		Owner:   owner,
		Members: all,
	}
	m.mu.Lock()
	m.groups[g.ID] = g
	m.mu.Unlock()
	log.Info().Str("module", "directory").Str("group", string(g.ID)).Str("name", name).Msg("group added")
	out := *g
	return &out
}

// AddChannel creates a channel with the owner subscribed as admin.
func (m *Memory) AddChannel(name string, owner domain.Identity) *domain.Channel {
	e := &channelEntry{
		channel: domain.Channel{
			ID:          domain.TargetRef("channel_" + uuid.NewString()),
			Name:        name,
			Owner:       owner,
			Subscribers: []domain.Identity{owner},
		},
		roles: map[domain.Identity]domain.Role{owner: domain.RoleAdmin},
	}
	m.mu.Lock()
	m.channels[e.channel.ID] = e
	m.mu.Unlock()
	log.Info().Str("module", "directory").Str("channel", string(e.channel.ID)).Str("name", name).Msg("channel added")
	out := e.channel
	return &out
}

// Subscribe adds (or re-roles) a channel subscriber.
func (m *Memory) Subscribe(id domain.TargetRef, who domain.Identity, role domain.Role) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.channels[id]
	if !ok {
		return false
	}
	if !e.channel.HasSubscriber(who) {
		e.channel.Subscribers = append(e.channel.Subscribers, who)
	}
	e.roles[who] = role
	return true
}

func (m *Memory) Group(id domain.TargetRef) (*domain.Group, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[id]
	if !ok {
		return nil, false
	}
	out := *g
	out.Members = append([]domain.Identity(nil), g.Members...)
	return &out, true
}

func (m *Memory) Channel(id domain.TargetRef) (*domain.Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.channels[id]
	if !ok {
		return nil, false
	}
	out := e.channel
	out.Subscribers = append([]domain.Identity(nil), e.channel.Subscribers...)
	return &out, true
}

func (m *Memory) ChannelRole(id domain.TargetRef, who domain.Identity) (domain.Role, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.channels[id]
	if !ok {
		return "", false
	}
	role, ok := e.roles[who]
	return role, ok
}
