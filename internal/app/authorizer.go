package app

import (
	"fmt"

	"github.com/menza-chat/calld/internal/core"
	"github.com/menza-chat/calld/internal/domain"
)

// Grant is the authorizer's answer for one identity on one call target.
// It is snapshotted into the participant at join time.
type Grant struct {
	Role     domain.Role
	CanSpeak bool
}

// Invite pairs an eligible recipient with its own resolved grant, so the
// adapter can emit a personalized incoming_call per identity.
type Invite struct {
	Identity domain.Identity
	Grant    Grant
}

// Authorizer resolves per-topology call permissions against the Directory.
type Authorizer struct {
	dir core.Directory
}

func NewAuthorizer(dir core.Directory) *Authorizer {
	return &Authorizer{dir: dir}
}

// Resolve decides whether identity may take part in a call on target.
// caller is the session initiator; it only matters for direct calls, where
// the pair {caller, target} is the whole universe of allowed identities.
func (a *Authorizer) Resolve(top domain.Topology, target domain.TargetRef, caller, identity domain.Identity) (Grant, error) {
	switch top {
	case domain.TopologyDirect:
		if identity != caller && identity != domain.Identity(target) {
			return Grant{}, fmt.Errorf("not a party to this call: %w", ErrNotAuthorized)
		}
		return Grant{Role: domain.RoleParticipant, CanSpeak: true}, nil

	case domain.TopologyGroup:
		group, ok := a.dir.Group(target)
		if !ok {
			return Grant{}, fmt.Errorf("group %s: %w", target, ErrNotFound)
		}
		if !group.HasMember(identity) {
			return Grant{}, fmt.Errorf("not a member of this group: %w", ErrNotAuthorized)
		}
		return Grant{Role: domain.RoleParticipant, CanSpeak: true}, nil

	case domain.TopologyChannel:
		channel, ok := a.dir.Channel(target)
		if !ok {
			return Grant{}, fmt.Errorf("channel %s: %w", target, ErrNotFound)
		}
		if !channel.HasSubscriber(identity) {
			return Grant{}, fmt.Errorf("not subscribed to this channel: %w", ErrNotAuthorized)
		}
		role, ok := a.dir.ChannelRole(target, identity)
		if !ok {
			role = domain.RoleMember
		}
		return Grant{Role: role, CanSpeak: role.CanBroadcast()}, nil
	}
	return Grant{}, fmt.Errorf("%w: %q", ErrInvalidParams, top)
}

// Recipients lists every identity eligible for the call other than the
// initiator, each with its own grant.
func (a *Authorizer) Recipients(top domain.Topology, target domain.TargetRef, initiator domain.Identity) ([]Invite, error) {
	switch top {
	case domain.TopologyDirect:
		peer := domain.Identity(target)
		if peer == initiator {
			return nil, nil
		}
		return []Invite{{Identity: peer, Grant: Grant{Role: domain.RoleParticipant, CanSpeak: true}}}, nil

	case domain.TopologyGroup:
		group, ok := a.dir.Group(target)
		if !ok {
			return nil, fmt.Errorf("group %s: %w", target, ErrNotFound)
		}
		out := make([]Invite, 0, len(group.Members))
		for _, m := range group.Members {
			if m == initiator {
				continue
			}
			out = append(out, Invite{Identity: m, Grant: Grant{Role: domain.RoleParticipant, CanSpeak: true}})
		}
		return out, nil

	case domain.TopologyChannel:
		channel, ok := a.dir.Channel(target)
		if !ok {
			return nil, fmt.Errorf("channel %s: %w", target, ErrNotFound)
		}
		out := make([]Invite, 0, len(channel.Subscribers))
		for _, s := range channel.Subscribers {
			if s == initiator {
				continue
			}
			role, ok := a.dir.ChannelRole(target, s)
			if !ok {
				role = domain.RoleMember
			}
			out = append(out, Invite{Identity: s, Grant: Grant{Role: role, CanSpeak: role.CanBroadcast()}})
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidParams, top)
}

// CurrentChannelRole re-reads the live role, bypassing any join-time
// snapshot. Only end-call authorization wants this.
func (a *Authorizer) CurrentChannelRole(target domain.TargetRef, identity domain.Identity) domain.Role {
	role, ok := a.dir.ChannelRole(target, identity)
	if !ok {
		return domain.RoleMember
	}
	return role
}
