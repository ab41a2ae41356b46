// Package domain contains entity without logic, just meta-data
package domain

import "errors"

type (
	// Identity is an opaque stable user reference.
	Identity string
	// TargetRef names the entity a call is attached to: the peer identity
	// for direct calls, a group id or a channel id otherwise.
	TargetRef string
	Role      string
)

const (
	RoleCaller      Role = "caller"
	RoleParticipant Role = "participant"
	RoleAdmin       Role = "admin"
	RoleModerator   Role = "moderator"
	RoleMember      Role = "member"
)

// CanBroadcast reports whether a channel role may transmit media.
func (r Role) CanBroadcast() bool {
	return r == RoleAdmin || r == RoleModerator
}

type Topology string

const (
	TopologyDirect  Topology = "direct"
	TopologyGroup   Topology = "group"
	TopologyChannel Topology = "channel"
)

var ErrUnknownTopology = errors.New("unknown call topology")

func ParseTopology(s string) (Topology, error) {
	switch Topology(s) {
	case TopologyDirect, TopologyGroup, TopologyChannel:
		return Topology(s), nil
	}
	return "", ErrUnknownTopology
}

// Group is the Directory's view of a fixed-membership group.
type Group struct {
	ID      TargetRef  `json:"id"`
	Name    string     `json:"name"`
	Owner   Identity   `json:"owner"`
	Members []Identity `json:"members"`
}

func (g *Group) HasMember(id Identity) bool {
	for _, m := range g.Members {
		if m == id {
			return true
		}
	}
	return false
}

// Channel is the Directory's view of a broadcast channel. Per-subscriber
// roles live behind Directory.ChannelRole, not here.
type Channel struct {
	ID          TargetRef  `json:"id"`
	Name        string     `json:"name"`
	Owner       Identity   `json:"owner"`
	Subscribers []Identity `json:"subscribers"`
}

func (c *Channel) HasSubscriber(id Identity) bool {
	for _, s := range c.Subscribers {
		if s == id {
			return true
		}
	}
	return false
}
