package core

import "github.com/menza-chat/calld/internal/domain"

// Frame is an encoded outbound event, ready for the wire.
type Frame []byte

// ConnID identifies one live connection. An identity may hold several at
// once (multi-device); a connection belongs to exactly one identity.
type ConnID string

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	ID() ConnID
	TrySend(Frame) error
	Close()
}

// Directory is the narrow read interface onto group membership and
// channel subscriber/role data. Lookups must be fast, non-blocking reads.
type Directory interface {
	Group(id domain.TargetRef) (*domain.Group, bool)
	Channel(id domain.TargetRef) (*domain.Channel, bool)
	ChannelRole(id domain.TargetRef, who domain.Identity) (domain.Role, bool)
}
