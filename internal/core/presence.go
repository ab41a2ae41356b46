package core

import (
	"sync"

	"github.com/menza-chat/calld/internal/domain"
	"github.com/rs/zerolog/log"
)

// PresenceRegistry tracks which identities are reachable over which live
// connections. Dual index: connection -> identity and identity -> connection
// set, both mutated atomically under one lock.
type PresenceRegistry struct {
	mu         sync.RWMutex
	byConn     map[ConnID]domain.Identity
	byIdentity map[domain.Identity]map[ConnID]SignalConnection
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		byConn:     make(map[ConnID]domain.Identity),
		byIdentity: make(map[domain.Identity]map[ConnID]SignalConnection),
	}
}

func (p *PresenceRegistry) Register(id domain.Identity, conn SignalConnection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byConn[conn.ID()] = id
	set, ok := p.byIdentity[id]
	if !ok {
		set = make(map[ConnID]SignalConnection)
		p.byIdentity[id] = set
	}
	set[conn.ID()] = conn
	log.Info().Str("module", "core.presence").Str("identity", string(id)).Str("conn", string(conn.ID())).Msg("connection registered")
}

// Unregister removes one connection. Unknown connections are a no-op.
// The second return reports whether the connection was registered at all.
func (p *PresenceRegistry) Unregister(cid ConnID) (domain.Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.byConn[cid]
	if !ok {
		return "", false
	}
	delete(p.byConn, cid)
	if set, ok := p.byIdentity[id]; ok {
		delete(set, cid)
		if len(set) == 0 {
			delete(p.byIdentity, id)
		}
	}
	log.Info().Str("module", "core.presence").Str("identity", string(id)).Str("conn", string(cid)).Msg("connection unregistered")
	return id, true
}

func (p *PresenceRegistry) ConnectionsFor(id domain.Identity) []SignalConnection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set := p.byIdentity[id]
	out := make([]SignalConnection, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

func (p *PresenceRegistry) IsOnline(id domain.Identity) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byIdentity[id]) > 0
}

func (p *PresenceRegistry) OnlineIdentities() []domain.Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Identity, 0, len(p.byIdentity))
	for id := range p.byIdentity {
		out = append(out, id)
	}
	return out
}
