package app

import (
	"encoding/json"

	"github.com/menza-chat/calld/internal/core"
	"github.com/menza-chat/calld/internal/domain"
	"github.com/rs/zerolog/log"
)

// SignalEvent is the wire shape of a relayed negotiation payload. The
// payload is opaque: offers, answers and ICE candidates pass through
// verbatim, never inspected.
type SignalEvent struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"call_id"`
	From      domain.Identity  `json:"from"`
	Kind      string           `json:"kind"`
	Payload   json.RawMessage  `json:"payload"`
}

// Relay forwards signaling payloads between two current participants of a
// session, fanning out to every live connection of the destination.
type Relay struct {
	Calls    *Registry
	Presence *core.PresenceRegistry
}

func NewRelay(calls *Registry, presence *core.PresenceRegistry) *Relay {
	return &Relay{Calls: calls, Presence: presence}
}

// Relay delivers the payload to to's connections. Senders that are not
// participants of the session are dropped silently: there is no delivery
// acknowledgment channel to report on, so no error surfaces either way.
// The return value exists for tests and metrics only.
func (r *Relay) Relay(sid domain.SessionID, from, to domain.Identity, kind string, payload json.RawMessage) bool {
	if !r.Calls.IsParticipant(sid, from) {
		metricSignalsDropped.Inc()
		log.Debug().Str("module", "app.relay").Str("call", string(sid)).Str("from", string(from)).Msg("dropped signal from non-participant")
		return false
	}

	evt := SignalEvent{
		Type:      "call_signal",
		SessionID: sid,
		From:      from,
		Kind:      kind,
		Payload:   payload,
	}
	b, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal signal")
		return false
	}
	for _, conn := range r.Presence.ConnectionsFor(to) {
		_ = conn.TrySend(core.Frame(b))
	}
	metricSignalsRelayed.Inc()
	return true
}
