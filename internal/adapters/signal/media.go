package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/menza-chat/calld/internal/app"
	"github.com/menza-chat/calld/internal/domain"
)

// handleCallSignal relays an opaque negotiation payload to one peer.
// The relay drops silently when the sender is not a participant; there is
// no acknowledgment either way.
func (ctl *Controller) handleCallSignal(identity domain.Identity, conn *WsConn, data []byte) {
	var p struct {
		Type    string          `json:"type"`
		CallID  string          `json:"call_id"`
		To      string          `json:"to"`
		Kind    string          `json:"kind"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad call_signal payload")
		return
	}
	ctl.Relay.Relay(domain.SessionID(p.CallID), identity, domain.Identity(p.To), p.Kind, p.Payload)
}

func (ctl *Controller) handleToggleMedia(identity domain.Identity, conn *WsConn, data []byte, kind app.MediaKind) {
	var p struct {
		Type    string `json:"type"`
		CallID  string `json:"call_id"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad toggle payload")
		ctl.sendError(conn, app.ErrInvalidParams)
		return
	}
	sid := domain.SessionID(p.CallID)

	if err := ctl.Calls.ToggleMedia(sid, identity, kind, p.Enabled); err != nil {
		ctl.sendError(conn, err)
		return
	}

	evtType := "participant_audio_changed"
	if kind == app.MediaKindVideo {
		evtType = "participant_video_changed"
	}
	sess, ok := ctl.Calls.Get(sid)
	if !ok {
		return
	}
	ctl.broadcast(sess.Participants, "", struct {
		Type     string           `json:"type"`
		CallID   domain.SessionID `json:"call_id"`
		Identity domain.Identity  `json:"identity"`
		Enabled  bool             `json:"enabled"`
	}{evtType, sid, identity, p.Enabled})
}

func (ctl *Controller) handleScreenShare(identity domain.Identity, conn *WsConn, data []byte, start bool) {
	var p struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad screen share payload")
		ctl.sendError(conn, app.ErrInvalidParams)
		return
	}
	sid := domain.SessionID(p.CallID)

	if err := ctl.Calls.ScreenShare(sid, identity, start); err != nil {
		ctl.sendError(conn, err)
		return
	}

	evtType := "screen_share_started"
	if !start {
		evtType = "screen_share_stopped"
	}
	sess, ok := ctl.Calls.Get(sid)
	if !ok {
		return
	}
	ctl.broadcast(sess.Participants, "", struct {
		Type     string           `json:"type"`
		CallID   domain.SessionID `json:"call_id"`
		Identity domain.Identity  `json:"identity"`
	}{evtType, sid, identity})
}
