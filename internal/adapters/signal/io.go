package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/menza-chat/calld/internal/core"
	"github.com/menza-chat/calld/internal/domain"
)

func (ctl *Controller) writePump(ctx context.Context, c *WsConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, identity domain.Identity, c *WsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("identity", string(identity)).Msg("readPump closing")
		cancel()
		ctl.Presence.Unregister(c.ID())
		// Other live devices keep the identity present; only the last
		// connection closing pulls it out of every call.
		if !ctl.Presence.IsOnline(identity) {
			ctl.leaveAll(identity)
		}
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("identity", string(identity)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("identity", string(identity)).Msg("readPump read error")
				return
			}
			ctl.handleEvent(identity, c, data)
		}
	}
}

func (ctl *Controller) handleEvent(identity domain.Identity, c *WsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "start_call":
		ctl.handleStartCall(identity, c, data)
	case "join_call":
		ctl.handleJoinCall(identity, c, data)
	case "call_signal":
		ctl.handleCallSignal(identity, c, data)
	case "toggle_audio":
		ctl.handleToggleMedia(identity, c, data, "audio")
	case "toggle_video":
		ctl.handleToggleMedia(identity, c, data, "video")
	case "start_screen_share":
		ctl.handleScreenShare(identity, c, data, true)
	case "stop_screen_share":
		ctl.handleScreenShare(identity, c, data, false)
	case "leave_call":
		ctl.handleLeaveCall(identity, c, data)
	case "end_call":
		ctl.handleEndCall(identity, c, data)
	case "decline_call":
		ctl.handleDeclineCall(identity, c, data)
	case "get_active_call":
		ctl.handleGetActiveCall(identity, c, data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
	}
}

func (ctl *Controller) marshal(v any) (core.Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal event")
		return nil, false
	}
	return core.Frame(b), true
}

func (ctl *Controller) sendJSON(c *WsConn, v any) {
	b, ok := ctl.marshal(v)
	if !ok {
		return
	}
	_ = c.TrySend(b)
}

// sendError surfaces an operation failure to the originating connection
// only; no other session or connection is affected.
func (ctl *Controller) sendError(c *WsConn, err error) {
	ctl.sendJSON(c, map[string]any{
		"type":  "call_error",
		"error": err.Error(),
	})
}
