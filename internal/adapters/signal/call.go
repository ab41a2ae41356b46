package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/menza-chat/calld/internal/app"
	"github.com/menza-chat/calld/internal/domain"
)

type callStartedEvent struct {
	Type string         `json:"type"`
	Call domain.Session `json:"call"`
}

type incomingCallEvent struct {
	Type      string           `json:"type"`
	CallID    domain.SessionID `json:"call_id"`
	Topology  domain.Topology  `json:"topology"`
	TargetID  domain.TargetRef `json:"target_id"`
	Caller    domain.Identity  `json:"caller"`
	MediaMode domain.MediaMode `json:"media_mode"`
	YourRole  domain.Role      `json:"your_role"`
	CanSpeak  bool             `json:"can_speak"`
}

type callEndedEvent struct {
	Type    string           `json:"type"`
	CallID  domain.SessionID `json:"call_id"`
	Reason  string           `json:"reason"`
	EndedBy domain.Identity  `json:"ended_by,omitempty"`
}

func (ctl *Controller) handleStartCall(identity domain.Identity, conn *WsConn, data []byte) {
	var p struct {
		Type      string `json:"type"`
		Topology  string `json:"topology"`
		TargetID  string `json:"target_id"`
		MediaMode string `json:"media_mode"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad start_call payload")
		ctl.sendError(conn, app.ErrInvalidParams)
		return
	}
	top, err := domain.ParseTopology(p.Topology)
	if err != nil || p.TargetID == "" {
		ctl.sendError(conn, app.ErrInvalidParams)
		return
	}
	media, ok := domain.ParseMediaMode(p.MediaMode)
	if !ok {
		ctl.sendError(conn, app.ErrInvalidParams)
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(identity) {
		ctl.sendError(conn, errors.New("rate limited"))
		return
	}

	res, err := ctl.Calls.Start(identity, top, domain.TargetRef(p.TargetID), media)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}

	ctl.sendJSON(conn, callStartedEvent{Type: "call_started", Call: res.Session})

	// One personalized incoming_call per eligible recipient, carrying the
	// recipient's own resolved role.
	for _, inv := range res.Invites {
		ctl.emitTo(inv.Identity, incomingCallEvent{
			Type:      "incoming_call",
			CallID:    res.Session.ID,
			Topology:  res.Session.Topology,
			TargetID:  res.Session.Target,
			Caller:    identity,
			MediaMode: res.Session.Media,
			YourRole:  inv.Grant.Role,
			CanSpeak:  inv.Grant.CanSpeak,
		})
	}
}

func (ctl *Controller) handleJoinCall(identity domain.Identity, conn *WsConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
		Video  bool   `json:"video"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join_call payload")
		ctl.sendError(conn, app.ErrInvalidParams)
		return
	}
	sid := domain.SessionID(p.CallID)

	joined, participants, err := ctl.Calls.Join(sid, identity, p.Video)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	sess, _ := ctl.Calls.Get(sid)

	ctl.sendJSON(conn, struct {
		Type         string               `json:"type"`
		CallID       domain.SessionID     `json:"call_id"`
		Topology     domain.Topology      `json:"topology"`
		MediaMode    domain.MediaMode     `json:"media_mode"`
		CanSpeak     bool                 `json:"can_speak"`
		Participants []domain.Participant `json:"participants"`
	}{"call_joined", sid, sess.Topology, sess.Media, joined.CanSpeak, participants})

	ctl.broadcast(participants, identity, struct {
		Type        string             `json:"type"`
		CallID      domain.SessionID   `json:"call_id"`
		Participant domain.Participant `json:"participant"`
	}{"participant_joined", sid, joined})
}

// doLeave runs one leave and its notifications; shared between the
// leave_call event and the last-connection disconnect path.
func (ctl *Controller) doLeave(sid domain.SessionID, identity domain.Identity) {
	res := ctl.Calls.Leave(sid, identity)
	if !res.Left {
		return
	}
	ctl.broadcast(res.Remaining, "", struct {
		Type     string           `json:"type"`
		CallID   domain.SessionID `json:"call_id"`
		Identity domain.Identity  `json:"identity"`
	}{"participant_left", sid, identity})

	if res.Ended {
		ctl.broadcast(res.Remaining, "", callEndedEvent{
			Type:   "call_ended",
			CallID: sid,
			Reason: res.Reason,
		})
	}
}

func (ctl *Controller) leaveAll(identity domain.Identity) {
	for _, sid := range ctl.Calls.SessionsOf(identity) {
		ctl.doLeave(sid, identity)
	}
}

func (ctl *Controller) handleLeaveCall(identity domain.Identity, conn *WsConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad leave_call payload")
		ctl.sendError(conn, app.ErrInvalidParams)
		return
	}
	ctl.doLeave(domain.SessionID(p.CallID), identity)
}

func (ctl *Controller) handleEndCall(identity domain.Identity, conn *WsConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad end_call payload")
		ctl.sendError(conn, app.ErrInvalidParams)
		return
	}
	sid := domain.SessionID(p.CallID)

	remaining, err := ctl.Calls.End(sid, identity)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.broadcast(remaining, "", callEndedEvent{
		Type:    "call_ended",
		CallID:  sid,
		Reason:  app.ReasonEnded,
		EndedBy: identity,
	})
}

func (ctl *Controller) handleDeclineCall(identity domain.Identity, conn *WsConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad decline_call payload")
		ctl.sendError(conn, app.ErrInvalidParams)
		return
	}
	sid := domain.SessionID(p.CallID)

	res, err := ctl.Calls.Decline(sid, identity)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.broadcast(res.Participants, "", struct {
		Type       string           `json:"type"`
		CallID     domain.SessionID `json:"call_id"`
		DeclinedBy domain.Identity  `json:"declined_by"`
	}{"call_declined", sid, identity})
}

func (ctl *Controller) handleGetActiveCall(identity domain.Identity, conn *WsConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		Topology string `json:"topology"`
		TargetID string `json:"target_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad get_active_call payload")
		ctl.sendError(conn, app.ErrInvalidParams)
		return
	}
	top, err := domain.ParseTopology(p.Topology)
	if err != nil {
		ctl.sendError(conn, app.ErrInvalidParams)
		return
	}

	if sess, ok := ctl.Calls.FindActive(top, domain.TargetRef(p.TargetID)); ok {
		ctl.sendJSON(conn, struct {
			Type string         `json:"type"`
			Call domain.Session `json:"call"`
		}{"active_call_found", *sess})
		return
	}
	ctl.sendJSON(conn, struct {
		Type     string          `json:"type"`
		Topology domain.Topology `json:"topology"`
		TargetID string          `json:"target_id"`
	}{"no_active_call", top, p.TargetID})
}
