package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/menza-chat/calld/internal/domain"
	"github.com/rs/zerolog/log"
)

// Reasons attached to call_ended notifications.
const (
	ReasonEnded    = "ended"
	ReasonPeerLeft = "peer left"
	ReasonAllLeft  = "all participants left"
	reasonDeclined = "declined"
)

type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

// callState wraps one session with its own mutex so mutations within a
// session are serialized while different sessions proceed independently.
type callState struct {
	mu    sync.Mutex
	ended bool
	sess  domain.Session
}

// Registry owns every active call session and runs the lifecycle state
// machine. Every mutating operation is all-or-nothing: a failed check
// leaves the session exactly as it was.
type Registry struct {
	mu    sync.RWMutex
	calls map[domain.SessionID]*callState
	auth  *Authorizer
}

func NewRegistry(auth *Authorizer) *Registry {
	return &Registry{
		calls: make(map[domain.SessionID]*callState),
		auth:  auth,
	}
}

// state fetches without holding the registry lock past the map read;
// callers then serialize on the per-session mutex.
func (r *Registry) state(sid domain.SessionID) (*callState, bool) {
	r.mu.RLock()
	st, ok := r.calls[sid]
	r.mu.RUnlock()
	return st, ok
}

// removeLocked drops the session from the map. The caller holds st.mu.
func (r *Registry) removeLocked(st *callState, reason string) {
	st.ended = true
	r.mu.Lock()
	delete(r.calls, st.sess.ID)
	r.mu.Unlock()
	metricActiveCalls.Dec()
	metricCallsEnded.WithLabelValues(reason).Inc()
	log.Info().Str("module", "app.registry").Str("call", string(st.sess.ID)).Str("reason", reason).Msg("call removed")
}

type StartResult struct {
	Session domain.Session
	Invites []Invite
}

// Start authorizes the initiator, creates the session with the initiator
// as sole participant and computes the personalized invite fan-out.
func (r *Registry) Start(initiator domain.Identity, top domain.Topology, target domain.TargetRef, media domain.MediaMode) (*StartResult, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: empty target", ErrInvalidParams)
	}
	grant, err := r.auth.Resolve(top, target, initiator, initiator)
	if err != nil {
		return nil, err
	}
	if top == domain.TopologyChannel && !grant.CanSpeak {
		return nil, fmt.Errorf("only admins and moderators can start channel calls: %w", ErrNotAuthorized)
	}
	invites, err := r.auth.Recipients(top, target, initiator)
	if err != nil {
		return nil, err
	}

	role := grant.Role
	if top != domain.TopologyChannel {
		role = domain.RoleCaller
	}
	now := time.Now()
	sess := domain.Session{
		ID:        domain.SessionID("call_" + uuid.NewString()),
		Topology:  top,
		Target:    target,
		Media:     media,
		StartedBy: initiator,
		StartedAt: now,
		Participants: []domain.Participant{{
			Identity: initiator,
			Role:     role,
			CanSpeak: grant.CanSpeak,
			Audio:    true,
			Video:    media == domain.MediaAudioVideo,
			JoinedAt: now,
		}},
	}

	r.mu.Lock()
	r.calls[sess.ID] = &callState{sess: sess}
	r.mu.Unlock()

	metricActiveCalls.Inc()
	metricCallsStarted.WithLabelValues(string(top)).Inc()
	log.Info().Str("module", "app.registry").Str("call", string(sess.ID)).Str("topology", string(top)).Str("initiator", string(initiator)).Msg("call started")
	return &StartResult{Session: sess.Clone(), Invites: invites}, nil
}

// Join adds identity to the session. Video is forced off for participants
// who cannot speak, whatever they asked for.
func (r *Registry) Join(sid domain.SessionID, id domain.Identity, wantVideo bool) (domain.Participant, []domain.Participant, error) {
	st, ok := r.state(sid)
	if !ok {
		return domain.Participant{}, nil, ErrCallEnded
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ended {
		return domain.Participant{}, nil, ErrCallEnded
	}
	if st.sess.HasParticipant(id) {
		return domain.Participant{}, nil, ErrAlreadyJoined
	}
	grant, err := r.auth.Resolve(st.sess.Topology, st.sess.Target, st.sess.StartedBy, id)
	if err != nil {
		return domain.Participant{}, nil, err
	}
	if st.sess.Topology == domain.TopologyDirect && len(st.sess.Participants) >= 2 {
		return domain.Participant{}, nil, fmt.Errorf("call is full: %w", ErrNotAuthorized)
	}

	p := domain.Participant{
		Identity: id,
		Role:     grant.Role,
		CanSpeak: grant.CanSpeak,
		Audio:    grant.CanSpeak,
		Video:    wantVideo && grant.CanSpeak,
		JoinedAt: time.Now(),
	}
	st.sess.Participants = append(st.sess.Participants, p)
	log.Info().Str("module", "app.registry").Str("call", string(sid)).Str("identity", string(id)).Bool("can_speak", p.CanSpeak).Msg("participant joined")
	return p, append([]domain.Participant(nil), st.sess.Participants...), nil
}

type LeaveResult struct {
	Left      bool   // identity actually was a participant
	Ended     bool   // the session was removed
	Reason    string // set when Ended
	Remaining []domain.Participant
}

// Leave removes identity from the session. Idempotent: unknown sessions
// and non-participants are a no-op. Removes the session when it becomes
// empty, or when a direct call drops to one peer.
func (r *Registry) Leave(sid domain.SessionID, id domain.Identity) LeaveResult {
	st, ok := r.state(sid)
	if !ok {
		return LeaveResult{}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ended || !st.sess.HasParticipant(id) {
		return LeaveResult{}
	}

	kept := st.sess.Participants[:0]
	for _, p := range st.sess.Participants {
		if p.Identity != id {
			kept = append(kept, p)
		}
	}
	st.sess.Participants = kept
	remaining := append([]domain.Participant(nil), kept...)
	log.Info().Str("module", "app.registry").Str("call", string(sid)).Str("identity", string(id)).Msg("participant left")

	res := LeaveResult{Left: true, Remaining: remaining}
	switch {
	case len(kept) == 0:
		r.removeLocked(st, ReasonAllLeft)
		res.Ended, res.Reason = true, ReasonAllLeft
	case st.sess.Topology == domain.TopologyDirect && len(kept) == 1:
		r.removeLocked(st, ReasonPeerLeft)
		res.Ended, res.Reason = true, ReasonPeerLeft
	}
	return res
}

// End removes the session for everyone. Allowed for the initiator, or for
// a channel call when the requester's current directory role is admin.
func (r *Registry) End(sid domain.SessionID, requester domain.Identity) ([]domain.Participant, error) {
	st, ok := r.state(sid)
	if !ok {
		return nil, ErrCallEnded
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ended {
		return nil, ErrCallEnded
	}

	canEnd := requester == st.sess.StartedBy
	if !canEnd && st.sess.Topology == domain.TopologyChannel {
		canEnd = r.auth.CurrentChannelRole(st.sess.Target, requester) == domain.RoleAdmin
	}
	if !canEnd {
		return nil, fmt.Errorf("only the caller can end this call: %w", ErrNotAuthorized)
	}

	remaining := append([]domain.Participant(nil), st.sess.Participants...)
	r.removeLocked(st, ReasonEnded)
	return remaining, nil
}

type DeclineResult struct {
	Ended        bool
	Participants []domain.Participant
}

// Decline is asymmetric by design: a declined direct call is torn down for
// the remaining peer, while group and channel declines mutate nothing and
// only feed the call_declined notification.
func (r *Registry) Decline(sid domain.SessionID, id domain.Identity) (DeclineResult, error) {
	st, ok := r.state(sid)
	if !ok {
		return DeclineResult{}, ErrCallEnded
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ended {
		return DeclineResult{}, ErrCallEnded
	}

	participants := append([]domain.Participant(nil), st.sess.Participants...)
	if st.sess.Topology == domain.TopologyDirect {
		r.removeLocked(st, reasonDeclined)
		log.Info().Str("module", "app.registry").Str("call", string(sid)).Str("identity", string(id)).Msg("direct call declined")
		return DeclineResult{Ended: true, Participants: participants}, nil
	}
	return DeclineResult{Participants: participants}, nil
}

// ToggleMedia flips one media flag. Enabling requires the join-time
// can_speak snapshot; disabling is always permitted.
func (r *Registry) ToggleMedia(sid domain.SessionID, id domain.Identity, kind MediaKind, enabled bool) error {
	st, ok := r.state(sid)
	if !ok {
		return ErrCallEnded
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ended {
		return ErrCallEnded
	}

	for i := range st.sess.Participants {
		p := &st.sess.Participants[i]
		if p.Identity != id {
			continue
		}
		if enabled && !p.CanSpeak {
			if kind == MediaKindAudio {
				return fmt.Errorf("listeners cannot unmute: %w", ErrNoPermission)
			}
			return fmt.Errorf("listeners cannot share video: %w", ErrNoPermission)
		}
		if kind == MediaKindAudio {
			p.Audio = enabled
		} else {
			p.Video = enabled
		}
		return nil
	}
	return fmt.Errorf("not in this call: %w", ErrNotAuthorized)
}

// ScreenShare gates start on can_speak; stop is unconditional.
func (r *Registry) ScreenShare(sid domain.SessionID, id domain.Identity, start bool) error {
	st, ok := r.state(sid)
	if !ok {
		return ErrCallEnded
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ended {
		return ErrCallEnded
	}
	if !start {
		return nil
	}
	p, ok := st.sess.Participant(id)
	if !ok || !p.CanSpeak {
		return fmt.Errorf("you cannot share screen: %w", ErrNoPermission)
	}
	return nil
}

// FindActive scans for a live session on the given topology and target.
// Linear over active calls, which stays small.
func (r *Registry) FindActive(top domain.Topology, target domain.TargetRef) (*domain.Session, bool) {
	r.mu.RLock()
	states := make([]*callState, 0, len(r.calls))
	for _, st := range r.calls {
		states = append(states, st)
	}
	r.mu.RUnlock()

	for _, st := range states {
		st.mu.Lock()
		match := !st.ended && st.sess.Topology == top
		if match {
			if top == domain.TopologyDirect {
				match = st.sess.Target == target || st.sess.StartedBy == domain.Identity(target)
			} else {
				match = st.sess.Target == target
			}
		}
		if match {
			out := st.sess.Clone()
			st.mu.Unlock()
			return &out, true
		}
		st.mu.Unlock()
	}
	return nil, false
}

// Get returns a snapshot of one session.
func (r *Registry) Get(sid domain.SessionID) (domain.Session, bool) {
	st, ok := r.state(sid)
	if !ok {
		return domain.Session{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ended {
		return domain.Session{}, false
	}
	return st.sess.Clone(), true
}

// IsParticipant reports whether id is currently joined to sid.
func (r *Registry) IsParticipant(sid domain.SessionID, id domain.Identity) bool {
	st, ok := r.state(sid)
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return !st.ended && st.sess.HasParticipant(id)
}

// SessionsOf lists every session the identity participates in. The
// disconnect path leaves each of them when the last connection closes.
func (r *Registry) SessionsOf(id domain.Identity) []domain.SessionID {
	r.mu.RLock()
	states := make([]*callState, 0, len(r.calls))
	for _, st := range r.calls {
		states = append(states, st)
	}
	r.mu.RUnlock()

	var out []domain.SessionID
	for _, st := range states {
		st.mu.Lock()
		if !st.ended && st.sess.HasParticipant(id) {
			out = append(out, st.sess.ID)
		}
		st.mu.Unlock()
	}
	return out
}

// Len reports the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.calls)
}
