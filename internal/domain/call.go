package domain

import "time"

type SessionID string

type MediaMode string

const (
	MediaAudio      MediaMode = "audio"
	MediaAudioVideo MediaMode = "audio_video"
)

func ParseMediaMode(s string) (MediaMode, bool) {
	switch MediaMode(s) {
	case MediaAudio, MediaAudioVideo:
		return MediaMode(s), true
	case "":
		return MediaAudio, true
	}
	return "", false
}

// Participant is one identity currently joined to a session. Role and
// CanSpeak are snapshotted at join time and never re-resolved afterwards.
type Participant struct {
	Identity Identity  `json:"identity"`
	Role     Role      `json:"role"`
	CanSpeak bool      `json:"can_speak"`
	Audio    bool      `json:"audio"`
	Video    bool      `json:"video"`
	JoinedAt time.Time `json:"joined_at"`
}

// Session is an active call. Participants keeps join order; an identity
// appears at most once. Direct sessions never hold more than two.
type Session struct {
	ID           SessionID     `json:"id"`
	Topology     Topology      `json:"topology"`
	Target       TargetRef     `json:"target"`
	Media        MediaMode     `json:"media_mode"`
	StartedBy    Identity      `json:"started_by"`
	StartedAt    time.Time     `json:"started_at"`
	Participants []Participant `json:"participants"`
}

func (s *Session) Participant(id Identity) (Participant, bool) {
	for _, p := range s.Participants {
		if p.Identity == id {
			return p, true
		}
	}
	return Participant{}, false
}

func (s *Session) HasParticipant(id Identity) bool {
	_, ok := s.Participant(id)
	return ok
}

// Clone returns a deep copy safe to hand outside the registry lock.
func (s *Session) Clone() Session {
	out := *s
	out.Participants = append([]Participant(nil), s.Participants...)
	return out
}
