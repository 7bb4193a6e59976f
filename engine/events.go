// engine/events.go
package engine

import (
	"github.com/wfunc/werewolf/models"
	"github.com/wfunc/werewolf/roles"
)

// Outbound event payloads. All are marshalled to JSON by the
// broadcaster.

type PhaseChangePayload struct {
	Phase            models.Phase `json:"phase"`
	DurationSeconds  int          `json:"duration_seconds,omitempty"`
	RemainingSeconds int          `json:"remaining_seconds,omitempty"`
}

type TimerUpdatePayload struct {
	Phase            string `json:"phase"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type RoleAssignedPayload struct {
	Role        roles.Role `json:"role"`
	Description string     `json:"description"`
}

type Teammate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type WerewolfTeammatesPayload struct {
	Teammates []Teammate `json:"teammates"`
}

type TurnPayload struct {
	Description      string `json:"description"`
	RemainingSeconds int    `json:"remaining_seconds"`
	// witch only
	PendingTarget string `json:"pending_target,omitempty"`
	HealAvailable bool   `json:"heal_available,omitempty"`
	KillAvailable bool   `json:"kill_available,omitempty"`
}

type AutoActionPayload struct {
	Role     roles.Role `json:"role"`
	TargetID string     `json:"target_id,omitempty"`
}

type SeerResultPayload struct {
	TargetID   string `json:"target_id"`
	TargetName string `json:"target_name"`
	IsWerewolf bool   `json:"is_werewolf"`
}

type VoteRegisteredPayload struct {
	VoterID  string `json:"voter_id"`
	TargetID string `json:"target_id"`
}

type PlayerEliminatedPayload struct {
	PlayerID string     `json:"player_id"`
	Name     string     `json:"name"`
	Role     roles.Role `json:"role"`
	Cause    string     `json:"cause"`
}

type NoLynchPayload struct {
	Reason string `json:"reason"`
}

type VotingStartedPayload struct {
	Candidates       []PlayerInfo `json:"candidates"`
	NoLynchAllowed   bool         `json:"no_lynch_allowed"`
	RemainingSeconds int          `json:"remaining_seconds"`
}

type GameEndedPayload struct {
	Winner  models.Winner `json:"winner"`
	Reason  string        `json:"reason"`
	Players []PlayerInfo  `json:"players"`
}

type PlayerInfo struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	IsAlive     bool       `json:"is_alive"`
	IsAI        bool       `json:"is_ai"`
	IsConnected bool       `json:"is_connected"`
	Role        roles.Role `json:"role,omitempty"` // revealed once dead
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PlayerJoinedPayload struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type PlayerDisconnectedPayload struct {
	PlayerID string `json:"player_id"`
}

// elimination causes
const (
	CauseNight  = "night"
	CauseWitch  = "witch"
	CauseVote   = "vote"
	CauseHunter = "hunter"
)
