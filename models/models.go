// models/models.go
package models

import (
	"time"

	"github.com/wfunc/werewolf/roles"
)

// Phase 游戏阶段
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseNight      Phase = "night"
	PhaseDiscussion Phase = "day-discussion"
	PhaseVoting     Phase = "voting"
	PhaseEnded      Phase = "ended"
)

// Winner 胜利方
type Winner string

const (
	WinnerNone       Winner = "none"
	WinnerVillagers  Winner = "villagers"
	WinnerWerewolves Winner = "werewolves"
	WinnerDraw       Winner = "draw"
)

// AbstainVote is the sentinel vote target meaning "eliminate no one".
// Only accepted when the game allows no-lynch votes.
const AbstainVote = "abstain"

// SlotState distinguishes "not yet acted" from "explicitly skipped"
// from "acted". A disconnect synthesizes Skipped so the night pipeline
// is never re-triggered for that role.
type SlotState int

const (
	SlotPending SlotState = iota
	SlotSkipped
	SlotResolved
)

// ActionSlot is one night-action slot for a target-picking role.
type ActionSlot struct {
	State    SlotState `json:"state"`
	TargetID string    `json:"target_id,omitempty"`
	Auto     bool      `json:"auto,omitempty"`
}

// Filled reports whether the slot no longer blocks the night pipeline.
func (s ActionSlot) Filled() bool { return s.State != SlotPending }

// WitchAction 女巫行动类型
type WitchAction string

const (
	WitchHeal WitchAction = "heal"
	WitchKill WitchAction = "kill"
	WitchNone WitchAction = "none"
)

// WitchDecision is the structured payload of the witch's night action.
type WitchDecision struct {
	Action   WitchAction `json:"action"`
	TargetID string      `json:"target_id,omitempty"`
}

// WitchSlot is the witch's night-action slot.
type WitchSlot struct {
	State    SlotState     `json:"state"`
	Decision WitchDecision `json:"decision"`
	Auto     bool          `json:"auto,omitempty"`
}

func (s WitchSlot) Filled() bool { return s.State != SlotPending }

// NightActions holds one slot per role that acts at night. It is
// cleared at the start of every night phase.
type NightActions struct {
	Werewolf  ActionSlot `json:"werewolf"`
	Bodyguard ActionSlot `json:"bodyguard"`
	Doctor    ActionSlot `json:"doctor"`
	Witch     WitchSlot  `json:"witch"`
	Seer      ActionSlot `json:"seer"`
}

// Reset returns every slot to Pending.
func (n *NightActions) Reset() {
	*n = NightActions{}
}

// Potions tracks the witch's single-use potions.
type Potions struct {
	Heal bool `json:"heal"`
	Kill bool `json:"kill"`
}

// Player 玩家
type Player struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id,omitempty"` // empty for AI players
	Name        string     `json:"name"`
	IsAI        bool       `json:"is_ai"`
	IsAlive     bool       `json:"is_alive"`
	IsConnected bool       `json:"is_connected"`
	Role        roles.Role `json:"role,omitempty"` // unset until the game starts
	Potions     *Potions   `json:"potions,omitempty"`
	Address     string     `json:"-"` // opaque transport address for private sends
}

// GameConfig is the per-game configuration fixed at creation time.
type GameConfig struct {
	NightMs        int                `json:"night_ms"`
	DiscussionMs   int                `json:"discussion_ms"`
	VotingMs       int                `json:"voting_ms"`
	HunterMs       int                `json:"hunter_ms"`
	NoLynchAllowed bool               `json:"no_lynch"`
	AutoResolve    bool               `json:"auto_resolve"`
	AIPlayers      int                `json:"ai_players"`
	MinPlayers     int                `json:"min_players"`
	RoleCounts     map[roles.Role]int `json:"role_counts"`
}

func (c GameConfig) NightDuration() time.Duration      { return time.Duration(c.NightMs) * time.Millisecond }
func (c GameConfig) DiscussionDuration() time.Duration { return time.Duration(c.DiscussionMs) * time.Millisecond }
func (c GameConfig) VotingDuration() time.Duration     { return time.Duration(c.VotingMs) * time.Millisecond }
func (c GameConfig) HunterDuration() time.Duration     { return time.Duration(c.HunterMs) * time.Millisecond }

// ChatMessage 聊天消息
type ChatMessage struct {
	PlayerID      string    `json:"player_id"`
	Username      string    `json:"username"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	IsWhisper     bool      `json:"is_whisper,omitempty"`
	WhisperTarget string    `json:"whisper_target,omitempty"`
}

// MaxChatHistory bounds the chat lines that survive a reload.
const MaxChatHistory = 100

// GameSession 游戏会话聚合根
type GameSession struct {
	ID              string        `json:"id"`
	Started         bool          `json:"started"`
	Ended           bool          `json:"ended"`
	Winner          Winner        `json:"winner"`
	CurrentPhase    Phase         `json:"current_phase"`
	Players         []*Player     `json:"players"`
	NightActions    NightActions  `json:"night_actions"`
	Votes           map[string]string `json:"votes"`
	PhaseStartedAt  time.Time     `json:"phase_started_at"`
	PhaseDurationMs int64         `json:"phase_duration_ms"`
	Messages        []ChatMessage `json:"messages"`
	Config          GameConfig    `json:"config"`
	LastProtected   string        `json:"last_protected,omitempty"`
	Investigated    []string      `json:"investigated,omitempty"`
	StartedAt       time.Time     `json:"started_at,omitempty"`
	EndedAt         time.Time     `json:"ended_at,omitempty"`
}

// FindPlayer returns the player with the given id, or nil.
func (g *GameSession) FindPlayer(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AlivePlayers returns the living players.
func (g *GameSession) AlivePlayers() []*Player {
	var alive []*Player
	for _, p := range g.Players {
		if p.IsAlive {
			alive = append(alive, p)
		}
	}
	return alive
}

// AliveWithRole returns the living players holding the role.
func (g *GameSession) AliveWithRole(r roles.Role) []*Player {
	var out []*Player
	for _, p := range g.Players {
		if p.IsAlive && p.Role == r {
			out = append(out, p)
		}
	}
	return out
}
