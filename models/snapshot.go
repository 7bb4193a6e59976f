// models/snapshot.go
package models

import (
	"github.com/wfunc/werewolf/roles"
)

// PlayerView is one roster entry in a snapshot. Role is populated only
// for dead players, for the viewer themselves, or before the game has
// hidden roles (never for living non-self players).
type PlayerView struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	IsAlive bool       `json:"is_alive"`
	IsAI    bool       `json:"is_ai"`
	Role    roles.Role `json:"role,omitempty"`
}

// GameStateSnapshot is the read-only projection handed to the decision
// provider and to spectators. It is derived, never persisted.
type GameStateSnapshot struct {
	GameID                string       `json:"game_id"`
	Phase                 Phase        `json:"phase"`
	Players               []PlayerView `json:"players"`
	PendingWerewolfTarget string       `json:"pending_werewolf_target,omitempty"`
	LastProtected         string       `json:"last_protected,omitempty"`
	Investigated          []string     `json:"investigated,omitempty"`
	NoLynchAllowed        bool         `json:"no_lynch_allowed"`
	HealAvailable         bool         `json:"heal_available"`
	KillAvailable         bool         `json:"kill_available"`
}

// Alive returns the living roster entries.
func (s *GameStateSnapshot) Alive() []PlayerView {
	var out []PlayerView
	for _, p := range s.Players {
		if p.IsAlive {
			out = append(out, p)
		}
	}
	return out
}
