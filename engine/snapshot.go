// engine/snapshot.go
package engine

import (
	"github.com/wfunc/werewolf/models"
	"github.com/wfunc/werewolf/roles"
)

// snapshotLocked builds the observable projection for a viewer. Roles
// are revealed only for dead players, for the viewer themselves and,
// when the viewer is a werewolf, for their teammates. An empty viewer
// id produces the spectator view. Caller holds g.mu.
func (g *Game) snapshotLocked(viewerID string) *models.GameStateSnapshot {
	viewer := g.state.FindPlayer(viewerID)
	viewerIsWolf := viewer != nil && viewer.Role == roles.Werewolf

	snap := &models.GameStateSnapshot{
		GameID:         g.state.ID,
		Phase:          g.state.CurrentPhase,
		LastProtected:  g.state.LastProtected,
		Investigated:   append([]string(nil), g.state.Investigated...),
		NoLynchAllowed: g.state.Config.NoLynchAllowed,
	}

	if g.state.NightActions.Werewolf.State == models.SlotResolved {
		snap.PendingWerewolfTarget = g.state.NightActions.Werewolf.TargetID
	}

	for _, p := range g.state.Players {
		view := models.PlayerView{
			ID:      p.ID,
			Name:    p.Name,
			IsAlive: p.IsAlive,
			IsAI:    p.IsAI,
		}
		switch {
		case !p.IsAlive && g.state.Started:
			view.Role = p.Role
		case p.ID == viewerID:
			view.Role = p.Role
		case viewerIsWolf && p.Role == roles.Werewolf:
			view.Role = p.Role
		}
		snap.Players = append(snap.Players, view)

		if p.Role == roles.Witch && p.Potions != nil {
			snap.HealAvailable = p.Potions.Heal
			snap.KillAvailable = p.Potions.Kill
		}
	}

	return snap
}

// Snapshot returns the observable game state for the given viewer.
func (g *Game) Snapshot(viewerID string) *models.GameStateSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked(viewerID)
}
