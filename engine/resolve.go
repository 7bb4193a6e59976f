// engine/resolve.go
package engine

import (
	"github.com/wfunc/werewolf/models"
	"github.com/wfunc/werewolf/roles"
)

// Elimination is one pending kill with its cause.
type Elimination struct {
	PlayerID string
	Cause    string
}

// NightOutcome is the result of resolving one night's collected
// actions. It is computed without side effects; the caller applies
// eliminations, consumes potions and reveals the investigation.
type NightOutcome struct {
	Eliminations []Elimination // werewolf victim first when both land
	SavedBy      roles.Role
	HealConsumed bool
	KillConsumed bool
	SeerTarget   string
}

// ResolveNight applies the fixed resolution order: werewolf target,
// bodyguard cancel, doctor cancel, witch heal, witch kill, seer
// reveal. The witch kill is an independent second elimination; the
// heal potion is consumed whenever it was aimed at the werewolf
// target, even one already cancelled by a protector.
func ResolveNight(actions models.NightActions) NightOutcome {
	var out NightOutcome

	wolfTarget := ""
	if actions.Werewolf.State == models.SlotResolved {
		wolfTarget = actions.Werewolf.TargetID
	}
	pending := wolfTarget

	if pending != "" && actions.Bodyguard.State == models.SlotResolved && actions.Bodyguard.TargetID == pending {
		pending = ""
		out.SavedBy = roles.Bodyguard
	} else if pending != "" && actions.Doctor.State == models.SlotResolved && actions.Doctor.TargetID == pending {
		pending = ""
		out.SavedBy = roles.Doctor
	}

	if actions.Witch.State == models.SlotResolved {
		decision := actions.Witch.Decision
		switch decision.Action {
		case models.WitchHeal:
			if wolfTarget != "" && decision.TargetID == wolfTarget {
				out.HealConsumed = true
				if pending == wolfTarget {
					pending = ""
					out.SavedBy = roles.Witch
				}
			}
		case models.WitchKill:
			if decision.TargetID != "" {
				out.KillConsumed = true
				if pending != "" {
					out.Eliminations = append(out.Eliminations, Elimination{PlayerID: pending, Cause: CauseNight})
					pending = ""
				}
				duplicate := false
				for _, e := range out.Eliminations {
					if e.PlayerID == decision.TargetID {
						duplicate = true
					}
				}
				if !duplicate {
					out.Eliminations = append(out.Eliminations, Elimination{PlayerID: decision.TargetID, Cause: CauseWitch})
				}
			}
		}
	}

	if pending != "" {
		out.Eliminations = append([]Elimination{{PlayerID: pending, Cause: CauseNight}}, out.Eliminations...)
	}

	if actions.Seer.State == models.SlotResolved {
		out.SeerTarget = actions.Seer.TargetID
	}

	return out
}

// CheckWin evaluates the win condition over the roster. It returns
// WinnerNone while the game should continue.
func CheckWin(players []*models.Player) models.Winner {
	alive := 0
	wolves := 0
	for _, p := range players {
		if !p.IsAlive {
			continue
		}
		alive++
		if p.Role == roles.Werewolf {
			wolves++
		}
	}

	switch {
	case wolves == 0:
		return models.WinnerVillagers
	case wolves >= alive-wolves:
		return models.WinnerWerewolves
	case alive < 2:
		return models.WinnerDraw
	default:
		return models.WinnerNone
	}
}
