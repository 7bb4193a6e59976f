// Package roles is the static role catalog: identifiers, descriptions
// and per-role night-action capability. It has no dependencies so every
// other package can import it.
package roles

// Role identifies a game role.
type Role string

const (
	Werewolf  Role = "werewolf"
	Villager  Role = "villager"
	Seer      Role = "seer"
	Doctor    Role = "doctor"
	Bodyguard Role = "bodyguard"
	Witch     Role = "witch"
	Hunter    Role = "hunter"
)

// ActionKind describes what kind of night input a role submits.
type ActionKind int

const (
	ActionNone   ActionKind = iota // no night action
	ActionTarget                   // picks a target player
	ActionPotion                   // witch: heal/kill/none with a target
)

// Filler is the role used to pad a short role pool at assignment time.
const Filler = Villager

// NightOrder is the sequence the night pipeline prompts roles in.
// Seer and witch come after the werewolf so they can see the pending
// target before acting.
var NightOrder = []Role{Werewolf, Bodyguard, Doctor, Witch, Seer}

// Description returns the text sent to a player when their role is
// assigned.
func Description(r Role) string {
	switch r {
	case Werewolf:
		return "You are a Werewolf. Each night, choose a villager to eliminate. Work with other werewolves to outnumber the villagers."
	case Villager:
		return "You are a Villager. Use your wit and intuition to identify the werewolves and vote them out during the day."
	case Seer:
		return "You are the Seer. Each night, you can choose one player to learn their true role. Use this information to help the villagers."
	case Doctor:
		return "You are the Doctor. Each night, choose a player to protect. If the werewolves target that player, they will survive."
	case Bodyguard:
		return "You are the Bodyguard. Each night, choose a player to guard. You cannot guard the same player two nights in a row."
	case Witch:
		return "You are the Witch. You hold one healing potion and one poison. Each may be used once per game, at night."
	case Hunter:
		return "You are the Hunter. When you are eliminated, you may take one player down with you."
	default:
		return ""
	}
}

// NightAction returns the kind of night input the role submits.
func NightAction(r Role) ActionKind {
	switch r {
	case Werewolf, Bodyguard, Doctor, Seer:
		return ActionTarget
	case Witch:
		return ActionPotion
	default:
		return ActionNone
	}
}

// Singleton reports whether at most one living player may hold the role.
// Werewolf and villager may repeat.
func Singleton(r Role) bool {
	switch r {
	case Seer, Doctor, Bodyguard, Witch, Hunter:
		return true
	default:
		return false
	}
}

// HasDeathAbility reports whether eliminating the role triggers an
// on-death resolution before the win condition is evaluated.
func HasDeathAbility(r Role) bool {
	return r == Hunter
}

// Valid reports whether r names a catalogued role.
func Valid(r Role) bool {
	switch r {
	case Werewolf, Villager, Seer, Doctor, Bodyguard, Witch, Hunter:
		return true
	default:
		return false
	}
}
