// engine/assign.go
package engine

import (
	"math/rand"

	"github.com/wfunc/werewolf/models"
	"github.com/wfunc/werewolf/roles"
)

// BuildRolePool expands roleCounts into a flat pool of exactly
// playerCount role tokens: short pools are padded with the filler role,
// long pools are truncated by removing uniformly-random entries.
func BuildRolePool(roleCounts map[roles.Role]int, playerCount int, rng *rand.Rand) []roles.Role {
	var pool []roles.Role
	// deterministic expansion order so only the rng shapes the result
	for _, r := range []roles.Role{roles.Werewolf, roles.Villager, roles.Seer, roles.Doctor, roles.Bodyguard, roles.Witch, roles.Hunter} {
		for i := 0; i < roleCounts[r]; i++ {
			pool = append(pool, r)
		}
	}

	for len(pool) < playerCount {
		pool = append(pool, roles.Filler)
	}
	for len(pool) > playerCount {
		i := rng.Intn(len(pool))
		pool = append(pool[:i], pool[i+1:]...)
	}
	return pool
}

// shuffleRoles is an unbiased Fisher–Yates shuffle.
func shuffleRoles(pool []roles.Role, rng *rand.Rand) {
	for i := len(pool) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		pool[i], pool[j] = pool[j], pool[i]
	}
}

// AssignRoles builds, shuffles and assigns the role pool positionally
// to the player list, and hands the witch their potions.
func AssignRoles(players []*models.Player, roleCounts map[roles.Role]int, rng *rand.Rand) {
	pool := BuildRolePool(roleCounts, len(players), rng)
	shuffleRoles(pool, rng)

	for i, p := range players {
		p.Role = pool[i]
		if p.Role == roles.Witch {
			p.Potions = &models.Potions{Heal: true, Kill: true}
		}
	}
}
