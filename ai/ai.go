// Package ai drives automated participants. Every actionable role is
// decided through the DecisionProvider interface, for AI players and
// for deadline auto-resolution of human players alike.
package ai

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/werewolf/models"
	"github.com/wfunc/werewolf/roles"
)

// ErrNoTargets is returned when no legal target exists. Callers log it
// and treat the action as "no effect".
var ErrNoTargets = errors.New("no legal targets")

// DecisionProvider produces a role action from an observable snapshot.
// Implementations must tolerate being called concurrently for
// different games.
type DecisionProvider interface {
	WerewolfTarget(s *models.GameStateSnapshot) (string, error)
	BodyguardTarget(s *models.GameStateSnapshot, selfID string) (string, error)
	DoctorTarget(s *models.GameStateSnapshot, selfID string) (string, error)
	WitchDecision(s *models.GameStateSnapshot, selfID string) (models.WitchDecision, error)
	SeerTarget(s *models.GameStateSnapshot, selfID string) (string, error)
	Vote(s *models.GameStateSnapshot, voterID string) (string, error)
	HunterTarget(s *models.GameStateSnapshot, hunterID string) (string, error)
}

// RandomProvider is the default policy: uniform-random choice among
// legal targets, with the light per-role constraints of the base game.
type RandomProvider struct {
	SelfHealChance float64

	mutex sync.Mutex
	rng   *rand.Rand
}

func NewRandomProvider() *RandomProvider {
	return &RandomProvider{
		SelfHealChance: 0.25,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSeededProvider fixes the randomness source. Tests use this.
func NewSeededProvider(seed int64) *RandomProvider {
	return &RandomProvider{
		SelfHealChance: 0.25,
		rng:            rand.New(rand.NewSource(seed)),
	}
}

func (p *RandomProvider) pick(candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoTargets
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return candidates[p.rng.Intn(len(candidates))], nil
}

func (p *RandomProvider) chance(prob float64) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.rng.Float64() < prob
}

// WerewolfTarget picks a living player not known to be a werewolf.
// The snapshot handed to a werewolf has teammate roles revealed, so
// teammates are excluded.
func (p *RandomProvider) WerewolfTarget(s *models.GameStateSnapshot) (string, error) {
	var candidates []string
	for _, v := range s.Alive() {
		if v.Role != roles.Werewolf {
			candidates = append(candidates, v.ID)
		}
	}
	return p.pick(candidates)
}

// BodyguardTarget excludes the bodyguard and their previous target.
func (p *RandomProvider) BodyguardTarget(s *models.GameStateSnapshot, selfID string) (string, error) {
	var candidates []string
	for _, v := range s.Alive() {
		if v.ID != selfID && v.ID != s.LastProtected {
			candidates = append(candidates, v.ID)
		}
	}
	return p.pick(candidates)
}

// DoctorTarget self-heals with a fixed probability, otherwise protects
// a random living player.
func (p *RandomProvider) DoctorTarget(s *models.GameStateSnapshot, selfID string) (string, error) {
	if p.chance(p.SelfHealChance) {
		return selfID, nil
	}
	var candidates []string
	for _, v := range s.Alive() {
		candidates = append(candidates, v.ID)
	}
	return p.pick(candidates)
}

// WitchDecision prefers healing the werewolves' pending target while a
// heal potion remains, otherwise poisons a random living player.
func (p *RandomProvider) WitchDecision(s *models.GameStateSnapshot, selfID string) (models.WitchDecision, error) {
	if s.HealAvailable && s.PendingWerewolfTarget != "" {
		return models.WitchDecision{Action: models.WitchHeal, TargetID: s.PendingWerewolfTarget}, nil
	}
	if s.KillAvailable {
		var candidates []string
		for _, v := range s.Alive() {
			if v.ID != selfID {
				candidates = append(candidates, v.ID)
			}
		}
		target, err := p.pick(candidates)
		if err != nil {
			return models.WitchDecision{Action: models.WitchNone}, err
		}
		return models.WitchDecision{Action: models.WitchKill, TargetID: target}, nil
	}
	return models.WitchDecision{Action: models.WitchNone}, nil
}

// SeerTarget excludes the seer and players already investigated.
func (p *RandomProvider) SeerTarget(s *models.GameStateSnapshot, selfID string) (string, error) {
	seen := make(map[string]bool, len(s.Investigated))
	for _, id := range s.Investigated {
		seen[id] = true
	}
	var candidates []string
	for _, v := range s.Alive() {
		if v.ID != selfID && !seen[v.ID] {
			candidates = append(candidates, v.ID)
		}
	}
	return p.pick(candidates)
}

// Vote picks a random living player other than the voter, or abstains
// when the game permits it.
func (p *RandomProvider) Vote(s *models.GameStateSnapshot, voterID string) (string, error) {
	var candidates []string
	for _, v := range s.Alive() {
		if v.ID != voterID {
			candidates = append(candidates, v.ID)
		}
	}
	if s.NoLynchAllowed {
		candidates = append(candidates, models.AbstainVote)
	}
	return p.pick(candidates)
}

func (p *RandomProvider) HunterTarget(s *models.GameStateSnapshot, hunterID string) (string, error) {
	var candidates []string
	for _, v := range s.Alive() {
		if v.ID != hunterID {
			candidates = append(candidates, v.ID)
		}
	}
	return p.pick(candidates)
}
