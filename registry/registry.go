// Package registry tracks the live game sessions. It guarantees at
// most one engine.Game per game id in this process and lazily revives
// persisted sessions on first access.
package registry

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/wfunc/werewolf/engine"
	"github.com/wfunc/werewolf/logger"
	"github.com/wfunc/werewolf/models"
)

type Registry struct {
	mutex    sync.RWMutex
	games    map[string]*engine.Game
	reviving map[string]chan struct{}
	deps     engine.Deps
}

func NewRegistry(deps engine.Deps) *Registry {
	return &Registry{
		games:    make(map[string]*engine.Game),
		reviving: make(map[string]chan struct{}),
		deps:     deps,
	}
}

// CreateGame opens a fresh session in the waiting phase and persists
// its first checkpoint.
func (r *Registry) CreateGame(cfg models.GameConfig) (*engine.Game, error) {
	gameID := uuid.New().String()
	g := engine.NewSession(gameID, cfg, r.deps)

	if err := g.Checkpoint(); err != nil {
		return nil, err
	}

	r.mutex.Lock()
	r.games[gameID] = g
	r.mutex.Unlock()

	logger.Log.Infow("game created", "game", gameID, "ai_players", cfg.AIPlayers)
	return g, nil
}

// Get returns the live session, reviving it from its checkpoint when
// this process has not seen the id yet. The load runs outside the map
// lock; concurrent callers for the same id wait on one revival.
func (r *Registry) Get(gameID string) (*engine.Game, error) {
	for {
		r.mutex.RLock()
		g, ok := r.games[gameID]
		r.mutex.RUnlock()
		if ok {
			return g, nil
		}

		r.mutex.Lock()
		if g, ok := r.games[gameID]; ok {
			r.mutex.Unlock()
			return g, nil
		}
		if wait, ok := r.reviving[gameID]; ok {
			r.mutex.Unlock()
			<-wait
			continue
		}
		wait := make(chan struct{})
		r.reviving[gameID] = wait
		r.mutex.Unlock()

		g = engine.New(gameID, r.deps)
		err := g.Initialize(context.Background())

		r.mutex.Lock()
		if err == nil {
			r.games[gameID] = g
		}
		delete(r.reviving, gameID)
		close(wait)
		r.mutex.Unlock()

		if err != nil {
			return nil, err
		}
		logger.Log.Infow("game resumed", "game", gameID)
		return g, nil
	}
}

// Peek returns the session only if already live in this process.
func (r *Registry) Peek(gameID string) (*engine.Game, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	g, ok := r.games[gameID]
	return g, ok
}

func (r *Registry) Remove(gameID string) {
	r.mutex.Lock()
	delete(r.games, gameID)
	r.mutex.Unlock()
}

func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.games)
}

// List snapshots every live session for the admin surface.
func (r *Registry) List() []engine.Info {
	r.mutex.RLock()
	games := make([]*engine.Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	r.mutex.RUnlock()

	infos := make([]engine.Info, 0, len(games))
	for _, g := range games {
		infos = append(infos, g.Info())
	}
	return infos
}

// Shutdown stops every live run loop; sessions stay resumable from
// their checkpoints.
func (r *Registry) Shutdown() {
	r.mutex.Lock()
	games := make([]*engine.Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	r.games = make(map[string]*engine.Game)
	r.mutex.Unlock()

	for _, g := range games {
		g.Shutdown()
	}
}
