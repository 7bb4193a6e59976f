package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/wfunc/werewolf/ai"
	"github.com/wfunc/werewolf/engine"
	"github.com/wfunc/werewolf/models"
	"github.com/wfunc/werewolf/persistence"
	"github.com/wfunc/werewolf/roles"
)

// MockStore remembers sessions by id so revival can be exercised.
// A non-nil LoadGate blocks every LoadGame until the gate is closed.
type MockStore struct {
	mutex     sync.Mutex
	games     map[string]*models.GameSession
	LoadGate  chan struct{}
	LoadCalls int
}

func NewMockStore() *MockStore {
	return &MockStore{games: make(map[string]*models.GameSession)}
}

func (s *MockStore) SaveGame(game *models.GameSession) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.games[game.ID] = game
	return nil
}

func (s *MockStore) LoadGame(gameID string) (*models.GameSession, error) {
	s.mutex.Lock()
	s.LoadCalls++
	gate := s.LoadGate
	game, ok := s.games[gameID]
	s.mutex.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok {
		return nil, persistence.ErrGameNotFound
	}
	return game, nil
}

func (s *MockStore) Loads() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.LoadCalls
}

func (s *MockStore) SavePlayer(gameID string, player *models.Player) error { return nil }

func (s *MockStore) SaveGameRecord(gameID string, winner models.Winner, players map[string]interface{}, durationSec int) error {
	return nil
}

func (s *MockStore) GetPlayerStats(userID string) (*models.PlayerStats, error) {
	return &models.PlayerStats{}, nil
}

func (s *MockStore) Close() error { return nil }

// MockBroadcaster swallows everything.
type MockBroadcaster struct{}

func (MockBroadcaster) BroadcastToGame(gameID string, msgID uint16, v interface{}) error { return nil }
func (MockBroadcaster) SendToPlayer(address string, msgID uint16, v interface{}) error   { return nil }
func (MockBroadcaster) EvictGame(gameID string)                                          {}

func testDeps(store *MockStore) engine.Deps {
	return engine.Deps{
		Store:   store,
		Bus:     MockBroadcaster{},
		Decider: ai.NewSeededProvider(1),
	}
}

func testConfig() models.GameConfig {
	return models.GameConfig{
		NightMs:        30000,
		DiscussionMs:   120000,
		VotingMs:       30000,
		HunterMs:       15000,
		NoLynchAllowed: true,
		AutoResolve:    true,
		AIPlayers:      2,
		MinPlayers:     5,
		RoleCounts:     map[roles.Role]int{roles.Werewolf: 1},
	}
}

func TestRegistry_CreateGamePersistsAndTracks(t *testing.T) {
	store := NewMockStore()
	r := NewRegistry(testDeps(store))

	g, err := r.CreateGame(testConfig())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if r.Count() != 1 {
		t.Errorf("expected one tracked game, got %d", r.Count())
	}
	if _, err := store.LoadGame(g.ID()); err != nil {
		t.Error("a created game must be checkpointed immediately")
	}
	if got, ok := r.Peek(g.ID()); !ok || got != g {
		t.Error("Peek should return the created instance")
	}

	info := g.Info()
	if info.Players != 2 {
		t.Errorf("expected the configured AI players seeded, got %d", info.Players)
	}
}

func TestRegistry_GetReturnsSameInstance(t *testing.T) {
	store := NewMockStore()
	r := NewRegistry(testDeps(store))

	g, err := r.CreateGame(testConfig())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	again, err := r.Get(g.ID())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if again != g {
		t.Error("Get must return the live instance, not a copy")
	}
}

func TestRegistry_GetRevivesFromStore(t *testing.T) {
	store := NewMockStore()
	store.SaveGame(&models.GameSession{
		ID:           "persisted",
		CurrentPhase: models.PhaseWaiting,
		Winner:       models.WinnerNone,
		Votes:        map[string]string{},
		Config:       testConfig(),
	})

	r := NewRegistry(testDeps(store))
	g, err := r.Get("persisted")
	if err != nil {
		t.Fatalf("revival failed: %v", err)
	}
	if g.ID() != "persisted" {
		t.Errorf("unexpected game id %q", g.ID())
	}
	if r.Count() != 1 {
		t.Errorf("revived game must be tracked, got %d", r.Count())
	}
}

func TestRegistry_GetUnknownGame(t *testing.T) {
	r := NewRegistry(testDeps(NewMockStore()))

	if _, err := r.Get("missing"); err == nil {
		t.Error("expected an error for an unknown game")
	}
}

func TestRegistry_RemoveForgets(t *testing.T) {
	store := NewMockStore()
	r := NewRegistry(testDeps(store))

	g, _ := r.CreateGame(testConfig())
	r.Remove(g.ID())

	if _, ok := r.Peek(g.ID()); ok {
		t.Error("removed games must not be tracked")
	}
}

func TestRegistry_ListReportsEveryGame(t *testing.T) {
	store := NewMockStore()
	r := NewRegistry(testDeps(store))

	r.CreateGame(testConfig())
	r.CreateGame(testConfig())

	if got := len(r.List()); got != 2 {
		t.Errorf("expected 2 infos, got %d", got)
	}
}

func TestRegistry_ConcurrentGetRevivesOnce(t *testing.T) {
	store := NewMockStore()
	store.SaveGame(&models.GameSession{
		ID:           "persisted",
		CurrentPhase: models.PhaseWaiting,
		Winner:       models.WinnerNone,
		Votes:        map[string]string{},
		Config:       testConfig(),
	})

	r := NewRegistry(testDeps(store))

	var wg sync.WaitGroup
	results := make([]*engine.Game, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g, err := r.Get("persisted")
			if err != nil {
				t.Errorf("get failed: %v", err)
				return
			}
			results[i] = g
		}(i)
	}
	wg.Wait()

	for _, g := range results[1:] {
		if g != results[0] {
			t.Fatal("concurrent gets must share one instance")
		}
	}
	if store.Loads() != 1 {
		t.Errorf("revival must hit the store once, got %d loads", store.Loads())
	}
}

func TestRegistry_SlowRevivalDoesNotBlockOtherGames(t *testing.T) {
	store := NewMockStore()
	store.SaveGame(&models.GameSession{
		ID:           "slow",
		CurrentPhase: models.PhaseWaiting,
		Winner:       models.WinnerNone,
		Votes:        map[string]string{},
		Config:       testConfig(),
	})

	r := NewRegistry(testDeps(store))
	live, err := r.CreateGame(testConfig())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	gate := make(chan struct{})
	store.mutex.Lock()
	store.LoadGate = gate
	store.mutex.Unlock()

	started := make(chan struct{})
	revived := make(chan struct{})
	go func() {
		close(started)
		if _, err := r.Get("slow"); err != nil {
			t.Errorf("revival failed: %v", err)
		}
		close(revived)
	}()
	<-started
	for store.Loads() == 0 {
		time.Sleep(time.Millisecond)
	}

	if got, ok := r.Peek(live.ID()); !ok || got != live {
		t.Error("a stalled revival must not block access to other games")
	}
	if got, err := r.Get(live.ID()); err != nil || got != live {
		t.Error("Get on a live game must return while another id is reviving")
	}

	close(gate)
	<-revived
	if _, ok := r.Peek("slow"); !ok {
		t.Error("the revived game must be tracked once the load completes")
	}
}
