package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/werewolf/ai"
	"github.com/wfunc/werewolf/models"
	"github.com/wfunc/werewolf/network"
	"github.com/wfunc/werewolf/persistence"
	"github.com/wfunc/werewolf/roles"
)

// MockStore is an in-memory Store that tracks what the engine saved.
type MockStore struct {
	mutex       sync.Mutex
	Loaded      *models.GameSession
	SaveCount   int
	PlayerSaves []models.Player
	RecordSaved bool
	Winner      models.Winner
	Duration    int
}

func (s *MockStore) SaveGame(game *models.GameSession) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.SaveCount++
	return nil
}

func (s *MockStore) LoadGame(gameID string) (*models.GameSession, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.Loaded == nil {
		return nil, persistence.ErrGameNotFound
	}
	return s.Loaded, nil
}

func (s *MockStore) SavePlayer(gameID string, player *models.Player) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.PlayerSaves = append(s.PlayerSaves, *player)
	return nil
}

func (s *MockStore) SavedPlayers() []models.Player {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]models.Player, len(s.PlayerSaves))
	copy(out, s.PlayerSaves)
	return out
}

func (s *MockStore) SaveGameRecord(gameID string, winner models.Winner, players map[string]interface{}, durationSec int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.RecordSaved = true
	s.Winner = winner
	s.Duration = durationSec
	return nil
}

func (s *MockStore) GetPlayerStats(userID string) (*models.PlayerStats, error) {
	return &models.PlayerStats{}, nil
}

func (s *MockStore) Close() error { return nil }

func (s *MockStore) Saves() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.SaveCount
}

func (s *MockStore) Recorded() (bool, models.Winner) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.RecordSaved, s.Winner
}

// MockBroadcaster records every message instead of writing to sockets.
type MockBroadcaster struct {
	mutex     sync.Mutex
	Broadcast []uint16
	Direct    map[string][]uint16
	Evicted   []string
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{Direct: make(map[string][]uint16)}
}

func (b *MockBroadcaster) BroadcastToGame(gameID string, msgID uint16, v interface{}) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.Broadcast = append(b.Broadcast, msgID)
	return nil
}

func (b *MockBroadcaster) SendToPlayer(address string, msgID uint16, v interface{}) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.Direct[address] = append(b.Direct[address], msgID)
	return nil
}

func (b *MockBroadcaster) EvictGame(gameID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.Evicted = append(b.Evicted, gameID)
}

func (b *MockBroadcaster) SawBroadcast(msgID uint16) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for _, id := range b.Broadcast {
		if id == msgID {
			return true
		}
	}
	return false
}

func (b *MockBroadcaster) SawDirect(address string, msgID uint16) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for _, id := range b.Direct[address] {
		if id == msgID {
			return true
		}
	}
	return false
}

func fastConfig(aiPlayers int) models.GameConfig {
	return models.GameConfig{
		NightMs:        50,
		DiscussionMs:   20,
		VotingMs:       50,
		HunterMs:       20,
		NoLynchAllowed: false,
		AutoResolve:    true,
		AIPlayers:      aiPlayers,
		MinPlayers:     5,
		RoleCounts: map[roles.Role]int{
			roles.Werewolf: 1,
			roles.Seer:     1,
			roles.Doctor:   1,
		},
	}
}

func newTestGame(t *testing.T, aiPlayers int) (*Game, *MockStore, *MockBroadcaster) {
	t.Helper()
	store := &MockStore{}
	bus := NewMockBroadcaster()
	g := NewSession("game-1", fastConfig(aiPlayers), Deps{
		Store:   store,
		Bus:     bus,
		Decider: ai.NewSeededProvider(42),
	})
	return g, store, bus
}

func waitForEnd(t *testing.T, g *Game, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !g.IsActive() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("game did not finish in time")
}

func TestGame_StartRejectsBelowMinimum(t *testing.T) {
	g, _, _ := newTestGame(t, 3)

	if err := g.Start(); err == nil {
		t.Error("expected an error starting with too few players")
	}
}

func TestGame_StartRejectsDoubleStart(t *testing.T) {
	g, _, _ := newTestGame(t, 5)
	defer g.Shutdown()

	if err := g.Start(); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if err := g.Start(); err == nil {
		t.Error("expected an error on second start")
	}
}

func TestGame_FullAIGameRunsToCompletion(t *testing.T) {
	g, store, bus := newTestGame(t, 6)

	if err := g.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitForEnd(t, g, 30*time.Second)

	recorded, winner := store.Recorded()
	if !recorded {
		t.Error("finished game must write a permanent record")
	}
	if winner != models.WinnerVillagers && winner != models.WinnerWerewolves && winner != models.WinnerDraw {
		t.Errorf("unexpected winner %q", winner)
	}
	if !bus.SawBroadcast(network.MsgTypeGameEnded) {
		t.Error("game end must be broadcast")
	}
	if store.Saves() == 0 {
		t.Error("checkpoints must be written along the way")
	}

	info := g.Info()
	if !info.Ended || info.Phase != models.PhaseEnded {
		t.Errorf("expected ended session, got %+v", info)
	}
}

func TestGame_JoinAfterStartRejected(t *testing.T) {
	g, _, _ := newTestGame(t, 5)
	defer g.Shutdown()

	if err := g.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := g.Join("user-9", "late", "addr-9"); err == nil {
		t.Error("a new player cannot join a running game")
	}
}

func TestGame_RejoinByUserIDReconnects(t *testing.T) {
	g, _, bus := newTestGame(t, 4)
	defer g.Shutdown()

	player, err := g.Join("user-1", "alice", "addr-1")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}

	g.HandleDisconnect(player.ID)
	if p := g.state.FindPlayer(player.ID); p.IsConnected {
		t.Fatal("player should be marked disconnected")
	}

	again, err := g.Join("user-1", "alice", "addr-2")
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if again.ID != player.ID {
		t.Errorf("rejoin must reuse the original participant, got %q and %q", player.ID, again.ID)
	}
	if !again.IsConnected || again.Address != "addr-2" {
		t.Errorf("rejoin must rebind the new address, got %+v", again)
	}
	if !bus.SawDirect("addr-2", network.MsgTypeGameState) {
		t.Error("a reconnecting player receives a fresh state snapshot")
	}
}

func TestGame_SubmitNightActionOutsidePhaseIgnored(t *testing.T) {
	g, store, _ := newTestGame(t, 5)

	before := store.Saves()
	if err := g.SubmitNightAction("nobody", roles.Werewolf, ActionPayload{TargetID: "x"}); err != nil {
		t.Fatalf("ignored action must not error: %v", err)
	}
	if store.Saves() != before {
		t.Error("ignored actions must not checkpoint")
	}
}

func TestGame_SubmitNightActionWrongRoleIgnored(t *testing.T) {
	g, _, _ := newTestGame(t, 5)
	g.state.Started = true
	g.state.CurrentPhase = models.PhaseNight
	g.state.Players[0].Role = roles.Villager
	g.state.Players[1].Role = roles.Werewolf

	if err := g.SubmitNightAction(g.state.Players[0].ID, roles.Werewolf, ActionPayload{TargetID: g.state.Players[1].ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.state.NightActions.Werewolf.Filled() {
		t.Error("a villager cannot fill the werewolf slot")
	}
}

func TestGame_SubmitNightActionOverwritesBeforeResolution(t *testing.T) {
	g, _, _ := newTestGame(t, 5)
	g.state.Started = true
	g.state.CurrentPhase = models.PhaseNight
	g.state.Players[0].Role = roles.Werewolf

	first := g.state.Players[1].ID
	second := g.state.Players[2].ID
	wolf := g.state.Players[0].ID

	if err := g.SubmitNightAction(wolf, roles.Werewolf, ActionPayload{TargetID: first}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.SubmitNightAction(wolf, roles.Werewolf, ActionPayload{TargetID: second}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.state.NightActions.Werewolf.TargetID != second {
		t.Errorf("the later action wins, got %q", g.state.NightActions.Werewolf.TargetID)
	}
}

func TestGame_WitchCannotReusePotion(t *testing.T) {
	g, _, _ := newTestGame(t, 5)
	g.state.Started = true
	g.state.CurrentPhase = models.PhaseNight
	witch := g.state.Players[0]
	witch.Role = roles.Witch
	witch.Potions = &models.Potions{Heal: false, Kill: true}

	err := g.SubmitNightAction(witch.ID, roles.Witch, ActionPayload{
		TargetID: g.state.Players[1].ID,
		Action:   models.WitchHeal,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.state.NightActions.Witch.Filled() {
		t.Error("a spent heal potion cannot be used again")
	}
}

func TestGame_SubmitVoteValidation(t *testing.T) {
	g, _, _ := newTestGame(t, 5)
	g.state.Started = true
	g.state.CurrentPhase = models.PhaseVoting

	voter := g.state.Players[0]
	target := g.state.Players[1]

	// self-vote is rejected
	g.SubmitVote(voter.ID, voter.ID)
	if _, ok := g.state.Votes[voter.ID]; ok {
		t.Error("self-vote must be ignored")
	}

	// dead targets are rejected
	target.IsAlive = false
	g.SubmitVote(voter.ID, target.ID)
	if _, ok := g.state.Votes[voter.ID]; ok {
		t.Error("voting a dead player must be ignored")
	}
	target.IsAlive = true

	// valid vote lands and may be changed
	g.SubmitVote(voter.ID, target.ID)
	if g.state.Votes[voter.ID] != target.ID {
		t.Error("valid vote must be recorded")
	}
	other := g.state.Players[2]
	g.SubmitVote(voter.ID, other.ID)
	if g.state.Votes[voter.ID] != other.ID {
		t.Error("revote must overwrite")
	}
}

func TestGame_AbstainRespectsConfig(t *testing.T) {
	g, _, _ := newTestGame(t, 5)
	g.state.Started = true
	g.state.CurrentPhase = models.PhaseVoting
	voter := g.state.Players[0]

	g.state.Config.NoLynchAllowed = false
	g.SubmitVote(voter.ID, models.AbstainVote)
	if _, ok := g.state.Votes[voter.ID]; ok {
		t.Error("abstain must be rejected when no-lynch is off")
	}

	g.state.Config.NoLynchAllowed = true
	g.SubmitVote(voter.ID, models.AbstainVote)
	if g.state.Votes[voter.ID] != models.AbstainVote {
		t.Error("abstain must be accepted when no-lynch is on")
	}
}

func TestGame_DisconnectSynthesizesNightSkip(t *testing.T) {
	g, _, _ := newTestGame(t, 4)

	player, err := g.Join("user-1", "alice", "addr-1")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	g.state.Started = true
	g.state.CurrentPhase = models.PhaseNight
	player.Role = roles.Seer
	g.state.Players[0].Role = roles.Werewolf
	g.nightSignals = map[roles.Role]chan struct{}{roles.Seer: make(chan struct{}, 1)}

	g.HandleDisconnect(player.ID)

	if g.state.NightActions.Seer.State != models.SlotSkipped {
		t.Errorf("disconnect must skip the pending slot, got %v", g.state.NightActions.Seer.State)
	}
	select {
	case <-g.nightSignals[roles.Seer]:
	default:
		t.Error("the night wait must be signalled so the phase advances")
	}
}

func TestGame_DisconnectKeepsWerewolfSlotWhileTeammateConnected(t *testing.T) {
	g, _, _ := newTestGame(t, 0)

	first, _ := g.Join("user-1", "alice", "addr-1")
	second, _ := g.Join("user-2", "bob", "addr-2")
	g.Join("user-3", "carol", "addr-3")
	g.Join("user-4", "dave", "addr-4")
	g.state.Started = true
	g.state.CurrentPhase = models.PhaseNight
	first.Role = roles.Werewolf
	second.Role = roles.Werewolf
	g.nightSignals = map[roles.Role]chan struct{}{roles.Werewolf: make(chan struct{}, 1)}

	g.HandleDisconnect(first.ID)

	if g.state.NightActions.Werewolf.Filled() {
		t.Error("the pack slot stays open while a connected werewolf remains")
	}
}

func TestGame_DisconnectDuringVotingAbstains(t *testing.T) {
	g, _, _ := newTestGame(t, 4)

	player, err := g.Join("user-1", "alice", "addr-1")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	g.state.Started = true
	g.state.CurrentPhase = models.PhaseVoting
	g.state.Players[0].Role = roles.Werewolf

	g.HandleDisconnect(player.ID)

	if g.state.Votes[player.ID] != models.AbstainVote {
		t.Errorf("disconnect during voting must abstain, got %q", g.state.Votes[player.ID])
	}
}

func TestRemainingOnResume_Clamps(t *testing.T) {
	now := time.Now()

	remaining := RemainingOnResume(now.Add(-10*time.Second), 30000, now)
	if remaining != 20*time.Second {
		t.Errorf("expected 20s remaining, got %v", remaining)
	}

	remaining = RemainingOnResume(now.Add(-60*time.Second), 30000, now)
	if remaining != 0 {
		t.Errorf("an elapsed deadline clamps to zero, got %v", remaining)
	}
}

func TestGame_SnapshotHidesLivingRoles(t *testing.T) {
	g, _, _ := newTestGame(t, 5)
	g.state.Started = true
	g.state.Players[0].Role = roles.Werewolf
	g.state.Players[1].Role = roles.Seer
	g.state.Players[2].Role = roles.Villager
	g.state.Players[2].IsAlive = false

	snap := g.Snapshot(g.state.Players[1].ID)
	for _, v := range snap.Players {
		switch v.ID {
		case g.state.Players[0].ID:
			if v.Role != "" {
				t.Error("a living werewolf must stay hidden from the seer view")
			}
		case g.state.Players[1].ID:
			if v.Role != roles.Seer {
				t.Error("the viewer sees their own role")
			}
		case g.state.Players[2].ID:
			if v.Role != roles.Villager {
				t.Error("dead players reveal their role")
			}
		}
	}
}

func TestGame_SnapshotRevealsPackToWerewolf(t *testing.T) {
	g, _, _ := newTestGame(t, 5)
	g.state.Started = true
	g.state.Players[0].Role = roles.Werewolf
	g.state.Players[1].Role = roles.Werewolf

	snap := g.Snapshot(g.state.Players[0].ID)
	for _, v := range snap.Players {
		if v.ID == g.state.Players[1].ID && v.Role != roles.Werewolf {
			t.Error("werewolves see each other")
		}
	}
}

func TestGame_ChatBeforeStartReachesEveryone(t *testing.T) {
	g, _, bus := newTestGame(t, 3)

	player, _ := g.Join("user-1", "alice", "addr-1")
	g.SubmitChatMessage(player.ID, ChatPayload{Message: "hello"})

	if !bus.SawBroadcast(network.MsgTypeChatMessage) {
		t.Error("lobby chat is public")
	}
	if len(g.state.Messages) != 1 {
		t.Errorf("public chat is persisted, got %d messages", len(g.state.Messages))
	}
}

func TestGame_ChatDeadPlayersSilenced(t *testing.T) {
	g, _, bus := newTestGame(t, 3)

	player, _ := g.Join("user-1", "alice", "addr-1")
	g.state.Started = true
	g.state.CurrentPhase = models.PhaseDiscussion
	player.IsAlive = false

	g.SubmitChatMessage(player.ID, ChatPayload{Message: "boo"})

	if bus.SawBroadcast(network.MsgTypeChatMessage) {
		t.Error("dead players cannot post")
	}
	if !bus.SawDirect("addr-1", network.MsgTypeError) {
		t.Error("the sender alone learns the message was rejected")
	}
}

func TestGame_ChatNightRestrictedToWerewolves(t *testing.T) {
	g, _, bus := newTestGame(t, 0)

	wolfA, _ := g.Join("user-1", "alice", "addr-1")
	wolfB, _ := g.Join("user-2", "bob", "addr-2")
	villager, _ := g.Join("user-3", "carol", "addr-3")
	g.state.Started = true
	g.state.CurrentPhase = models.PhaseNight
	wolfA.Role = roles.Werewolf
	wolfB.Role = roles.Werewolf
	villager.Role = roles.Villager

	g.SubmitChatMessage(wolfA.ID, ChatPayload{Message: "target carol?"})

	if !bus.SawDirect("addr-2", network.MsgTypeChatMessage) {
		t.Error("the pack hears werewolf night chat")
	}
	if bus.SawDirect("addr-3", network.MsgTypeChatMessage) {
		t.Error("villagers must not hear werewolf night chat")
	}

	g.SubmitChatMessage(villager.ID, ChatPayload{Message: "anyone there?"})
	if !bus.SawDirect("addr-3", network.MsgTypeError) {
		t.Error("a villager posting at night gets an error")
	}
}

func TestGame_ChatRateLimited(t *testing.T) {
	g, _, bus := newTestGame(t, 3)
	player, _ := g.Join("user-1", "alice", "addr-1")

	g.SubmitChatMessage(player.ID, ChatPayload{Message: "one"})
	g.SubmitChatMessage(player.ID, ChatPayload{Message: "two"})

	if len(g.state.Messages) != 1 {
		t.Errorf("the second message inside the cooldown is dropped, got %d", len(g.state.Messages))
	}
	if !bus.SawDirect("addr-1", network.MsgTypeError) {
		t.Error("the rate-limited sender is told")
	}
}

func TestGame_ChatWhisperStaysPrivate(t *testing.T) {
	g, _, bus := newTestGame(t, 0)

	alice, _ := g.Join("user-1", "alice", "addr-1")
	bob, _ := g.Join("user-2", "bob", "addr-2")
	g.Join("user-3", "carol", "addr-3")

	g.SubmitChatMessage(alice.ID, ChatPayload{Message: "psst", WhisperTarget: bob.ID})

	if !bus.SawDirect("addr-2", network.MsgTypeChatMessage) {
		t.Error("the whisper target receives the message")
	}
	if bus.SawDirect("addr-3", network.MsgTypeChatMessage) {
		t.Error("bystanders must not see whispers")
	}
	if len(g.state.Messages) != 0 {
		t.Error("whispers are not persisted")
	}
}

func TestGame_InitializeResumesInFlightPhase(t *testing.T) {
	store := &MockStore{}
	bus := NewMockBroadcaster()

	session := &models.GameSession{
		ID:              "game-r",
		Started:         true,
		CurrentPhase:    models.PhaseDiscussion,
		Winner:          models.WinnerNone,
		Votes:           map[string]string{},
		PhaseStartedAt:  time.Now().Add(-10 * time.Millisecond),
		PhaseDurationMs: 40,
		Config:          fastConfig(0),
		Players: []*models.Player{
			{ID: "w", IsAlive: true, IsAI: true, IsConnected: true, Role: roles.Werewolf},
			{ID: "v1", IsAlive: true, IsAI: true, IsConnected: true, Role: roles.Villager},
			{ID: "v2", IsAlive: true, IsAI: true, IsConnected: true, Role: roles.Villager},
			{ID: "v3", IsAlive: true, IsAI: true, IsConnected: true, Role: roles.Villager},
			{ID: "v4", IsAlive: true, IsAI: true, IsConnected: true, Role: roles.Villager},
		},
	}
	store.Loaded = session

	g := New("game-r", Deps{Store: store, Bus: bus, Decider: ai.NewSeededProvider(7)})
	if err := g.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	waitForEnd(t, g, 30*time.Second)
	if recorded, _ := store.Recorded(); !recorded {
		t.Error("a resumed game still runs to completion and records")
	}
}

func TestGame_InitializeEndedGameStaysIdle(t *testing.T) {
	store := &MockStore{}
	bus := NewMockBroadcaster()
	store.Loaded = &models.GameSession{
		ID:           "game-e",
		Started:      true,
		Ended:        true,
		Winner:       models.WinnerVillagers,
		CurrentPhase: models.PhaseEnded,
		Votes:        map[string]string{},
		Config:       fastConfig(0),
	}

	g := New("game-e", Deps{Store: store, Bus: bus, Decider: ai.NewSeededProvider(7)})
	if err := g.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if g.IsActive() {
		t.Error("an ended game must not reactivate")
	}
}

func TestGame_AIHunterRetaliatesWithoutAutoResolve(t *testing.T) {
	cfg := fastConfig(6)
	cfg.AutoResolve = false
	store := &MockStore{}
	bus := NewMockBroadcaster()
	g := NewSession("game-1", cfg, Deps{
		Store:   store,
		Bus:     bus,
		Decider: ai.NewSeededProvider(42),
	})

	g.state.Started = true
	g.state.CurrentPhase = models.PhaseVoting
	for _, p := range g.state.Players {
		p.Role = roles.Villager
	}
	hunter := g.state.Players[0]
	hunter.Role = roles.Hunter
	g.state.Players[1].Role = roles.Werewolf

	g.eliminatePlayer(hunter.ID, CauseVote)

	dead := 0
	for _, p := range g.state.Players {
		if !p.IsAlive {
			dead++
		}
	}
	if dead != 2 {
		t.Fatalf("an eliminated hunter must take a target with it, got %d dead", dead)
	}
	if hunter.IsAlive {
		t.Error("the hunter itself must be dead")
	}
}

func TestGame_OfflineDoctorSlotSkippedWithoutAutoResolve(t *testing.T) {
	cfg := fastConfig(2)
	cfg.AutoResolve = false
	store := &MockStore{}
	bus := NewMockBroadcaster()
	g := NewSession("game-1", cfg, Deps{
		Store:   store,
		Bus:     bus,
		Decider: ai.NewSeededProvider(42),
	})
	doctor, err := g.Join("user-1", "alice", "addr-1")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}

	g.state.Started = true
	g.state.CurrentPhase = models.PhaseNight
	doctor.Role = roles.Doctor
	doctor.IsConnected = false
	g.nightSignals = map[roles.Role]chan struct{}{roles.Doctor: make(chan struct{}, 1)}

	tm := g.newPhaseTimer(models.PhaseNight, 50*time.Millisecond)
	defer tm.Stop()
	if res := g.collectNightAction(context.Background(), roles.Doctor, tm); res != collectDone {
		t.Fatalf("offline-only role must not block the pipeline, got %v", res)
	}
	if g.state.NightActions.Doctor.Filled() {
		t.Fatalf("nobody may act for an absent player, slot state %v", g.state.NightActions.Doctor.State)
	}

	g.autoResolveNight()

	if g.state.NightActions.Doctor.State != models.SlotSkipped {
		t.Errorf("with auto-resolve off the slot must be skipped, got %v", g.state.NightActions.Doctor.State)
	}
	if g.state.NightActions.Doctor.TargetID != "" {
		t.Errorf("skipped slot carries no target, got %q", g.state.NightActions.Doctor.TargetID)
	}
}

func TestGame_OfflineDoctorAutoResolvedWhenEnabled(t *testing.T) {
	g, _, _ := newTestGame(t, 2)
	doctor, err := g.Join("user-1", "alice", "addr-1")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}

	g.state.Started = true
	g.state.CurrentPhase = models.PhaseNight
	doctor.Role = roles.Doctor
	doctor.IsConnected = false
	g.nightSignals = map[roles.Role]chan struct{}{roles.Doctor: make(chan struct{}, 1)}

	tm := g.newPhaseTimer(models.PhaseNight, 50*time.Millisecond)
	defer tm.Stop()
	if res := g.collectNightAction(context.Background(), roles.Doctor, tm); res != collectDone {
		t.Fatalf("offline-only role must not block the pipeline, got %v", res)
	}
	if g.state.NightActions.Doctor.Filled() {
		t.Fatal("the slot must stay pending until the deadline settlement")
	}

	g.autoResolveNight()

	if g.state.NightActions.Doctor.State != models.SlotResolved {
		t.Fatalf("with auto-resolve on the provider fills the slot, got %v", g.state.NightActions.Doctor.State)
	}
	if !g.state.NightActions.Doctor.Auto {
		t.Error("a deadline-settled slot must carry the auto flag")
	}
}

func TestGame_SeerKilledSameNightGetsNoResult(t *testing.T) {
	g, _, bus := newTestGame(t, 1)
	seer, err := g.Join("user-1", "alice", "addr-1")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	g.state.Started = true
	g.state.CurrentPhase = models.PhaseNight
	seer.Role = roles.Seer
	wolf := g.state.Players[0]
	wolf.Role = roles.Werewolf

	g.state.NightActions.Werewolf = models.ActionSlot{State: models.SlotResolved, TargetID: seer.ID}
	g.state.NightActions.Seer = models.ActionSlot{State: models.SlotResolved, TargetID: wolf.ID}

	g.resolveNight()

	if seer.IsAlive {
		t.Fatal("the werewolf victim must be dead")
	}
	if bus.SawDirect("addr-1", network.MsgTypeSeerResult) {
		t.Error("a seer killed the same night must not receive the investigation result")
	}
}

func TestGame_SurvivingSeerReceivesResult(t *testing.T) {
	g, _, bus := newTestGame(t, 2)
	seer, err := g.Join("user-1", "alice", "addr-1")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	g.state.Started = true
	g.state.CurrentPhase = models.PhaseNight
	seer.Role = roles.Seer
	wolf := g.state.Players[0]
	wolf.Role = roles.Werewolf
	victim := g.state.Players[1]

	g.state.NightActions.Werewolf = models.ActionSlot{State: models.SlotResolved, TargetID: victim.ID}
	g.state.NightActions.Seer = models.ActionSlot{State: models.SlotResolved, TargetID: wolf.ID}

	g.resolveNight()

	if !bus.SawDirect("addr-1", network.MsgTypeSeerResult) {
		t.Error("a surviving seer must receive the investigation result")
	}
}

func TestGame_ChatRejectionDoesNotBurnCooldown(t *testing.T) {
	g, _, bus := newTestGame(t, 0)
	alice, err := g.Join("user-1", "alice", "addr-1")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	g.Join("user-2", "bob", "addr-2")

	g.state.Started = true
	g.state.CurrentPhase = models.PhaseNight
	alice.Role = roles.Villager

	g.SubmitChatMessage(alice.ID, ChatPayload{Message: "anyone awake?"})
	if !bus.SawDirect("addr-1", network.MsgTypeError) {
		t.Fatal("a villager talking at night must be rejected")
	}

	g.state.CurrentPhase = models.PhaseDiscussion
	g.SubmitChatMessage(alice.ID, ChatPayload{Message: "good morning"})

	if len(g.state.Messages) != 1 {
		t.Fatalf("a rejected message must not start the cooldown, history has %d entries", len(g.state.Messages))
	}
	if !bus.SawBroadcast(network.MsgTypeChatMessage) {
		t.Error("the day message must reach everyone")
	}
}

func TestGame_EliminationPersistsPlayer(t *testing.T) {
	g, store, _ := newTestGame(t, 5)
	g.state.Started = true
	g.state.CurrentPhase = models.PhaseVoting
	for _, p := range g.state.Players {
		p.Role = roles.Villager
	}
	victim := g.state.Players[2]

	g.eliminatePlayer(victim.ID, CauseVote)

	saved := store.SavedPlayers()
	if len(saved) == 0 {
		t.Fatal("elimination must persist the player")
	}
	last := saved[len(saved)-1]
	if last.ID != victim.ID || last.IsAlive {
		t.Errorf("persisted player must be the dead victim, got %q alive=%v", last.ID, last.IsAlive)
	}
}
