// Package engine runs one werewolf session: the phase state machine,
// night-action collection, vote tallying, elimination cascades and win
// evaluation. Exactly one Game instance is live per game id (enforced
// by the registry), so all inbound events for a game serialize through
// its mutex.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/werewolf/ai"
	"github.com/wfunc/werewolf/broadcast"
	"github.com/wfunc/werewolf/logger"
	"github.com/wfunc/werewolf/models"
	"github.com/wfunc/werewolf/network"
	"github.com/wfunc/werewolf/persistence"
	"github.com/wfunc/werewolf/roles"
)

var (
	// ErrGameNotFound aliases the store sentinel so callers match one
	// error regardless of which layer refused.
	ErrGameNotFound      = persistence.ErrGameNotFound
	ErrInvalidStartState = errors.New("invalid start state")
	ErrInvalidAction     = errors.New("invalid action")
)

const defaultMessageCooldown = 2 * time.Second

// Metrics is the slice of the monitor the engine reports into.
type Metrics interface {
	IncActionsReceived()
	IncChatMessages()
	IncGamesFinished(winner string)
	ObservePhaseDuration(phase string, seconds float64)
}

// ChatFilter cleans outgoing chat text. The real filter lives outside
// this module; PassthroughFilter is the default.
type ChatFilter interface {
	Clean(text string) string
}

type PassthroughFilter struct{}

func (PassthroughFilter) Clean(text string) string { return text }

// Deps are the external collaborators of one session.
type Deps struct {
	Store   persistence.Store
	Bus     broadcast.Broadcaster
	Decider ai.DecisionProvider
	Metrics Metrics
	Filter  ChatFilter
}

// ActionPayload is the inbound night-action body. TargetID is the
// picked player; Action is set by the witch only.
type ActionPayload struct {
	TargetID string            `json:"target_id"`
	Action   models.WitchAction `json:"action,omitempty"`
}

// Game is the session state machine for one game id.
type Game struct {
	mu    sync.Mutex
	id    string
	state *models.GameSession

	store   persistence.Store
	bus     broadcast.Broadcaster
	decider ai.DecisionProvider
	metrics Metrics
	filter  ChatFilter
	rng     *rand.Rand

	active   bool
	cancel   context.CancelFunc
	loopDone chan struct{}

	// per-phase wait plumbing, recreated at each phase entry
	nightSignals map[roles.Role]chan struct{}
	voteDone     chan struct{}
	voteClosed   bool
	hunterWait   chan string
	hunterID     string

	lastMessageAt   map[string]time.Time
	messageCooldown time.Duration
}

// New prepares a session for the given id; Initialize loads and, if a
// phase was in flight, resumes it.
func New(gameID string, deps Deps) *Game {
	return newGame(gameID, deps)
}

// NewSession creates a fresh game in the waiting phase, seeding the
// configured number of AI players.
func NewSession(gameID string, cfg models.GameConfig, deps Deps) *Game {
	g := newGame(gameID, deps)
	g.state = &models.GameSession{
		ID:           gameID,
		CurrentPhase: models.PhaseWaiting,
		Winner:       models.WinnerNone,
		Votes:        make(map[string]string),
		Config:       cfg,
	}
	for i := 0; i < cfg.AIPlayers; i++ {
		g.state.Players = append(g.state.Players, &models.Player{
			ID:          uuid.New().String(),
			Name:        fmt.Sprintf("AI Player %d", i+1),
			IsAI:        true,
			IsAlive:     true,
			IsConnected: true,
		})
	}
	g.active = true
	return g
}

func newGame(gameID string, deps Deps) *Game {
	filter := deps.Filter
	if filter == nil {
		filter = PassthroughFilter{}
	}
	return &Game{
		id:              gameID,
		store:           deps.Store,
		bus:             deps.Bus,
		decider:         deps.Decider,
		metrics:         deps.Metrics,
		filter:          filter,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		lastMessageAt:   make(map[string]time.Time),
		messageCooldown: defaultMessageCooldown,
	}
}

func (g *Game) ID() string { return g.id }

// IsActive reports whether the session still accepts actions.
func (g *Game) IsActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Info is the introspection view served over RPC.
type Info struct {
	ID      string        `json:"id"`
	Phase   models.Phase  `json:"phase"`
	Players int           `json:"players"`
	Alive   int           `json:"alive"`
	Started bool          `json:"started"`
	Ended   bool          `json:"ended"`
	Winner  models.Winner `json:"winner"`
}

func (g *Game) Info() Info {
	g.mu.Lock()
	defer g.mu.Unlock()
	info := Info{ID: g.id}
	if g.state == nil {
		return info
	}
	info.Phase = g.state.CurrentPhase
	info.Players = len(g.state.Players)
	info.Alive = len(g.state.AlivePlayers())
	info.Started = g.state.Started
	info.Ended = g.state.Ended
	info.Winner = g.state.Winner
	return info
}

// Initialize loads the persisted aggregate. If a phase was in progress
// and its deadline has not elapsed, the run loop resumes with the
// remaining time instead of a full phase duration.
func (g *Game) Initialize(ctx context.Context) error {
	loaded, err := g.store.LoadGame(g.id)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.state = loaded
	g.active = !loaded.Ended
	messages := append([]models.ChatMessage(nil), loaded.Messages...)
	g.mu.Unlock()

	g.broadcastRoster()
	g.broadcast(network.MsgTypeChatHistory, messages)

	if loaded.Started && !loaded.Ended && inProgressPhase(loaded.CurrentPhase) {
		elapsed := time.Since(loaded.PhaseStartedAt)
		remaining := time.Duration(loaded.PhaseDurationMs)*time.Millisecond - elapsed
		if remaining < 0 {
			remaining = 0
		}
		g.startLoop(loaded.CurrentPhase, remaining)
	}
	return nil
}

func inProgressPhase(phase models.Phase) bool {
	switch phase {
	case models.PhaseNight, models.PhaseDiscussion, models.PhaseVoting:
		return true
	default:
		return false
	}
}

// RemainingOnResume derives the resumed deadline from the persisted
// stamp: stored duration minus wall-clock elapsed, clamped to zero.
func RemainingOnResume(phaseStartedAt time.Time, phaseDurationMs int64, now time.Time) time.Duration {
	remaining := time.Duration(phaseDurationMs)*time.Millisecond - now.Sub(phaseStartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Join adds a human participant, or reattaches one who reconnected.
func (g *Game) Join(userID, name, address string) (*models.Player, error) {
	g.mu.Lock()
	if g.state == nil {
		g.mu.Unlock()
		return nil, ErrGameNotFound
	}

	for _, p := range g.state.Players {
		if p.UserID != "" && p.UserID == userID {
			p.IsConnected = true
			p.Address = address
			messages := append([]models.ChatMessage(nil), g.state.Messages...)
			g.mu.Unlock()

			g.bus.SendToPlayer(address, network.MsgTypeChatHistory, messages)
			g.bus.SendToPlayer(address, network.MsgTypeGameState, g.Snapshot(p.ID))
			g.broadcastRoster()
			g.checkpointLogged()
			return p, nil
		}
	}

	if g.state.Started {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: game already started", ErrInvalidAction)
	}

	player := &models.Player{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		IsAlive:     true,
		IsConnected: true,
		Address:     address,
	}
	g.state.Players = append(g.state.Players, player)
	messages := append([]models.ChatMessage(nil), g.state.Messages...)
	g.mu.Unlock()

	if err := g.checkpoint(); err != nil {
		return nil, err
	}
	g.broadcast(network.MsgTypePlayerJoined, PlayerJoinedPayload{PlayerID: player.ID, Name: player.Name})
	g.broadcastRoster()
	g.bus.SendToPlayer(address, network.MsgTypeChatHistory, messages)
	return player, nil
}

// Start validates the waiting state, assigns roles, notifies players
// privately and launches the run loop into the first night.
func (g *Game) Start() error {
	g.mu.Lock()
	if g.state == nil || g.state.Started || g.state.CurrentPhase != models.PhaseWaiting {
		g.mu.Unlock()
		return ErrInvalidStartState
	}
	if len(g.state.Players) < g.state.Config.MinPlayers {
		g.mu.Unlock()
		return fmt.Errorf("%w: need at least %d players", ErrInvalidStartState, g.state.Config.MinPlayers)
	}

	g.state.Started = true
	g.state.StartedAt = time.Now()
	AssignRoles(g.state.Players, g.state.Config.RoleCounts, g.rng)

	type notice struct {
		address string
		role    roles.Role
	}
	var notices []notice
	var wolves []*models.Player
	for _, p := range g.state.Players {
		if p.Role == roles.Werewolf {
			wolves = append(wolves, p)
		}
		if !p.IsAI && p.IsConnected && p.Address != "" {
			notices = append(notices, notice{address: p.Address, role: p.Role})
		}
	}
	g.mu.Unlock()

	for _, n := range notices {
		g.bus.SendToPlayer(n.address, network.MsgTypeRoleAssigned, RoleAssignedPayload{
			Role:        n.role,
			Description: roles.Description(n.role),
		})
	}
	if len(wolves) > 1 {
		for _, w := range wolves {
			if w.IsAI || w.Address == "" {
				continue
			}
			var teammates []Teammate
			for _, other := range wolves {
				if other.ID != w.ID {
					teammates = append(teammates, Teammate{ID: other.ID, Name: other.Name})
				}
			}
			g.bus.SendToPlayer(w.Address, network.MsgTypeWerewolfTeammates, WerewolfTeammatesPayload{Teammates: teammates})
		}
	}

	g.broadcastRoster()
	g.checkpointLogged()
	g.broadcast(network.MsgTypeGameStarted, PhaseChangePayload{Phase: models.PhaseNight})
	logger.Log.Infow("game started", "game", g.id)

	g.startLoop("", -1)
	return nil
}

func (g *Game) startLoop(resumePhase models.Phase, remaining time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	g.mu.Lock()
	g.cancel = cancel
	g.loopDone = make(chan struct{})
	g.mu.Unlock()
	go g.run(ctx, resumePhase, remaining)
}

// Shutdown cancels the run loop without ending the game; the session
// can be resumed later from its checkpoint.
func (g *Game) Shutdown() {
	g.mu.Lock()
	cancel := g.cancel
	done := g.loopDone
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// SubmitNightAction records a role's night action. It is accepted
// only during night from a living player holding the matching role;
// anything else is dropped without a reply so a stale or adversarial
// client learns nothing about phase or roles.
func (g *Game) SubmitNightAction(playerID string, role roles.Role, payload ActionPayload) error {
	g.mu.Lock()
	if g.state == nil || !g.active || g.state.CurrentPhase != models.PhaseNight {
		g.mu.Unlock()
		return nil
	}
	p := g.state.FindPlayer(playerID)
	if p == nil || !p.IsAlive || p.Role != role || roles.NightAction(role) == roles.ActionNone {
		g.mu.Unlock()
		return nil
	}

	if !g.applyNightActionLocked(p, role, payload, false) {
		g.mu.Unlock()
		return nil
	}
	sig := g.nightSignals[role]
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.IncActionsReceived()
	}
	signal(sig)
	return g.checkpoint()
}

// applyNightActionLocked validates the payload against the roster and
// writes the slot. Overwrites by the same role are allowed until the
// slot is consumed at night resolution.
func (g *Game) applyNightActionLocked(p *models.Player, role roles.Role, payload ActionPayload, auto bool) bool {
	targetAlive := func(id string) bool {
		t := g.state.FindPlayer(id)
		return t != nil && t.IsAlive
	}

	switch role {
	case roles.Werewolf, roles.Bodyguard, roles.Doctor, roles.Seer:
		if !targetAlive(payload.TargetID) {
			return false
		}
		slot := models.ActionSlot{State: models.SlotResolved, TargetID: payload.TargetID, Auto: auto}
		switch role {
		case roles.Werewolf:
			g.state.NightActions.Werewolf = slot
		case roles.Bodyguard:
			g.state.NightActions.Bodyguard = slot
		case roles.Doctor:
			g.state.NightActions.Doctor = slot
		case roles.Seer:
			g.state.NightActions.Seer = slot
		}
		return true

	case roles.Witch:
		decision := models.WitchDecision{Action: payload.Action, TargetID: payload.TargetID}
		switch decision.Action {
		case models.WitchHeal:
			if p.Potions == nil || !p.Potions.Heal || decision.TargetID == "" {
				return false
			}
		case models.WitchKill:
			if p.Potions == nil || !p.Potions.Kill || !targetAlive(decision.TargetID) {
				return false
			}
		case models.WitchNone:
			decision.TargetID = ""
		default:
			return false
		}
		g.state.NightActions.Witch = models.WitchSlot{State: models.SlotResolved, Decision: decision, Auto: auto}
		return true
	}
	return false
}

// SubmitVote records or overwrites a living player's vote during the
// voting phase.
func (g *Game) SubmitVote(playerID, targetID string) error {
	g.mu.Lock()
	if g.state == nil || !g.active || g.state.CurrentPhase != models.PhaseVoting {
		g.mu.Unlock()
		return nil
	}
	voter := g.state.FindPlayer(playerID)
	if voter == nil || !voter.IsAlive {
		g.mu.Unlock()
		return nil
	}
	if targetID == models.AbstainVote {
		if !g.state.Config.NoLynchAllowed {
			g.mu.Unlock()
			return nil
		}
	} else {
		target := g.state.FindPlayer(targetID)
		if target == nil || !target.IsAlive || targetID == playerID {
			g.mu.Unlock()
			return nil
		}
	}

	g.state.Votes[playerID] = targetID
	g.closeVoteDoneIfComplete()
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.IncActionsReceived()
	}
	g.broadcast(network.MsgTypeVoteRegistered, VoteRegisteredPayload{VoterID: playerID, TargetID: targetID})
	return g.checkpoint()
}

// closeVoteDoneIfComplete unblocks the voting wait once every living
// player has an entry. Caller holds g.mu.
func (g *Game) closeVoteDoneIfComplete() {
	if g.voteDone == nil || g.voteClosed {
		return
	}
	for _, p := range g.state.AlivePlayers() {
		if _, ok := g.state.Votes[p.ID]; !ok {
			return
		}
	}
	g.voteClosed = true
	close(g.voteDone)
}

// SubmitHunterAction answers an outstanding hunter retaliation prompt.
func (g *Game) SubmitHunterAction(playerID, targetID string) error {
	g.mu.Lock()
	if g.hunterWait == nil || g.hunterID != playerID {
		g.mu.Unlock()
		return nil
	}
	ch := g.hunterWait
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.IncActionsReceived()
	}
	select {
	case ch <- targetID:
	default:
	}
	return nil
}

// HandleDisconnect marks the player disconnected and synthesizes any
// slot the run loop is currently waiting on for them, so a phase is
// never blocked by an absent participant.
func (g *Game) HandleDisconnect(playerID string) {
	g.mu.Lock()
	if g.state == nil {
		g.mu.Unlock()
		return
	}
	p := g.state.FindPlayer(playerID)
	if p == nil {
		g.mu.Unlock()
		return
	}
	p.IsConnected = false
	p.Address = ""

	var sig chan struct{}
	var hunterCh chan string

	if g.state.Started && !g.state.Ended {
		switch g.state.CurrentPhase {
		case models.PhaseNight:
			if p.IsAlive && g.skipSlotForDisconnectLocked(p) {
				sig = g.nightSignals[p.Role]
			}
		case models.PhaseVoting:
			if p.IsAlive {
				if _, ok := g.state.Votes[p.ID]; !ok {
					g.state.Votes[p.ID] = models.AbstainVote
					g.closeVoteDoneIfComplete()
				}
			}
		}
		if g.hunterID == p.ID && g.hunterWait != nil {
			hunterCh = g.hunterWait
		}
	}
	g.mu.Unlock()

	signal(sig)
	if hunterCh != nil {
		select {
		case hunterCh <- "":
		default:
		}
	}

	g.broadcast(network.MsgTypePlayerDisconnected, PlayerDisconnectedPayload{PlayerID: playerID})
	g.broadcastRoster()
	g.checkpointLogged()
	g.evaluateWin()
}

// skipSlotForDisconnectLocked marks the player's pending slot Skipped.
// A werewolf slot is skipped only when no other living werewolf is
// still connected. Returns true when a slot was synthesized.
func (g *Game) skipSlotForDisconnectLocked(p *models.Player) bool {
	if roles.NightAction(p.Role) == roles.ActionNone {
		return false
	}
	if p.Role == roles.Werewolf {
		for _, other := range g.state.AliveWithRole(roles.Werewolf) {
			if other.ID != p.ID && (other.IsAI || other.IsConnected) {
				return false
			}
		}
	}

	switch p.Role {
	case roles.Werewolf:
		if g.state.NightActions.Werewolf.Filled() {
			return false
		}
		g.state.NightActions.Werewolf = models.ActionSlot{State: models.SlotSkipped}
	case roles.Bodyguard:
		if g.state.NightActions.Bodyguard.Filled() {
			return false
		}
		g.state.NightActions.Bodyguard = models.ActionSlot{State: models.SlotSkipped}
	case roles.Doctor:
		if g.state.NightActions.Doctor.Filled() {
			return false
		}
		g.state.NightActions.Doctor = models.ActionSlot{State: models.SlotSkipped}
	case roles.Witch:
		if g.state.NightActions.Witch.Filled() {
			return false
		}
		g.state.NightActions.Witch = models.WitchSlot{State: models.SlotSkipped}
	case roles.Seer:
		if g.state.NightActions.Seer.Filled() {
			return false
		}
		g.state.NightActions.Seer = models.ActionSlot{State: models.SlotSkipped}
	}
	return true
}

func signal(ch chan struct{}) {
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// broadcast sends to every session in the game room.
func (g *Game) broadcast(msgID uint16, v interface{}) {
	if err := g.bus.BroadcastToGame(g.id, msgID, v); err != nil {
		logger.Log.Warnw("broadcast failed", "game", g.id, "msg", msgID, "error", err)
	}
}

func (g *Game) sendError(address, message string) {
	if address == "" {
		return
	}
	g.bus.SendToPlayer(address, network.MsgTypeError, ErrorPayload{Message: message})
}

// broadcastRoster publishes the player list; roles of the living stay
// hidden once the game has started.
func (g *Game) broadcastRoster() {
	g.mu.Lock()
	if g.state == nil {
		g.mu.Unlock()
		return
	}
	var infos []PlayerInfo
	for _, p := range g.state.Players {
		info := PlayerInfo{
			ID:          p.ID,
			Username:    p.Name,
			IsAlive:     p.IsAlive,
			IsAI:        p.IsAI,
			IsConnected: p.IsConnected,
		}
		if g.state.Started && !p.IsAlive {
			info.Role = p.Role
		}
		infos = append(infos, info)
	}
	g.mu.Unlock()
	g.broadcast(network.MsgTypeUpdatePlayerList, infos)
}

// checkpoint persists the aggregate. The in-memory state stays
// authoritative on failure; the error is surfaced to the caller of the
// action that triggered the write.
func (g *Game) checkpoint() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == nil {
		return nil
	}
	if err := g.store.SaveGame(g.state); err != nil {
		logger.Log.Errorw("checkpoint failed", "game", g.id, "error", err)
		return fmt.Errorf("persisting game %s: %w", g.id, err)
	}
	return nil
}

func (g *Game) checkpointLogged() {
	_ = g.checkpoint()
}

// Checkpoint persists the current state on demand.
func (g *Game) Checkpoint() error { return g.checkpoint() }

// ChatHistory returns a copy of the persisted public chat lines.
func (g *Game) ChatHistory() []models.ChatMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == nil {
		return nil
	}
	return append([]models.ChatMessage(nil), g.state.Messages...)
}
