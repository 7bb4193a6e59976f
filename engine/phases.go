package engine

import (
	"context"
	"time"

	"github.com/wfunc/werewolf/logger"
	"github.com/wfunc/werewolf/models"
	"github.com/wfunc/werewolf/network"
	"github.com/wfunc/werewolf/roles"
	"github.com/wfunc/werewolf/timer"
)

const timerTickInterval = time.Second

// run drives the phase cycle until the game ends or the context is
// cancelled. resumePhase is empty for a fresh start; remaining < 0
// means use the full configured duration for the first phase.
func (g *Game) run(ctx context.Context, resumePhase models.Phase, remaining time.Duration) {
	defer close(g.loopDone)

	phase := resumePhase
	if phase == "" {
		phase = models.PhaseNight
	}

	for {
		if ctx.Err() != nil {
			return
		}
		g.mu.Lock()
		if g.state == nil || g.state.Ended || !g.active {
			g.mu.Unlock()
			return
		}
		g.mu.Unlock()

		var next models.Phase
		switch phase {
		case models.PhaseNight:
			if !g.nightPhase(ctx, remaining) {
				return
			}
			if g.evaluateWin() {
				return
			}
			next = models.PhaseDiscussion
		case models.PhaseDiscussion:
			if !g.discussionPhase(ctx, remaining) {
				return
			}
			next = models.PhaseVoting
		case models.PhaseVoting:
			if !g.votingPhase(ctx, remaining) {
				return
			}
			if g.evaluateWin() {
				return
			}
			next = models.PhaseNight
		default:
			logger.Log.Errorw("run loop in unexpected phase", "game", g.id, "phase", phase)
			return
		}

		phase = next
		remaining = -1
	}
}

// enterPhase stamps the boundary, checkpoints and announces the phase.
// It returns the effective duration for the wait.
func (g *Game) enterPhase(phase models.Phase, remaining time.Duration) time.Duration {
	g.mu.Lock()
	full := g.phaseDurationLocked(phase)
	duration := remaining
	if duration < 0 {
		duration = full
	}
	g.state.CurrentPhase = phase
	// 恢复时保留原始时间戳, 只在全新阶段刷新
	if remaining < 0 {
		g.state.PhaseStartedAt = time.Now()
		g.state.PhaseDurationMs = full.Milliseconds()
	}
	g.mu.Unlock()

	g.checkpointLogged()
	g.broadcast(network.MsgTypePhaseChange, PhaseChangePayload{
		Phase:            phase,
		DurationSeconds:  int(full / time.Second),
		RemainingSeconds: int((duration + time.Second - 1) / time.Second),
	})
	return duration
}

func (g *Game) phaseDurationLocked(phase models.Phase) time.Duration {
	cfg := g.state.Config
	switch phase {
	case models.PhaseNight:
		return cfg.NightDuration()
	case models.PhaseDiscussion:
		return cfg.DiscussionDuration()
	case models.PhaseVoting:
		return cfg.VotingDuration()
	default:
		return 0
	}
}

func (g *Game) newPhaseTimer(phase models.Phase, duration time.Duration) *timer.PhaseTimer {
	return timer.NewPhaseTimer(string(phase), duration, timerTickInterval, func(name string, remainingSeconds int) {
		g.broadcast(network.MsgTypeTimerUpdate, TimerUpdatePayload{Phase: name, RemainingSeconds: remainingSeconds})
	})
}

// nightPhase walks the role pipeline in fixed order under one shared
// deadline, then resolves. Returns false when the context was
// cancelled mid-phase.
func (g *Game) nightPhase(ctx context.Context, remaining time.Duration) bool {
	start := time.Now()
	duration := g.enterPhase(models.PhaseNight, remaining)

	g.mu.Lock()
	g.nightSignals = map[roles.Role]chan struct{}{
		roles.Werewolf:  make(chan struct{}, 1),
		roles.Bodyguard: make(chan struct{}, 1),
		roles.Doctor:    make(chan struct{}, 1),
		roles.Witch:     make(chan struct{}, 1),
		roles.Seer:      make(chan struct{}, 1),
	}
	g.mu.Unlock()

	t := g.newPhaseTimer(models.PhaseNight, duration)
	defer t.Stop()

	expired := false
	for _, role := range roles.NightOrder {
		if ctx.Err() != nil {
			return false
		}
		if expired {
			break
		}
		switch g.collectNightAction(ctx, role, t) {
		case collectCancelled:
			return false
		case collectExpired:
			expired = true
		}
	}

	g.autoResolveNight()
	g.resolveNight()
	g.observePhase(models.PhaseNight, start)
	return true
}

type collectResult int

const (
	collectDone collectResult = iota
	collectExpired
	collectCancelled
)

// collectNightAction settles one role's slot: no living holder skips
// it, AI holders decide immediately, and connected humans are prompted
// and awaited until they act, every holder disconnects, or the shared
// night timer fires. A role held only by offline humans keeps its slot
// pending for the deadline settlement.
func (g *Game) collectNightAction(ctx context.Context, role roles.Role, t *timer.PhaseTimer) collectResult {
	g.mu.Lock()
	actors := g.state.AliveWithRole(role)
	if len(actors) == 0 {
		g.skipRoleLocked(role)
		g.mu.Unlock()
		return collectDone
	}
	if g.slotFilledLocked(role) {
		g.mu.Unlock()
		return collectDone
	}

	var humans []*models.Player
	var ais []*models.Player
	for _, p := range actors {
		if p.IsAI {
			ais = append(ais, p)
		} else if p.IsConnected {
			humans = append(humans, p)
		}
	}
	if len(humans) == 0 {
		if len(ais) > 0 {
			g.decideRoleLocked(role, ais, false)
		}
		// 只剩掉线真人时交给截止结算处理
		g.mu.Unlock()
		return collectDone
	}

	prompt := g.turnPromptLocked(role, t)
	addresses := make([]string, 0, len(humans))
	for _, p := range humans {
		if p.Address != "" {
			addresses = append(addresses, p.Address)
		}
	}
	sig := g.nightSignals[role]
	g.mu.Unlock()

	msgID := turnMessageID(role)
	for _, addr := range addresses {
		g.bus.SendToPlayer(addr, msgID, prompt)
	}

	for {
		select {
		case <-sig:
			g.mu.Lock()
			filled := g.slotFilledLocked(role)
			g.mu.Unlock()
			if filled {
				return collectDone
			}
		case <-t.Expired():
			return collectExpired
		case <-ctx.Done():
			return collectCancelled
		}
	}
}

// turnPromptLocked builds the private prompt for a role's turn. The
// witch additionally learns the pending werewolf target and her
// remaining potions. Caller holds g.mu.
func (g *Game) turnPromptLocked(role roles.Role, t *timer.PhaseTimer) TurnPayload {
	prompt := TurnPayload{
		Description:      roles.Description(role),
		RemainingSeconds: t.RemainingSeconds(),
	}
	if role == roles.Witch {
		if g.state.NightActions.Werewolf.State == models.SlotResolved {
			prompt.PendingTarget = g.state.NightActions.Werewolf.TargetID
		}
		for _, w := range g.state.AliveWithRole(roles.Witch) {
			if w.Potions != nil {
				prompt.HealAvailable = w.Potions.Heal
				prompt.KillAvailable = w.Potions.Kill
			}
		}
	}
	return prompt
}

func turnMessageID(role roles.Role) uint16 {
	switch role {
	case roles.Werewolf:
		return network.MsgTypeWerewolfTurn
	case roles.Seer:
		return network.MsgTypeSeerTurn
	case roles.Doctor:
		return network.MsgTypeDoctorTurn
	case roles.Bodyguard:
		return network.MsgTypeBodyguardTurn
	case roles.Witch:
		return network.MsgTypeWitchTurn
	default:
		return network.MsgTypeError
	}
}

func autoMessageID(role roles.Role) uint16 {
	switch role {
	case roles.Werewolf:
		return network.MsgTypeAutoWerewolfAction
	case roles.Seer:
		return network.MsgTypeAutoSeerAction
	case roles.Doctor:
		return network.MsgTypeAutoDoctorAction
	case roles.Bodyguard:
		return network.MsgTypeAutoBodyguardAction
	case roles.Witch:
		return network.MsgTypeAutoWitchAction
	default:
		return network.MsgTypeError
	}
}

func (g *Game) slotFilledLocked(role roles.Role) bool {
	na := &g.state.NightActions
	switch role {
	case roles.Werewolf:
		return na.Werewolf.Filled()
	case roles.Bodyguard:
		return na.Bodyguard.Filled()
	case roles.Doctor:
		return na.Doctor.Filled()
	case roles.Witch:
		return na.Witch.Filled()
	case roles.Seer:
		return na.Seer.Filled()
	}
	return true
}

func (g *Game) skipRoleLocked(role roles.Role) {
	na := &g.state.NightActions
	switch role {
	case roles.Werewolf:
		na.Werewolf = models.ActionSlot{State: models.SlotSkipped}
	case roles.Bodyguard:
		na.Bodyguard = models.ActionSlot{State: models.SlotSkipped}
	case roles.Doctor:
		na.Doctor = models.ActionSlot{State: models.SlotSkipped}
	case roles.Witch:
		na.Witch = models.WitchSlot{State: models.SlotSkipped}
	case roles.Seer:
		na.Seer = models.ActionSlot{State: models.SlotSkipped}
	}
}

// decideRoleLocked fills a role's slot with the decision provider.
// Used both for pure-AI holders and for timeout auto-resolution.
// Caller holds g.mu; notifications are queued and sent by the caller
// of autoResolveNight via the auto flag on the slot.
func (g *Game) decideRoleLocked(role roles.Role, actors []*models.Player, auto bool) {
	snap := g.snapshotLocked(actors[0].ID)
	actorID := actors[0].ID

	switch role {
	case roles.Werewolf:
		target, err := g.decider.WerewolfTarget(snap)
		g.finishTargetDecisionLocked(role, target, err, auto)
	case roles.Bodyguard:
		target, err := g.decider.BodyguardTarget(snap, actorID)
		g.finishTargetDecisionLocked(role, target, err, auto)
	case roles.Doctor:
		target, err := g.decider.DoctorTarget(snap, actorID)
		g.finishTargetDecisionLocked(role, target, err, auto)
	case roles.Seer:
		target, err := g.decider.SeerTarget(snap, actorID)
		g.finishTargetDecisionLocked(role, target, err, auto)
	case roles.Witch:
		decision, err := g.decider.WitchDecision(snap, actorID)
		if err != nil {
			g.state.NightActions.Witch = models.WitchSlot{State: models.SlotSkipped}
			return
		}
		g.state.NightActions.Witch = models.WitchSlot{State: models.SlotResolved, Decision: decision, Auto: auto}
	}
}

func (g *Game) finishTargetDecisionLocked(role roles.Role, target string, err error, auto bool) {
	if err != nil || target == "" {
		g.skipRoleLocked(role)
		return
	}
	slot := models.ActionSlot{State: models.SlotResolved, TargetID: target, Auto: auto}
	na := &g.state.NightActions
	switch role {
	case roles.Werewolf:
		na.Werewolf = slot
	case roles.Bodyguard:
		na.Bodyguard = slot
	case roles.Doctor:
		na.Doctor = slot
	case roles.Seer:
		na.Seer = slot
	}
}

// autoResolveNight settles every still-pending slot after the deadline:
// the decision provider fills it when auto-resolve is on, otherwise it
// is skipped. Affected connected humans get an Auto*Action notice.
func (g *Game) autoResolveNight() {
	type notice struct {
		address string
		msgID   uint16
		payload AutoActionPayload
	}
	var notices []notice

	g.mu.Lock()
	for _, role := range roles.NightOrder {
		if g.slotFilledLocked(role) {
			continue
		}
		actors := g.state.AliveWithRole(role)
		if len(actors) == 0 || !g.state.Config.AutoResolve {
			g.skipRoleLocked(role)
			continue
		}
		g.decideRoleLocked(role, actors, true)
		if !g.slotResolvedLocked(role) {
			continue
		}
		target := g.slotTargetLocked(role)
		for _, p := range actors {
			if !p.IsAI && p.IsConnected && p.Address != "" {
				notices = append(notices, notice{
					address: p.Address,
					msgID:   autoMessageID(role),
					payload: AutoActionPayload{Role: role, TargetID: target},
				})
			}
		}
	}
	g.mu.Unlock()

	for _, n := range notices {
		g.bus.SendToPlayer(n.address, n.msgID, n.payload)
	}
}

func (g *Game) slotResolvedLocked(role roles.Role) bool {
	na := &g.state.NightActions
	switch role {
	case roles.Witch:
		return na.Witch.State == models.SlotResolved
	case roles.Werewolf:
		return na.Werewolf.State == models.SlotResolved
	case roles.Bodyguard:
		return na.Bodyguard.State == models.SlotResolved
	case roles.Doctor:
		return na.Doctor.State == models.SlotResolved
	case roles.Seer:
		return na.Seer.State == models.SlotResolved
	}
	return false
}

func (g *Game) slotTargetLocked(role roles.Role) string {
	na := &g.state.NightActions
	switch role {
	case roles.Witch:
		return na.Witch.Decision.TargetID
	case roles.Werewolf:
		return na.Werewolf.TargetID
	case roles.Bodyguard:
		return na.Bodyguard.TargetID
	case roles.Doctor:
		return na.Doctor.TargetID
	case roles.Seer:
		return na.Seer.TargetID
	}
	return ""
}

// resolveNight applies the fixed resolution order, consumes witch
// potions, records protection and investigation history, eliminates
// the victims and then delivers the seer result.
func (g *Game) resolveNight() {
	g.mu.Lock()
	outcome := ResolveNight(g.state.NightActions)

	if outcome.HealConsumed || outcome.KillConsumed {
		for _, w := range g.state.AliveWithRole(roles.Witch) {
			if w.Potions == nil {
				continue
			}
			if outcome.HealConsumed {
				w.Potions.Heal = false
			}
			if outcome.KillConsumed {
				w.Potions.Kill = false
			}
		}
	}

	if g.state.NightActions.Bodyguard.State == models.SlotResolved {
		g.state.LastProtected = g.state.NightActions.Bodyguard.TargetID
	} else {
		g.state.LastProtected = ""
	}

	var seerNotice *SeerResultPayload
	if outcome.SeerTarget != "" {
		target := g.state.FindPlayer(outcome.SeerTarget)
		if target != nil {
			g.state.Investigated = appendUnique(g.state.Investigated, target.ID)
			seerNotice = &SeerResultPayload{
				TargetID:   target.ID,
				TargetName: target.Name,
				IsWerewolf: target.Role == roles.Werewolf,
			}
		}
	}

	g.state.NightActions.Reset()
	eliminations := outcome.Eliminations
	g.mu.Unlock()

	for _, e := range eliminations {
		g.eliminatePlayer(e.PlayerID, e.Cause)
	}

	// 先结算死亡, 夜里死掉的预言家收不到结果
	if seerNotice != nil {
		var seerAddress string
		g.mu.Lock()
		for _, s := range g.state.AliveWithRole(roles.Seer) {
			if !s.IsAI && s.IsConnected && s.Address != "" {
				seerAddress = s.Address
			}
		}
		g.mu.Unlock()
		if seerAddress != "" {
			g.bus.SendToPlayer(seerAddress, network.MsgTypeSeerResult, *seerNotice)
		}
	}

	g.checkpointLogged()
	g.broadcastRoster()
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// eliminatePlayer kills the player, announces it with their revealed
// role, and runs the hunter retaliation cascade before returning.
func (g *Game) eliminatePlayer(playerID, cause string) {
	g.mu.Lock()
	p := g.state.FindPlayer(playerID)
	if p == nil || !p.IsAlive {
		g.mu.Unlock()
		return
	}
	p.IsAlive = false
	role := p.Role
	name := p.Name
	saved := *p
	g.mu.Unlock()

	if err := g.store.SavePlayer(g.id, &saved); err != nil {
		logger.Log.Errorw("player save failed", "game", g.id, "player", playerID, "error", err)
	}

	g.broadcast(network.MsgTypePlayerEliminated, PlayerEliminatedPayload{
		PlayerID: playerID,
		Name:     name,
		Role:     role,
		Cause:    cause,
	})
	logger.Log.Infow("player eliminated", "game", g.id, "player", playerID, "role", role, "cause", cause)

	if roles.HasDeathAbility(role) {
		g.resolveHunterRetaliation(p)
	}
}

// resolveHunterRetaliation collects the dying hunter's shot. An AI
// hunter asks the decision provider right away; a connected human gets
// a prompt with its own short timer and the provider steps in on
// expiry only when auto-resolve is on.
func (g *Game) resolveHunterRetaliation(hunter *models.Player) {
	g.mu.Lock()
	snap := g.snapshotLocked(hunter.ID)
	autoResolve := g.state.Config.AutoResolve
	duration := g.state.Config.HunterDuration()
	isAI := hunter.IsAI
	connected := !hunter.IsAI && hunter.IsConnected && hunter.Address != ""
	address := hunter.Address
	g.mu.Unlock()

	var target string
	if connected {
		ch := make(chan string, 1)
		g.mu.Lock()
		g.hunterWait = ch
		g.hunterID = hunter.ID
		g.mu.Unlock()

		t := g.newPhaseTimer("hunter", duration)
		g.bus.SendToPlayer(address, network.MsgTypeHunterTurn, TurnPayload{
			Description:      roles.Description(roles.Hunter),
			RemainingSeconds: t.RemainingSeconds(),
		})
		select {
		case target = <-ch:
		case <-t.Expired():
		}
		t.Stop()

		g.mu.Lock()
		g.hunterWait = nil
		g.hunterID = ""
		g.mu.Unlock()
	}

	if target == "" && (isAI || autoResolve) {
		if picked, err := g.decider.HunterTarget(snap, hunter.ID); err == nil {
			target = picked
		}
	}
	if target == "" || target == hunter.ID {
		return
	}

	g.mu.Lock()
	victim := g.state.FindPlayer(target)
	valid := victim != nil && victim.IsAlive
	g.mu.Unlock()
	if valid {
		g.eliminatePlayer(target, CauseHunter)
	}
}

// discussionPhase is a pure wait; chat flows through SubmitChatMessage.
func (g *Game) discussionPhase(ctx context.Context, remaining time.Duration) bool {
	start := time.Now()
	duration := g.enterPhase(models.PhaseDiscussion, remaining)
	g.broadcast(network.MsgTypeDiscussionStarted, PhaseChangePayload{
		Phase:            models.PhaseDiscussion,
		RemainingSeconds: int((duration + time.Second - 1) / time.Second),
	})

	t := g.newPhaseTimer(models.PhaseDiscussion, duration)
	defer t.Stop()
	select {
	case <-t.Expired():
		g.observePhase(models.PhaseDiscussion, start)
		return true
	case <-ctx.Done():
		return false
	}
}

// votingPhase collects one vote per living player, closing early when
// everyone has voted, then applies the tally.
func (g *Game) votingPhase(ctx context.Context, remaining time.Duration) bool {
	start := time.Now()
	duration := g.enterPhase(models.PhaseVoting, remaining)

	g.mu.Lock()
	// 续跑时保留已有投票
	if remaining < 0 || g.state.Votes == nil {
		g.state.Votes = make(map[string]string)
	}
	g.voteDone = make(chan struct{})
	g.voteClosed = false
	noLynch := g.state.Config.NoLynchAllowed
	var candidates []PlayerInfo
	for _, p := range g.state.AlivePlayers() {
		candidates = append(candidates, PlayerInfo{ID: p.ID, Username: p.Name, IsAlive: true, IsAI: p.IsAI})
	}
	g.mu.Unlock()

	g.broadcast(network.MsgTypeVotingStarted, VotingStartedPayload{
		Candidates:       candidates,
		NoLynchAllowed:   noLynch,
		RemainingSeconds: int((duration + time.Second - 1) / time.Second),
	})

	g.castAIVotes()
	g.synthesizeDisconnectedVotes()

	t := g.newPhaseTimer(models.PhaseVoting, duration)
	select {
	case <-g.voteDone:
	case <-t.Expired():
	case <-ctx.Done():
		t.Stop()
		return false
	}
	t.Stop()

	g.autoResolveVotes()
	g.applyTally()
	g.observePhase(models.PhaseVoting, start)
	return true
}

func (g *Game) castAIVotes() {
	type cast struct{ voter, target string }
	var casts []cast

	g.mu.Lock()
	for _, p := range g.state.AlivePlayers() {
		if !p.IsAI {
			continue
		}
		if _, ok := g.state.Votes[p.ID]; ok {
			continue
		}
		snap := g.snapshotLocked(p.ID)
		target, err := g.decider.Vote(snap, p.ID)
		if err != nil {
			target = models.AbstainVote
		}
		g.state.Votes[p.ID] = target
		casts = append(casts, cast{voter: p.ID, target: target})
	}
	g.closeVoteDoneIfComplete()
	g.mu.Unlock()

	for _, c := range casts {
		g.broadcast(network.MsgTypeVoteRegistered, VoteRegisteredPayload{VoterID: c.voter, TargetID: c.target})
	}
}

// synthesizeDisconnectedVotes abstains for humans who were already
// offline when voting opened.
func (g *Game) synthesizeDisconnectedVotes() {
	g.mu.Lock()
	for _, p := range g.state.AlivePlayers() {
		if p.IsAI || p.IsConnected {
			continue
		}
		if _, ok := g.state.Votes[p.ID]; !ok {
			g.state.Votes[p.ID] = models.AbstainVote
		}
	}
	g.closeVoteDoneIfComplete()
	g.mu.Unlock()
}

// autoResolveVotes fills missing votes after the deadline: provider
// decision when auto-resolve is on, abstain otherwise.
func (g *Game) autoResolveVotes() {
	g.mu.Lock()
	for _, p := range g.state.AlivePlayers() {
		if _, ok := g.state.Votes[p.ID]; ok {
			continue
		}
		vote := models.AbstainVote
		if g.state.Config.AutoResolve {
			snap := g.snapshotLocked(p.ID)
			if picked, err := g.decider.Vote(snap, p.ID); err == nil {
				vote = picked
			}
		}
		g.state.Votes[p.ID] = vote
	}
	g.mu.Unlock()
}

func (g *Game) applyTally() {
	g.mu.Lock()
	result := TallyVotes(g.state.Votes, g.state.Config.NoLynchAllowed, g.rng)
	g.mu.Unlock()

	switch result.Kind {
	case TallyEliminate:
		g.eliminatePlayer(result.TargetID, CauseVote)
	case TallyNoLynch:
		g.broadcast(network.MsgTypeNoLynch, NoLynchPayload{Reason: "majority abstained"})
	case TallyNoMajority:
		g.broadcast(network.MsgTypeNoLynch, NoLynchPayload{Reason: "no votes cast"})
	}

	g.checkpointLogged()
	g.broadcastRoster()
}

// evaluateWin ends the game when a win condition holds. Returns true
// when the game ended.
func (g *Game) evaluateWin() bool {
	g.mu.Lock()
	if g.state == nil || !g.state.Started || g.state.Ended {
		ended := g.state != nil && g.state.Ended
		g.mu.Unlock()
		return ended
	}
	winner := CheckWin(g.state.Players)
	g.mu.Unlock()

	if winner == models.WinnerNone {
		return false
	}
	g.endGame(winner)
	return true
}

// endGame finalizes state, writes the permanent record, announces the
// result and tears the session down.
func (g *Game) endGame(winner models.Winner) {
	g.mu.Lock()
	if g.state.Ended {
		g.mu.Unlock()
		return
	}
	now := time.Now()
	g.state.Ended = true
	g.state.Winner = winner
	g.state.CurrentPhase = models.PhaseEnded
	g.state.EndedAt = now
	g.state.Messages = nil
	g.active = false

	record := make(map[string]interface{}, len(g.state.Players))
	var finals []PlayerInfo
	for _, p := range g.state.Players {
		key := p.UserID
		if key == "" {
			key = p.ID
		}
		record[key] = map[string]interface{}{
			"name":    p.Name,
			"role":    string(p.Role),
			"outcome": outcomeFor(p.Role, winner),
		}
		finals = append(finals, PlayerInfo{
			ID:       p.ID,
			Username: p.Name,
			IsAlive:  p.IsAlive,
			IsAI:     p.IsAI,
			Role:     p.Role,
		})
	}
	duration := 0
	if !g.state.StartedAt.IsZero() {
		duration = int(now.Sub(g.state.StartedAt) / time.Second)
	}
	cancel := g.cancel
	g.mu.Unlock()

	g.checkpointLogged()
	if err := g.store.SaveGameRecord(g.id, winner, record, duration); err != nil {
		logger.Log.Errorw("saving game record failed", "game", g.id, "error", err)
	}

	g.broadcast(network.MsgTypeGameEnded, GameEndedPayload{
		Winner:  winner,
		Reason:  winReason(winner),
		Players: finals,
	})
	logger.Log.Infow("game ended", "game", g.id, "winner", winner, "duration_sec", duration)

	if g.metrics != nil {
		g.metrics.IncGamesFinished(string(winner))
	}
	g.bus.EvictGame(g.id)
	if cancel != nil {
		cancel()
	}
}

func outcomeFor(role roles.Role, winner models.Winner) string {
	if winner == models.WinnerDraw {
		return "draw"
	}
	wolfSide := role == roles.Werewolf
	if (wolfSide && winner == models.WinnerWerewolves) || (!wolfSide && winner == models.WinnerVillagers) {
		return "win"
	}
	return "lose"
}

func winReason(winner models.Winner) string {
	switch winner {
	case models.WinnerVillagers:
		return "all werewolves eliminated"
	case models.WinnerWerewolves:
		return "werewolves reached parity"
	case models.WinnerDraw:
		return "too few players remain"
	default:
		return ""
	}
}

func (g *Game) observePhase(phase models.Phase, start time.Time) {
	if g.metrics == nil {
		return
	}
	g.metrics.ObservePhaseDuration(string(phase), time.Since(start).Seconds())
}
