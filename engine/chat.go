package engine

import (
	"time"

	"github.com/wfunc/werewolf/models"
	"github.com/wfunc/werewolf/network"
	"github.com/wfunc/werewolf/roles"
)

// ChatPayload is the inbound chat body. WhisperTarget set means a
// private message to that player.
type ChatPayload struct {
	Message       string `json:"message"`
	WhisperTarget string `json:"whisper_target,omitempty"`
}

// SubmitChatMessage routes a chat line under the visibility rules:
// before the game starts everyone talks to everyone; at night only
// living werewolves share a channel (plus whispers); by day all living
// players talk publicly. The dead never post once the game has
// started. Rate limit violations and rejected messages are reported
// only to the sender; rejected messages do not start the cooldown.
func (g *Game) SubmitChatMessage(playerID string, payload ChatPayload) {
	if payload.Message == "" {
		return
	}

	g.mu.Lock()
	if g.state == nil {
		g.mu.Unlock()
		return
	}
	sender := g.state.FindPlayer(playerID)
	if sender == nil {
		g.mu.Unlock()
		return
	}
	address := sender.Address
	started := g.state.Started
	ended := g.state.Ended
	phase := g.state.CurrentPhase

	if started && !sender.IsAlive {
		g.mu.Unlock()
		g.sendError(address, "the dead do not speak")
		return
	}

	now := time.Now()
	if last, ok := g.lastMessageAt[playerID]; ok && now.Sub(last) < g.messageCooldown {
		g.mu.Unlock()
		g.sendError(address, "you are sending messages too quickly")
		return
	}

	msg := models.ChatMessage{
		PlayerID:  playerID,
		Username:  sender.Name,
		Message:   g.filter.Clean(payload.Message),
		Timestamp: now,
	}

	if payload.WhisperTarget != "" {
		target := g.state.FindPlayer(payload.WhisperTarget)
		if target == nil || (started && !target.IsAlive) {
			g.mu.Unlock()
			g.sendError(address, "whisper target unavailable")
			return
		}
		g.lastMessageAt[playerID] = now
		msg.IsWhisper = true
		msg.WhisperTarget = target.ID
		targetAddress := ""
		if !target.IsAI && target.IsConnected {
			targetAddress = target.Address
		}
		g.mu.Unlock()

		if targetAddress != "" {
			g.bus.SendToPlayer(targetAddress, network.MsgTypeChatMessage, msg)
		}
		g.bus.SendToPlayer(address, network.MsgTypeChatMessage, msg)
		if g.metrics != nil {
			g.metrics.IncChatMessages()
		}
		return
	}

	if started && !ended && phase == models.PhaseNight {
		if sender.Role != roles.Werewolf {
			g.mu.Unlock()
			g.sendError(address, "only werewolves may talk at night")
			return
		}
		g.lastMessageAt[playerID] = now
		var addresses []string
		for _, w := range g.state.AliveWithRole(roles.Werewolf) {
			if !w.IsAI && w.IsConnected && w.Address != "" {
				addresses = append(addresses, w.Address)
			}
		}
		g.mu.Unlock()

		for _, addr := range addresses {
			g.bus.SendToPlayer(addr, network.MsgTypeChatMessage, msg)
		}
		if g.metrics != nil {
			g.metrics.IncChatMessages()
		}
		return
	}

	// 公开消息进入历史, 超出上限丢弃最老的
	g.lastMessageAt[playerID] = now
	g.state.Messages = append(g.state.Messages, msg)
	if len(g.state.Messages) > models.MaxChatHistory {
		g.state.Messages = g.state.Messages[len(g.state.Messages)-models.MaxChatHistory:]
	}
	g.mu.Unlock()

	g.broadcast(network.MsgTypeChatMessage, msg)
	if g.metrics != nil {
		g.metrics.IncChatMessages()
	}
	g.checkpointLogged()
}
