// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"errors"

	"github.com/wfunc/werewolf/session"
)

var (
	ErrAddressNotFound = errors.New("address not found")
)

// Broadcaster is the outbound event channel the engine publishes on:
// game-scoped broadcast, per-participant addressed send, and eviction
// of every participant when a game ends.
type Broadcaster interface {
	BroadcastToGame(gameID string, msgID uint16, v interface{}) error
	SendToPlayer(address string, msgID uint16, v interface{}) error
	EvictGame(gameID string)
}

// 基于会话管理器的广播器
type GameBroadcaster struct {
	sessionManager *session.Manager
}

func NewGameBroadcaster(sessionManager *session.Manager) *GameBroadcaster {
	return &GameBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *GameBroadcaster) BroadcastToGame(gameID string, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	for _, s := range b.sessionManager.GetByGame(gameID) {
		if err := s.Send(msgID, data); err != nil {
			// 发送失败不影响其他会话
			continue
		}
	}
	return nil
}

// SendToPlayer targets one participant by their opaque transport
// address. Sends to an unknown address (AI players, disconnected
// humans) report ErrAddressNotFound; callers generally ignore it.
func (b *GameBroadcaster) SendToPlayer(address string, msgID uint16, v interface{}) error {
	if address == "" {
		return ErrAddressNotFound
	}
	s, exists := b.sessionManager.Get(address)
	if !exists {
		return ErrAddressNotFound
	}
	return s.SendJSON(msgID, v)
}

func (b *GameBroadcaster) EvictGame(gameID string) {
	for _, s := range b.sessionManager.GetByGame(gameID) {
		s.Unbind()
	}
}
