// persistence/interface.go
package persistence

import (
	"errors"

	"github.com/wfunc/werewolf/models"
)

// Store persists the game aggregate. The engine writes a checkpoint at
// every phase boundary and every accepted action; a failed write leaves
// the in-memory state authoritative and a later checkpoint retries.
type Store interface {
	SaveGame(game *models.GameSession) error
	LoadGame(gameID string) (*models.GameSession, error)
	SavePlayer(gameID string, player *models.Player) error
	SaveGameRecord(gameID string, winner models.Winner, players map[string]interface{}, durationSec int) error
	GetPlayerStats(userID string) (*models.PlayerStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrGameNotFound   = errors.New("game not found")
)
