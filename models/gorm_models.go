// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormGame 游戏存档模型
type GormGame struct {
	gorm.Model
	GameID          string                 `gorm:"uniqueIndex;not null"`
	Phase           string                 `gorm:"not null"`
	Started         bool                   `gorm:"default:false"`
	Ended           bool                   `gorm:"default:false"`
	Winner          string                 `gorm:"default:none"`
	PhaseStartedAt  time.Time
	PhaseDurationMs int64
	State           map[string]interface{} `gorm:"type:jsonb"` // night actions, votes, trackers, config, chat
}

// GormGamePlayer 对局内玩家模型
type GormGamePlayer struct {
	gorm.Model
	GameID      string                 `gorm:"index;not null"`
	PlayerID    string                 `gorm:"uniqueIndex;not null"`
	UserID      string                 `gorm:"index"`
	Name        string                 `gorm:"not null"`
	IsAI        bool                   `gorm:"default:false"`
	IsAlive     bool                   `gorm:"default:true"`
	IsConnected bool                   `gorm:"default:true"`
	Role        string
	Potions     map[string]interface{} `gorm:"type:jsonb"`
}

// GormGameRecord 对局结果记录
type GormGameRecord struct {
	gorm.Model
	GameID   string                 `gorm:"index;not null"`
	Winner   string                 `gorm:"not null"`
	Players  map[string]interface{} `gorm:"type:jsonb;not null"`
	Duration int                    `gorm:"default:0"` // 对局时长(秒)
}

// PlayerStats 玩家统计信息
type PlayerStats struct {
	TotalGames int `json:"total_games"`
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
}
