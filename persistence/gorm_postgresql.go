// persistence/gorm_postgresql.go
package persistence

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/werewolf/models"
	"github.com/wfunc/werewolf/roles"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormGame{},
		&models.GormGamePlayer{},
		&models.GormGameRecord{},
	)
}

// sessionState is the jsonb blob stored alongside the game row: the
// transient per-phase state plus configuration and bounded chat log.
type sessionState struct {
	NightActions  models.NightActions  `json:"night_actions"`
	Votes         map[string]string    `json:"votes"`
	Messages      []models.ChatMessage `json:"messages"`
	Config        models.GameConfig    `json:"config"`
	LastProtected string               `json:"last_protected,omitempty"`
	Investigated  []string             `json:"investigated,omitempty"`
	StartedAt     time.Time            `json:"started_at"`
	EndedAt       time.Time            `json:"ended_at"`
}

func toJSONMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromJSONMap(m map[string]interface{}, v interface{}) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// SaveGame 保存游戏存档（阶段边界与每次有效行动时调用）
func (p *GormPostgreSQL) SaveGame(game *models.GameSession) error {
	state, err := toJSONMap(sessionState{
		NightActions:  game.NightActions,
		Votes:         game.Votes,
		Messages:      game.Messages,
		Config:        game.Config,
		LastProtected: game.LastProtected,
		Investigated:  game.Investigated,
		StartedAt:     game.StartedAt,
		EndedAt:       game.EndedAt,
	})
	if err != nil {
		return err
	}

	return p.db.Transaction(func(tx *gorm.DB) error {
		var row models.GormGame
		result := tx.Where("game_id = ?", game.ID).First(&row)

		row.GameID = game.ID
		row.Phase = string(game.CurrentPhase)
		row.Started = game.Started
		row.Ended = game.Ended
		row.Winner = string(game.Winner)
		row.PhaseStartedAt = game.PhaseStartedAt
		row.PhaseDurationMs = game.PhaseDurationMs
		row.State = state

		if result.Error == gorm.ErrRecordNotFound {
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		} else if result.Error != nil {
			return result.Error
		} else if err := tx.Save(&row).Error; err != nil {
			return err
		}

		for _, player := range game.Players {
			if err := savePlayerTx(tx, game.ID, player); err != nil {
				return err
			}
		}
		return nil
	})
}

func savePlayerTx(tx *gorm.DB, gameID string, player *models.Player) error {
	var potions map[string]interface{}
	if player.Potions != nil {
		var err error
		potions, err = toJSONMap(player.Potions)
		if err != nil {
			return err
		}
	}

	var row models.GormGamePlayer
	result := tx.Where("player_id = ?", player.ID).First(&row)

	row.GameID = gameID
	row.PlayerID = player.ID
	row.UserID = player.UserID
	row.Name = player.Name
	row.IsAI = player.IsAI
	row.IsAlive = player.IsAlive
	row.IsConnected = player.IsConnected
	row.Role = string(player.Role)
	row.Potions = potions

	if result.Error == gorm.ErrRecordNotFound {
		return tx.Create(&row).Error
	} else if result.Error != nil {
		return result.Error
	}
	return tx.Save(&row).Error
}

// SavePlayer 保存单个玩家
func (p *GormPostgreSQL) SavePlayer(gameID string, player *models.Player) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		return savePlayerTx(tx, gameID, player)
	})
}

// LoadGame 加载游戏存档
func (p *GormPostgreSQL) LoadGame(gameID string) (*models.GameSession, error) {
	var row models.GormGame
	if err := p.db.Where("game_id = ?", gameID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrGameNotFound
		}
		return nil, err
	}

	var state sessionState
	if row.State != nil {
		if err := fromJSONMap(row.State, &state); err != nil {
			return nil, err
		}
	}

	var playerRows []models.GormGamePlayer
	if err := p.db.Where("game_id = ?", gameID).Order("id").Find(&playerRows).Error; err != nil {
		return nil, err
	}

	game := &models.GameSession{
		ID:              row.GameID,
		Started:         row.Started,
		Ended:           row.Ended,
		Winner:          models.Winner(row.Winner),
		CurrentPhase:    models.Phase(row.Phase),
		NightActions:    state.NightActions,
		Votes:           state.Votes,
		PhaseStartedAt:  row.PhaseStartedAt,
		PhaseDurationMs: row.PhaseDurationMs,
		Messages:        state.Messages,
		Config:          state.Config,
		LastProtected:   state.LastProtected,
		Investigated:    state.Investigated,
		StartedAt:       state.StartedAt,
		EndedAt:         state.EndedAt,
	}
	if game.Winner == "" {
		game.Winner = models.WinnerNone
	}
	if game.Votes == nil {
		game.Votes = make(map[string]string)
	}

	for _, pr := range playerRows {
		player := &models.Player{
			ID:          pr.PlayerID,
			UserID:      pr.UserID,
			Name:        pr.Name,
			IsAI:        pr.IsAI,
			IsAlive:     pr.IsAlive,
			IsConnected: pr.IsConnected,
			Role:        roles.Role(pr.Role),
		}
		if pr.Potions != nil {
			var potions models.Potions
			if err := fromJSONMap(pr.Potions, &potions); err != nil {
				return nil, err
			}
			player.Potions = &potions
		}
		game.Players = append(game.Players, player)
	}

	return game, nil
}

// SaveGameRecord 保存对局结果记录
func (p *GormPostgreSQL) SaveGameRecord(gameID string, winner models.Winner, players map[string]interface{}, durationSec int) error {
	record := models.GormGameRecord{
		GameID:   gameID,
		Winner:   string(winner),
		Players:  players,
		Duration: durationSec,
	}
	return p.db.Create(&record).Error
}

// GetPlayerStats 获取玩家统计信息
func (p *GormPostgreSQL) GetPlayerStats(userID string) (*models.PlayerStats, error) {
	var stats models.PlayerStats

	err := p.db.Raw(
		`
        SELECT
            COUNT(*) as total_games,
            COALESCE(SUM(CASE WHEN players->?->>'outcome' = 'win' THEN 1 ELSE 0 END), 0) as wins,
            COALESCE(SUM(CASE WHEN players->?->>'outcome' = 'lose' THEN 1 ELSE 0 END), 0) as losses
        FROM gorm_game_records
        WHERE players ->> ? IS NOT NULL`,
		userID, userID, userID,
	).Scan(&stats).Error

	return &stats, err
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction exposes gorm transactions to the services layer.
func (p *GormPostgreSQL) Transaction(fn func(tx *gorm.DB) error) error {
	return p.db.Transaction(fn)
}
