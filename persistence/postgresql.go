// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/werewolf/models"
	"github.com/wfunc/werewolf/roles"
)

// PostgreSQL is the raw database/sql Store backend, selected with
// database.driver = "pq". It has no gorm dependency.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS games (
            id SERIAL PRIMARY KEY,
            game_id TEXT UNIQUE NOT NULL,
            phase TEXT NOT NULL,
            started BOOLEAN DEFAULT FALSE,
            ended BOOLEAN DEFAULT FALSE,
            winner TEXT DEFAULT 'none',
            phase_started_at TIMESTAMP,
            phase_duration_ms BIGINT DEFAULT 0,
            state JSONB,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS game_players (
            id SERIAL PRIMARY KEY,
            game_id TEXT NOT NULL,
            player_id TEXT UNIQUE NOT NULL,
            user_id TEXT,
            name TEXT NOT NULL,
            is_ai BOOLEAN DEFAULT FALSE,
            is_alive BOOLEAN DEFAULT TRUE,
            is_connected BOOLEAN DEFAULT TRUE,
            role TEXT,
            potions JSONB,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            game_id TEXT NOT NULL,
            winner TEXT NOT NULL,
            players JSONB NOT NULL,
            duration INT DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`)
	return err
}

// SaveGame 保存游戏存档
func (p *PostgreSQL) SaveGame(game *models.GameSession) error {
	state, err := json.Marshal(sessionState{
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

	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
        INSERT INTO games (game_id, phase, started, ended, winner, phase_started_at, phase_duration_ms, state, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP)
        ON CONFLICT (game_id) DO UPDATE SET
            phase = EXCLUDED.phase,
            started = EXCLUDED.started,
            ended = EXCLUDED.ended,
            winner = EXCLUDED.winner,
            phase_started_at = EXCLUDED.phase_started_at,
            phase_duration_ms = EXCLUDED.phase_duration_ms,
            state = EXCLUDED.state,
            updated_at = CURRENT_TIMESTAMP`,
		game.ID, string(game.CurrentPhase), game.Started, game.Ended,
		string(game.Winner), game.PhaseStartedAt, game.PhaseDurationMs, state)
	if err != nil {
		return err
	}

	for _, player := range game.Players {
		if err := savePlayerStmt(tx, game.ID, player); err != nil {
			return err
		}
	}

	return tx.Commit()
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func savePlayerStmt(e execer, gameID string, player *models.Player) error {
	var potions []byte
	if player.Potions != nil {
		var err error
		potions, err = json.Marshal(player.Potions)
		if err != nil {
			return err
		}
	}

	_, err := e.Exec(`
        INSERT INTO game_players (game_id, player_id, user_id, name, is_ai, is_alive, is_connected, role, potions, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)
        ON CONFLICT (player_id) DO UPDATE SET
            is_alive = EXCLUDED.is_alive,
            is_connected = EXCLUDED.is_connected,
            role = EXCLUDED.role,
            potions = EXCLUDED.potions,
            updated_at = CURRENT_TIMESTAMP`,
		gameID, player.ID, player.UserID, player.Name, player.IsAI,
		player.IsAlive, player.IsConnected, string(player.Role), potions)
	return err
}

// SavePlayer 保存单个玩家
func (p *PostgreSQL) SavePlayer(gameID string, player *models.Player) error {
	return savePlayerStmt(p.db, gameID, player)
}

// LoadGame 加载游戏存档
func (p *PostgreSQL) LoadGame(gameID string) (*models.GameSession, error) {
	var (
		phase, winner   string
		started, ended  bool
		phaseStartedAt  sql.NullTime
		phaseDurationMs int64
		stateRaw        []byte
	)

	err := p.db.QueryRow(`
        SELECT phase, started, ended, winner, phase_started_at, phase_duration_ms, state
        FROM games WHERE game_id = $1`, gameID).
		Scan(&phase, &started, &ended, &winner, &phaseStartedAt, &phaseDurationMs, &stateRaw)
	if err == sql.ErrNoRows {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}

	var state sessionState
	if len(stateRaw) > 0 {
		if err := json.Unmarshal(stateRaw, &state); err != nil {
			return nil, err
		}
	}

	game := &models.GameSession{
		ID:              gameID,
		Started:         started,
		Ended:           ended,
		Winner:          models.Winner(winner),
		CurrentPhase:    models.Phase(phase),
		NightActions:    state.NightActions,
		Votes:           state.Votes,
		PhaseDurationMs: phaseDurationMs,
		Messages:        state.Messages,
		Config:          state.Config,
		LastProtected:   state.LastProtected,
		Investigated:    state.Investigated,
		StartedAt:       state.StartedAt,
		EndedAt:         state.EndedAt,
	}
	if phaseStartedAt.Valid {
		game.PhaseStartedAt = phaseStartedAt.Time
	}
	if game.Winner == "" {
		game.Winner = models.WinnerNone
	}
	if game.Votes == nil {
		game.Votes = make(map[string]string)
	}

	rows, err := p.db.Query(`
        SELECT player_id, user_id, name, is_ai, is_alive, is_connected, role, potions
        FROM game_players WHERE game_id = $1 ORDER BY id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			player     models.Player
			role       string
			potionsRaw []byte
		)
		if err := rows.Scan(&player.ID, &player.UserID, &player.Name, &player.IsAI,
			&player.IsAlive, &player.IsConnected, &role, &potionsRaw); err != nil {
			return nil, err
		}
		player.Role = roles.Role(role)
		if len(potionsRaw) > 0 {
			var potions models.Potions
			if err := json.Unmarshal(potionsRaw, &potions); err != nil {
				return nil, err
			}
			player.Potions = &potions
		}
		game.Players = append(game.Players, &player)
	}

	return game, rows.Err()
}

// SaveGameRecord 保存对局结果记录
func (p *PostgreSQL) SaveGameRecord(gameID string, winner models.Winner, players map[string]interface{}, durationSec int) error {
	raw, err := json.Marshal(players)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(`
        INSERT INTO game_records (game_id, winner, players, duration)
        VALUES ($1, $2, $3, $4)`, gameID, string(winner), raw, durationSec)
	return err
}

// GetPlayerStats 获取玩家统计信息
func (p *PostgreSQL) GetPlayerStats(userID string) (*models.PlayerStats, error) {
	var stats models.PlayerStats
	err := p.db.QueryRow(`
        SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN players->$1->>'outcome' = 'win' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN players->$1->>'outcome' = 'lose' THEN 1 ELSE 0 END), 0)
        FROM game_records
        WHERE players ->> $1 IS NOT NULL`, userID).
		Scan(&stats.TotalGames, &stats.Wins, &stats.Losses)
	return &stats, err
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
