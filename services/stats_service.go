// services/stats_service.go
package services

import (
	"github.com/wfunc/werewolf/models"
	"github.com/wfunc/werewolf/persistence"
	"gorm.io/gorm"
)

// StatsService answers player history queries on the gorm backend.
type StatsService struct {
	db *persistence.GormPostgreSQL
}

func NewStatsService(db *persistence.GormPostgreSQL) *StatsService {
	return &StatsService{db: db}
}

// GetPlayerWithStats 获取玩家战绩和最近对局
func (s *StatsService) GetPlayerWithStats(userID string, recentLimit int) (map[string]interface{}, error) {
	var result map[string]interface{}

	// 使用事务确保数据一致性
	err := s.db.Transaction(func(tx *gorm.DB) error {
		stats, err := s.db.GetPlayerStats(userID)
		if err != nil {
			return err
		}

		var records []models.GormGameRecord
		if err := tx.
			Where("jsonb_exists(players, ?)", userID).
			Order("created_at DESC").
			Limit(recentLimit).
			Find(&records).Error; err != nil {
			return err
		}

		recent := make([]map[string]interface{}, 0, len(records))
		for _, r := range records {
			entry := map[string]interface{}{
				"game_id":      r.GameID,
				"winner":       r.Winner,
				"duration_sec": r.Duration,
				"played_at":    r.CreatedAt,
			}
			if me, ok := r.Players[userID].(map[string]interface{}); ok {
				entry["role"] = me["role"]
				entry["outcome"] = me["outcome"]
			}
			recent = append(recent, entry)
		}

		result = map[string]interface{}{
			"user_id": userID,
			"stats":   stats,
			"recent":  recent,
		}
		return nil
	})

	return result, err
}

// Leaderboard 按胜场排序的玩家榜单
func (s *StatsService) Leaderboard(limit int) ([]map[string]interface{}, error) {
	var rows []struct {
		UserID string
		Total  int
		Wins   int
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Raw(`
            SELECT key AS user_id,
                   COUNT(*) AS total,
                   COUNT(*) FILTER (WHERE value->>'outcome' = 'win') AS wins
            FROM gorm_game_records, jsonb_each(players)
            GROUP BY key
            ORDER BY wins DESC, total DESC
            LIMIT ?
        `, limit).Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	board := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		board = append(board, map[string]interface{}{
			"user_id": r.UserID,
			"total":   r.Total,
			"wins":    r.Wins,
		})
	}
	return board, nil
}
