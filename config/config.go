package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"` // "gorm" (default) or "pq"
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GameConfig carries the per-game defaults applied at game creation.
// A createGame request may override any of them.
type GameConfig struct {
	NightMs      int            `mapstructure:"night_ms"`
	DiscussionMs int            `mapstructure:"discussion_ms"`
	VotingMs     int            `mapstructure:"voting_ms"`
	HunterMs     int            `mapstructure:"hunter_ms"`
	NoLynch      bool           `mapstructure:"no_lynch"`
	AutoResolve  bool           `mapstructure:"auto_resolve"`
	AIPlayers    int            `mapstructure:"ai_players"`
	MinPlayers   int            `mapstructure:"min_players"`
	RoleCounts   map[string]int `mapstructure:"role_counts"`
}

func (g GameConfig) NightDuration() time.Duration      { return time.Duration(g.NightMs) * time.Millisecond }
func (g GameConfig) DiscussionDuration() time.Duration { return time.Duration(g.DiscussionMs) * time.Millisecond }
func (g GameConfig) VotingDuration() time.Duration     { return time.Duration(g.VotingMs) * time.Millisecond }
func (g GameConfig) HunterDuration() time.Duration     { return time.Duration(g.HunterMs) * time.Millisecond }

func setDefaults() {
	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.metrics_address", ":9090")
	viper.SetDefault("database.driver", "gorm")
	viper.SetDefault("game.night_ms", 30000)
	viper.SetDefault("game.discussion_ms", 120000)
	viper.SetDefault("game.voting_ms", 30000)
	viper.SetDefault("game.hunter_ms", 15000)
	viper.SetDefault("game.no_lynch", true)
	viper.SetDefault("game.auto_resolve", true)
	viper.SetDefault("game.ai_players", 0)
	viper.SetDefault("game.min_players", 5)
	viper.SetDefault("game.role_counts", map[string]int{
		"werewolf": 2,
		"seer":     1,
		"doctor":   1,
	})
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	setDefaults()
	viper.AutomaticEnv()

	if err = viper.ReadInConfig(); err != nil {
		// 没有配置文件时全部走默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
