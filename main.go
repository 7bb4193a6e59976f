package main

import (
	"github.com/wfunc/werewolf/ai"
	"github.com/wfunc/werewolf/broadcast"
	"github.com/wfunc/werewolf/config"
	"github.com/wfunc/werewolf/engine"
	"github.com/wfunc/werewolf/logger"
	"github.com/wfunc/werewolf/monitor"
	"github.com/wfunc/werewolf/persistence"
	"github.com/wfunc/werewolf/registry"
	werewolf_rpc "github.com/wfunc/werewolf/rpc"
	"github.com/wfunc/werewolf/server"
	"github.com/wfunc/werewolf/services"
	"github.com/wfunc/werewolf/session"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	var store persistence.Store
	var statsService *services.StatsService
	switch cfg.Database.Driver {
	case "pq":
		db, err := persistence.NewPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		store = db
	default:
		db, err := persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		store = db
		statsService = services.NewStatsService(db)
	}
	logger.Log.Info("Database connection successful.")

	// Monitoring
	mon := monitor.NewMonitor("werewolf")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Session plumbing and the game registry
	sessions := session.NewManager()
	bus := broadcast.NewGameBroadcaster(sessions)
	games := registry.NewRegistry(engine.Deps{
		Store:   store,
		Bus:     bus,
		Decider: ai.NewRandomProvider(),
		Metrics: mon,
		Filter:  engine.PassthroughFilter{},
	})

	// Admin RPC
	rpcServer, err := werewolf_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	admin := werewolf_rpc.NewAdminService(games, statsService)
	if err := admin.Register(); err != nil {
		logger.Log.Fatalf("Failed to register RPC service: %v", err)
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(server.Options{
		Addr:       cfg.Server.HTTPAddress,
		RPCServer:  rpcServer,
		Games:      games,
		Sessions:   sessions,
		Bus:        bus,
		Monitor:    mon,
		GameConfig: cfg.Game,
	})

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
