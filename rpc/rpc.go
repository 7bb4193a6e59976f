package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/werewolf/engine"
	"github.com/wfunc/werewolf/logger"
	"github.com/wfunc/werewolf/registry"
	"github.com/wfunc/werewolf/services"
)

// Server manages the admin RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes session introspection and player stats over
// net/rpc. Methods follow the net/rpc signature rules.
type AdminService struct {
	games *registry.Registry
	stats *services.StatsService
}

func NewAdminService(games *registry.Registry, stats *services.StatsService) *AdminService {
	return &AdminService{games: games, stats: stats}
}

// Register binds the service under the "Admin" name.
func (as *AdminService) Register() error {
	return rpc.RegisterName("Admin", as)
}

type ListGamesArgs struct{}

type ListGamesReply struct {
	Games []engine.Info
}

func (as *AdminService) ListGames(args *ListGamesArgs, reply *ListGamesReply) error {
	reply.Games = as.games.List()
	return nil
}

type GameInfoArgs struct {
	GameID string
}

type GameInfoReply struct {
	Info engine.Info
}

func (as *AdminService) GameInfo(args *GameInfoArgs, reply *GameInfoReply) error {
	g, err := as.games.Get(args.GameID)
	if err != nil {
		return err
	}
	reply.Info = g.Info()
	return nil
}

type PlayerStatsArgs struct {
	UserID string
}

type PlayerStatsReply struct {
	Data map[string]interface{}
}

func (as *AdminService) GetPlayerWithStats(args *PlayerStatsArgs, reply *PlayerStatsReply) error {
	if as.stats == nil {
		reply.Data = map[string]interface{}{"user_id": args.UserID}
		return nil
	}
	data, err := as.stats.GetPlayerWithStats(args.UserID, 10)
	if err != nil {
		return err
	}
	reply.Data = data
	return nil
}
