package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/werewolf/broadcast"
	"github.com/wfunc/werewolf/config"
	"github.com/wfunc/werewolf/engine"
	"github.com/wfunc/werewolf/logger"
	"github.com/wfunc/werewolf/models"
	"github.com/wfunc/werewolf/monitor"
	"github.com/wfunc/werewolf/network"
	"github.com/wfunc/werewolf/registry"
	"github.com/wfunc/werewolf/roles"
	werewolf_rpc "github.com/wfunc/werewolf/rpc"
	"github.com/wfunc/werewolf/session"
)

// GameServer is the WebSocket front of the session engine. It owns the
// session manager and routes inbound packets to the right game.
type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	games          *registry.Registry
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	monitor        *monitor.Monitor
	gameConfig     config.GameConfig
	rpcServer      *werewolf_rpc.Server
	mutex          sync.Mutex
	shutdownChan   chan struct{}
}

// Options carries the wiring the server does not build itself.
type Options struct {
	Addr       string
	RPCServer  *werewolf_rpc.Server
	Games      *registry.Registry
	Sessions   *session.Manager
	Bus        broadcast.Broadcaster
	Monitor    *monitor.Monitor
	GameConfig config.GameConfig
}

func NewGameServer(opts Options) *GameServer {
	return &GameServer{
		addr:           opts.Addr,
		games:          opts.Games,
		sessionManager: opts.Sessions,
		broadcaster:    opts.Bus,
		monitor:        opts.Monitor,
		gameConfig:     opts.GameConfig,
		rpcServer:      opts.RPCServer,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
}

func (s *GameServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
	s.games.Shutdown()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	if s.monitor != nil {
		s.monitor.IncOnlinePlayers()
	}

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.handleDisconnect(sess)
		s.sessionManager.Remove(sess.GetID())
		if s.monitor != nil {
			s.monitor.DecOnlinePlayers()
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handleDisconnect(sess *session.Session) {
	gameID, playerID, spectator := sess.Binding()
	if gameID == "" || spectator || playerID == "" {
		return
	}
	if g, ok := s.games.Peek(gameID); ok {
		g.HandleDisconnect(playerID)
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.LastActive = time.Now()
	case network.MsgTypeCreateGame:
		s.handleCreateGame(sess, packet)
	case network.MsgTypeJoinGame:
		s.handleJoinGame(sess, packet)
	case network.MsgTypeStartGame:
		s.handleStartGame(sess)
	case network.MsgTypeJoinSpectator:
		s.handleJoinSpectator(sess, packet)
	case network.MsgTypeLeaveSpectator:
		s.handleLeaveSpectator(sess)
	case network.MsgTypeWerewolfAction:
		s.handleNightAction(sess, roles.Werewolf, packet)
	case network.MsgTypeSeerAction:
		s.handleNightAction(sess, roles.Seer, packet)
	case network.MsgTypeDoctorAction:
		s.handleNightAction(sess, roles.Doctor, packet)
	case network.MsgTypeBodyguardAction:
		s.handleNightAction(sess, roles.Bodyguard, packet)
	case network.MsgTypeWitchAction:
		s.handleNightAction(sess, roles.Witch, packet)
	case network.MsgTypeVoteAction:
		s.handleVote(sess, packet)
	case network.MsgTypeHunterAction:
		s.handleHunterAction(sess, packet)
	case network.MsgTypeSendMessage:
		s.handleChat(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

// createGameRequest carries per-game overrides; any unset field keeps
// the server default from config.yaml.
type createGameRequest struct {
	AIPlayers    *int           `json:"ai_players,omitempty"`
	NightMs      *int           `json:"night_ms,omitempty"`
	DiscussionMs *int           `json:"discussion_ms,omitempty"`
	VotingMs     *int           `json:"voting_ms,omitempty"`
	HunterMs     *int           `json:"hunter_ms,omitempty"`
	NoLynch      *bool          `json:"no_lynch,omitempty"`
	AutoResolve  *bool          `json:"auto_resolve,omitempty"`
	RoleCounts   map[string]int `json:"role_counts,omitempty"`
}

func (r createGameRequest) apply(cfg *models.GameConfig) {
	if r.AIPlayers != nil {
		cfg.AIPlayers = *r.AIPlayers
	}
	if r.NightMs != nil {
		cfg.NightMs = *r.NightMs
	}
	if r.DiscussionMs != nil {
		cfg.DiscussionMs = *r.DiscussionMs
	}
	if r.VotingMs != nil {
		cfg.VotingMs = *r.VotingMs
	}
	if r.HunterMs != nil {
		cfg.HunterMs = *r.HunterMs
	}
	if r.NoLynch != nil {
		cfg.NoLynchAllowed = *r.NoLynch
	}
	if r.AutoResolve != nil {
		cfg.AutoResolve = *r.AutoResolve
	}
	if r.RoleCounts != nil {
		cfg.RoleCounts = make(map[roles.Role]int, len(r.RoleCounts))
		for name, count := range r.RoleCounts {
			cfg.RoleCounts[roles.Role(name)] = count
		}
	}
}

func (s *GameServer) handleCreateGame(sess *session.Session, packet *network.Packet) {
	var req createGameRequest
	if len(packet.Data) > 0 {
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			s.sendError(sess, "malformed create request")
			return
		}
	}

	cfg := s.domainConfig()
	req.apply(&cfg)

	g, err := s.games.CreateGame(cfg)
	if err != nil {
		logger.Log.Errorf("Failed to create game: %v", err)
		s.sendError(sess, "could not create game")
		return
	}
	if s.monitor != nil {
		s.monitor.SetActiveGames(s.games.Count())
	}

	sess.SendJSON(network.MsgTypeGameCreated, map[string]string{"game_id": g.ID()})
}

func (s *GameServer) domainConfig() models.GameConfig {
	cfg := models.GameConfig{
		NightMs:        s.gameConfig.NightMs,
		DiscussionMs:   s.gameConfig.DiscussionMs,
		VotingMs:       s.gameConfig.VotingMs,
		HunterMs:       s.gameConfig.HunterMs,
		NoLynchAllowed: s.gameConfig.NoLynch,
		AutoResolve:    s.gameConfig.AutoResolve,
		AIPlayers:      s.gameConfig.AIPlayers,
		MinPlayers:     s.gameConfig.MinPlayers,
		RoleCounts:     make(map[roles.Role]int, len(s.gameConfig.RoleCounts)),
	}
	for name, count := range s.gameConfig.RoleCounts {
		cfg.RoleCounts[roles.Role(name)] = count
	}
	return cfg
}

type joinGameRequest struct {
	GameID string `json:"game_id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

func (s *GameServer) handleJoinGame(sess *session.Session, packet *network.Packet) {
	var req joinGameRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.GameID == "" {
		s.sendError(sess, "malformed join request")
		return
	}
	if req.Name == "" {
		req.Name = "Player-" + sess.GetID()[:8]
	}

	g, err := s.games.Get(req.GameID)
	if err != nil {
		s.sendError(sess, "game not found")
		return
	}

	sess.UserID = req.UserID
	player, err := g.Join(req.UserID, req.Name, sess.GetID())
	if err != nil {
		s.sendError(sess, err.Error())
		return
	}
	sess.Bind(req.GameID, player.ID, false)

	sess.SendJSON(network.MsgTypeJoinGame, map[string]string{
		"game_id":   req.GameID,
		"player_id": player.ID,
	})
	logger.Log.Infof("Session %s joined game %s as player %s", sess.GetID(), req.GameID, player.ID)
}

func (s *GameServer) handleStartGame(sess *session.Session) {
	g, _, ok := s.boundGame(sess)
	if !ok {
		return
	}
	if err := g.Start(); err != nil {
		s.sendError(sess, err.Error())
	}
}

type spectateRequest struct {
	GameID string `json:"game_id"`
}

func (s *GameServer) handleJoinSpectator(sess *session.Session, packet *network.Packet) {
	var req spectateRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.GameID == "" {
		s.sendError(sess, "malformed spectate request")
		return
	}

	g, err := s.games.Get(req.GameID)
	if err != nil {
		s.sendError(sess, "game not found")
		return
	}

	sess.Bind(req.GameID, "", true)
	sess.SendJSON(network.MsgTypeJoinedSpectator, map[string]string{"game_id": req.GameID})
	sess.SendJSON(network.MsgTypeGameState, g.Snapshot(""))
	sess.SendJSON(network.MsgTypeChatHistory, g.ChatHistory())
}

func (s *GameServer) handleLeaveSpectator(sess *session.Session) {
	_, _, spectator := sess.Binding()
	if !spectator {
		return
	}
	sess.Unbind()
	sess.SendJSON(network.MsgTypeLeftSpectator, map[string]string{})
}

func (s *GameServer) handleNightAction(sess *session.Session, role roles.Role, packet *network.Packet) {
	g, playerID, ok := s.boundGame(sess)
	if !ok {
		return
	}
	var payload engine.ActionPayload
	if err := json.Unmarshal(packet.Data, &payload); err != nil {
		s.sendError(sess, "malformed action")
		return
	}
	if err := g.SubmitNightAction(playerID, role, payload); err != nil {
		s.sendError(sess, "action could not be saved")
	}
}

type voteRequest struct {
	TargetID string `json:"target_id"`
}

func (s *GameServer) handleVote(sess *session.Session, packet *network.Packet) {
	g, playerID, ok := s.boundGame(sess)
	if !ok {
		return
	}
	var req voteRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "malformed vote")
		return
	}
	if err := g.SubmitVote(playerID, req.TargetID); err != nil {
		s.sendError(sess, "vote could not be saved")
	}
}

func (s *GameServer) handleHunterAction(sess *session.Session, packet *network.Packet) {
	g, playerID, ok := s.boundGame(sess)
	if !ok {
		return
	}
	var req voteRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	g.SubmitHunterAction(playerID, req.TargetID)
}

func (s *GameServer) handleChat(sess *session.Session, packet *network.Packet) {
	g, playerID, ok := s.boundGame(sess)
	if !ok {
		return
	}
	var payload engine.ChatPayload
	if err := json.Unmarshal(packet.Data, &payload); err != nil {
		return
	}
	g.SubmitChatMessage(playerID, payload)
}

// boundGame resolves the session's game binding; spectators and
// unbound sessions get nothing.
func (s *GameServer) boundGame(sess *session.Session) (*engine.Game, string, bool) {
	gameID, playerID, spectator := sess.Binding()
	if gameID == "" || spectator || playerID == "" {
		return nil, "", false
	}
	g, ok := s.games.Peek(gameID)
	if !ok {
		return nil, "", false
	}
	return g, playerID, true
}

func (s *GameServer) sendError(sess *session.Session, message string) {
	sess.SendJSON(network.MsgTypeError, engine.ErrorPayload{Message: message})
}
