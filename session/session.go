// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/werewolf/network"
)

// Session binds one live connection to a user and, once joined, to a
// game participant. The session id is the opaque transport address
// that broadcasts target.
type Session struct {
	ID         string
	Conn       network.Connection
	UserID     string
	GameID     string
	PlayerID   string
	Spectator  bool
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Bind attaches the session to a game participant.
func (s *Session) Bind(gameID, playerID string, spectator bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.GameID = gameID
	s.PlayerID = playerID
	s.Spectator = spectator
}

// Unbind detaches the session from its game.
func (s *Session) Unbind() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.GameID = ""
	s.PlayerID = ""
	s.Spectator = false
}

// Binding returns the current game attachment.
func (s *Session) Binding() (gameID, playerID string, spectator bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.GameID, s.PlayerID, s.Spectator
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.LastActive = time.Now()
	return s.Conn.Send(msgID, data)
}

func (s *Session) SendJSON(msgID uint16, v interface{}) error {
	s.LastActive = time.Now()
	return s.Conn.SendJSON(msgID, v)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByGame returns every session attached to the game, spectators
// included.
func (m *Manager) GetByGame(gameID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if g, _, _ := session.Binding(); g == gameID {
			result = append(result, session)
		}
	}
	return result
}

func (m *Manager) GetByUserID(userID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.UserID == userID {
			result = append(result, session)
		}
	}
	return result
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
