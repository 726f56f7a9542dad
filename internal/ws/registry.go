package ws

import (
	"context"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// register records c as the live connection for its user. At most one live
// connection per user id: a newer handshake wins and the stale socket is
// force-closed rather than left to leak.
func (s *Server) register(c *clientConn) {
	s.mu.Lock()
	old := s.conns[c.userID]
	s.conns[c.userID] = c
	s.mu.Unlock()

	if old != nil {
		old.closeWith(closeSuperseded, "superseded by a newer connection")
	}

	if err := s.presence.SetOnline(context.Background(), c.userID); err != nil {
		zap.L().Warn("ws.presence_online", zap.String("user_id", c.userID), zap.Error(err))
	}
	s.broadcastAll(Envelope{Type: typeUserOnline, UserID: c.userID}, c.userID)
}

// disconnect runs the full cleanup cascade for c: registry removal, room
// membership purge, typing purge, presence offline. All of it happens in one
// critical section so no broadcast can observe a half-removed user.
//
// A socket that was superseded is no longer the registered connection for its
// user; for it only the socket teardown runs, the user-level state now
// belongs to the replacement.
func (s *Server) disconnect(c *clientConn) {
	c.closeWith(websocket.CloseNormalClosure, "")

	s.mu.Lock()
	current := s.conns[c.userID] == c
	if current {
		delete(s.conns, c.userID)
		for roomID, members := range s.rooms {
			delete(members, c.userID)
			if len(members) == 0 {
				delete(s.rooms, roomID)
			}
		}
		for roomID, byUser := range s.typing {
			delete(byUser, c.userID)
			if len(byUser) == 0 {
				delete(s.typing, roomID)
			}
		}
	}
	s.mu.Unlock()

	if !current {
		return
	}

	if err := s.presence.SetOffline(context.Background(), c.userID); err != nil {
		zap.L().Warn("ws.presence_offline", zap.String("user_id", c.userID), zap.Error(err))
	}
	s.broadcastAll(Envelope{Type: typeUserOffline, UserID: c.userID}, c.userID)
}
