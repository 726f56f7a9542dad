package ws

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"opschat/internal/services/chat"
)

var (
	ErrInvalidRoomID = errors.New("invalid room id")
	ErrAccessDenied  = errors.New("access denied")

	errRoomLookup = errors.New("room lookup failed")
)

// authorize is the single access gate for room-scoped delivery: only users on
// the room's persisted participant list may subscribe to its broadcasts.
func authorize(room *chat.RoomDTO, userID string) error {
	for _, p := range room.Participants {
		if p == userID {
			return nil
		}
	}
	return ErrAccessDenied
}

func (s *Server) handleJoinRoom(ctx context.Context, c *clientConn, env Envelope) error {
	if _, err := uuid.Parse(env.RoomID); err != nil {
		return ErrInvalidRoomID
	}

	room, err := s.chatSvc.FindRoom(ctx, env.RoomID)
	if err != nil {
		if errors.Is(err, chat.ErrRoomNotFound) {
			return err
		}
		zap.L().Error("ws.find_room", zap.String("room_id", env.RoomID), zap.Error(err))
		return errRoomLookup
	}
	if err := authorize(room, c.userID); err != nil {
		return err
	}

	s.mu.Lock()
	// The lookup may have outlived the connection; a late response must not
	// resurrect state for a user that disconnected meanwhile.
	if s.conns[c.userID] != c {
		s.mu.Unlock()
		return nil
	}
	members, ok := s.rooms[room.ID]
	if !ok {
		members = make(map[string]struct{})
		s.rooms[room.ID] = members
	}
	members[c.userID] = struct{}{}
	s.mu.Unlock()

	return c.write(Envelope{Type: typeRoomJoined, RoomID: room.ID})
}

// handleLeaveRoom is idempotent and sends no acknowledgement.
func (s *Server) handleLeaveRoom(_ context.Context, c *clientConn, env Envelope) error {
	s.mu.Lock()
	s.removeFromRoomLocked(env.RoomID, c.userID)
	s.mu.Unlock()
	return nil
}

// removeFromRoomLocked drops the user's membership and any pending typing
// entry for the room. Caller holds s.mu.
func (s *Server) removeFromRoomLocked(roomID, userID string) {
	if members, ok := s.rooms[roomID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(s.rooms, roomID)
		}
	}
	if byUser, ok := s.typing[roomID]; ok {
		delete(byUser, userID)
		if len(byUser) == 0 {
			delete(s.typing, roomID)
		}
	}
}
