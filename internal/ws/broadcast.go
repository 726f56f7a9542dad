package ws

import (
	"context"

	"go.uber.org/zap"

	"opschat/internal/services/chat"
)

// broadcastToRoom delivers env to every registered connection among the
// room's members except excludeUserID. A failed write to one recipient is
// logged and never aborts delivery to the rest.
func (s *Server) broadcastToRoom(roomID string, env Envelope, excludeUserID string) {
	s.mu.Lock()
	members := s.rooms[roomID]
	targets := make([]*clientConn, 0, len(members))
	for userID := range members {
		if userID == excludeUserID {
			continue
		}
		if c, ok := s.conns[userID]; ok {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()

	// I/O outside the lock.
	for _, c := range targets {
		if err := c.write(env); err != nil {
			zap.L().Warn("ws.broadcast",
				zap.String("room_id", roomID),
				zap.String("user_id", c.userID),
				zap.Error(err))
		}
	}
}

// broadcastAll delivers env to every registered connection; used for the
// global presence events, which are independent of room subscriptions.
func (s *Server) broadcastAll(env Envelope, excludeUserID string) {
	s.mu.Lock()
	targets := make([]*clientConn, 0, len(s.conns))
	for userID, c := range s.conns {
		if userID == excludeUserID {
			continue
		}
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		if err := c.write(env); err != nil {
			zap.L().Warn("ws.broadcast_all", zap.String("user_id", c.userID), zap.Error(err))
		}
	}
}

// ---------------------------------------------------------------------------
//  Public notification surface
// ---------------------------------------------------------------------------
//
// Entry points for events that originate in the REST layer (a persisted
// message) rather than on a socket. Recipients are the room's current
// members, all of whom passed the participant check at join time.

func (s *Server) NotifyNewMessage(ctx context.Context, messageID string) error {
	msg, err := s.chatSvc.FetchEnrichedMessage(ctx, messageID)
	if err != nil {
		return err
	}
	s.broadcastToRoom(msg.RoomID, Envelope{Type: typeNewMessage, RoomID: msg.RoomID, Message: msg}, "")
	return nil
}

func (s *Server) NotifyMessageUpdated(ctx context.Context, messageID string) error {
	msg, err := s.chatSvc.FetchEnrichedMessage(ctx, messageID)
	if err != nil {
		return err
	}
	s.broadcastToRoom(msg.RoomID, Envelope{Type: typeMessageUpdated, RoomID: msg.RoomID, Message: msg}, "")
	return nil
}

// NotifyMessageDeleted carries only the identifier: the deleted content must
// not be echoed back out.
func (s *Server) NotifyMessageDeleted(roomID, messageID string) {
	s.broadcastToRoom(roomID, Envelope{
		Type:    typeMessageDeleted,
		RoomID:  roomID,
		Message: &chat.MessageDTO{ID: messageID},
	}, "")
}
