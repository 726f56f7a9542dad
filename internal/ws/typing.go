package ws

import (
	"context"
	"time"
)

// handleTyping relays a typing signal to the other members of the room and
// (re)arms the auto-expiry window. Signals from non-members are dropped
// without a reply.
func (s *Server) handleTyping(_ context.Context, c *clientConn, env Envelope) error {
	isTyping := env.IsTyping != nil && *env.IsTyping

	s.mu.Lock()
	members, ok := s.rooms[env.RoomID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if _, member := members[c.userID]; !member {
		s.mu.Unlock()
		return nil
	}

	if isTyping {
		byUser, ok := s.typing[env.RoomID]
		if !ok {
			byUser = make(map[string]time.Time)
			s.typing[env.RoomID] = byUser
		}
		// Repeated signals refresh the window, they never stack.
		byUser[c.userID] = time.Now().Add(s.opts.TypingTimeout)
	} else if byUser, ok := s.typing[env.RoomID]; ok {
		delete(byUser, c.userID)
		if len(byUser) == 0 {
			delete(s.typing, env.RoomID)
		}
	}
	s.mu.Unlock()

	s.broadcastToRoom(env.RoomID, typingEnvelope(env.RoomID, c.userID, isTyping), c.userID)
	return nil
}

func (s *Server) typingSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.TypingSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepTyping(time.Now())
		}
	}
}

// sweepTyping synthesizes a typing:false for every entry whose window has
// elapsed, healing clients that never clear the flag themselves. One ticker
// serves all typists; there is no per-user timer.
func (s *Server) sweepTyping(now time.Time) {
	type entry struct{ roomID, userID string }
	var expired []entry

	s.mu.Lock()
	for roomID, byUser := range s.typing {
		for userID, deadline := range byUser {
			if now.Before(deadline) {
				continue
			}
			delete(byUser, userID)
			expired = append(expired, entry{roomID: roomID, userID: userID})
		}
		if len(byUser) == 0 {
			delete(s.typing, roomID)
		}
	}
	s.mu.Unlock()

	for _, e := range expired {
		s.broadcastToRoom(e.roomID, typingEnvelope(e.roomID, e.userID, false), e.userID)
	}
}
