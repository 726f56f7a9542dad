package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func (s *Server) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepHeartbeat()
		}
	}
}

// sweepHeartbeat terminates every connection whose previous ping went
// unanswered, then arms the next round. A dead peer is gone within two
// sweeps, whether or not the transport ever reports an error.
func (s *Server) sweepHeartbeat() {
	s.mu.Lock()
	conns := make([]*clientConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if !c.sweepAlive() {
			zap.L().Info("ws.heartbeat_timeout", zap.String("user_id", c.userID))
			c.closeWith(websocket.CloseGoingAway, "heartbeat timeout")
			s.disconnect(c)
			continue
		}
		if err := c.ping(); err != nil {
			zap.L().Debug("ws.ping", zap.String("user_id", c.userID), zap.Error(err))
		}
	}
}

// handlePing answers the JSON-level keepalive. Some proxies strip websocket
// control frames, so an application ping also counts as liveness.
func (s *Server) handlePing(_ context.Context, c *clientConn, _ Envelope) error {
	c.markAlive()
	return c.write(Envelope{Type: typePong})
}
