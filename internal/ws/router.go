package ws

import (
	"context"
	"fmt"
	"sync"
)

type handlerFunc func(ctx context.Context, c *clientConn, env Envelope) error

// Router keeps a map[type]handler for inbound frames.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]handlerFunc
}

func NewRouter() *Router { return &Router{handlers: make(map[string]handlerFunc)} }

func (r *Router) Register(msgType string, h handlerFunc) {
	if msgType == "" {
		panic("ws router: empty message type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[msgType] = h
}

// dispatch is called by the server's reader loop.
func (r *Router) dispatch(ctx context.Context, c *clientConn, env Envelope) error {
	r.mu.RLock()
	h, ok := r.handlers[env.Type]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown message type %q", env.Type)
	}
	return h(ctx, c, env)
}
