package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"opschat/internal/services/auth"
	"opschat/internal/services/chat"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultTypingTimeout     = 3 * time.Second

	dispatchTimeout = 1900 * time.Millisecond

	// Application close code: replaced by a newer handshake for the same user.
	closeSuperseded = 4000
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The ops UI is served same-origin behind the office proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Presence mirrors connect/disconnect/liveness into an external read-model.
type Presence interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
	Refresh(ctx context.Context, userID string) error
}

type Options struct {
	HeartbeatInterval   time.Duration
	TypingTimeout       time.Duration
	TypingSweepInterval time.Duration
}

// Server owns the three process-wide registries: user → connection, room →
// member set, and the typing expiry table. One mutex guards all three;
// handlers that suspend on an external lookup re-check registry state after
// reacquiring it.
type Server struct {
	opts     Options
	authSvc  auth.IAuthService
	chatSvc  chat.IChatService
	presence Presence
	router   *Router

	mu     sync.Mutex
	conns  map[string]*clientConn
	rooms  map[string]map[string]struct{}
	typing map[string]map[string]time.Time
}

func NewWsServer(authSvc auth.IAuthService, chatSvc chat.IChatService, pres Presence, opts Options) *Server {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = defaultHeartbeatInterval
	}
	if opts.TypingTimeout <= 0 {
		opts.TypingTimeout = defaultTypingTimeout
	}
	if opts.TypingSweepInterval <= 0 {
		opts.TypingSweepInterval = opts.TypingTimeout / 4
	}

	srv := &Server{
		opts:     opts,
		authSvc:  authSvc,
		chatSvc:  chatSvc,
		presence: pres,
		router:   NewRouter(),
		conns:    make(map[string]*clientConn),
		rooms:    make(map[string]map[string]struct{}),
		typing:   make(map[string]map[string]time.Time),
	}
	srv.registerHandlers()
	return srv
}

func (s *Server) registerHandlers() {
	s.router.Register(typeJoinRoom, s.handleJoinRoom)
	s.router.Register(typeLeaveRoom, s.handleLeaveRoom)
	s.router.Register(typeTyping, s.handleTyping)
	s.router.Register(typePing, s.handlePing)
}

// Run starts the heartbeat and typing sweeps; they stop when ctx is done.
func (s *Server) Run(ctx context.Context) {
	go s.heartbeatLoop(ctx)
	go s.typingSweepLoop(ctx)
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

// Handle upgrades GET /ws?token=... . The token rides the query string
// because browsers cannot attach headers to a websocket upgrade.
func (s *Server) Handle(ginCtx *gin.Context) {
	token := ginCtx.Query("token")

	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxFrameSize)

	c := newClientConn(rawConn)

	if token == "" {
		c.closeWith(websocket.ClosePolicyViolation, "missing token")
		return
	}
	userID, err := s.authSvc.Verify(ginCtx.Request.Context(), token)
	if err != nil {
		zap.L().Info("ws.auth_rejected", zap.Error(err))
		c.closeWith(websocket.ClosePolicyViolation, "invalid token")
		return
	}
	c.authenticate(userID)

	s.register(c)

	if err := c.write(Envelope{Type: typeConnected, UserID: userID}); err != nil {
		zap.L().Error("ws.connected_ack", zap.String("user_id", userID), zap.Error(err))
		c.closeWith(websocket.CloseInternalServerErr, "setup failed")
		s.disconnect(c)
		return
	}

	go s.reader(c)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *Server) reader(c *clientConn) {
	defer s.disconnect(c)

	c.sock.SetPongHandler(func(string) error {
		c.markAlive()
		if err := s.presence.Refresh(context.Background(), c.userID); err != nil {
			zap.L().Debug("ws.presence_refresh", zap.String("user_id", c.userID), zap.Error(err))
		}
		return nil
	})

	for {
		_, data, err := c.sock.ReadMessage()
		if err != nil {
			return // client closed or errored
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			_ = c.write(errorEnvelope("malformed JSON frame"))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		err = s.router.dispatch(ctx, c, env)
		cancel()

		// Handler errors are recoverable: report and keep reading.
		if err != nil {
			_ = c.write(errorEnvelope(err.Error()))
		}
	}
}
