package ws

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"opschat/internal/services/auth"
	"opschat/internal/services/chat"
)

// fakeSocket is an in-memory transport standing in for *websocket.Conn.
type fakeSocket struct {
	mu         sync.Mutex
	writes     []Envelope
	pings      int
	closeCode  int
	closed     bool
	failWrites bool

	readCh chan struct{}
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{readCh: make(chan struct{})}
}

func (f *fakeSocket) ReadMessage() (int, []byte, error) {
	<-f.readCh
	return 0, nil, errConnClosed
}

func (f *fakeSocket) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errConnClosed
	}
	f.writes = append(f.writes, v.(Envelope))
	return nil
}

func (f *fakeSocket) WriteControl(messageType int, data []byte, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch messageType {
	case websocket.PingMessage:
		f.pings++
	case websocket.CloseMessage:
		if len(data) >= 2 {
			f.closeCode = int(data[0])<<8 | int(data[1])
		}
	}
	return nil
}

func (f *fakeSocket) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeSocket) SetPongHandler(func(string) error) {}

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.readCh)
	}
	return nil
}

func (f *fakeSocket) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSocket) sentPings() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

func (f *fakeSocket) sentCloseCode() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCode
}

// envelopes returns a snapshot of everything written so far.
func (f *fakeSocket) envelopes() []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Envelope, len(f.writes))
	copy(out, f.writes)
	return out
}

func (f *fakeSocket) envelopesOfType(msgType string) []Envelope {
	var out []Envelope
	for _, e := range f.envelopes() {
		if e.Type == msgType {
			out = append(out, e)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
//  Collaborator stubs
// ---------------------------------------------------------------------------

type stubAuthSvc struct {
	users map[string]string // token -> user id
}

func (s *stubAuthSvc) Verify(_ context.Context, token string) (string, error) {
	if uid, ok := s.users[token]; ok {
		return uid, nil
	}
	return "", auth.ErrInvalidToken
}

type stubChatSvc struct {
	rooms map[string]*chat.RoomDTO
	msgs  map[string]*chat.MessageDTO
}

func (s *stubChatSvc) FindRoom(_ context.Context, id string) (*chat.RoomDTO, error) {
	if r, ok := s.rooms[id]; ok {
		return r, nil
	}
	return nil, chat.ErrRoomNotFound
}

func (s *stubChatSvc) FetchEnrichedMessage(_ context.Context, id string) (*chat.MessageDTO, error) {
	if m, ok := s.msgs[id]; ok {
		return m, nil
	}
	return nil, chat.ErrMessageNotFound
}

type stubPresence struct {
	mu        sync.Mutex
	online    map[string]bool
	refreshes map[string]int
}

func newStubPresence() *stubPresence {
	return &stubPresence{online: make(map[string]bool), refreshes: make(map[string]int)}
}

func (p *stubPresence) SetOnline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = true
	return nil
}

func (p *stubPresence) SetOffline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
	return nil
}

func (p *stubPresence) Refresh(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes[userID]++
	return nil
}

func (p *stubPresence) isOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

// ---------------------------------------------------------------------------
//  Server fixtures
// ---------------------------------------------------------------------------

const (
	roomA = "6f1e9b1c-0000-4000-8000-000000000001"
	roomB = "6f1e9b1c-0000-4000-8000-000000000002"
	msg1  = "9a2d4c3b-0000-4000-8000-000000000001"
)

func newTestServer(chatSvc chat.IChatService) (*Server, *stubPresence) {
	pres := newStubPresence()
	srv := NewWsServer(
		&stubAuthSvc{users: map[string]string{}},
		chatSvc,
		pres,
		Options{
			HeartbeatInterval: 20 * time.Millisecond,
			TypingTimeout:     50 * time.Millisecond,
		},
	)
	return srv, pres
}

func twoUserRoomSvc() *stubChatSvc {
	return &stubChatSvc{
		rooms: map[string]*chat.RoomDTO{
			roomA: {ID: roomA, Name: "dispatch", Participants: []string{"alice", "bob", "carol"}},
			roomB: {ID: roomB, Name: "invoices", Participants: []string{"alice", "bob"}},
		},
		msgs: map[string]*chat.MessageDTO{},
	}
}

// connect registers an already-authenticated connection, as the handshake
// would after a valid token.
func connect(t *testing.T, s *Server, userID string) (*clientConn, *fakeSocket) {
	t.Helper()
	sock := newFakeSocket()
	c := newClientConn(sock)
	c.authenticate(userID)
	s.register(c)
	return c, sock
}

// join adds the user to the room through the real handler.
func join(t *testing.T, s *Server, c *clientConn, roomID string) {
	t.Helper()
	if err := s.handleJoinRoom(context.Background(), c, Envelope{Type: typeJoinRoom, RoomID: roomID}); err != nil {
		t.Fatalf("join_room(%s): %v", roomID, err)
	}
}

func typing(s *Server, c *clientConn, roomID string, isTyping bool) error {
	return s.handleTyping(context.Background(), c, Envelope{Type: typeTyping, RoomID: roomID, IsTyping: &isTyping})
}

// Registry introspection; tests only.

func registered(s *Server, userID string) *clientConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[userID]
}

func memberOf(s *Server, roomID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[roomID][userID]
	return ok
}

func typingEntry(s *Server, roomID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.typing[roomID][userID]
	return ok
}
