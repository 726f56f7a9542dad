package ws

import "opschat/internal/services/chat"

// Client → server message types.
const (
	typeJoinRoom  = "join_room"
	typeLeaveRoom = "leave_room"
	typeTyping    = "typing"
	typePing      = "ping"
)

// Server → client message types.
const (
	typeConnected      = "connected"
	typeRoomJoined     = "room_joined"
	typeError          = "error"
	typePong           = "pong"
	typeNewMessage     = "new_message"
	typeMessageUpdated = "message_updated"
	typeMessageDeleted = "message_deleted"
	typeUserOnline     = "user_online"
	typeUserOffline    = "user_offline"
)

// Envelope is the single frame shape in both directions. IsTyping is a
// pointer so that an explicit false survives omitempty.
type Envelope struct {
	Type     string           `json:"type"`
	RoomID   string           `json:"room_id,omitempty"`
	UserID   string           `json:"user_id,omitempty"`
	IsTyping *bool            `json:"is_typing,omitempty"`
	Message  *chat.MessageDTO `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func errorEnvelope(msg string) Envelope {
	return Envelope{Type: typeError, Error: msg}
}

func typingEnvelope(roomID, userID string, isTyping bool) Envelope {
	return Envelope{Type: typeTyping, RoomID: roomID, UserID: userID, IsTyping: &isTyping}
}
