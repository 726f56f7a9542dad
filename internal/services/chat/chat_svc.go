package chat

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type RoomDTO struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
}

type ReplyDTO struct {
	ID       string `json:"id"`
	SenderID string `json:"sender_id"`
	Body     string `json:"body"`
}

type MessageDTO struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id,omitempty"`
	SenderID   string    `json:"sender_id,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	Body       string    `json:"body,omitempty"`
	ReplyTo    *ReplyDTO `json:"reply_to,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
}

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrMessageNotFound = errors.New("message not found")
)

// IChatService is the read-only window onto the persisted chat store. Rooms
// and messages are created and mutated by the back-office REST layer; the
// signaling server only reads them.
type IChatService interface {
	FindRoom(ctx context.Context, id string) (*RoomDTO, error)
	FetchEnrichedMessage(ctx context.Context, id string) (*MessageDTO, error)
}

type chatService struct {
	db *sql.DB
}

func NewChatService(db *sql.DB) IChatService {
	return &chatService{db: db}
}

func (svc *chatService) FindRoom(ctx context.Context, id string) (*RoomDTO, error) {
	dto := &RoomDTO{}
	const roomQ = `SELECT id, name FROM chat_rooms WHERE id = $1`
	if err := svc.db.QueryRowContext(ctx, roomQ, id).Scan(&dto.ID, &dto.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	const partQ = `SELECT user_id FROM chat_room_participants WHERE room_id = $1`
	rows, err := svc.db.QueryContext(ctx, partQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		dto.Participants = append(dto.Participants, uid)
	}
	return dto, rows.Err()
}

// FetchEnrichedMessage projects a message together with its sender's display
// name and, when it is a reply, a slice of the replied-to message.
func (svc *chatService) FetchEnrichedMessage(ctx context.Context, id string) (*MessageDTO, error) {
	const q = `
	SELECT m.id, m.room_id, m.sender_id, u.display_name, m.body, m.created_at,
	       rm.id, rm.sender_id, rm.body
	  FROM chat_messages m
	  JOIN users u ON u.id = m.sender_id
	  LEFT JOIN chat_messages rm ON rm.id = m.reply_to_id
	 WHERE m.id = $1`

	dto := &MessageDTO{}
	var replyID, replySender, replyBody sql.NullString
	err := svc.db.QueryRowContext(ctx, q, id).Scan(
		&dto.ID, &dto.RoomID, &dto.SenderID, &dto.SenderName,
		&dto.Body, &dto.CreatedAt,
		&replyID, &replySender, &replyBody,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if replyID.Valid {
		dto.ReplyTo = &ReplyDTO{
			ID:       replyID.String,
			SenderID: replySender.String,
			Body:     replyBody.String,
		}
	}
	return dto, nil
}
