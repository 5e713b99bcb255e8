package model

import (
	"context"
	"encoding/json"
	"time"
)

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindFile  Kind = "file"
)

type Message struct {
	ID        int64     `json:"id"`
	User      string    `json:"user"`
	Content   string    `json:"content"`
	Type      Kind      `json:"type"`
	Filename  *string   `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
}

type Receipt struct {
	MessageID int64    `json:"msgId"`
	ReadBy    []string `json:"readBy"`
}

// Inbound event types sent by clients.
const (
	EventRegister = "register user"
	EventMessage  = "chat message"
	EventTyping   = "typing"
	EventRead     = "read message"
	EventDelete   = "delete message"
	EventLogout   = "user logout"
)

// Outbound announcement types sent by server. Some share names with inbound events.
const (
	AnnouncementTypeHistory = "load messages"
	AnnouncementTypeUsers   = "update users"
	AnnouncementTypeMessage = EventMessage
	AnnouncementTypeTyping  = EventTyping
	AnnouncementTypeReceipt = "read receipt"
	AnnouncementTypeDeleted = EventDelete
	AnnouncementTypeLogout  = EventLogout
)

type Announcement struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Session describes the connection an inbound event came from.
// Identity is the authenticated identity supplied by the transport, empty if none.
type Session struct {
	ConnID   string
	Identity string
}

type MessageRequest struct {
	User     string `json:"user"` // ignored, author is taken from the registered identity
	Content  string `json:"content" validate:"required"`
	Type     Kind   `json:"type" validate:"omitempty,oneof=text image file"`
	Filename string `json:"filename"`
}

type MessageRef struct {
	MessageID int64  `json:"msgId"`
	Username  string `json:"username"`
}

type Wire struct {
	TX   chan Announcement
	Kill context.CancelFunc // called by the switch when the endpoint cannot keep up
}

func NewWire(size int, kill context.CancelFunc) Wire {
	return Wire{
		TX:   make(chan Announcement, size),
		Kill: kill,
	}
}
