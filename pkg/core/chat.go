package core

import "context"

// Reactions understood by the router.
const (
	ReactionDismiss = "☑"
	ReactionCancel  = "❌"
)

// Notice colours, as RGB integers.
const (
	ColorGray       = 0x9EA3A8
	ColorDeepPurple = 0x673AB7
	ColorLightBlue  = 0x03A9F4
	ColorPink       = 0xE91E63
	ColorRed        = 0xF44336
)

type MessageHandle struct {
	RoomID    int64
	MessageID string
}

func (h MessageHandle) IsZero() bool {
	return h.MessageID == ""
}

type Field struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Author      string
	Title       string
	Description string
	Footer      string
	Color       int
	Fields      []Field
}

type OutboundMessage struct {
	Mention   int64 // author to mention, 0 for none
	Content   string
	Embed     *Embed
	Image     []byte
	Filename  string
	Reactions []string
}

// Chat is the transport collaborator.
type Chat interface {
	SendMessage(ctx context.Context, roomID int64, msg OutboundMessage) (MessageHandle, error)
	EditMessage(ctx context.Context, handle MessageHandle, msg OutboundMessage) error
	DeleteMessage(ctx context.Context, handle MessageHandle) error
	AddReaction(ctx context.Context, handle MessageHandle, emoji string) error
	RemoveReaction(ctx context.Context, handle MessageHandle, emoji string) error
}

// MessageReceived is emitted for every inbound chat message.
type MessageReceived struct {
	Handle   MessageHandle
	Text     string
	AuthorID int64
	RoomID   int64
	IsBot    bool
	IsSelf   bool
	System   bool // joins, pins and other non-default message types
}

// ReactionAdded is emitted when a user reacts to one of the bot messages.
type ReactionAdded struct {
	Emoji    string
	AuthorID int64
	Target   MessageHandle
}

// EventSource is implemented by transports that push inbound events.
type EventSource interface {
	Messages() <-chan MessageReceived
	Reactions() <-chan ReactionAdded
}
