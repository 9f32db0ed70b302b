// Package notification provides the chat transports of the bot.
package notification

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/raykavin/alphabot/pkg/logger"
	zlog "github.com/raykavin/alphabot/pkg/logger/zerolog"
)

const (
	defaultBuffer = 256
	maxKeyboards  = 4096
)

// Telegram implements core.Chat and core.EventSource on a telebot long poller.
// Reactions are rendered as inline buttons; pressing one emits a
// core.ReactionAdded.
type Telegram struct {
	settings core.Settings
	client   *tb.Bot
	log      logger.Logger
	buffer   int

	messages  chan core.MessageReceived
	reactions chan core.ReactionAdded
	done      chan struct{}
	stopOnce  sync.Once

	mu        sync.Mutex
	keyboards map[core.MessageHandle][]string
}

// Option is a function that configures a Telegram instance
type Option func(telegram *Telegram)

// WithLogger sets the transport logger.
func WithLogger(log logger.Logger) Option {
	return func(t *Telegram) { t.log = log }
}

// WithBuffer sets the capacity of the inbound event channels.
func WithBuffer(n int) Option {
	return func(t *Telegram) { t.buffer = n }
}

// NewTelegram creates the bot client. Polling starts with Start.
func NewTelegram(settings core.Settings, options ...Option) (*Telegram, error) {
	t := &Telegram{
		settings:  settings,
		log:       zlog.Nop(),
		buffer:    defaultBuffer,
		done:      make(chan struct{}),
		keyboards: make(map[core.MessageHandle][]string),
	}
	for _, option := range options {
		option(t)
	}
	t.messages = make(chan core.MessageReceived, t.buffer)
	t.reactions = make(chan core.ReactionAdded, t.buffer)

	poller := &tb.LongPoller{Timeout: 10 * time.Second}
	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeHTML,
		Token:     settings.Telegram.Token,
		Poller:    t.filter(poller),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	if err := setupCommands(client); err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	t.client = client
	client.Handle(tb.OnText, t.onText)
	client.Handle(tb.OnCallback, t.onCallback)
	return t, nil
}

// filter drops updates without a sender and updates of blocked users before
// they reach a handler.
func (t *Telegram) filter(poller *tb.LongPoller) *tb.MiddlewarePoller {
	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		var sender *tb.User
		switch {
		case u.Message != nil:
			sender = u.Message.Sender
		case u.Callback != nil:
			sender = u.Callback.Sender
		default:
			return false
		}
		if sender == nil {
			return false
		}
		if slices.Contains(t.settings.BlockedUsers, sender.ID) {
			t.log.WithField("author", sender.ID).Debug("dropping update of blocked user")
			return false
		}
		return true
	})
}

// setupCommands configures the commands listed by Telegram clients.
func setupCommands(client *tb.Bot) error {
	return client.SetCommands([]tb.Command{
		{Text: "/help", Description: "Display help instructions"},
		{Text: "/start", Description: "Introduce the bot"},
	})
}

// Start polls in the background until Stop.
func (t *Telegram) Start() {
	go t.client.Start()
}

// Stop ends polling and closes the event channels.
func (t *Telegram) Stop() {
	t.stopOnce.Do(func() {
		t.client.Stop()
		close(t.done)
	})
}

func (t *Telegram) Messages() <-chan core.MessageReceived {
	return t.messages
}

func (t *Telegram) Reactions() <-chan core.ReactionAdded {
	return t.reactions
}

func roomOf(chat *tb.Chat) int64 {
	if chat.Type == tb.ChatPrivate {
		return -1
	}
	return chat.ID
}

func handleOf(m *tb.Message) core.MessageHandle {
	return core.MessageHandle{RoomID: m.Chat.ID, MessageID: strconv.Itoa(m.ID)}
}

func (t *Telegram) onText(m *tb.Message) {
	event := core.MessageReceived{
		Handle:   handleOf(m),
		Text:     m.Text,
		AuthorID: m.Sender.ID,
		RoomID:   roomOf(m.Chat),
		IsBot:    m.Sender.IsBot,
		IsSelf:   t.client.Me != nil && m.Sender.ID == t.client.Me.ID,
	}
	select {
	case t.messages <- event:
	case <-t.done:
	}
}

func (t *Telegram) onCallback(c *tb.Callback) {
	if err := t.client.Respond(c); err != nil {
		t.log.WithError(err).Debug("failed to answer callback")
	}
	if c.Message == nil {
		return
	}
	event := core.ReactionAdded{
		Emoji:    c.Data,
		AuthorID: c.Sender.ID,
		Target:   handleOf(c.Message),
	}
	select {
	case t.reactions <- event:
	case <-t.done:
	}
}

func stored(handle core.MessageHandle) tb.StoredMessage {
	return tb.StoredMessage{MessageID: handle.MessageID, ChatID: handle.RoomID}
}

func keyboard(emojis []string) *tb.ReplyMarkup {
	markup := &tb.ReplyMarkup{}
	if len(emojis) == 0 {
		markup.InlineKeyboard = [][]tb.InlineButton{}
		return markup
	}
	row := make([]tb.InlineButton, 0, len(emojis))
	for _, emoji := range emojis {
		row = append(row, tb.InlineButton{Text: emoji, Data: emoji})
	}
	markup.InlineKeyboard = [][]tb.InlineButton{row}
	return markup
}

func (t *Telegram) remember(handle core.MessageHandle, emojis []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(emojis) == 0 {
		delete(t.keyboards, handle)
		return
	}
	if _, ok := t.keyboards[handle]; !ok && len(t.keyboards) >= maxKeyboards {
		for h := range t.keyboards {
			delete(t.keyboards, h)
			break
		}
	}
	t.keyboards[handle] = emojis
}

func (t *Telegram) buttons(handle core.MessageHandle) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.keyboards[handle])
}

func (t *Telegram) SendMessage(_ context.Context, roomID int64, msg core.OutboundMessage) (core.MessageHandle, error) {
	options := &tb.SendOptions{ParseMode: tb.ModeHTML}
	if len(msg.Reactions) > 0 {
		options.ReplyMarkup = keyboard(msg.Reactions)
	}

	var what any = Render(msg)
	if len(msg.Image) > 0 {
		what = &tb.Photo{File: tb.FromReader(bytes.NewReader(msg.Image)), Caption: Render(msg)}
	}

	sent, err := t.client.Send(tb.ChatID(roomID), what, options)
	if err != nil {
		return core.MessageHandle{}, fmt.Errorf("send message: %w", err)
	}
	handle := handleOf(sent)
	t.remember(handle, msg.Reactions)
	return handle, nil
}

func (t *Telegram) EditMessage(_ context.Context, handle core.MessageHandle, msg core.OutboundMessage) error {
	options := &tb.SendOptions{ParseMode: tb.ModeHTML, ReplyMarkup: keyboard(msg.Reactions)}
	if _, err := t.client.Edit(stored(handle), Render(msg), options); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	t.remember(handle, msg.Reactions)
	return nil
}

func (t *Telegram) DeleteMessage(_ context.Context, handle core.MessageHandle) error {
	if err := t.client.Delete(stored(handle)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	t.remember(handle, nil)
	return nil
}

func (t *Telegram) AddReaction(_ context.Context, handle core.MessageHandle, emoji string) error {
	emojis := t.buttons(handle)
	if slices.Contains(emojis, emoji) {
		return nil
	}
	emojis = append(emojis, emoji)
	if _, err := t.client.EditReplyMarkup(stored(handle), keyboard(emojis)); err != nil {
		return fmt.Errorf("add reaction: %w", err)
	}
	t.remember(handle, emojis)
	return nil
}

func (t *Telegram) RemoveReaction(_ context.Context, handle core.MessageHandle, emoji string) error {
	emojis := t.buttons(handle)
	if !slices.Contains(emojis, emoji) {
		return nil
	}
	emojis = slices.DeleteFunc(emojis, func(e string) bool { return e == emoji })
	if _, err := t.client.EditReplyMarkup(stored(handle), keyboard(emojis)); err != nil {
		return fmt.Errorf("remove reaction: %w", err)
	}
	t.remember(handle, emojis)
	return nil
}
