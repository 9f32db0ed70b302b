package core

// Request is built once per inbound message and never mutated afterwards.
type Request struct {
	ID         string
	Raw        string
	Content    string
	AuthorID   int64
	RoomID     int64
	AccountID  string
	Account    AccountProperties
	Room       RoomProperties
	Limit      int
	IsBot      bool
	IsOperator bool
}

// WithContent returns a copy with a rewritten content.
func (r Request) WithContent(content string) Request {
	r.Content = content
	return r
}

func (r Request) IsRegistered() bool {
	return r.AccountID != ""
}

func (r Request) IsPro() bool {
	return r.Account.Customer.Pro || r.Room.Settings.Pro
}

func (r Request) IsMuted() bool {
	return r.Account.Settings.Muted
}

// Autodelete reports whether the room or the author asked for transient replies.
func (r Request) Autodelete() bool {
	return r.Room.Settings.MessageProcessing.Autodelete || r.Account.Settings.Autodelete
}

// Response accumulates the side effects of one message.
type Response struct {
	PresetUsed   bool
	ShortcutUsed bool
	Autodelete   bool
	RateLimited  bool
	Weight       int
	Sent         []MessageHandle
}

func (r *Response) Track(handle MessageHandle) {
	if !handle.IsZero() {
		r.Sent = append(r.Sent, handle)
	}
}
