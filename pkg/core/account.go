package core

import "github.com/shopspring/decimal"

const (
	AddonCommandPresets = "commandPresets"
	AddonMarketAlerts   = "marketAlerts"
)

type Preset struct {
	Phrase   string `json:"phrase"`
	Shortcut string `json:"shortcut"`
}

type Alert struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Level     decimal.Decimal `json:"level"`
	User      string          `json:"user"`
	Channel   string          `json:"channel"`
	Timestamp int64           `json:"timestamp"`
	Repeat    bool            `json:"repeat"`
}

// MarketAlerts groups alerts by exchange, then by symbol key ("BTC-USDT").
type MarketAlerts map[string]map[string][]Alert

type Subscription struct {
	Subscription string `json:"subscription"`
}

type Customer struct {
	PersonalSubscription Subscription   `json:"personalSubscription"`
	Addons               map[string]int `json:"addons"`
	Pro                  bool           `json:"pro"`
}

type AccountSettings struct {
	Autodelete bool `json:"autodelete"`
	Muted      bool `json:"muted"`
}

// AccountProperties is the account document stored at accounts/{id}.
type AccountProperties struct {
	Customer       Customer        `json:"customer"`
	CommandPresets []Preset        `json:"commandPresets"`
	MarketAlerts   MarketAlerts    `json:"marketAlerts"`
	PaperTrader    PaperTrader     `json:"paperTrader"`
	Settings       AccountSettings `json:"settings"`
}

// Addon returns the activation flag of an add-on.
func (a AccountProperties) Addon(name string) int {
	if a.Customer.Addons == nil {
		return 0
	}
	return a.Customer.Addons[name]
}

type MessageProcessing struct {
	Shortcuts  bool `json:"shortcuts"`
	Autodelete bool `json:"autodelete"`
}

type RoomSettings struct {
	MessageProcessing MessageProcessing `json:"messageProcessing"`
	Pro               bool              `json:"pro"`
}

// RoomProperties is the room document stored at discord/properties/guilds/{id}.
type RoomProperties struct {
	Settings RoomSettings `json:"settings"`
}

// DefaultRoomProperties is used for direct messages and unknown rooms.
func DefaultRoomProperties() RoomProperties {
	return RoomProperties{Settings: RoomSettings{MessageProcessing: MessageProcessing{Shortcuts: true}}}
}
