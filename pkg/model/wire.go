package model

type EventType string

const (
	TypeMessage  EventType = "message"
	TypePresence EventType = "presence"
	TypeError    EventType = "error"
)

// InboundEvent is the JSON frame a client sends while joined to a room.
// Image is the only optional field.
type InboundEvent struct {
	Message  string  `json:"message" validate:"required"`
	Username string  `json:"username" validate:"required"`
	RoomID   int64   `json:"room_id" validate:"required"`
	RoomName string  `json:"room_name" validate:"required"`
	Image    *string `json:"image"`
}

// BroadcastEvent is what travels over the group registry's bus. It is
// produced only after inbound validation (or by the gateway itself, for
// presence notices), so receiving sessions render it without re-checking.
type BroadcastEvent struct {
	Type     EventType `json:"type"`
	Message  string    `json:"message"`
	Username string    `json:"username"`
	RoomName string    `json:"room_name,omitempty"`
	Image    *string   `json:"image"`
}

// OutboundMessage is the frame rendered to clients for a chat message.
type OutboundMessage struct {
	Message  string  `json:"message"`
	Username string  `json:"username"`
	Image    *string `json:"image"`
}

// OutboundNotice is the frame rendered for non-message events (presence
// joins/leaves, per-sender transient errors). Carries an explicit type so
// clients can tell it apart from chat messages.
type OutboundNotice struct {
	Type     EventType `json:"type"`
	Username string    `json:"username,omitempty"`
	Message  string    `json:"message"`
}
