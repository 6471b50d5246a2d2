package model

import (
	"slices"
	"time"
)

type RoomType string

const (
	RoomPublic   RoomType = "public"
	RoomPrivate  RoomType = "private"
	RoomPersonal RoomType = "personal"
)

// Room is the chat room as the fan-out core sees it: identity plus the
// membership data needed for the join capability check. Room CRUD lives
// outside this service; the core only reads rooms.
type Room struct {
	ID        int64    `json:"id"`
	Slug      string   `json:"slug"`
	Name      string   `json:"name"`
	Type      RoomType `json:"room_type"`
	CreatedBy int64    `json:"created_by"`
	Members   []int64  `json:"members,omitempty"`
}

// CanJoin decides whether a user may subscribe to this room's group.
// Creators always may; public rooms admit everyone; private rooms admit
// members; personal rooms admit only their creator.
func (r *Room) CanJoin(userID int64) bool {
	if r.CreatedBy == userID {
		return true
	}
	switch r.Type {
	case RoomPublic:
		return true
	case RoomPrivate:
		return slices.Contains(r.Members, userID)
	default:
		return false
	}
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Message is one persisted chat message. Rows are append-only from the
// core's perspective: never updated, never deleted.
type Message struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Image     *string   `json:"image"`
	CreatedOn time.Time `json:"created_on"`
}
