// Package store is the durable side of the chat core: users and rooms are
// read for validation and capability checks, messages are appended.
package store

import (
	"context"
	"errors"

	"github.com/mahaj/baithak/pkg/model"
)

var (
	ErrUserNotFound = errors.New("store: user not found")
	ErrRoomNotFound = errors.New("store: room not found")
)

// Store is what the fan-out core needs from persistence. CreateMessage
// must verify both references exist before inserting; the session never
// publishes a message this call did not accept.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetRoomBySlug(ctx context.Context, slug string) (*model.Room, error)
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	CreateMessage(ctx context.Context, userID, roomID int64, content string, image *string) (*model.Message, error)
}
