package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/mahaj/baithak/pkg/model"
	"github.com/mahaj/baithak/pkg/snowflake"
)

// Scylla implements Store on ScyllaDB. Lookups follow the query-per-table
// idiom: users by username and by id, rooms by id and by slug.
type Scylla struct {
	session *gocql.Session
	ids     *snowflake.Node
}

func NewScylla(hosts []string, keyspace string, ids *snowflake.Node) (*Scylla, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("store: connect scylla: %w", err)
	}

	return &Scylla{session: session, ids: ids}, nil
}

func (s *Scylla) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.session.Query(
		`SELECT id, username FROM users WHERE username = ?`, username,
	).WithContext(ctx).Scan(&u.ID, &u.Username)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user %q: %w", username, err)
	}
	return &u, nil
}

func (s *Scylla) usernameByID(ctx context.Context, id int64) (string, error) {
	var username string
	err := s.session.Query(
		`SELECT username FROM users_by_id WHERE id = ?`, id,
	).WithContext(ctx).Scan(&username)
	if errors.Is(err, gocql.ErrNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get user %d: %w", id, err)
	}
	return username, nil
}

func (s *Scylla) GetRoomBySlug(ctx context.Context, slug string) (*model.Room, error) {
	var r model.Room
	err := s.session.Query(
		`SELECT id, slug, name, room_type, created_by, members FROM rooms_by_slug WHERE slug = ?`, slug,
	).WithContext(ctx).Scan(&r.ID, &r.Slug, &r.Name, &r.Type, &r.CreatedBy, &r.Members)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get room %q: %w", slug, err)
	}
	return &r, nil
}

func (s *Scylla) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var r model.Room
	err := s.session.Query(
		`SELECT id, slug, name, room_type, created_by, members FROM rooms WHERE id = ?`, id,
	).WithContext(ctx).Scan(&r.ID, &r.Slug, &r.Name, &r.Type, &r.CreatedBy, &r.Members)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get room %d: %w", id, err)
	}
	return &r, nil
}

// CreateMessage validates both references, then appends one message row.
// Safe for one writer per session; writers never block each other beyond
// the cluster's own coordination.
func (s *Scylla) CreateMessage(ctx context.Context, userID, roomID int64, content string, image *string) (*model.Message, error) {
	username, err := s.usernameByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:        s.ids.Generate(),
		RoomID:    roomID,
		UserID:    userID,
		Username:  username,
		Content:   content,
		Image:     image,
		CreatedOn: time.Now().UTC(),
	}

	err = s.session.Query(
		`INSERT INTO messages (room_id, id, user_id, username, content, image, created_on) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.RoomID, msg.ID, msg.UserID, msg.Username, msg.Content, msg.Image, msg.CreatedOn,
	).WithContext(ctx).Exec()
	if err != nil {
		return nil, fmt.Errorf("store: insert message: %w", err)
	}
	return msg, nil
}

func (s *Scylla) Close() {
	s.session.Close()
}
