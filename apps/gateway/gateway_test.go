package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/mahaj/baithak/pkg/auth"
	"github.com/mahaj/baithak/pkg/model"
	"github.com/mahaj/baithak/pkg/registry"
	"github.com/mahaj/baithak/pkg/store"
)

// fakeStore keeps users, rooms and messages in memory and can be told to
// fail writes, standing in for ScyllaDB.
type fakeStore struct {
	mu          sync.Mutex
	usersByName map[string]*model.User
	usersByID   map[int64]*model.User
	roomsByID   map[int64]*model.Room
	roomsBySlug map[string]*model.Room
	messages    []*model.Message
	failCreate  bool
	nextID      int64
}

func newFakeStore() *fakeStore {
	s := &fakeStore{
		usersByName: make(map[string]*model.User),
		usersByID:   make(map[int64]*model.User),
		roomsByID:   make(map[int64]*model.Room),
		roomsBySlug: make(map[string]*model.Room),
	}
	for _, u := range []*model.User{
		{ID: 1, Username: "alice"},
		{ID: 2, Username: "bob"},
		{ID: 3, Username: "eve"},
	} {
		s.usersByName[u.Username] = u
		s.usersByID[u.ID] = u
	}
	for _, r := range []*model.Room{
		{ID: 7, Slug: "general", Name: "general", Type: model.RoomPublic, CreatedBy: 1},
		{ID: 8, Slug: "vault", Name: "vault", Type: model.RoomPrivate, CreatedBy: 1, Members: []int64{2}},
	} {
		s.roomsByID[r.ID] = r
		s.roomsBySlug[r.Slug] = r
	}
	return s
}

func (s *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usersByName[username]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeStore) GetRoomBySlug(_ context.Context, slug string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roomsBySlug[slug]
	if !ok {
		return nil, store.ErrRoomNotFound
	}
	return r, nil
}

func (s *fakeStore) GetRoom(_ context.Context, id int64) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roomsByID[id]
	if !ok {
		return nil, store.ErrRoomNotFound
	}
	return r, nil
}

func (s *fakeStore) CreateMessage(_ context.Context, userID, roomID int64, content string, image *string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return nil, errors.New("store unavailable")
	}
	u, ok := s.usersByID[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	if _, ok := s.roomsByID[roomID]; !ok {
		return nil, store.ErrRoomNotFound
	}
	s.nextID++
	msg := &model.Message{
		ID:        s.nextID,
		RoomID:    roomID,
		UserID:    userID,
		Username:  u.Username,
		Content:   content,
		Image:     image,
		CreatedOn: time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *fakeStore) setFailCreate(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate = fail
}

func (s *fakeStore) rows() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

type testEnv struct {
	srv   *httptest.Server
	reg   *registry.Registry
	store *fakeStore
	auth  *auth.Authenticator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := newFakeStore()
	reg := registry.New(logger, registry.NewMemoryBus())
	gw := NewGateway(logger, st, reg, nil, auth.New("test_secret"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{room_slug}", gw.ServeWS)
	mux.HandleFunc("GET /rooms/{room_id}/users", gw.ServePresence)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, reg: reg, store: st, auth: auth.New("test_secret")}
}

func (e *testEnv) wsURL(slug string) string {
	return "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws/" + slug
}

func (e *testEnv) dial(t *testing.T, userID int64, username, slug string) *websocket.Conn {
	t.Helper()
	token, err := e.auth.GenerateToken(userID, username)
	require.NoError(t, err)

	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.Dial(e.wsURL(slug), header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (e *testEnv) dialExpectStatus(t *testing.T, userID int64, username, slug string, wantStatus int) {
	t.Helper()
	token, err := e.auth.GenerateToken(userID, username)
	require.NoError(t, err)

	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.Dial(e.wsURL(slug), header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Nil(t, conn)
	require.Equal(t, wantStatus, resp.StatusCode)
	resp.Body.Close()
}

// readChatFrame reads frames until a chat message arrives, skipping
// presence notices.
func readChatFrame(t *testing.T, conn *websocket.Conn) model.OutboundMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "expected a chat frame")

		var probe map[string]any
		require.NoError(t, json.Unmarshal(raw, &probe))
		if _, isNotice := probe["type"]; isNotice {
			continue
		}
		var out model.OutboundMessage
		require.NoError(t, json.Unmarshal(raw, &out))
		return out
	}
}

// readNotice reads frames until a notice of the wanted type arrives.
func readNotice(t *testing.T, conn *websocket.Conn, want model.EventType) model.OutboundNotice {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "expected a %q notice", want)

		var notice model.OutboundNotice
		require.NoError(t, json.Unmarshal(raw, &notice))
		if notice.Type == want {
			return notice
		}
	}
}

// expectNoChatFrame drains the connection for the given window and fails
// if any chat message shows up; presence notices are fine.
func expectNoChatFrame(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(window))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var probe map[string]any
		require.NoError(t, json.Unmarshal(raw, &probe))
		_, isNotice := probe["type"]
		require.True(t, isNotice, "unexpected chat frame: %s", raw)
	}
}

func sendInbound(t *testing.T, conn *websocket.Conn, evt model.InboundEvent) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(evt))
}

func waitMembers(t *testing.T, env *testEnv, roomID int64, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return env.reg.MemberCount(registry.GroupKey(roomID)) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcastReachesAllSessionsIncludingSender(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t, 1, "alice", "general")
	bob := env.dial(t, 2, "bob", "general")
	waitMembers(t, env, 7, 2)

	sendInbound(t, alice, model.InboundEvent{
		Message:  "hi",
		Username: "alice",
		RoomID:   7,
		RoomName: "general",
	})

	for _, conn := range []*websocket.Conn{alice, bob} {
		got := readChatFrame(t, conn)
		require.Equal(t, "hi", got.Message)
		require.Equal(t, "alice", got.Username)
		require.Nil(t, got.Image)
	}

	rows := env.store.rows()
	require.Len(t, rows, 1)
	require.Equal(t, int64(1), rows[0].UserID)
	require.Equal(t, int64(7), rows[0].RoomID)
	require.Equal(t, "hi", rows[0].Content)
}

func TestMalformedFramesAreDroppedWithoutClosingSession(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t, 1, "alice", "general")
	waitMembers(t, env, 7, 1)

	// Wrong field type, then a missing required field. Neither may
	// close the session or create a row.
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"message":123,"username":"alice","room_id":7,"room_name":"general"}`)))
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"username":"alice","room_id":7,"room_name":"general"}`)))

	sendInbound(t, alice, model.InboundEvent{
		Message:  "still here",
		Username: "alice",
		RoomID:   7,
		RoomName: "general",
	})

	got := readChatFrame(t, alice)
	require.Equal(t, "still here", got.Message)
	require.Len(t, env.store.rows(), 1)
}

func TestFrameForWrongRoomIsDropped(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t, 1, "alice", "general")
	waitMembers(t, env, 7, 1)

	sendInbound(t, alice, model.InboundEvent{
		Message:  "smuggled",
		Username: "alice",
		RoomID:   8,
		RoomName: "vault",
	})

	expectNoChatFrame(t, alice, 300*time.Millisecond)
	require.Empty(t, env.store.rows())
}

func TestPersistenceFailureSuppressesBroadcast(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t, 1, "alice", "general")
	bob := env.dial(t, 2, "bob", "general")
	waitMembers(t, env, 7, 2)

	env.store.setFailCreate(true)
	sendInbound(t, alice, model.InboundEvent{
		Message:  "lost",
		Username: "alice",
		RoomID:   7,
		RoomName: "general",
	})

	// The sender gets a transient error notice, nobody gets the message.
	notice := readNotice(t, alice, model.TypeError)
	require.Equal(t, "message not saved", notice.Message)
	expectNoChatFrame(t, bob, 300*time.Millisecond)
	require.Empty(t, env.store.rows())
}

func TestCapabilityCheckRejectsBeforeJoin(t *testing.T) {
	env := newTestEnv(t)

	// eve is neither creator nor member of the private room.
	env.dialExpectStatus(t, 3, "eve", "vault", http.StatusForbidden)
	require.Equal(t, 0, env.reg.MemberCount(registry.GroupKey(8)))

	// Members and creators join fine.
	env.dial(t, 2, "bob", "vault")
	env.dial(t, 1, "alice", "vault")
	waitMembers(t, env, 8, 2)
}

func TestUnknownRoomRejectsSocket(t *testing.T) {
	env := newTestEnv(t)
	env.dialExpectStatus(t, 1, "alice", "nowhere", http.StatusNotFound)
}

func TestMissingTokenRejectsSocket(t *testing.T) {
	env := newTestEnv(t)

	conn, resp, err := websocket.DefaultDialer.Dial(env.wsURL("general"), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Nil(t, conn)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestClosedSessionStopsReceiving(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t, 1, "alice", "general")
	bob := env.dial(t, 2, "bob", "general")
	waitMembers(t, env, 7, 2)

	require.NoError(t, bob.Close())
	waitMembers(t, env, 7, 1)

	sendInbound(t, alice, model.InboundEvent{
		Message:  "anyone there",
		Username: "alice",
		RoomID:   7,
		RoomName: "general",
	})

	got := readChatFrame(t, alice)
	require.Equal(t, "anyone there", got.Message)
}

func TestCrossRoomIsolationBetweenSessions(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t, 1, "alice", "general")
	bobVault := env.dial(t, 2, "bob", "vault")
	waitMembers(t, env, 7, 1)
	waitMembers(t, env, 8, 1)

	sendInbound(t, alice, model.InboundEvent{
		Message:  "general only",
		Username: "alice",
		RoomID:   7,
		RoomName: "general",
	})

	got := readChatFrame(t, alice)
	require.Equal(t, "general only", got.Message)
	expectNoChatFrame(t, bobVault, 300*time.Millisecond)
}

func TestImagePayloadPassesThrough(t *testing.T) {
	env := newTestEnv(t)

	alice := env.dial(t, 1, "alice", "general")
	waitMembers(t, env, 7, 1)

	img := "uploads/cat.png"
	sendInbound(t, alice, model.InboundEvent{
		Message:  "look",
		Username: "alice",
		RoomID:   7,
		RoomName: "general",
		Image:    &img,
	})

	got := readChatFrame(t, alice)
	require.NotNil(t, got.Image)
	require.Equal(t, img, *got.Image)

	rows := env.store.rows()
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Image)
}
