package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/mahaj/baithak/pkg/auth"
	"github.com/mahaj/baithak/pkg/model"
	"github.com/mahaj/baithak/pkg/presence"
	"github.com/mahaj/baithak/pkg/registry"
	"github.com/mahaj/baithak/pkg/store"
)

type Gateway struct {
	log      *slog.Logger
	store    store.Store
	registry *registry.Registry
	presence *presence.Tracker
	auth     *auth.Authenticator
	validate *validator.Validate
	upgrader websocket.Upgrader
}

// NewGateway wires the fan-out core. tracker may be nil to disable
// presence tracking.
func NewGateway(log *slog.Logger, st store.Store, reg *registry.Registry, tracker *presence.Tracker, authn *auth.Authenticator) *Gateway {
	return &Gateway{
		log:      log,
		store:    st,
		registry: reg,
		presence: tracker,
		auth:     authn,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}
}

// bearerToken pulls the token from the Authorization header or, for
// websocket clients that cannot set headers, the token query param.
func bearerToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return strings.TrimPrefix(token, "Bearer ")
}

// ServeWS handles GET /ws/{room_slug}: identify the user, check the join
// capability, upgrade, join the room group and start the session pumps.
// Any failure before Join rejects the socket with no session created.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	claims, err := g.auth.ValidateToken(token)
	if err != nil {
		g.log.Warn("rejecting socket: invalid token", "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	slug := r.PathValue("room_slug")
	room, err := g.store.GetRoomBySlug(r.Context(), slug)
	if errors.Is(err, store.ErrRoomNotFound) {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		g.log.Error("room lookup failed", "room", slug, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if !room.CanJoin(claims.UserID) {
		g.log.Warn("rejecting socket: not allowed", "user", claims.Username, "room", slug)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("upgrade failed", "error", err)
		return
	}

	client := newClient(g, conn, &model.User{ID: claims.UserID, Username: claims.Username}, room)
	if err := g.registry.Join(client.groupKey, client); err != nil {
		g.log.Error("group join failed", "room", slug, "error", err)
		conn.Close()
		return
	}
	client.state.Store(stateJoined)
	g.log.Info("session joined", "session", client.id, "user", claims.Username, "room", slug)

	if g.presence != nil {
		if err := g.presence.Add(r.Context(), room.ID, claims.Username); err != nil {
			g.log.Warn("presence add failed", "room", slug, "error", err)
		}
	}
	g.announcePresence(r.Context(), room, claims.Username, "joined")

	go client.writePump()
	go client.readPump()
}

// ServePresence handles GET /rooms/{room_id}/users: the usernames
// currently online in the room, across all gateway processes.
func (g *Gateway) ServePresence(w http.ResponseWriter, r *http.Request) {
	if g.presence == nil {
		http.Error(w, "Presence disabled", http.StatusServiceUnavailable)
		return
	}
	roomID, err := strconv.ParseInt(r.PathValue("room_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid room id", http.StatusBadRequest)
		return
	}

	users, err := g.presence.Online(r.Context(), roomID)
	if err != nil {
		g.log.Error("presence lookup failed", "room_id", roomID, "error", err)
		http.Error(w, "Failed to fetch presence", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}

func (g *Gateway) announcePresence(ctx context.Context, room *model.Room, username, verb string) {
	data, err := json.Marshal(model.BroadcastEvent{
		Type:     model.TypePresence,
		Message:  verb,
		Username: username,
		RoomName: room.Name,
	})
	if err != nil {
		return
	}
	if err := g.registry.Publish(ctx, registry.GroupKey(room.ID), data); err != nil {
		g.log.Warn("presence broadcast failed", "room", room.Slug, "error", err)
	}
}
