// Package registry implements the room broadcast groups: live connections
// join a group keyed by room id, and an event published to a group is
// delivered to every current member, the publisher included. Publishing is
// always mediated by a Bus backend so that gateways on different processes
// sharing a backend see each other's events.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var ErrRegistryClosed = errors.New("registry: closed")

// GroupKey derives the broadcast group key for a room. Keyed by the
// immutable numeric room id, never the user-supplied name, so rooms with
// colliding names or slugs can never share a group.
func GroupKey(roomID int64) string {
	return fmt.Sprintf("chat.room.%d", roomID)
}

// Member is one live connection's side of the registry. Deliver must not
// block; a non-nil error tells the registry the member can no longer keep
// up and drops it from the group.
type Member interface {
	ID() string
	Deliver(data []byte) error
}

type Registry struct {
	log *slog.Logger
	bus Bus

	mu     sync.RWMutex
	groups map[string]map[string]Member
	closed bool
}

func New(log *slog.Logger, bus Bus) *Registry {
	r := &Registry{
		log:    log,
		bus:    bus,
		groups: make(map[string]map[string]Member),
	}
	bus.Subscribe(r.route)
	return r
}

// Run consumes the bus until ctx is cancelled or the backend fails.
func (r *Registry) Run(ctx context.Context) error {
	return r.bus.Start(ctx)
}

// Join registers the member under the group key. Idempotent for a member
// already joined.
func (r *Registry) Join(key string, m Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	group := r.groups[key]
	if group == nil {
		group = make(map[string]Member)
		r.groups[key] = group
	}
	group[m.ID()] = m
	return nil
}

// Leave removes the member from the group. No-op if it was never joined,
// so duplicate leaves during teardown are harmless.
func (r *Registry) Leave(key string, m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[key]
	if !ok {
		return
	}
	delete(group, m.ID())
	if len(group) == 0 {
		delete(r.groups, key)
	}
}

// Publish hands the event to the bus. Delivery to local members happens
// when the bus hands the event back via route, on this process and every
// other process subscribed to the same backend.
func (r *Registry) Publish(ctx context.Context, key string, data []byte) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrRegistryClosed
	}
	return r.bus.Publish(ctx, key, data)
}

// MemberCount reports the current size of a group.
func (r *Registry) MemberCount(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[key])
}

// route fans one bus event out to the group's current members. Each
// delivery is independent: a member that fails is dropped from the group
// and the rest still receive the event.
func (r *Registry) route(key string, data []byte) {
	r.mu.RLock()
	members := make([]Member, 0, len(r.groups[key]))
	for _, m := range r.groups[key] {
		members = append(members, m)
	}
	r.mu.RUnlock()

	var dead []Member
	for _, m := range members {
		if err := m.Deliver(data); err != nil {
			r.log.Warn("dropping group member", "group", key, "member", m.ID(), "error", err)
			dead = append(dead, m)
		}
	}
	for _, m := range dead {
		r.Leave(key, m)
	}
}

// Close marks the registry closed and shuts the bus down. Members still
// joined are forgotten; their sessions notice via their own connection
// teardown.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.groups = make(map[string]map[string]Member)
	r.mu.Unlock()

	return r.bus.Close()
}
