// Package registry implements the Room Registry named in spec.md §4.2:
// the process-wide lookup of live Room actors, created lazily on first
// access and rehydrated from the Store at startup as Room actors with
// nobody seated.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"holdem-lite/internal/persistence"
	"holdem-lite/internal/room"
)

// Registry owns every live Room in the process. There is exactly one
// Registry per server instance; every Gateway connection routes through
// it to reach a Room.
type Registry struct {
	persist *persistence.Adapter
	send    room.Sender

	mu    sync.Mutex
	rooms map[string]*room.Room
}

func New(persist *persistence.Adapter, send room.Sender) *Registry {
	return &Registry{
		persist: persist,
		send:    send,
		rooms:   make(map[string]*room.Room),
	}
}

// GetOrCreate returns the live Room for id, constructing it from its
// persisted RoomRecord on first access — spec.md §4.2's get_or_create.
func (reg *Registry) GetOrCreate(ctx context.Context, id string) (*room.Room, error) {
	reg.mu.Lock()
	if r, ok := reg.rooms[id]; ok {
		reg.mu.Unlock()
		return r, nil
	}
	reg.mu.Unlock()
	return reg.StartRoom(ctx, id)
}

// StartRoom constructs and registers a Room actor from a persisted room
// record. It also submits an EventJoin for every active seat the Store
// still lists, but EventJoin runs the buy-in path, which refuses a user
// who already has a seat row in the room, so those joins fail and the
// Room starts with nobody seated. A surviving seat is taken back when its
// owner sends join_room (EventAttach), which re-seats from the persisted
// record; no live hand is resumed.
func (reg *Registry) StartRoom(ctx context.Context, roomID string) (*room.Room, error) {
	rec, err := reg.persist.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r, ok := reg.rooms[roomID]; ok {
		return r, nil
	}

	r, err := room.New(rec.ID, room.Config{
		MaxPlayers: rec.MaxPlayers,
		SmallBlind: rec.SmallBlind,
		BigBlind:   rec.BigBlind,
		MinBuyIn:   rec.MinBuyIn,
		MaxBuyIn:   rec.MaxBuyIn,
	}, reg.send, reg.persist)
	if err != nil {
		return nil, err
	}

	seats, err := reg.persist.ListSeatsByRoom(ctx, roomID)
	if err != nil {
		r.Close()
		return nil, err
	}
	for _, seat := range seats {
		if seat.Status != "active" {
			continue
		}
		if err := r.Submit(room.Event{Type: room.EventJoin, UserID: seat.UserID, Amount: seat.Stack}); err != nil {
			// The seat row already exists, so the buy-in rejects the join
			// and the seat stays in the Store, unseated, until its owner
			// attaches over the wire.
			_ = err
		}
	}

	reg.rooms[roomID] = r
	return r, nil
}

// RehydrateAll re-creates a Room actor for every non-closed room the
// Store knows about. Called once at process startup.
func (reg *Registry) RehydrateAll(ctx context.Context) error {
	open, err := reg.persist.ListOpenRoomsWithSeats(ctx)
	if err != nil {
		return err
	}
	for _, o := range open {
		if _, err := reg.StartRoom(ctx, o.Room.ID); err != nil {
			return fmt.Errorf("rehydrate room %s: %w", o.Room.ID, err)
		}
	}
	return nil
}

// Remove closes and forgets a Room, e.g. after an admin deletes it.
func (reg *Registry) Remove(roomID string) {
	reg.mu.Lock()
	r, ok := reg.rooms[roomID]
	delete(reg.rooms, roomID)
	reg.mu.Unlock()
	if ok {
		r.Close()
	}
}

// Get returns a already-live Room without creating one.
func (reg *Registry) Get(roomID string) (*room.Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[roomID]
	return r, ok
}

// sweepIdleInterval governs how often the registry could prune rooms with
// no seats and no recent activity; left as a documented knob rather than a
// background goroutine since spec.md's Non-goals exclude multi-node
// sharding and table lifecycle beyond a single process's uptime.
const sweepIdleInterval = 5 * time.Minute
