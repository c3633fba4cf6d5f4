// Package lobby implements the HTTP surface spec.md §6.1 names: account
// registration/login, room discovery, join/leave, and admin room
// management, all wrapped in the standard {success,data?,error?}
// envelope. Grounded on the teacher's auth/http.go handler style
// (decodeJSON/writeEnvelope/bearerToken helpers, RegisterRoutes(mux));
// each route's HTTP method is enforced by its ServeMux pattern rather
// than by a check inside the handler.
package lobby

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"holdem-lite/internal/auth"
	"holdem-lite/internal/persistence"
	"holdem-lite/internal/registry"
	"holdem-lite/internal/room"
	"holdem-lite/internal/store"
)

type Lobby struct {
	accounts *auth.Manager
	persist  *persistence.Adapter
	registry *registry.Registry
}

func New(accounts *auth.Manager, persist *persistence.Adapter, reg *registry.Registry) *Lobby {
	return &Lobby{accounts: accounts, persist: persist, registry: reg}
}

func (l *Lobby) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", l.handleRegister)
	mux.HandleFunc("POST /auth/login", l.handleLogin)

	mux.HandleFunc("GET /rooms", l.handleListRooms)
	mux.HandleFunc("GET /rooms/{id}", l.handleGetRoom)
	mux.HandleFunc("POST /rooms/{id}/join", l.handleJoinRoom)
	mux.HandleFunc("POST /rooms/{id}/leave", l.handleLeaveRoom)

	mux.HandleFunc("POST /admin/rooms", l.handleCreateRoom)
	mux.HandleFunc("PATCH /admin/rooms/{id}", l.handlePatchRoom)
	mux.HandleFunc("DELETE /admin/rooms/{id}", l.handleDeleteRoom)
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, envelope{Success: true, Data: data})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeEnvelope(w, status, envelope{Success: false, Error: msg})
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func bearerToken(raw string) string {
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
}

func (l *Lobby) identity(r *http.Request) (auth.Identity, bool) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return auth.Identity{}, false
	}
	return l.accounts.VerifyToken(token)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID uint64 `json:"userId"`
	Token  string `json:"token"`
}

// handleRegister creates the session identity via the Auth service stand-in
// and the durable wallet row via the Persistence Adapter, sharing one id
// across both so a later POST /rooms/{id}/join buy-in finds a real Store balance to
// debit — spec.md §6.1's "creates a user with signup bonus of 50,000 chips".
func (l *Lobby) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, token, err := l.accounts.Register(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
			writeFail(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrUsernameTaken):
			writeFail(w, http.StatusConflict, err.Error())
		default:
			writeFail(w, http.StatusInternalServerError, "register failed")
		}
		return
	}
	if _, err := l.persist.CreateUser(r.Context(), store.UserRecord{
		ID: userID, Username: req.Username, Balance: auth.SignupBonus,
	}); err != nil {
		writeFail(w, http.StatusInternalServerError, "failed to open wallet")
		return
	}
	writeData(w, http.StatusOK, authResponse{UserID: userID, Token: token})
}

func (l *Lobby) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, token, err := l.accounts.Login(req.Username, req.Password)
	if err != nil {
		writeFail(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	writeData(w, http.StatusOK, authResponse{UserID: userID, Token: token})
}

type roomView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SmallBlind int64  `json:"smallBlind"`
	BigBlind   int64  `json:"bigBlind"`
	MinBuyIn   int64  `json:"minBuyIn"`
	MaxBuyIn   int64  `json:"maxBuyIn"`
	MaxPlayers int    `json:"maxPlayers"`
	Status     string `json:"status"`
	SeatCount  int    `json:"seatCount"`
}

func (l *Lobby) handleListRooms(w http.ResponseWriter, r *http.Request) {
	open, err := l.persist.ListOpenRoomsWithSeats(r.Context())
	if err != nil {
		writeFail(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	views := make([]roomView, 0, len(open))
	for _, o := range open {
		views = append(views, toRoomView(o.Room, o.SeatCount))
	}
	writeData(w, http.StatusOK, views)
}

func (l *Lobby) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := l.persist.GetRoom(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeFail(w, http.StatusNotFound, "room not found")
			return
		}
		writeFail(w, http.StatusInternalServerError, "failed to load room")
		return
	}
	seats, err := l.persist.ListSeatsByRoom(r.Context(), id)
	if err != nil {
		writeFail(w, http.StatusInternalServerError, "failed to load seats")
		return
	}
	writeData(w, http.StatusOK, toRoomView(rec, len(seats)))
}

type joinRequest struct {
	BuyIn int64 `json:"buyIn"`
}

func (l *Lobby) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	identity, ok := l.identity(r)
	if !ok {
		writeFail(w, http.StatusUnauthorized, "missing or invalid bearer token")
		return
	}
	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := r.PathValue("id")
	rm, err := l.registry.GetOrCreate(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeFail(w, http.StatusNotFound, "room not found")
			return
		}
		writeFail(w, http.StatusInternalServerError, "failed to open room")
		return
	}
	if err := rm.Submit(room.Event{Type: room.EventJoin, UserID: identity.UserID, Username: identity.Username, Amount: req.BuyIn}); err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (l *Lobby) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	identity, ok := l.identity(r)
	if !ok {
		writeFail(w, http.StatusUnauthorized, "missing or invalid bearer token")
		return
	}
	id := r.PathValue("id")
	rm, ok := l.registry.Get(id)
	if !ok {
		writeFail(w, http.StatusNotFound, "room not open")
		return
	}
	if err := rm.Submit(room.Event{Type: room.EventLeave, UserID: identity.UserID}); err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, http.StatusOK, nil)
}

type createRoomRequest struct {
	Name       string `json:"name"`
	SmallBlind int64  `json:"smallBlind"`
	BigBlind   int64  `json:"bigBlind"`
	MinBuyIn   int64  `json:"minBuyIn"`
	MaxBuyIn   int64  `json:"maxBuyIn"`
	MaxPlayers int    `json:"maxPlayers"`
}

func (l *Lobby) requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := l.identity(r)
	if !ok {
		writeFail(w, http.StatusUnauthorized, "missing or invalid bearer token")
		return auth.Identity{}, false
	}
	if !identity.IsAdmin {
		writeFail(w, http.StatusForbidden, "admin privileges required")
		return auth.Identity{}, false
	}
	return identity, true
}

func (l *Lobby) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	identity, ok := l.requireAdmin(w, r)
	if !ok {
		return
	}
	var req createRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := l.persist.CreateRoom(r.Context(), store.RoomRecord{
		ID:         uuid.NewString(),
		Name:       req.Name,
		SmallBlind: req.SmallBlind,
		BigBlind:   req.BigBlind,
		MinBuyIn:   req.MinBuyIn,
		MaxBuyIn:   req.MaxBuyIn,
		MaxPlayers: req.MaxPlayers,
		Status:     "waiting",
		CreatedBy:  identity.UserID,
	})
	if err != nil {
		writeFail(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	writeData(w, http.StatusOK, toRoomView(rec, 0))
}

type patchRoomRequest struct {
	Status *string `json:"status,omitempty"`
}

func (l *Lobby) handlePatchRoom(w http.ResponseWriter, r *http.Request) {
	if _, ok := l.requireAdmin(w, r); !ok {
		return
	}
	var req patchRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := r.PathValue("id")
	if req.Status != nil {
		if err := l.persist.UpdateRoomStatus(r.Context(), id, *req.Status); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeFail(w, http.StatusNotFound, "room not found")
				return
			}
			writeFail(w, http.StatusInternalServerError, "failed to update room")
			return
		}
	}
	rec, err := l.persist.GetRoom(r.Context(), id)
	if err != nil {
		writeFail(w, http.StatusInternalServerError, "failed to reload room")
		return
	}
	writeData(w, http.StatusOK, toRoomView(rec, 0))
}

func (l *Lobby) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	if _, ok := l.requireAdmin(w, r); !ok {
		return
	}
	id := r.PathValue("id")
	l.registry.Remove(id)
	if err := l.persist.DeleteRoom(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeFail(w, http.StatusNotFound, "room not found")
			return
		}
		writeFail(w, http.StatusInternalServerError, "failed to delete room")
		return
	}
	writeData(w, http.StatusOK, nil)
}

func toRoomView(rec store.RoomRecord, seatCount int) roomView {
	return roomView{
		ID: rec.ID, Name: rec.Name, SmallBlind: rec.SmallBlind, BigBlind: rec.BigBlind,
		MinBuyIn: rec.MinBuyIn, MaxBuyIn: rec.MaxBuyIn, MaxPlayers: rec.MaxPlayers,
		Status: rec.Status, SeatCount: seatCount,
	}
}
