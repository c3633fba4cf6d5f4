package lobby

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"holdem-lite/internal/auth"
	"holdem-lite/internal/persistence"
	"holdem-lite/internal/registry"
	"holdem-lite/internal/store"
	"holdem-lite/internal/wire"
)

type noopSender struct{}

func (noopSender) SendToUser(userID uint64, frame wire.Frame) {}

func newTestLobby(t *testing.T) (*Lobby, *http.ServeMux, *auth.Manager) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	persist := persistence.New(s)
	t.Cleanup(func() { _ = persist.Close() })

	manager := auth.NewManager()
	reg := registry.New(persist, noopSender{})
	l := New(manager, persist, reg)

	mux := http.NewServeMux()
	l.RegisterRoutes(mux)
	return l, mux, manager
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v (body=%s)", err, rec.Body.String())
	}
	return env
}

func registerUser(t *testing.T, mux *http.ServeMux, username, password string) authResponse {
	t.Helper()
	rec := doRequest(t, mux, http.MethodPost, "/auth/register", "", credentialsRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("register failed with status %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected a successful register envelope, got %+v", env)
	}
	data, _ := json.Marshal(env.Data)
	var resp authResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("failed to decode authResponse: %v", err)
	}
	return resp
}

func TestHandleRegisterOpensWalletForJoining(t *testing.T) {
	_, mux, _ := newTestLobby(t)
	resp := registerUser(t, mux, "alice", "hunter22")
	if resp.UserID == 0 || resp.Token == "" {
		t.Fatalf("expected a populated register response, got %+v", resp)
	}
}

func TestHandleRegisterRejectsDuplicateUsername(t *testing.T) {
	_, mux, _ := newTestLobby(t)
	registerUser(t, mux, "bob", "hunter22")

	rec := doRequest(t, mux, http.MethodPost, "/auth/register", "", credentialsRequest{Username: "bob", Password: "anotherpw"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a duplicate username, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleLoginReturnsTokenForValidCredentials(t *testing.T) {
	_, mux, _ := newTestLobby(t)
	registerUser(t, mux, "carol", "hunter22")

	rec := doRequest(t, mux, http.MethodPost, "/auth/login", "", credentialsRequest{Username: "carol", Password: "hunter22"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from login, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleLoginRejectsWrongPassword(t *testing.T) {
	_, mux, _ := newTestLobby(t)
	registerUser(t, mux, "dave", "hunter22")

	rec := doRequest(t, mux, http.MethodPost, "/auth/login", "", credentialsRequest{Username: "dave", Password: "wrong-password"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a wrong password, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleCreateRoomRequiresAdmin(t *testing.T) {
	l, mux, manager := newTestLobby(t)
	resp := registerUser(t, mux, "erin", "hunter22")

	rec := doRequest(t, mux, http.MethodPost, "/admin/rooms", resp.Token, createRoomRequest{Name: "Main", SmallBlind: 50, BigBlind: 100, MinBuyIn: 1000, MaxBuyIn: 10000, MaxPlayers: 6})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-admin create-room request, got %d: %s", rec.Code, rec.Body.String())
	}

	manager.SetAdmin(resp.UserID, true)
	rec = doRequest(t, mux, http.MethodPost, "/admin/rooms", resp.Token, createRoomRequest{Name: "Main", SmallBlind: 50, BigBlind: 100, MinBuyIn: 1000, MaxBuyIn: 10000, MaxPlayers: 6})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 once promoted to admin, got %d: %s", rec.Code, rec.Body.String())
	}
	_ = l
}

func TestHandleJoinRoomThenListRoomsReflectsSeatCount(t *testing.T) {
	l, mux, manager := newTestLobby(t)
	owner := registerUser(t, mux, "frank", "hunter22")
	manager.SetAdmin(owner.UserID, true)

	createRec := doRequest(t, mux, http.MethodPost, "/admin/rooms", owner.Token, createRoomRequest{
		Name: "Main", SmallBlind: 50, BigBlind: 100, MinBuyIn: 1000, MaxBuyIn: 10000, MaxPlayers: 6,
	})
	if createRec.Code != http.StatusOK {
		t.Fatalf("create room failed: %d %s", createRec.Code, createRec.Body.String())
	}
	env := decodeEnvelope(t, createRec)
	data, _ := json.Marshal(env.Data)
	var created roomView
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("failed to decode created room: %v", err)
	}

	player := registerUser(t, mux, "gail", "hunter22")
	joinRec := doRequest(t, mux, http.MethodPost, "/rooms/"+created.ID+"/join", player.Token, joinRequest{BuyIn: 2000})
	if joinRec.Code != http.StatusOK {
		t.Fatalf("join room failed: %d %s", joinRec.Code, joinRec.Body.String())
	}

	listRec := doRequest(t, mux, http.MethodGet, "/rooms", "", nil)
	listEnv := decodeEnvelope(t, listRec)
	listData, _ := json.Marshal(listEnv.Data)
	var rooms []roomView
	if err := json.Unmarshal(listData, &rooms); err != nil {
		t.Fatalf("failed to decode room list: %v", err)
	}
	if len(rooms) != 1 || rooms[0].SeatCount != 1 {
		t.Fatalf("expected one room with one seated player, got %+v", rooms)
	}

	leaveRec := doRequest(t, mux, http.MethodPost, "/rooms/"+created.ID+"/leave", player.Token, nil)
	if leaveRec.Code != http.StatusOK {
		t.Fatalf("leave room failed: %d %s", leaveRec.Code, leaveRec.Body.String())
	}
	_ = l
}

func TestHandleJoinRoomRejectsMissingToken(t *testing.T) {
	_, mux, _ := newTestLobby(t)
	rec := doRequest(t, mux, http.MethodPost, "/rooms/some-room/join", "", joinRequest{BuyIn: 2000})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a join without a bearer token, got %d", rec.Code)
	}
}
