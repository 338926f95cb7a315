package net

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gunzgo/server/internal/auth"
	"github.com/gunzgo/server/internal/match"
	"github.com/gunzgo/server/internal/persist"
	"github.com/gunzgo/server/internal/protocol"
	"golang.org/x/crypto/bcrypt"
)

type lobbyStub struct {
	created []match.Params
	signals []string
}

func (l *lobbyStub) Create(p match.Params) (string, error) {
	l.created = append(l.created, p)
	return "m1", nil
}

func (l *lobbyStub) List() []match.Listing {
	return []match.Listing{{ID: "m1", Label: json.RawMessage(`{"name":"Lobby"}`), Players: 2}}
}

func (l *lobbyStub) Signal(_ context.Context, id, data string) (string, error) {
	if id != "m1" {
		return "", match.ErrNoMatch
	}
	l.signals = append(l.signals, data)
	return `{"ok":true}`, nil
}

type accountsStub struct {
	rows map[string]*persist.AccountRow
}

func (a *accountsStub) Load(_ context.Context, username string) (*persist.AccountRow, error) {
	return a.rows[username], nil
}

func (a *accountsStub) Create(_ context.Context, username, pw, role string) (*persist.AccountRow, error) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	row := &persist.AccountRow{UserID: "id-" + username, Username: username, PasswordHash: string(hash), Role: "player"}
	a.rows[username] = row
	return row, nil
}

func (a *accountsStub) ValidatePassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func (a *accountsStub) UpdateLastActive(context.Context, string) error { return nil }

func newTestAPI(t *testing.T, dev bool) (*httptest.Server, *lobbyStub, *auth.Issuer) {
	t.Helper()
	iss, _ := auth.NewIssuer("secret", time.Hour)
	lobby := &lobbyStub{}
	api := NewAPI(lobby, iss, &accountsStub{rows: map[string]*persist.AccountRow{}}, dev, nil)
	mux := http.NewServeMux()
	api.Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, lobby, iss
}

func postJSON(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAPIRegisterAndLogin(t *testing.T) {
	srv, _, iss := newTestAPI(t, false)

	if resp := postJSON(t, srv.URL+"/v1/auth/register", "", `{"username":"alice","password":"secret"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	if resp := postJSON(t, srv.URL+"/v1/auth/register", "", `{"username":"alice","password":"secret"}`); resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d", resp.StatusCode)
	}
	if resp := postJSON(t, srv.URL+"/v1/auth/login", "", `{"username":"alice","password":"wrong"}`); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d", resp.StatusCode)
	}

	resp := postJSON(t, srv.URL+"/v1/auth/login", "", `{"username":"alice","password":"secret"}`)
	var tok tokenReply
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		t.Fatal(err)
	}
	claims, err := iss.Verify(tok.Token)
	if err != nil || claims.Subject != "id-alice" || claims.Role != "player" {
		t.Errorf("claims = %+v err=%v", claims, err)
	}
}

func TestAPIDevLogin(t *testing.T) {
	srv, _, _ := newTestAPI(t, false)
	if resp := postJSON(t, srv.URL+"/v1/auth/dev", "", `{"username":"bob"}`); resp.StatusCode != http.StatusNotFound {
		t.Errorf("disabled dev login status = %d", resp.StatusCode)
	}

	srv, _, _ = newTestAPI(t, true)
	var first, second tokenReply
	json.NewDecoder(postJSON(t, srv.URL+"/v1/auth/dev", "", `{"username":"bob"}`).Body).Decode(&first)
	json.NewDecoder(postJSON(t, srv.URL+"/v1/auth/dev", "", `{"username":"bob"}`).Body).Decode(&second)
	if first.UserID == "" || first.UserID != second.UserID {
		t.Errorf("dev ids = %q %q", first.UserID, second.UserID)
	}
}

func TestAPIMatches(t *testing.T) {
	srv, lobby, iss := newTestAPI(t, false)
	tok, _ := iss.Issue("u1", "alice", "player")

	if resp := postJSON(t, srv.URL+"/v1/matches", "", `{}`); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous create status = %d", resp.StatusCode)
	}
	resp := postJSON(t, srv.URL+"/v1/matches", tok, `{"name":"Lobby","mapId":2}`)
	if resp.StatusCode != http.StatusOK || len(lobby.created) != 1 || lobby.created[0].MapID != 2 {
		t.Fatalf("create status = %d params = %+v", resp.StatusCode, lobby.created)
	}

	list, err := http.Get(srv.URL + "/v1/matches")
	if err != nil {
		t.Fatal(err)
	}
	defer list.Body.Close()
	var body struct {
		Matches []match.Listing `json:"matches"`
	}
	if err := json.NewDecoder(list.Body).Decode(&body); err != nil || len(body.Matches) != 1 {
		t.Errorf("list = %+v err=%v", body, err)
	}

	postJSON(t, srv.URL+"/v1/matches/m1/signal", tok, `{"op":"set_ready","userId":"someone-else","ready":true}`)
	if len(lobby.signals) != 1 {
		t.Fatal("signal not forwarded")
	}
	var fwd map[string]any
	json.Unmarshal([]byte(lobby.signals[0]), &fwd)
	if fwd["userId"] != "u1" || fwd["username"] != "alice" || fwd["op"] != "set_ready" {
		t.Errorf("forwarded = %v", fwd)
	}

	if resp := postJSON(t, srv.URL+"/v1/matches/nope/signal", tok, `{}`); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown match status = %d", resp.StatusCode)
	}
}

func TestServeWSAuthAndEcho(t *testing.T) {
	gw, _, iss := newTestGateway(t)
	srv := httptest.NewServer(http.HandlerFunc(gw.ServeWS))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	if _, resp, err := websocket.DefaultDialer.Dial(url, nil); err == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous dial err=%v", err)
	}

	tok, _ := iss.Issue("u1", "alice", "player")
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+tok, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var f frame
	if err := json.Unmarshal(data, &f); err != nil || mt != websocket.TextMessage || f.Op != protocol.SAuth {
		t.Errorf("first message type=%d op=%v err=%v", mt, f.Op, err)
	}
}
