package net

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gunzgo/server/internal/auth"
	"github.com/gunzgo/server/internal/match"
	"github.com/gunzgo/server/internal/persist"
	"go.uber.org/zap"
)

// Lobby is the part of the match hub the HTTP API drives.
type Lobby interface {
	Create(p match.Params) (string, error)
	List() []match.Listing
	Signal(ctx context.Context, matchID, data string) (string, error)
}

// Accounts stores login credentials.
type Accounts interface {
	Load(ctx context.Context, username string) (*persist.AccountRow, error)
	Create(ctx context.Context, username, rawPassword, role string) (*persist.AccountRow, error)
	ValidatePassword(hash, rawPassword string) bool
	UpdateLastActive(ctx context.Context, userID string) error
}

// devNamespace derives stable user ids for dev logins.
var devNamespace = uuid.MustParse("5c4a6b8e-1f0d-4f4e-9d1b-6f3a2e7c9b10")

type API struct {
	lobby    Lobby
	issuer   *auth.Issuer
	accounts Accounts // nil disables login and registration
	devLogin bool
	log      *zap.Logger
}

func NewAPI(lobby Lobby, issuer *auth.Issuer, accounts Accounts, devLogin bool, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{lobby: lobby, issuer: issuer, accounts: accounts, devLogin: devLogin, log: log}
}

// Routes registers the API on mux.
func (a *API) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /v1/auth/login", a.login)
	mux.HandleFunc("POST /v1/auth/register", a.register)
	mux.HandleFunc("POST /v1/auth/dev", a.dev)
	mux.HandleFunc("GET /v1/matches", a.list)
	mux.HandleFunc("POST /v1/matches", a.authed(a.create))
	mux.HandleFunc("POST /v1/matches/{id}/signal", a.authed(a.signal))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenReply struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (a *API) issue(w http.ResponseWriter, userID, username, role string) {
	tok, err := a.issuer.Issue(userID, username, role)
	if err != nil {
		a.log.Error("issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "token")
		return
	}
	writeJSON(w, http.StatusOK, tokenReply{Token: tok, UserID: userID, Username: username})
}

func (a *API) readCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var c credentials
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return c, false
	}
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" {
		writeError(w, http.StatusBadRequest, "username required")
		return c, false
	}
	return c, true
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	if a.accounts == nil {
		writeError(w, http.StatusNotFound, "accounts disabled")
		return
	}
	c, ok := a.readCredentials(w, r)
	if !ok {
		return
	}
	acc, err := a.accounts.Load(r.Context(), c.Username)
	if err != nil {
		a.log.Error("load account", zap.String("username", c.Username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store")
		return
	}
	if acc == nil || !a.accounts.ValidatePassword(acc.PasswordHash, c.Password) {
		writeError(w, http.StatusUnauthorized, "bad credentials")
		return
	}
	if err := a.accounts.UpdateLastActive(r.Context(), acc.UserID); err != nil {
		a.log.Warn("update last active", zap.Error(err))
	}
	a.issue(w, acc.UserID, acc.Username, acc.Role)
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	if a.accounts == nil {
		writeError(w, http.StatusNotFound, "accounts disabled")
		return
	}
	c, ok := a.readCredentials(w, r)
	if !ok {
		return
	}
	if len(c.Password) < 4 {
		writeError(w, http.StatusBadRequest, "password too short")
		return
	}
	existing, err := a.accounts.Load(r.Context(), c.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "username taken")
		return
	}
	acc, err := a.accounts.Create(r.Context(), c.Username, c.Password, "")
	if err != nil {
		a.log.Error("create account", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store")
		return
	}
	a.issue(w, acc.UserID, acc.Username, acc.Role)
}

// dev issues a token for any username without a password.
func (a *API) dev(w http.ResponseWriter, r *http.Request) {
	if !a.devLogin {
		writeError(w, http.StatusNotFound, "dev login disabled")
		return
	}
	c, ok := a.readCredentials(w, r)
	if !ok {
		return
	}
	userID := uuid.NewSHA1(devNamespace, []byte(c.Username)).String()
	a.issue(w, userID, c.Username, "player")
}

type ctxKey struct{}

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(ctxKey{}).(*auth.Claims)
	return c
}

func (a *API) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.issuer.Verify(bearer(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
	}
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	list := a.lobby.List()
	if list == nil {
		list = []match.Listing{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": list})
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	raw := map[string]any{}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	id, err := a.lobby.Create(match.ParseParams(raw))
	switch {
	case errors.Is(err, match.ErrHubFull):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		a.log.Error("create match", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create")
		return
	}
	a.log.Info("match created", zap.String("match", id), zap.String("by", claimsFrom(r.Context()).Subject))
	writeJSON(w, http.StatusOK, map[string]string{"matchId": id})
}

// signal forwards a control request. The caller's identity replaces any
// userId or username in the body.
func (a *API) signal(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	body := map[string]any{}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	body["userId"] = claims.Subject
	body["username"] = claims.Username
	data, _ := json.Marshal(body)

	out, err := a.lobby.Signal(r.Context(), r.PathValue("id"), string(data))
	switch {
	case errors.Is(err, match.ErrNoMatch):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, out)
}
