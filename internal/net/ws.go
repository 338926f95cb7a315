package net

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// bearer extracts the session token from ?token= or an Authorization header.
func bearer(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// ServeWS upgrades an authenticated request to a realtime session. JSON
// sessions exchange text messages, binary codecs binary ones.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	if g.cfg.Issuer == nil {
		http.Error(w, "realtime auth disabled", http.StatusServiceUnavailable)
		return
	}
	claims, err := g.cfg.Issuer.Verify(bearer(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	ws.SetReadLimit(maxFrame)

	msgType := websocket.TextMessage
	if g.framer.Binary() {
		msgType = websocket.BinaryMessage
	}
	g.Open(wsConn{c: ws, msgType: msgType}, &Identity{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	})
}
