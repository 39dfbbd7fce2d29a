package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sakif/photoshare/internal/auth"
	"github.com/sakif/photoshare/internal/presence"
)

// Handler upgrades GET /ws. It must sit behind auth.RequireAuth.
type Handler struct {
	registry   *presence.Registry
	upgrader   websocket.Upgrader
	origins    []string
	sendBuffer int
	logger     *slog.Logger
}

// NewHandler returns a handler registering clients in registry. origins is
// the allowed Origin list ("*" allows any); sendBuffer is the per-connection
// event queue length.
func NewHandler(registry *presence.Registry, origins []string, sendBuffer int, logger *slog.Logger) *Handler {
	h := &Handler{
		registry:   registry,
		origins:    origins,
		sendBuffer: sendBuffer,
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := newClient(conn, h.registry, userID, h.sendBuffer, h.logger)
	client.Start()

	h.logger.Debug("websocket connected", slog.String("userID", userID))
}

// checkOrigin accepts requests without an Origin header (non-browser
// clients), same-host requests, and the configured origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range h.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}

	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}

	h.logger.Warn("websocket connection rejected from unauthorized origin",
		slog.String("origin", origin),
	)
	return false
}
