// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pubtrivia/tally/internal/adapters/repository"
	"github.com/pubtrivia/tally/pkg/logger"
)

const (
	watchWriteTimeout = 10 * time.Second
	watchPingInterval = 30 * time.Second
)

// WatchDependencies defines the interface for change-feed subscriptions.
type WatchDependencies interface {
	Watch(ctx context.Context, collection string) (*repository.Subscription, error)
}

// WatchHandler streams collection snapshots over a websocket.
type WatchHandler struct {
	deps     WatchDependencies
	upgrader websocket.Upgrader
}

// NewWatchHandler creates a new watch handler.
func NewWatchHandler(deps WatchDependencies) *WatchHandler {
	return &WatchHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Same-origin policy is the reverse proxy's job here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandleWatch handles GET /watch?collection=NAME requests. Every commit
// touching the collection pushes a fresh snapshot to the socket until the
// client disconnects.
func (h *WatchHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	collection := r.URL.Query().Get("collection")

	sub, err := h.deps.Watch(r.Context(), collection)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownCollection) {
			writeError(w, http.StatusBadRequest, "unknown_collection", err)
			return
		}
		writeServiceError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Cancel()
		return
	}

	// The request context dies when this handler returns, so the pump runs
	// inline for the life of the socket.
	h.stream(r.Context(), conn, sub)
}

// stream pumps snapshots until the subscription or the socket dies. The
// read loop only exists to detect the client going away.
func (h *WatchHandler) stream(ctx context.Context, conn *websocket.Conn, sub *repository.Subscription) {
	log := logger.Named("watch")
	defer func() {
		sub.Cancel()
		_ = conn.Close()
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(watchPingInterval)
	defer ping.Stop()

	for {
		select {
		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				log.Debug(ctx, "watch write failed", logger.Error(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
