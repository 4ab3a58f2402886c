package api

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/devink/campusconnect/internal/feed"
	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/models"
	"github.com/devink/campusconnect/internal/session"
	"github.com/devink/campusconnect/internal/utils"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const streamWriteTimeout = 10 * time.Second

func FeedHandler(f *feed.Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, models.FeedResponse{Loading: f.Loading(), Events: f.Events()})
	}
}

func CreateEventHandler(f *feed.Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cur, _ := session.FromContext(r.Context())

		var req models.CreateEventRequest
		if !decodeJSON(w, r, &req, "Create event") {
			return
		}

		id, err := f.CreateEvent(r.Context(), cur.Me.UID, req.Title)
		if errors.Is(err, feed.ErrEmptyTitle) {
			respondJSON(w, http.StatusBadRequest, errorBody("Title is required"))
			return
		}
		if err != nil {
			logging.ErrorLog("Create event failed uid=[%s]: %v", utils.HashID(cur.Me.UID), err)
			respondJSON(w, http.StatusInternalServerError, errorBody("Could not create event"))
			return
		}
		respondJSON(w, http.StatusCreated, models.EventCreatedResponse{ID: id})
	}
}

// EventStreamHandler upgrades to a websocket and pushes the full feed on
// connect and after every change.
func EventStreamHandler(f *feed.Feed, hub *feed.Hub, allowedOrigins []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.WarnLog("Event stream upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		id := uuid.NewString()
		updates := hub.Register(id)
		defer hub.Delete(id)

		// The client only ever closes; reading detects it.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		send := func(events []models.Event) bool {
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(models.FeedResponse{Loading: f.Loading(), Events: events}); err != nil {
				logging.DebugLog("Event stream [%s] write failed: %v", utils.HashID(id), err)
				return false
			}
			return true
		}

		if !send(f.Events()) {
			return
		}
		for {
			select {
			case events, ok := <-updates:
				if !ok || !send(events) {
					return
				}
			case <-closed:
				return
			case <-r.Context().Done():
				return
			}
		}
	}
}
