package api_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/devink/campusconnect/internal/models"
	"github.com/gorilla/websocket"
)

func TestEvents(t *testing.T) {
	env := setup(t)
	auth := signupUser(t, env, "anna@example.com")

	resp := env.do(t, http.MethodGet, "/events", auth.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	if out := decode[models.FeedResponse](t, resp); out.Loading || len(out.Events) != 0 {
		t.Errorf("expected empty loaded feed, got %+v", out)
	}

	resp = env.do(t, http.MethodPost, "/events", auth.Token, models.CreateEventRequest{Title: "   "})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, http.MethodPost, "/events", auth.Token, models.CreateEventRequest{Title: "Хакатон"})
	expectStatus(t, resp, http.StatusCreated)
	created := decode[models.EventCreatedResponse](t, resp)

	resp = env.do(t, http.MethodGet, "/events", auth.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	out := decode[models.FeedResponse](t, resp)
	if len(out.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(out.Events))
	}
	ev := out.Events[0]
	if ev.ID != created.ID || ev.Title != "Хакатон" || ev.Location != "НИУ ВШЭ" || ev.OwnerID != auth.UID {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestEventsRequireSession(t *testing.T) {
	env := setup(t)
	resp := env.do(t, http.MethodPost, "/events", "", models.CreateEventRequest{Title: "x"})
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestEventStream(t *testing.T) {
	env := setup(t)
	auth := signupUser(t, env, "anna@example.com")

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/events/stream?access_token=" + auth.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first models.FeedResponse
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if len(first.Events) != 0 {
		t.Errorf("expected empty initial snapshot, got %d events", len(first.Events))
	}

	resp := env.do(t, http.MethodPost, "/events", auth.Token, models.CreateEventRequest{Title: "Лекция"})
	expectStatus(t, resp, http.StatusCreated)

	var next models.FeedResponse
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(next.Events) != 1 || next.Events[0].Title != "Лекция" {
		t.Errorf("unexpected update %+v", next.Events)
	}
}

func TestEventStreamRejectsAnonymous(t *testing.T) {
	env := setup(t)
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/events/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 response, got %+v", resp)
	}
}
