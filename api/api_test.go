package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devink/campusconnect/api"
	"github.com/devink/campusconnect/internal/backend"
	"github.com/devink/campusconnect/internal/directory"
	"github.com/devink/campusconnect/internal/feed"
	"github.com/devink/campusconnect/internal/login"
	"github.com/devink/campusconnect/internal/metrics"
	"github.com/devink/campusconnect/internal/session"
	"github.com/devink/campusconnect/internal/signup"
	"golang.org/x/crypto/bcrypt"
)

type staticCities struct{}

func (staticCities) Cities(context.Context) ([]string, directory.Source) {
	return directory.FallbackCities, directory.SourceFallback
}

type testEnv struct {
	srv    *httptest.Server
	client *backend.Client
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	client, err := backend.New(backend.Options{
		DBPath:     ":memory:",
		JWTSecret:  "test-secret",
		JWTIssuer:  "campusconnect-test",
		JWTTTL:     time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}

	m := metrics.New()
	universities := directory.DefaultUniversities()
	forms := signup.NewRegistry(signup.Deps{
		Accounts:     client.Identity,
		Profiles:     client.Docs,
		Cities:       staticCities{},
		Universities: universities,
		OnResult:     m.Signup,
	}, time.Minute, func(fn func(ctx context.Context)) error {
		fn(context.Background())
		return nil
	})

	hub := feed.NewHub(m.FeedWatchers)
	f := feed.New(client.Docs, feed.ReplaceSnapshot, feed.WithHub(hub))
	f.Start()

	router := api.NewRouter(api.Deps{
		Forms:        forms,
		Login:        login.New(client.Identity, login.WithRedirectDelay(0), login.WithResultHook(m.Login)),
		Gate:         session.NewGate(client.Docs),
		Identity:     client.Identity,
		Tokens:       client.Tokens,
		Feed:         f,
		Hub:          hub,
		Cities:       staticCities{},
		Universities: universities,
		Metrics:      m,
		MaxBodyBytes: 1 << 20,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		f.Stop()
		forms.Close()
		client.Close()
	})
	return &testEnv{srv: srv, client: client}
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, body)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("response not valid JSON: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected %d, got %d", want, resp.StatusCode)
	}
}
