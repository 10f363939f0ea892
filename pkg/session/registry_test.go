package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/harrisonrobin/vikabot/pkg/credstore"
	"github.com/harrisonrobin/vikabot/pkg/vikunja"
)

// fakeAuth is a login-only Vikunja stand-in that counts authentication
// round trips and hands out sequential tokens.
type fakeAuth struct {
	logins   int
	password string
}

func (f *fakeAuth) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			http.NotFound(w, r)
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != f.password {
			w.WriteHeader(http.StatusPreconditionFailed)
			json.NewEncoder(w).Encode(map[string]string{"message": "wrong username or password"})
			return
		}
		f.logins++
		json.NewEncoder(w).Encode(map[string]string{"token": fmt.Sprintf("tok-%d", f.logins)})
	}
}

func newTestRegistry(t *testing.T, handler http.Handler) (*Registry, *credstore.Store) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := credstore.Open(filepath.Join(t.TempDir(), "creds.json"))
	if err != nil {
		t.Fatalf("Open store failed: %v", err)
	}
	return NewRegistry(vikunja.NewClient(server.URL, time.Second), store), store
}

func TestLoginThenGetClientHitsTokenCache(t *testing.T) {
	auth := &fakeAuth{password: "hunter2"}
	registry, _ := newTestRegistry(t, auth.handler())
	ctx := context.Background()

	if err := registry.Login(ctx, "chat-1", "alice", "hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if auth.logins != 1 {
		t.Fatalf("Expected 1 login round trip, got %d", auth.logins)
	}

	client, err := registry.GetClient(ctx, "chat-1")
	if err != nil {
		t.Fatalf("GetClient failed: %v", err)
	}
	if client.Token != "tok-1" {
		t.Errorf("Expected cached token tok-1, got %q", client.Token)
	}
	if auth.logins != 1 {
		t.Errorf("GetClient should not re-authenticate with a fresh token, got %d logins", auth.logins)
	}
}

func TestGetClientWithoutCredential(t *testing.T) {
	registry, _ := newTestRegistry(t, (&fakeAuth{}).handler())

	_, err := registry.GetClient(context.Background(), "stranger")
	if !errors.Is(err, ErrRequiresLogin) {
		t.Fatalf("Expected ErrRequiresLogin, got %v", err)
	}
}

func TestGetClientRefreshesExpiredToken(t *testing.T) {
	auth := &fakeAuth{password: "hunter2"}
	registry, store := newTestRegistry(t, auth.handler())

	expired := &oauth2.Token{AccessToken: "stale", Expiry: time.Now().Add(-time.Hour)}
	if err := store.Save("chat-1", credstore.Credential{Username: "alice", Password: "hunter2", Token: expired}); err != nil {
		t.Fatalf("Seed save failed: %v", err)
	}

	client, err := registry.GetClient(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("GetClient failed: %v", err)
	}
	if client.Token != "tok-1" {
		t.Errorf("Expected refreshed token, got %q", client.Token)
	}
	if auth.logins != 1 {
		t.Errorf("Expected exactly one re-authentication, got %d", auth.logins)
	}

	cred, _ := store.Get("chat-1")
	if cred.Token == nil || cred.Token.AccessToken != "tok-1" {
		t.Errorf("Expected refreshed token persisted, got %+v", cred.Token)
	}
}

func TestStaleStoredPasswordDeletesCredential(t *testing.T) {
	auth := &fakeAuth{password: "new-password"}
	registry, store := newTestRegistry(t, auth.handler())

	if err := store.Save("chat-1", credstore.Credential{Username: "alice", Password: "old-password"}); err != nil {
		t.Fatalf("Seed save failed: %v", err)
	}

	_, err := registry.GetClient(context.Background(), "chat-1")
	if !errors.Is(err, ErrRequiresLogin) {
		t.Fatalf("Expected ErrRequiresLogin after rejected password, got %v", err)
	}
	if _, ok := store.Get("chat-1"); ok {
		t.Error("Expected rejected credential to be deleted, it is still stored")
	}
}

func TestLoginFailureLeavesStoreUntouched(t *testing.T) {
	auth := &fakeAuth{password: "hunter2"}
	registry, store := newTestRegistry(t, auth.handler())
	ctx := context.Background()

	if err := registry.Login(ctx, "chat-1", "alice", "hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	err := registry.Login(ctx, "chat-1", "alice", "typo")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected *AuthError, got %v", err)
	}

	cred, ok := store.Get("chat-1")
	if !ok || cred.Password != "hunter2" {
		t.Errorf("Failed login must not mutate stored credential, got %+v ok=%v", cred, ok)
	}
}

func TestLogout(t *testing.T) {
	auth := &fakeAuth{password: "hunter2"}
	registry, store := newTestRegistry(t, auth.handler())
	ctx := context.Background()

	if err := registry.Login(ctx, "chat-1", "alice", "hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := registry.Logout("chat-1"); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, ok := store.Get("chat-1"); ok {
		t.Error("Expected credential removed on logout")
	}
	if _, err := registry.GetClient(ctx, "chat-1"); !errors.Is(err, ErrRequiresLogin) {
		t.Errorf("Expected ErrRequiresLogin after logout, got %v", err)
	}
}

func TestUnreachableServiceDoesNotDeleteCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	store, err := credstore.Open(filepath.Join(t.TempDir(), "creds.json"))
	if err != nil {
		t.Fatalf("Open store failed: %v", err)
	}
	registry := NewRegistry(vikunja.NewClient(server.URL, time.Second), store)

	if err := store.Save("chat-1", credstore.Credential{Username: "alice", Password: "hunter2"}); err != nil {
		t.Fatalf("Seed save failed: %v", err)
	}

	_, err = registry.GetClient(context.Background(), "chat-1")
	if !errors.Is(err, vikunja.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
	if _, ok := store.Get("chat-1"); !ok {
		t.Error("Network failure must not delete the credential")
	}
}

func TestInvalidateTokenForcesReauth(t *testing.T) {
	auth := &fakeAuth{password: "hunter2"}
	registry, _ := newTestRegistry(t, auth.handler())
	ctx := context.Background()

	if err := registry.Login(ctx, "chat-1", "alice", "hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	registry.InvalidateToken("chat-1")

	client, err := registry.GetClient(ctx, "chat-1")
	if err != nil {
		t.Fatalf("GetClient failed: %v", err)
	}
	if client.Token != "tok-2" {
		t.Errorf("Expected a fresh token after invalidation, got %q", client.Token)
	}
	if auth.logins != 2 {
		t.Errorf("Expected 2 login round trips, got %d", auth.logins)
	}
}
