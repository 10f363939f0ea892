// Package session resolves chat identities to authenticated Vikunja
// clients. Credentials live in credstore; this layer owns token caching,
// re-authentication on expiry and the per-identity locking that keeps
// concurrent messages from racing each other through login.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/harrisonrobin/vikabot/pkg/credstore"
	"github.com/harrisonrobin/vikabot/pkg/vikunja"
)

// ErrRequiresLogin means no usable credential is on file for the chat:
// the user must run /login before anything else.
var ErrRequiresLogin = errors.New("login required")

// AuthError is a rejected username/password pair. It is distinct from
// ErrRequiresLogin so the bot can say "wrong password" rather than
// "please log in".
type AuthError struct {
	cause error
}

func (e *AuthError) Error() string { return fmt.Sprintf("authentication failed: %v", e.cause) }
func (e *AuthError) Unwrap() error { return e.cause }

// Vikunja JWTs default to a long lifetime but the login response does
// not say how long; assume a day and re-authenticate early.
const tokenLifetime = 24 * time.Hour

// Client is an authenticated handle: the shared API client plus the
// bearer token for one chat. It is cheap and rebuilt on demand; only
// the backing credential persists.
type Client struct {
	API   *vikunja.Client
	Token string
}

// Registry is the process-wide session state. One lock per chat
// identity serializes authentication and credential mutation for that
// chat without stalling unrelated users.
type Registry struct {
	api   *vikunja.Client
	store *credstore.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistry(api *vikunja.Client, store *credstore.Store) *Registry {
	return &Registry{
		api:   api,
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

func (r *Registry) lockFor(chatID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[chatID] = lock
	}
	return lock
}

// GetClient returns an authenticated client for the chat. A cached
// unexpired token is reused without a network round trip; otherwise the
// stored username/password re-authenticate synchronously. Credentials
// the API rejects are deleted so a stale password is never retried
// forever, and the caller gets ErrRequiresLogin.
func (r *Registry) GetClient(ctx context.Context, chatID string) (*Client, error) {
	lock := r.lockFor(chatID)
	lock.Lock()
	defer lock.Unlock()

	cred, ok := r.store.Get(chatID)
	if !ok {
		return nil, ErrRequiresLogin
	}

	if cred.Token != nil && cred.Token.Valid() {
		return &Client{API: r.api, Token: cred.Token.AccessToken}, nil
	}

	token, err := r.api.Authenticate(ctx, cred.Username, cred.Password)
	if err != nil {
		if errors.Is(err, vikunja.ErrUnauthorized) {
			if delErr := r.store.Delete(chatID); delErr != nil {
				return nil, fmt.Errorf("failed to drop rejected credential: %w", delErr)
			}
			return nil, ErrRequiresLogin
		}
		return nil, err
	}

	cred.Token = &oauth2.Token{
		AccessToken: token,
		Expiry:      time.Now().Add(tokenLifetime),
	}
	if err := r.store.Save(chatID, cred); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	return &Client{API: r.api, Token: token}, nil
}

// Login authenticates the given username/password and, on success,
// stores the credential with its fresh token. A failed attempt leaves
// any previously stored credential untouched.
func (r *Registry) Login(ctx context.Context, chatID, username, password string) error {
	lock := r.lockFor(chatID)
	lock.Lock()
	defer lock.Unlock()

	token, err := r.api.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, vikunja.ErrUnauthorized) {
			return &AuthError{cause: err}
		}
		return err
	}

	cred := credstore.Credential{
		Username: username,
		Password: password,
		Token: &oauth2.Token{
			AccessToken: token,
			Expiry:      time.Now().Add(tokenLifetime),
		},
	}
	return r.store.Save(chatID, cred)
}

// Logout deletes the chat's credential and with it any cached token.
// Logging out while not logged in is a no-op.
func (r *Registry) Logout(chatID string) error {
	lock := r.lockFor(chatID)
	lock.Lock()
	defer lock.Unlock()
	return r.store.Delete(chatID)
}

// InvalidateToken drops a cached token that the API rejected mid-use,
// forcing the next GetClient to re-authenticate with the stored
// password.
func (r *Registry) InvalidateToken(chatID string) {
	lock := r.lockFor(chatID)
	lock.Lock()
	defer lock.Unlock()

	cred, ok := r.store.Get(chatID)
	if !ok || cred.Token == nil {
		return
	}
	cred.Token = nil
	if err := r.store.Save(chatID, cred); err != nil {
		// Next GetClient will still re-authenticate; losing the
		// persisted invalidation is harmless.
		return
	}
}

// Username reports the stored username for a chat, for status replies.
func (r *Registry) Username(chatID string) (string, bool) {
	cred, ok := r.store.Get(chatID)
	if !ok {
		return "", false
	}
	return cred.Username, true
}
