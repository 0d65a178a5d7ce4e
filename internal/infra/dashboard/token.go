package dashboard

import (
	"sync"
	"time"
)

// DefaultTokenTTL is how long a fetched token is trusted without asking upstream
const DefaultTokenTTL = 5 * time.Second

// State is the cache's position in the login/token lifecycle
type State string

const (
	StateEmpty         State = "empty"         // no session, no token
	StateAuthenticated State = "authenticated" // session known, token absent or stale
	StateTokenValid    State = "token_valid"   // token younger than the TTL
)

// TokenCache holds one session and one short-lived token
type TokenCache struct {
	mu         sync.Mutex
	token      string
	session    string
	acquiredAt time.Time

	ttl time.Duration
	now func() time.Time
}

// NewTokenCache creates an empty cache; a nil now uses time.Now
func NewTokenCache(ttl time.Duration, now func() time.Time) *TokenCache {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TokenCache{ttl: ttl, now: now}
}

// Token returns the cached token when it is still fresh
func (c *TokenCache) Token() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.freshLocked() {
		return c.token, true
	}
	return "", false
}

// Session returns the cached session, or "" when none
func (c *TokenCache) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SetSession stores a new session; any token from an older session is dropped
func (c *TokenCache) SetSession(session string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if session != c.session {
		c.token = ""
		c.acquiredAt = time.Time{}
	}
	c.session = session
}

// SetToken stores a token obtained with session and starts its TTL
func (c *TokenCache) SetToken(token, session string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.session = session
	c.acquiredAt = c.now()
}

// InvalidateToken marks the token stale while keeping the session
func (c *TokenCache) InvalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquiredAt = time.Time{}
}

// DropSession forgets session and its token, unless a newer session
// has already replaced it.
func (c *TokenCache) DropSession(session string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != session {
		return
	}
	c.session = ""
	c.token = ""
	c.acquiredAt = time.Time{}
}

// State reports the current lifecycle state
func (c *TokenCache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.freshLocked():
		return StateTokenValid
	case c.session != "":
		return StateAuthenticated
	default:
		return StateEmpty
	}
}

func (c *TokenCache) freshLocked() bool {
	return c.token != "" && !c.acquiredAt.IsZero() && c.now().Sub(c.acquiredAt) < c.ttl
}
