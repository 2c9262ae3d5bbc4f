// Package client is the Go client for the expenso API. It keeps the
// short lived access token in memory, sends it on every request, and
// transparently refreshes it once when the server answers 401.
package client

import "sync"

// TokenCache is the in-memory home of the access token. The token is
// never written to disk, a process restart starts empty and relies on
// the refresh cookie to reauthenticate.
type TokenCache struct {
	mu    sync.Mutex
	token string
}

// Get returns the cached access token, empty when nothing is cached.
func (c *TokenCache) Get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Set replaces the cached access token.
func (c *TokenCache) Set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Clear drops the cached access token.
func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}
