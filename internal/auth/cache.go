package auth

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/bcrypt"
)

// entry pairs a resolved user record with the time it was cached.
type entry struct {
	user     User
	cachedAt time.Time
}

// CachedRegistry wraps a Registry with a bounded, TTL-expiring cache
// of resolved users. The registry file remains the source of truth:
// the bcrypt comparison itself always runs against whatever user
// record is returned, so caching only ever saves the registry file
// read, never the password check.
type CachedRegistry struct {
	reg *Registry
	ttl time.Duration
	lru *lru.Cache
	now func() time.Time
}

// NewCachedRegistry wraps reg with an LRU cache of at most size
// entries, each valid for ttl.
func NewCachedRegistry(reg *Registry, size int, ttl time.Duration) (*CachedRegistry, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedRegistry{reg: reg, ttl: ttl, lru: c, now: time.Now}, nil
}

func (c *CachedRegistry) lookup(username string) (User, bool) {
	v, ok := c.lru.Get(username)
	if !ok {
		return User{}, false
	}
	e := v.(entry)
	if c.now().Sub(e.cachedAt) > c.ttl {
		c.lru.Remove(username)
		return User{}, false
	}
	return e.user, true
}

// Authenticate resolves username either from the cache (if fresh) or
// by re-reading the registry file, then always runs bcrypt comparison
// against the resolved record's password hash.
func (c *CachedRegistry) Authenticate(username, password string) (User, error) {
	if u, hit := c.lookup(username); hit {
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return User{}, ErrUnauthenticated
		}
		return u, nil
	}
	u, err := c.reg.Authenticate(username, password)
	if err != nil {
		return User{}, err
	}
	c.lru.Add(username, entry{user: u, cachedAt: c.now()})
	return u, nil
}
