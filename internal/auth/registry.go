// Package auth implements user authentication against the on-disk
// user registry: bcrypt password verification and
// role resolution, with an optional bounded TTL cache in front of the
// registry file.
package auth

import (
	"encoding/json"
	"errors"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// Role is a user's permission class.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleMiner Role = "miner"
)

// User is one entry from the user registry.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"hashed_password"`
	Role         Role   `json:"role"`
	Status       string `json:"status"`
}

var (
	ErrUnauthenticated = errors.New("auth: invalid username or password")
)

// Registry reads the user registry file on demand — the file is
// always the source of truth; CachedRegistry (in cache.go) is the only
// permitted layer of staleness, and it is opt-in.
type Registry struct {
	path string
}

// NewRegistry returns a Registry reading users from path.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

func (r *Registry) load() ([]User, error) {
	buf, err := os.ReadFile(r.path)
	if err != nil {
		return nil, err
	}
	var users []User
	if err := json.Unmarshal(buf, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// find reads the registry and returns the user named username, if any.
func (r *Registry) find(username string) (User, bool, error) {
	users, err := r.load()
	if err != nil {
		return User{}, false, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, true, nil
		}
	}
	return User{}, false, nil
}

// Authenticate loads the registry, finds username, and verifies
// password against the stored bcrypt hash. It returns
// ErrUnauthenticated for both "no such user" and "wrong password" so
// the wire response never discloses which one happened.
func (r *Registry) Authenticate(username, password string) (User, error) {
	u, ok, err := r.find(username)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, ErrUnauthenticated
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrUnauthenticated
	}
	return u, nil
}

// HashPassword bcrypt-hashes a plaintext password for inclusion in the
// registry file, used by the dchainuser CLI.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(h), err
}
