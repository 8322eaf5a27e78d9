// Package app is the demo application: a small users API whose services,
// controllers and middleware are all built by the container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when no user matches an id.
	ErrUserNotFound = errors.New("user not found")

	// ErrRepositoryClosed is returned by a repository after Close.
	ErrRepositoryClosed = errors.New("user repository closed")
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
}

// ── UserRepository ────────────────────────────────────────────────────────────

// UserRepository is an in-memory store keyed by the database URL it was
// configured with.
type UserRepository struct {
	dsn   string
	mu    sync.RWMutex
	users map[string]User
}

func NewUserRepository(dsn string) *UserRepository {
	return &UserRepository{dsn: dsn, users: make(map[string]User)}
}

// SeedUsers stores the demo users. It is registered as an extender of
// *UserRepository, so every new repository starts seeded.
func SeedUsers(r *UserRepository) (*UserRepository, error) {
	for _, u := range []User{
		{Name: "Alice", Email: "alice@example.com"},
		{Name: "Bob", Email: "bob@example.com"},
	} {
		if _, err := r.Save(u); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *UserRepository) DSN() string { return r.dsn }

// Save stores u, assigning an id when it has none.
func (r *UserRepository) Save(u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.users == nil {
		return User{}, ErrRepositoryClosed
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *UserRepository) Find(id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return u, nil
}

// All returns every user ordered by name.
func (r *UserRepository) All() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Name implements HealthChecker.
func (r *UserRepository) Name() string { return "users" }

// Check implements HealthChecker.
func (r *UserRepository) Check() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.users == nil {
		return ErrRepositoryClosed
	}
	return nil
}

// Close releases the store. The container calls it on shutdown.
func (r *UserRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = nil
	return nil
}

// ── AuditTrail ────────────────────────────────────────────────────────────────

// AuditTrail records actions for one owner. It is injected Local, so every
// consumer gets its own trail.
type AuditTrail struct {
	mu      sync.Mutex
	entries []string
}

func (a *AuditTrail) Record(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, fmt.Sprintf(format, args...))
}

func (a *AuditTrail) Entries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.entries...)
}

// ── UserService ───────────────────────────────────────────────────────────────

type UserService struct {
	repo  *UserRepository
	audit *AuditTrail
}

func (s *UserService) List() []User { return s.repo.All() }

func (s *UserService) Get(id string) (User, error) { return s.repo.Find(id) }

func (s *UserService) Create(u User) (User, error) {
	u.ID = ""
	created, err := s.repo.Save(u)
	if err != nil {
		return User{}, err
	}
	s.audit.Record("created user %s", created.ID)
	return created, nil
}

func (s *UserService) Audit() *AuditTrail { return s.audit }

// ── GeoIP (deferred) ──────────────────────────────────────────────────────────

// GeoDB maps network prefixes to country codes. Loading it is slow, so it is
// registered as a deferred provider and is nil until ready.
type GeoDB struct {
	networks map[string]string
}

// LoadGeoDB simulates downloading the database.
func LoadGeoDB(delay time.Duration) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		time.Sleep(delay)
		return &GeoDB{networks: map[string]string{
			"127.0.0.0/8": "LOCAL",
			"10.0.0.0/8":  "PRIVATE",
			"1.1.1.0/24":  "AU",
		}}, nil
	}
}

// Country returns the country of ip, or "??" when no network matches.
func (g *GeoDB) Country(ip string) string {
	host, _, err := net.SplitHostPort(ip)
	if err != nil {
		host = ip
	}
	addr := net.ParseIP(strings.TrimSpace(host))
	if addr == nil {
		return "??"
	}
	for cidr, country := range g.networks {
		if _, network, err := net.ParseCIDR(cidr); err == nil && network.Contains(addr) {
			return country
		}
	}
	return "??"
}

// GeoLookup returns the GeoDB if it has finished loading.
type GeoLookup func() (*GeoDB, bool)

// GeoStatus reports whether the GeoIP database has loaded.
type GeoStatus struct {
	lookup GeoLookup
}

// Name implements HealthChecker.
func (g *GeoStatus) Name() string { return "geoip" }

// Check implements HealthChecker.
func (g *GeoStatus) Check() error {
	if g.lookup == nil {
		return errors.New("geoip lookup is not configured")
	}
	if _, ok := g.lookup(); !ok {
		return errors.New("geoip database is still loading")
	}
	return nil
}

// ── Health ────────────────────────────────────────────────────────────────────

// HealthChecker is implemented by every type tagged "health".
type HealthChecker interface {
	Name() string
	Check() error
}
