package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/stgrky/d2d-sales-calculator/internal/discount"
	"github.com/stgrky/d2d-sales-calculator/internal/partner"
	"github.com/stgrky/d2d-sales-calculator/internal/rates"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// Partners resolves the account a session is opened under.
type Partners interface {
	Lookup(ctx context.Context, code string) (partner.Partner, error)
	HQ(ctx context.Context) (partner.Partner, error)
}

// Registry holds the open sessions of the running server.
type Registry struct {
	partners Partners
	campaign *discount.Campaign

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry. campaign may be nil when no discount
// campaign is configured.
func NewRegistry(partners Partners, campaign *discount.Campaign) *Registry {
	return &Registry{
		partners: partners,
		campaign: campaign,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session. An empty partner code opens the main calculator with
// base rates; otherwise the partner must exist, be active and be allowed to
// create quotes, and its pricing overrides apply.
func (r *Registry) Open(ctx context.Context, partnerCode string) (*Session, error) {
	var (
		owner Owner
		rt    = rates.Default()
	)

	code := strings.TrimSpace(partnerCode)
	if code == "" {
		hq, err := r.partners.HQ(ctx)
		switch {
		case err == nil:
			owner = ownerOf(hq)
			rt = hq.Rates()
		case errors.Is(err, partner.ErrNotFound):
		default:
			return nil, fmt.Errorf("load main account: %w", err)
		}
	} else {
		p, err := r.partners.Lookup(ctx, code)
		if err != nil {
			return nil, err
		}
		owner = ownerOf(p)
		rt = p.Rates()
	}

	s := New(uuid.NewString(), owner, rt, r.campaign)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s, nil
}

// Get returns an open session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close forgets a session. It reports whether the session existed.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
