package lb

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
)

// StateStore is the subset of internal/statestore.Store sticky sessions need:
// a cluster-shared ticket -> server-ID mapping so that reselection survives a
// process restart or routes identically across cluster members (spec.md §5,
// §4.4 "Sticky sessions").
type StateStore interface {
	GetSticky(cookieName, ticket string) (serverID string, ok bool)
	PutSticky(cookieName, ticket, serverID string)
}

// Sticky wraps an underlying Balancer with cookie-based session affinity. A
// request carrying a recognized ticket is pinned to its previously chosen
// server as long as that server stays eligible; otherwise the underlying
// policy picks a fresh server and a new ticket is minted.
type Sticky struct {
	underlying Balancer
	cfg        model.StickyConfig
	store      StateStore
	local      *xsync.Map[string, string]
	servers    map[string]model.Server
}

func NewSticky(underlying Balancer, cfg model.StickyConfig, store StateStore, servers []model.Server) *Sticky {
	byID := make(map[string]model.Server, len(servers))
	for _, s := range servers {
		byID[s.ID] = s
	}
	return &Sticky{
		underlying: underlying,
		cfg:        cfg,
		store:      store,
		local:      xsync.NewMap[string, string](),
		servers:    byID,
	}
}

// Pick resolves the server for req, consulting the sticky ticket in
// req.Cookie(cfg.CookieName) before falling back to the underlying policy.
// It returns the chosen server and the ticket that should be set on the
// response (non-empty only when a new ticket was minted).
func (s *Sticky) Pick(req *http.Request, hv HealthView) (server *model.Server, newTicket string) {
	if c, err := req.Cookie(s.cfg.CookieName); err == nil && c.Value != "" {
		if srv, ok := s.resolve(c.Value, hv); ok {
			return srv, ""
		}
	}
	picked := s.underlying.Next(hv)
	if picked == nil {
		return nil, ""
	}
	ticket := uuid.NewString()
	s.remember(ticket, picked.ID)
	return picked, ticket
}

func (s *Sticky) resolve(ticket string, hv HealthView) (*model.Server, bool) {
	id, ok := s.local.Load(ticket)
	if !ok && s.store != nil {
		id, ok = s.store.GetSticky(s.cfg.CookieName, ticket)
	}
	if !ok {
		return nil, false
	}
	srv, known := s.servers[id]
	if !known || (hv != nil && !hv.Eligible(id)) {
		return nil, false
	}
	out := srv
	return &out, true
}

func (s *Sticky) remember(ticket, serverID string) {
	s.local.Store(ticket, serverID)
	if s.store != nil {
		s.store.PutSticky(s.cfg.CookieName, ticket, serverID)
	}
}

// Next satisfies Balancer for callers that don't need cookie plumbing
// (e.g. internal/l4tcp's dispatch); it delegates straight to the
// underlying policy without reading or minting a ticket.
func (s *Sticky) Next(hv HealthView) *model.Server {
	return s.underlying.Next(hv)
}
