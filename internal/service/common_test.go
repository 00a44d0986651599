package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"eventstage/internal/cache"
	"eventstage/internal/model"
	"eventstage/internal/redeem"
	"eventstage/internal/repository"
	"eventstage/internal/repository/memory"
	"eventstage/internal/service"
	apperrors "eventstage/pkg/app_errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	organizerID = "organizer"
	adminID     = "group-admin"
	groupID     = "group-1"
)

type recordingSink struct {
	mu    sync.Mutex
	items []model.Notification
}

func (s *recordingSink) Notify(_ context.Context, n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, n)
}

func (s *recordingSink) ofType(t model.NotificationType) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Notification, 0)
	for _, n := range s.items {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

type fixture struct {
	store     *memory.Store
	sink      *recordingSink
	codec     *redeem.Codec
	tickets   service.TicketService
	events    service.EventService
	purchases service.PurchaseService
	posts     service.StagePostService
}

// newFixture wires every service onto one in-memory store. gate may be nil.
func newFixture(t *testing.T, gate cache.TicketInventoryGate) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.PutGroup(&model.Group{
		ID:   groupID,
		Name: "Hikers",
		Members: []model.GroupMember{
			{UserID: adminID, Role: model.GroupRoleAdmin},
			{UserID: "member", Role: model.GroupRoleMember},
		},
	})

	codec, err := redeem.NewCodec(make([]byte, redeem.KeySize))
	require.NoError(t, err)

	f := &fixture{store: store, sink: &recordingSink{}, codec: codec}
	f.tickets = service.NewTicketService(store.Events(), store.Tiers(), gate)
	f.events = service.NewEventService(store.Events(), store.Tiers(), store.Purchases(), store.Users(), store.Groups(), f.tickets, f.sink)
	f.purchases = service.NewPurchaseService(store.Events(), store.Tiers(), store.Purchases(), store.Ledger(), store.Users(), gate, codec, f.sink)
	f.posts = service.NewStagePostService(store.Events())
	return f
}

// purchaseServiceWith rebuilds the purchase service around substitute collaborators.
func (f *fixture) purchaseServiceWith(ledger repository.TicketLedger, users repository.UserRepository, gate cache.TicketInventoryGate) service.PurchaseService {
	if ledger == nil {
		ledger = f.store.Ledger()
	}
	if users == nil {
		users = f.store.Users()
	}
	return service.NewPurchaseService(f.store.Events(), f.store.Tiers(), f.store.Purchases(), ledger, users, gate, f.codec, f.sink)
}

func live() *bool {
	v := true
	return &v
}

func tierSpec(title string, quantity int, price string) model.TierSpec {
	return model.TierSpec{
		Title:    title,
		Price:    decimal.RequireFromString(price),
		Currency: "TWD",
		Quantity: quantity,
	}
}

func createEvent(t *testing.T, f *fixture, tiers ...model.TierSpec) *model.EventView {
	t.Helper()
	view, err := f.events.CreateEvent(context.Background(), model.CreateEventParams{
		OrganizerID: organizerID,
		Title:       "Rooftop Concert",
		IsLive:      live(),
		Locations: []model.LocationOption{
			{Coordinates: []float64{25.03, 121.56}, Label: "Taipei"},
			{Coordinates: []float64{24.15, 120.67}, Label: "Taichung"},
		},
		Dates: []model.DateGroup{
			{{StartDate: time.Date(2026, 12, 1, 19, 0, 0, 0, time.UTC)}, {StartDate: time.Date(2026, 12, 2, 19, 0, 0, 0, time.UTC)}},
		},
		Tiers: tiers,
	})
	require.NoError(t, err)
	return view
}

func tierByTitle(t *testing.T, view *model.EventView, title string) *model.TicketTier {
	t.Helper()
	for _, tier := range view.Tiers {
		if tier.Title == title {
			return tier
		}
	}
	t.Fatalf("tier %q not found", title)
	return nil
}

// fakeGate is an in-process stand-in for the Redis gate.
type fakeGate struct {
	mu         sync.Mutex
	remaining  map[string]int
	acquireErr error
	released   int
	seeded     int
}

func newFakeGate() *fakeGate {
	return &fakeGate{remaining: make(map[string]int)}
}

func (g *fakeGate) Seed(_ context.Context, tierID string, remaining int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seeded++
	if _, ok := g.remaining[tierID]; !ok {
		g.remaining[tierID] = remaining
	}
	return nil
}

func (g *fakeGate) Set(_ context.Context, tierID string, remaining int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remaining[tierID] = remaining
	return nil
}

func (g *fakeGate) Acquire(_ context.Context, tierID string, quantity int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.acquireErr != nil {
		return g.acquireErr
	}
	r, ok := g.remaining[tierID]
	if !ok {
		return apperrors.ErrGateMiss
	}
	if r < quantity {
		return apperrors.ErrSoldOut
	}
	g.remaining[tierID] = r - quantity
	return nil
}

func (g *fakeGate) Release(_ context.Context, tierID string, quantity int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.released += quantity
	if _, ok := g.remaining[tierID]; ok {
		g.remaining[tierID] += quantity
	}
	return nil
}

func (g *fakeGate) Remaining(_ context.Context, tierID string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.remaining[tierID]
	if !ok {
		return -1, apperrors.ErrGateMiss
	}
	return r, nil
}

func (g *fakeGate) Drop(_ context.Context, tierID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.remaining, tierID)
	return nil
}

func (g *fakeGate) get(tierID string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.remaining[tierID]
	return r, ok
}
