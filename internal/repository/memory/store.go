// Package memory keeps every repository in process. It backs the
// STORE_DRIVER=memory mode and the service tests. All repositories returned
// by one Store share a single mutex, which also makes tier reservation and
// purchase commit atomic.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"eventstage/internal/model"
	"eventstage/internal/repository"
	apperrors "eventstage/pkg/app_errors"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Store struct {
	mu        sync.Mutex
	events    map[string][]byte // bson documents, so reads never alias stored state
	tiers     map[string]*model.TicketTier
	purchases []*model.TicketPurchase
	users     map[string]*model.User
	groups    map[string]*model.Group
}

func NewStore() *Store {
	return &Store{
		events: make(map[string][]byte),
		tiers:  make(map[string]*model.TicketTier),
		users:  make(map[string]*model.User),
		groups: make(map[string]*model.Group),
	}
}

func (s *Store) Events() repository.EventRepository { return &eventRepo{s} }
func (s *Store) Tiers() repository.TicketTierRepository { return &tierRepo{s} }
func (s *Store) Purchases() repository.PurchaseRepository { return &purchaseRepo{s} }
func (s *Store) Ledger() repository.TicketLedger { return &ledger{s} }
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }
func (s *Store) Groups() repository.GroupRepository { return &groupRepo{s} }

// PutGroup seeds a group; group administration is outside this service.
func (s *Store) PutGroup(g *model.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	cp.Members = slices.Clone(g.Members)
	cp.EventIDs = slices.Clone(g.EventIDs)
	cp.EventStatuses = make(map[string]string, len(g.EventStatuses))
	for k, v := range g.EventStatuses {
		cp.EventStatuses[k] = v
	}
	s.groups[g.ID] = &cp
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// ---- events ----

type eventRepo struct{ s *Store }

func encodeEvent(e *model.Event) ([]byte, error) {
	doc, err := bson.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return doc, nil
}

func decodeEvent(doc []byte) (*model.Event, error) {
	var e model.Event
	if err := bson.Unmarshal(doc, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}

func (r *eventRepo) Create(_ context.Context, event *model.Event) error {
	doc, err := encodeEvent(event)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[event.ID]; ok {
		return fmt.Errorf("event %s already exists", event.ID)
	}
	r.s.events[event.ID] = doc
	return nil
}

func (r *eventRepo) FindByID(_ context.Context, id string) (*model.Event, error) {
	r.s.mu.Lock()
	doc, ok := r.s.events[id]
	r.s.mu.Unlock()
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	e, err := decodeEvent(doc)
	if err != nil {
		return nil, err
	}
	if e.IsDeleted {
		return nil, apperrors.ErrEventNotFound
	}
	return e, nil
}

func (r *eventRepo) FindByIDs(_ context.Context, ids []string) (map[string]*model.Event, error) {
	r.s.mu.Lock()
	docs := make(map[string][]byte, len(ids))
	for _, id := range ids {
		if doc, ok := r.s.events[id]; ok {
			docs[id] = doc
		}
	}
	r.s.mu.Unlock()

	result := make(map[string]*model.Event, len(docs))
	for id, doc := range docs {
		e, err := decodeEvent(doc)
		if err != nil {
			return nil, err
		}
		result[id] = e
	}
	return result, nil
}

// Update applies u to a generic copy of the stored document, so the
// in-process store follows the same field-level rules as Mongo.
func (r *eventRepo) Update(_ context.Context, id string, u *repository.EventUpdate) (*model.Event, error) {
	if err := u.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	raw, ok := r.s.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	dec := bson.NewDecoder(bson.NewDocumentReader(bytes.NewReader(raw)))
	dec.DefaultDocumentM()
	var doc bson.M
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", id, err)
	}
	if deleted, _ := doc["is_deleted"].(bool); deleted {
		return nil, apperrors.ErrEventNotFound
	}
	if err := u.Matches(doc); err != nil {
		return nil, err
	}
	if err := u.ApplyTo(doc); err != nil {
		return nil, err
	}

	updated, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	e, err := decodeEvent(updated)
	if err != nil {
		return nil, err
	}
	r.s.events[id] = updated
	return e, nil
}

func (r *eventRepo) SetMaxAttendees(_ context.Context, id string, maxAttendees int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	doc, ok := r.s.events[id]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	e, err := decodeEvent(doc)
	if err != nil {
		return err
	}
	e.MaxAttendees = maxAttendees
	if doc, err = encodeEvent(e); err != nil {
		return err
	}
	r.s.events[id] = doc
	return nil
}

func (r *eventRepo) all(match func(*model.Event) bool) ([]*model.Event, error) {
	r.s.mu.Lock()
	docs := make([][]byte, 0, len(r.s.events))
	for _, doc := range r.s.events {
		docs = append(docs, doc)
	}
	r.s.mu.Unlock()

	events := make([]*model.Event, 0)
	for _, doc := range docs {
		e, err := decodeEvent(doc)
		if err != nil {
			return nil, err
		}
		if match(e) {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

func (r *eventRepo) ListPublic(_ context.Context, filter model.EventFilter) ([]*model.Event, error) {
	filter.Normalize()
	query := strings.ToLower(filter.Query)

	events, err := r.all(func(e *model.Event) bool {
		if e.Access != model.AccessPublic || e.IsDeleted || !e.IsLive {
			return false
		}
		if filter.Category != "" && !slices.Contains(e.Categories, filter.Category) {
			return false
		}
		return query == "" || strings.Contains(strings.ToLower(e.Title), query)
	})
	if err != nil {
		return nil, err
	}

	start := (filter.Page - 1) * filter.Limit
	if start >= len(events) {
		return []*model.Event{}, nil
	}
	end := min(start+filter.Limit, len(events))
	return events[start:end], nil
}

func (r *eventRepo) ListByGroupID(_ context.Context, groupID string) ([]*model.Event, error) {
	return r.all(func(e *model.Event) bool {
		return !e.IsDeleted && e.GroupID != nil && *e.GroupID == groupID
	})
}

// ---- tiers ----

type tierRepo struct{ s *Store }

func copyTier(t *model.TicketTier) *model.TicketTier {
	cp := *t
	return &cp
}

func (r *tierRepo) Create(_ context.Context, tier *model.TicketTier) (*model.TicketTier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	position := 0
	for _, t := range r.s.tiers {
		if t.EventID == tier.EventID && t.Position >= position {
			position = t.Position + 1
		}
	}
	stored := copyTier(tier)
	stored.Sold = 0
	stored.Position = position
	stored.UpdatedAt = stored.CreatedAt
	r.s.tiers[stored.ID] = stored
	return copyTier(stored), nil
}

func (r *tierRepo) find(eventID, tierID string) (*model.TicketTier, error) {
	t, ok := r.s.tiers[tierID]
	if !ok || t.EventID != eventID {
		return nil, apperrors.ErrTierNotFound
	}
	return t, nil
}

func (r *tierRepo) FindByID(_ context.Context, eventID, tierID string) (*model.TicketTier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, err := r.find(eventID, tierID)
	if err != nil {
		return nil, err
	}
	return copyTier(t), nil
}

func (r *tierRepo) ListByEventID(_ context.Context, eventID string) ([]*model.TicketTier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tiers := make([]*model.TicketTier, 0)
	for _, t := range r.s.tiers {
		if t.EventID == eventID {
			tiers = append(tiers, copyTier(t))
		}
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Position < tiers[j].Position })
	return tiers, nil
}

func (r *tierRepo) ListByIDs(_ context.Context, tierIDs []string) (map[string]*model.TicketTier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make(map[string]*model.TicketTier, len(tierIDs))
	for _, id := range tierIDs {
		if t, ok := r.s.tiers[id]; ok {
			result[id] = copyTier(t)
		}
	}
	return result, nil
}

func (r *tierRepo) Update(_ context.Context, eventID, tierID string, params model.UpdateTierParams) (*model.TicketTier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, err := r.find(eventID, tierID)
	if err != nil {
		return nil, err
	}
	if params.IsEmpty() {
		return copyTier(t), nil
	}
	updated := copyTier(t)
	if err := params.Apply(updated, nowUTC()); err != nil {
		return nil, err
	}
	r.s.tiers[tierID] = updated
	return copyTier(updated), nil
}

func (r *tierRepo) Delete(_ context.Context, eventID, tierID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, err := r.find(eventID, tierID)
	if err != nil {
		return err
	}
	if t.Sold > 0 {
		return apperrors.ErrHasSales
	}
	delete(r.s.tiers, tierID)
	return nil
}

// ---- ledger ----

type ledger struct{ s *Store }

// reserve must be called with the store mutex held.
func (l *ledger) reserve(eventID, tierID string, quantity int) (*model.TicketTier, error) {
	if quantity <= 0 {
		return nil, apperrors.ErrInvalidInput
	}
	t, err := (&tierRepo{l.s}).find(eventID, tierID)
	if err != nil {
		return nil, err
	}
	if t.Sold+quantity > t.Quantity {
		return nil, apperrors.ErrSoldOut
	}
	t.Sold += quantity
	t.UpdatedAt = nowUTC()
	return copyTier(t), nil
}

func (l *ledger) Reserve(_ context.Context, eventID, tierID string, quantity int) (*model.TicketTier, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.reserve(eventID, tierID, quantity)
}

func (l *ledger) CommitPurchase(_ context.Context, purchase *model.TicketPurchase) (*model.TicketTier, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	tier, err := l.reserve(purchase.EventID, purchase.TierID, purchase.Quantity)
	if err != nil {
		return nil, err
	}
	cp := *purchase
	l.s.purchases = append(l.s.purchases, &cp)
	return tier, nil
}

// ---- purchases ----

type purchaseRepo struct{ s *Store }

func (r *purchaseRepo) FindByID(_ context.Context, id string) (*model.TicketPurchase, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.purchases {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.ErrPurchaseNotFound
}

func (r *purchaseRepo) ListByBuyerID(_ context.Context, buyerID string) ([]*model.TicketPurchase, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]*model.TicketPurchase, 0)
	// newest first
	for i := len(r.s.purchases) - 1; i >= 0; i-- {
		if p := r.s.purchases[i]; p.BuyerID == buyerID {
			cp := *p
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *purchaseRepo) ListBuyerIDsByEventID(_ context.Context, eventID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	buyers := make([]string, 0)
	for _, p := range r.s.purchases {
		if p.EventID == eventID && !slices.Contains(buyers, p.BuyerID) {
			buyers = append(buyers, p.BuyerID)
		}
	}
	sort.Strings(buyers)
	return buyers, nil
}

// ---- users ----

type userRepo struct{ s *Store }

func (r *userRepo) user(id string) *model.User {
	u, ok := r.s.users[id]
	if !ok {
		u = &model.User{ID: id, MyEventIDs: []string{}, MyPasses: []string{}}
		r.s.users[id] = u
	}
	return u
}

func (r *userRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.user(id)
	return &model.User{
		ID:         u.ID,
		Name:       u.Name,
		MyEventIDs: slices.Clone(u.MyEventIDs),
		MyPasses:   slices.Clone(u.MyPasses),
	}, nil
}

func (r *userRepo) AddEvent(_ context.Context, userID, eventID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.user(userID)
	if !slices.Contains(u.MyEventIDs, eventID) {
		u.MyEventIDs = append(u.MyEventIDs, eventID)
	}
	return nil
}

func (r *userRepo) AddPasses(_ context.Context, userID string, purchaseIDs ...string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.user(userID)
	for _, id := range purchaseIDs {
		if !slices.Contains(u.MyPasses, id) {
			u.MyPasses = append(u.MyPasses, id)
		}
	}
	return nil
}

// ---- groups ----

type groupRepo struct{ s *Store }

func (r *groupRepo) FindByID(_ context.Context, id string) (*model.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[id]
	if !ok {
		return nil, apperrors.ErrGroupNotFound
	}
	cp := *g
	cp.Members = slices.Clone(g.Members)
	cp.EventIDs = slices.Clone(g.EventIDs)
	cp.EventStatuses = make(map[string]string, len(g.EventStatuses))
	for k, v := range g.EventStatuses {
		cp.EventStatuses[k] = v
	}
	return &cp, nil
}

func (r *groupRepo) LinkEvent(_ context.Context, groupID, eventID, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[groupID]
	if !ok {
		return apperrors.ErrGroupNotFound
	}
	if !slices.Contains(g.EventIDs, eventID) {
		g.EventIDs = append(g.EventIDs, eventID)
	}
	if g.EventStatuses == nil {
		g.EventStatuses = map[string]string{}
	}
	g.EventStatuses[eventID] = status
	return nil
}

func (r *groupRepo) SetEventStatus(_ context.Context, groupID, eventID, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[groupID]
	if !ok {
		return apperrors.ErrGroupNotFound
	}
	if g.EventStatuses == nil {
		g.EventStatuses = map[string]string{}
	}
	g.EventStatuses[eventID] = status
	return nil
}
