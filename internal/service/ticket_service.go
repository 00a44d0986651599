package service

import (
	"context"
	"time"

	"eventstage/internal/cache"
	"eventstage/internal/model"
	"eventstage/internal/repository"
	apperrors "eventstage/pkg/app_errors"
	"eventstage/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TicketService manages an event's ticket tiers. Only the organizer may
// change them, and every change recomputes the event's maxAttendees.
type TicketService interface {
	ListTiers(ctx context.Context, eventID string) ([]*model.TicketTier, error)
	AddTier(ctx context.Context, eventID, requesterID string, spec model.TierSpec) (*model.TicketTier, error)
	UpdateTier(ctx context.Context, eventID, requesterID, tierID string, params model.UpdateTierParams) (*model.TicketTier, error)
	DeleteTier(ctx context.Context, eventID, requesterID, tierID string) error
}

type TicketServiceImpl struct {
	events repository.EventRepository
	tiers  repository.TicketTierRepository
	gate   cache.TicketInventoryGate // nil when the gate is disabled
	now    func() time.Time
}

func NewTicketService(
	events repository.EventRepository,
	tiers repository.TicketTierRepository,
	gate cache.TicketInventoryGate,
) TicketService {
	return &TicketServiceImpl{
		events: events,
		tiers:  tiers,
		gate:   gate,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *TicketServiceImpl) ListTiers(ctx context.Context, eventID string) ([]*model.TicketTier, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.tiers.ListByEventID(ctx, eventID)
}

func (s *TicketServiceImpl) AddTier(ctx context.Context, eventID, requesterID string, spec model.TierSpec) (*model.TicketTier, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.organizerEvent(ctx, eventID, requesterID); err != nil {
		return nil, err
	}

	now := s.now()
	tier, err := s.tiers.Create(ctx, &model.TicketTier{
		ID:          uuid.New().String(),
		EventID:     eventID,
		Title:       spec.Title,
		Description: spec.Description,
		Price:       spec.Price,
		Currency:    spec.Currency,
		Quantity:    spec.Quantity,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.syncMaxAttendees(ctx, eventID); err != nil {
		return nil, err
	}
	s.refreshGate(ctx, tier)
	return tier, nil
}

func (s *TicketServiceImpl) UpdateTier(ctx context.Context, eventID, requesterID, tierID string, params model.UpdateTierParams) (*model.TicketTier, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.organizerEvent(ctx, eventID, requesterID); err != nil {
		return nil, err
	}

	tier, err := s.tiers.Update(ctx, eventID, tierID, params)
	if err != nil {
		return nil, err
	}
	if params.Quantity != nil {
		if err := s.syncMaxAttendees(ctx, eventID); err != nil {
			return nil, err
		}
		s.refreshGate(ctx, tier)
	}
	return tier, nil
}

func (s *TicketServiceImpl) DeleteTier(ctx context.Context, eventID, requesterID, tierID string) error {
	if _, err := s.organizerEvent(ctx, eventID, requesterID); err != nil {
		return err
	}
	if err := s.tiers.Delete(ctx, eventID, tierID); err != nil {
		return err
	}
	if err := s.syncMaxAttendees(ctx, eventID); err != nil {
		return err
	}
	if s.gate != nil {
		if err := s.gate.Drop(ctx, tierID); err != nil {
			logger.WithComponent("cache").Warn("failed to drop inventory gate", zap.String("tier_id", tierID), zap.Error(err))
		}
	}
	return nil
}

func (s *TicketServiceImpl) organizerEvent(ctx context.Context, eventID, requesterID string) (*model.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOrganizer(requesterID) {
		return nil, apperrors.ErrUnauthorized
	}
	return event, nil
}

// syncMaxAttendees stores the sum of tier quantities on the event.
func (s *TicketServiceImpl) syncMaxAttendees(ctx context.Context, eventID string) error {
	tiers, err := s.tiers.ListByEventID(ctx, eventID)
	if err != nil {
		return err
	}
	event := &model.Event{Tiers: tiers}
	event.RecomputeMaxAttendees()
	return s.events.SetMaxAttendees(ctx, eventID, event.MaxAttendees)
}

func (s *TicketServiceImpl) refreshGate(ctx context.Context, tier *model.TicketTier) {
	if s.gate == nil {
		return
	}
	if err := s.gate.Set(ctx, tier.ID, tier.Remaining()); err != nil {
		// 閘門失效只會退回資料庫路徑
		logger.WithComponent("cache").Warn("failed to refresh inventory gate", zap.String("tier_id", tier.ID), zap.Error(err))
	}
}
