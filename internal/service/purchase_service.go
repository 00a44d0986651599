package service

import (
	"context"
	"errors"
	"time"

	"eventstage/internal/cache"
	"eventstage/internal/metrics"
	"eventstage/internal/model"
	"eventstage/internal/notify"
	"eventstage/internal/redeem"
	"eventstage/internal/repository"
	apperrors "eventstage/pkg/app_errors"
	"eventstage/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PurchaseService interface {
	// 購票：庫存扣減與交易紀錄在同一個資料庫交易內完成
	Purchase(ctx context.Context, req model.PurchaseRequest) (*model.PurchaseConfirmation, error)
	GetPasses(ctx context.Context, buyerID string) ([]*model.Pass, error)
	GetPurchase(ctx context.Context, purchaseID, requesterID string) (*model.Pass, error)
	// ReconcilePasses re-adds every ledger purchase to the buyer's pass index.
	ReconcilePasses(ctx context.Context, buyerID string) (int, error)
	// VerifyToken resolves a scanned redemption token for the event team.
	VerifyToken(ctx context.Context, token, requesterID string) (*model.Pass, error)
}

type PurchaseServiceImpl struct {
	events    repository.EventRepository
	tiers     repository.TicketTierRepository
	purchases repository.PurchaseRepository
	ledger    repository.TicketLedger
	users     repository.UserRepository
	gate      cache.TicketInventoryGate // nil when the gate is disabled
	codec     *redeem.Codec
	sink      notify.Sink
	now       func() time.Time
}

func NewPurchaseService(
	events repository.EventRepository,
	tiers repository.TicketTierRepository,
	purchases repository.PurchaseRepository,
	ledger repository.TicketLedger,
	users repository.UserRepository,
	gate cache.TicketInventoryGate,
	codec *redeem.Codec,
	sink notify.Sink,
) PurchaseService {
	return &PurchaseServiceImpl{
		events:    events,
		tiers:     tiers,
		purchases: purchases,
		ledger:    ledger,
		users:     users,
		gate:      gate,
		codec:     codec,
		sink:      sink,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *PurchaseServiceImpl) Purchase(ctx context.Context, req model.PurchaseRequest) (*model.PurchaseConfirmation, error) {
	start := time.Now()
	log := logger.WithComponent("service").With(
		zap.String("event_id", req.EventID),
		zap.String("tier_id", req.TierID),
		zap.String("buyer_id", req.BuyerID),
	)

	if req.Quantity <= 0 || req.BuyerID == "" {
		return nil, apperrors.ErrInvalidInput
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event.IsCancelled {
		return nil, apperrors.ErrEventCancelled
	}

	// 1. Redis 閘門：已售完直接擋下，不打資料庫
	acquired, seed, err := s.acquireGate(ctx, req.TierID, req.Quantity)
	if err != nil {
		metrics.TrackPurchase(metrics.ResultSoldOut, req.Quantity, time.Since(start))
		return nil, err
	}

	// 2. 建立交易紀錄與兌換憑證
	now := s.now()
	purchase := &model.TicketPurchase{
		ID:          uuid.New().String(),
		EventID:     req.EventID,
		TierID:      req.TierID,
		BuyerID:     req.BuyerID,
		Quantity:    req.Quantity,
		Paid:        req.Paid,
		PurchasedAt: now,
	}
	purchase.RedemptionToken, err = s.codec.Issue(redeem.Payload{
		PurchaseID: purchase.ID,
		EventID:    purchase.EventID,
		TierID:     purchase.TierID,
		Quantity:   purchase.Quantity,
		IssuedAt:   now.Unix(),
	})
	if err != nil {
		s.undoGate(ctx, acquired, req, err)
		metrics.TrackPurchase(metrics.ResultError, req.Quantity, time.Since(start))
		return nil, err
	}

	// 3. 扣庫存 + 寫入交易（同一交易）
	tier, err := s.ledger.CommitPurchase(ctx, purchase)
	if err != nil {
		s.undoGate(ctx, acquired, req, err)
		if errors.Is(err, apperrors.ErrSoldOut) {
			metrics.TrackPurchase(metrics.ResultSoldOut, req.Quantity, time.Since(start))
		} else {
			metrics.TrackPurchase(metrics.ResultError, req.Quantity, time.Since(start))
		}
		return nil, err
	}
	metrics.TrackPurchase(metrics.ResultSuccess, req.Quantity, time.Since(start))
	log = log.With(zap.String("purchase_id", purchase.ID))

	if seed && s.gate != nil {
		if err := s.gate.Seed(ctx, tier.ID, tier.Remaining()); err != nil {
			log.Warn("failed to seed inventory gate", zap.Error(err))
		}
	}

	// 4. 反向索引：失敗不回滾，已售出的票以交易紀錄為準
	if err := s.users.AddPasses(ctx, req.BuyerID, purchase.ID); err != nil {
		log.Error("pass index lagging behind ledger", zap.Error(err))
		metrics.TrackPassIndexLag()
	}

	s.sink.Notify(ctx, model.Notification{
		Type:       model.NotificationTicketPurchased,
		Title:      "Ticket confirmed",
		Message:    tier.Title + " for " + event.Title,
		ReceiverID: req.BuyerID,
		Metadata: map[string]string{
			"event_id":    event.ID,
			"tier_id":     tier.ID,
			"purchase_id": purchase.ID,
		},
	})

	qr, err := redeem.QRDataURL(purchase.RedemptionToken)
	if err != nil {
		log.Warn("failed to render qr code", zap.Error(err))
	}

	return &model.PurchaseConfirmation{
		PurchaseID:      purchase.ID,
		EventID:         purchase.EventID,
		TierID:          tier.ID,
		TierTitle:       tier.Title,
		Quantity:        purchase.Quantity,
		UnitPrice:       tier.Price,
		Total:           tier.Price.Mul(decimal.NewFromInt(int64(purchase.Quantity))),
		Currency:        tier.Currency,
		RedemptionToken: purchase.RedemptionToken,
		QRCode:          qr,
		PurchasedAt:     purchase.PurchasedAt,
	}, nil
}

// acquireGate reports whether quantity was taken from the gate and whether
// the gate needs seeding after the database commit. Only ErrSoldOut is
// returned; any other gate problem falls through to the database.
func (s *PurchaseServiceImpl) acquireGate(ctx context.Context, tierID string, quantity int) (acquired, seed bool, err error) {
	if s.gate == nil {
		return false, false, nil
	}
	err = s.gate.Acquire(ctx, tierID, quantity)
	switch {
	case err == nil:
		metrics.TrackGate(metrics.GateHit)
		return true, false, nil
	case errors.Is(err, apperrors.ErrSoldOut):
		metrics.TrackGate(metrics.GateSoldOut)
		return false, false, apperrors.ErrSoldOut
	case errors.Is(err, apperrors.ErrGateMiss):
		metrics.TrackGate(metrics.GateMiss)
		return false, true, nil
	default:
		metrics.TrackGate(metrics.GateError)
		logger.WithComponent("cache").Warn("inventory gate unavailable", zap.String("tier_id", tierID), zap.Error(err))
		return false, false, nil
	}
}

// undoGate returns gate capacity taken for a purchase that did not commit.
// A database sold-out means the gate drifted, so it is resynced instead.
func (s *PurchaseServiceImpl) undoGate(ctx context.Context, acquired bool, req model.PurchaseRequest, cause error) {
	if !acquired || s.gate == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := logger.WithComponent("cache").With(zap.String("tier_id", req.TierID))

	if errors.Is(cause, apperrors.ErrSoldOut) {
		tier, err := s.tiers.FindByID(ctx, req.EventID, req.TierID)
		if err != nil {
			log.Warn("failed to load tier for gate resync", zap.Error(err))
			return
		}
		if err := s.gate.Set(ctx, req.TierID, tier.Remaining()); err != nil {
			log.Warn("failed to resync inventory gate", zap.Error(err))
		}
		return
	}
	if err := s.gate.Release(ctx, req.TierID, req.Quantity); err != nil {
		log.Warn("failed to release inventory gate", zap.Error(err))
	}
}

func (s *PurchaseServiceImpl) GetPasses(ctx context.Context, buyerID string) ([]*model.Pass, error) {
	purchases, err := s.purchases.ListByBuyerID(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	return s.resolvePasses(ctx, purchases)
}

func (s *PurchaseServiceImpl) resolvePasses(ctx context.Context, purchases []*model.TicketPurchase) ([]*model.Pass, error) {
	eventIDs := make([]string, 0, len(purchases))
	tierIDs := make([]string, 0, len(purchases))
	for _, p := range purchases {
		eventIDs = append(eventIDs, p.EventID)
		tierIDs = append(tierIDs, p.TierID)
	}

	events, err := s.events.FindByIDs(ctx, eventIDs)
	if err != nil {
		return nil, err
	}
	tiers, err := s.tiers.ListByIDs(ctx, tierIDs)
	if err != nil {
		return nil, err
	}

	passes := make([]*model.Pass, 0, len(purchases))
	for _, p := range purchases {
		pass := &model.Pass{TicketPurchase: p, Tier: tiers[p.TierID]}
		if e, ok := events[p.EventID]; ok {
			pass.Event = model.NewPassEvent(e)
		}
		passes = append(passes, pass)
	}
	return passes, nil
}

func (s *PurchaseServiceImpl) GetPurchase(ctx context.Context, purchaseID, requesterID string) (*model.Pass, error) {
	purchase, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	passes, err := s.resolvePasses(ctx, []*model.TicketPurchase{purchase})
	if err != nil {
		return nil, err
	}
	pass := passes[0]

	if purchase.BuyerID != requesterID && (pass.Event == nil || pass.Event.OrganizerID != requesterID) {
		return nil, apperrors.ErrUnauthorized
	}
	return pass, nil
}

func (s *PurchaseServiceImpl) ReconcilePasses(ctx context.Context, buyerID string) (int, error) {
	purchases, err := s.purchases.ListByBuyerID(ctx, buyerID)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(purchases))
	for _, p := range purchases {
		ids = append(ids, p.ID)
	}
	if err := s.users.AddPasses(ctx, buyerID, ids...); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *PurchaseServiceImpl) VerifyToken(ctx context.Context, token, requesterID string) (*model.Pass, error) {
	payload, err := s.codec.Verify(token)
	if err != nil {
		return nil, err
	}
	purchase, err := s.purchases.FindByID(ctx, payload.PurchaseID)
	if err != nil {
		if errors.Is(err, apperrors.ErrPurchaseNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, err
	}
	if purchase.EventID != payload.EventID || purchase.TierID != payload.TierID || purchase.Quantity != payload.Quantity {
		return nil, apperrors.ErrInvalidToken
	}

	events, err := s.events.FindByIDs(ctx, []string{purchase.EventID})
	if err != nil {
		return nil, err
	}
	event, ok := events[purchase.EventID]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	if !event.CanManage(requesterID) {
		return nil, apperrors.ErrUnauthorized
	}

	passes, err := s.resolvePasses(ctx, []*model.TicketPurchase{purchase})
	if err != nil {
		return nil, err
	}
	return passes[0], nil
}
