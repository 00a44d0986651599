package repository

import (
	"context"

	"eventstage/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TicketLedger owns the sold counter. Reserve and CommitPurchase are the only
// paths that move it.
type TicketLedger interface {
	Reserve(ctx context.Context, eventID, tierID string, quantity int) (*model.TicketTier, error)
	// CommitPurchase reserves purchase.Quantity on the tier and appends the
	// ledger entry atomically: either both happen or neither does.
	CommitPurchase(ctx context.Context, purchase *model.TicketPurchase) (*model.TicketTier, error)
}

type TicketLedgerImpl struct {
	pool *pgxpool.Pool
}

func NewTicketLedger(pool *pgxpool.Pool) TicketLedger {
	return &TicketLedgerImpl{
		pool: pool,
	}
}

func (l *TicketLedgerImpl) Reserve(ctx context.Context, eventID, tierID string, quantity int) (*model.TicketTier, error) {
	return reserveTier(ctx, l.pool, eventID, tierID, quantity)
}

func (l *TicketLedgerImpl) CommitPurchase(ctx context.Context, purchase *model.TicketPurchase) (*model.TicketTier, error) {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tier, err := reserveTier(ctx, tx, purchase.EventID, purchase.TierID, purchase.Quantity)
	if err != nil {
		return nil, err
	}

	if err := insertPurchase(ctx, tx, purchase); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return tier, nil
}
