package repository

import (
	"context"
	"errors"
	"fmt"

	"eventstage/internal/model"
	apperrors "eventstage/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PurchaseRepository interface {
	FindByID(ctx context.Context, id string) (*model.TicketPurchase, error)
	ListByBuyerID(ctx context.Context, buyerID string) ([]*model.TicketPurchase, error)
	// ListBuyerIDsByEventID returns each distinct buyer of the event once.
	ListBuyerIDsByEventID(ctx context.Context, eventID string) ([]string, error)
}

const purchaseColumns = `id, event_id, tier_id, buyer_id, quantity, paid, redemption_token, purchased_at`

type PurchaseRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepository(pool *pgxpool.Pool) PurchaseRepository {
	return &PurchaseRepositoryImpl{
		pool: pool,
	}
}

func scanPurchase(row pgx.Row) (*model.TicketPurchase, error) {
	var p model.TicketPurchase
	err := row.Scan(
		&p.ID,
		&p.EventID,
		&p.TierID,
		&p.BuyerID,
		&p.Quantity,
		&p.Paid,
		&p.RedemptionToken,
		&p.PurchasedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func insertPurchase(ctx context.Context, q querier, p *model.TicketPurchase) error {
	query := `
		INSERT INTO ticket_purchases (` + purchaseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := q.Exec(ctx, query,
		p.ID, p.EventID, p.TierID, p.BuyerID, p.Quantity, p.Paid, p.RedemptionToken, p.PurchasedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}
	return nil
}

func (r *PurchaseRepositoryImpl) FindByID(ctx context.Context, id string) (*model.TicketPurchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM ticket_purchases WHERE id = $1`

	p, err := scanPurchase(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPurchaseNotFound
		}
		return nil, err
	}

	return p, nil
}

func (r *PurchaseRepositoryImpl) ListByBuyerID(ctx context.Context, buyerID string) ([]*model.TicketPurchase, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM ticket_purchases
		WHERE buyer_id = $1
		ORDER BY purchased_at DESC
	`

	rows, err := r.pool.Query(ctx, query, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]*model.TicketPurchase, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return purchases, nil
}

func (r *PurchaseRepositoryImpl) ListBuyerIDsByEventID(ctx context.Context, eventID string) ([]string, error) {
	query := `SELECT DISTINCT buyer_id FROM ticket_purchases WHERE event_id = $1 ORDER BY buyer_id`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowTo[string])
}
