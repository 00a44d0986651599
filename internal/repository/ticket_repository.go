package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventstage/internal/model"
	apperrors "eventstage/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TicketTierRepository interface {
	Create(ctx context.Context, tier *model.TicketTier) (*model.TicketTier, error)
	FindByID(ctx context.Context, eventID, tierID string) (*model.TicketTier, error)
	ListByEventID(ctx context.Context, eventID string) ([]*model.TicketTier, error)
	ListByIDs(ctx context.Context, tierIDs []string) (map[string]*model.TicketTier, error)
	Update(ctx context.Context, eventID, tierID string, params model.UpdateTierParams) (*model.TicketTier, error)
	// Delete removes a tier only while nothing has been sold from it.
	Delete(ctx context.Context, eventID, tierID string) error
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const tierColumns = `id, event_id, title, description, price, currency,
		quantity, sold, position, created_at, updated_at`

type TicketTierRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTicketTierRepository(pool *pgxpool.Pool) TicketTierRepository {
	return &TicketTierRepositoryImpl{
		pool: pool,
	}
}

func scanTier(row pgx.Row) (*model.TicketTier, error) {
	var tier model.TicketTier
	err := row.Scan(
		&tier.ID,
		&tier.EventID,
		&tier.Title,
		&tier.Description,
		&tier.Price,
		&tier.Currency,
		&tier.Quantity,
		&tier.Sold,
		&tier.Position,
		&tier.CreatedAt,
		&tier.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

func collectTiers(rows pgx.Rows) ([]*model.TicketTier, error) {
	defer rows.Close()

	tiers := make([]*model.TicketTier, 0)
	for rows.Next() {
		tier, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *TicketTierRepositoryImpl) Create(ctx context.Context, tier *model.TicketTier) (*model.TicketTier, error) {
	query := `
		INSERT INTO ticket_tiers (
			id, event_id, title, description, price, currency, quantity, sold, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0,
			COALESCE((SELECT MAX(position) + 1 FROM ticket_tiers WHERE event_id = $2), 0), $8, $8)
		RETURNING ` + tierColumns

	created, err := scanTier(r.pool.QueryRow(ctx, query,
		tier.ID, tier.EventID, tier.Title, tier.Description,
		tier.Price, tier.Currency, tier.Quantity, tier.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket tier: %w", err)
	}

	return created, nil
}

func (r *TicketTierRepositoryImpl) FindByID(ctx context.Context, eventID, tierID string) (*model.TicketTier, error) {
	query := `SELECT ` + tierColumns + ` FROM ticket_tiers WHERE id = $1 AND event_id = $2`

	tier, err := scanTier(r.pool.QueryRow(ctx, query, tierID, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTierNotFound
		}
		return nil, err
	}

	return tier, nil
}

func (r *TicketTierRepositoryImpl) ListByEventID(ctx context.Context, eventID string) ([]*model.TicketTier, error) {
	query := `SELECT ` + tierColumns + ` FROM ticket_tiers WHERE event_id = $1 ORDER BY position, created_at`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	return collectTiers(rows)
}

func (r *TicketTierRepositoryImpl) ListByIDs(ctx context.Context, tierIDs []string) (map[string]*model.TicketTier, error) {
	result := make(map[string]*model.TicketTier, len(tierIDs))
	if len(tierIDs) == 0 {
		return result, nil
	}

	query := `SELECT ` + tierColumns + ` FROM ticket_tiers WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, tierIDs)
	if err != nil {
		return nil, err
	}
	tiers, err := collectTiers(rows)
	if err != nil {
		return nil, err
	}
	for _, tier := range tiers {
		result[tier.ID] = tier
	}
	return result, nil
}

func (r *TicketTierRepositoryImpl) Update(ctx context.Context, eventID, tierID string, params model.UpdateTierParams) (*model.TicketTier, error) {
	sets := []string{}
	args := []interface{}{}
	argPos := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if params.Title != nil {
		add("title", strings.TrimSpace(*params.Title))
	}
	if params.Description != nil {
		add("description", *params.Description)
	}
	if params.Price != nil {
		add("price", *params.Price)
	}
	if params.Currency != nil {
		add("currency", *params.Currency)
	}
	if params.Quantity != nil {
		add("quantity", *params.Quantity)
	}

	if len(sets) == 0 {
		return r.FindByID(ctx, eventID, tierID)
	}

	// add updated_at
	add("updated_at", time.Now().UTC())

	where := fmt.Sprintf("id = $%d AND event_id = $%d", argPos, argPos+1)
	args = append(args, tierID, eventID)
	if params.Quantity != nil {
		// capacity may shrink but never below what is already sold
		where += fmt.Sprintf(" AND sold <= $%d", argPos+2)
		args = append(args, *params.Quantity)
	}

	query := fmt.Sprintf(`
		UPDATE ticket_tiers
		SET %s
		WHERE %s
		RETURNING %s
	`, strings.Join(sets, ", "), where, tierColumns)

	tier, err := scanTier(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, findErr := r.FindByID(ctx, eventID, tierID); findErr != nil {
				return nil, findErr
			}
			return nil, apperrors.ErrQuantityBelowSold
		}
		return nil, err
	}

	return tier, nil
}

func (r *TicketTierRepositoryImpl) Delete(ctx context.Context, eventID, tierID string) error {
	query := `
		DELETE FROM ticket_tiers
		WHERE id = $1 AND event_id = $2 AND sold = 0
	`

	result, err := r.pool.Exec(ctx, query, tierID, eventID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, eventID, tierID); err != nil {
			return err
		}
		return apperrors.ErrHasSales
	}

	return nil
}

// reserveTier is the single conditional update that enforces
// 0 <= sold <= quantity. Zero affected rows means the tier is missing or
// does not have enough remaining capacity.
func reserveTier(ctx context.Context, q querier, eventID, tierID string, quantity int) (*model.TicketTier, error) {
	if quantity <= 0 {
		return nil, apperrors.ErrInvalidInput
	}

	query := `
		UPDATE ticket_tiers
		SET sold = sold + $1, updated_at = $2
		WHERE id = $3 AND event_id = $4 AND sold + $1 <= quantity
		RETURNING ` + tierColumns

	tier, err := scanTier(q.QueryRow(ctx, query, quantity, time.Now().UTC(), tierID, eventID))
	if err == nil {
		return tier, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	existsQuery := `SELECT EXISTS (SELECT 1 FROM ticket_tiers WHERE id = $1 AND event_id = $2)`
	if err := q.QueryRow(ctx, existsQuery, tierID, eventID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrTierNotFound
	}
	return nil, apperrors.ErrSoldOut
}
