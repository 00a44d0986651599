package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"eventstage/internal/model"
	apperrors "eventstage/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maxAttendees(t *testing.T, f *fixture, eventID string) int {
	t.Helper()
	view, err := f.events.GetEvent(context.Background(), eventID, "")
	require.NoError(t, err)
	stored, err := f.store.Events().FindByID(context.Background(), eventID)
	require.NoError(t, err)
	// 儲存值與即時計算值必須一致
	assert.Equal(t, view.MaxAttendees, stored.MaxAttendees)
	return view.MaxAttendees
}

func TestTicketService_AddTier(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - maxAttendees follows tiers", func(t *testing.T) {
		f := newFixture(t, nil)
		view := createEvent(t, f, tierSpec("GA", 2, "100"))

		tier, err := f.tickets.AddTier(ctx, view.ID, organizerID, tierSpec("VIP", 1, "500"))
		require.NoError(t, err)
		assert.Equal(t, 0, tier.Sold)
		assert.Equal(t, 1, tier.Position)
		assert.Equal(t, 3, maxAttendees(t, f, view.ID))
	})

	t.Run("Failed - not organizer", func(t *testing.T) {
		f := newFixture(t, nil)
		view := createEvent(t, f)
		_, err := f.tickets.AddTier(ctx, view.ID, "stranger", tierSpec("VIP", 1, "500"))
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("Failed - event not found", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.tickets.AddTier(ctx, "missing", organizerID, tierSpec("VIP", 1, "500"))
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})

	t.Run("Failed - negative quantity", func(t *testing.T) {
		f := newFixture(t, nil)
		view := createEvent(t, f)
		_, err := f.tickets.AddTier(ctx, view.ID, organizerID, tierSpec("VIP", -1, "500"))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Success - seeds gate", func(t *testing.T) {
		gate := newFakeGate()
		f := newFixture(t, gate)
		view := createEvent(t, f)
		tier, err := f.tickets.AddTier(ctx, view.ID, organizerID, tierSpec("VIP", 4, "500"))
		require.NoError(t, err)

		remaining, ok := gate.get(tier.ID)
		require.True(t, ok)
		assert.Equal(t, 4, remaining)
	})
}

func TestTicketService_UpdateTier(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - sold in body is dropped", func(t *testing.T) {
		gate := newFakeGate()
		f := newFixture(t, gate)
		view := createEvent(t, f, tierSpec("GA", 5, "100"))
		ga := tierByTitle(t, view, "GA")
		_, err := f.purchases.Purchase(ctx, model.PurchaseRequest{EventID: view.ID, TierID: ga.ID, BuyerID: "b1", Quantity: 2})
		require.NoError(t, err)

		var params model.UpdateTierParams
		require.NoError(t, json.Unmarshal([]byte(`{"title":"General","sold":0,"quantity":8}`), &params))

		tier, err := f.tickets.UpdateTier(ctx, view.ID, organizerID, ga.ID, params)
		require.NoError(t, err)
		assert.Equal(t, "General", tier.Title)
		assert.Equal(t, 2, tier.Sold)
		assert.Equal(t, 8, tier.Quantity)
		assert.Equal(t, 8, maxAttendees(t, f, view.ID))

		remaining, _ := gate.get(ga.ID)
		assert.Equal(t, 6, remaining)
	})

	t.Run("Failed - quantity below sold", func(t *testing.T) {
		f := newFixture(t, nil)
		view := createEvent(t, f, tierSpec("GA", 5, "100"))
		ga := tierByTitle(t, view, "GA")
		_, err := f.purchases.Purchase(ctx, model.PurchaseRequest{EventID: view.ID, TierID: ga.ID, BuyerID: "b1", Quantity: 3})
		require.NoError(t, err)

		quantity := 2
		_, err = f.tickets.UpdateTier(ctx, view.ID, organizerID, ga.ID, model.UpdateTierParams{Quantity: &quantity})
		assert.ErrorIs(t, err, apperrors.ErrQuantityBelowSold)
		assert.Equal(t, 5, maxAttendees(t, f, view.ID))
	})

	t.Run("Failed - unauthorized and not found", func(t *testing.T) {
		f := newFixture(t, nil)
		view := createEvent(t, f, tierSpec("GA", 5, "100"))
		title := "x"

		_, err := f.tickets.UpdateTier(ctx, view.ID, "stranger", view.Tiers[0].ID, model.UpdateTierParams{Title: &title})
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

		_, err = f.tickets.UpdateTier(ctx, view.ID, organizerID, "missing", model.UpdateTierParams{Title: &title})
		assert.ErrorIs(t, err, apperrors.ErrTierNotFound)
	})
}

func TestTicketService_DeleteTier(t *testing.T) {
	ctx := context.Background()
	gate := newFakeGate()
	f := newFixture(t, gate)
	view := createEvent(t, f, tierSpec("VIP", 1, "500"), tierSpec("GA", 2, "100"))
	vip := tierByTitle(t, view, "VIP")
	ga := tierByTitle(t, view, "GA")
	_, err := f.purchases.Purchase(ctx, model.PurchaseRequest{EventID: view.ID, TierID: vip.ID, BuyerID: "b1", Quantity: 1})
	require.NoError(t, err)

	t.Run("Failed - has sales", func(t *testing.T) {
		assert.ErrorIs(t, f.tickets.DeleteTier(ctx, view.ID, organizerID, vip.ID), apperrors.ErrHasSales)
		assert.Equal(t, 3, maxAttendees(t, f, view.ID))
	})

	t.Run("Failed - not organizer", func(t *testing.T) {
		assert.ErrorIs(t, f.tickets.DeleteTier(ctx, view.ID, "b1", ga.ID), apperrors.ErrUnauthorized)
	})

	t.Run("Success - unsold tier removed", func(t *testing.T) {
		require.NoError(t, f.tickets.DeleteTier(ctx, view.ID, organizerID, ga.ID))

		tiers, err := f.tickets.ListTiers(ctx, view.ID)
		require.NoError(t, err)
		require.Len(t, tiers, 1)
		assert.Equal(t, vip.ID, tiers[0].ID)
		assert.Equal(t, 1, maxAttendees(t, f, view.ID))

		_, ok := gate.get(ga.ID)
		assert.False(t, ok)
	})

	t.Run("Failed - already deleted", func(t *testing.T) {
		assert.ErrorIs(t, f.tickets.DeleteTier(ctx, view.ID, organizerID, ga.ID), apperrors.ErrTierNotFound)
	})
}
