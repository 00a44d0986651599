package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"eventstage/internal/model"
	"eventstage/internal/repository"
	apperrors "eventstage/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTier(t *testing.T, s *Store, eventID, tierID string, quantity int) {
	t.Helper()
	_, err := s.Tiers().Create(context.Background(), &model.TicketTier{
		ID: tierID, EventID: eventID, Title: tierID, Quantity: quantity, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestLedger_ConcurrentCommitNeverOversells(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedTier(t, s, "ev", "ga", 25)

	var wg sync.WaitGroup
	var sold atomic.Int64
	var soldOut atomic.Int64
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Ledger().CommitPurchase(ctx, &model.TicketPurchase{
				ID: uuid.NewString(), EventID: "ev", TierID: "ga", BuyerID: "b", Quantity: 1,
			})
			if err == nil {
				sold.Add(1)
			} else if errors.Is(err, apperrors.ErrSoldOut) {
				soldOut.Add(1)
			}
		}()
	}
	wg.Wait()

	tier, err := s.Tiers().FindByID(ctx, "ev", "ga")
	require.NoError(t, err)
	assert.Equal(t, int64(25), sold.Load())
	assert.Equal(t, int64(35), soldOut.Load())
	assert.Equal(t, 25, tier.Sold)

	purchases, err := s.Purchases().ListByBuyerID(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, purchases, 25)
}

func TestTierRepo_DeleteAndUpdateGuards(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedTier(t, s, "ev", "vip", 2)
	seedTier(t, s, "ev", "ga", 2)

	_, err := s.Ledger().Reserve(ctx, "ev", "vip", 2)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Tiers().Delete(ctx, "ev", "vip"), apperrors.ErrHasSales)
	assert.ErrorIs(t, s.Tiers().Delete(ctx, "other", "ga"), apperrors.ErrTierNotFound)
	require.NoError(t, s.Tiers().Delete(ctx, "ev", "ga"))

	one := 1
	_, err = s.Tiers().Update(ctx, "ev", "vip", model.UpdateTierParams{Quantity: &one})
	assert.ErrorIs(t, err, apperrors.ErrQuantityBelowSold)

	_, err = s.Ledger().Reserve(ctx, "ev", "vip", 1)
	assert.ErrorIs(t, err, apperrors.ErrSoldOut)

	tiers, err := s.Tiers().ListByEventID(ctx, "ev")
	require.NoError(t, err)
	require.Len(t, tiers, 1)
	assert.Equal(t, 2, tiers[0].Sold)
}

func TestEventRepo_CopiesAndFilters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Now().UTC()
	live := true

	for i, title := range []string{"Jazz Night", "Rock Night", "Hidden"} {
		access := model.AccessPublic
		if title == "Hidden" {
			access = model.AccessPrivate
		}
		e, err := model.NewEvent(title, model.CreateEventParams{
			OrganizerID: "org", Title: title, Access: &access, IsLive: &live, Categories: []string{"music"},
		}, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, s.Events().Create(ctx, e))
	}

	got, err := s.Events().FindByID(ctx, "Jazz Night")
	require.NoError(t, err)
	got.Title = "mutated"
	again, err := s.Events().FindByID(ctx, "Jazz Night")
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", again.Title)

	list, err := s.Events().ListPublic(ctx, model.EventFilter{Category: "music", Query: "night"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Rock Night", list[0].Title)

	_, err = s.Events().Update(ctx, "Jazz Night", repository.DeleteUpdate(now))
	require.NoError(t, err)
	_, err = s.Events().FindByID(ctx, "Jazz Night")
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)

	byID, err := s.Events().FindByIDs(ctx, []string{"Jazz Night"})
	require.NoError(t, err)
	assert.True(t, byID["Jazz Night"].IsDeleted)
}

func TestEventRepo_Update(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Now().UTC().Truncate(time.Millisecond)
	e, err := model.NewEvent("ev", model.CreateEventParams{
		OrganizerID: "org", Title: "Jazz Night",
		Locations: []model.LocationOption{{Coordinates: []float64{1, 2}}, {Coordinates: []float64{3, 4}}},
		Dates:     []model.DateGroup{{{StartDate: now}, {StartDate: now.Add(time.Hour)}}},
	}, now)
	require.NoError(t, err)
	require.NoError(t, s.Events().Create(ctx, e))
	events := s.Events()

	t.Run("Success - set semantics on likes and votes", func(t *testing.T) {
		_, err := events.Update(ctx, "ev", repository.LikeUpdate("u1", true))
		require.NoError(t, err)
		got, err := events.Update(ctx, "ev", repository.LikeUpdate("u1", true))
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, got.Likes)

		got, err = events.Update(ctx, "ev", repository.VoteUpdate(model.VoteTypeDate, model.DateIndex(0, 1), "u1", true))
		require.NoError(t, err)
		assert.Equal(t, [][]int{{0, 1}}, got.Tally().Dates)

		_, err = events.Update(ctx, "ev", repository.VoteUpdate(model.VoteTypeLocation, model.LocationIndex(7), "u1", true))
		assert.ErrorIs(t, err, apperrors.ErrInvalidIndex)

		got, err = events.Update(ctx, "ev", repository.LikeUpdate("u1", false))
		require.NoError(t, err)
		assert.Empty(t, got.Likes)
	})

	t.Run("Success - invitations and rsvps by key", func(t *testing.T) {
		inv := model.Invitation{UserID: "u", InvitedBy: "org", InvitedAt: now}
		_, err := events.Update(ctx, "ev", repository.InviteUpdate(inv))
		require.NoError(t, err)
		_, err = events.Update(ctx, "ev", repository.InviteUpdate(inv))
		assert.ErrorIs(t, err, apperrors.ErrAlreadyInvited)

		got, err := events.Update(ctx, "ev", repository.RSVPUpdate("u", model.RSVP{Status: model.RSVPStatusMaybe, RespondedAt: now}))
		require.NoError(t, err)
		assert.Len(t, got.Invitations, 1)
		assert.Equal(t, model.RSVPStatusMaybe, got.RSVPs["u"].Status)

		_, err = events.Update(ctx, "ev", repository.RSVPUpdate("a.b", model.RSVP{}))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Success - stage post feed", func(t *testing.T) {
		post := &model.StagePost{ID: "p1", Text: "hi", MediaURLs: []string{}, Likes: []string{}, Comments: []*model.Comment{}, CreatedAt: now, UpdatedAt: now}
		_, err := events.Update(ctx, "ev", repository.AddStagePostUpdate(post))
		require.NoError(t, err)

		comment := &model.Comment{ID: "c1", AuthorID: "fan", Text: "nice", CreatedAt: now, UpdatedAt: now}
		_, err = events.Update(ctx, "ev", repository.AddCommentUpdate("p1", comment))
		require.NoError(t, err)
		comment.Text = "very nice"
		got, err := events.Update(ctx, "ev", repository.EditCommentUpdate("p1", 0, comment))
		require.NoError(t, err)
		assert.Equal(t, "very nice", got.StagePosts["p1"].Comments[0].Text)
		assert.True(t, got.StagePosts["p1"].Comments[0].Edited)

		_, err = events.Update(ctx, "ev", repository.EditCommentUpdate("p1", 3, comment))
		assert.ErrorIs(t, err, apperrors.ErrCommentNotFound)

		got, err = events.Update(ctx, "ev", repository.DeleteCommentUpdate("p1", "c1"))
		require.NoError(t, err)
		assert.Empty(t, got.StagePosts["p1"].Comments)

		got, err = events.Update(ctx, "ev", repository.DeleteStagePostUpdate("p1", nil))
		require.NoError(t, err)
		assert.Empty(t, got.StagePosts)
		assert.Empty(t, got.StagePostOrder)

		_, err = events.Update(ctx, "ev", repository.StagePostLikeUpdate("p1", "fan", true))
		assert.ErrorIs(t, err, apperrors.ErrStagePostNotFound)
	})

	t.Run("Success - cancel only once, deleted events never match", func(t *testing.T) {
		got, err := events.Update(ctx, "ev", repository.CancelUpdate(now))
		require.NoError(t, err)
		assert.True(t, got.IsCancelled)
		_, err = events.Update(ctx, "ev", repository.CancelUpdate(now))
		assert.ErrorIs(t, err, apperrors.ErrEventCancelled)

		_, err = events.Update(ctx, "ev", repository.DeleteUpdate(now))
		require.NoError(t, err)
		_, err = events.Update(ctx, "ev", repository.LikeUpdate("u2", true))
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)

		byID, err := events.FindByIDs(ctx, []string{"ev"})
		require.NoError(t, err)
		assert.True(t, byID["ev"].IsDeleted)
		assert.True(t, byID["ev"].IsCancelled)
		assert.Empty(t, byID["ev"].Likes)
	})
}

func TestUserAndGroupRepos(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.PutGroup(&model.Group{ID: "g", Members: []model.GroupMember{{UserID: "a", Role: model.GroupRoleAdmin}}})

	require.NoError(t, s.Users().AddEvent(ctx, "u", "e1"))
	require.NoError(t, s.Users().AddEvent(ctx, "u", "e1"))
	require.NoError(t, s.Users().AddPasses(ctx, "u", "p1", "p2", "p1"))

	u, err := s.Users().FindByID(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, u.MyEventIDs)
	assert.Equal(t, []string{"p1", "p2"}, u.MyPasses)

	require.NoError(t, s.Groups().LinkEvent(ctx, "g", "e1", model.EventStatusUpcoming))
	require.NoError(t, s.Groups().LinkEvent(ctx, "g", "e1", model.EventStatusUpcoming))
	g, err := s.Groups().FindByID(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, g.EventIDs)
	assert.Equal(t, model.EventStatusUpcoming, g.EventStatuses["e1"])

	assert.ErrorIs(t, s.Groups().LinkEvent(ctx, "missing", "e1", model.EventStatusUpcoming), apperrors.ErrGroupNotFound)
}
