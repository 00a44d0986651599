package model

import (
	"encoding/json"
	"testing"
	"time"

	apperrors "eventstage/pkg/app_errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestEvent(t *testing.T) *Event {
	t.Helper()
	e, err := NewEvent("ev-1", CreateEventParams{
		OrganizerID: "org",
		Title:       "  Launch Party ",
		Locations: []LocationOption{
			{Coordinates: []float64{25.03, 121.56}, Label: "Taipei"},
			{Coordinates: []float64{22.62, 120.30}, Label: "Kaohsiung"},
		},
		Dates: []DateGroup{
			{{StartDate: testNow}, {StartDate: testNow.Add(24 * time.Hour)}},
		},
	}, testNow)
	require.NoError(t, err)
	return e
}

func TestNewEvent(t *testing.T) {
	t.Run("Success - defaults", func(t *testing.T) {
		e := newTestEvent(t)

		assert.Equal(t, "Launch Party", e.Title)
		assert.Equal(t, AccessPublic, e.Access)
		assert.False(t, e.IsLive)
		assert.True(t, e.WherePoll)
		assert.True(t, e.WhenPoll)
		assert.False(t, e.IsLinkedWithGroup())
		require.Len(t, e.Team, 1)
		assert.Equal(t, TeamMember{UserID: "org", Role: TeamRoleOrganizer}, e.Team[0])
	})

	t.Run("Success - explicit access and live flag", func(t *testing.T) {
		access := AccessPrivate
		live := true
		group := "g-1"
		e, err := NewEvent("ev-2", CreateEventParams{
			OrganizerID: "org", Title: "Private", Access: &access, IsLive: &live, GroupID: &group,
		}, testNow)

		require.NoError(t, err)
		assert.Equal(t, AccessPrivate, e.Access)
		assert.True(t, e.IsLive)
		assert.True(t, e.IsLinkedWithGroup())
	})

	t.Run("Failed - missing title", func(t *testing.T) {
		_, err := NewEvent("ev-3", CreateEventParams{OrganizerID: "org", Title: "  "}, testNow)
		assert.ErrorIs(t, err, apperrors.ErrTitleRequired)
	})

	t.Run("Failed - bad access", func(t *testing.T) {
		access := Access("friends")
		_, err := NewEvent("ev-4", CreateEventParams{OrganizerID: "org", Title: "x", Access: &access}, testNow)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestEvent_Likes(t *testing.T) {
	e := newTestEvent(t)
	e.Likes = []string{"u1", "u2"}

	assert.Equal(t, 2, e.LikesCount())
	assert.True(t, e.IsLikedBy("u1"))
	assert.False(t, e.IsLikedBy("u3"))
	assert.False(t, e.IsLikedBy(""))
}

func TestEvent_Team(t *testing.T) {
	e := newTestEvent(t)

	require.NoError(t, e.SetTeamMember("u2", TeamRoleCoHost))
	require.NoError(t, e.SetTeamMember("u2", TeamRoleTeamMember))
	assert.Len(t, e.Team, 2)
	assert.True(t, e.CanManage("u2"))
	assert.False(t, e.CanManage("u3"))

	assert.ErrorIs(t, e.SetTeamMember("u3", TeamRoleOrganizer), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, e.SetTeamMember("org", TeamRoleCoHost), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, e.RemoveTeamMember("org"), apperrors.ErrInvalidInput)

	require.NoError(t, e.RemoveTeamMember("u2"))
	assert.False(t, e.CanManage("u2"))
	assert.True(t, e.CanManage("org"))
}

func TestEvent_RecomputeMaxAttendees(t *testing.T) {
	e := newTestEvent(t)
	e.Tiers = []*TicketTier{{Quantity: 1}, {Quantity: 2}}

	e.RecomputeMaxAttendees()

	assert.Equal(t, 3, e.MaxAttendees)
}

func TestEventPatch_Decode(t *testing.T) {
	body := `{"title":"New","organizer_id":"hacker","is_deleted":true,"sold":10,
		"price":[{"id":"t1","quantity":5,"sold":99}]}`

	var patch EventPatch
	require.NoError(t, json.Unmarshal([]byte(body), &patch))
	require.NoError(t, patch.Validate())

	e := newTestEvent(t)
	e.Apply(patch, testNow.Add(time.Hour))

	assert.Equal(t, "New", e.Title)
	assert.Equal(t, "org", e.OrganizerID)
	assert.False(t, e.IsDeleted)
	require.Len(t, patch.Price, 1)
	assert.Equal(t, "t1", patch.Price[0].TierID)
	assert.Equal(t, 5, *patch.Price[0].Quantity)
}

func TestEventPatch_Validate(t *testing.T) {
	empty := ""
	assert.ErrorIs(t, EventPatch{Title: &empty}.Validate(), apperrors.ErrTitleRequired)

	bad := Access("nope")
	assert.ErrorIs(t, EventPatch{Access: &bad}.Validate(), apperrors.ErrInvalidInput)

	assert.ErrorIs(t, EventPatch{Price: []TierPatch{{}}}.Validate(), apperrors.ErrInvalidInput)

	neg := -1
	patch := EventPatch{Price: []TierPatch{{TierID: "t", UpdateTierParams: UpdateTierParams{Quantity: &neg}}}}
	assert.ErrorIs(t, patch.Validate(), apperrors.ErrInvalidInput)
}

func TestEvent_View(t *testing.T) {
	e := newTestEvent(t)
	e.Likes = append(e.Likes, "viewer")
	require.NoError(t, e.Vote(VoteTypeLocation, LocationIndex(1), "viewer"))

	v := e.View("viewer")

	assert.Equal(t, 1, v.LikesCount)
	assert.True(t, v.IsLikedByViewer)
	assert.Equal(t, []int{0, 1}, v.Tally.Locations)
	assert.False(t, e.View("other").IsLikedByViewer)
}

func TestEventFilter_Normalize(t *testing.T) {
	f := EventFilter{Page: 0, Limit: 500}
	f.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 50, f.Limit)

	f = EventFilter{}
	f.Normalize()
	assert.Equal(t, 10, f.Limit)
}

func TestUpdateTierParams(t *testing.T) {
	tier := &TicketTier{Title: "GA", Quantity: 5, Sold: 3, Price: decimal.NewFromInt(10)}

	t.Run("Failed - quantity below sold", func(t *testing.T) {
		q := 2
		err := UpdateTierParams{Quantity: &q}.Apply(tier, testNow)
		assert.ErrorIs(t, err, apperrors.ErrQuantityBelowSold)
		assert.Equal(t, 5, tier.Quantity)
	})

	t.Run("Success - sold key dropped on decode", func(t *testing.T) {
		var p UpdateTierParams
		require.NoError(t, json.Unmarshal([]byte(`{"title":"General","sold":0,"price":"12.50"}`), &p))
		require.NoError(t, p.Validate())
		require.NoError(t, p.Apply(tier, testNow))

		assert.Equal(t, "General", tier.Title)
		assert.Equal(t, 3, tier.Sold)
		assert.True(t, decimal.RequireFromString("12.5").Equal(tier.Price))
		assert.Equal(t, 2, tier.Remaining())
	})

	t.Run("Failed - empty title", func(t *testing.T) {
		blank := " "
		assert.ErrorIs(t, UpdateTierParams{Title: &blank}.Validate(), apperrors.ErrTitleRequired)
	})
}

func TestTierSpec_Validate(t *testing.T) {
	assert.NoError(t, TierSpec{Title: "VIP", Quantity: 1}.Validate())
	assert.ErrorIs(t, TierSpec{Quantity: 1}.Validate(), apperrors.ErrTitleRequired)
	assert.ErrorIs(t, TierSpec{Title: "x", Quantity: -1}.Validate(), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, TierSpec{Title: "x", Price: decimal.NewFromInt(-1)}.Validate(), apperrors.ErrInvalidInput)
}

func TestGroup_IsAdmin(t *testing.T) {
	g := &Group{Members: []GroupMember{{UserID: "a", Role: GroupRoleAdmin}, {UserID: "m", Role: GroupRoleMember}}}

	assert.True(t, g.IsAdmin("a"))
	assert.False(t, g.IsAdmin("m"))
	assert.False(t, g.IsAdmin("x"))
}
