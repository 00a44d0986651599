package model

import (
	"testing"
	"time"

	apperrors "eventstage/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_Invite(t *testing.T) {
	e := newTestEvent(t)

	added := e.Invite("org", []string{"u1", "u2", "u1"}, testNow)
	assert.Equal(t, []string{"u1", "u2"}, added)

	added = e.Invite("org", []string{"u2", "u3"}, testNow)
	assert.Equal(t, []string{"u3"}, added)
	assert.Len(t, e.Invitations, 3)
}

func TestEvent_Respond(t *testing.T) {
	t.Run("Success - maybe then attending overwrites", func(t *testing.T) {
		e := newTestEvent(t)
		e.Invite("org", []string{"u"}, testNow)

		require.NoError(t, e.Respond("u", RSVPStatusMaybe, testNow))
		later := testNow.Add(time.Minute)
		require.NoError(t, e.Respond("u", RSVPStatusAttending, later))

		assert.Len(t, e.RSVPs, 1)
		assert.Equal(t, RSVP{Status: RSVPStatusAttending, RespondedAt: later}, e.RSVPs["u"])
	})

	t.Run("Failed - not invited regardless of status", func(t *testing.T) {
		e := newTestEvent(t)

		for _, status := range []RSVPStatus{RSVPStatusAttending, RSVPStatusMaybe, RSVPStatusDeclined, "bogus"} {
			assert.ErrorIs(t, e.Respond("stranger", status, testNow), apperrors.ErrNotInvited)
		}
		assert.Empty(t, e.RSVPs)
	})

	t.Run("Failed - invalid status", func(t *testing.T) {
		e := newTestEvent(t)
		e.Invite("org", []string{"u"}, testNow)

		assert.ErrorIs(t, e.Respond("u", "interested", testNow), apperrors.ErrInvalidStatus)
	})
}
