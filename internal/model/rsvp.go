package model

import (
	"slices"
	"time"

	apperrors "eventstage/pkg/app_errors"
)

// RSVPStatus is a terminal response to an invitation.
type RSVPStatus string

const (
	RSVPStatusAttending RSVPStatus = "attending"
	RSVPStatusMaybe     RSVPStatus = "maybe"
	RSVPStatusDeclined  RSVPStatus = "declined"
)

func (s RSVPStatus) IsValid() bool {
	switch s {
	case RSVPStatusAttending, RSVPStatusMaybe, RSVPStatusDeclined:
		return true
	}
	return false
}

type Invitation struct {
	UserID    string    `json:"user_id" bson:"user_id"`
	InvitedBy string    `json:"invited_by" bson:"invited_by"`
	InvitedAt time.Time `json:"invited_at" bson:"invited_at"`
}

type RSVP struct {
	Status      RSVPStatus `json:"status" bson:"status"`
	RespondedAt time.Time  `json:"responded_at" bson:"responded_at"`
}

func (e *Event) IsInvited(userID string) bool {
	return slices.ContainsFunc(e.Invitations, func(inv Invitation) bool { return inv.UserID == userID })
}

// Invite marks each user as invited and returns the ones that were newly
// added. Users already invited are skipped.
func (e *Event) Invite(inviterID string, userIDs []string, now time.Time) []string {
	added := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" || e.IsInvited(id) {
			continue
		}
		e.Invitations = append(e.Invitations, Invitation{UserID: id, InvitedBy: inviterID, InvitedAt: now})
		added = append(added, id)
	}
	return added
}

// Respond records an RSVP, overwriting any previous answer.
func (e *Event) Respond(userID string, status RSVPStatus, now time.Time) error {
	if !e.IsInvited(userID) {
		return apperrors.ErrNotInvited
	}
	if !status.IsValid() {
		return apperrors.ErrInvalidStatus
	}
	if e.RSVPs == nil {
		e.RSVPs = map[string]RSVP{}
	}
	e.RSVPs[userID] = RSVP{Status: status, RespondedAt: now}
	return nil
}
