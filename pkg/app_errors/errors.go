package apperrors

import "errors"

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrTierNotFound      = errors.New("ticket tier not found")
	ErrPurchaseNotFound  = errors.New("purchase not found")
	ErrGroupNotFound     = errors.New("group not found")
	ErrStagePostNotFound = errors.New("stage post not found")
	ErrCommentNotFound   = errors.New("comment not found")

	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotGroupAdmin = errors.New("only group admins can create events")

	ErrSoldOut           = errors.New("not enough tickets available")
	ErrHasSales          = errors.New("cannot delete ticket tier with sales")
	ErrQuantityBelowSold = errors.New("quantity cannot be lower than tickets sold")
	ErrEventCancelled    = errors.New("event is cancelled")

	ErrInvalidIndex    = errors.New("invalid option index")
	ErrInvalidVoteType = errors.New("invalid vote type")
	ErrInvalidStatus   = errors.New("invalid rsvp status")
	ErrNotInvited      = errors.New("user not invited to this event")
	ErrAlreadyInvited  = errors.New("user already invited")
	ErrOrderMismatch   = errors.New("order list does not match stage posts")
	ErrTitleRequired   = errors.New("title is required")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidToken    = errors.New("invalid redemption token")

	// ErrGateMiss is returned by the inventory gate when a tier has not been seeded.
	ErrGateMiss = errors.New("inventory gate miss")
)
