package model

import (
	"slices"
	"strings"
	"time"

	apperrors "eventstage/pkg/app_errors"
)

type Access string

const (
	AccessPublic  Access = "public"
	AccessPrivate Access = "private"
)

func (a Access) IsValid() bool {
	return a == AccessPublic || a == AccessPrivate
}

// TeamRole is the privilege a user holds on an event.
type TeamRole string

const (
	TeamRoleOrganizer  TeamRole = "organizer"
	TeamRoleCoHost     TeamRole = "co-host"
	TeamRoleTeamMember TeamRole = "team-member"
)

func (r TeamRole) IsValid() bool {
	switch r {
	case TeamRoleOrganizer, TeamRoleCoHost, TeamRoleTeamMember:
		return true
	}
	return false
}

type TeamMember struct {
	UserID string   `json:"user_id" bson:"user_id"`
	Role   TeamRole `json:"role" bson:"role"`
}

// Event is the aggregate root for an event: metadata, polls, social feed,
// team, invites and RSVPs. Ticket tiers live in the inventory and are
// attached when the event is materialized.
type Event struct {
	ID            string  `json:"id" bson:"_id"`
	OrganizerID   string  `json:"organizer_id" bson:"organizer_id"`
	OrganizerName string  `json:"organizer_name,omitempty" bson:"organizer_name,omitempty"`
	GroupID       *string `json:"group_id" bson:"group_id"`

	Title        string   `json:"title" bson:"title"`
	Description  string   `json:"description" bson:"description"`
	BannerImages []string `json:"banner_images" bson:"banner_images"`
	Tags         []string `json:"tags" bson:"tags"`
	Categories   []string `json:"categories" bson:"categories"`
	Services     []string `json:"services" bson:"services"`
	Access       Access   `json:"access" bson:"access"`

	Locations   []LocationOption `json:"locations" bson:"locations"`
	LocationTBA bool             `json:"location_tba" bson:"location_tba"`
	Dates       []DateGroup      `json:"dates" bson:"dates"`
	DateTBA     bool             `json:"date_tba" bson:"date_tba"`
	WherePoll   bool             `json:"where_poll" bson:"where_poll"`
	WhenPoll    bool             `json:"when_poll" bson:"when_poll"`

	Likes []string     `json:"-" bson:"likes"`
	Team  []TeamMember `json:"team" bson:"team"`

	Invitations []Invitation    `json:"invitations" bson:"invitations"`
	RSVPs       map[string]RSVP `json:"rsvps" bson:"rsvps"`

	StagePosts     map[string]*StagePost `json:"-" bson:"stage_posts"`
	StagePostOrder []string              `json:"-" bson:"stage_post_order"`

	MaxAttendees      int        `json:"max_attendees" bson:"max_attendees"`
	LastDateForRefund *time.Time `json:"last_date_for_refund,omitempty" bson:"last_date_for_refund,omitempty"`

	IsLive      bool `json:"is_live" bson:"is_live"`
	IsCancelled bool `json:"is_cancelled" bson:"is_cancelled"`
	IsDeleted   bool `json:"is_deleted" bson:"is_deleted"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`

	Tiers []*TicketTier `json:"tiers" bson:"-"`
}

// CreateEventParams is the validated input of createEvent.
type CreateEventParams struct {
	OrganizerID       string
	OrganizerName     string
	GroupID           *string
	Title             string
	Description       string
	BannerImages      []string
	Tags              []string
	Categories        []string
	Services          []string
	Access            *Access
	IsLive            *bool
	Locations         []LocationOption
	LocationTBA       bool
	Dates             []DateGroup
	DateTBA           bool
	LastDateForRefund *time.Time
	Tiers             []TierSpec
}

// NewEvent builds a fresh aggregate. Access defaults to public and IsLive to false.
func NewEvent(id string, p CreateEventParams, now time.Time) (*Event, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, apperrors.ErrTitleRequired
	}
	if p.OrganizerID == "" {
		return nil, apperrors.ErrInvalidInput
	}
	access := AccessPublic
	if p.Access != nil {
		if !p.Access.IsValid() {
			return nil, apperrors.ErrInvalidInput
		}
		access = *p.Access
	}
	isLive := false
	if p.IsLive != nil {
		isLive = *p.IsLive
	}
	locations, dates := normalizePolls(p.Locations, p.Dates)

	return &Event{
		ID:                id,
		OrganizerID:       p.OrganizerID,
		OrganizerName:     p.OrganizerName,
		GroupID:           p.GroupID,
		Title:             strings.TrimSpace(p.Title),
		Description:       p.Description,
		BannerImages:      nonNil(p.BannerImages),
		Tags:              nonNil(p.Tags),
		Categories:        nonNil(p.Categories),
		Services:          nonNil(p.Services),
		Access:            access,
		Locations:         locations,
		LocationTBA:       p.LocationTBA,
		Dates:             dates,
		DateTBA:           p.DateTBA,
		WherePoll:         len(locations) > 1,
		WhenPoll:          hasDateChoice(dates),
		Likes:             []string{},
		Team:              []TeamMember{{UserID: p.OrganizerID, Role: TeamRoleOrganizer}},
		Invitations:       []Invitation{},
		RSVPs:             map[string]RSVP{},
		StagePosts:        map[string]*StagePost{},
		StagePostOrder:    []string{},
		LastDateForRefund: p.LastDateForRefund,
		IsLive:            isLive,
		CreatedAt:         now,
		UpdatedAt:         now,
		Tiers:             []*TicketTier{},
	}, nil
}

func (e *Event) IsLinkedWithGroup() bool {
	return e.GroupID != nil && *e.GroupID != ""
}

func (e *Event) IsOrganizer(userID string) bool {
	return userID != "" && e.OrganizerID == userID
}

func (e *Event) IsTeamMember(userID string) bool {
	return slices.ContainsFunc(e.Team, func(m TeamMember) bool { return m.UserID == userID })
}

// CanManage reports whether userID may perform privileged feed and invite actions.
func (e *Event) CanManage(userID string) bool {
	return e.IsOrganizer(userID) || e.IsTeamMember(userID)
}

// SetTeamMember adds or updates a team entry. The organizer entry is fixed.
func (e *Event) SetTeamMember(userID string, role TeamRole) error {
	if userID == "" || !role.IsValid() || role == TeamRoleOrganizer || userID == e.OrganizerID {
		return apperrors.ErrInvalidInput
	}
	for i := range e.Team {
		if e.Team[i].UserID == userID {
			e.Team[i].Role = role
			return nil
		}
	}
	e.Team = append(e.Team, TeamMember{UserID: userID, Role: role})
	return nil
}

func (e *Event) RemoveTeamMember(userID string) error {
	if userID == e.OrganizerID {
		return apperrors.ErrInvalidInput
	}
	e.Team = slices.DeleteFunc(e.Team, func(m TeamMember) bool { return m.UserID == userID })
	return nil
}

func (e *Event) LikesCount() int {
	return len(e.Likes)
}

func (e *Event) IsLikedBy(userID string) bool {
	return userID != "" && slices.Contains(e.Likes, userID)
}

// RecomputeMaxAttendees sets MaxAttendees to the sum of tier quantities.
func (e *Event) RecomputeMaxAttendees() {
	total := 0
	for _, t := range e.Tiers {
		total += t.Quantity
	}
	e.MaxAttendees = total
}

// EventPatch lists the fields editEvent may change. Anything else in a
// request body is ignored by the decoder.
type EventPatch struct {
	Title        *string           `json:"title"`
	Description  *string           `json:"description"`
	Locations    *[]LocationOption `json:"locations"`
	Dates        *[]DateGroup      `json:"dates"`
	Categories   *[]string         `json:"categories"`
	BannerImages *[]string         `json:"banner_images"`
	IsLive       *bool             `json:"is_live"`
	Access       *Access           `json:"access"`
	Price        []TierPatch       `json:"price"`
	MaxAttendees *int              `json:"max_attendees"`
	Tags         *[]string         `json:"tags"`
	Services     *[]string         `json:"services"`
}

// TierPatch addresses one tier inside EventPatch.Price.
type TierPatch struct {
	TierID string `json:"id"`
	UpdateTierParams
}

func (p EventPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return apperrors.ErrTitleRequired
	}
	if p.Access != nil && !p.Access.IsValid() {
		return apperrors.ErrInvalidInput
	}
	for _, tp := range p.Price {
		if tp.TierID == "" {
			return apperrors.ErrInvalidInput
		}
		if err := tp.UpdateTierParams.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies the descriptive fields of the patch onto the event. Price
// entries are handled by the ticket inventory and MaxAttendees is derived.
func (e *Event) Apply(p EventPatch, now time.Time) {
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Locations != nil {
		e.Locations, _ = normalizePolls(*p.Locations, nil)
		e.WherePoll = len(e.Locations) > 1
	}
	if p.Dates != nil {
		_, e.Dates = normalizePolls(nil, *p.Dates)
		e.WhenPoll = hasDateChoice(e.Dates)
	}
	if p.Categories != nil {
		e.Categories = nonNil(*p.Categories)
	}
	if p.BannerImages != nil {
		e.BannerImages = nonNil(*p.BannerImages)
	}
	if p.IsLive != nil {
		e.IsLive = *p.IsLive
	}
	if p.Access != nil {
		e.Access = *p.Access
	}
	if p.Tags != nil {
		e.Tags = nonNil(*p.Tags)
	}
	if p.Services != nil {
		e.Services = nonNil(*p.Services)
	}
	e.UpdatedAt = now
}

// LikeStatus is the like state of an event after a like or unlike.
type LikeStatus struct {
	LikesCount      int  `json:"likes_count"`
	IsLikedByViewer bool `json:"is_liked_by_viewer"`
}

// EventView is the materialized representation returned to clients.
type EventView struct {
	*Event
	LikesCount      int          `json:"likes_count"`
	IsLikedByViewer bool         `json:"is_liked_by_viewer"`
	Tally           VoteTally    `json:"tally"`
	StagePosts      []*StagePost `json:"stage_posts"`
}

func (e *Event) View(viewerID string) *EventView {
	return &EventView{
		Event:           e,
		LikesCount:      e.LikesCount(),
		IsLikedByViewer: e.IsLikedBy(viewerID),
		Tally:           e.Tally(),
		StagePosts:      e.OrderedStagePosts(),
	}
}

// EventFilter selects public events for listing.
type EventFilter struct {
	Category string
	Query    string
	Page     int
	Limit    int
}

func (f *EventFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > 50 {
		f.Limit = 50
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func hasDateChoice(dates []DateGroup) bool {
	for _, g := range dates {
		if len(g) > 1 {
			return true
		}
	}
	return false
}
