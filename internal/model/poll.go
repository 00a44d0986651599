package model

import (
	"encoding/json"
	"slices"
	"time"

	apperrors "eventstage/pkg/app_errors"
)

// VoteType selects which poll a vote addresses.
type VoteType string

const (
	VoteTypeLocation VoteType = "location"
	VoteTypeDate     VoteType = "date"
)

// LocationOption is one candidate venue in the "where" poll.
type LocationOption struct {
	Coordinates []float64 `json:"coordinates" bson:"coordinates"` // [lat, long]
	Label       string    `json:"label,omitempty" bson:"label,omitempty"`
	Votes       []string  `json:"votes" bson:"votes"`
}

// DateOption is one candidate range inside a date group.
type DateOption struct {
	StartDate time.Time  `json:"start_date" bson:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty" bson:"end_date,omitempty"`
	Votes     []string   `json:"votes" bson:"votes"`
}

// DateGroup holds the alternative ranges for a single slot of the event.
type DateGroup []DateOption

// PollIndex addresses a poll option. Location options use a single index,
// date options a (group, option) pair.
type PollIndex struct {
	Group  int
	Option int
	pair   bool
}

func LocationIndex(i int) PollIndex {
	return PollIndex{Option: i}
}

func DateIndex(group, option int) PollIndex {
	return PollIndex{Group: group, Option: option, pair: true}
}

func (p PollIndex) IsPair() bool {
	return p.pair
}

// UnmarshalJSON accepts either a number or a two element array.
func (p *PollIndex) UnmarshalJSON(data []byte) error {
	var single int
	if err := json.Unmarshal(data, &single); err == nil {
		*p = LocationIndex(single)
		return nil
	}
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil || len(pair) != 2 {
		return apperrors.ErrInvalidIndex
	}
	*p = DateIndex(pair[0], pair[1])
	return nil
}

func (p PollIndex) MarshalJSON() ([]byte, error) {
	if p.pair {
		return json.Marshal([]int{p.Group, p.Option})
	}
	return json.Marshal(p.Option)
}

// votesAt returns a pointer to the voter set addressed by the index.
func (e *Event) votesAt(voteType VoteType, index PollIndex) (*[]string, error) {
	switch voteType {
	case VoteTypeLocation:
		if index.pair || index.Option < 0 || index.Option >= len(e.Locations) {
			return nil, apperrors.ErrInvalidIndex
		}
		return &e.Locations[index.Option].Votes, nil
	case VoteTypeDate:
		if !index.pair || index.Group < 0 || index.Group >= len(e.Dates) {
			return nil, apperrors.ErrInvalidIndex
		}
		group := e.Dates[index.Group]
		if index.Option < 0 || index.Option >= len(group) {
			return nil, apperrors.ErrInvalidIndex
		}
		return &group[index.Option].Votes, nil
	default:
		return nil, apperrors.ErrInvalidVoteType
	}
}

// Vote adds userID to the addressed option. Voting twice is a no-op.
func (e *Event) Vote(voteType VoteType, index PollIndex, userID string) error {
	if userID == "" {
		return apperrors.ErrInvalidInput
	}
	votes, err := e.votesAt(voteType, index)
	if err != nil {
		return err
	}
	if !slices.Contains(*votes, userID) {
		*votes = append(*votes, userID)
	}
	return nil
}

// Unvote removes userID from the addressed option if present.
func (e *Event) Unvote(voteType VoteType, index PollIndex, userID string) error {
	if userID == "" {
		return apperrors.ErrInvalidInput
	}
	votes, err := e.votesAt(voteType, index)
	if err != nil {
		return err
	}
	*votes = slices.DeleteFunc(*votes, func(id string) bool { return id == userID })
	return nil
}

// VoteTally reports vote counts; no winner is computed.
type VoteTally struct {
	Locations []int   `json:"locations"`
	Dates     [][]int `json:"dates"`
}

func (e *Event) Tally() VoteTally {
	tally := VoteTally{
		Locations: make([]int, len(e.Locations)),
		Dates:     make([][]int, len(e.Dates)),
	}
	for i, loc := range e.Locations {
		tally.Locations[i] = len(loc.Votes)
	}
	for g, group := range e.Dates {
		tally.Dates[g] = make([]int, len(group))
		for o, opt := range group {
			tally.Dates[g][o] = len(opt.Votes)
		}
	}
	return tally
}

func normalizePolls(locations []LocationOption, dates []DateGroup) ([]LocationOption, []DateGroup) {
	if locations == nil {
		locations = []LocationOption{}
	}
	for i := range locations {
		locations[i].Votes = dedupe(locations[i].Votes)
	}
	if dates == nil {
		dates = []DateGroup{}
	}
	for g := range dates {
		for o := range dates[g] {
			dates[g][o].Votes = dedupe(dates[g][o].Votes)
		}
	}
	return locations, dates
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
