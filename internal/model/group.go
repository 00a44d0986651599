package model

// GroupRole is a member's role within a group.
type GroupRole string

const (
	GroupRoleAdmin  GroupRole = "admin"
	GroupRoleMember GroupRole = "member"
)

// EventStatusUpcoming is written into Group.EventStatuses when an event is linked.
const EventStatusUpcoming = "upcoming"

type GroupMember struct {
	UserID string    `json:"user_id" bson:"user_id"`
	Role   GroupRole `json:"role" bson:"role"`
}

// Group is the slice of a group document the event lifecycle reads and writes.
type Group struct {
	ID            string            `json:"id" bson:"_id"`
	Name          string            `json:"name" bson:"name"`
	Members       []GroupMember     `json:"members" bson:"members"`
	EventIDs      []string          `json:"event_ids" bson:"event_ids"`
	EventStatuses map[string]string `json:"event_statuses" bson:"event_statuses"`
}

func (g *Group) IsAdmin(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID && m.Role == GroupRoleAdmin {
			return true
		}
	}
	return false
}

const (
	EventStatusCancelled = "cancelled"
	EventStatusDeleted   = "deleted"
)
