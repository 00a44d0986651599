package repository

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"eventstage/internal/model"
	apperrors "eventstage/pkg/app_errors"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// EventUpdate is a field-level change to one event document. Paths are the
// stored field names joined by dots ("rsvps.u1", "locations.2.votes").
// An update only matches an event that is not soft-deleted; guards narrow
// the match further and name the error returned when they fail.
type EventUpdate struct {
	set       bson.M
	unset     []string
	addToSet  bson.M
	pull      bson.M
	pullWhere map[string]match
	push      bson.M
	guards    []guard
	err       error
}

type match struct {
	field string
	value any
}

type guardKind int

const (
	guardExists guardKind = iota
	guardEquals
	guardNotIn
)

type guard struct {
	kind  guardKind
	path  string
	field string
	value any
	err   error
}

func NewEventUpdate() *EventUpdate {
	return &EventUpdate{
		set:       bson.M{},
		addToSet:  bson.M{},
		pull:      bson.M{},
		pullWhere: map[string]match{},
		push:      bson.M{},
	}
}

func (u *EventUpdate) Set(path string, value any) *EventUpdate {
	u.set[path] = value
	return u
}

func (u *EventUpdate) Unset(path string) *EventUpdate {
	u.unset = append(u.unset, path)
	return u
}

func (u *EventUpdate) AddToSet(path string, value any) *EventUpdate {
	u.addToSet[path] = value
	return u
}

func (u *EventUpdate) Pull(path string, value any) *EventUpdate {
	u.pull[path] = value
	return u
}

// PullWhere removes the array documents at path whose field equals value.
func (u *EventUpdate) PullWhere(path, field string, value any) *EventUpdate {
	u.pullWhere[path] = match{field: field, value: value}
	return u
}

func (u *EventUpdate) Push(path string, value any) *EventUpdate {
	u.push[path] = value
	return u
}

// RequireExists fails the update with err unless path is present.
func (u *EventUpdate) RequireExists(path string, err error) *EventUpdate {
	u.guards = append(u.guards, guard{kind: guardExists, path: path, err: err})
	return u
}

// RequireEquals fails the update with err unless path holds value.
func (u *EventUpdate) RequireEquals(path string, value any, err error) *EventUpdate {
	u.guards = append(u.guards, guard{kind: guardEquals, path: path, value: value, err: err})
	return u
}

// RequireNone fails the update with err if any document in the array at
// path has field equal to value.
func (u *EventUpdate) RequireNone(path, field string, value any, err error) *EventUpdate {
	u.guards = append(u.guards, guard{kind: guardNotIn, path: path, field: field, value: value, err: err})
	return u
}

// Err reports a path built from an unusable key.
func (u *EventUpdate) Err() error {
	return u.err
}

// key joins path segments, rejecting ids that would be read as operators
// or nested paths.
func (u *EventUpdate) key(parts ...string) string {
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, ".$") {
			u.err = fmt.Errorf("%w: bad key %q", apperrors.ErrInvalidInput, p)
		}
	}
	return strings.Join(parts, ".")
}

// GuardErr is the error reported when the event exists but a guard failed.
// With several guards the store may not know which one, so the first wins.
func (u *EventUpdate) GuardErr() error {
	if len(u.guards) == 0 {
		return apperrors.ErrEventNotFound
	}
	return u.guards[0].err
}

// Filter is the Mongo filter for event id.
func (u *EventUpdate) Filter(id string) bson.M {
	filter := bson.M{"_id": id, "is_deleted": false}
	for _, g := range u.guards {
		switch g.kind {
		case guardExists:
			filter[g.path] = bson.M{"$exists": true}
		case guardEquals:
			filter[g.path] = g.value
		case guardNotIn:
			filter[g.path+"."+g.field] = bson.M{"$ne": g.value}
		}
	}
	return filter
}

// Document is the Mongo update document.
func (u *EventUpdate) Document() bson.M {
	doc := bson.M{}
	if len(u.set) > 0 {
		doc["$set"] = u.set
	}
	if len(u.unset) > 0 {
		unset := bson.M{}
		for _, p := range u.unset {
			unset[p] = ""
		}
		doc["$unset"] = unset
	}
	if len(u.addToSet) > 0 {
		doc["$addToSet"] = u.addToSet
	}
	pull := bson.M{}
	for p, v := range u.pull {
		pull[p] = v
	}
	for p, m := range u.pullWhere {
		pull[p] = bson.M{m.field: m.value}
	}
	if len(pull) > 0 {
		doc["$pull"] = pull
	}
	if len(u.push) > 0 {
		doc["$push"] = u.push
	}
	return doc
}

// Matches evaluates the guards against a decoded document.
func (u *EventUpdate) Matches(doc bson.M) error {
	for _, g := range u.guards {
		v, ok := lookup(doc, g.path)
		switch g.kind {
		case guardExists:
			if !ok || v == nil {
				return g.err
			}
		case guardEquals:
			if !ok || !reflect.DeepEqual(v, g.value) {
				return g.err
			}
		case guardNotIn:
			arr, _ := v.(bson.A)
			for _, el := range arr {
				if m, isDoc := el.(bson.M); isDoc && reflect.DeepEqual(m[g.field], g.value) {
					return g.err
				}
			}
		}
	}
	return nil
}

// ApplyTo runs the update against a decoded document the way the server
// would. Nested documents must be bson.M and arrays bson.A.
func (u *EventUpdate) ApplyTo(doc bson.M) error {
	for p, v := range u.set {
		if err := setPath(doc, p, v); err != nil {
			return err
		}
	}
	for _, p := range u.unset {
		unsetPath(doc, p)
	}
	for p, v := range u.addToSet {
		if err := editArray(doc, p, func(a bson.A) bson.A {
			for _, el := range a {
				if reflect.DeepEqual(el, v) {
					return a
				}
			}
			return append(a, v)
		}); err != nil {
			return err
		}
	}
	for p, v := range u.pull {
		if err := editArray(doc, p, func(a bson.A) bson.A {
			out := a[:0]
			for _, el := range a {
				if !reflect.DeepEqual(el, v) {
					out = append(out, el)
				}
			}
			return out
		}); err != nil {
			return err
		}
	}
	for p, m := range u.pullWhere {
		if err := editArray(doc, p, func(a bson.A) bson.A {
			out := a[:0]
			for _, el := range a {
				if d, ok := el.(bson.M); ok && reflect.DeepEqual(d[m.field], m.value) {
					continue
				}
				out = append(out, el)
			}
			return out
		}); err != nil {
			return err
		}
	}
	for p, v := range u.push {
		if err := editArray(doc, p, func(a bson.A) bson.A { return append(a, v) }); err != nil {
			return err
		}
	}
	return nil
}

func lookup(doc bson.M, path string) (any, bool) {
	var cur any = doc
	for _, seg := range strings.Split(path, ".") {
		switch c := cur.(type) {
		case bson.M:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case bson.A:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(c) {
				return nil, false
			}
			cur = c[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// parent walks to the container holding the last segment of path,
// creating missing documents on the way like $set does.
func parent(doc bson.M, path string) (any, string, error) {
	segs := strings.Split(path, ".")
	var cur any = doc
	for _, seg := range segs[:len(segs)-1] {
		switch c := cur.(type) {
		case bson.M:
			next, ok := c[seg]
			if !ok || next == nil {
				next = bson.M{}
				c[seg] = next
			}
			cur = next
		case bson.A:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(c) {
				return nil, "", fmt.Errorf("path %s: index %s out of range", path, seg)
			}
			cur = c[i]
		default:
			return nil, "", fmt.Errorf("path %s: cannot descend into %T", path, cur)
		}
	}
	return cur, segs[len(segs)-1], nil
}

func setPath(doc bson.M, path string, value any) error {
	container, last, err := parent(doc, path)
	if err != nil {
		return err
	}
	switch c := container.(type) {
	case bson.M:
		c[last] = value
	case bson.A:
		i, err := strconv.Atoi(last)
		if err != nil || i < 0 || i >= len(c) {
			return fmt.Errorf("path %s: index %s out of range", path, last)
		}
		c[i] = value
	default:
		return fmt.Errorf("path %s: cannot set inside %T", path, container)
	}
	return nil
}

func unsetPath(doc bson.M, path string) {
	v, ok := lookup(doc, path)
	if !ok {
		return
	}
	i := strings.LastIndex(path, ".")
	if i < 0 {
		delete(doc, path)
		return
	}
	container, _ := lookup(doc, path[:i])
	switch c := container.(type) {
	case bson.M:
		delete(c, path[i+1:])
	case bson.A:
		// mongo leaves a null hole in arrays
		if idx, err := strconv.Atoi(path[i+1:]); err == nil && v != nil {
			c[idx] = nil
		}
	}
}

func editArray(doc bson.M, path string, fn func(bson.A) bson.A) error {
	v, _ := lookup(doc, path)
	arr, ok := v.(bson.A)
	if v != nil && !ok {
		return fmt.Errorf("path %s: not an array", path)
	}
	return setPath(doc, path, fn(arr))
}

// LikeUpdate adds or removes userID from the event likes.
func LikeUpdate(userID string, like bool) *EventUpdate {
	u := NewEventUpdate()
	if like {
		return u.AddToSet("likes", userID)
	}
	return u.Pull("likes", userID)
}

// VoteUpdate adds or removes userID on one poll option. The option must
// still exist when the write lands.
func VoteUpdate(voteType model.VoteType, index model.PollIndex, userID string, add bool) *EventUpdate {
	u := NewEventUpdate()
	var option string
	switch voteType {
	case model.VoteTypeLocation:
		option = "locations." + strconv.Itoa(index.Option)
	default:
		option = "dates." + strconv.Itoa(index.Group) + "." + strconv.Itoa(index.Option)
	}
	u.RequireExists(option, apperrors.ErrInvalidIndex)
	if add {
		return u.AddToSet(option+".votes", userID)
	}
	return u.Pull(option+".votes", userID)
}

// InviteUpdate appends one invitation unless the user is already invited.
func InviteUpdate(inv model.Invitation) *EventUpdate {
	return NewEventUpdate().
		RequireNone("invitations", "user_id", inv.UserID, apperrors.ErrAlreadyInvited).
		Push("invitations", inv)
}

func RSVPUpdate(userID string, rsvp model.RSVP) *EventUpdate {
	u := NewEventUpdate()
	return u.Set(u.key("rsvps", userID), rsvp)
}

func TeamUpdate(team []model.TeamMember, now time.Time) *EventUpdate {
	return NewEventUpdate().Set("team", team).Set("updated_at", now)
}

func DeleteUpdate(now time.Time) *EventUpdate {
	return NewEventUpdate().Set("is_deleted", true).Set("updated_at", now)
}

// CancelUpdate only matches an event that is not cancelled yet, so the
// caller that wins is the only one that sees success.
func CancelUpdate(now time.Time) *EventUpdate {
	return NewEventUpdate().
		RequireEquals("is_cancelled", false, apperrors.ErrEventCancelled).
		Set("is_cancelled", true).
		Set("updated_at", now)
}

// PatchUpdate sets the fields named by p, taking their values from e after
// the patch was applied to it.
func PatchUpdate(e *model.Event, p model.EventPatch) *EventUpdate {
	u := NewEventUpdate().
		Set("updated_at", e.UpdatedAt).
		Set("max_attendees", e.MaxAttendees)
	if p.Title != nil {
		u.Set("title", e.Title)
	}
	if p.Description != nil {
		u.Set("description", e.Description)
	}
	if p.Locations != nil {
		u.Set("locations", e.Locations).Set("where_poll", e.WherePoll)
	}
	if p.Dates != nil {
		u.Set("dates", e.Dates).Set("when_poll", e.WhenPoll)
	}
	if p.Categories != nil {
		u.Set("categories", e.Categories)
	}
	if p.BannerImages != nil {
		u.Set("banner_images", e.BannerImages)
	}
	if p.IsLive != nil {
		u.Set("is_live", e.IsLive)
	}
	if p.Access != nil {
		u.Set("access", e.Access)
	}
	if p.Tags != nil {
		u.Set("tags", e.Tags)
	}
	if p.Services != nil {
		u.Set("services", e.Services)
	}
	return u
}

func AddStagePostUpdate(post *model.StagePost) *EventUpdate {
	u := NewEventUpdate()
	return u.Set(u.key("stage_posts", post.ID), post).Push("stage_post_order", post.ID)
}

func EditStagePostUpdate(post *model.StagePost) *EventUpdate {
	u := NewEventUpdate()
	p := u.key("stage_posts", post.ID)
	return u.RequireExists(p, apperrors.ErrStagePostNotFound).
		Set(p+".text", post.Text).
		Set(p+".media_urls", post.MediaURLs).
		Set(p+".updated_at", post.UpdatedAt)
}

// DeleteStagePostUpdate removes a post and renumbers the ones left, which
// must all still exist.
func DeleteStagePostUpdate(postID string, remaining []string) *EventUpdate {
	u := NewEventUpdate()
	p := u.key("stage_posts", postID)
	u.RequireExists(p, apperrors.ErrStagePostNotFound).
		Unset(p).
		Pull("stage_post_order", postID)
	for i, id := range remaining {
		q := u.key("stage_posts", id)
		u.RequireExists(q, apperrors.ErrOrderMismatch).Set(q+".order", i)
	}
	return u
}

// ReorderStagePostsUpdate writes the feed order and each post's index.
// Every post must still exist so no partial post document is created.
func ReorderStagePostsUpdate(ids []string) *EventUpdate {
	u := NewEventUpdate().Set("stage_post_order", ids)
	for i, id := range ids {
		p := u.key("stage_posts", id)
		u.RequireExists(p, apperrors.ErrOrderMismatch).Set(p+".order", i)
	}
	return u
}

func StagePostLikeUpdate(postID, userID string, like bool) *EventUpdate {
	u := NewEventUpdate()
	p := u.key("stage_posts", postID)
	u.RequireExists(p, apperrors.ErrStagePostNotFound)
	if like {
		return u.AddToSet(p+".likes", userID)
	}
	return u.Pull(p+".likes", userID)
}

func AddCommentUpdate(postID string, c *model.Comment) *EventUpdate {
	u := NewEventUpdate()
	p := u.key("stage_posts", postID)
	return u.RequireExists(p, apperrors.ErrStagePostNotFound).Push(p+".comments", c)
}

// EditCommentUpdate rewrites the comment at position i, which must still
// hold the same comment id.
func EditCommentUpdate(postID string, i int, c *model.Comment) *EventUpdate {
	u := NewEventUpdate()
	p := u.key("stage_posts", postID) + ".comments." + strconv.Itoa(i)
	return u.RequireEquals(p+".id", c.ID, apperrors.ErrCommentNotFound).
		Set(p+".text", c.Text).
		Set(p+".edited", true).
		Set(p+".updated_at", c.UpdatedAt)
}

func DeleteCommentUpdate(postID, commentID string) *EventUpdate {
	u := NewEventUpdate()
	p := u.key("stage_posts", postID)
	return u.RequireExists(p, apperrors.ErrStagePostNotFound).PullWhere(p+".comments", "id", commentID)
}
