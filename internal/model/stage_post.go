package model

import (
	"slices"
	"sort"
	"time"

	apperrors "eventstage/pkg/app_errors"
)

// StagePost is an entry in an event's social feed.
type StagePost struct {
	ID        string     `json:"id" bson:"id"`
	Text      string     `json:"text" bson:"text"`
	MediaURLs []string   `json:"media_urls" bson:"media_urls"`
	CreatorID string     `json:"creator_id" bson:"creator_id"`
	Order     int        `json:"order" bson:"order"`
	Likes     []string   `json:"likes" bson:"likes"`
	Comments  []*Comment `json:"comments" bson:"comments"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

type Comment struct {
	ID        string    `json:"id" bson:"id"`
	AuthorID  string    `json:"author_id" bson:"author_id"`
	Text      string    `json:"text" bson:"text"`
	Edited    bool      `json:"edited" bson:"edited"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

type StagePostInput struct {
	Text      string   `json:"text"`
	MediaURLs []string `json:"media_urls"`
}

type StagePostPatch struct {
	Text      *string   `json:"text"`
	MediaURLs *[]string `json:"media_urls"`
}

func (e *Event) StagePost(postID string) (*StagePost, error) {
	post, ok := e.StagePosts[postID]
	if !ok {
		return nil, apperrors.ErrStagePostNotFound
	}
	return post, nil
}

// AddStagePost appends a post to the end of the feed.
func (e *Event) AddStagePost(id, creatorID string, in StagePostInput, now time.Time) (*StagePost, error) {
	if in.Text == "" && len(in.MediaURLs) == 0 {
		return nil, apperrors.ErrInvalidInput
	}
	if e.StagePosts == nil {
		e.StagePosts = map[string]*StagePost{}
	}
	post := &StagePost{
		ID:        id,
		Text:      in.Text,
		MediaURLs: nonNil(in.MediaURLs),
		CreatorID: creatorID,
		Order:     len(e.StagePostOrder),
		Likes:     []string{},
		Comments:  []*Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.StagePosts[id] = post
	e.StagePostOrder = append(e.StagePostOrder, id)
	return post, nil
}

func (e *Event) UpdateStagePost(postID string, patch StagePostPatch, now time.Time) (*StagePost, error) {
	post, err := e.StagePost(postID)
	if err != nil {
		return nil, err
	}
	if patch.Text != nil {
		post.Text = *patch.Text
	}
	if patch.MediaURLs != nil {
		post.MediaURLs = nonNil(*patch.MediaURLs)
	}
	post.UpdatedAt = now
	return post, nil
}

func (e *Event) DeleteStagePost(postID string) error {
	if _, err := e.StagePost(postID); err != nil {
		return err
	}
	delete(e.StagePosts, postID)
	e.StagePostOrder = slices.DeleteFunc(e.StagePostOrder, func(id string) bool { return id == postID })
	e.renumberStagePosts()
	return nil
}

// ReorderStagePosts replaces the feed order. ids must be a permutation of
// the existing post ids; otherwise the order is left untouched.
func (e *Event) ReorderStagePosts(ids []string) error {
	if len(ids) != len(e.StagePosts) {
		return apperrors.ErrOrderMismatch
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := e.StagePosts[id]; !ok {
			return apperrors.ErrOrderMismatch
		}
		if _, dup := seen[id]; dup {
			return apperrors.ErrOrderMismatch
		}
		seen[id] = struct{}{}
	}
	e.StagePostOrder = slices.Clone(ids)
	e.renumberStagePosts()
	return nil
}

// ToggleStagePostLike flips userID's like and reports the new state.
func (e *Event) ToggleStagePostLike(postID, userID string) (bool, error) {
	post, err := e.StagePost(postID)
	if err != nil {
		return false, err
	}
	if slices.Contains(post.Likes, userID) {
		post.Likes = slices.DeleteFunc(post.Likes, func(id string) bool { return id == userID })
		return false, nil
	}
	post.Likes = append(post.Likes, userID)
	return true, nil
}

func (e *Event) AddComment(postID, commentID, authorID, text string, now time.Time) (*Comment, error) {
	if text == "" {
		return nil, apperrors.ErrInvalidInput
	}
	post, err := e.StagePost(postID)
	if err != nil {
		return nil, err
	}
	c := &Comment{
		ID:        commentID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	post.Comments = append(post.Comments, c)
	return c, nil
}

// EditComment changes the text of a comment; only its author may do so.
func (e *Event) EditComment(postID, commentID, authorID, text string, now time.Time) (*Comment, error) {
	if text == "" {
		return nil, apperrors.ErrInvalidInput
	}
	c, err := e.comment(postID, commentID)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != authorID {
		return nil, apperrors.ErrUnauthorized
	}
	c.Text = text
	c.Edited = true
	c.UpdatedAt = now
	return c, nil
}

func (e *Event) DeleteComment(postID, commentID, authorID string) error {
	c, err := e.comment(postID, commentID)
	if err != nil {
		return err
	}
	if c.AuthorID != authorID {
		return apperrors.ErrUnauthorized
	}
	post := e.StagePosts[postID]
	post.Comments = slices.DeleteFunc(post.Comments, func(x *Comment) bool { return x.ID == commentID })
	return nil
}

func (e *Event) comment(postID, commentID string) (*Comment, error) {
	post, err := e.StagePost(postID)
	if err != nil {
		return nil, err
	}
	for _, c := range post.Comments {
		if c.ID == commentID {
			return c, nil
		}
	}
	return nil, apperrors.ErrCommentNotFound
}

// OrderedStagePosts returns the feed in display order.
func (e *Event) OrderedStagePosts() []*StagePost {
	posts := make([]*StagePost, 0, len(e.StagePostOrder))
	for _, id := range e.StagePostOrder {
		if p, ok := e.StagePosts[id]; ok {
			posts = append(posts, p)
		}
	}
	if len(posts) != len(e.StagePosts) {
		// order list drifted from the arena; fall back to stored indexes
		posts = posts[:0]
		for _, p := range e.StagePosts {
			posts = append(posts, p)
		}
		sort.Slice(posts, func(i, j int) bool { return posts[i].Order < posts[j].Order })
	}
	return posts
}

func (e *Event) renumberStagePosts() {
	for i, id := range e.StagePostOrder {
		if p, ok := e.StagePosts[id]; ok {
			p.Order = i
		}
	}
}
