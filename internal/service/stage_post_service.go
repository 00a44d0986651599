package service

import (
	"context"
	"slices"
	"time"

	"eventstage/internal/model"
	"eventstage/internal/repository"
	apperrors "eventstage/pkg/app_errors"

	"github.com/google/uuid"
)

// StagePostService edits the event feed. Posting, editing, deleting and
// reordering is for the organizer and team; any signed-in user may like
// and comment.
type StagePostService interface {
	AddStagePost(ctx context.Context, eventID, userID string, in model.StagePostInput) (*model.StagePost, error)
	UpdateStagePost(ctx context.Context, eventID, userID, postID string, patch model.StagePostPatch) (*model.StagePost, error)
	DeleteStagePost(ctx context.Context, eventID, userID, postID string) error
	ReorderStagePosts(ctx context.Context, eventID, userID string, postIDs []string) ([]*model.StagePost, error)
	ToggleLike(ctx context.Context, eventID, userID, postID string) (*model.StagePost, bool, error)
	AddComment(ctx context.Context, eventID, userID, postID, text string) (*model.Comment, error)
	EditComment(ctx context.Context, eventID, userID, postID, commentID, text string) (*model.Comment, error)
	DeleteComment(ctx context.Context, eventID, userID, postID, commentID string) error
}

type StagePostServiceImpl struct {
	events repository.EventRepository
	now    func() time.Time
}

func NewStagePostService(events repository.EventRepository) StagePostService {
	return &StagePostServiceImpl{
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// load reads the event and checks who may touch the feed.
func (s *StagePostServiceImpl) load(ctx context.Context, eventID, userID string, teamOnly bool) (*model.Event, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if teamOnly && !event.CanManage(userID) {
		return nil, apperrors.ErrUnauthorized
	}
	return event, nil
}

func (s *StagePostServiceImpl) AddStagePost(ctx context.Context, eventID, userID string, in model.StagePostInput) (*model.StagePost, error) {
	event, err := s.load(ctx, eventID, userID, true)
	if err != nil {
		return nil, err
	}
	post, err := event.AddStagePost(uuid.New().String(), userID, in, s.now())
	if err != nil {
		return nil, err
	}
	updated, err := s.events.Update(ctx, eventID, repository.AddStagePostUpdate(post))
	if err != nil {
		return nil, err
	}
	return updated.StagePost(post.ID)
}

func (s *StagePostServiceImpl) UpdateStagePost(ctx context.Context, eventID, userID, postID string, patch model.StagePostPatch) (*model.StagePost, error) {
	event, err := s.load(ctx, eventID, userID, true)
	if err != nil {
		return nil, err
	}
	post, err := event.UpdateStagePost(postID, patch, s.now())
	if err != nil {
		return nil, err
	}
	updated, err := s.events.Update(ctx, eventID, repository.EditStagePostUpdate(post))
	if err != nil {
		return nil, err
	}
	return updated.StagePost(postID)
}

func (s *StagePostServiceImpl) DeleteStagePost(ctx context.Context, eventID, userID, postID string) error {
	event, err := s.load(ctx, eventID, userID, true)
	if err != nil {
		return err
	}
	if err := event.DeleteStagePost(postID); err != nil {
		return err
	}
	_, err = s.events.Update(ctx, eventID, repository.DeleteStagePostUpdate(postID, event.StagePostOrder))
	return err
}

func (s *StagePostServiceImpl) ReorderStagePosts(ctx context.Context, eventID, userID string, postIDs []string) ([]*model.StagePost, error) {
	event, err := s.load(ctx, eventID, userID, true)
	if err != nil {
		return nil, err
	}
	if err := event.ReorderStagePosts(postIDs); err != nil {
		return nil, err
	}
	updated, err := s.events.Update(ctx, eventID, repository.ReorderStagePostsUpdate(postIDs))
	if err != nil {
		return nil, err
	}
	return updated.OrderedStagePosts(), nil
}

func (s *StagePostServiceImpl) ToggleLike(ctx context.Context, eventID, userID, postID string) (*model.StagePost, bool, error) {
	event, err := s.load(ctx, eventID, userID, false)
	if err != nil {
		return nil, false, err
	}
	liked, err := event.ToggleStagePostLike(postID, userID)
	if err != nil {
		return nil, false, err
	}
	updated, err := s.events.Update(ctx, eventID, repository.StagePostLikeUpdate(postID, userID, liked))
	if err != nil {
		return nil, false, err
	}
	post, err := updated.StagePost(postID)
	if err != nil {
		return nil, false, err
	}
	return post, slices.Contains(post.Likes, userID), nil
}

func (s *StagePostServiceImpl) AddComment(ctx context.Context, eventID, userID, postID, text string) (*model.Comment, error) {
	event, err := s.load(ctx, eventID, userID, false)
	if err != nil {
		return nil, err
	}
	comment, err := event.AddComment(postID, uuid.New().String(), userID, text, s.now())
	if err != nil {
		return nil, err
	}
	if _, err := s.events.Update(ctx, eventID, repository.AddCommentUpdate(postID, comment)); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *StagePostServiceImpl) EditComment(ctx context.Context, eventID, userID, postID, commentID, text string) (*model.Comment, error) {
	event, err := s.load(ctx, eventID, userID, false)
	if err != nil {
		return nil, err
	}
	comment, err := event.EditComment(postID, commentID, userID, text, s.now())
	if err != nil {
		return nil, err
	}
	i := slices.Index(event.StagePosts[postID].Comments, comment)
	if _, err := s.events.Update(ctx, eventID, repository.EditCommentUpdate(postID, i, comment)); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *StagePostServiceImpl) DeleteComment(ctx context.Context, eventID, userID, postID, commentID string) error {
	event, err := s.load(ctx, eventID, userID, false)
	if err != nil {
		return err
	}
	if err := event.DeleteComment(postID, commentID, userID); err != nil {
		return err
	}
	_, err = s.events.Update(ctx, eventID, repository.DeleteCommentUpdate(postID, commentID))
	return err
}
