package model

import (
	"testing"

	apperrors "eventstage/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPosts(t *testing.T, e *Event, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := e.AddStagePost(id, "org", StagePostInput{Text: "post " + id}, testNow)
		require.NoError(t, err)
	}
}

func postIDs(posts []*StagePost) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func TestEvent_ReorderStagePosts(t *testing.T) {
	t.Run("Success - permutation", func(t *testing.T) {
		e := newTestEvent(t)
		seedPosts(t, e, "a", "b", "c")

		require.NoError(t, e.ReorderStagePosts([]string{"c", "a", "b"}))

		posts := e.OrderedStagePosts()
		assert.Equal(t, []string{"c", "a", "b"}, postIDs(posts))
		assert.Equal(t, 0, posts[0].Order)
		assert.Equal(t, 2, posts[2].Order)
	})

	t.Run("Failed - missing id leaves order unchanged", func(t *testing.T) {
		e := newTestEvent(t)
		seedPosts(t, e, "a", "b", "c")

		err := e.ReorderStagePosts([]string{"c", "a"})

		assert.ErrorIs(t, err, apperrors.ErrOrderMismatch)
		assert.Equal(t, []string{"a", "b", "c"}, postIDs(e.OrderedStagePosts()))
	})

	t.Run("Failed - unknown or duplicate id", func(t *testing.T) {
		e := newTestEvent(t)
		seedPosts(t, e, "a", "b")

		assert.ErrorIs(t, e.ReorderStagePosts([]string{"a", "z"}), apperrors.ErrOrderMismatch)
		assert.ErrorIs(t, e.ReorderStagePosts([]string{"a", "a"}), apperrors.ErrOrderMismatch)
	})
}

func TestEvent_StagePostLifecycle(t *testing.T) {
	e := newTestEvent(t)
	seedPosts(t, e, "a", "b", "c")

	text := "edited"
	post, err := e.UpdateStagePost("b", StagePostPatch{Text: &text}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "edited", post.Text)

	require.NoError(t, e.DeleteStagePost("a"))
	posts := e.OrderedStagePosts()
	assert.Equal(t, []string{"b", "c"}, postIDs(posts))
	assert.Equal(t, 0, posts[0].Order)

	assert.ErrorIs(t, e.DeleteStagePost("a"), apperrors.ErrStagePostNotFound)
	_, err = e.AddStagePost("d", "org", StagePostInput{}, testNow)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestEvent_StagePostLikesAndComments(t *testing.T) {
	e := newTestEvent(t)
	seedPosts(t, e, "a")

	liked, err := e.ToggleStagePostLike("a", "u1")
	require.NoError(t, err)
	assert.True(t, liked)
	liked, err = e.ToggleStagePostLike("a", "u1")
	require.NoError(t, err)
	assert.False(t, liked)

	c, err := e.AddComment("a", "c1", "u1", "nice", testNow)
	require.NoError(t, err)
	assert.False(t, c.Edited)

	_, err = e.EditComment("a", "c1", "u2", "hijack", testNow)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	c, err = e.EditComment("a", "c1", "u1", "very nice", testNow)
	require.NoError(t, err)
	assert.True(t, c.Edited)
	assert.Equal(t, "very nice", c.Text)

	assert.ErrorIs(t, e.DeleteComment("a", "c1", "u2"), apperrors.ErrUnauthorized)
	assert.ErrorIs(t, e.DeleteComment("a", "missing", "u1"), apperrors.ErrCommentNotFound)
	require.NoError(t, e.DeleteComment("a", "c1", "u1"))
	assert.Empty(t, e.StagePosts["a"].Comments)
}
